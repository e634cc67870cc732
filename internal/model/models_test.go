package model

import (
	"database/sql"
	"testing"
	"time"
)

func TestPosition_RoundTrip(t *testing.T) {
	cases := []struct{ lat, lon float64 }{
		{48.137154, 11.576124},
		{-33.8688, 151.2093},
		{0, 0},
		{51.4778, -0.0014},
	}
	for _, c := range cases {
		s := FormatPosition(c.lat, c.lon)
		lat, lon, err := ParsePosition(s)
		if err != nil {
			t.Fatalf("ParsePosition(%q) error = %v", s, err)
		}
		if lat != c.lat || lon != c.lon {
			t.Errorf("ParsePosition(%q) = (%v, %v), want (%v, %v)", s, lat, lon, c.lat, c.lon)
		}
	}
}

func TestParsePosition_Invalid(t *testing.T) {
	for _, s := range []string{"", "48.1", "abc,1", "1,xyz"} {
		if _, _, err := ParsePosition(s); err == nil {
			t.Errorf("ParsePosition(%q) expected error", s)
		}
	}
}

func TestObservingSession_Overlaps(t *testing.T) {
	s := &ObservingSession{
		DateFrom: time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2024, 1, 11, 6, 0, 0, 0, time.UTC),
	}

	t.Run("contained window overlaps", func(t *testing.T) {
		from := time.Date(2024, 1, 10, 20, 0, 0, 0, time.UTC)
		to := time.Date(2024, 1, 11, 4, 0, 0, 0, time.UTC)
		if !s.Overlaps(from, to) {
			t.Error("Overlaps() = false, want true")
		}
	})

	t.Run("touching boundary overlaps", func(t *testing.T) {
		at := time.Date(2024, 1, 11, 6, 0, 0, 0, time.UTC)
		if !s.Overlaps(at, at.Add(time.Hour)) {
			t.Error("Overlaps() = false, want true")
		}
	})

	t.Run("following night does not overlap", func(t *testing.T) {
		from := time.Date(2024, 1, 11, 19, 0, 0, 0, time.UTC)
		if s.Overlaps(from, from.Add(8*time.Hour)) {
			t.Error("Overlaps() = true, want false")
		}
	})
}

func TestTarget_Key(t *testing.T) {
	if got := (Target{Type: TargetTypeDoubleStar, DoubleStarID: "ds-1"}).Key(); got != "ds-1" {
		t.Errorf("Key() = %q, want ds-1", got)
	}
	if got := (Target{Type: TargetTypeDSO, DeepSkyObjectIDs: []string{"a", "b"}}).Key(); got != "a" {
		t.Errorf("Key() = %q, want a", got)
	}
	if got := (Target{Type: TargetTypeDSO}).Key(); got != "" {
		t.Errorf("Key() = %q, want empty", got)
	}
}

func TestPristine(t *testing.T) {
	imported := sql.NullString{String: "rec-1", Valid: true}

	s := &ObservingSession{Audit: Audit{ImportHistoryRecID: imported}}
	if !s.Pristine() {
		t.Error("imported, unedited session should be pristine")
	}
	s.UserEdited = true
	if s.Pristine() {
		t.Error("edited session should not be pristine")
	}
	if (&ObservingSession{}).Pristine() {
		t.Error("manually entered session should not be pristine")
	}

	o := &Observation{Audit: Audit{ImportHistoryRecID: imported}}
	if !o.Pristine() {
		t.Error("imported, unedited observation should be pristine")
	}
	o.UserEdited = true
	if o.Pristine() {
		t.Error("edited observation should not be pristine")
	}
}
