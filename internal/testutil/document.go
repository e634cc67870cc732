package testutil

import (
	"fmt"
	"time"

	"obslog/internal/oal"
)

// Night returns 2024-03-14 at hh:mm UTC, shifted by days.
func Night(days, hh, mm int) time.Time {
	return time.Date(2024, 3, 14+days, hh, mm, 0, 0, time.UTC)
}

// DocumentBuilder assembles oal documents for importer tests.
type DocumentBuilder struct {
	doc oal.Document
}

func NewDocument() *DocumentBuilder {
	return &DocumentBuilder{}
}

func (b *DocumentBuilder) Site(id, name string, lat, lon float64) *DocumentBuilder {
	b.doc.Sites = append(b.doc.Sites, oal.Site{ID: id, Name: name, Latitude: lat, Longitude: lon})
	return b
}

func (b *DocumentBuilder) Session(id, siteRef string, begin, end time.Time) *DocumentBuilder {
	b.doc.Sessions = append(b.doc.Sessions, oal.Session{ID: id, SiteRef: siteRef, Begin: begin, End: end})
	return b
}

// DeepSky adds a deep-sky target.
func (b *DocumentBuilder) DeepSky(id, name string, aliases ...string) *DocumentBuilder {
	b.doc.Targets = append(b.doc.Targets, oal.Target{ID: id, Name: name, Aliases: aliases, Kind: "oal:deepSkyGX"})
	return b
}

func (b *DocumentBuilder) DoubleStar(id, name string) *DocumentBuilder {
	b.doc.Targets = append(b.doc.Targets, oal.Target{ID: id, Name: name, Kind: oal.KindDoubleStar})
	return b
}

func (b *DocumentBuilder) Scope(id, model, vendor string, aperture float64) *DocumentBuilder {
	b.doc.Scopes = append(b.doc.Scopes, oal.Scope{ID: id, Model: model, Vendor: vendor, Aperture: &aperture})
	return b
}

func (b *DocumentBuilder) Eyepiece(id, model string, focalLength float64) *DocumentBuilder {
	b.doc.Eyepieces = append(b.doc.Eyepieces, oal.Eyepiece{ID: id, Model: model, FocalLength: &focalLength})
	return b
}

// Observe adds an observation of targetRef in sessionRef (may be empty).
func (b *DocumentBuilder) Observe(id, sessionRef, targetRef string, begin time.Time) *DocumentBuilder {
	b.doc.Observations = append(b.doc.Observations, oal.Observation{
		ID:         id,
		SessionRef: sessionRef,
		TargetRef:  targetRef,
		Begin:      begin,
		Result:     "seen " + id,
	})
	return b
}

// With applies fn to the most recently added observation.
func (b *DocumentBuilder) With(fn func(*oal.Observation)) *DocumentBuilder {
	if n := len(b.doc.Observations); n > 0 {
		fn(&b.doc.Observations[n-1])
	}
	return b
}

// ObserveMany adds n observations of targetRef, one minute apart from start.
func (b *DocumentBuilder) ObserveMany(n int, sessionRef, targetRef string, start time.Time) *DocumentBuilder {
	for i := range n {
		b.Observe(fmt.Sprintf("obs_%d", i+1), sessionRef, targetRef, start.Add(time.Duration(i)*time.Minute))
	}
	return b
}

func (b *DocumentBuilder) Build() *oal.Document {
	doc := b.doc
	return &doc
}
