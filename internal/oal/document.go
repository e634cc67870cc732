// Package oal holds the in-memory model of an external observation log
// (OpenAstronomyLog) document and a parse adapter for its XML form.
//
// Identifiers (ID, *Ref) are local to one document: they only link elements
// of the same document and carry no meaning in the logbook store.
package oal

import (
	"strings"
	"time"
)

// Document is a parsed observation log.
type Document struct {
	Sites        []Site
	Scopes       []Scope
	Eyepieces    []Eyepiece
	Filters      []Filter
	Lenses       []Lens
	Sessions     []Session
	Targets      []Target
	Observations []Observation
}

// Site is an observing location. Longitude and Latitude are in degrees.
type Site struct {
	ID        string
	Name      string
	Longitude float64
	Latitude  float64
	Elevation *float64
	Timezone  *int // offset from UTC in minutes
	Code      string
}

// Scope is a telescope or fixed-magnification instrument (binoculars).
type Scope struct {
	ID            string
	Model         string
	Vendor        string
	Type          string
	Aperture      *float64 // mm
	FocalLength   *float64 // mm
	Magnification *float64 // fixed magnification, binoculars only
}

// Eyepiece describes an eyepiece. MaxFocalLength is set for zoom eyepieces.
type Eyepiece struct {
	ID             string
	Model          string
	Vendor         string
	FocalLength    *float64 // mm
	MaxFocalLength *float64 // mm
	ApparentFOV    *float64 // degrees
}

type Filter struct {
	ID      string
	Model   string
	Vendor  string
	Type    string
	Color   string
	Wratten string
	Schott  string
}

type Lens struct {
	ID     string
	Model  string
	Vendor string
	Factor *float64
}

// Session is an observing session. End may be zero when unknown.
type Session struct {
	ID        string
	Begin     time.Time
	End       time.Time
	SiteRef   string
	Weather   string
	Equipment string
	Comments  string
}

// Window returns the session's time window, treating a missing end as the begin.
func (s Session) Window() (time.Time, time.Time) {
	if s.End.IsZero() || s.End.Before(s.Begin) {
		return s.Begin, s.Begin
	}
	return s.Begin, s.End
}

// Target kinds, as given by the xsi:type discriminant.
const (
	KindDoubleStar   = "oal:deepSkyDS"
	KindMultipleStar = "oal:deepSkyMS"
)

// Target is an observed object.
type Target struct {
	ID            string
	Name          string
	Aliases       []string
	Kind          string
	RA            *float64 // degrees
	Dec           *float64 // degrees
	Constellation string
}

// IsDoubleStar reports whether the target is a double or multiple star.
func (t Target) IsDoubleStar() bool {
	kind := t.Kind
	if i := strings.IndexByte(kind, ':'); i >= 0 {
		kind = kind[i+1:]
	}
	return strings.EqualFold(kind, "deepSkyDS") || strings.EqualFold(kind, "deepSkyMS")
}

// Names returns the target name followed by its aliases, skipping blanks.
func (t Target) Names() []string {
	names := make([]string, 0, 1+len(t.Aliases))
	for _, n := range append([]string{t.Name}, t.Aliases...) {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// Observation is a single external observation record.
type Observation struct {
	ID            string
	SessionRef    string
	TargetRef     string
	SiteRef       string
	Begin         time.Time
	End           time.Time
	SkyQuality    *float64 // mag/arcsec²
	FaintestStar  *float64
	Seeing        *int // Antoniadi scale 1..5
	ScopeRef      string
	EyepieceRef   string
	FilterRef     string
	LensRef       string
	Magnification *float64
	Result        string
}
