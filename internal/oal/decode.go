package oal

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed is wrapped by every error Decode returns for an unreadable document.
var ErrMalformed = errors.New("malformed observation log")

type xmlDocument struct {
	XMLName      xml.Name         `xml:"observations"`
	Sites        []xmlSite        `xml:"sites>site"`
	Sessions     []xmlSession     `xml:"sessions>session"`
	Targets      []xmlTarget      `xml:"targets>target"`
	Scopes       []xmlScope       `xml:"scopes>scope"`
	Eyepieces    []xmlEyepiece    `xml:"eyepieces>eyepiece"`
	Lenses       []xmlLens        `xml:"lenses>lens"`
	Filters      []xmlFilter      `xml:"filters>filter"`
	Observations []xmlObservation `xml:"observation"`
}

type xmlValue struct {
	Unit  string `xml:"unit,attr"`
	Value string `xml:",chardata"`
}

type xmlSite struct {
	ID        string   `xml:"id,attr"`
	Name      string   `xml:"name"`
	Longitude xmlValue `xml:"longitude"`
	Latitude  xmlValue `xml:"latitude"`
	Elevation string   `xml:"elevation"`
	Timezone  string   `xml:"timezone"`
	Code      string   `xml:"code"`
}

type xmlSession struct {
	ID        string `xml:"id,attr"`
	Begin     string `xml:"begin"`
	End       string `xml:"end"`
	Site      string `xml:"site"`
	Weather   string `xml:"weather"`
	Equipment string `xml:"equipment"`
	Comments  string `xml:"comments"`
}

type xmlTarget struct {
	ID            string   `xml:"id,attr"`
	Type          string   `xml:"type,attr"`
	Name          string   `xml:"name"`
	Aliases       []string `xml:"alias"`
	RA            xmlValue `xml:"position>ra"`
	Dec           xmlValue `xml:"position>dec"`
	Constellation string   `xml:"constellation"`
}

type xmlScope struct {
	ID            string `xml:"id,attr"`
	Model         string `xml:"model"`
	Type          string `xml:"type"`
	Vendor        string `xml:"vendor"`
	Aperture      string `xml:"aperture"`
	FocalLength   string `xml:"focalLength"`
	Magnification string `xml:"magnification"`
}

type xmlEyepiece struct {
	ID             string   `xml:"id,attr"`
	Model          string   `xml:"model"`
	Vendor         string   `xml:"vendor"`
	FocalLength    string   `xml:"focalLength"`
	MaxFocalLength string   `xml:"maxFocalLength"`
	ApparentFOV    xmlValue `xml:"apparentFOV"`
}

type xmlLens struct {
	ID     string `xml:"id,attr"`
	Model  string `xml:"model"`
	Vendor string `xml:"vendor"`
	Factor string `xml:"factor"`
}

type xmlFilter struct {
	ID      string `xml:"id,attr"`
	Model   string `xml:"model"`
	Vendor  string `xml:"vendor"`
	Type    string `xml:"type"`
	Color   string `xml:"color"`
	Wratten string `xml:"wratten"`
	Schott  string `xml:"schott"`
}

type xmlResult struct {
	Description string `xml:"description"`
}

type xmlObservation struct {
	ID            string      `xml:"id,attr"`
	Site          string      `xml:"site"`
	Session       string      `xml:"session"`
	Target        string      `xml:"target"`
	Begin         string      `xml:"begin"`
	End           string      `xml:"end"`
	FaintestStar  string      `xml:"faintestStar"`
	SkyQuality    xmlValue    `xml:"sky-quality"`
	Seeing        string      `xml:"seeing"`
	Scope         string      `xml:"scope"`
	Eyepiece      string      `xml:"eyepiece"`
	Lens          string      `xml:"lens"`
	Filter        string      `xml:"filter"`
	Magnification string      `xml:"magnification"`
	Results       []xmlResult `xml:"result"`
}

// Decode parses an OAL XML document.
// Unparseable XML, timestamps or numbers are fatal; dangling references are
// left for the importer to report.
func Decode(r io.Reader) (*Document, error) {
	var raw xmlDocument
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	p := &converter{}
	doc := &Document{}

	for _, s := range raw.Sites {
		doc.Sites = append(doc.Sites, Site{
			ID:        s.ID,
			Name:      strings.TrimSpace(s.Name),
			Longitude: p.angle("site "+s.ID+" longitude", s.Longitude),
			Latitude:  p.angle("site "+s.ID+" latitude", s.Latitude),
			Elevation: p.optFloat("site "+s.ID+" elevation", s.Elevation),
			Timezone:  p.optInt("site "+s.ID+" timezone", s.Timezone),
			Code:      strings.TrimSpace(s.Code),
		})
	}
	for _, s := range raw.Scopes {
		doc.Scopes = append(doc.Scopes, Scope{
			ID:            s.ID,
			Model:         strings.TrimSpace(s.Model),
			Vendor:        strings.TrimSpace(s.Vendor),
			Type:          strings.TrimSpace(s.Type),
			Aperture:      p.optFloat("scope "+s.ID+" aperture", s.Aperture),
			FocalLength:   p.optFloat("scope "+s.ID+" focalLength", s.FocalLength),
			Magnification: p.optFloat("scope "+s.ID+" magnification", s.Magnification),
		})
	}
	for _, e := range raw.Eyepieces {
		doc.Eyepieces = append(doc.Eyepieces, Eyepiece{
			ID:             e.ID,
			Model:          strings.TrimSpace(e.Model),
			Vendor:         strings.TrimSpace(e.Vendor),
			FocalLength:    p.optFloat("eyepiece "+e.ID+" focalLength", e.FocalLength),
			MaxFocalLength: p.optFloat("eyepiece "+e.ID+" maxFocalLength", e.MaxFocalLength),
			ApparentFOV:    p.optAngle("eyepiece "+e.ID+" apparentFOV", e.ApparentFOV),
		})
	}
	for _, f := range raw.Filters {
		doc.Filters = append(doc.Filters, Filter{
			ID:      f.ID,
			Model:   strings.TrimSpace(f.Model),
			Vendor:  strings.TrimSpace(f.Vendor),
			Type:    strings.TrimSpace(f.Type),
			Color:   strings.TrimSpace(f.Color),
			Wratten: strings.TrimSpace(f.Wratten),
			Schott:  strings.TrimSpace(f.Schott),
		})
	}
	for _, l := range raw.Lenses {
		doc.Lenses = append(doc.Lenses, Lens{
			ID:     l.ID,
			Model:  strings.TrimSpace(l.Model),
			Vendor: strings.TrimSpace(l.Vendor),
			Factor: p.optFloat("lens "+l.ID+" factor", l.Factor),
		})
	}
	for _, s := range raw.Sessions {
		doc.Sessions = append(doc.Sessions, Session{
			ID:        s.ID,
			Begin:     p.time("session "+s.ID+" begin", s.Begin),
			End:       p.optTime("session "+s.ID+" end", s.End),
			SiteRef:   strings.TrimSpace(s.Site),
			Weather:   strings.TrimSpace(s.Weather),
			Equipment: strings.TrimSpace(s.Equipment),
			Comments:  strings.TrimSpace(s.Comments),
		})
	}
	for _, t := range raw.Targets {
		doc.Targets = append(doc.Targets, Target{
			ID:            t.ID,
			Name:          strings.TrimSpace(t.Name),
			Aliases:       t.Aliases,
			Kind:          strings.TrimSpace(t.Type),
			RA:            p.optAngle("target "+t.ID+" ra", t.RA),
			Dec:           p.optAngle("target "+t.ID+" dec", t.Dec),
			Constellation: strings.TrimSpace(t.Constellation),
		})
	}
	for _, o := range raw.Observations {
		var result []string
		for _, r := range o.Results {
			if d := strings.TrimSpace(r.Description); d != "" {
				result = append(result, d)
			}
		}
		doc.Observations = append(doc.Observations, Observation{
			ID:            o.ID,
			SessionRef:    strings.TrimSpace(o.Session),
			TargetRef:     strings.TrimSpace(o.Target),
			SiteRef:       strings.TrimSpace(o.Site),
			Begin:         p.time("observation "+o.ID+" begin", o.Begin),
			End:           p.optTime("observation "+o.ID+" end", o.End),
			SkyQuality:    p.optFloat("observation "+o.ID+" sky-quality", o.SkyQuality.Value),
			FaintestStar:  p.optFloat("observation "+o.ID+" faintestStar", o.FaintestStar),
			Seeing:        p.optInt("observation "+o.ID+" seeing", o.Seeing),
			ScopeRef:      strings.TrimSpace(o.Scope),
			EyepieceRef:   strings.TrimSpace(o.Eyepiece),
			FilterRef:     strings.TrimSpace(o.Filter),
			LensRef:       strings.TrimSpace(o.Lens),
			Magnification: p.optFloat("observation "+o.ID+" magnification", o.Magnification),
			Result:        strings.Join(result, "\n"),
		})
	}

	if p.err != nil {
		return nil, p.err
	}
	return doc, nil
}

// converter parses scalar values and keeps the first error.
type converter struct {
	err error
}

func (c *converter) fail(field, value string, err error) {
	if c.err == nil {
		c.err = fmt.Errorf("%w: %s: invalid value %q: %v", ErrMalformed, field, value, err)
	}
}

func (c *converter) optFloat(field, s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		c.fail(field, s, err)
		return nil
	}
	return &v
}

func (c *converter) optInt(field, s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		c.fail(field, s, err)
		return nil
	}
	return &v
}

func (c *converter) optAngle(field string, v xmlValue) *float64 {
	f := c.optFloat(field, v.Value)
	if f == nil {
		return nil
	}
	deg, err := toDegrees(*f, v.Unit)
	if err != nil {
		c.fail(field, v.Value, err)
		return nil
	}
	return &deg
}

func (c *converter) angle(field string, v xmlValue) float64 {
	f := c.optAngle(field, v)
	if f == nil {
		c.fail(field, v.Value, errors.New("required"))
		return 0
	}
	return *f
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func (c *converter) optTime(field, s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	c.fail(field, s, errors.New("not an xsd:dateTime"))
	return time.Time{}
}

func (c *converter) time(field, s string) time.Time {
	t := c.optTime(field, s)
	if t.IsZero() && c.err == nil {
		c.fail(field, s, errors.New("required"))
	}
	return t
}

func toDegrees(v float64, unit string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "deg":
		return v, nil
	case "rad":
		return v * 180 / math.Pi, nil
	case "arcmin":
		return v / 60, nil
	case "arcsec":
		return v / 3600, nil
	default:
		return 0, fmt.Errorf("unknown angle unit %q", unit)
	}
}
