package logbook

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"obslog/internal/model"
)

// narrowString keeps the items whose attribute equals want, ignoring case.
// A blank want leaves items unchanged.
func narrowString[T any](items []T, want string, get func(T) sql.NullString) []T {
	want = strings.TrimSpace(want)
	if want == "" {
		return items
	}
	var out []T
	for _, it := range items {
		if v := get(it); v.Valid && strings.EqualFold(strings.TrimSpace(v.String), want) {
			out = append(out, it)
		}
	}
	return out
}

// narrowFloat keeps the items whose attribute equals *want. A nil want
// leaves items unchanged.
func narrowFloat[T any](items []T, want *float64, get func(T) sql.NullFloat64) []T {
	if want == nil {
		return items
	}
	var out []T
	for _, it := range items {
		if v := get(it); v.Valid && v.Float64 == *want {
			out = append(out, it)
		}
	}
	return out
}

func first[T any](items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[0], true
}

// equipmentCache holds the owner's equipment lists, loaded once per job
// and extended as the job creates items.
type equipmentCache struct {
	telescopes []*model.Telescope
	eyepieces  []*model.Eyepiece
	filters    []*model.Filter
	lenses     []*model.Lens
}

func (r *run) loadEquipment(ctx context.Context) error {
	var err error
	q, owner := r.tx(), r.st.ownerID
	if r.equipment.telescopes, err = q.ListTelescopes(ctx, owner); err != nil {
		return fmt.Errorf("listing telescopes: %w", err)
	}
	if r.equipment.eyepieces, err = q.ListEyepieces(ctx, owner); err != nil {
		return fmt.Errorf("listing eyepieces: %w", err)
	}
	if r.equipment.filters, err = q.ListFilters(ctx, owner); err != nil {
		return fmt.Errorf("listing filters: %w", err)
	}
	if r.equipment.lenses, err = q.ListLenses(ctx, owner); err != nil {
		return fmt.Errorf("listing lenses: %w", err)
	}
	return nil
}

// resolveEquipment maps every scope, eyepiece, filter and lens of the
// document to an existing item of the owner, creating items that have no match.
func (r *run) resolveEquipment(ctx context.Context) error {
	if err := r.loadEquipment(ctx); err != nil {
		return err
	}
	for _, s := range r.st.doc.Scopes {
		c := r.equipment.telescopes
		c = narrowString(c, s.Model, func(t *model.Telescope) sql.NullString { return t.Model })
		c = narrowString(c, s.Vendor, func(t *model.Telescope) sql.NullString { return t.Vendor })
		c = narrowString(c, s.Type, func(t *model.Telescope) sql.NullString { return t.Type })
		c = narrowFloat(c, s.Aperture, func(t *model.Telescope) sql.NullFloat64 { return t.ApertureMM })
		c = narrowFloat(c, s.FocalLength, func(t *model.Telescope) sql.NullFloat64 { return t.FocalLengthMM })
		c = narrowFloat(c, s.Magnification, func(t *model.Telescope) sql.NullFloat64 { return t.FixedMagnification })
		if t, ok := first(c); ok {
			r.st.telescopes[s.ID] = t
			continue
		}
		t := &model.Telescope{
			ID:                 r.idgen.New(),
			Name:               s.ID,
			Vendor:             nullString(s.Vendor),
			Model:              nullString(s.Model),
			Type:               nullString(s.Type),
			ApertureMM:         nullFloat(s.Aperture),
			FocalLengthMM:      nullFloat(s.FocalLength),
			FixedMagnification: nullFloat(s.Magnification),
			Audit:              r.st.newAudit(),
		}
		if err := r.tx().CreateTelescope(ctx, t); err != nil {
			return fmt.Errorf("creating telescope %q: %w", s.ID, err)
		}
		r.equipment.telescopes = append(r.equipment.telescopes, t)
		r.st.telescopes[s.ID] = t
		r.st.stats.EquipmentCreated++
	}

	for _, e := range r.st.doc.Eyepieces {
		c := r.equipment.eyepieces
		c = narrowString(c, e.Model, func(x *model.Eyepiece) sql.NullString { return x.Model })
		c = narrowString(c, e.Vendor, func(x *model.Eyepiece) sql.NullString { return x.Vendor })
		c = narrowFloat(c, e.FocalLength, func(x *model.Eyepiece) sql.NullFloat64 { return x.FocalLengthMM })
		c = narrowFloat(c, e.MaxFocalLength, func(x *model.Eyepiece) sql.NullFloat64 { return x.MaxFocalLengthMM })
		c = narrowFloat(c, e.ApparentFOV, func(x *model.Eyepiece) sql.NullFloat64 { return x.ApparentFOVDeg })
		if x, ok := first(c); ok {
			r.st.eyepieces[e.ID] = x
			continue
		}
		x := &model.Eyepiece{
			ID:               r.idgen.New(),
			Name:             e.ID,
			Vendor:           nullString(e.Vendor),
			Model:            nullString(e.Model),
			FocalLengthMM:    nullFloat(e.FocalLength),
			MaxFocalLengthMM: nullFloat(e.MaxFocalLength),
			ApparentFOVDeg:   nullFloat(e.ApparentFOV),
			Audit:            r.st.newAudit(),
		}
		if err := r.tx().CreateEyepiece(ctx, x); err != nil {
			return fmt.Errorf("creating eyepiece %q: %w", e.ID, err)
		}
		r.equipment.eyepieces = append(r.equipment.eyepieces, x)
		r.st.eyepieces[e.ID] = x
		r.st.stats.EquipmentCreated++
	}

	for _, f := range r.st.doc.Filters {
		c := r.equipment.filters
		c = narrowString(c, f.Model, func(x *model.Filter) sql.NullString { return x.Model })
		c = narrowString(c, f.Vendor, func(x *model.Filter) sql.NullString { return x.Vendor })
		c = narrowString(c, f.Type, func(x *model.Filter) sql.NullString { return x.Type })
		c = narrowString(c, f.Color, func(x *model.Filter) sql.NullString { return x.Color })
		c = narrowString(c, f.Wratten, func(x *model.Filter) sql.NullString { return x.Wratten })
		c = narrowString(c, f.Schott, func(x *model.Filter) sql.NullString { return x.Schott })
		if x, ok := first(c); ok {
			r.st.filters[f.ID] = x
			continue
		}
		x := &model.Filter{
			ID:      r.idgen.New(),
			Name:    f.ID,
			Vendor:  nullString(f.Vendor),
			Model:   nullString(f.Model),
			Type:    nullString(f.Type),
			Color:   nullString(f.Color),
			Wratten: nullString(f.Wratten),
			Schott:  nullString(f.Schott),
			Audit:   r.st.newAudit(),
		}
		if err := r.tx().CreateFilter(ctx, x); err != nil {
			return fmt.Errorf("creating filter %q: %w", f.ID, err)
		}
		r.equipment.filters = append(r.equipment.filters, x)
		r.st.filters[f.ID] = x
		r.st.stats.EquipmentCreated++
	}

	for _, l := range r.st.doc.Lenses {
		c := r.equipment.lenses
		c = narrowString(c, l.Model, func(x *model.Lens) sql.NullString { return x.Model })
		c = narrowString(c, l.Vendor, func(x *model.Lens) sql.NullString { return x.Vendor })
		c = narrowFloat(c, l.Factor, func(x *model.Lens) sql.NullFloat64 { return x.Factor })
		if x, ok := first(c); ok {
			r.st.lenses[l.ID] = x
			continue
		}
		x := &model.Lens{
			ID:     r.idgen.New(),
			Name:   l.ID,
			Vendor: nullString(l.Vendor),
			Model:  nullString(l.Model),
			Factor: nullFloat(l.Factor),
			Audit:  r.st.newAudit(),
		}
		if err := r.tx().CreateLens(ctx, x); err != nil {
			return fmt.Errorf("creating lens %q: %w", l.ID, err)
		}
		r.equipment.lenses = append(r.equipment.lenses, x)
		r.st.lenses[l.ID] = x
		r.st.stats.EquipmentCreated++
	}
	return nil
}
