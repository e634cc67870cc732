package database

import (
	"context"
	"fmt"

	"obslog/internal/model"
)

const auditColumns = `user_id, import_history_rec_id, create_by, update_by, create_date, update_date`
const auditValues = `:user_id, :import_history_rec_id, :create_by, :update_by, :create_date, :update_date`

const locationColumns = `id, name, longitude, latitude, elevation, time_zone, iau_code, ` + auditColumns

func (q queries) FindLocationByName(ctx context.Context, userID, name string) (*model.Location, error) {
	var loc model.Location
	found, err := q.get(ctx, &loc, `SELECT `+locationColumns+` FROM locations
		WHERE user_id = ? AND name = ? ORDER BY create_date, id LIMIT 1`, userID, name)
	if err != nil {
		return nil, fmt.Errorf("finding location: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &loc, nil
}

func (q queries) CreateLocation(ctx context.Context, loc *model.Location) error {
	_, err := q.namedExec(ctx, `INSERT INTO locations (`+locationColumns+`)
		VALUES (:id, :name, :longitude, :latitude, :elevation, :time_zone, :iau_code, `+auditValues+`)`, loc)
	if err != nil {
		return fmt.Errorf("inserting location: %w", err)
	}
	return nil
}

const telescopeColumns = `id, name, vendor, model, type, aperture_mm, focal_length_mm, fixed_magnification, ` + auditColumns

func (q queries) ListTelescopes(ctx context.Context, userID string) ([]*model.Telescope, error) {
	var items []*model.Telescope
	if err := q.selectAll(ctx, &items, `SELECT `+telescopeColumns+` FROM telescopes
		WHERE user_id = ? ORDER BY create_date, id`, userID); err != nil {
		return nil, fmt.Errorf("listing telescopes: %w", err)
	}
	return items, nil
}

func (q queries) CreateTelescope(ctx context.Context, t *model.Telescope) error {
	_, err := q.namedExec(ctx, `INSERT INTO telescopes (`+telescopeColumns+`)
		VALUES (:id, :name, :vendor, :model, :type, :aperture_mm, :focal_length_mm, :fixed_magnification, `+auditValues+`)`, t)
	if err != nil {
		return fmt.Errorf("inserting telescope: %w", err)
	}
	return nil
}

const eyepieceColumns = `id, name, vendor, model, focal_length_mm, max_focal_length_mm, apparent_fov_deg, ` + auditColumns

func (q queries) ListEyepieces(ctx context.Context, userID string) ([]*model.Eyepiece, error) {
	var items []*model.Eyepiece
	if err := q.selectAll(ctx, &items, `SELECT `+eyepieceColumns+` FROM eyepieces
		WHERE user_id = ? ORDER BY create_date, id`, userID); err != nil {
		return nil, fmt.Errorf("listing eyepieces: %w", err)
	}
	return items, nil
}

func (q queries) CreateEyepiece(ctx context.Context, e *model.Eyepiece) error {
	_, err := q.namedExec(ctx, `INSERT INTO eyepieces (`+eyepieceColumns+`)
		VALUES (:id, :name, :vendor, :model, :focal_length_mm, :max_focal_length_mm, :apparent_fov_deg, `+auditValues+`)`, e)
	if err != nil {
		return fmt.Errorf("inserting eyepiece: %w", err)
	}
	return nil
}

const filterColumns = `id, name, vendor, model, type, color, wratten, schott, ` + auditColumns

func (q queries) ListFilters(ctx context.Context, userID string) ([]*model.Filter, error) {
	var items []*model.Filter
	if err := q.selectAll(ctx, &items, `SELECT `+filterColumns+` FROM filters
		WHERE user_id = ? ORDER BY create_date, id`, userID); err != nil {
		return nil, fmt.Errorf("listing filters: %w", err)
	}
	return items, nil
}

func (q queries) CreateFilter(ctx context.Context, f *model.Filter) error {
	_, err := q.namedExec(ctx, `INSERT INTO filters (`+filterColumns+`)
		VALUES (:id, :name, :vendor, :model, :type, :color, :wratten, :schott, `+auditValues+`)`, f)
	if err != nil {
		return fmt.Errorf("inserting filter: %w", err)
	}
	return nil
}

const lensColumns = `id, name, vendor, model, factor, ` + auditColumns

func (q queries) ListLenses(ctx context.Context, userID string) ([]*model.Lens, error) {
	var items []*model.Lens
	if err := q.selectAll(ctx, &items, `SELECT `+lensColumns+` FROM lenses
		WHERE user_id = ? ORDER BY create_date, id`, userID); err != nil {
		return nil, fmt.Errorf("listing lenses: %w", err)
	}
	return items, nil
}

func (q queries) CreateLens(ctx context.Context, l *model.Lens) error {
	_, err := q.namedExec(ctx, `INSERT INTO lenses (`+lensColumns+`)
		VALUES (:id, :name, :vendor, :model, :factor, `+auditValues+`)`, l)
	if err != nil {
		return fmt.Errorf("inserting lens: %w", err)
	}
	return nil
}
