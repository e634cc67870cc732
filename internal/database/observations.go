package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"obslog/internal/model"
)

const observationColumns = `o.id, o.session_id, o.target_type, o.double_star_id, o.date_from, o.date_to,
	o.location_id, o.location_position, o.sqm, o.faintest_star, o.seeing,
	o.telescope_id, o.eyepiece_id, o.filter_id, o.lens_id, o.magnification, o.notes, o.user_edited,
	o.user_id, o.import_history_rec_id, o.create_by, o.update_by, o.create_date, o.update_date`

// dsoLoadChunk bounds the number of bind variables per observation_dsos query.
const dsoLoadChunk = 500

func (q queries) FindObservation(ctx context.Context, id string) (*model.Observation, error) {
	var o model.Observation
	found, err := q.get(ctx, &o, `SELECT `+observationColumns+` FROM observations o WHERE o.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("finding observation: %w", err)
	}
	if !found {
		return nil, nil
	}
	if err := q.loadDeepSkyObjects(ctx, []*model.Observation{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// targetFilter restricts a query on observations o to those of target,
// matching deep-sky targets on their primary object.
func targetFilter(target model.Target) (string, []any) {
	if target.Type == model.TargetTypeDoubleStar {
		return `o.target_type = 'DBL_STAR' AND o.double_star_id = ?`, []any{target.DoubleStarID}
	}
	return `o.target_type = 'DSO' AND EXISTS (SELECT 1 FROM observation_dsos od
		WHERE od.observation_id = o.id AND od.position = 0 AND od.deep_sky_object_id = ?)`, []any{target.Key()}
}

func (q queries) FindSessionObservationsOfTarget(ctx context.Context, sessionID string, target model.Target) ([]*model.Observation, error) {
	filter, args := targetFilter(target)
	return q.listObservations(ctx, `WHERE o.session_id = ? AND `+filter, append([]any{sessionID}, args...)...)
}

func (q queries) FindObservationsOfTargetAt(ctx context.Context, userID string, target model.Target, at time.Time) ([]*model.Observation, error) {
	filter, args := targetFilter(target)
	return q.listObservations(ctx, `WHERE o.user_id = ? AND o.date_from = ? AND `+filter,
		append([]any{userID, at.UTC()}, args...)...)
}

func (q queries) ListObservations(ctx context.Context, userID string) ([]*model.Observation, error) {
	return q.listObservations(ctx, `WHERE o.user_id = ?`, userID)
}

func (q queries) listObservations(ctx context.Context, where string, args ...any) ([]*model.Observation, error) {
	var obs []*model.Observation
	if err := q.selectAll(ctx, &obs, `SELECT `+observationColumns+` FROM observations o `+where+`
		ORDER BY o.date_from, o.id`, args...); err != nil {
		return nil, fmt.Errorf("listing observations: %w", err)
	}
	if err := q.loadDeepSkyObjects(ctx, obs); err != nil {
		return nil, err
	}
	return obs, nil
}

// loadDeepSkyObjects fills DeepSkyObjectIDs of DSO observations in position order.
func (q queries) loadDeepSkyObjects(ctx context.Context, obs []*model.Observation) error {
	byID := make(map[string]*model.Observation)
	var ids []string
	for _, o := range obs {
		if o.TargetType == model.TargetTypeDSO {
			byID[o.ID] = o
			ids = append(ids, o.ID)
		}
	}

	for start := 0; start < len(ids); start += dsoLoadChunk {
		end := min(start+dsoLoadChunk, len(ids))
		query, args, err := sqlx.In(`SELECT observation_id, deep_sky_object_id FROM observation_dsos
			WHERE observation_id IN (?) ORDER BY observation_id, position`, ids[start:end])
		if err != nil {
			return fmt.Errorf("building deep-sky object query: %w", err)
		}
		var rows []struct {
			ObservationID   string `db:"observation_id"`
			DeepSkyObjectID string `db:"deep_sky_object_id"`
		}
		if err := q.selectAll(ctx, &rows, q.ext.Rebind(query), args...); err != nil {
			return fmt.Errorf("loading deep-sky objects: %w", err)
		}
		for _, r := range rows {
			o := byID[r.ObservationID]
			o.DeepSkyObjectIDs = append(o.DeepSkyObjectIDs, r.DeepSkyObjectID)
		}
	}
	return nil
}

const observationInsertColumns = `id, session_id, target_type, double_star_id, date_from, date_to,
	location_id, location_position, sqm, faintest_star, seeing,
	telescope_id, eyepiece_id, filter_id, lens_id, magnification, notes, user_edited, ` + auditColumns

func (q queries) CreateObservation(ctx context.Context, o *model.Observation) error {
	_, err := q.namedExec(ctx, `INSERT INTO observations (`+observationInsertColumns+`)
		VALUES (:id, :session_id, :target_type, :double_star_id, :date_from, :date_to,
			:location_id, :location_position, :sqm, :faintest_star, :seeing,
			:telescope_id, :eyepiece_id, :filter_id, :lens_id, :magnification, :notes, :user_edited, `+auditValues+`)`, o)
	if err != nil {
		return fmt.Errorf("inserting observation: %w", err)
	}
	return q.writeDeepSkyObjects(ctx, o)
}

func (q queries) UpdateObservation(ctx context.Context, o *model.Observation) error {
	res, err := q.namedExec(ctx, `UPDATE observations SET
			session_id = :session_id, target_type = :target_type, double_star_id = :double_star_id,
			date_from = :date_from, date_to = :date_to,
			location_id = :location_id, location_position = :location_position,
			sqm = :sqm, faintest_star = :faintest_star, seeing = :seeing,
			telescope_id = :telescope_id, eyepiece_id = :eyepiece_id, filter_id = :filter_id, lens_id = :lens_id,
			magnification = :magnification, notes = :notes, user_edited = :user_edited,
			update_by = :update_by, update_date = :update_date
		WHERE id = :id`, o)
	if err != nil {
		return fmt.Errorf("updating observation: %w", err)
	}
	if err := expectOne(res, "observation", o.ID); err != nil {
		return err
	}
	if _, err := q.exec(ctx, `DELETE FROM observation_dsos WHERE observation_id = ?`, o.ID); err != nil {
		return fmt.Errorf("clearing deep-sky objects: %w", err)
	}
	return q.writeDeepSkyObjects(ctx, o)
}

func (q queries) writeDeepSkyObjects(ctx context.Context, o *model.Observation) error {
	if o.TargetType != model.TargetTypeDSO {
		return nil
	}
	for i, id := range o.DeepSkyObjectIDs {
		if _, err := q.exec(ctx, `INSERT OR IGNORE INTO observation_dsos (observation_id, deep_sky_object_id, position)
			VALUES (?, ?, ?)`, o.ID, id, i); err != nil {
			return fmt.Errorf("linking deep-sky object %s: %w", id, err)
		}
	}
	return nil
}
