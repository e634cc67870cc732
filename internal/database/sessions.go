package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"obslog/internal/model"
)

const sessionColumns = `id, title, date_from, date_to, location_id, location_position, weather, equipment, notes,
	seeing, transparency, sqm, faintest_star, user_edited, ` + auditColumns

func (q queries) FindSession(ctx context.Context, id string) (*model.ObservingSession, error) {
	var s model.ObservingSession
	found, err := q.get(ctx, &s, `SELECT `+sessionColumns+` FROM observing_sessions WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("finding session: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &s, nil
}

// FindOverlappingSessions narrows candidates by calendar date in SQL and
// applies the exact interval test on the decoded times.
func (q queries) FindOverlappingSessions(ctx context.Context, userID string, from, to time.Time) ([]*model.ObservingSession, error) {
	var candidates []*model.ObservingSession
	err := q.selectAll(ctx, &candidates, `SELECT `+sessionColumns+` FROM observing_sessions
		WHERE user_id = ? AND substr(date_from, 1, 10) <= ? AND substr(date_to, 1, 10) >= ?`,
		userID, to.UTC().Format(time.DateOnly), from.UTC().Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("finding overlapping sessions: %w", err)
	}

	var out []*model.ObservingSession
	for _, s := range candidates {
		if s.Overlaps(from, to) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DateFrom.Equal(out[j].DateFrom) {
			return out[i].ID < out[j].ID
		}
		return out[i].DateFrom.Before(out[j].DateFrom)
	})
	return out, nil
}

func (q queries) ListSessions(ctx context.Context, userID string) ([]*model.ObservingSession, error) {
	var sessions []*model.ObservingSession
	if err := q.selectAll(ctx, &sessions, `SELECT `+sessionColumns+` FROM observing_sessions
		WHERE user_id = ? ORDER BY date_from, id`, userID); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

func (q queries) CreateSession(ctx context.Context, s *model.ObservingSession) error {
	_, err := q.namedExec(ctx, `INSERT INTO observing_sessions (`+sessionColumns+`)
		VALUES (:id, :title, :date_from, :date_to, :location_id, :location_position, :weather, :equipment, :notes,
			:seeing, :transparency, :sqm, :faintest_star, :user_edited, `+auditValues+`)`, s)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (q queries) UpdateSession(ctx context.Context, s *model.ObservingSession) error {
	res, err := q.namedExec(ctx, `UPDATE observing_sessions SET
			title = :title, date_from = :date_from, date_to = :date_to,
			location_id = :location_id, location_position = :location_position,
			weather = :weather, equipment = :equipment, notes = :notes,
			seeing = :seeing, transparency = :transparency, sqm = :sqm, faintest_star = :faintest_star,
			user_edited = :user_edited, update_by = :update_by, update_date = :update_date
		WHERE id = :id`, s)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	return expectOne(res, "session", s.ID)
}
