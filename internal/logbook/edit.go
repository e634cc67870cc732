package logbook

import (
	"context"
	"fmt"

	"obslog/internal/model"
)

// ListSessions returns the owner's sessions ordered by start date.
func (s *LogbookService) ListSessions(ctx context.Context, ownerID string) ([]*model.ObservingSession, error) {
	sessions, err := s.database.ListSessions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// ListObservations returns the owner's observations ordered by start time.
func (s *LogbookService) ListObservations(ctx context.Context, ownerID string) ([]*model.Observation, error) {
	obs, err := s.database.ListObservations(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing observations: %w", err)
	}
	return obs, nil
}

// EditSession applies a user edit to a session. Once edited, re-imports
// no longer overwrite the session's fields.
func (s *LogbookService) EditSession(ctx context.Context, id, actorID string, edit func(*model.ObservingSession) error) (*model.ObservingSession, error) {
	session, err := s.database.FindSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	release := s.locks.Lock(session.UserID)
	defer release()

	if err := edit(session); err != nil {
		return nil, err
	}
	session.UserEdited = true
	session.UpdateBy = actorID
	session.UpdateDate = s.clock.Now().UTC()
	if err := s.database.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("updating session: %w", err)
	}
	return session, nil
}

// EditObservation applies a user edit to an observation. Once edited,
// re-imports skip the observation with a warning.
func (s *LogbookService) EditObservation(ctx context.Context, id, actorID string, edit func(*model.Observation) error) (*model.Observation, error) {
	obs, err := s.database.FindObservation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding observation: %w", err)
	}
	if obs == nil {
		return nil, fmt.Errorf("%w: %s", ErrObservationNotFound, id)
	}

	release := s.locks.Lock(obs.UserID)
	defer release()

	if err := edit(obs); err != nil {
		return nil, err
	}
	obs.UserEdited = true
	obs.UpdateBy = actorID
	obs.UpdateDate = s.clock.Now().UTC()
	if err := s.database.UpdateObservation(ctx, obs); err != nil {
		return nil, fmt.Errorf("updating observation: %w", err)
	}
	return obs, nil
}
