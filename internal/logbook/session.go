package logbook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"obslog/internal/model"
	"obslog/internal/oal"
)

// ErrSessionNotFound is returned when a target session does not exist or
// belongs to another user.
var ErrSessionNotFound = errors.New("session not found")

const dateLayout = "2006-01-02"

// loadTargetSession fetches the session a single-session import writes into.
func (r *run) loadTargetSession(ctx context.Context, id string) error {
	s, err := r.tx().FindSession(ctx, id)
	if err != nil {
		return fmt.Errorf("finding target session: %w", err)
	}
	if s == nil || s.UserID != r.st.ownerID {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	r.st.targetSession = s
	return nil
}

// resolveSessions maps the document's sessions onto the owner's sessions.
func (r *run) resolveSessions(ctx context.Context) error {
	if r.st.targetSession != nil {
		r.resolveIntoTargetSession()
		return nil
	}
	for _, ext := range r.st.doc.Sessions {
		entry, err := r.matchOrCreateSession(ctx, ext)
		if err != nil {
			return err
		}
		r.st.sessions[ext.ID] = entry
	}
	return nil
}

// resolveIntoTargetSession reuses the target session as is for every
// observation. Document sessions are not used.
func (r *run) resolveIntoTargetSession() {
	target := r.st.targetSession
	r.st.targetEntry = &sessionEntry{session: target}
	r.st.stats.SessionsKept++
	for _, ext := range r.st.doc.Sessions {
		r.logger.Info("document session ignored", "session", ext.ID, "target", target.ID)
	}
}

// matchOrCreateSession finds an existing session of the owner overlapping
// the external session's window. A pristine match is overwritten, an
// edited one is reused as is, and without a match a new session is created.
func (r *run) matchOrCreateSession(ctx context.Context, ext oal.Session) (*sessionEntry, error) {
	from, to := ext.Window()
	existing, err := r.findOverlappingSession(ctx, from, to)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if !existing.Pristine() {
			r.st.diag.Warnf("session %q was changed in the logbook, keeping its details", existing.Title)
			r.st.stats.SessionsKept++
			return &sessionEntry{session: existing}, nil
		}
		r.applySession(existing, ext)
		if err := r.tx().UpdateSession(ctx, existing); err != nil {
			return nil, fmt.Errorf("updating session %q: %w", existing.ID, err)
		}
		r.st.stats.SessionsUpdated++
		return &sessionEntry{session: existing, writable: true}, nil
	}

	s := &model.ObservingSession{
		ID:    r.idgen.New(),
		Audit: r.st.newAudit(),
	}
	r.applySession(s, ext)
	s.Title = r.sessionTitle(ext.SiteRef, from)
	if err := r.tx().CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("creating session for %q: %w", ext.ID, err)
	}
	r.st.stats.SessionsCreated++
	return &sessionEntry{session: s, created: true, writable: true}, nil
}

func (r *run) findOverlappingSession(ctx context.Context, from, to time.Time) (*model.ObservingSession, error) {
	sessions, err := r.tx().FindOverlappingSessions(ctx, r.st.ownerID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("finding overlapping sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}

// applySession copies the external session's fields onto s.
func (r *run) applySession(s *model.ObservingSession, ext oal.Session) {
	from, to := ext.Window()
	s.DateFrom = from.UTC()
	s.DateTo = to.UTC()
	locID, pos := r.observationLocation(ext.SiteRef, fmt.Sprintf("session %q", ext.ID))
	s.LocationID = nullString(locID)
	s.LocationPosition = nullString(pos)
	s.Weather = ext.Weather
	s.Equipment = ext.Equipment
	s.Notes = ext.Comments
	r.st.touch(&s.Audit)
}

// sessionTitle names a new session after its location and start date.
func (r *run) sessionTitle(siteRef string, from time.Time) string {
	date := from.Format(dateLayout)
	if _, _, name := r.st.siteLocation(siteRef); name != "" {
		return name + " " + date
	}
	return date
}

// adHocSession returns the session grouping observations without a session
// reference: one per distinct start date. The session's window grows to
// cover each observation that joins it.
func (r *run) adHocSession(ctx context.Context, obs oal.Observation) (*sessionEntry, error) {
	begin := obs.Begin.UTC()
	end := begin
	if !obs.End.IsZero() && obs.End.After(obs.Begin) {
		end = obs.End.UTC()
	}
	date := obs.Begin.Format(dateLayout)

	if entry, ok := r.st.adHocSessions[date]; ok {
		if err := r.widenSession(ctx, entry, begin, end); err != nil {
			return nil, err
		}
		return entry, nil
	}

	existing, err := r.findOverlappingSession(ctx, begin, end)
	if err != nil {
		return nil, err
	}
	var entry *sessionEntry
	switch {
	case existing != nil && existing.Pristine():
		entry = &sessionEntry{session: existing, writable: true}
	case existing != nil:
		entry = &sessionEntry{session: existing}
	default:
		locID, pos := r.observationLocation(obs.SiteRef, fmt.Sprintf("observation %q", obs.ID))
		s := &model.ObservingSession{
			ID:               r.idgen.New(),
			Title:            r.sessionTitle(obs.SiteRef, begin),
			DateFrom:         begin,
			DateTo:           end,
			LocationID:       nullString(locID),
			LocationPosition: nullString(pos),
			Audit:            r.st.newAudit(),
		}
		if err := r.tx().CreateSession(ctx, s); err != nil {
			return nil, fmt.Errorf("creating session for %s: %w", date, err)
		}
		r.st.stats.SessionsCreated++
		entry = &sessionEntry{session: s, created: true, writable: true}
	}
	r.st.adHocSessions[date] = entry
	if err := r.widenSession(ctx, entry, begin, end); err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *run) widenSession(ctx context.Context, entry *sessionEntry, begin, end time.Time) error {
	if !entry.writable {
		return nil
	}
	s := entry.session
	changed := false
	if begin.Before(s.DateFrom) {
		s.DateFrom = begin
		changed = true
	}
	if end.After(s.DateTo) {
		s.DateTo = end
		changed = true
	}
	if !changed {
		return nil
	}
	r.st.touch(&s.Audit)
	if err := r.tx().UpdateSession(ctx, s); err != nil {
		return fmt.Errorf("widening session %q: %w", s.ID, err)
	}
	return nil
}
