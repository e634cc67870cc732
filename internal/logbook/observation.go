package logbook

import (
	"context"
	"database/sql"
	"fmt"

	"obslog/internal/model"
	"obslog/internal/oal"
)

// mergeObservations writes every document observation into the logbook,
// committing a batch each time the committer fills up.
func (r *run) mergeObservations(ctx context.Context) error {
	for _, obs := range r.st.doc.Observations {
		if err := ctx.Err(); err != nil {
			return err
		}
		written, err := r.mergeObservation(ctx, obs)
		if err != nil {
			return fmt.Errorf("observation %q: %w", obs.ID, err)
		}
		if !written {
			r.st.stats.ObservationsSkipped++
			continue
		}
		if err := r.batch.Stage(ctx); err != nil {
			return err
		}
	}
	return nil
}

// mergeObservation creates or updates the row for one external observation.
// It reports false when the observation was skipped.
func (r *run) mergeObservation(ctx context.Context, obs oal.Observation) (bool, error) {
	target, ok := r.st.targets[obs.TargetRef]
	if !ok {
		if !r.st.targetsNotFound[obs.TargetRef] {
			r.st.reportOnce("target:"+obs.TargetRef, "observation %q references unknown target %q", obs.ID, obs.TargetRef)
		}
		return false, nil
	}

	entry, err := r.observationSession(ctx, obs)
	if err != nil {
		return false, err
	}
	session := entry.session

	existing, err := r.findExistingObservation(ctx, session, target, obs)
	if err != nil {
		return false, err
	}

	if existing != nil {
		r.st.claimed[existing.ID] = true
		if !existing.Pristine() {
			r.st.diag.Warnf("observation of %q at %s was edited, keeping the logbook version",
				obs.TargetRef, obs.Begin.UTC().Format("2006-01-02 15:04"))
			return false, nil
		}
		r.applyObservation(existing, obs, session, target)
		r.st.touch(&existing.Audit)
		if err := r.tx().UpdateObservation(ctx, existing); err != nil {
			return false, fmt.Errorf("updating: %w", err)
		}
		r.st.stats.ObservationsUpdated++
	} else {
		o := &model.Observation{
			ID:    r.idgen.New(),
			Audit: r.st.newAudit(),
		}
		r.applyObservation(o, obs, session, target)
		if err := r.tx().CreateObservation(ctx, o); err != nil {
			return false, fmt.Errorf("creating: %w", err)
		}
		r.st.claimed[o.ID] = true
		r.st.stats.ObservationsCreated++
	}

	if err := r.backfillSession(ctx, entry, obs); err != nil {
		return false, err
	}
	return true, nil
}

// observationSession picks the session an observation belongs to.
func (r *run) observationSession(ctx context.Context, obs oal.Observation) (*sessionEntry, error) {
	if r.st.targetEntry != nil {
		return r.st.targetEntry, nil
	}
	if obs.SessionRef != "" {
		if entry, ok := r.st.sessions[obs.SessionRef]; ok {
			return entry, nil
		}
		r.st.reportOnce("session:"+obs.SessionRef, "observation %q references unknown session %q", obs.ID, obs.SessionRef)
	}
	return r.adHocSession(ctx, obs)
}

// findExistingObservation looks for a row this observation should update:
// the same target in the target session in single-session mode, otherwise
// the owner's observation of the same target at the same start time. Rows
// already claimed by this job are never matched twice.
func (r *run) findExistingObservation(ctx context.Context, session *model.ObservingSession, target model.Target, obs oal.Observation) (*model.Observation, error) {
	var (
		found []*model.Observation
		err   error
	)
	if r.st.targetSession != nil {
		found, err = r.tx().FindSessionObservationsOfTarget(ctx, session.ID, target)
	} else {
		found, err = r.tx().FindObservationsOfTargetAt(ctx, r.st.ownerID, target, obs.Begin.UTC())
	}
	if err != nil {
		return nil, fmt.Errorf("finding existing observation: %w", err)
	}
	for _, o := range found {
		if !r.st.claimed[o.ID] {
			return o, nil
		}
	}
	return nil, nil
}

// applyObservation copies the external observation's fields onto o.
func (r *run) applyObservation(o *model.Observation, obs oal.Observation, session *model.ObservingSession, target model.Target) {
	what := fmt.Sprintf("observation %q", obs.ID)

	o.SessionID = nullString(session.ID)
	o.TargetType = target.Type
	o.DeepSkyObjectIDs = nil
	o.DoubleStarID = nullString("")
	if target.Type == model.TargetTypeDoubleStar {
		o.DoubleStarID = nullString(target.DoubleStarID)
	} else {
		o.DeepSkyObjectIDs = append([]string(nil), target.DeepSkyObjectIDs...)
	}
	o.DateFrom = obs.Begin.UTC()
	o.DateTo = nullTime(obs.End)

	if obs.SiteRef != "" {
		locID, pos := r.observationLocation(obs.SiteRef, what)
		o.LocationID = nullString(locID)
		o.LocationPosition = nullString(pos)
	} else {
		o.LocationID = session.LocationID
		o.LocationPosition = session.LocationPosition
	}

	o.SQM = nullFloat(obs.SkyQuality)
	o.FaintestStar = nullFloat(obs.FaintestStar)
	o.Seeing = nullInt(obs.Seeing)
	o.Magnification = nullFloat(obs.Magnification)
	o.Notes = obs.Result

	o.TelescopeID = lookupRef(r, "scope", obs.ScopeRef, what, r.st.telescopes, func(t *model.Telescope) string { return t.ID })
	o.EyepieceID = lookupRef(r, "eyepiece", obs.EyepieceRef, what, r.st.eyepieces, func(e *model.Eyepiece) string { return e.ID })
	o.FilterID = lookupRef(r, "filter", obs.FilterRef, what, r.st.filters, func(f *model.Filter) string { return f.ID })
	o.LensID = lookupRef(r, "lens", obs.LensRef, what, r.st.lenses, func(l *model.Lens) string { return l.ID })
}

// lookupRef maps a document equipment reference to a row id, reporting
// dangling references once.
func lookupRef[T any](r *run, kind, ref, what string, items map[string]T, id func(T) string) sql.NullString {
	if ref == "" {
		return sql.NullString{}
	}
	item, ok := items[ref]
	if !ok {
		r.st.reportOnce(kind+":"+ref, "%s references unknown %s %q", what, kind, ref)
		return sql.NullString{}
	}
	return nullString(id(item))
}

// backfillSession fills environment fields of a session created by this
// job from the first observation that supplies them.
func (r *run) backfillSession(ctx context.Context, entry *sessionEntry, obs oal.Observation) error {
	if !entry.created {
		return nil
	}
	s := entry.session
	changed := false
	if !s.SQM.Valid && obs.SkyQuality != nil {
		s.SQM = nullFloat(obs.SkyQuality)
		changed = true
	}
	if !s.FaintestStar.Valid && obs.FaintestStar != nil {
		s.FaintestStar = nullFloat(obs.FaintestStar)
		changed = true
	}
	if !s.Seeing.Valid && obs.Seeing != nil {
		s.Seeing = nullInt(obs.Seeing)
		changed = true
	}
	if !changed {
		return nil
	}
	if err := r.tx().UpdateSession(ctx, s); err != nil {
		return fmt.Errorf("updating session %q: %w", s.ID, err)
	}
	return nil
}
