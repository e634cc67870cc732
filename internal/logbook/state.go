package logbook

import (
	"time"

	"obslog/internal/model"
	"obslog/internal/oal"
)

// sessionEntry is a session resolved for the current job.
type sessionEntry struct {
	session *model.ObservingSession
	// created is set when this job inserted the session; only then are its
	// environment fields backfilled from observations.
	created bool
	// writable is set when the session's fields may be overwritten.
	writable bool
}

// importState is the job-scoped arena of resolved rows, indexed by the
// external document's local ids. It is discarded when the job ends.
type importState struct {
	ownerID  string
	actorID  string
	recordID string
	now      time.Time
	doc      *oal.Document

	// targetSession is set in single-session mode; every observation goes
	// into targetEntry.
	targetSession *model.ObservingSession
	targetEntry   *sessionEntry

	sites      map[string]oal.Site
	locations  map[string]*model.Location
	positions  map[string]string
	telescopes map[string]*model.Telescope
	eyepieces  map[string]*model.Eyepiece
	filters    map[string]*model.Filter
	lenses     map[string]*model.Lens

	targets         map[string]model.Target
	targetsNotFound map[string]bool

	sessions      map[string]*sessionEntry
	adHocSessions map[string]*sessionEntry // keyed by observation start date

	// claimed holds observation ids already written or skipped by this job.
	claimed map[string]bool
	// reported holds dangling document references already diagnosed.
	reported map[string]bool

	diag  Diagnostics
	stats ImportStats
}

func newImportState(job ImportJob, now time.Time) *importState {
	st := &importState{
		ownerID:         job.OwnerID,
		actorID:         job.ActorID,
		recordID:        job.RecordID,
		now:             now.UTC(),
		doc:             job.Document,
		sites:           make(map[string]oal.Site),
		locations:       make(map[string]*model.Location),
		positions:       make(map[string]string),
		telescopes:      make(map[string]*model.Telescope),
		eyepieces:       make(map[string]*model.Eyepiece),
		filters:         make(map[string]*model.Filter),
		lenses:          make(map[string]*model.Lens),
		targets:         make(map[string]model.Target),
		targetsNotFound: make(map[string]bool),
		sessions:        make(map[string]*sessionEntry),
		adHocSessions:   make(map[string]*sessionEntry),
		claimed:         make(map[string]bool),
		reported:        make(map[string]bool),
	}
	if st.actorID == "" {
		st.actorID = st.ownerID
	}
	return st
}

// newAudit returns the audit columns for a row created by this job.
func (st *importState) newAudit() model.Audit {
	return model.Audit{
		UserID:             st.ownerID,
		ImportHistoryRecID: nullString(st.recordID),
		CreateBy:           st.actorID,
		UpdateBy:           st.actorID,
		CreateDate:         st.now,
		UpdateDate:         st.now,
	}
}

// touch records an import-driven update on an existing row.
func (st *importState) touch(a *model.Audit) {
	a.UpdateBy = st.actorID
	a.UpdateDate = st.now
}

// reportOnce records an error diagnostic the first time key is seen.
func (st *importState) reportOnce(key, format string, args ...any) {
	if st.reported[key] {
		return
	}
	st.reported[key] = true
	st.diag.Errorf(format, args...)
}

// siteLocation returns the location columns for a document site reference.
func (st *importState) siteLocation(siteRef string) (locationID, position string, name string) {
	if loc, ok := st.locations[siteRef]; ok {
		return loc.ID, "", loc.Name
	}
	return "", st.positions[siteRef], ""
}
