package logbook_test

import (
	"context"
	"testing"
	"time"

	"obslog/internal/database"
	"obslog/internal/logbook"
	"obslog/internal/model"
	"obslog/internal/oal"
	"obslog/internal/testutil"
)

const owner = "owner-1"

// fixture is a seeded logbook with an importer over it.
type fixture struct {
	db       *database.SQLiteDatabase
	clock    *testutil.StubClock
	idgen    *testutil.StubIDGenerator
	importer *logbook.Importer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	testutil.SeedCatalog(t, db)
	clock := testutil.FixedClock()
	idgen := testutil.NewStubIDGenerator()
	return &fixture{
		db:       db,
		clock:    clock,
		idgen:    idgen,
		importer: logbook.NewImporter(db, logbook.NewNopLogger(), clock, idgen, 0),
	}
}

// record creates an import history record for owner.
func (f *fixture) record(t *testing.T, id string) {
	t.Helper()
	now := f.clock.Now()
	rec := &model.ImportHistoryRecord{
		ID:        id,
		OwnerID:   owner,
		Kind:      model.ImportKindObservations,
		Status:    model.ImportStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.db.CreateImportHistory(context.Background(), rec); err != nil {
		t.Fatalf("CreateImportHistory() error = %v", err)
	}
}

// run imports doc under a new record and fails the test on error.
func (f *fixture) run(t *testing.T, recordID string, doc *oal.Document) *logbook.ImportResult {
	t.Helper()
	return f.runJob(t, logbook.ImportJob{OwnerID: owner, RecordID: recordID, Document: doc})
}

func (f *fixture) runJob(t *testing.T, job logbook.ImportJob) *logbook.ImportResult {
	t.Helper()
	f.record(t, job.RecordID)
	res, err := f.importer.Import(context.Background(), job)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	f.clock.Advance(time.Hour)
	return res
}

func (f *fixture) observations(t *testing.T) []*model.Observation {
	t.Helper()
	obs, err := f.db.ListObservations(context.Background(), owner)
	if err != nil {
		t.Fatalf("ListObservations() error = %v", err)
	}
	return obs
}

func (f *fixture) sessions(t *testing.T) []*model.ObservingSession {
	t.Helper()
	sessions, err := f.db.ListSessions(context.Background(), owner)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	return sessions
}

// nightDocument is one session at a named site with observations of three
// catalogued objects.
func nightDocument() *oal.Document {
	return testutil.NewDocument().
		Site("site_1", "Backyard", 48.1, 11.5).
		Scope("sc_1", "Dobson 8", "GSO", 203).
		Session("se_1", "site_1", testutil.Night(0, 19, 0), testutil.Night(1, 3, 0)).
		DeepSky("t_m31", "M 31").
		DeepSky("t_m42", "Orion Nebula").
		DoubleStar("t_alb", "Albireo").
		Observe("obs_1", "se_1", "t_m31", testutil.Night(0, 20, 0)).
		With(func(o *oal.Observation) {
			o.ScopeRef = "sc_1"
			sqm := 21.2
			o.SkyQuality = &sqm
		}).
		Observe("obs_2", "se_1", "t_m42", testutil.Night(0, 21, 30)).
		Observe("obs_3", "se_1", "t_alb", testutil.Night(0, 23, 15)).
		Build()
}
