package logbook_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"obslog/internal/archive"
	"obslog/internal/catalog"
	"obslog/internal/database"
	"obslog/internal/logbook"
	"obslog/internal/model"
	"obslog/internal/testutil"
)

const sampleLog = `<?xml version="1.0" encoding="UTF-8"?>
<oal:observations xmlns:oal="http://groups.google.com/group/openastronomylog" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" version="2.1">
  <sites>
    <site id="site_1"><name>Backyard</name><longitude unit="deg">11.5</longitude><latitude unit="deg">48.1</latitude></site>
  </sites>
  <sessions>
    <session id="se_1"><begin>2024-03-14T19:00:00Z</begin><end>2024-03-15T03:00:00Z</end><site>site_1</site></session>
  </sessions>
  <targets>
    <target id="t_1" xsi:type="oal:deepSkyGX"><name>M 31</name></target>
  </targets>
  <observation id="obs_1">
    <site>site_1</site>
    <session>se_1</session>
    <target>t_1</target>
    <begin>2024-03-14T20:00:00Z</begin>
    <result><description>Dust lane.</description></result>
  </observation>
</oal:observations>
`

type serviceFixture struct {
	db      *database.SQLiteDatabase
	archive *archive.MemoryArchive
	queue   logbook.ImportQueue
	enc     logbook.Encryptor
	clock   *testutil.StubClock
	svc     *logbook.LogbookService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		db:      testutil.NewTestDatabase(t),
		archive: testutil.NewTestArchive(),
		queue:   testutil.NewTestQueue(),
		enc:     testutil.NewTestEncryptor(),
		clock:   testutil.FixedClock(),
	}
	testutil.SeedCatalog(t, f.db)
	f.svc = f.newService(f.archive)
	return f
}

func (f *serviceFixture) newService(a logbook.DocumentArchive) *logbook.LogbookService {
	return logbook.NewLogbookService(f.db, a, f.queue, f.enc, logbook.NewNopLogger(), f.clock,
		testutil.NewPrefixedIDGenerator("svc"), logbook.ServiceOptions{})
}

func (f *serviceFixture) submit(t *testing.T, doc string, encrypt bool) *model.ImportHistoryRecord {
	t.Helper()
	rec, err := f.svc.SubmitImport(context.Background(), logbook.ImportSubmission{
		OwnerID:  owner,
		Document: strings.NewReader(doc),
		Encrypt:  encrypt,
	})
	if err != nil {
		t.Fatalf("SubmitImport() error = %v", err)
	}
	return rec
}

func (f *serviceFixture) process(t *testing.T, decryptCtx logbook.DecryptionContext) int {
	t.Helper()
	n, err := f.svc.ProcessQueue(context.Background(), decryptCtx)
	if err != nil {
		t.Fatalf("ProcessQueue() error = %v", err)
	}
	return n
}

func (f *serviceFixture) importRecord(t *testing.T, id string) *model.ImportHistoryRecord {
	t.Helper()
	rec, err := f.db.FindImportHistory(context.Background(), id)
	if err != nil {
		t.Fatalf("FindImportHistory() error = %v", err)
	}
	if rec == nil {
		t.Fatalf("import record %s not found", id)
	}
	return rec
}

func TestLogbookService_SubmitAndProcess(t *testing.T) {
	f := newServiceFixture(t)
	rec := f.submit(t, sampleLog, false)

	if rec.Status != model.ImportStatusProcessing || rec.Kind != model.ImportKindObservations {
		t.Errorf("submitted record = %s/%s, want PROCESSING/OBSERVATIONS", rec.Status, rec.Kind)
	}
	if ok, _ := f.queue.Contains(rec.ID); !ok {
		t.Error("request not queued after submit")
	}
	if f.archive.Len() != 1 {
		t.Errorf("archive holds %d documents, want 1", f.archive.Len())
	}

	if n := f.process(t, nil); n != 1 {
		t.Errorf("ProcessQueue() = %d, want 1", n)
	}

	got := f.importRecord(t, rec.ID)
	if got.Status != model.ImportStatusImported || got.Outcome != model.OutcomeSuccess {
		t.Errorf("record = %s/%s, want IMPORTED/SUCCESS\n%s", got.Status, got.Outcome, got.Log)
	}
	if !strings.Contains(got.Log, "Observations: 1 created") {
		t.Errorf("record log missing stats:\n%s", got.Log)
	}
	if n, _ := f.queue.Count(); n != 0 {
		t.Errorf("queue holds %d requests, want 0", n)
	}

	obs, err := f.svc.ListObservations(context.Background(), owner)
	if err != nil {
		t.Fatalf("ListObservations() error = %v", err)
	}
	if len(obs) != 1 || obs[0].Notes != "Dust lane." || obs[0].ImportHistoryRecID.String != rec.ID {
		t.Errorf("observations = %+v, want one tagged with %s", obs, rec.ID)
	}
}

func TestLogbookService_SubmitRequiresOwner(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.SubmitImport(context.Background(), logbook.ImportSubmission{Document: strings.NewReader(sampleLog)})
	if err == nil {
		t.Fatal("SubmitImport() without owner expected error")
	}
}

func TestLogbookService_EncryptedImport(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	rec := f.submit(t, sampleLog, true)

	var stored strings.Builder
	if err := f.archive.GetDocument(ctx, rec.ID, &stored); err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if stored.String() == sampleLog {
		t.Error("archived document stored in plaintext")
	}

	_, err := f.svc.ProcessQueue(ctx, nil)
	if !errors.Is(err, logbook.ErrLocked) {
		t.Fatalf("ProcessQueue() without key error = %v, want ErrLocked", err)
	}
	if ok, _ := f.queue.Contains(rec.ID); !ok {
		t.Fatal("locked request was dropped from the queue")
	}
	if got := f.importRecord(t, rec.ID); got.Status != model.ImportStatusProcessing {
		t.Errorf("record Status = %s, want PROCESSING while locked", got.Status)
	}

	decryptCtx, err := f.enc.Unlock("")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if n := f.process(t, decryptCtx); n != 1 {
		t.Errorf("ProcessQueue() = %d, want 1", n)
	}
	if got := f.importRecord(t, rec.ID); got.Status != model.ImportStatusImported {
		t.Errorf("record Status = %s, want IMPORTED\n%s", got.Status, got.Log)
	}
}

func TestLogbookService_EncryptionNotConfigured(t *testing.T) {
	f := newServiceFixture(t)
	f.enc = nil
	f.svc = f.newService(f.archive)

	_, err := f.svc.SubmitImport(context.Background(), logbook.ImportSubmission{
		OwnerID:  owner,
		Document: strings.NewReader(sampleLog),
		Encrypt:  true,
	})
	if err == nil {
		t.Fatal("SubmitImport() expected error without an encryptor")
	}
	history, err := f.svc.GetHistory(context.Background(), owner, 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 1 || history[0].Status != model.ImportStatusFailed {
		t.Errorf("history = %+v, want one FAILED record", history)
	}
	if n, _ := f.queue.Count(); n != 0 {
		t.Errorf("queue holds %d requests, want 0", n)
	}
}

func TestLogbookService_MalformedDocument(t *testing.T) {
	f := newServiceFixture(t)
	rec := f.submit(t, "<observations><site", false)

	if n := f.process(t, nil); n != 1 {
		t.Errorf("ProcessQueue() = %d, want 1", n)
	}
	got := f.importRecord(t, rec.ID)
	if got.Status != model.ImportStatusFailed || got.Outcome != model.OutcomeFailed {
		t.Errorf("record = %s/%s, want FAILED/FAILED", got.Status, got.Outcome)
	}
	if !strings.Contains(got.Log, "parsing document") {
		t.Errorf("record log = %q, want parse failure", got.Log)
	}
}

func TestLogbookService_DeleteImport(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	rec := f.submit(t, sampleLog, false)
	f.process(t, nil)

	deleted, err := f.svc.DeleteImport(ctx, rec.ID)
	if err != nil {
		t.Fatalf("DeleteImport() error = %v", err)
	}
	want := logbook.DeletedRows{Observations: 1, Sessions: 1, Locations: 1}
	if *deleted != want {
		t.Errorf("DeleteImport() = %+v, want %+v", *deleted, want)
	}
	if got := f.importRecord(t, rec.ID); got.Status != model.ImportStatusDeleted {
		t.Errorf("record Status = %s, want DELETED", got.Status)
	}
	if obs, _ := f.svc.ListObservations(ctx, owner); len(obs) != 0 {
		t.Errorf("got %d observations after delete, want 0", len(obs))
	}
	if sessions, _ := f.svc.ListSessions(ctx, owner); len(sessions) != 0 {
		t.Errorf("got %d sessions after delete, want 0", len(sessions))
	}
	if f.archive.Len() != 0 {
		t.Errorf("archive holds %d documents after delete, want 0", f.archive.Len())
	}

	if _, err := f.svc.DeleteImport(ctx, rec.ID); !errors.Is(err, logbook.ErrRecordNotFound) {
		t.Errorf("second DeleteImport() error = %v, want ErrRecordNotFound", err)
	}
}

func TestLogbookService_DeleteKeepsRowsOfEarlierImports(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	first := f.submit(t, sampleLog, false)
	f.process(t, nil)
	second := f.submit(t, sampleLog, false)
	f.process(t, nil)

	// The second import only updated rows of the first one.
	deleted, err := f.svc.DeleteImport(ctx, second.ID)
	if err != nil {
		t.Fatalf("DeleteImport() error = %v", err)
	}
	if deleted.Observations != 0 || deleted.Sessions != 0 {
		t.Errorf("DeleteImport() = %+v, want nothing removed", *deleted)
	}
	if obs, _ := f.svc.ListObservations(ctx, owner); len(obs) != 1 || obs[0].ImportHistoryRecID.String != first.ID {
		t.Errorf("observations after delete = %+v, want the row of %s kept", obs, first.ID)
	}
}

// deletingArchive marks the import record deleted when its document is fetched.
type deletingArchive struct {
	logbook.DocumentArchive
	db *database.SQLiteDatabase
}

func (a *deletingArchive) GetDocument(ctx context.Context, key string, w io.Writer) error {
	rec, err := a.db.FindImportHistory(ctx, key)
	if err != nil {
		return err
	}
	rec.Status = model.ImportStatusDeleted
	if err := a.db.UpdateImportHistory(ctx, rec); err != nil {
		return err
	}
	return a.DocumentArchive.GetDocument(ctx, key, w)
}

func TestLogbookService_RecordDeletedDuringImport(t *testing.T) {
	f := newServiceFixture(t)
	rec := f.submit(t, sampleLog, false)
	f.svc = f.newService(&deletingArchive{DocumentArchive: f.archive, db: f.db})

	if n := f.process(t, nil); n != 1 {
		t.Errorf("ProcessQueue() = %d, want 1", n)
	}
	got := f.importRecord(t, rec.ID)
	if got.Status != model.ImportStatusDeleted {
		t.Errorf("record Status = %s, want DELETED", got.Status)
	}
	if got.Log != "" {
		t.Errorf("record Log = %q, want discarded", got.Log)
	}
}

func TestLogbookService_DropsRequestsOfDeletedRecords(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	rec := f.submit(t, sampleLog, false)
	if _, err := f.svc.DeleteImport(ctx, rec.ID); err != nil {
		t.Fatalf("DeleteImport() error = %v", err)
	}

	if n := f.process(t, nil); n != 1 {
		t.Errorf("ProcessQueue() = %d, want 1", n)
	}
	if n, _ := f.queue.Count(); n != 0 {
		t.Errorf("queue holds %d requests, want 0", n)
	}
	if obs, _ := f.svc.ListObservations(ctx, owner); len(obs) != 0 {
		t.Errorf("got %d observations, want 0", len(obs))
	}
}

func TestLogbookService_SessionPlan(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	now := f.clock.Now()
	plan := &model.ObservingSession{
		ID:       "plan-1",
		Title:    "Andromeda night",
		DateFrom: testutil.Night(0, 18, 0),
		DateTo:   testutil.Night(1, 4, 0),
		Audit:    model.Audit{UserID: owner, CreateBy: owner, UpdateBy: owner, CreateDate: now, UpdateDate: now},
	}
	if err := f.db.CreateSession(ctx, plan); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	rec, err := f.svc.SubmitImport(ctx, logbook.ImportSubmission{
		OwnerID:         owner,
		TargetSessionID: plan.ID,
		Document:        strings.NewReader(sampleLog),
	})
	if err != nil {
		t.Fatalf("SubmitImport() error = %v", err)
	}
	if rec.Kind != model.ImportKindSessionPlan {
		t.Errorf("Kind = %s, want SESSION_PLAN", rec.Kind)
	}
	f.process(t, nil)

	obs, _ := f.svc.ListObservations(ctx, owner)
	if len(obs) != 1 || obs[0].SessionID.String != plan.ID {
		t.Errorf("observations = %+v, want one in %s", obs, plan.ID)
	}
}

func TestLogbookService_Edits(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.submit(t, sampleLog, false)
	f.process(t, nil)

	sessions, _ := f.svc.ListSessions(ctx, owner)
	session, err := f.svc.EditSession(ctx, sessions[0].ID, "editor-1", func(s *model.ObservingSession) error {
		s.Title = "First light"
		return nil
	})
	if err != nil {
		t.Fatalf("EditSession() error = %v", err)
	}
	if !session.UserEdited || session.UpdateBy != "editor-1" {
		t.Errorf("edited session = %+v, want UserEdited by editor-1", session)
	}

	obs, _ := f.svc.ListObservations(ctx, owner)
	if _, err := f.svc.EditObservation(ctx, obs[0].ID, owner, func(o *model.Observation) error {
		o.Notes = "Dust lane and M 32."
		return nil
	}); err != nil {
		t.Fatalf("EditObservation() error = %v", err)
	}

	rec := f.submit(t, sampleLog, false)
	f.process(t, nil)

	got := f.importRecord(t, rec.ID)
	if got.Outcome != model.OutcomeSuccess || !strings.Contains(got.Log, "Warnings:") {
		t.Errorf("re-import record = %s\n%s\nwant SUCCESS with warnings", got.Outcome, got.Log)
	}
	sessions, _ = f.svc.ListSessions(ctx, owner)
	if sessions[0].Title != "First light" {
		t.Errorf("session Title = %q, want edit kept", sessions[0].Title)
	}
	obs, _ = f.svc.ListObservations(ctx, owner)
	if obs[0].Notes != "Dust lane and M 32." {
		t.Errorf("observation Notes = %q, want edit kept", obs[0].Notes)
	}

	t.Run("unknown ids", func(t *testing.T) {
		noop := func(*model.ObservingSession) error { return nil }
		if _, err := f.svc.EditSession(ctx, "missing", owner, noop); !errors.Is(err, logbook.ErrSessionNotFound) {
			t.Errorf("EditSession() error = %v, want ErrSessionNotFound", err)
		}
		if _, err := f.svc.EditObservation(ctx, "missing", owner, func(*model.Observation) error { return nil }); !errors.Is(err, logbook.ErrObservationNotFound) {
			t.Errorf("EditObservation() error = %v, want ErrObservationNotFound", err)
		}
	})

	t.Run("edit error aborts", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := f.svc.EditSession(ctx, sessions[0].ID, owner, func(*model.ObservingSession) error { return boom })
		if !errors.Is(err, boom) {
			t.Errorf("EditSession() error = %v, want %v", err, boom)
		}
	})
}

func TestLogbookService_History(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	first := f.submit(t, sampleLog, false)
	f.clock.Advance(time.Minute)
	second := f.submit(t, sampleLog, false)

	history, err := f.svc.GetHistory(ctx, owner, 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 2 || history[0].ID != second.ID || history[1].ID != first.ID {
		t.Errorf("GetHistory() = %+v, want newest first", history)
	}

	if history, _ := f.svc.GetHistory(ctx, owner, 1); len(history) != 1 {
		t.Errorf("GetHistory(limit 1) returned %d records", len(history))
	}
	if history, _ := f.svc.GetHistory(ctx, "someone-else", 10); len(history) != 0 {
		t.Errorf("GetHistory() of another owner returned %d records", len(history))
	}

	if _, err := f.svc.GetImport(ctx, "missing"); !errors.Is(err, logbook.ErrRecordNotFound) {
		t.Errorf("GetImport() error = %v, want ErrRecordNotFound", err)
	}
}

func TestLogbookService_Catalogue(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	dso, err := f.svc.AddDeepSkyObject(ctx, "NGC 7331", "GX", "Peg", []string{"Deer Lick Galaxy", "ngc7331"})
	if err != nil {
		t.Fatalf("AddDeepSkyObject() error = %v", err)
	}
	if dso.SearchKey != "NGC7331" {
		t.Errorf("SearchKey = %q, want NGC7331", dso.SearchKey)
	}
	found, err := f.db.FindDeepSkyObjectsByKey(ctx, catalog.Normalize("Deer Lick Galaxy"))
	if err != nil {
		t.Fatalf("FindDeepSkyObjectsByKey() error = %v", err)
	}
	if len(found) != 1 || found[0].ID != dso.ID {
		t.Errorf("alias lookup = %+v, want %s", found, dso.ID)
	}

	ds, err := f.svc.AddDoubleStar(ctx, "Almach", "STF 205", "And")
	if err != nil {
		t.Fatalf("AddDoubleStar() error = %v", err)
	}
	stars, err := f.db.FindDoubleStarsByName(ctx, "stf 205")
	if err != nil {
		t.Fatalf("FindDoubleStarsByName() error = %v", err)
	}
	if len(stars) != 1 || stars[0].ID != ds.ID {
		t.Errorf("WDS lookup = %+v, want %s", stars, ds.ID)
	}

	if _, err := f.svc.AddDeepSkyObject(ctx, "  ", "GX", "", nil); err == nil {
		t.Error("AddDeepSkyObject() with blank name expected error")
	}
	if _, err := f.svc.AddDoubleStar(ctx, "", "STF 1", ""); err == nil {
		t.Error("AddDoubleStar() with blank name expected error")
	}
}
