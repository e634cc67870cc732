package logbook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"obslog/internal/model"
	"obslog/internal/oal"
)

var (
	// ErrRecordNotFound is returned for import records that do not exist or were deleted.
	ErrRecordNotFound = errors.New("import record not found")
	// ErrObservationNotFound is returned by EditObservation for unknown ids.
	ErrObservationNotFound = errors.New("observation not found")
	// ErrLocked is returned when an encrypted document is processed without a DecryptionContext.
	ErrLocked = errors.New("document is encrypted and no decryption key is unlocked")
)

// DefaultImportTimeout bounds one import job.
const DefaultImportTimeout = time.Hour

// ServiceOptions tune the import pipeline.
type ServiceOptions struct {
	BatchSize int
	Timeout   time.Duration
}

// LogbookService is the orchestration layer that coordinates the database,
// document archive, queue and importer to perform the operations needed by the CLI.
type LogbookService struct {
	database  Database
	archive   DocumentArchive
	queue     ImportQueue
	encryptor Encryptor
	logger    Logger
	clock     Clock
	idgen     IDGenerator
	importer  *Importer
	timeout   time.Duration
	locks     *ownerLocks
}

// NewLogbookService creates a new LogbookService with the provided dependencies.
// encryptor may be nil when archived documents are stored in plaintext.
func NewLogbookService(database Database, archive DocumentArchive, queue ImportQueue, encryptor Encryptor, logger Logger, clock Clock, idgen IDGenerator, opts ServiceOptions) *LogbookService {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultImportTimeout
	}
	return &LogbookService{
		database:  database,
		archive:   archive,
		queue:     queue,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
		importer:  NewImporter(database, logger, clock, idgen, opts.BatchSize),
		timeout:   opts.Timeout,
		locks:     newOwnerLocks(),
	}
}

// ImportSubmission describes a document handed in for import.
type ImportSubmission struct {
	OwnerID         string
	ActorID         string
	TargetSessionID string
	Document        io.Reader
	// Encrypt stores the archived document encrypted with the configured key.
	Encrypt bool
}

// SubmitImport records a new import, archives its document and queues it.
// The import itself runs later in ProcessQueue; the returned record is in
// status PROCESSING.
func (s *LogbookService) SubmitImport(ctx context.Context, sub ImportSubmission) (*model.ImportHistoryRecord, error) {
	if sub.OwnerID == "" {
		return nil, errors.New("owner is required")
	}
	if sub.ActorID == "" {
		sub.ActorID = sub.OwnerID
	}

	now := s.clock.Now().UTC()
	kind := model.ImportKindObservations
	if sub.TargetSessionID != "" {
		kind = model.ImportKindSessionPlan
	}
	rec := &model.ImportHistoryRecord{
		ID:        s.idgen.New(),
		OwnerID:   sub.OwnerID,
		Kind:      kind,
		Status:    model.ImportStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.database.CreateImportHistory(ctx, rec); err != nil {
		return nil, fmt.Errorf("creating import record: %w", err)
	}

	var buf bytes.Buffer
	if sub.Encrypt {
		if s.encryptor == nil || !s.encryptor.IsConfigured() {
			return nil, s.failSubmission(ctx, rec, errors.New("encryption is not configured"))
		}
		if err := s.encryptor.Encrypt(sub.Document, &buf); err != nil {
			return nil, s.failSubmission(ctx, rec, fmt.Errorf("encrypting document: %w", err))
		}
	} else if _, err := io.Copy(&buf, sub.Document); err != nil {
		return nil, s.failSubmission(ctx, rec, fmt.Errorf("reading document: %w", err))
	}

	if err := s.archive.PutDocument(ctx, rec.ID, &buf, int64(buf.Len())); err != nil {
		return nil, s.failSubmission(ctx, rec, fmt.Errorf("archiving document: %w", err))
	}

	req := ImportRequest{
		RecordID:        rec.ID,
		OwnerID:         sub.OwnerID,
		ActorID:         sub.ActorID,
		DocumentKey:     rec.ID,
		TargetSessionID: sub.TargetSessionID,
		Encrypted:       sub.Encrypt,
		SubmittedAt:     now,
	}
	if err := s.queue.Enqueue(req); err != nil {
		return nil, s.failSubmission(ctx, rec, fmt.Errorf("queueing import: %w", err))
	}

	s.logger.Info("import submitted", "record", rec.ID, "owner", rec.OwnerID, "encrypted", sub.Encrypt)
	return rec, nil
}

// failSubmission marks a record whose submission could not complete and returns cause.
func (s *LogbookService) failSubmission(ctx context.Context, rec *model.ImportHistoryRecord, cause error) error {
	rec.Status = model.ImportStatusFailed
	rec.Outcome = model.OutcomeFailed
	rec.Log = fmt.Sprintf("Outcome: %s\nFailure: %v\n", model.OutcomeFailed, cause)
	rec.UpdatedAt = s.clock.Now().UTC()
	if err := s.database.UpdateImportHistory(ctx, rec); err != nil {
		s.logger.Error("failed to record submission failure", "record", rec.ID, "error", err)
	}
	return cause
}

// ProcessQueue runs queued imports until the queue is empty. decryptCtx is
// required for encrypted documents; pass nil when none are expected.
// Requests whose record was deleted are dropped. Returns the number of
// requests processed.
func (s *LogbookService) ProcessQueue(ctx context.Context, decryptCtx DecryptionContext) (int, error) {
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		n, err := s.queue.Count()
		if err != nil {
			return count, fmt.Errorf("checking import queue: %w", err)
		}
		if n == 0 {
			break
		}

		err = s.queue.ProcessNext(func(req ImportRequest) error {
			_, err := s.RunImport(ctx, req, decryptCtx)
			if errors.Is(err, ErrRecordNotFound) {
				s.logger.Warn("dropping request for deleted import", "record", req.RecordID)
				return nil
			}
			return err
		})
		if err != nil {
			return count, fmt.Errorf("processing import: %w", err)
		}
		count++
	}
	return count, nil
}

// RunImport executes one import request and records its outcome on the
// import record. Failures of the import itself (unparseable document,
// failed batch) are reported in the result and on the record; the returned
// error is reserved for failures that prevented recording an outcome.
func (s *LogbookService) RunImport(ctx context.Context, req ImportRequest, decryptCtx DecryptionContext) (*ImportResult, error) {
	release := s.locks.Lock(req.OwnerID)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec, err := s.database.FindImportHistory(ctx, req.RecordID)
	if err != nil {
		return nil, fmt.Errorf("finding import record: %w", err)
	}
	if rec == nil || rec.Status == model.ImportStatusDeleted {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, req.RecordID)
	}
	if req.Encrypted && decryptCtx == nil {
		return nil, ErrLocked
	}

	s.logger.Info("import started", "record", rec.ID, "owner", req.OwnerID)

	var res *ImportResult
	doc, err := s.loadDocument(ctx, req, decryptCtx)
	if err != nil {
		res = &ImportResult{Outcome: model.OutcomeFailed, Failure: err.Error()}
	} else {
		res, _ = s.importer.Import(ctx, ImportJob{
			OwnerID:         req.OwnerID,
			ActorID:         req.ActorID,
			RecordID:        rec.ID,
			Document:        doc,
			TargetSessionID: req.TargetSessionID,
		})
	}

	// The job context may have expired; the outcome is recorded regardless.
	if err := s.finalize(context.WithoutCancel(ctx), rec.ID, res); err != nil {
		return res, err
	}
	return res, nil
}

// loadDocument fetches, decrypts and parses the archived document.
func (s *LogbookService) loadDocument(ctx context.Context, req ImportRequest, decryptCtx DecryptionContext) (*oal.Document, error) {
	var raw bytes.Buffer
	if err := s.archive.GetDocument(ctx, req.DocumentKey, &raw); err != nil {
		return nil, fmt.Errorf("fetching document: %w", err)
	}

	var plain io.Reader = &raw
	if req.Encrypted {
		var dec bytes.Buffer
		if err := decryptCtx.Decrypt(&raw, &dec); err != nil {
			return nil, fmt.Errorf("decrypting document: %w", err)
		}
		plain = &dec
	}

	doc, err := oal.Decode(plain)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return doc, nil
}

// finalize stores the outcome on the import record. A record that was
// deleted while the job ran keeps its deleted state and the log is discarded.
func (s *LogbookService) finalize(ctx context.Context, recordID string, res *ImportResult) error {
	rec, err := s.database.FindImportHistory(ctx, recordID)
	if err != nil {
		return fmt.Errorf("re-reading import record: %w", err)
	}
	if rec == nil || rec.Status == model.ImportStatusDeleted {
		s.logger.Warn("import record deleted during import, discarding log", "record", recordID)
		return nil
	}

	rec.Status = model.ImportStatusImported
	if res.Failure != "" {
		rec.Status = model.ImportStatusFailed
	}
	rec.Outcome = res.Outcome
	rec.Log = res.Log()
	rec.UpdatedAt = s.clock.Now().UTC()
	if err := s.database.UpdateImportHistory(ctx, rec); err != nil {
		return fmt.Errorf("updating import record: %w", err)
	}
	return nil
}

// DeleteImport rolls back an import: the sessions and observations it
// created are removed along with locations and equipment it created that
// nothing references any more, and the record is marked DELETED.
func (s *LogbookService) DeleteImport(ctx context.Context, recordID string) (*DeletedRows, error) {
	rec, err := s.database.FindImportHistory(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("finding import record: %w", err)
	}
	if rec == nil || rec.Status == model.ImportStatusDeleted {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
	}

	release := s.locks.Lock(rec.OwnerID)
	defer release()

	tx, err := beginTx(ctx, s.database, s.logger)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	deleted, err := tx.DeleteImportedRows(ctx, rec.ID)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("deleting imported rows: %w", err)
	}
	rec.Status = model.ImportStatusDeleted
	rec.UpdatedAt = s.clock.Now().UTC()
	if err := tx.UpdateImportHistory(ctx, rec); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("updating import record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing delete: %w", err)
	}

	if err := s.archive.DeleteDocument(ctx, rec.ID); err != nil {
		s.logger.Warn("failed to delete archived document", "record", rec.ID, "error", err)
	}

	s.logger.Info("import deleted",
		"record", rec.ID,
		"observations", deleted.Observations,
		"sessions", deleted.Sessions,
		"locations", deleted.Locations,
		"equipment", deleted.Equipment)
	return deleted, nil
}
