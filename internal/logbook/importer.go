package logbook

import (
	"context"
	"errors"
	"fmt"

	"obslog/internal/model"
	"obslog/internal/oal"
)

// ImportJob is one import of a parsed document into an owner's logbook.
type ImportJob struct {
	OwnerID  string
	ActorID  string // user performing the import; defaults to OwnerID
	RecordID string // ImportHistoryRecord every created row is tagged with
	Document *oal.Document
	// TargetSessionID selects single-session mode: every observation is
	// imported into this existing session.
	TargetSessionID string
}

// Importer reconciles external observation documents with the logbook.
type Importer struct {
	db        Database
	logger    Logger
	clock     Clock
	idgen     IDGenerator
	batchSize int
}

// NewImporter creates an Importer. A batchSize of zero or less uses DefaultBatchSize.
func NewImporter(db Database, logger Logger, clock Clock, idgen IDGenerator, batchSize int) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Importer{
		db:        db,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
		batchSize: batchSize,
	}
}

// run is the state of one Import call.
type run struct {
	*Importer
	st        *importState
	batch     *batchCommitter
	equipment equipmentCache
}

func (r *run) tx() Queries {
	return r.batch.Tx()
}

// Import runs the job. The returned result is never nil; when the job stops
// early the error is also returned and recorded in result.Failure. Batches
// committed before a failure stay committed, and re-running the same job
// picks up where it stopped without duplicating rows.
func (im *Importer) Import(ctx context.Context, job ImportJob) (*ImportResult, error) {
	r := &run{
		Importer: im,
		st:       newImportState(job, im.clock.Now()),
		batch:    newBatchCommitter(im.db, im.logger, im.batchSize),
	}

	err := r.execute(ctx, job)
	if err != nil {
		r.batch.Rollback()
		im.logger.Error("import failed", "record", job.RecordID, "batches", r.batch.Committed(), "error", err)
	}
	res := r.result(err)
	im.logger.Info("import finished",
		"record", job.RecordID,
		"outcome", res.Outcome,
		"created", res.Stats.ObservationsCreated,
		"updated", res.Stats.ObservationsUpdated,
		"skipped", res.Stats.ObservationsSkipped,
		"errors", len(res.Errors),
		"warnings", len(res.Warnings))
	return res, err
}

func (r *run) execute(ctx context.Context, job ImportJob) error {
	if job.Document == nil {
		return errors.New("no document")
	}
	if job.OwnerID == "" {
		return errors.New("no owner")
	}
	if err := r.batch.Begin(ctx); err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if job.TargetSessionID != "" {
		if err := r.loadTargetSession(ctx, job.TargetSessionID); err != nil {
			return err
		}
	}

	if err := r.resolveLocations(ctx); err != nil {
		return err
	}
	if err := r.resolveEquipment(ctx); err != nil {
		return err
	}
	if err := r.resolveTargets(ctx); err != nil {
		return err
	}
	if err := r.resolveSessions(ctx); err != nil {
		return err
	}
	if err := r.mergeObservations(ctx); err != nil {
		return err
	}
	return r.batch.Flush()
}

func (r *run) result(err error) *ImportResult {
	res := &ImportResult{
		Diagnostics: r.st.diag,
		Stats:       r.st.stats,
	}
	res.Stats.Batches = r.batch.Committed()
	switch {
	case err != nil && res.Stats.Batches > 0:
		res.Outcome = model.OutcomePartial
	case err != nil:
		res.Outcome = model.OutcomeFailed
	case len(res.Errors) > 0:
		res.Outcome = model.OutcomePartial
	default:
		res.Outcome = model.OutcomeSuccess
	}
	if err != nil {
		res.Failure = err.Error()
	}
	return res
}
