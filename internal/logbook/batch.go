package logbook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultBatchSize is the number of observations written per transaction.
const DefaultBatchSize = 500

const beginMaxElapsed = 30 * time.Second

func newBeginBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = beginMaxElapsed
	return bo
}

// batchCommitter owns the job's current transaction. Observations are
// staged into it and committed every size observations; everything the
// resolvers write before the first flush rides along in the first batch.
type batchCommitter struct {
	db     Database
	logger Logger
	size   int

	tx        Tx
	staged    int
	committed int // number of committed batches holding observations
}

func newBatchCommitter(db Database, logger Logger, size int) *batchCommitter {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &batchCommitter{db: db, logger: logger, size: size}
}

// Begin opens a transaction, retrying while the database is busy.
func (b *batchCommitter) Begin(ctx context.Context) error {
	if b.tx != nil {
		return errors.New("transaction already open")
	}
	tx, err := beginTx(ctx, b.db, b.logger)
	if err != nil {
		return err
	}
	b.tx = tx
	return nil
}

// beginTx starts a transaction on db, retrying with exponential backoff
// while the database reports ErrBusy.
func beginTx(ctx context.Context, db Database, logger Logger) (Tx, error) {
	var tx Tx
	err := backoff.Retry(func() error {
		var err error
		tx, err = db.Begin(ctx)
		if err != nil && errors.Is(err, ErrBusy) {
			logger.Debug("database busy, retrying begin", "error", err)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(newBeginBackoff(), ctx))
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Tx returns the open transaction.
func (b *batchCommitter) Tx() Tx {
	return b.tx
}

// Stage counts one written observation and commits the batch once it is full.
func (b *batchCommitter) Stage(ctx context.Context) error {
	b.staged++
	if b.staged < b.size {
		return nil
	}
	if err := b.Flush(); err != nil {
		return err
	}
	return b.Begin(ctx)
}

// Flush commits the open transaction. The transaction is closed afterwards
// whether or not the commit succeeded.
func (b *batchCommitter) Flush() error {
	if b.tx == nil {
		return nil
	}
	tx := b.tx
	b.tx = nil
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("committing batch %d: %w", b.committed+1, err)
	}
	if b.staged > 0 {
		b.committed++
		b.logger.Info("batch committed", "batch", b.committed, "observations", b.staged)
	}
	b.staged = 0
	return nil
}

// Rollback discards the open transaction, if any.
func (b *batchCommitter) Rollback() {
	if b.tx == nil {
		return
	}
	if err := b.tx.Rollback(); err != nil {
		b.logger.Warn("rollback failed", "error", err)
	}
	b.tx = nil
	b.staged = 0
}

// Committed reports how many batches have been committed.
func (b *batchCommitter) Committed() int {
	return b.committed
}
