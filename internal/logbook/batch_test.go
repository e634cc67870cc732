package logbook

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// stubTx records commits and rollbacks. Query methods are not used.
type stubTx struct {
	Tx
	db *stubDB
}

func (tx *stubTx) Commit() error {
	tx.db.commits++
	return tx.db.commitErr
}

func (tx *stubTx) Rollback() error {
	tx.db.rollbacks++
	return nil
}

// stubDB fails Begin with ErrBusy busy times before succeeding.
type stubDB struct {
	Database
	busy      int
	beginErr  error
	begins    int
	commits   int
	rollbacks int
	commitErr error
}

func (db *stubDB) Begin(context.Context) (Tx, error) {
	db.begins++
	if db.beginErr != nil {
		return nil, db.beginErr
	}
	if db.begins <= db.busy {
		return nil, fmt.Errorf("database is locked: %w", ErrBusy)
	}
	return &stubTx{db: db}, nil
}

func TestBeginTx_RetriesWhileBusy(t *testing.T) {
	db := &stubDB{busy: 2}
	tx, err := beginTx(context.Background(), db, NewNopLogger())
	if err != nil {
		t.Fatalf("beginTx() error = %v", err)
	}
	if tx == nil {
		t.Fatal("beginTx() returned nil transaction")
	}
	if db.begins != 3 {
		t.Errorf("Begin called %d times, want 3", db.begins)
	}
}

func TestBeginTx_OtherErrorsAreFinal(t *testing.T) {
	boom := errors.New("disk full")
	db := &stubDB{beginErr: boom}
	if _, err := beginTx(context.Background(), db, NewNopLogger()); !errors.Is(err, boom) {
		t.Fatalf("beginTx() error = %v, want %v", err, boom)
	}
	if db.begins != 1 {
		t.Errorf("Begin called %d times, want 1", db.begins)
	}
}

func TestBeginTx_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	db := &stubDB{busy: 1 << 30}
	if _, err := beginTx(ctx, db, NewNopLogger()); err == nil {
		t.Fatal("beginTx() with cancelled context expected error")
	}
}

func TestBatchCommitter(t *testing.T) {
	ctx := context.Background()

	t.Run("commits every size observations", func(t *testing.T) {
		db := &stubDB{}
		b := newBatchCommitter(db, NewNopLogger(), 2)
		if err := b.Begin(ctx); err != nil {
			t.Fatalf("Begin() error = %v", err)
		}
		for i := range 5 {
			if err := b.Stage(ctx); err != nil {
				t.Fatalf("Stage() %d error = %v", i, err)
			}
		}
		if err := b.Flush(); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}
		if b.Committed() != 3 || db.commits != 3 {
			t.Errorf("Committed() = %d with %d commits, want 3 and 3", b.Committed(), db.commits)
		}
		if b.Tx() != nil {
			t.Error("transaction still open after Flush")
		}
	})

	t.Run("empty flush is not a batch", func(t *testing.T) {
		db := &stubDB{}
		b := newBatchCommitter(db, NewNopLogger(), 2)
		if err := b.Begin(ctx); err != nil {
			t.Fatalf("Begin() error = %v", err)
		}
		if err := b.Flush(); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}
		if b.Committed() != 0 || db.commits != 1 {
			t.Errorf("Committed() = %d with %d commits, want 0 and 1", b.Committed(), db.commits)
		}
	})

	t.Run("failed commit rolls back", func(t *testing.T) {
		db := &stubDB{commitErr: errors.New("disk I/O error")}
		b := newBatchCommitter(db, NewNopLogger(), 10)
		if err := b.Begin(ctx); err != nil {
			t.Fatalf("Begin() error = %v", err)
		}
		if err := b.Stage(ctx); err != nil {
			t.Fatalf("Stage() error = %v", err)
		}
		if err := b.Flush(); err == nil {
			t.Fatal("Flush() expected error")
		}
		if db.rollbacks != 1 || b.Committed() != 0 {
			t.Errorf("rollbacks = %d, Committed() = %d; want 1 and 0", db.rollbacks, b.Committed())
		}
	})

	t.Run("begin twice", func(t *testing.T) {
		b := newBatchCommitter(&stubDB{}, NewNopLogger(), 0)
		if err := b.Begin(ctx); err != nil {
			t.Fatalf("Begin() error = %v", err)
		}
		if err := b.Begin(ctx); err == nil {
			t.Error("second Begin() expected error")
		}
		b.Rollback()
		if b.Tx() != nil {
			t.Error("transaction still open after Rollback")
		}
	})
}
