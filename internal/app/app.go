package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"obslog/internal/archive"
	"obslog/internal/config"
	"obslog/internal/database"
	"obslog/internal/encryption"
	"obslog/internal/logbook"
	"obslog/internal/model"
	"obslog/internal/queue"
)

// Options adjust how an ObslogApp logs.
type Options struct {
	// Verbose enables debug log lines.
	Verbose bool
	// Console receives log lines besides the log file. Defaults to os.Stderr.
	Console io.Writer
}

// ObslogApp is the application layer between the CLI and LogbookService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw paths and flags, and releases resources on Close.
type ObslogApp struct {
	cfg       *config.Config
	db        logbook.Database
	archive   logbook.DocumentArchive
	queue     logbook.ImportQueue
	encryptor logbook.Encryptor
	logger    logbook.Logger
	service   *logbook.LogbookService
	op        *Operation
	logFile   *os.File
}

// NewObslogApp creates a fully wired ObslogApp from the given config.
// operation identifies the CLI command being run (e.g. "SubmitImport", "RunQueue").
// The caller must call Close when done.
func NewObslogApp(ctx context.Context, cfg *config.Config, operation string, opts Options) (*ObslogApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	timeout, _ := cfg.Import.TimeoutDuration()

	a, err := archive.NewArchiveFromConfig(ctx, cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}
	if err := a.ValidateSetup(ctx); err != nil {
		return nil, fmt.Errorf("checking archive: %w", err)
	}

	q, err := queue.NewQueueFromConfig(cfg.Queue)
	if err != nil {
		return nil, fmt.Errorf("creating queue: %w", err)
	}

	var enc logbook.Encryptor
	if cfg.Archive.Encrypted {
		if enc, err = encryption.NewEncryptorFromConfig(cfg.Encryption); err != nil {
			return nil, fmt.Errorf("creating encryptor: %w", err)
		}
		if !enc.IsConfigured() {
			return nil, errors.New("archive encryption is enabled but no keys exist: run `obslog keys init`")
		}
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	op := NewOperation(operation, "", time.Now())
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	sl, logFile, err := newLogger(cfg.LogDir, op.ID, level, console)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: sl.With("op", op.Name)}

	svc := logbook.NewLogbookService(db, a, q, enc, logger, logbook.RealClock{}, logbook.UUIDGenerator{},
		logbook.ServiceOptions{BatchSize: cfg.Import.BatchSize, Timeout: timeout})

	return &ObslogApp{
		cfg:       cfg,
		db:        db,
		archive:   a,
		queue:     q,
		encryptor: enc,
		logger:    logger,
		service:   svc,
		op:        op,
		logFile:   logFile,
	}, nil
}

// SubmitImport archives the document at rawPath and queues its import.
// A non-empty targetSessionID imports every observation into that session.
func (a *ObslogApp) SubmitImport(ctx context.Context, rawPath, targetSessionID string) (*model.ImportHistoryRecord, error) {
	a.op.Parameters = rawPath
	p, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, a.op.Track(fmt.Errorf("resolving path: %w", err))
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, a.op.Track(fmt.Errorf("opening document: %w", err))
	}
	defer f.Close()

	rec, err := a.service.SubmitImport(ctx, logbook.ImportSubmission{
		OwnerID:         a.cfg.OwnerID,
		TargetSessionID: targetSessionID,
		Document:        f,
		Encrypt:         a.cfg.Archive.Encrypted,
	})
	return rec, a.op.Track(err)
}

// NeedsPassphrase reports whether queued documents are encrypted and
// processing them requires Unlock.
func (a *ObslogApp) NeedsPassphrase() bool {
	return a.cfg.Archive.Encrypted
}

// Unlock decrypts the private key for processing encrypted documents.
func (a *ObslogApp) Unlock(passphrase string) (logbook.DecryptionContext, error) {
	if a.encryptor == nil {
		return nil, a.op.Track(errors.New("archive encryption is not enabled"))
	}
	dc, err := a.encryptor.Unlock(passphrase)
	return dc, a.op.Track(err)
}

// RunQueue processes queued imports until the queue is empty and returns
// how many were processed.
func (a *ObslogApp) RunQueue(ctx context.Context, decryptCtx logbook.DecryptionContext) (int, error) {
	n, err := a.service.ProcessQueue(ctx, decryptCtx)
	return n, a.op.Track(err)
}

// WatchQueue drains the queue, then processes new requests as they are
// submitted until ctx is done. It needs a filesystem queue shared with the
// submitting processes.
func (a *ObslogApp) WatchQueue(ctx context.Context, decryptCtx logbook.DecryptionContext) error {
	if a.cfg.Queue.Type != "filesystem" {
		return a.op.Track(fmt.Errorf("watch mode needs a filesystem queue, configured: %q", a.cfg.Queue.Type))
	}
	if _, err := a.RunQueue(ctx, decryptCtx); err != nil {
		a.logger.Error("processing import queue", "error", err)
	}
	return a.op.Track(queue.Watch(ctx, a.cfg.Queue.QueueDir, a.logger, func() error {
		_, err := a.service.ProcessQueue(ctx, decryptCtx)
		return err
	}))
}

// GetHistory returns the owner's most recent imports.
func (a *ObslogApp) GetHistory(ctx context.Context, limit int) ([]*model.ImportHistoryRecord, error) {
	recs, err := a.service.GetHistory(ctx, a.cfg.OwnerID, limit)
	return recs, a.op.Track(err)
}

// GetImport returns one import record of the owner.
func (a *ObslogApp) GetImport(ctx context.Context, recordID string) (*model.ImportHistoryRecord, error) {
	rec, err := a.service.GetImport(ctx, recordID)
	if err == nil && rec.OwnerID != a.cfg.OwnerID {
		err = fmt.Errorf("%w: %s", logbook.ErrRecordNotFound, recordID)
	}
	return rec, a.op.Track(err)
}

// DeleteImport rolls back one of the owner's imports.
func (a *ObslogApp) DeleteImport(ctx context.Context, recordID string) (*logbook.DeletedRows, error) {
	a.op.Parameters = recordID
	if _, err := a.GetImport(ctx, recordID); err != nil {
		return nil, err
	}
	deleted, err := a.service.DeleteImport(ctx, recordID)
	return deleted, a.op.Track(err)
}

// ListSessions returns the owner's sessions.
func (a *ObslogApp) ListSessions(ctx context.Context) ([]*model.ObservingSession, error) {
	sessions, err := a.service.ListSessions(ctx, a.cfg.OwnerID)
	return sessions, a.op.Track(err)
}

// RenameSession changes a session's title. The session is marked edited,
// so later imports keep its details.
func (a *ObslogApp) RenameSession(ctx context.Context, sessionID, title string) (*model.ObservingSession, error) {
	a.op.Parameters = sessionID
	s, err := a.service.EditSession(ctx, sessionID, a.cfg.OwnerID, func(s *model.ObservingSession) error {
		if s.UserID != a.cfg.OwnerID {
			return fmt.Errorf("%w: %s", logbook.ErrSessionNotFound, sessionID)
		}
		if title == "" {
			return errors.New("title must not be empty")
		}
		s.Title = title
		return nil
	})
	return s, a.op.Track(err)
}

// AddDeepSkyObject adds a deep-sky object to the catalogue.
func (a *ObslogApp) AddDeepSkyObject(ctx context.Context, name, objType, constellation string, aliases []string) (*model.DeepSkyObject, error) {
	a.op.Parameters = name
	dso, err := a.service.AddDeepSkyObject(ctx, name, objType, constellation, aliases)
	return dso, a.op.Track(err)
}

// AddDoubleStar adds a double star to the catalogue.
func (a *ObslogApp) AddDoubleStar(ctx context.Context, name, wdsName, constellation string) (*model.DoubleStar, error) {
	a.op.Parameters = name
	ds, err := a.service.AddDoubleStar(ctx, name, wdsName, constellation)
	return ds, a.op.Track(err)
}

// Close logs the end of the operation and closes the database and log file.
func (a *ObslogApp) Close() error {
	a.logger.Info("operation finished",
		"params", a.op.Parameters,
		"status", a.op.Status,
		"duration", time.Since(a.op.StartedAt).Truncate(time.Millisecond))

	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// SetupKeys generates the archive key pair protected by passphrase. It
// needs only the encryption settings, so it runs before the rest of the
// app can be constructed.
func SetupKeys(cfg config.EncryptionConfig, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	return enc.Setup(passphrase)
}
