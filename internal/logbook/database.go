package logbook

import (
	"context"
	"errors"
	"time"

	"obslog/internal/model"
)

// ErrBusy is wrapped by Database.Begin when the store is temporarily locked
// by another writer. Callers may retry.
var ErrBusy = errors.New("database busy")

// Queries are the storage operations available both directly on the
// Database and inside a transaction. Finders return (nil, nil) when nothing
// matches.
type Queries interface {
	// Import history

	CreateImportHistory(ctx context.Context, rec *model.ImportHistoryRecord) error
	FindImportHistory(ctx context.Context, id string) (*model.ImportHistoryRecord, error)
	UpdateImportHistory(ctx context.Context, rec *model.ImportHistoryRecord) error
	// ListImportHistory returns the owner's records, newest first.
	ListImportHistory(ctx context.Context, ownerID string, limit int) ([]*model.ImportHistoryRecord, error)

	// Locations and equipment

	FindLocationByName(ctx context.Context, userID, name string) (*model.Location, error)
	CreateLocation(ctx context.Context, loc *model.Location) error
	ListTelescopes(ctx context.Context, userID string) ([]*model.Telescope, error)
	CreateTelescope(ctx context.Context, t *model.Telescope) error
	ListEyepieces(ctx context.Context, userID string) ([]*model.Eyepiece, error)
	CreateEyepiece(ctx context.Context, e *model.Eyepiece) error
	ListFilters(ctx context.Context, userID string) ([]*model.Filter, error)
	CreateFilter(ctx context.Context, f *model.Filter) error
	ListLenses(ctx context.Context, userID string) ([]*model.Lens, error)
	CreateLens(ctx context.Context, l *model.Lens) error

	// Catalogue

	// FindDeepSkyObjectsByKey matches a normalized designation against
	// object names and aliases.
	FindDeepSkyObjectsByKey(ctx context.Context, key string) ([]*model.DeepSkyObject, error)
	// CreateDeepSkyObject stores dso with additional normalized alias keys.
	CreateDeepSkyObject(ctx context.Context, dso *model.DeepSkyObject, aliasKeys []string) error
	// FindDoubleStarsByName matches the exact common or WDS name.
	FindDoubleStarsByName(ctx context.Context, name string) ([]*model.DoubleStar, error)
	// FindDoubleStarsByKey matches a fuzzy name key.
	FindDoubleStarsByKey(ctx context.Context, key string) ([]*model.DoubleStar, error)
	CreateDoubleStar(ctx context.Context, ds *model.DoubleStar) error

	// Sessions

	FindSession(ctx context.Context, id string) (*model.ObservingSession, error)
	// FindOverlappingSessions returns the user's sessions whose date range
	// intersects [from, to], ordered by start date.
	FindOverlappingSessions(ctx context.Context, userID string, from, to time.Time) ([]*model.ObservingSession, error)
	ListSessions(ctx context.Context, userID string) ([]*model.ObservingSession, error)
	CreateSession(ctx context.Context, s *model.ObservingSession) error
	UpdateSession(ctx context.Context, s *model.ObservingSession) error

	// Observations

	FindObservation(ctx context.Context, id string) (*model.Observation, error)
	// FindSessionObservationsOfTarget returns observations of target within a session.
	FindSessionObservationsOfTarget(ctx context.Context, sessionID string, target model.Target) ([]*model.Observation, error)
	// FindObservationsOfTargetAt returns the user's observations of target starting exactly at.
	FindObservationsOfTargetAt(ctx context.Context, userID string, target model.Target, at time.Time) ([]*model.Observation, error)
	ListObservations(ctx context.Context, userID string) ([]*model.Observation, error)
	CreateObservation(ctx context.Context, o *model.Observation) error
	UpdateObservation(ctx context.Context, o *model.Observation) error

	// DeleteImportedRows removes the sessions and observations tagged with
	// recordID, plus tagged locations and equipment nothing references any more.
	DeleteImportedRows(ctx context.Context, recordID string) (*DeletedRows, error)
}

// DeletedRows counts what DeleteImportedRows removed.
type DeletedRows struct {
	Observations int64
	Sessions     int64
	Locations    int64
	Equipment    int64
}

// Tx is a database transaction. Rows written through it become visible to
// other readers only after Commit.
type Tx interface {
	Queries
	Commit() error
	Rollback() error
}

// Database provides metadata storage for the logbook.
type Database interface {
	Queries

	// Begin starts a transaction. Errors caused by lock contention wrap ErrBusy.
	Begin(ctx context.Context) (Tx, error)

	// CheckMigrations verifies that the schema is at the latest version.
	CheckMigrations() error

	// Close closes the database connection.
	Close() error
}
