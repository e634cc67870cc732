package model

import (
	"database/sql"
	"time"
)

// ImportKind distinguishes what an import document is loaded into.
type ImportKind string

const (
	ImportKindObservations ImportKind = "OBSERVATIONS"
	ImportKindSessionPlan  ImportKind = "SESSION_PLAN"
)

// ImportStatus is the lifecycle state of an ImportHistoryRecord.
type ImportStatus string

const (
	ImportStatusProcessing ImportStatus = "PROCESSING"
	ImportStatusImported   ImportStatus = "IMPORTED"
	ImportStatusFailed     ImportStatus = "FAILED"
	ImportStatusDeleted    ImportStatus = "DELETED"
)

// ImportOutcome summarizes how a finished import went.
type ImportOutcome string

const (
	OutcomeSuccess ImportOutcome = "SUCCESS" // no diagnostics errors
	OutcomePartial ImportOutcome = "PARTIAL" // unresolved references, or failure after some batches committed
	OutcomeFailed  ImportOutcome = "FAILED"  // nothing was committed
)

// ImportHistoryRecord tracks one import invocation.
// It is created with status PROCESSING before the document is parsed.
type ImportHistoryRecord struct {
	ID        string        `db:"id"`
	OwnerID   string        `db:"owner_id"`
	Kind      ImportKind    `db:"kind"`
	Status    ImportStatus  `db:"status"`
	Outcome   ImportOutcome `db:"outcome"`
	Log       string        `db:"log"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

// Audit holds the ownership and audit columns shared by every user-owned row.
type Audit struct {
	UserID             string         `db:"user_id"`
	ImportHistoryRecID sql.NullString `db:"import_history_rec_id"`
	CreateBy           string         `db:"create_by"`
	UpdateBy           string         `db:"update_by"`
	CreateDate         time.Time      `db:"create_date"`
	UpdateDate         time.Time      `db:"update_date"`
}

// Location is a named observing site owned by a user.
type Location struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	Longitude float64         `db:"longitude"`
	Latitude  float64         `db:"latitude"`
	Elevation sql.NullFloat64 `db:"elevation"`
	TimeZone  sql.NullString  `db:"time_zone"`
	IAUCode   sql.NullString  `db:"iau_code"`
	Audit
}

// Telescope is an optical instrument owned by a user.
type Telescope struct {
	ID                 string          `db:"id"`
	Name               string          `db:"name"`
	Vendor             sql.NullString  `db:"vendor"`
	Model              sql.NullString  `db:"model"`
	Type               sql.NullString  `db:"type"`
	ApertureMM         sql.NullFloat64 `db:"aperture_mm"`
	FocalLengthMM      sql.NullFloat64 `db:"focal_length_mm"`
	FixedMagnification sql.NullFloat64 `db:"fixed_magnification"`
	Audit
}

// Eyepiece is an eyepiece owned by a user. Zoom eyepieces have MaxFocalLengthMM set.
type Eyepiece struct {
	ID               string          `db:"id"`
	Name             string          `db:"name"`
	Vendor           sql.NullString  `db:"vendor"`
	Model            sql.NullString  `db:"model"`
	FocalLengthMM    sql.NullFloat64 `db:"focal_length_mm"`
	MaxFocalLengthMM sql.NullFloat64 `db:"max_focal_length_mm"`
	ApparentFOVDeg   sql.NullFloat64 `db:"apparent_fov_deg"`
	Audit
}

// Filter is an optical filter owned by a user.
type Filter struct {
	ID      string         `db:"id"`
	Name    string         `db:"name"`
	Vendor  sql.NullString `db:"vendor"`
	Model   sql.NullString `db:"model"`
	Type    sql.NullString `db:"type"`
	Color   sql.NullString `db:"color"`
	Wratten sql.NullString `db:"wratten"`
	Schott  sql.NullString `db:"schott"`
	Audit
}

// Lens is a barlow or focal reducer owned by a user.
type Lens struct {
	ID     string          `db:"id"`
	Name   string          `db:"name"`
	Vendor sql.NullString  `db:"vendor"`
	Model  sql.NullString  `db:"model"`
	Factor sql.NullFloat64 `db:"factor"`
	Audit
}

// ObservingSession groups the observations of one night.
// A session references either a Location row or carries an ad-hoc position.
type ObservingSession struct {
	ID               string          `db:"id"`
	Title            string          `db:"title"`
	DateFrom         time.Time       `db:"date_from"`
	DateTo           time.Time       `db:"date_to"`
	LocationID       sql.NullString  `db:"location_id"`
	LocationPosition sql.NullString  `db:"location_position"`
	Weather          string          `db:"weather"`
	Equipment        string          `db:"equipment"`
	Notes            string          `db:"notes"`
	Seeing           sql.NullInt64   `db:"seeing"`
	Transparency     sql.NullInt64   `db:"transparency"`
	SQM              sql.NullFloat64 `db:"sqm"`
	FaintestStar     sql.NullFloat64 `db:"faintest_star"`
	UserEdited       bool            `db:"user_edited"`
	Audit
}

// Pristine reports whether the session may be overwritten by a re-import:
// it was written by an import and nobody has edited it since.
func (s *ObservingSession) Pristine() bool {
	return s.ImportHistoryRecID.Valid && !s.UserEdited
}

// Overlaps reports whether the session's date range intersects [from, to].
func (s *ObservingSession) Overlaps(from, to time.Time) bool {
	return !s.DateFrom.After(to) && !s.DateTo.Before(from)
}

// TargetType tags what kind of catalogue entity an observation is of.
type TargetType string

const (
	TargetTypeDSO        TargetType = "DSO"
	TargetTypeDoubleStar TargetType = "DBL_STAR"
)

// Observation is a single observation of one target.
// DSO observations reference a set of deep-sky objects through DeepSkyObjectIDs;
// double-star observations reference DoubleStarID. The two are mutually exclusive.
type Observation struct {
	ID               string          `db:"id"`
	SessionID        sql.NullString  `db:"session_id"`
	TargetType       TargetType      `db:"target_type"`
	DoubleStarID     sql.NullString  `db:"double_star_id"`
	DeepSkyObjectIDs []string        `db:"-"`
	DateFrom         time.Time       `db:"date_from"`
	DateTo           sql.NullTime    `db:"date_to"`
	LocationID       sql.NullString  `db:"location_id"`
	LocationPosition sql.NullString  `db:"location_position"`
	SQM              sql.NullFloat64 `db:"sqm"`
	FaintestStar     sql.NullFloat64 `db:"faintest_star"`
	Seeing           sql.NullInt64   `db:"seeing"`
	TelescopeID      sql.NullString  `db:"telescope_id"`
	EyepieceID       sql.NullString  `db:"eyepiece_id"`
	FilterID         sql.NullString  `db:"filter_id"`
	LensID           sql.NullString  `db:"lens_id"`
	Magnification    sql.NullFloat64 `db:"magnification"`
	Notes            string          `db:"notes"`
	UserEdited       bool            `db:"user_edited"`
	Audit
}

// Pristine reports whether the observation may be overwritten by a re-import.
func (o *Observation) Pristine() bool {
	return o.ImportHistoryRecID.Valid && !o.UserEdited
}

// Target identifies the catalogue entity an observation is of.
type Target struct {
	Type             TargetType
	DeepSkyObjectIDs []string
	DoubleStarID     string
}

// Key returns the id used to match observations of this target.
// For deep-sky targets that is the first (primary) object.
func (t Target) Key() string {
	if t.Type == TargetTypeDoubleStar {
		return t.DoubleStarID
	}
	if len(t.DeepSkyObjectIDs) == 0 {
		return ""
	}
	return t.DeepSkyObjectIDs[0]
}

// DeepSkyObject is a read-only catalogue entry.
type DeepSkyObject struct {
	ID            string          `db:"id"`
	Name          string          `db:"name"`
	SearchKey     string          `db:"search_key"`
	Type          string          `db:"type"`
	Constellation sql.NullString  `db:"constellation"`
	RA            sql.NullFloat64 `db:"ra"`
	Dec           sql.NullFloat64 `db:"dec"`
}

// DoubleStar is a read-only catalogue entry.
type DoubleStar struct {
	ID            string          `db:"id"`
	CommonName    string          `db:"common_name"`
	WDSName       sql.NullString  `db:"wds_name"`
	SearchKey     string          `db:"search_key"`
	Constellation sql.NullString  `db:"constellation"`
	Separation    sql.NullFloat64 `db:"separation"`
}
