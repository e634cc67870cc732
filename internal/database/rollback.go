package database

import (
	"context"
	"fmt"

	"obslog/internal/logbook"
)

// equipmentRefs lists each equipment table with the observation column referencing it.
var equipmentRefs = []struct{ table, column string }{
	{"telescopes", "telescope_id"},
	{"eyepieces", "eyepiece_id"},
	{"filters", "filter_id"},
	{"lenses", "lens_id"},
}

// DeleteImportedRows removes what an import created. Observations of other
// imports inside a removed session lose their session reference; locations
// and equipment are kept while anything still references them.
func (q queries) DeleteImportedRows(ctx context.Context, recordID string) (*logbook.DeletedRows, error) {
	var out logbook.DeletedRows
	var err error

	if out.Observations, err = q.deleteCount(ctx, `DELETE FROM observations WHERE import_history_rec_id = ?`, recordID); err != nil {
		return nil, fmt.Errorf("deleting observations: %w", err)
	}
	if out.Sessions, err = q.deleteCount(ctx, `DELETE FROM observing_sessions WHERE import_history_rec_id = ?`, recordID); err != nil {
		return nil, fmt.Errorf("deleting sessions: %w", err)
	}
	if out.Locations, err = q.deleteCount(ctx, `DELETE FROM locations WHERE import_history_rec_id = ?
		AND NOT EXISTS (SELECT 1 FROM observing_sessions s WHERE s.location_id = locations.id)
		AND NOT EXISTS (SELECT 1 FROM observations o WHERE o.location_id = locations.id)`, recordID); err != nil {
		return nil, fmt.Errorf("deleting locations: %w", err)
	}
	for _, ref := range equipmentRefs {
		n, err := q.deleteCount(ctx, `DELETE FROM `+ref.table+` WHERE import_history_rec_id = ?
			AND NOT EXISTS (SELECT 1 FROM observations o WHERE o.`+ref.column+` = `+ref.table+`.id)`, recordID)
		if err != nil {
			return nil, fmt.Errorf("deleting %s: %w", ref.table, err)
		}
		out.Equipment += n
	}
	return &out, nil
}

func (q queries) deleteCount(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
