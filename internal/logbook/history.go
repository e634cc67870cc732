package logbook

import (
	"context"
	"fmt"

	"obslog/internal/model"
)

// GetHistory returns the owner's most recent imports, ordered newest first.
func (s *LogbookService) GetHistory(ctx context.Context, ownerID string, limit int) ([]*model.ImportHistoryRecord, error) {
	recs, err := s.database.ListImportHistory(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing import history: %w", err)
	}
	return recs, nil
}

// GetImport returns one import record.
func (s *LogbookService) GetImport(ctx context.Context, recordID string) (*model.ImportHistoryRecord, error) {
	rec, err := s.database.FindImportHistory(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("finding import record: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
	}
	return rec, nil
}
