package database

import (
	"context"
	"fmt"

	"obslog/internal/model"
)

const historyColumns = `id, owner_id, kind, status, outcome, log, created_at, updated_at`

func (q queries) CreateImportHistory(ctx context.Context, rec *model.ImportHistoryRecord) error {
	_, err := q.namedExec(ctx, `INSERT INTO import_history (`+historyColumns+`)
		VALUES (:id, :owner_id, :kind, :status, :outcome, :log, :created_at, :updated_at)`, rec)
	if err != nil {
		return fmt.Errorf("inserting import history: %w", err)
	}
	return nil
}

func (q queries) FindImportHistory(ctx context.Context, id string) (*model.ImportHistoryRecord, error) {
	var rec model.ImportHistoryRecord
	found, err := q.get(ctx, &rec, `SELECT `+historyColumns+` FROM import_history WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("finding import history: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

func (q queries) UpdateImportHistory(ctx context.Context, rec *model.ImportHistoryRecord) error {
	res, err := q.namedExec(ctx, `UPDATE import_history
		SET status = :status, outcome = :outcome, log = :log, updated_at = :updated_at
		WHERE id = :id`, rec)
	if err != nil {
		return fmt.Errorf("updating import history: %w", err)
	}
	return expectOne(res, "import history", rec.ID)
}

func (q queries) ListImportHistory(ctx context.Context, ownerID string, limit int) ([]*model.ImportHistoryRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	var recs []*model.ImportHistoryRecord
	err := q.selectAll(ctx, &recs, `SELECT `+historyColumns+` FROM import_history
		WHERE owner_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing import history: %w", err)
	}
	return recs, nil
}
