package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avolkova/keepsafe/internal/client/models"
	"github.com/avolkova/keepsafe/internal/common"
	"github.com/avolkova/keepsafe/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, userID string, table models.Table, id string) (*models.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, fields, created_at, updated_at, status
		FROM records WHERE user_id = ? AND tbl = ? AND id = ?
	`, userID, table, id)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", common.StorageError(err))
	}
	return rec, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, userID string, table models.Table) ([]models.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, fields, created_at, updated_at, status
		FROM records WHERE user_id = ? AND tbl = ?
	`, userID, table)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", common.StorageError(err))
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", common.StorageError(err))
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", common.StorageError(err))
	}
	return result, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, table models.Table, rec *models.Record, status models.SyncStatus) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode record fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO records (user_id, tbl, id, fields, created_at, updated_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, tbl, id) DO UPDATE SET
			fields = excluded.fields,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			status = excluded.status
	`, rec.UserID, table, rec.ID, string(fields),
		rec.CreatedAt.UnixMilli(), rec.UpdatedAt.UnixMilli(), status)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", common.StorageError(err))
	}
	return nil
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, userID string, table models.Table, recs []models.Record, status models.SyncStatus) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE user_id = ? AND tbl = ?`, userID, table)
	if err != nil {
		return fmt.Errorf("failed to clear table %s: %w", table, common.StorageError(err))
	}
	for i := range recs {
		if err := r.Put(ctx, table, &recs[i], status); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID string, table models.Table, id string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM records WHERE user_id = ? AND tbl = ? AND id = ?
	`, userID, table, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", common.StorageError(err))
	}
	return nil
}

func (r *SQLiteRepository) SetStatus(ctx context.Context, userID string, table models.Table, id string, status models.SyncStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE records SET status = ? WHERE user_id = ? AND tbl = ? AND id = ?
	`, status, userID, table, id)
	if err != nil {
		return fmt.Errorf("failed to set record status: %w", common.StorageError(err))
	}
	return nil
}

func (r *SQLiteRepository) PendingCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM records WHERE user_id = ? AND status = ?
	`, userID, models.StatusPending).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending records: %w", common.StorageError(err))
	}
	return n, nil
}

func (r *SQLiteRepository) PendingIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM records WHERE user_id = ? AND status = ?
	`, userID, models.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending ids: %w", common.StorageError(err))
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan pending id: %w", common.StorageError(err))
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending ids: %w", common.StorageError(err))
	}
	return ids, nil
}

func scanRecord(scan func(dest ...any) error) (*models.Record, error) {
	var (
		rec                  models.Record
		fields               string
		createdMs, updatedMs int64
	)
	if err := scan(&rec.ID, &rec.UserID, &fields, &createdMs, &updatedMs, &rec.Status); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
		return nil, fmt.Errorf("corrupt fields payload: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(createdMs).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return &rec, nil
}
