package trash

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

func (r *SQLiteRepository) Insert(ctx context.Context, item *models.TrashItem) error {
	data, err := json.Marshal(item.Data)
	if err != nil {
		return fmt.Errorf("failed to encode trash snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO trash (id, user_id, tbl, data, deleted_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, item.ID, item.UserID, item.Table, string(data),
		item.DeletedAt.UnixMilli(), item.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert trash item: %w", common.StorageError(err))
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, userID, id string) (*models.TrashItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, tbl, data, deleted_at, expires_at
		FROM trash WHERE user_id = ? AND id = ?
	`, userID, id)

	item, err := scanItem(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trash item: %w", common.StorageError(err))
	}
	return item, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, userID string) ([]models.TrashItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, tbl, data, deleted_at, expires_at
		FROM trash WHERE user_id = ?
		ORDER BY deleted_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select trash: %w", common.StorageError(err))
	}
	defer rows.Close()

	var result []models.TrashItem
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trash item: %w", common.StorageError(err))
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trash: %w", common.StorageError(err))
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trash WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete trash item: %w", common.StorageError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", common.StorageError(err))
	}
	return n > 0, nil
}

func (r *SQLiteRepository) DeleteExpired(ctx context.Context, userID string, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM trash WHERE user_id = ? AND expires_at <= ?
	`, userID, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired trash: %w", common.StorageError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", common.StorageError(err))
	}
	return n, nil
}

func scanItem(scan func(dest ...any) error) (*models.TrashItem, error) {
	var (
		item                 models.TrashItem
		data                 string
		deletedMs, expiresMs int64
	)
	if err := scan(&item.ID, &item.UserID, &item.Table, &data, &deletedMs, &expiresMs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &item.Data); err != nil {
		return nil, fmt.Errorf("corrupt trash snapshot: %w", err)
	}
	item.DeletedAt = time.UnixMilli(deletedMs).UTC()
	item.ExpiresAt = time.UnixMilli(expiresMs).UTC()
	return &item, nil
}
