package pending

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avolkova/keepsafe/internal/client/models"
	"github.com/avolkova/keepsafe/internal/common"
	"github.com/avolkova/keepsafe/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
// Seq comes from the AUTOINCREMENT rowid, so two actions queued within the
// same millisecond still replay in insertion order.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, a *models.PendingAction) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_actions (id, user_id, tbl, action, data, ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.UserID, a.Table, a.Action, string(a.Data), a.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to queue action: %w", common.StorageError(err))
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read action seq: %w", common.StorageError(err))
	}
	a.Seq = seq
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]models.PendingAction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, id, user_id, tbl, action, data, ts
		FROM pending_actions WHERE user_id = ?
		ORDER BY ts, seq
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending actions: %w", common.StorageError(err))
	}
	defer rows.Close()

	var result []models.PendingAction
	for rows.Next() {
		var (
			a    models.PendingAction
			data string
			ms   int64
		)
		if err := rows.Scan(&a.Seq, &a.ID, &a.UserID, &a.Table, &a.Action, &data, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan pending action: %w", common.StorageError(err))
		}
		a.Data = json.RawMessage(data)
		a.Timestamp = time.UnixMilli(ms).UTC()
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending actions: %w", common.StorageError(err))
	}
	return result, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, userID, id string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM pending_actions WHERE user_id = ? AND id = ?
	`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to remove pending action: %w", common.StorageError(err))
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM pending_actions WHERE user_id = ?
	`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending actions: %w", common.StorageError(err))
	}
	return n, nil
}
