package rows

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avolkova/keepsafe/internal/api"
	"github.com/avolkova/keepsafe/internal/common"
	"github.com/avolkova/keepsafe/internal/server/models"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, userID string, table api.Table) ([]models.Row, error) {
	query :=
		`SELECT id, user_id, tbl, fields, created_at, updated_at FROM rows
		 WHERE user_id = $1 AND tbl = $2
		 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, table.String())
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var result []models.Row
	for rows.Next() {
		var row models.Row
		var tbl string
		if err := rows.Scan(&row.ID, &row.UserID, &tbl, &row.Fields, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		row.Table, err = api.ParseTable(tbl)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, userID string, table api.Table, id string) (*models.Row, error) {
	query :=
		`SELECT id, user_id, tbl, fields, created_at, updated_at FROM rows
		 WHERE user_id = $1 AND tbl = $2 AND id = $3`

	var row models.Row
	var tbl string
	err := r.db.QueryRowContext(ctx, query, userID, table.String(), id).
		Scan(&row.ID, &row.UserID, &tbl, &row.Fields, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	row.Table, err = api.ParseTable(tbl)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, row *models.Row) error {
	query :=
		`INSERT INTO rows (id, user_id, tbl, fields, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, tbl, id) DO UPDATE SET
		   fields = EXCLUDED.fields,
		   updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		row.ID, row.UserID, row.Table.String(), row.Fields, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, userID string, table api.Table, id string, fields []byte) error {
	query :=
		`UPDATE rows SET fields = fields || $4::jsonb, updated_at = now()
		 WHERE user_id = $1 AND tbl = $2 AND id = $3`

	res, err := r.db.ExecContext(ctx, query, userID, table.String(), id, fields)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string, table api.Table, id string) error {
	query := `DELETE FROM rows WHERE user_id = $1 AND tbl = $2 AND id = $3`

	res, err := r.db.ExecContext(ctx, query, userID, table.String(), id)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}
