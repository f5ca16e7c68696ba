package rows

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/avolkova/keepsafe/internal/api"
	"github.com/avolkova/keepsafe/internal/common"
	"github.com/avolkova/keepsafe/internal/server/models"
)

type memoryKey struct {
	userID string
	table  api.Table
	id     string
}

// MemoryRepository keeps rows in a map. Used by handler tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[memoryKey]*models.Row
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: map[memoryKey]*models.Row{}}
}

func (r *MemoryRepository) List(ctx context.Context, userID string, table api.Table) ([]models.Row, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.Row
	for k, row := range r.rows {
		if k.userID == userID && k.table == table {
			result = append(result, *row)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryRepository) Get(ctx context.Context, userID string, table api.Table, id string) (*models.Row, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[memoryKey{userID, table, id}]
	if !ok {
		return nil, common.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *MemoryRepository) Upsert(ctx context.Context, row *models.Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *row
	r.rows[memoryKey{row.UserID, row.Table, row.ID}] = &clone
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, userID string, table api.Table, id string, fields []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[memoryKey{userID, table, id}]
	if !ok {
		return common.ErrNotFound
	}

	var current, patch map[string]any
	if err := json.Unmarshal(row.Fields, &current); err != nil {
		return err
	}
	if err := json.Unmarshal(fields, &patch); err != nil {
		return err
	}
	for k, v := range patch {
		current[k] = v
	}

	merged, err := json.Marshal(current)
	if err != nil {
		return err
	}
	row.Fields = merged
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, userID string, table api.Table, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := memoryKey{userID, table, id}
	if _, ok := r.rows[k]; !ok {
		return common.ErrNotFound
	}
	delete(r.rows, k)
	return nil
}
