// Package models defines the client-side data model: records stored in the
// local vault, queued pending actions, trash items, and the session object
// that scopes every store operation to a user.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/avolkova/keepsafe/internal/api"
)

// SyncStatus marks whether a locally stored record has been confirmed by the
// remote service. It is a local-only attribute and never reaches the wire.
type SyncStatus string

const (
	StatusSynced  SyncStatus = "synced"
	StatusPending SyncStatus = "pending"
)

// Record is one persisted entity of any table. Beyond identity, ownership
// and timestamps, all business fields live in the free-form Fields map; the
// sync layer does not interpret them.
type Record struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
	Fields    map[string]any

	// Status is local bookkeeping, excluded from the JSON form.
	Status SyncStatus
}

// reserved keys handled outside Fields.
const (
	keyID        = "id"
	keyUserID    = "user_id"
	keyCreatedAt = "created_at"
	keyUpdatedAt = "updated_at"
)

// MarshalJSON flattens Fields into the top-level object alongside id,
// user_id and the timestamps, matching the remote service's row shape.
func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Fields)+4)
	for k, v := range r.Fields {
		m[k] = v
	}
	m[keyID] = r.ID
	m[keyUserID] = r.UserID
	m[keyCreatedAt] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	m[keyUpdatedAt] = r.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(m)
}

// UnmarshalJSON is the inverse of MarshalJSON: known keys are lifted into
// struct fields, everything else lands in Fields.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	r.Fields = make(map[string]any, len(m))
	for k, v := range m {
		switch k {
		case keyID:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("record id must be a string, got %T", v)
			}
			r.ID = s
		case keyUserID:
			s, _ := v.(string)
			r.UserID = s
		case keyCreatedAt:
			t, err := parseWireTime(v)
			if err != nil {
				return fmt.Errorf("created_at: %w", err)
			}
			r.CreatedAt = t
		case keyUpdatedAt:
			t, err := parseWireTime(v)
			if err != nil {
				return fmt.Errorf("updated_at: %w", err)
			}
			r.UpdatedAt = t
		default:
			r.Fields[k] = v
		}
	}
	return nil
}

func parseWireTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp must be a string, got %T", v)
	}
	return time.Parse(time.RFC3339Nano, s)
}

// Clone returns a copy with its own Fields map, so callers can hand records
// to the UI without aliasing store-internal state. Nested values are shared.
func (r Record) Clone() Record {
	cp := r
	cp.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		cp.Fields[k] = v
	}
	return cp
}

// Table aliases the shared wire-contract table type for convenience.
type Table = api.Table
