package models

import (
	"encoding/json"
	"time"
)

// ActionType is the kind of mutation a pending action replays.
type ActionType string

const (
	ActionInsert ActionType = "insert"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
)

// PendingAction describes one not-yet-confirmed mutation. Actions are
// replayed against the remote service in (Timestamp, Seq) ascending order;
// Seq is assigned by the store and breaks wall-clock ties deterministically.
//
// Data carries the payload the remote call needs:
//   - insert: the full record JSON
//   - update: {"id": ..., <changed fields>}
//   - delete: {"id": ...}
type PendingAction struct {
	ID        string
	UserID    string
	Table     Table
	Action    ActionType
	Data      json.RawMessage
	Timestamp time.Time
	Seq       int64
}

// TargetID extracts the record identifier from Data. Returns "" if the
// payload has no id, which only happens for malformed entries.
func (a PendingAction) TargetID() string {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(a.Data, &probe); err != nil {
		return ""
	}
	return probe.ID
}
