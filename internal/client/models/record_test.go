package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/avolkova/keepsafe/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_JSONRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	r := Record{
		ID:        "r1",
		UserID:    "u1",
		CreatedAt: created,
		UpdatedAt: created.Add(time.Hour),
		Fields: map[string]any{
			"title": "Doc",
			"url":   "https://x",
		},
		Status: StatusPending,
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	// Fields are flattened, status never reaches the wire.
	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "Doc", wire["title"])
	assert.Equal(t, "r1", wire["id"])
	assert.NotContains(t, wire, "status")
	assert.NotContains(t, wire, "Status")

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r.ID, back.ID)
	assert.Equal(t, r.UserID, back.UserID)
	assert.True(t, r.CreatedAt.Equal(back.CreatedAt))
	assert.True(t, r.UpdatedAt.Equal(back.UpdatedAt))
	assert.Equal(t, r.Fields, back.Fields)
}

func TestRecord_UnmarshalRejectsBadTypes(t *testing.T) {
	var r Record
	assert.Error(t, json.Unmarshal([]byte(`{"id": 42}`), &r))
	assert.Error(t, json.Unmarshal([]byte(`{"id":"a","created_at":"not-a-time"}`), &r))
}

func TestRecord_Clone(t *testing.T) {
	r := Record{ID: "r1", Fields: map[string]any{"title": "a"}}
	cp := r.Clone()
	cp.Fields["title"] = "b"

	assert.Equal(t, "a", r.Fields["title"])
}

func TestPendingAction_TargetID(t *testing.T) {
	a := PendingAction{Data: json.RawMessage(`{"id":"x1","phone":"+33"}`)}
	assert.Equal(t, "x1", a.TargetID())

	assert.Empty(t, PendingAction{Data: json.RawMessage(`{}`)}.TargetID())
	assert.Empty(t, PendingAction{Data: json.RawMessage(`garbage`)}.TargetID())
}

func TestTrashItem_Expired(t *testing.T) {
	now := time.Now()
	item := TrashItem{ExpiresAt: now}

	assert.True(t, item.Expired(now))
	assert.True(t, item.Expired(now.Add(time.Second)))
	assert.False(t, item.Expired(now.Add(-time.Second)))
}

func TestTableAlias(t *testing.T) {
	// The models package reuses the closed wire-contract table set.
	var tbl Table = api.TableLinks
	assert.Equal(t, "links", tbl.String())
}
