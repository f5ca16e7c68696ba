package sync

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avolkova/keepsafe/internal/api"
	"github.com/avolkova/keepsafe/internal/client/connectivity"
	"github.com/avolkova/keepsafe/internal/client/models"
	"github.com/avolkova/keepsafe/internal/client/remote"
	"github.com/avolkova/keepsafe/internal/client/store"
	"github.com/avolkova/keepsafe/internal/logging"
	"github.com/avolkova/keepsafe/internal/server/httpapi"
	"github.com/avolkova/keepsafe/internal/server/repositories/rows"
	"github.com/avolkova/keepsafe/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Engine against the real HTTP client and the real API handlers, with only
// the server's storage swapped for memory.
func TestEngineAgainstHTTPServer(t *testing.T) {
	logger := logging.NewJSONLogger(io.Discard)

	handler := httpapi.NewHandler(
		users.NewMemoryRepository(),
		rows.NewMemoryRepository(),
		logger,
		[]byte("test-secret"),
		time.Hour,
	)
	srv := httptest.NewServer(handler.Router())
	defer srv.Close()

	st, err := store.Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	defer st.Close()

	rc := remote.NewHTTPClient(srv.URL)
	mon := connectivity.NewMonitor(rc.Ping, time.Hour, logger)
	eng := NewEngine(st, rc, mon, logger, Config{SettleDelay: time.Millisecond})
	ctx := context.Background()

	// Sign up while offline, then work locally.
	sess, err := eng.SignUp(ctx, "a@x.io", []byte("pw12345"), "Ann")
	require.NoError(t, err)
	require.NoError(t, eng.Initialize(ctx, sess))

	inserted, err := eng.Insert(ctx, api.TableLinks, map[string]any{"title": "Doc", "url": "https://x"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, inserted.Status)

	// Reconnect under a server-side account. The offline user's queue stays
	// put, keyed by its own user id, untouched by the new session.
	mon.Set(true)
	remoteSess, err := eng.SignUp(ctx, "a2@x.io", []byte("pw12345"), "Ann")
	require.NoError(t, err)
	require.NoError(t, eng.Initialize(ctx, remoteSess))

	actions, err := st.PendingActions(ctx, sess.UserID)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	// Second device flow under one identity: insert online, verify it is
	// confirmed inline, then pull it back via rehydration.
	online, err := eng.Insert(ctx, api.TableLinks, map[string]any{"title": "Online", "url": "https://y"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, online.Status)

	require.NoError(t, st.PutMany(ctx, remoteSess.UserID, api.TableLinks, nil, models.StatusSynced))
	require.NoError(t, eng.Initialize(ctx, remoteSess))

	recs, err := eng.GetData(ctx, api.TableLinks)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, online.ID, recs[0].ID)
	assert.Equal(t, "Online", recs[0].Fields["title"])
	assert.Equal(t, models.StatusSynced, recs[0].Status)

	// Update travels as a field patch and survives a round-trip.
	_, err = eng.Update(ctx, api.TableLinks, online.ID, map[string]any{"title": "Online v2"})
	require.NoError(t, err)
	require.NoError(t, eng.Initialize(ctx, remoteSess))

	recs, err = eng.GetData(ctx, api.TableLinks)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Online v2", recs[0].Fields["title"])
	assert.Equal(t, "https://y", recs[0].Fields["url"])

	// Soft delete goes through trash locally and removes the row remotely.
	require.NoError(t, eng.Delete(ctx, api.TableLinks, online.ID, false))
	require.NoError(t, eng.Initialize(ctx, remoteSess))

	recs, err = eng.GetData(ctx, api.TableLinks)
	require.NoError(t, err)
	assert.Empty(t, recs)

	items, err := eng.GetTrash(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, online.ID, items[0].Data.ID)
}
