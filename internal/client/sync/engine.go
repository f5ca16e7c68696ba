// Package sync implements the engine that keeps the local store and the
// remote vault service converged: initial hydration, opportunistic inline
// writes with offline queueing, and connectivity-triggered replay of the
// pending-action queue.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avolkova/keepsafe/internal/api"
	"github.com/avolkova/keepsafe/internal/client/connectivity"
	"github.com/avolkova/keepsafe/internal/client/models"
	"github.com/avolkova/keepsafe/internal/client/remote"
	"github.com/avolkova/keepsafe/internal/client/store"
	"github.com/avolkova/keepsafe/internal/common"
	"github.com/avolkova/keepsafe/internal/logging"
	"github.com/google/uuid"
)

// Config tunes engine behavior.
type Config struct {
	// SettleDelay is how long to wait after a reconnect before draining,
	// so a flaky link does not trigger a drain that immediately fails.
	SettleDelay time.Duration

	// StopOnFirstError halts a drain at the first failed action, keeping
	// strict replay order at the cost of liveness. The default keeps going:
	// one stuck action must not block independent later ones.
	StopOnFirstError bool
}

// SyncResult is the aggregate outcome of one drain pass. Per-action failures
// are logged, never surfaced individually.
type SyncResult struct {
	Replayed int
	Failed   int
}

// Engine orchestrates the local store, the remote client and the
// connectivity monitor. All mutating operations require a signed-in session;
// without one they fail with common.ErrUnauthenticated before touching
// anything, since a queued action without an owner could never be replayed.
type Engine struct {
	store   *store.LocalStore
	remote  remote.Client
	monitor *connectivity.Monitor
	logger  logging.Logger
	cfg     Config

	mu      sync.Mutex
	session *models.Session

	syncing     atomic.Bool
	initialized atomic.Bool

	// now is swappable in tests.
	now func() time.Time
}

func NewEngine(st *store.LocalStore, rc remote.Client, mon *connectivity.Monitor, logger logging.Logger, cfg Config) *Engine {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 2 * time.Second
	}
	return &Engine{
		store:   st,
		remote:  rc,
		monitor: mon,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// --- session ---

func (e *Engine) setSession(sess *models.Session) {
	e.mu.Lock()
	e.session = sess
	e.mu.Unlock()
}

// currentSession returns the active session or common.ErrUnauthenticated.
func (e *Engine) currentSession() (*models.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, common.ErrUnauthenticated
	}
	return e.session, nil
}

// Session returns the active session, or nil when signed out.
func (e *Engine) Session() *models.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// SignIn authenticates against the service when reachable, falling back to
// the offline credential vault otherwise. A successful online sign-in also
// refreshes the stored offline credentials, so the same password keeps
// working with no network. The password buffer is wiped before returning.
func (e *Engine) SignIn(ctx context.Context, email string, password []byte) (*models.Session, error) {
	defer common.WipeByteArray(password)

	var sess *models.Session

	if e.monitor.Online() {
		remoteSess, err := e.remote.SignIn(ctx, email, string(password))
		switch {
		case err == nil:
			sess = remoteSess
			if err := e.store.SaveCredentials(ctx, email, password, sess.UserID, sess.FullName); err != nil {
				e.logger.Warn(ctx, "failed to refresh offline credentials", "error", err)
			}
		case errors.Is(err, common.ErrRemoteUnavailable):
			// Service went away between the probe and the call; treat as
			// offline and verify locally.
		default:
			return nil, err
		}
	}

	if sess == nil {
		verified, err := e.store.VerifyOfflineCredentials(ctx, email, password)
		if err != nil {
			return nil, err
		}
		sess = verified
	}

	if err := e.store.SetCurrentUser(ctx, sess); err != nil {
		return nil, err
	}
	e.setSession(sess)
	return sess, nil
}

// SignUp creates the account remotely when online, or as a local-only
// account otherwise. Either way the credentials land in the offline vault so
// the user can sign back in without a network. The password buffer is wiped
// before returning.
func (e *Engine) SignUp(ctx context.Context, email string, password []byte, fullName string) (*models.Session, error) {
	defer common.WipeByteArray(password)

	var sess *models.Session

	if e.monitor.Online() {
		remoteSess, err := e.remote.SignUp(ctx, email, string(password), fullName)
		switch {
		case err == nil:
			sess = remoteSess
			if err := e.store.SaveCredentials(ctx, email, password, sess.UserID, sess.FullName); err != nil {
				e.logger.Warn(ctx, "failed to store offline credentials", "error", err)
			}
		case errors.Is(err, common.ErrRemoteUnavailable):
		default:
			return nil, err
		}
	}

	if sess == nil {
		local, err := e.store.CreateOfflineAccount(ctx, email, password, fullName)
		if err != nil {
			return nil, err
		}
		sess = local
	}

	if err := e.store.SetCurrentUser(ctx, sess); err != nil {
		return nil, err
	}
	e.setSession(sess)
	return sess, nil
}

// SignOut drops the in-memory and persisted session. Local records and the
// pending queue survive, keyed by user id, for the next sign-in.
func (e *Engine) SignOut(ctx context.Context) error {
	e.setSession(nil)
	e.initialized.Store(false)
	return e.store.ClearCurrentUser(ctx)
}

// Initialize resolves the active user and brings the local store up to date.
// When sess is nil, the persisted current-user pointer is consulted and, if
// the service is reachable, validated against it. Offline, initialization
// succeeds in degraded mode on whatever the local store already holds.
func (e *Engine) Initialize(ctx context.Context, sess *models.Session) error {
	if sess == nil {
		persisted, err := e.store.CurrentUser(ctx)
		if err != nil {
			return err
		}
		if persisted == nil && e.monitor.Online() {
			// The remote client may still hold a usable access token.
			persisted, err = e.remote.Session(ctx)
			if err != nil {
				return common.ErrUnauthenticated
			}
			if err := e.store.SetCurrentUser(ctx, persisted); err != nil {
				return err
			}
		}
		if persisted == nil {
			return common.ErrUnauthenticated
		}
		sess = persisted
	}
	e.setSession(sess)

	// A resumed session carries the last sign-in's access token; the remote
	// client knows nothing about it until it is pushed back in.
	if sess.AccessToken != "" {
		if remote.TokenExpired(sess.AccessToken, e.now()) {
			e.logger.Warn(ctx, "persisted access token expired, remote writes will queue until the next sign-in")
		} else {
			e.remote.SetToken(sess.AccessToken)
		}
	}

	if !e.monitor.Online() {
		e.initialized.Store(true)
		e.logger.Info(ctx, "initialized offline from local data", "user_id", sess.UserID)
		return nil
	}

	if err := e.hydrate(ctx, sess); err != nil {
		// Degrade rather than fail: the local store is still serviceable.
		e.logger.Warn(ctx, "hydration failed, continuing on local data", "error", err)
	}
	e.initialized.Store(true)
	return nil
}

// hydrate replaces every table's contents with the remote rows, stamped
// synced, then purges expired trash.
func (e *Engine) hydrate(ctx context.Context, sess *models.Session) error {
	for _, table := range api.Tables() {
		recs, err := e.remote.List(ctx, table)
		if err != nil {
			return fmt.Errorf("failed to hydrate %s: %w", table, err)
		}
		if err := e.store.PutMany(ctx, sess.UserID, table, recs, models.StatusSynced); err != nil {
			return err
		}
	}

	purged, err := e.store.CleanExpiredTrash(ctx, sess.UserID)
	if err != nil {
		return err
	}
	if purged > 0 {
		e.logger.Info(ctx, "purged expired trash", "count", purged)
	}
	return nil
}

// --- repository surface ---

// GetData returns all of the user's records in table from the local store.
func (e *Engine) GetData(ctx context.Context, table models.Table) ([]models.Record, error) {
	sess, err := e.currentSession()
	if err != nil {
		return nil, err
	}
	return e.store.GetAll(ctx, sess.UserID, table)
}

// Insert creates a record. The local write is optimistic: online, the record
// is stored synced and the remote insert attempted inline; on remote failure
// or offline, it is stored pending and an insert action is queued. The
// returned record always reflects the local store, so callers have an id
// before remote confirmation.
func (e *Engine) Insert(ctx context.Context, table models.Table, fields map[string]any) (*models.Record, error) {
	sess, err := e.currentSession()
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	rec := &models.Record{
		ID:        uuid.NewString(),
		UserID:    sess.UserID,
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    fields,
	}
	if id, ok := fields["id"].(string); ok && id != "" {
		rec.ID = id
		delete(fields, "id")
	}

	if e.monitor.Online() {
		if err := e.store.Put(ctx, table, rec, models.StatusSynced); err != nil {
			return nil, err
		}
		if err := e.remote.Upsert(ctx, table, *rec); err == nil {
			rec.Status = models.StatusSynced
			return rec, nil
		}
		e.logger.Warn(ctx, "inline insert failed, queueing", "table", table, "id", rec.ID)
		if err := e.store.Put(ctx, table, rec, models.StatusPending); err != nil {
			return nil, err
		}
	} else {
		if err := e.store.Put(ctx, table, rec, models.StatusPending); err != nil {
			return nil, err
		}
	}
	rec.Status = models.StatusPending

	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if err := e.enqueue(ctx, sess.UserID, table, models.ActionInsert, payload); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update merges fields over the existing record and bumps updated_at. Only
// the changed fields plus the identifier travel to the remote (inline or
// queued), keeping the conflict surface on replay minimal.
func (e *Engine) Update(ctx context.Context, table models.Table, id string, fields map[string]any) (*models.Record, error) {
	sess, err := e.currentSession()
	if err != nil {
		return nil, err
	}

	rec, err := e.store.Get(ctx, sess.UserID, table, id)
	if err != nil {
		return nil, err
	}

	if rec.Fields == nil {
		rec.Fields = map[string]any{}
	}
	for k, v := range fields {
		if k == "id" || k == "user_id" || k == "created_at" {
			continue
		}
		rec.Fields[k] = v
	}
	rec.UpdatedAt = e.now().UTC()

	delta := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		delta[k] = v
	}
	delta["id"] = id
	delta["updated_at"] = rec.UpdatedAt.Format(time.RFC3339Nano)

	if e.monitor.Online() {
		if err := e.store.Put(ctx, table, rec, models.StatusSynced); err != nil {
			return nil, err
		}
		if err := e.remote.Update(ctx, table, id, withoutID(delta)); err == nil {
			rec.Status = models.StatusSynced
			return rec, nil
		}
		e.logger.Warn(ctx, "inline update failed, queueing", "table", table, "id", id)
		if err := e.store.Put(ctx, table, rec, models.StatusPending); err != nil {
			return nil, err
		}
	} else {
		if err := e.store.Put(ctx, table, rec, models.StatusPending); err != nil {
			return nil, err
		}
	}
	rec.Status = models.StatusPending

	payload, err := json.Marshal(delta)
	if err != nil {
		return nil, err
	}
	if err := e.enqueue(ctx, sess.UserID, table, models.ActionUpdate, payload); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes a record: soft (into trash, restorable for the retention
// window) unless permanent. The remote delete follows the same inline-or-
// queued branching as the other mutations.
func (e *Engine) Delete(ctx context.Context, table models.Table, id string, permanent bool) error {
	sess, err := e.currentSession()
	if err != nil {
		return err
	}

	if permanent {
		if err := e.store.Delete(ctx, sess.UserID, table, id); err != nil {
			return err
		}
	} else {
		if _, err := e.store.MoveToTrash(ctx, sess.UserID, table, id); err != nil {
			return err
		}
	}

	if e.monitor.Online() {
		if err := e.remote.Delete(ctx, table, id); err == nil {
			return nil
		}
		e.logger.Warn(ctx, "inline delete failed, queueing", "table", table, "id", id)
	}

	payload, err := json.Marshal(map[string]any{"id": id})
	if err != nil {
		return err
	}
	return e.enqueue(ctx, sess.UserID, table, models.ActionDelete, payload)
}

// --- trash ---

// GetTrash returns the user's trash, most recently deleted first.
func (e *Engine) GetTrash(ctx context.Context) ([]models.TrashItem, error) {
	sess, err := e.currentSession()
	if err != nil {
		return nil, err
	}
	return e.store.TrashItems(ctx, sess.UserID)
}

// RestoreFromTrash puts the record back into its table and queues a remote
// re-insert; the remote may have already deleted it, so restoration always
// goes through the queue (upsert replay makes this idempotent).
func (e *Engine) RestoreFromTrash(ctx context.Context, trashID string) (*models.Record, error) {
	sess, err := e.currentSession()
	if err != nil {
		return nil, err
	}

	item, err := e.store.RestoreFromTrash(ctx, sess.UserID, trashID)
	if err != nil {
		return nil, err
	}

	rec := item.Data.Clone()
	rec.Status = models.StatusPending
	payload, err := json.Marshal(&rec)
	if err != nil {
		return nil, err
	}
	if err := e.enqueue(ctx, sess.UserID, item.Table, models.ActionInsert, payload); err != nil {
		return nil, err
	}

	if e.monitor.Online() {
		e.scheduleDrain(ctx, 0)
	}
	return &rec, nil
}

// PermanentDeleteFromTrash purges one trash item for good.
func (e *Engine) PermanentDeleteFromTrash(ctx context.Context, trashID string) error {
	sess, err := e.currentSession()
	if err != nil {
		return err
	}
	return e.store.DeleteFromTrash(ctx, sess.UserID, trashID)
}

// --- queue ---

func (e *Engine) enqueue(ctx context.Context, userID string, table models.Table, action models.ActionType, payload json.RawMessage) error {
	_, err := e.store.AddPendingAction(ctx, &models.PendingAction{
		UserID: userID,
		Table:  table,
		Action: action,
		Data:   payload,
	})
	return err
}

// DrainQueue replays queued actions against the remote, oldest first. It is
// a no-op when offline, when a drain is already running, or when the queue
// is empty. Each confirmed action is removed from the queue and its record
// flipped to synced; a failed action stays queued and, unless
// StopOnFirstError is set, does not block the rest of the pass. Any progress
// triggers a rehydration so the local store ends up matching the remote.
func (e *Engine) DrainQueue(ctx context.Context) (SyncResult, error) {
	var res SyncResult

	sess, err := e.currentSession()
	if err != nil {
		return res, err
	}
	if !e.monitor.Online() {
		return res, nil
	}
	if !e.syncing.CompareAndSwap(false, true) {
		return res, nil
	}
	defer e.syncing.Store(false)

	actions, err := e.store.PendingActions(ctx, sess.UserID)
	if err != nil {
		return res, err
	}
	if len(actions) == 0 {
		return res, nil
	}

	e.logger.Info(ctx, "draining pending actions", "count", len(actions))
	for _, a := range actions {
		if err := e.replay(ctx, a); err != nil {
			res.Failed++
			e.logger.Warn(ctx, "replay failed, action stays queued",
				"action", a.Action, "table", a.Table, "id", a.TargetID(), "error", err)
			if e.cfg.StopOnFirstError {
				break
			}
			continue
		}

		if err := e.store.RemovePendingAction(ctx, sess.UserID, a.ID); err != nil {
			return res, err
		}
		if a.Action != models.ActionDelete {
			if err := e.store.MarkSynced(ctx, sess.UserID, a.Table, a.TargetID()); err != nil && !errors.Is(err, common.ErrNotFound) {
				return res, err
			}
		}
		res.Replayed++
	}

	// Refresh from the remote only when something actually landed there. A
	// pass with zero successes left the remote unchanged and probably means
	// the link is still bad; rehydrating then would replace the optimistic
	// pending records with stale remote rows mid-outage.
	if res.Replayed > 0 {
		if err := e.hydrate(ctx, sess); err != nil {
			e.logger.Warn(ctx, "post-drain hydration failed", "error", err)
		}
	}
	e.logger.Info(ctx, "drain finished", "replayed", res.Replayed, "failed", res.Failed)
	return res, nil
}

// replay applies one queued action to the remote. Inserts go through upsert
// so a replay after a partial earlier success cannot fail on duplicates.
func (e *Engine) replay(ctx context.Context, a models.PendingAction) error {
	switch a.Action {
	case models.ActionInsert:
		var rec models.Record
		if err := json.Unmarshal(a.Data, &rec); err != nil {
			return err
		}
		return e.remote.Upsert(ctx, a.Table, rec)
	case models.ActionUpdate:
		var delta map[string]any
		if err := json.Unmarshal(a.Data, &delta); err != nil {
			return err
		}
		return e.remote.Update(ctx, a.Table, a.TargetID(), withoutID(delta))
	case models.ActionDelete:
		err := e.remote.Delete(ctx, a.Table, a.TargetID())
		if errors.Is(err, common.ErrNotFound) {
			// Already gone remotely: the action achieved its intent.
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown action type %q", a.Action)
	}
}

// --- signals ---

// IsOnline reports the connectivity monitor's current state.
func (e *Engine) IsOnline() bool { return e.monitor.Online() }

// IsSyncing reports whether a drain is in flight.
func (e *Engine) IsSyncing() bool { return e.syncing.Load() }

// IsInitialized reports whether Initialize has completed since sign-in.
func (e *Engine) IsInitialized() bool { return e.initialized.Load() }

// PendingCount returns the number of records awaiting sync.
func (e *Engine) PendingCount(ctx context.Context) (int, error) {
	sess, err := e.currentSession()
	if err != nil {
		return 0, err
	}
	return e.store.PendingCount(ctx, sess.UserID)
}

// PendingIDs returns the identifiers of records awaiting sync.
func (e *Engine) PendingIDs(ctx context.Context) (map[string]struct{}, error) {
	sess, err := e.currentSession()
	if err != nil {
		return nil, err
	}
	return e.store.PendingIDs(ctx, sess.UserID)
}

// --- auto-trigger ---

// Watch reacts to connectivity transitions until ctx is cancelled: on each
// reconnect with queued work, a drain is scheduled after the settle delay.
func (e *Engine) Watch(ctx context.Context) {
	events := e.monitor.Subscribe()
	for {
		select {
		case online := <-events:
			if !online {
				continue
			}
			sess, err := e.currentSession()
			if err != nil {
				continue
			}
			n, err := e.store.PendingActionCount(ctx, sess.UserID)
			if err != nil || n == 0 {
				continue
			}
			e.scheduleDrain(ctx, e.cfg.SettleDelay)
		case <-ctx.Done():
			return
		}
	}
}

// scheduleDrain runs a drain after delay, on its own goroutine. Overlapping
// schedules collapse into one drain through the syncing guard.
func (e *Engine) scheduleDrain(ctx context.Context, delay time.Duration) {
	go func() {
		if delay > 0 {
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return
			}
		}
		if _, err := e.DrainQueue(ctx); err != nil {
			e.logger.Error(ctx, "scheduled drain failed", "error", err)
		}
	}()
}

func withoutID(delta map[string]any) map[string]any {
	fields := make(map[string]any, len(delta))
	for k, v := range delta {
		if k == "id" {
			continue
		}
		fields[k] = v
	}
	return fields
}
