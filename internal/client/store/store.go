// Package store implements the client-side Local Store: a durable SQLite
// database holding the vault's records, the trash area, the pending-action
// queue, the offline credential vault, and the persisted current-user
// pointer. Mutations that touch more than one table (trash moves, restores)
// run inside a single transaction so readers never observe a partial effect.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avolkova/keepsafe/internal/client/migrations"
	"github.com/avolkova/keepsafe/internal/client/models"
	"github.com/avolkova/keepsafe/internal/client/repositories/creds"
	"github.com/avolkova/keepsafe/internal/client/repositories/metadata"
	"github.com/avolkova/keepsafe/internal/client/repositories/pending"
	"github.com/avolkova/keepsafe/internal/client/repositories/records"
	"github.com/avolkova/keepsafe/internal/client/repositories/trash"
	"github.com/avolkova/keepsafe/internal/common"
	"github.com/avolkova/keepsafe/internal/cryptox"
	"github.com/avolkova/keepsafe/internal/dbx"
	"github.com/avolkova/keepsafe/internal/logging"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	// Registers the "sqlite" driver Open relies on.
	_ "modernc.org/sqlite"
)

// metadata keys for the persisted current-user pointer.
const (
	metaUserID   = "current_user_id"
	metaEmail    = "current_user_email"
	metaFullName = "current_user_name"
	metaToken    = "current_user_token"
)

// LocalStore owns the SQLite database and composes the per-concern
// repositories into the operations the sync engine needs.
type LocalStore struct {
	db     *sql.DB
	logger logging.Logger

	// now is swappable in tests for expiry checks.
	now func() time.Time
}

// Open opens (creating if needed) the SQLite database at dsn and brings the
// schema up to date.
func Open(ctx context.Context, dsn string, logger logging.Logger) (*LocalStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", common.StorageError(err))
	}
	// SQLite allows one writer; a single pooled connection also keeps
	// in-memory databases coherent across the pool.
	db.SetMaxOpenConns(1)
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate local database: %w", common.StorageError(err))
	}
	return &LocalStore{db: db, logger: logger, now: time.Now}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Close closes the underlying database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for tests.
func (s *LocalStore) DB() *sql.DB { return s.db }

func (s *LocalStore) records(db dbx.DBTX) records.Repository   { return records.NewSQLiteRepository(db) }
func (s *LocalStore) trash(db dbx.DBTX) trash.Repository       { return trash.NewSQLiteRepository(db) }
func (s *LocalStore) pending(db dbx.DBTX) pending.Repository   { return pending.NewSQLiteRepository(db) }
func (s *LocalStore) creds(db dbx.DBTX) creds.Repository       { return creds.NewSQLiteRepository(db) }
func (s *LocalStore) metadata(db dbx.DBTX) metadata.Repository { return metadata.NewSQLiteRepository(db) }

// --- records ---

// Get returns one record, or common.ErrNotFound.
func (s *LocalStore) Get(ctx context.Context, userID string, table models.Table, id string) (*models.Record, error) {
	return s.records(s.db).Get(ctx, userID, table, id)
}

// GetAll returns every record of one table, in no particular order.
func (s *LocalStore) GetAll(ctx context.Context, userID string, table models.Table) ([]models.Record, error) {
	return s.records(s.db).GetAll(ctx, userID, table)
}

// Put upserts a record with the given sync status.
func (s *LocalStore) Put(ctx context.Context, table models.Table, rec *models.Record, status models.SyncStatus) error {
	return s.records(s.db).Put(ctx, table, rec, status)
}

// PutMany atomically replaces the table's contents with recs, all stamped
// with the given status. Used by full rehydration from the remote service.
func (s *LocalStore) PutMany(ctx context.Context, userID string, table models.Table, recs []models.Record, status models.SyncStatus) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.records(tx).ReplaceAll(ctx, userID, table, recs, status)
	})
}

// Delete removes a record permanently, leaving no tombstone.
func (s *LocalStore) Delete(ctx context.Context, userID string, table models.Table, id string) error {
	return s.records(s.db).Delete(ctx, userID, table, id)
}

// MarkSynced flips one record to synced after its remote write is confirmed.
func (s *LocalStore) MarkSynced(ctx context.Context, userID string, table models.Table, id string) error {
	return s.records(s.db).SetStatus(ctx, userID, table, id, models.StatusSynced)
}

// PendingCount counts records awaiting sync across all tables.
func (s *LocalStore) PendingCount(ctx context.Context, userID string) (int, error) {
	return s.records(s.db).PendingCount(ctx, userID)
}

// PendingIDs returns identifiers of records awaiting sync across all tables.
func (s *LocalStore) PendingIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	return s.records(s.db).PendingIDs(ctx, userID)
}

// --- trash ---

// MoveToTrash removes the record from its live table and stores its snapshot
// in trash, in one transaction. Returns common.ErrNotFound, with no partial
// effect, if the record no longer exists.
func (s *LocalStore) MoveToTrash(ctx context.Context, userID string, table models.Table, id string) (*models.TrashItem, error) {
	var item *models.TrashItem

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rec, err := s.records(tx).Get(ctx, userID, table, id)
		if err != nil {
			return err
		}
		if err := s.records(tx).Delete(ctx, userID, table, id); err != nil {
			return err
		}

		now := s.now().UTC()
		item = &models.TrashItem{
			ID:        uuid.NewString(),
			UserID:    userID,
			Table:     table,
			Data:      *rec,
			DeletedAt: now,
			ExpiresAt: now.Add(models.TrashRetention),
		}
		return s.trash(tx).Insert(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RestoreFromTrash removes the trash item and re-creates its record in the
// original table with status pending, so the restoration gets queued for
// remote re-insertion by the caller. Returns common.ErrNotFound if the item
// is gone (already expired, purged, or restored twice).
func (s *LocalStore) RestoreFromTrash(ctx context.Context, userID, trashID string) (*models.TrashItem, error) {
	var item *models.TrashItem

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		item, err = s.trash(tx).Get(ctx, userID, trashID)
		if err != nil {
			return err
		}
		// An expired item awaiting purge is as good as gone.
		if item.Expired(s.now()) {
			return common.ErrNotFound
		}
		ok, err := s.trash(tx).Delete(ctx, userID, trashID)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrNotFound
		}

		rec := item.Data.Clone()
		return s.records(tx).Put(ctx, item.Table, &rec, models.StatusPending)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteFromTrash permanently purges one trash item. Purging an absent item
// is a no-op.
func (s *LocalStore) DeleteFromTrash(ctx context.Context, userID, trashID string) error {
	_, err := s.trash(s.db).Delete(ctx, userID, trashID)
	return err
}

// TrashItems returns the user's trash, most recently deleted first.
func (s *LocalStore) TrashItems(ctx context.Context, userID string) ([]models.TrashItem, error) {
	return s.trash(s.db).GetAll(ctx, userID)
}

// CleanExpiredTrash purges all trash items past their expiry and returns the
// number purged. Safe to call repeatedly.
func (s *LocalStore) CleanExpiredTrash(ctx context.Context, userID string) (int64, error) {
	return s.trash(s.db).DeleteExpired(ctx, userID, s.now())
}

// --- pending actions ---

// AddPendingAction queues a mutation for later replay. Assigns the action an
// id and timestamp if unset, and returns the id.
func (s *LocalStore) AddPendingAction(ctx context.Context, a *models.PendingAction) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = s.now().UTC()
	}
	if err := s.pending(s.db).Add(ctx, a); err != nil {
		return "", err
	}
	return a.ID, nil
}

// PendingActions returns queued actions ordered by (timestamp, seq) ascending.
func (s *LocalStore) PendingActions(ctx context.Context, userID string) ([]models.PendingAction, error) {
	return s.pending(s.db).List(ctx, userID)
}

// RemovePendingAction deletes a replayed action from the queue.
func (s *LocalStore) RemovePendingAction(ctx context.Context, userID, id string) error {
	return s.pending(s.db).Remove(ctx, userID, id)
}

// PendingActionCount returns the queue length for the user.
func (s *LocalStore) PendingActionCount(ctx context.Context, userID string) (int, error) {
	return s.pending(s.db).Count(ctx, userID)
}

// --- current user ---

// SetCurrentUser persists the session as the active-user pointer, so a
// restarted process can resume offline.
func (s *LocalStore) SetCurrentUser(ctx context.Context, sess *models.Session) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.metadata(tx)
		if err := repo.Set(ctx, metaUserID, []byte(sess.UserID)); err != nil {
			return err
		}
		if err := repo.Set(ctx, metaEmail, []byte(sess.Email)); err != nil {
			return err
		}
		if err := repo.Set(ctx, metaFullName, []byte(sess.FullName)); err != nil {
			return err
		}
		return repo.Set(ctx, metaToken, []byte(sess.AccessToken))
	})
}

// CurrentUser returns the persisted session, or nil if nobody is signed in.
func (s *LocalStore) CurrentUser(ctx context.Context) (*models.Session, error) {
	repo := s.metadata(s.db)

	userID, err := repo.Get(ctx, metaUserID)
	if err != nil {
		return nil, err
	}
	if len(userID) == 0 {
		return nil, nil
	}

	email, err := repo.Get(ctx, metaEmail)
	if err != nil {
		return nil, err
	}
	fullName, err := repo.Get(ctx, metaFullName)
	if err != nil {
		return nil, err
	}
	token, err := repo.Get(ctx, metaToken)
	if err != nil {
		return nil, err
	}

	return &models.Session{
		UserID:      string(userID),
		Email:       string(email),
		FullName:    string(fullName),
		AccessToken: string(token),
	}, nil
}

// ClearCurrentUser drops the persisted pointer on sign-out. Records and the
// pending queue stay, keyed by user id, for the next sign-in.
func (s *LocalStore) ClearCurrentUser(ctx context.Context) error {
	return s.metadata(s.db).Clear(ctx)
}

// --- offline credentials ---

// SaveCredentials hashes the password and stores (or replaces) the offline
// login material for email.
func (s *LocalStore) SaveCredentials(ctx context.Context, email string, password []byte, userID, fullName string) error {
	hash, salt := cryptox.HashPassword(password)
	return s.creds(s.db).Upsert(ctx, &models.Credential{
		Email:    email,
		UserID:   userID,
		FullName: fullName,
		Salt:     salt,
		Hash:     hash,
	})
}

// VerifyOfflineCredentials checks email/password against the locally stored
// hash and returns the matching session. A wrong password and an unknown
// email both yield common.ErrUnauthenticated; the two cases are deliberately
// indistinguishable to the caller.
func (s *LocalStore) VerifyOfflineCredentials(ctx context.Context, email string, password []byte) (*models.Session, error) {
	c, err := s.creds(s.db).GetByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if !cryptox.VerifyPassword(password, c.Salt, c.Hash) {
		return nil, common.ErrUnauthenticated
	}
	return &models.Session{UserID: c.UserID, Email: c.Email, FullName: c.FullName}, nil
}

// CreateOfflineAccount registers a fully local account with a fresh user id.
// A second account for the same email fails with common.ErrDuplicateAccount.
func (s *LocalStore) CreateOfflineAccount(ctx context.Context, email string, password []byte, fullName string) (*models.Session, error) {
	hash, salt := cryptox.HashPassword(password)
	c := &models.Credential{
		Email:    email,
		UserID:   uuid.NewString(),
		FullName: fullName,
		Salt:     salt,
		Hash:     hash,
	}
	if err := s.creds(s.db).Insert(ctx, c); err != nil {
		return nil, err
	}
	return &models.Session{UserID: c.UserID, Email: c.Email, FullName: c.FullName}, nil
}
