package rows

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/avolkova/keepsafe/internal/api"
	"github.com/avolkova/keepsafe/internal/common"
	"github.com/avolkova/keepsafe/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestList_OrderedByCreatedAt(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	cols := []string{"id", "user_id", "tbl", "fields", "created_at", "updated_at"}
	mock.ExpectQuery(`SELECT .* FROM rows\s+WHERE user_id = \$1 AND tbl = \$2\s+ORDER BY created_at ASC`).
		WithArgs("u1", "links").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r1", "u1", "links", []byte(`{"title":"a"}`), now.Add(-time.Hour), now).
			AddRow("r2", "u1", "links", []byte(`{"title":"b"}`), now, now))

	rows, err := repo.List(context.Background(), "u1", api.TableLinks)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "r1", rows[0].ID)
	assert.Equal(t, api.TableLinks, rows[0].Table)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(`INSERT INTO rows .* ON CONFLICT \(user_id, tbl, id\) DO UPDATE SET`).
		WithArgs("r1", "u1", "links", []byte(`{"title":"a"}`), now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &models.Row{
		ID: "r1", UserID: "u1", Table: api.TableLinks,
		Fields: []byte(`{"title":"a"}`), CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_RowsAffected(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	t.Run("existing row", func(t *testing.T) {
		mock.ExpectExec(`UPDATE rows SET fields = fields \|\| \$4::jsonb`).
			WithArgs("u1", "links", "r1", []byte(`{"title":"b"}`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(context.Background(), "u1", api.TableLinks, "r1", []byte(`{"title":"b"}`))
		require.NoError(t, err)
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec(`UPDATE rows SET fields = fields \|\| \$4::jsonb`).
			WithArgs("u1", "links", "ghost", []byte(`{}`)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), "u1", api.TableLinks, "ghost", []byte(`{}`))
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestDelete_RowsAffected(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	t.Run("existing row", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM rows WHERE`).
			WithArgs("u1", "ideas", "r1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Delete(context.Background(), "u1", api.TableIdeas, "r1"))
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM rows WHERE`).
			WithArgs("u1", "ideas", "ghost").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), "u1", api.TableIdeas, "ghost")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}
