package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"wallhub/internal/gateway"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestImageRepository_List(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewImageRepository(db)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		filter       gateway.ImageFilter
		mockBehavior func()
		wantIDs      []string
	}{
		{
			name: "all rows newest first",
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "title", "image_url", "tags", "created_at"}).
					AddRow("b", "Second", "https://x/b.jpg", "{sea,sky}", created).
					AddRow("a", "First", "https://x/a.jpg", "{}", created.Add(-time.Hour))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "images" ORDER BY created_at DESC`)).
					WillReturnRows(rows)
			},
			wantIDs: []string{"b", "a"},
		},
		{
			name:   "search term",
			filter: gateway.ImageFilter{Query: "ocean"},
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "title", "image_url", "tags", "created_at"}).
					AddRow("o", "Ocean Wave", "https://x/o.jpg", "{ocean}", created)
				mock.ExpectQuery(regexp.QuoteMeta(`title ILIKE $1 OR description ILIKE $2 OR $3 = ANY(tags)`)).
					WithArgs("%ocean%", "%ocean%", "ocean").
					WillReturnRows(rows)
			},
			wantIDs: []string{"o"},
		},
		{
			name:   "mixed case term lowercases the tag arm",
			filter: gateway.ImageFilter{Query: "Ocean"},
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "title", "image_url", "tags", "created_at"}).
					AddRow("t", "Blue Hour", "https://x/t.jpg", "{ocean}", created)
				mock.ExpectQuery(regexp.QuoteMeta(`title ILIKE $1 OR description ILIKE $2 OR $3 = ANY(tags)`)).
					WithArgs("%Ocean%", "%Ocean%", "ocean").
					WillReturnRows(rows)
			},
			wantIDs: []string{"t"},
		},
		{
			name:   "by uploader",
			filter: gateway.ImageFilter{UploadedBy: "user-1"},
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`WHERE uploaded_by = $1 ORDER BY created_at DESC`)).
					WithArgs("user-1").
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			rows, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(rows))
			for _, r := range rows {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestImageRepository_Delete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewImageRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "images" WHERE id = $1`)).
		WithArgs("img-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "img-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_GetByUserID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "user_profiles" WHERE user_id = $1`)).
		WithArgs("user-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}))

	p, err := repo.GetByUserID(context.Background(), "user-1")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_GetByUserID_Found(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "user_profiles" WHERE user_id = $1`)).
		WithArgs("user-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "username", "total_uploads"}).
			AddRow("p-1", "user-1", "user_user-1", 3))

	p, err := repo.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	require.NotNil(t, p.Username)
	assert.Equal(t, "user_user-1", *p.Username)
	assert.Equal(t, 3, p.TotalUploads)
}

func TestLikeRepository_DuplicateInsert(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLikeRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "image_likes"`)).
		WillReturnError(&pgconn.PgError{Code: gateway.CodeUniqueViolation, Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Insert(context.Background(), "img-1", "user-1")
	assert.ErrorIs(t, err, gateway.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepository_Delete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLikeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "image_likes" WHERE image_id = $1 AND user_id = $2`)).
		WithArgs("img-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "img-1", "user-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepository_DeleteMissing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLikeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "image_likes" WHERE image_id = $1 AND user_id = $2`)).
		WithArgs("img-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "img-1", "user-1")
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcedures(t *testing.T) {
	db, mock := setupMockDB(t)
	procs := NewProcedures(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "image_likes" WHERE image_id = $1`)).
		WithArgs("img-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	n, err := procs.ImageLikeCount(ctx, "img-1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "image_likes" WHERE image_id = $1 AND user_id = $2`)).
		WithArgs("img-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	liked, err := procs.UserLikedImage(ctx, "img-1", "user-1")
	require.NoError(t, err)
	assert.False(t, liked)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "user_profiles" SET "total_uploads"=total_uploads + $1 WHERE user_id = $2`)).
		WithArgs(1, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, procs.IncrementUserUploads(ctx, "user-1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_off`, escapeLike("100%_off"))
}
