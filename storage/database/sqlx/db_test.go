package sqlxrepos

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/confsys/core"
	"github.com/trezcool/confsys/core/paper"
	"github.com/trezcool/confsys/core/user"
)

var errBoom = errors.New("boom")

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlite"), mock
}

func Test_trapNoRowsErr(t *testing.T) {
	notFound := core.NewNotFoundError("thing not found")

	assert.Equal(t, notFound, trapNoRowsErr(sql.ErrNoRows, notFound, "getting thing"))
	assert.Equal(t, notFound, trapNoRowsErr(errors.Wrap(sql.ErrNoRows, "wrapped"), notFound, "getting thing"))

	err := trapNoRowsErr(errBoom, notFound, "getting thing")
	assert.Equal(t, errBoom, errors.Cause(err))
	assert.EqualError(t, err, "getting thing: boom")
}

func Test_isUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "pq unique", err: &pq.Error{Code: pgUniqueViolation}, want: true},
		{name: "wrapped pq unique", err: errors.Wrap(&pq.Error{Code: pgUniqueViolation}, "inserting"), want: true},
		{name: "pq fk", err: &pq.Error{Code: "23503"}},
		{name: "other", err: errBoom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}

func Test_repo_runInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM reviews").WithArgs("p1", "r1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM reviewer_papers").WithArgs("r1", "p1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewPaperRepository(db)
		err := repo.RunInTx(ctx, func(tx paper.Repository) error {
			if err := tx.DeleteReview(ctx, "p1", "r1"); err != nil {
				return err
			}
			return tx.RemoveReviewerPaper(ctx, "r1", "p1")
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM reviews").WithArgs("p1", "r1").WillReturnError(errBoom)
		mock.ExpectRollback()

		repo := NewPaperRepository(db)
		err := repo.RunInTx(ctx, func(tx paper.Repository) error {
			if err := tx.DeleteReview(ctx, "p1", "r1"); err != nil {
				return err
			}
			return tx.RemoveReviewerPaper(ctx, "r1", "p1")
		})
		assert.Equal(t, errBoom, errors.Cause(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM reviews").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		repo := NewPaperRepository(db)
		err := repo.RunInTx(ctx, func(tx paper.Repository) error {
			return tx.RunInTx(ctx, func(inner paper.Repository) error {
				return inner.DeleteReview(ctx, "p1", "r1")
			})
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin fails", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin().WillReturnError(errBoom)

		called := false
		err := NewPaperRepository(db).RunInTx(ctx, func(paper.Repository) error {
			called = true
			return nil
		})
		assert.Equal(t, errBoom, errors.Cause(err))
		assert.False(t, called)
	})
}

func Test_userRepository_errors(t *testing.T) {
	ctx := context.Background()

	t.Run("GetUser: no rows", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").WithArgs("u1").WillReturnError(sql.ErrNoRows)

		_, err := NewUserRepository(db).GetUser(ctx, user.GetFilter{ID: "u1"})
		assert.Equal(t, user.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GetUser: db error", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE email = ?").WithArgs("a@b.c").WillReturnError(errBoom)

		_, err := NewUserRepository(db).GetUser(ctx, user.GetFilter{Email: "a@b.c"})
		assert.Equal(t, errBoom, errors.Cause(err))
		assert.False(t, core.IsNotFound(err))
	})

	t.Run("GetUser: empty filter", func(t *testing.T) {
		db, mock := newMock(t)
		_, err := NewUserRepository(db).GetUser(ctx, user.GetFilter{})
		assert.Equal(t, user.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CreateUser: unique violation", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: pgUniqueViolation})

		_, err := NewUserRepository(db).CreateUser(ctx, user.User{Email: "a@b.c"})
		verr, ok := err.(*core.ValidationError)
		require.True(t, ok)
		assert.Equal(t, "email", verr.Fields[0].Field)
	})

	t.Run("UpdateUser: not found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := NewUserRepository(db).UpdateUser(ctx, user.User{ID: "u1", Email: "a@b.c"})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("GetUsersByID: empty", func(t *testing.T) {
		db, mock := newMock(t)
		users, err := NewUserRepository(db).GetUsersByID(ctx, nil)
		assert.NoError(t, err)
		assert.Empty(t, users)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func Test_paperRepository_errors(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("CreateReview: unique violation", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("INSERT INTO reviews").WillReturnError(&pq.Error{Code: pgUniqueViolation})

		_, err := NewPaperRepository(db).CreateReview(ctx, paper.Review{
			PaperID: "p1", ReviewerID: "r1", Score: 3, CreatedAt: now, UpdatedAt: now,
		})
		assert.Equal(t, paper.ErrDuplicateReview, err)
	})

	t.Run("CreateReview: db error", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("INSERT INTO reviews").WillReturnError(errBoom)

		_, err := NewPaperRepository(db).CreateReview(ctx, paper.Review{PaperID: "p1", ReviewerID: "r1", Score: 3})
		assert.Equal(t, errBoom, errors.Cause(err))
	})

	t.Run("UpdateReview: not found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("UPDATE reviews").WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := NewPaperRepository(db).UpdateReview(ctx, paper.Review{ID: "rv1", Score: 3, UpdatedAt: now})
		assert.Equal(t, paper.ErrReviewNotFound, err)
	})

	t.Run("GetReview: no rows", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("SELECT (.+) FROM reviews").WithArgs("p1", "r1").WillReturnError(sql.ErrNoRows)

		_, err := NewPaperRepository(db).GetReview(ctx, "p1", "r1")
		assert.Equal(t, paper.ErrReviewNotFound, err)
	})

	t.Run("IsReviewer", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("SELECT EXISTS").WithArgs("u1", "p1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT EXISTS").WithArgs("u2", "p1").WillReturnError(errBoom)

		repo := NewPaperRepository(db)
		ok, err := repo.IsReviewer(ctx, "u1", "p1")
		assert.NoError(t, err)
		assert.True(t, ok)

		_, err = repo.IsReviewer(ctx, "u2", "p1")
		assert.Equal(t, errBoom, errors.Cause(err))
	})
}
