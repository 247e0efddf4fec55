package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// repo is embedded by the repositories. db is nil when exec is a transaction.
type repo struct {
	db   *sqlx.DB
	exec sqlx.ExtContext
}

func newRepo(db *sqlx.DB) repo {
	return repo{db: db, exec: db}
}

// runInTx runs fn in a transaction, or within the current one if the repo is already bound to it.
func (r repo) runInTx(ctx context.Context, fn func(tx repo) error) error {
	if r.db == nil {
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(repo{exec: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back transaction: %v", rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

func (r repo) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, r.exec, dest, r.exec.Rebind(query), args...)
}

func (r repo) selectIn(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, r.exec, dest, r.exec.Rebind(query), args...)
}

func (r repo) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, r.exec, dest, r.exec.Rebind(query), args...)
}

func (r repo) execOne(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := r.exec.ExecContext(ctx, r.exec.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r repo) namedExec(ctx context.Context, query string, arg interface{}) error {
	_, err := sqlx.NamedExecContext(ctx, r.exec, query, arg)
	return err
}

func (r repo) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var found bool
	err := r.get(ctx, &found, "SELECT EXISTS ("+query+")", args...)
	return found, err
}

// trapNoRowsErr maps "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation reports whether err was raised by a UNIQUE constraint, on postgres or sqlite.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(sqliteErr.Error(), "UNIQUE")
		}
	}
	return false
}
