// Package sqlstore implements the repositories on PostgreSQL and SQLite.
// Queries are built with squirrel and scanned with sqlx.
package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/storage/database"
)

// Store holds the connection shared by the repositories.
type Store struct {
	db     core.DB
	engine string
	sb     sq.StatementBuilderType
}

func New(db core.DB, engine string) *Store {
	var format sq.PlaceholderFormat = sq.Question
	if database.IsPostgres(engine) {
		format = sq.Dollar
	}
	return &Store{db: db, engine: engine, sb: sq.StatementBuilder.PlaceholderFormat(format)}
}

func (s *Store) DB() core.DB { return s.db }

func (s *Store) Engine() string { return s.engine }

// ilike matches col case-insensitively. SQLite's LIKE already ignores ASCII case.
func (s *Store) ilike(col, pattern string) sq.Sqlizer {
	if database.IsPostgres(s.engine) {
		return sq.ILike{col: pattern}
	}
	return sq.Like{col: pattern}
}

// search matches term anywhere in any of cols.
func (s *Store) search(term string, cols ...string) sq.Sqlizer {
	pattern := contains(term)
	or := make(sq.Or, len(cols))
	for i, col := range cols {
		or[i] = s.ilike(col, pattern)
	}
	return or
}

// lowerEq compares col to value ignoring case.
func lowerEq(col, value string) sq.Sqlizer {
	return sq.Expr("LOWER("+col+") = ?", strings.ToLower(value))
}

func contains(term string) string { return "%" + term + "%" }

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (s *Store) selectx(ctx context.Context, ext core.DBExecutor, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return database.TranslateError(sqlx.SelectContext(ctx, ext, dest, query, args...))
}

func (s *Store) getx(ctx context.Context, ext core.DBExecutor, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return database.TranslateError(sqlx.GetContext(ctx, ext, dest, query, args...))
}

func (s *Store) exec(ctx context.Context, ext core.DBExecutor, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	res, err := ext.ExecContext(ctx, query, args...)
	return res, database.TranslateError(err)
}

// execOne fails with core.ErrNotFound when no row was touched.
func (s *Store) execOne(ctx context.Context, b sq.Sqlizer) error {
	res, err := s.exec(ctx, s.db, b)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) count(ctx context.Context, b sq.SelectBuilder) (int, error) {
	var n int
	if err := s.getx(ctx, s.db, &n, b); err != nil {
		return 0, err
	}
	return n, nil
}

// paginate applies p unless it asks for every row.
func paginate(b sq.SelectBuilder, p core.Pagination) sq.SelectBuilder {
	if p.PerPage <= 0 {
		return b
	}
	return b.Limit(uint64(p.Limit())).Offset(uint64(p.Offset()))
}

// inTx runs fn in a transaction, rolled back when fn fails.
func (s *Store) inTx(ctx context.Context, fn func(tx core.DBExecutor) error) error {
	var tx core.DBTransactor
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(database.TranslateError(err), "beginning transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(database.TranslateError(tx.Commit()), "committing transaction")
}
