package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/summercamps/core"
)

func closedDBError(t *testing.T) error {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Database.Engine = EngineSQLite
	conf.Database.Path = filepath.Join(t.TempDir(), "closed.db")

	db, err := Open(conf)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = db.ExecContext(context.Background(), "SELECT 1")
	require.Error(t, err)
	return err
}

func TestTranslateError(t *testing.T) {
	other := errors.New("boom")

	tests := []struct {
		name         string
		err          error
		wantErr      error
		wantShutdown bool
	}{
		{name: "nil"},
		{name: "no rows", err: sql.ErrNoRows, wantErr: core.ErrNotFound},
		{name: "unique violation", err: &pq.Error{Code: pgUniqueViolation}, wantErr: core.ErrUniqueViolation},
		{name: "foreign key violation", err: &pq.Error{Code: pgForeignKeyViolation}, wantErr: core.ErrForeignKeyViolation},
		{name: "connection done", err: sql.ErrConnDone, wantShutdown: true},
		{name: "bad connection", err: errors.Wrap(driver.ErrBadConn, "querying"), wantShutdown: true},
		{name: "closed pool", err: closedDBError(t), wantShutdown: true},
		{name: "other", err: other, wantErr: other},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TranslateError(tc.err)
			assert.Equal(t, tc.wantShutdown, core.IsShutdown(got))
			if tc.wantShutdown {
				assert.Contains(t, got.Error(), "database connection lost")
				return
			}
			if tc.wantErr == nil {
				assert.NoError(t, got)
				return
			}
			assert.True(t, errors.Is(got, tc.wantErr), "got %v", got)
		})
	}
}
