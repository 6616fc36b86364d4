// Package testutil prepares migrated databases and fixtures for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/user"
	"github.com/trezcool/summercamps/storage/database"
	"github.com/trezcool/summercamps/storage/database/sqlstore"
)

// PrepareDB opens a fresh, migrated SQLite database in a temp dir. It is closed when the test ends.
func PrepareDB(t *testing.T) *sqlstore.Store {
	t.Helper()
	return sqlstore.New(OpenDB(t), database.EngineSQLite)
}

// OpenDB is PrepareDB without the store, for callers that need the raw pool.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Database.Engine = database.EngineSQLite
	conf.Database.Path = filepath.Join(t.TempDir(), "test.db")

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db.DB, conf.Database.Engine); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// Insert writes a fixture row. Missing id, created_at and updated_at columns are filled in.
func Insert(t *testing.T, store *sqlstore.Store, table string, values map[string]interface{}) string {
	t.Helper()
	row := make(map[string]interface{}, len(values)+3)
	for k, v := range values {
		row[k] = v
	}
	if _, ok := row["id"]; !ok {
		row["id"] = uuid.New().String()
	}
	now := time.Now().UTC()
	for _, col := range timestampColumns(table) {
		if _, ok := row[col]; !ok {
			row[col] = now
		}
	}

	query, args, err := sq.Insert(table).SetMap(row).ToSql()
	if err != nil {
		t.Fatalf("Insert(%s) failed: %v", table, err)
	}
	if _, err := store.DB().ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("Insert(%s) failed: %v", table, err)
	}
	return row["id"].(string)
}

func timestampColumns(table string) []string {
	switch table {
	case "blog_post_tags":
		return nil
	case "blog_tags", "communications":
		return []string{"created_at"}
	}
	return []string{"created_at", "updated_at"}
}

func CreateOrganisation(t *testing.T, store *sqlstore.Store, name, email string) string {
	t.Helper()
	return Insert(t, store, "organisations", map[string]interface{}{
		"name":   name,
		"slug":   core.Slugify(name),
		"email":  email,
		"status": "active",
	})
}

// CreateCamp inserts a camp of orgID; values override the defaults.
func CreateCamp(t *testing.T, store *sqlstore.Store, orgID, name string, values map[string]interface{}) string {
	t.Helper()
	row := map[string]interface{}{
		"organisation_id": orgID,
		"name":            name,
		"slug":            core.Slugify(name),
		"status":          "published",
		"currency":        "USD",
	}
	for k, v := range values {
		row[k] = v
	}
	return Insert(t, store, "camps", row)
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
