package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/user"
	"github.com/trezcool/summercamps/storage/blob"
	"github.com/trezcool/summercamps/storage/database"
	"github.com/trezcool/summercamps/storage/database/sqlstore"
	testutil "github.com/trezcool/summercamps/tests"
)

type testCLI struct {
	*commandLine
	store *sqlstore.Store
	out   *bytes.Buffer
}

func setup(t *testing.T) *testCLI {
	t.Helper()
	db := testutil.OpenDB(t)
	blobs, err := blob.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)

	var out bytes.Buffer
	return &testCLI{
		commandLine: newCommandLine(db, blobs, core.NewTestConfig(), core.NopLogger(), &out),
		store:       sqlstore.New(db, database.EngineSQLite),
		out:         &out,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case err == nil:
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() expected an error")
		}
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if !strings.Contains(err.Error(), tt.wantErrStr) {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func mockPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	orig := runMigrationsFunc
	t.Cleanup(func() { runMigrationsFunc = orig })
	runMigrationsFunc = func(_ context.Context, _ *sql.DB, _, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "camp_tags", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_migrateVersion(t *testing.T) {
	cli := setup(t)
	assert.NoError(t, cli.run([]string{"admin", "migrate", "version"}))
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "boss"}, wantErr: errHelp},
		{name: "create admin", args: []string{"adduser", "-username", "Boss", "-email", "boss@test.cd", "-admin"}, extra: "s3cret"},
		{name: "update by email", args: []string{"adduser", "-email", "BOSS@test.cd"}, extra: "n3w-s3cret"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, pwd)
			tt.check(t, cli.run(args))
		})
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "boss"})
	require.NoError(t, err)
	assert.Equal(t, "boss@test.cd", usr.Email)
	assert.True(t, usr.IsActive)
	assert.ElementsMatch(t, user.AllRoles, usr.Roles)
	assert.NoError(t, usr.CheckPassword("n3w-s3cret"))

	users, err := cli.usrRepo.QueryUsers(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, cli.usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: "lmao"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)

		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, pwd)
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				refreshedUsr, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				require.NoError(t, err)
				assert.NoError(t, refreshedUsr.CheckPassword(pwd))
			}
		})
	}
}

func Test_commandLine_importExport(t *testing.T) {
	cli := setup(t)
	dir := t.TempDir()
	csvFile := filepath.Join(dir, "orgs.csv")
	require.NoError(t, os.WriteFile(csvFile, []byte("Name,Slug,Status\nLakeside,lakeside,active\nBroken,,active\n"), 0o644))

	tests := []cliTest{
		{name: "no args", args: []string{"import"}, wantErr: errHelp},
		{name: "missing file", args: []string{"import", "-table", "organisations", "-file", filepath.Join(dir, "lol.csv")}, wantErrStr: "opening import file"},
		{name: "bad format", args: []string{"import", "-table", "organisations", "-file", csvFile, "-format", "xml"}, wantErrStr: "Unsupported format: xml"},
		{name: "unknown table", args: []string{"import", "-table", "lol", "-file", csvFile}, wantErrStr: "Unknown table"},
		{name: "read-only table", args: []string{"import", "-table", "communications", "-file", csvFile}, wantErrStr: "Permission denied"},
		{name: "dry run", args: []string{"import", "-table", "organisations", "-file", csvFile, "-dry-run"}},
		{name: "import", args: []string{"import", "-table", "organisations", "-file", csvFile}},
		{name: "export: no table", args: []string{"export"}, wantErr: errHelp},
		{name: "export: bad format", args: []string{"export", "-table", "organisations", "-format", "xml"}, wantErrStr: "Unsupported format"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
	assert.Contains(t, cli.out.String(), "1 of 2 rows are valid (dry run)")
	assert.Contains(t, cli.out.String(), "imported 1 of 2 rows into organisations")
	assert.Contains(t, cli.out.String(), `row 3: Slug: This field is required ("")`)

	cli.out.Reset()
	require.NoError(t, cli.run([]string{"admin", "export", "-table", "organisations", "-format", "json"}))
	assert.Contains(t, cli.out.String(), `"slug": "lakeside"`)

	outFile := filepath.Join(dir, "orgs-export.csv")
	cli.out.Reset()
	require.NoError(t, cli.run([]string{"admin", "export", "-table", "organisations", "-out", outFile}))
	assert.Equal(t, "exported 1 rows of organisations to "+outFile+"\n", cli.out.String())
	content, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "ID,Name,Slug"))
	assert.Contains(t, string(content), "Lakeside,lakeside")
}

func Test_commandLine_generatePages(t *testing.T) {
	cli := setup(t)
	orgID := testutil.CreateOrganisation(t, cli.store, "Lakeside Adventures", "hello@lakeside.test")
	testutil.CreateCamp(t, cli.store, orgID, "Sailing Week", map[string]interface{}{
		"category": "Sailing", "location": "Lake Tahoe", "min_age": 9, "max_age": 12,
	})

	require.NoError(t, cli.run([]string{"admin", "genpages"}))
	assert.Equal(t, "4 pages created, 0 updated\n", cli.out.String())

	cli.out.Reset()
	require.NoError(t, cli.run([]string{"admin", "genpages"}))
	assert.Equal(t, "0 pages created, 4 updated\n", cli.out.String())
}
