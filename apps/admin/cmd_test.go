package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grupka/grupka/core/group"
	"github.com/grupka/grupka/core/user"
	testutil "github.com/grupka/grupka/tests"
)

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string   // prompted password
	wantErr    error
	wantErrStr string
}

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	t.Helper()

	env := testutil.NewEnv(t)
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	out := new(bytes.Buffer)
	return &commandLine{
		db:      db,
		usrSvc:  env.UserSvc,
		usrRepo: env.UserRepo,
		grpSvc:  env.GroupSvc,
		out:     out,
	}, env, out
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func (cli *commandLine) check(t *testing.T, tt cliTest) {
	t.Helper()

	mockPassword(t, tt.pwd)
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.ErrorIs(t, err, tt.wantErr)
	case tt.wantErrStr != "":
		assert.EqualError(t, err, tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	var gotCmd string
	orig := gooseRunFunc
	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		gotCmd = command
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
	t.Cleanup(func() { gooseRunFunc = orig })

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_event_location", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli.check(t, tt)
		})
	}
	assert.Equal(t, "create", gotCmd)

	t.Run("no sql database", func(t *testing.T) {
		cli.db = nil
		cli.check(t, cliTest{args: []string{"migrate", "up"}, wantErr: errNoSQLDB})
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env, out := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "missing flags", args: []string{"adduser", "--email", "ann@grupka.test"}, pwd: testutil.Password,
			wantErrStr: `required flag(s) "name" not set`},
		{name: "empty password", args: []string{"adduser", "--email", "ann@grupka.test", "--name", "Ann"}, wantErr: errEmptyPwd},
		{name: "active user", args: []string{"adduser", "--email", "ann@grupka.test", "--name", "Ann"}, pwd: testutil.Password},
		{name: "email taken", args: []string{"adduser", "--email", "ANN@grupka.test", "--name", "Ann"}, pwd: testutil.Password,
			wantErrStr: user.ErrEmailExists.Error()},
		{name: "inactive user", args: []string{"adduser", "--email", "bob@grupka.test", "--name", "Bob", "--inactive"},
			pwd: testutil.Password},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli.check(t, tt)
		})
	}

	ann, err := env.UserSvc.GetByEmail(ctx, "ann@grupka.test")
	require.NoError(t, err)
	assert.True(t, ann.IsActive)
	_, err = env.UserSvc.Authenticate(ctx, user.Credentials{Email: ann.Email, Password: testutil.Password})
	assert.NoError(t, err)

	bob, err := env.UserSvc.GetByEmail(ctx, "bob@grupka.test")
	require.NoError(t, err)
	assert.False(t, bob.IsActive)
	assert.Contains(t, out.String(), "created user bob@grupka.test")
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env, out := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, env.UserRepo, "Ann", "ann@grupka.test", testutil.Password, true)
	newPwd := "Zt7$wQe4!rVb"

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, pwd: newPwd, wantErrStr: `required flag(s) "email" not set`},
		{name: "no password", args: []string{"resetpassword", "--email", usr.Email}, wantErr: errEmptyPwd},
		{name: "user not found", args: []string{"resetpassword", "--email", "lol@grupka.test"}, pwd: newPwd, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "--email", usr.Email}, pwd: newPwd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli.check(t, tt)
		})
	}

	_, err := env.UserSvc.Authenticate(ctx, user.Credentials{Email: usr.Email, Password: newPwd})
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "password updated for ann@grupka.test")
}

func Test_commandLine_purgeInvites(t *testing.T) {
	cli, env, out := setup(t)
	ctx := context.Background()

	ann := testutil.CreateUser(t, env.UserRepo, "Ann", "ann@grupka.test", testutil.Password, true)
	grp := testutil.CreateGroup(t, env.GroupSvc, ann, "Sunflowers")
	now := time.Now().UTC()
	_, err := env.GroupRepo.CreateInvite(ctx, group.Invite{
		Code:      "EXPIRED1",
		GroupID:   grp.ID,
		CreatedBy: ann.ID,
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)

	cli.check(t, cliTest{args: []string{"purgeinvites"}})
	assert.Contains(t, out.String(), "purged 1 expired invite(s)")

	_, err = env.GroupRepo.GetInvite(ctx, "EXPIRED1")
	assert.ErrorIs(t, err, group.ErrInviteNotFound)
}
