package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-curriculum/core"
	"github.com/trezcool/masomo-curriculum/core/subject"
	"github.com/trezcool/masomo-curriculum/core/user"
	emailsvc "github.com/trezcool/masomo-curriculum/services/email"
	inmemdb "github.com/trezcool/masomo-curriculum/storage/database/inmem"
	"github.com/trezcool/masomo-curriculum/tests"
)

var (
	usrRepo  user.Repository
	subjRepo subject.Repository
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & repos
	db := inmemdb.NewDB()
	usrRepo = inmemdb.NewUserRepository(db)
	subjRepo = inmemdb.NewSubjectRepository(db)

	conf := &core.Config{
		AppName:  "Masomo",
		TestMode: true,
		Database: core.DatabaseConfig{Engine: "postgres"},
		Reorder: core.ReorderConfig{
			ItemHeight:      130,
			MinDragDistance: 10,
			CommitTimeout:   5 * time.Second,
		},
		Notify: core.NotifyConfig{Recipients: []string{"head@test.cd"}},
	}
	subjectSvc, err := subject.NewService(subjRepo, core.NopLogger())
	require.NoError(t, err)
	validate, _ := testutil.NewValidator()

	// start CLI
	out := new(bytes.Buffer)
	return &commandLine{
		conf:       conf,
		db:         new(sqlx.DB),
		usrSvc:     user.NewService(usrRepo),
		subjectSvc: subjectSvc,
		validate:   validate,
		logger:     core.NopLogger(),
		mailSvc:    emailsvc.NewConsoleServiceMock(conf),
		out:        out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkRunErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || !strings.Contains(err.Error(), tt.wantErrStr) {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "topic_note", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)
	testutil.CreateUser(t, usrRepo, "Taken", "takenuser", "taken@test.cd", "", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Mwalimu", "-username", "mwalimu"}, wantErr: errHelp},
		{name: "username taken", args: []string{"adduser", "-name", "Twin", "-username", "takenuser"}, extra: extra{pwd: "Kitoko-2021!"}, wantErrStr: user.ErrUsernameExists.Error()},
		{name: "weak password", args: []string{"adduser", "-name", "Mwalimu", "-username", "mwalimu"}, extra: extra{pwd: "12345678"}, wantErrStr: "'pwdnotallnum' tag"},
		{name: "created", args: []string{"adduser", "-name", "Mwalimu", "-username", "mwalimu", "-roles", "teacher:"}, extra: extra{pwd: "Kitoko-2021!"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, tt, cli.run(args))
		})
	}

	usr, err := usrRepo.GetUserByUsernameOrEmail(context.Background(), "mwalimu")
	require.NoError(t, err)
	assert.True(t, usr.IsTeacher())
	assert.NoError(t, usr.CheckPassword("Kitoko-2021!"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_subjects(t *testing.T) {
	cli, out := setup(t)

	require.NoError(t, cli.run([]string{"admin", "addsubject", "-name", "Mathematics", "-code", "math 101"}))
	subjects, err := subjRepo.QuerySubjects(context.Background(), new(subject.QueryFilter), nil)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	math := subjects[0]
	assert.Equal(t, "MATH-101", math.Code)

	tests := []cliTest{
		{name: "addsubject no args", args: []string{"addsubject"}, wantErr: errHelp},
		{name: "addsubject duplicate", args: []string{"addsubject", "-name", "Maths", "-code", "MATH-101"}, wantErrStr: subject.ErrCodeExists.Error()},
		{name: "addtopic no title", args: []string{"addtopic", "-subject", math.ID}, wantErr: errHelp},
		{name: "addtopic unknown subject", args: []string{"addtopic", "-subject", "nope", "-title", "Numbers"}, wantErr: subject.ErrNotFound},
		{name: "addtopic", args: []string{"addtopic", "-subject", math.ID, "-title", "Numbers"}},
		{name: "addtopic similar", args: []string{"addtopic", "-subject", math.ID, "-title", "numbers"}, wantErrStr: "title: a topic with a similar title already exists"},
		{name: "addtopic second", args: []string{"addtopic", "-subject", math.ID, "-title", "Fractions", "-description", "halves and quarters"}},
		{name: "topics no subject", args: []string{"topics"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, tt, cli.run(args))
		})
	}

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "topics", "-subject", math.ID}))
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "  1. Numbers ("))
	assert.True(t, strings.HasPrefix(lines[1], "  2. Fractions ("))
}

func Test_commandLine_moveTopic(t *testing.T) {
	cli, out := setup(t)
	math := testutil.CreateSubject(t, subjRepo, "Mathematics", "MATH-101")
	topics := testutil.CreateTopics(t, subjRepo, math.ID, "Numbers", "Fractions", "Geometry", "Algebra")

	tests := []cliTest{
		{name: "no args", args: []string{"movetopic"}, wantErr: errHelp},
		{name: "no position", args: []string{"movetopic", "-subject", math.ID, "-topic", topics[3].ID}, wantErr: errHelp},
		{name: "unknown topic", args: []string{"movetopic", "-subject", math.ID, "-topic", "nope", "-position", "1"}, wantErr: subject.ErrTopicNotFound},
		{name: "out of range", args: []string{"movetopic", "-subject", math.ID, "-topic", topics[3].ID, "-position", "9"}, wantErrStr: "position must be between 1 and 4"},
		{name: "same position", args: []string{"movetopic", "-subject", math.ID, "-topic", topics[3].ID, "-position", "4"}},
		{name: "moved", args: []string{"movetopic", "-subject", math.ID, "-topic", topics[3].ID, "-position", "2"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, tt, cli.run(args))
		})
	}

	assert.Contains(t, out.String(), "moving Algebra...")
	assert.Contains(t, out.String(), "  2. Algebra\n")

	got, err := cli.subjectSvc.QueryTopics(context.Background(), math.ID)
	require.NoError(t, err)
	titles := make([]string, 0, len(got))
	for _, tp := range got {
		titles = append(titles, tp.Title)
	}
	assert.Equal(t, []string{"Numbers", "Algebra", "Fractions", "Geometry"}, titles)

	sent := cli.mailSvc.(interface{ SentMessages() []core.EmailMessage }).SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Order updated", sent[0].Subject)
	assert.Equal(t, "Algebra moved to position 2", sent[0].TextContent)
}
