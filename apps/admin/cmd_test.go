package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/akilisha/funzo/core/lesson"
	"github.com/akilisha/funzo/core/user"
	dummydb "github.com/akilisha/funzo/storage/database/dummy"
)

var (
	usrRepo user.Repository
	lsnRepo lesson.Repository
)

func setup(t *testing.T) *commandLine {
	logger = log.New(ioutil.Discard, "", 0)

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	lsnRepo = dummydb.NewLessonRepository(db)

	return &commandLine{
		usrRepo: usrRepo,
		lsnSvc:  lesson.NewService(lsnRepo),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
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
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "rating", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addTutor(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"addtutor"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"addtutor", "-username", "teach", "-email", "teach@test.cd"}, wantErr: errHelp},
		{name: "new tutor", args: []string{"addtutor", "-username", "teach", "-email", "teach@test.cd"}, extra: extra{pwd: "s3cr3t"}},
		{name: "promote existing", args: []string{"addtutor", "-username", "teach", "-email", "teach@test.cd"}, extra: extra{pwd: "changed"}},
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
				usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Username: "teach"})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if usr.Role != user.RoleTutor {
					t.Errorf("role = %s; want %s", usr.Role, user.RoleTutor)
				}
				if len(usr.PasswordHash) == 0 {
					t.Error("password not set")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_loadLessons(t *testing.T) {
	cli := setup(t)

	lessons := []lesson.Lesson{
		{
			ID:              "algebra-linear-equations",
			Subject:         lesson.SubjectMathematics,
			Branch:          "Algebra",
			Title:           "Linear Equations",
			Content:         "Solving equations of the form ax + b = c.",
			Question:        "Solve 2x + 3 = 11.",
			ExampleSolution: "x = 4",
			Position:        1,
		},
		{
			ID:      "mechanics-motion-basics",
			Subject: lesson.SubjectPhysics,
			Branch:  "Mechanics",
			Title:   "Motion Basics",
			Content: "Displacement, velocity and acceleration.",
			SubQuestions: []lesson.SubQuestion{
				{ID: "a", Text: "Define average velocity.", Marks: 2},
				{ID: "b", Text: "A car travels 100m in 5s. Find its average speed.", Marks: 3},
			},
			Position: 1,
		},
	}
	data, err := json.Marshal(lessons)
	if err != nil {
		t.Fatalf("marshalling fixture failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "lessons.json")
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing fixture failed: %v", err)
	}

	tests := []cliTest{
		{name: "missing file", args: []string{"loadlessons", "-file", filepath.Join(t.TempDir(), "nope.json")}, wantErr: os.ErrNotExist},
		{name: "load fixture", args: []string{"loadlessons", "-file", path}},
		{name: "reload is idempotent", args: []string{"loadlessons", "-file", path}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				if !os.IsNotExist(err) {
					t.Errorf("cli.run() error = %v, want a not-exist error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("cli.run() unexpected error = %v", err)
			}

			got, err := lsnRepo.QueryLessons(context.Background(), nil, nil)
			if err != nil {
				t.Fatalf("QueryLessons() failed, %v", err)
			}
			if len(got) != len(lessons) {
				t.Errorf("loaded %d lessons; want %d", len(got), len(lessons))
			}
		})
	}
}
