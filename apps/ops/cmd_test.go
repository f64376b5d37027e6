package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"
	"time"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/identity"
	"github.com/darasa/portal/storage/memdb"
)

// fakeSchoolAPI is the slice of the school API the CLI touches: the
// authenticator and the health prober.
type fakeSchoolAPI struct {
	down bool
}

func (f *fakeSchoolAPI) StaffLogin(ctx context.Context, email, password string) (identity.Tokens, identity.StaffUser, error) {
	switch {
	case email == "admin@darasa.test" && password == "sekret":
		usr := identity.StaffUser{ID: "u-adm1", Username: "headadmin", Email: email, Name: "Head Admin", Role: identity.RoleAdmin, IsActive: true}
		return identity.Tokens{Access: "acc-adm", Refresh: "ref-adm"}, usr, nil
	case email == "teacher@darasa.test" && password == "sekret":
		usr := identity.StaffUser{ID: "u-tch1", Username: "jmwangi", Email: email, Name: "Joy Mwangi", Role: identity.RoleTeacher, IsActive: true}
		return identity.Tokens{Access: "acc-tch", Refresh: "ref-tch"}, usr, nil
	}
	return identity.Tokens{}, identity.StaffUser{}, identity.ErrBadCredentials
}

func (f *fakeSchoolAPI) StudentLogin(ctx context.Context, studentID, password string) (identity.Tokens, identity.StudentPrincipal, error) {
	if studentID == "STU1001" && password == "sekret" {
		stu := identity.StudentPrincipal{ID: "stu-1", StudentID: "STU1001", Name: "Neo Park"}
		return identity.Tokens{Access: "acc-stu", Refresh: "ref-stu"}, stu, nil
	}
	return identity.Tokens{}, identity.StudentPrincipal{}, identity.ErrBadCredentials
}

func (f *fakeSchoolAPI) Logout(ctx context.Context, tokens identity.Tokens) error { return nil }

func (f *fakeSchoolAPI) Refresh(ctx context.Context, refresh string) (identity.Tokens, error) {
	return identity.Tokens{Access: "acc-new", Refresh: refresh}, nil
}

func (f *fakeSchoolAPI) CurrentStaff(ctx context.Context, access string) (identity.StaffUser, error) {
	return identity.StaffUser{ID: "u-adm1", Username: "headadmin", Role: identity.RoleAdmin, IsActive: true}, nil
}

func (f *fakeSchoolAPI) CurrentStudent(ctx context.Context, access string) (identity.StudentPrincipal, error) {
	return identity.StudentPrincipal{ID: "stu-1", StudentID: "STU1001", Name: "Neo Park"}, nil
}

func (f *fakeSchoolAPI) ProbeAPI(ctx context.Context) (time.Duration, error) {
	if f.down {
		return 0, fmt.Errorf("connection refused")
	}
	return 12 * time.Millisecond, nil
}

func (f *fakeSchoolAPI) ProbeAuth(ctx context.Context) error {
	if f.down {
		return fmt.Errorf("connection refused")
	}
	return nil
}

func setup(t *testing.T) (*commandLine, *fakeSchoolAPI) {
	conf := &core.Config{
		TestMode:  true,
		SecretKey: "sekret",
		Session: core.SessionConfig{
			TTL:      time.Hour,
			FreshFor: time.Minute,
			// one-shot commands never watch sessions
			WatchInterval: 0,
		},
		Upstream: core.UpstreamConfig{Timeout: time.Second, ProbeTimeout: time.Second},
	}

	mdb, err := memdb.Open()
	if err != nil {
		t.Fatalf("memdb.Open() failed, %v", err)
	}
	api := &fakeSchoolAPI{}
	idSvc := identity.NewService(memdb.NewSessionStore(mdb), api, memdb.NewAuditLog(mdb), core.NopLogger{}, conf)
	t.Cleanup(idSvc.StopAllWatchers)

	// start CLI
	cli := &commandLine{
		conf:  conf,
		idSvc: idSvc,
		auth:  api,
		probe: api,
	}
	return cli, api
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	// no audit database open (in-memory storage)
	if err := cli.run([]string{"ops", "migrate", "up"}); err != errNoDatabase {
		t.Errorf("cli.run() error = %v, wantErr %v", err, errNoDatabase)
	}

	db, err := sql.Open("postgres", "")
	if err != nil {
		t.Fatalf("sql.Open() failed, %v", err)
	}
	cli.db = db

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
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
		{name: "create", args: []string{"migrate", "create", "audit_event", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"ops"}, tt.args...)

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

func Test_commandLine_sessions(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	sess, err := cli.idSvc.Login(ctx, identity.RoleAdmin, "admin@darasa.test", "sekret", "127.0.0.1", "ops-test")
	if err != nil {
		t.Fatalf("Login() failed, %v", err)
	}

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no flags", args: []string{"sessions"}, wantErr: errHelp},
		{name: "list", args: []string{"sessions", "-list"}},
		{name: "revoke unknown session", args: []string{"sessions", "-revoke", "nope"}, wantErr: identity.ErrSessionNotFound},
		{name: "revoke", args: []string{"sessions", "-revoke", sess.ID}},
	}
	for _, tt := range tests {
		args := append([]string{"ops"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	// the revoked session is gone and the trail shows the operator's hand
	if _, err := cli.idSvc.Get(ctx, sess.ID); err != identity.ErrSessionNotFound {
		t.Errorf("Get() error = %v, want %v", err, identity.ErrSessionNotFound)
	}
	events, err := cli.idSvc.RecentEvents(ctx, 5)
	if err != nil {
		t.Fatalf("RecentEvents() failed, %v", err)
	}
	if len(events) == 0 {
		t.Fatal("RecentEvents() returned no events")
	}
	if events[0].Kind != identity.EventForcedLogout {
		t.Errorf("events[0].Kind = %s; want %s", events[0].Kind, identity.EventForcedLogout)
	}
	if events[0].Detail.String != "revoked by operator" {
		t.Errorf("events[0].Detail = %s; want revoked by operator", events[0].Detail.String)
	}
}

func Test_commandLine_loginTest(t *testing.T) {
	cli, _ := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no flags", args: []string{"logintest"}, wantErr: errHelp},
		{name: "role but no username", args: []string{"logintest", "-role", "admin"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"logintest", "-role", "admin", "-username", "admin@darasa.test"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"logintest", "-role", "janitor", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErrStr: "unknown role \"janitor\""},
		{name: "bad credentials", args: []string{"logintest", "-role", "admin", "-username", "admin@darasa.test"}, extra: extra{pwd: "wrong"}, wantErr: identity.ErrBadCredentials},
		{name: "account of another portal", args: []string{"logintest", "-role", "admin", "-username", "teacher@darasa.test"}, extra: extra{pwd: "sekret"}, wantErrStr: "\"teacher@darasa.test\" belongs to the teacher portal"},
		{name: "admin", args: []string{"logintest", "-role", "admin", "-username", "admin@darasa.test"}, extra: extra{pwd: "sekret"}},
		{name: "teacher", args: []string{"logintest", "-role", "teacher", "-username", "teacher@darasa.test"}, extra: extra{pwd: "sekret"}},
		{name: "student", args: []string{"logintest", "-role", "student", "-username", "STU1001"}, extra: extra{pwd: "sekret"}},
	}
	for _, tt := range tests {
		args := append([]string{"ops"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err == nil || err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
				}
			case err != nil:
				t.Errorf("cli.run() unexpected error = %v", err)
			}
		})
	}
}

func Test_commandLine_health(t *testing.T) {
	cli, api := setup(t)

	if err := cli.run([]string{"ops", "health"}); err != nil {
		t.Errorf("cli.run() unexpected error = %v", err)
	}

	api.down = true
	if err := cli.run([]string{"ops", "health"}); err != errUnhealthy {
		t.Errorf("cli.run() error = %v, wantErr %v", err, errUnhealthy)
	}
}
