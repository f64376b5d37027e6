package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/health"
	"github.com/darasa/portal/core/identity"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("audit database is not configured")
	errUnhealthy  = errors.New("school API is unhealthy")
)

type commandLine struct {
	conf  *core.Config
	db    *sql.DB
	idSvc *identity.Service
	auth  identity.Authenticator
	probe health.Prober
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  health - probe the school API once and report")
	fmt.Println("  sessions -list - list live portal sessions")
	fmt.Println("  sessions -revoke ID - force-revoke a session")
	fmt.Println("  logintest -role ROLE -username USERNAME - verify credentials against the school API")
	fmt.Println("  migrate COMMAND - run audit database migrations (goose commands)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	sessionsCmd := flag.NewFlagSet("sessions", flag.ExitOnError)
	sessionsList := sessionsCmd.Bool("list", false, "List live portal sessions.")
	sessionsRevoke := sessionsCmd.String("revoke", "", "The id of the session to force-revoke.")

	loginTestCmd := flag.NewFlagSet("logintest", flag.ExitOnError)
	loginTestRole := loginTestCmd.String("role", "", "The portal to test: admin, teacher or student.")
	loginTestUname := loginTestCmd.String("username", "", "The staff email or student code. The password will be prompted next.")

	switch args[1] {
	case "health":
		return cli.health()
	case "sessions":
		if err := sessionsCmd.Parse(args[2:]); err != nil {
			return err
		}
		switch {
		case *sessionsRevoke != "":
			return cli.revokeSession(*sessionsRevoke)
		case *sessionsList:
			return cli.listSessions()
		default:
			sessionsCmd.Usage()
			return errHelp
		}
	case "logintest":
		if err := loginTestCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginTestRole == "" || *loginTestUname == "" {
			loginTestCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginTestCmd.Usage()
			return errHelp
		}
		return cli.loginTest(*loginTestRole, *loginTestUname, string(pwd))
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}
