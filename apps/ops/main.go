package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/identity"
	logsvc "github.com/darasa/portal/services/logger"
	"github.com/darasa/portal/services/schoolapi"
	"github.com/darasa/portal/storage/database"
	"github.com/darasa/portal/storage/memdb"
	"github.com/darasa/portal/storage/redisdb"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "OPS : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	svcLogger := logsvc.NewRollbarLogger(logger, conf)
	svcLogger.Enable(false) // one-shot commands never page

	// storage; mirrors the portal server's choice
	var (
		db    *sql.DB
		store identity.SessionStore
		audit identity.AuditLog
	)
	if conf.Debug {
		mdb, err := memdb.Open()
		errAndDie(err)
		store = memdb.NewSessionStore(mdb)
		audit = memdb.NewAuditLog(mdb)
	} else {
		rdb, err := redisdb.Open(conf)
		errAndDie(err)
		defer func() { _ = rdb.Close() }()
		store = redisdb.NewSessionStore(rdb)

		db, err = database.Open(conf)
		errAndDie(err)
		defer func() { _ = db.Close() }()
		errAndDie(db.Ping())
		audit = database.NewAuditLog(db, conf)
	}

	api := schoolapi.NewClient(conf, svcLogger)

	idSvc := identity.NewService(store, api, audit, svcLogger, conf)
	defer idSvc.StopAllWatchers()

	// start CLI
	cli := commandLine{
		conf:  conf,
		db:    db,
		idSvc: idSvc,
		auth:  api,
		probe: api,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
