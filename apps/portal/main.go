package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoportal "github.com/darasa/portal/apps/portal/echo"
	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/health"
	"github.com/darasa/portal/core/identity"
	"github.com/darasa/portal/core/school"
	emailsvc "github.com/darasa/portal/services/email"
	logsvc "github.com/darasa/portal/services/logger"
	"github.com/darasa/portal/services/schoolapi"
	"github.com/darasa/portal/storage/database"
	"github.com/darasa/portal/storage/memdb"
	"github.com/darasa/portal/storage/redisdb"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "PORTAL : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	auditLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "AUDIT : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	auditLogger.Enable(!conf.Debug)

	// set up storage: everything in-memory in DEV; redis sessions/cache and a
	// postgres audit trail everywhere else
	var (
		store identity.SessionStore
		cache school.Cache
		audit identity.AuditLog
	)
	if conf.Debug {
		db, err := memdb.Open()
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening in-memory store: %v", err), err)
		}
		store = memdb.NewSessionStore(db)
		cache = memdb.NewCache(db)
		audit = memdb.NewAuditLog(db)
	} else {
		rdb, err := redisdb.Open(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening redis: %v", err), err)
		}
		defer func() {
			if err = rdb.Close(); err != nil {
				logger.Error("Failed to close redis", err)
			}
		}()
		store = redisdb.NewSessionStore(rdb)
		cache = redisdb.NewCache(rdb)

		db, err := setUpDB(conf)
		if err != nil {
			auditLogger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				auditLogger.Fatal("Failed to close", err)
			}
		}()
		audit = database.NewAuditLog(db, conf)
	}

	// one school API client serves as authenticator, health prober and data
	// transport alike
	api := schoolapi.NewClient(conf, logger)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	idSvc := identity.NewService(store, api, audit, logger, conf)
	defer idSvc.StopAllWatchers()

	monitor := health.NewMonitor(api, mailSvc, logger, conf)
	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	go monitor.Run(monitorCtx)

	guard := identity.NewGuard(idSvc, monitor, conf)

	catalog := school.NewCatalog(api, cache, logger, conf)
	schoolSvc := school.NewService(api, catalog, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Portal Service

	server := echoportal.NewServer(
		echoportal.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			IdentitySvc: idSvc,
			Guard:       guard,
			SchoolSvc:   schoolSvc,
			Monitor:     monitor,
			Validate:    validate,
			Translator:  translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
