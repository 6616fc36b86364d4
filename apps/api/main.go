package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // registers the /debug/pprof handlers
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/summercamps/apps/api/echo"
	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/blog"
	"github.com/trezcool/summercamps/core/booking"
	"github.com/trezcool/summercamps/core/camp"
	"github.com/trezcool/summercamps/core/datamgmt"
	"github.com/trezcool/summercamps/core/devedit"
	"github.com/trezcool/summercamps/core/enquiry"
	"github.com/trezcool/summercamps/core/importexport"
	"github.com/trezcool/summercamps/core/seo"
	"github.com/trezcool/summercamps/core/user"
	appfs "github.com/trezcool/summercamps/fs"
	emailsvc "github.com/trezcool/summercamps/services/email"
	logsvc "github.com/trezcool/summercamps/services/logger"
	metricsvc "github.com/trezcool/summercamps/services/metrics"
	"github.com/trezcool/summercamps/storage/blob"
	"github.com/trezcool/summercamps/storage/database"
	"github.com/trezcool/summercamps/storage/database/sqlstore"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(os.Stdout, conf)
	defer logger.Close()

	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	store := sqlstore.New(db, conf.Database.Engine)

	blobs, err := blob.New(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up blob storage: %v", err), err)
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, os.Stdout, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	metrics := metricsvc.NewService()

	campRepo := sqlstore.NewCampRepository(store)
	campSvc := camp.NewService(campRepo, blobs, logger)
	tableSvc := datamgmt.NewService(sqlstore.NewTableStore(store), datamgmt.DefaultRegistry(), logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.RegisterValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, conf, logger)

	if err = user.LoadCommonPasswords(appfs.FS); err != nil {
		logger.Fatal(fmt.Sprintf("loading common passwords: %v", err), err)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Metrics:    metrics,
		UserSvc:    user.NewService(sqlstore.NewUserRepository(store), mailSvc, conf, logger),
		CampSvc:    campSvc,
		BookingSvc: booking.NewService(sqlstore.NewBookingRepository(store), campRepo, mailSvc, metrics, logger),
		EnquirySvc: enquiry.NewService(sqlstore.NewEnquiryRepository(store), mailSvc, conf, logger),
		BlogSvc:    blog.NewService(sqlstore.NewBlogRepository(store), logger),
		PageSvc:    seo.NewService(sqlstore.NewSEORepository(store), campSvc, logger),
		TableSvc:   tableSvc,
		ImportSvc:  importexport.NewService(tableSvc, metrics, logger),
		DevEditSvc: devedit.NewService(conf.DevEdit, logger),
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB, conf.Database.Engine); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
