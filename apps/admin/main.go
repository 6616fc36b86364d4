package main

import (
	"context"
	"database/sql"
	"io"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/camp"
	"github.com/trezcool/summercamps/core/datamgmt"
	"github.com/trezcool/summercamps/core/importexport"
	"github.com/trezcool/summercamps/core/seo"
	"github.com/trezcool/summercamps/core/user"
	logsvc "github.com/trezcool/summercamps/services/logger"
	"github.com/trezcool/summercamps/storage/blob"
	"github.com/trezcool/summercamps/storage/database"
	"github.com/trezcool/summercamps/storage/database/sqlstore"
)

type commandLine struct {
	db      *sql.DB
	engine  string
	usrRepo user.Repository
	porting *importexport.Service
	pages   *seo.Service
	logger  core.Logger
	out     io.Writer
}

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(os.Stderr, conf)
	logger.Enable(false)

	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	if err = db.Ping(); err != nil {
		logger.Fatal("pinging database", err)
	}

	blobs, err := blob.New(context.Background(), conf)
	if err != nil {
		logger.Fatal("setting up blob storage", err)
	}

	cli := newCommandLine(db, blobs, conf, logger, os.Stdout)
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}

func newCommandLine(db *sqlx.DB, blobs core.BlobStore, conf *core.Config, logger core.Logger, out io.Writer) *commandLine {
	store := sqlstore.New(db, conf.Database.Engine)
	tableSvc := datamgmt.NewService(sqlstore.NewTableStore(store), datamgmt.DefaultRegistry(), logger)
	campSvc := camp.NewService(sqlstore.NewCampRepository(store), blobs, logger)
	return &commandLine{
		db:      db.DB,
		engine:  conf.Database.Engine,
		usrRepo: sqlstore.NewUserRepository(store),
		porting: importexport.NewService(tableSvc, nil, logger),
		pages:   seo.NewService(sqlstore.NewSEORepository(store), campSvc, logger),
		logger:  logger,
		out:     out,
	}
}
