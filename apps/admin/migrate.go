package main

import (
	"context"

	"github.com/trezcool/summercamps/storage/database"
)

var runMigrationsFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	return runMigrationsFunc(context.Background(), cli.db, cli.engine, args[0], args[1:]...)
}
