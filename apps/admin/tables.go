package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core/datamgmt"
	"github.com/trezcool/summercamps/core/importexport"
)

func (cli *commandLine) importFile(table, file, format string, dryRun bool) error {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
	}
	f, err := importexport.ParseFormat(format)
	if err != nil {
		return err
	}

	r, err := os.Open(file)
	if err != nil {
		return errors.Wrap(err, "opening import file")
	}
	defer func() { _ = r.Close() }()

	res := cli.porting.Import(context.Background(), table, r, f, dryRun)
	data := res.Data
	for _, e := range data.Errors {
		fmt.Fprintf(cli.out, "row %d: %s: %s (%q)\n", e.Row, e.Field, e.Message, e.Value)
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	if dryRun {
		fmt.Fprintf(cli.out, "%d of %d rows are valid (dry run)\n", data.SuccessCount, data.Total)
		return nil
	}
	fmt.Fprintf(cli.out, "imported %d of %d rows into %s\n", data.Inserted, data.Total, table)
	return nil
}

func (cli *commandLine) export(table, format, out string) error {
	f, err := importexport.ParseFormat(format)
	if err != nil {
		return err
	}
	res := cli.porting.Export(context.Background(), table, datamgmt.Query{}, f)
	if !res.Success {
		return errors.New(res.Error)
	}
	if out == "" {
		_, err = cli.out.Write(res.Data)
		return err
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return errors.Wrap(err, "writing export file")
	}
	fmt.Fprintf(cli.out, "exported %d rows of %s to %s\n", res.Count, table, out)
	return nil
}

func (cli *commandLine) generatePages() error {
	res, err := cli.pages.GeneratePages(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d pages created, %d updated\n", len(res.Created), len(res.Updated))
	return nil
}
