package importexport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/datamgmt"
)

// Formats
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

type (
	Format string

	// Metrics records import outcomes.
	Metrics interface {
		ObserveImport(table string, inserted, rejected int)
	}

	Service struct {
		tables  *datamgmt.Service
		metrics Metrics
		logger  core.Logger
	}

	nopMetrics struct{}
)

func (nopMetrics) ObserveImport(string, int, int) {}

func NewService(tables *datamgmt.Service, metrics Metrics, logger core.Logger) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{tables: tables, metrics: metrics, logger: logger}
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", core.NewValidationError(fmt.Errorf("Unsupported format: %s", s))
	}
}

// Import validates a file and, unless dryRun, inserts the valid rows. Invalid rows are
// reported and skipped; a failed insert is reported in the result's Error.
func (svc *Service) Import(ctx context.Context, table string, r io.Reader, format Format, dryRun bool) core.Result[ImportResult] {
	cfg, err := svc.tables.Registry().Table(table)
	if err != nil {
		return core.Fail[ImportResult](err)
	}
	if cfg.ReadOnly {
		return core.Fail[ImportResult](core.ErrPermissionDenied)
	}

	var res ImportResult
	switch format {
	case FormatJSON:
		res, err = ValidateJSON(cfg, r)
	default:
		res, err = ValidateCSV(cfg, r)
	}
	if err != nil {
		return core.Fail[ImportResult](core.NewValidationError(err))
	}
	res.DryRun = dryRun
	if dryRun || len(res.Data) == 0 {
		return core.OkCount(res, res.SuccessCount)
	}

	n, err := svc.tables.InsertRows(ctx, table, res.Data)
	if err != nil {
		svc.metrics.ObserveImport(table, 0, res.Total)
		return core.Result[ImportResult]{Data: res, Error: core.TranslateError(err), Err: err}
	}
	res.Inserted = n
	svc.metrics.ObserveImport(table, n, res.ErrorCount)
	svc.logger.Info(fmt.Sprintf("imported %d rows into %s (%d rejected)", n, table, res.ErrorCount))
	return core.OkCount(res, n)
}

// Export renders every row matching q.
func (svc *Service) Export(ctx context.Context, table string, q datamgmt.Query, format Format) core.Result[[]byte] {
	cfg, err := svc.tables.Registry().Table(table)
	if err != nil {
		return core.Fail[[]byte](err)
	}
	rows, err := svc.fetchAll(ctx, table, q)
	if err != nil {
		return core.Fail[[]byte](err)
	}

	var buf bytes.Buffer
	if format == FormatJSON {
		err = ExportJSON(&buf, rows)
	} else {
		err = ExportCSV(&buf, cfg, rows)
	}
	if err != nil {
		return core.Fail[[]byte](errors.Wrap(err, "exporting rows"))
	}
	return core.OkCount(buf.Bytes(), len(rows))
}

func (svc *Service) fetchAll(ctx context.Context, table string, q datamgmt.Query) ([]datamgmt.Row, error) {
	q.Pagination = core.Pagination{Page: 1, PerPage: core.MaxPerPage}
	var rows []datamgmt.Row
	for {
		res := svc.tables.GetTableData(ctx, table, q)
		if !res.Success {
			return nil, res.Err
		}
		rows = append(rows, res.Data...)
		if len(res.Data) < q.Pagination.PerPage || len(rows) >= res.Count {
			return rows, nil
		}
		q.Pagination.Page++
	}
}

func (svc *Service) Template(table string) core.Result[[]byte] {
	cfg, err := svc.tables.Registry().Table(table)
	if err != nil {
		return core.Fail[[]byte](err)
	}
	var buf bytes.Buffer
	if err := GenerateTemplate(&buf, cfg); err != nil {
		return core.Fail[[]byte](err)
	}
	return core.Ok(buf.Bytes())
}
