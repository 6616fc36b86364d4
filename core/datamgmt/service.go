package datamgmt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
)

const copySuffix = "-copy"

// Service is the generic admin table: every operation reports its outcome in a core.Result.
type Service struct {
	store    Store
	registry *Registry
	logger   core.Logger
	nowFunc  func() time.Time
}

func NewService(store Store, registry *Registry, logger core.Logger) *Service {
	return &Service{
		store:    store,
		registry: registry,
		logger:   logger,
		nowFunc:  func() time.Time { return time.Now().UTC() },
	}
}

func (svc *Service) Registry() *Registry { return svc.registry }

func (svc *Service) Tables() []TableConfig { return svc.registry.Tables() }

func (svc *Service) fail(op, table string, err error) {
	switch errors.Cause(err) {
	case core.ErrNotFound, core.ErrUniqueViolation, core.ErrForeignKeyViolation,
		core.ErrPermissionDenied, core.ErrNoFieldsToUpdate, core.ErrUnknownTable:
		return
	}
	if _, ok := errors.Cause(err).(*core.ValidationError); ok {
		return
	}
	svc.logger.Error(fmt.Sprintf("datamgmt.%s(%s): %v", op, table, err), err)
}

func (svc *Service) GetTableData(ctx context.Context, table string, q Query) core.Result[[]Row] {
	cfg, err := svc.registry.Table(table)
	if err != nil {
		return core.Fail[[]Row](err)
	}
	if err := q.Clean(cfg); err != nil {
		return core.Fail[[]Row](err)
	}
	rows, count, err := svc.store.Query(ctx, cfg, q)
	if err != nil {
		svc.fail("GetTableData", table, err)
		return core.Fail[[]Row](err)
	}
	if rows == nil {
		rows = []Row{}
	}
	return core.OkCount(rows, count)
}

func (svc *Service) GetRecord(ctx context.Context, table, id string) core.Result[Row] {
	cfg, err := svc.registry.Table(table)
	if err != nil {
		return core.Fail[Row](err)
	}
	row, err := svc.store.Get(ctx, cfg, id)
	if err != nil {
		svc.fail("GetRecord", table, err)
		return core.Fail[Row](err)
	}
	return core.Ok(row)
}

func (svc *Service) CreateRecord(ctx context.Context, table string, values Row) core.Result[Row] {
	cfg, err := svc.writableTable(table)
	if err != nil {
		return core.Fail[Row](err)
	}
	row, err := svc.prepareInsert(cfg, values)
	if err != nil {
		return core.Fail[Row](err)
	}
	created, err := svc.store.Insert(ctx, cfg, row)
	if err != nil {
		svc.fail("CreateRecord", table, err)
		return core.Fail[Row](err)
	}
	return core.Ok(created)
}

// InsertRows inserts rows already coerced by the caller, e.g. an import, and returns the inserted count.
func (svc *Service) InsertRows(ctx context.Context, table string, rows []Row) (int, error) {
	cfg, err := svc.writableTable(table)
	if err != nil {
		return 0, err
	}
	prepared := make([]Row, 0, len(rows))
	for _, values := range rows {
		row := make(Row, len(values)+3)
		for name, v := range values {
			if cfg.HasColumn(name) && !cfg.IsImmutable(name) {
				row[name] = v
			}
		}
		svc.stampInsert(cfg, row)
		prepared = append(prepared, row)
	}
	n, err := svc.store.InsertMany(ctx, cfg, prepared)
	if err != nil {
		svc.fail("InsertRows", table, err)
	}
	return n, err
}

func (svc *Service) UpdateRecord(ctx context.Context, table, id string, values Row) core.Result[Row] {
	res := svc.update(ctx, "UpdateRecord", table, []string{id}, values)
	if !res.Success {
		return core.Result[Row]{Error: res.Error, Err: res.Err}
	}
	if len(res.Data) == 0 {
		return core.Fail[Row](core.ErrNotFound)
	}
	return core.Ok(res.Data[0])
}

// BulkUpdate applies the same values to every row in ids.
func (svc *Service) BulkUpdate(ctx context.Context, table string, ids []string, values Row) core.Result[[]Row] {
	return svc.update(ctx, "BulkUpdate", table, ids, values)
}

func (svc *Service) update(ctx context.Context, op, table string, ids []string, values Row) core.Result[[]Row] {
	cfg, err := svc.writableTable(table)
	if err != nil {
		return core.Fail[[]Row](err)
	}
	row, err := svc.prepareUpdate(cfg, values)
	if err != nil {
		return core.Fail[[]Row](err)
	}
	if len(ids) == 0 {
		return core.OkCount([]Row{}, 0)
	}
	updated, err := svc.store.Update(ctx, cfg, ids, row)
	if err != nil {
		svc.fail(op, table, err)
		return core.Fail[[]Row](err)
	}
	if updated == nil {
		updated = []Row{}
	}
	return core.OkCount(updated, len(updated))
}

func (svc *Service) DeleteRecord(ctx context.Context, table, id string) core.Result[int] {
	res := svc.BulkDelete(ctx, table, []string{id})
	if res.Success && res.Data == 0 {
		return core.Fail[int](core.ErrNotFound)
	}
	return res
}

func (svc *Service) BulkDelete(ctx context.Context, table string, ids []string) core.Result[int] {
	cfg, err := svc.writableTable(table)
	if err != nil {
		return core.Fail[int](err)
	}
	if len(ids) == 0 {
		return core.Ok(0)
	}
	n, err := svc.store.Delete(ctx, cfg, ids)
	if err != nil {
		svc.fail("BulkDelete", table, err)
		return core.Fail[int](err)
	}
	return core.OkCount(n, n)
}

// DuplicateRecord copies the editable columns of a row under a new ID.
// Unique text columns get a "-copy" suffix, inserted before the @ of an email.
func (svc *Service) DuplicateRecord(ctx context.Context, table, id string) core.Result[Row] {
	cfg, err := svc.writableTable(table)
	if err != nil {
		return core.Fail[Row](err)
	}
	orig, err := svc.store.Get(ctx, cfg, id)
	if err != nil {
		svc.fail("DuplicateRecord", table, err)
		return core.Fail[Row](err)
	}

	row := make(Row, len(orig))
	for _, col := range cfg.Columns {
		if !col.Editable || cfg.IsImmutable(col.Name) {
			continue
		}
		v, ok := orig[col.Name]
		if !ok {
			continue
		}
		if s, isStr := v.(string); isStr && col.Unique && s != "" {
			v = copyValue(col.Type, s)
		}
		if col.Type == TypeJSON {
			if v, err = CoerceValue(col, v); err != nil {
				return core.Fail[Row](err)
			}
		}
		row[col.Name] = v
	}
	svc.stampInsert(cfg, row)

	created, err := svc.store.Insert(ctx, cfg, row)
	if err != nil {
		svc.fail("DuplicateRecord", table, err)
		return core.Fail[Row](err)
	}
	return core.Ok(created)
}

func copyValue(typ ColumnType, s string) string {
	if typ == TypeEmail {
		if at := strings.LastIndex(s, "@"); at > 0 {
			return s[:at] + copySuffix + s[at:]
		}
	}
	return s + copySuffix
}

// LookupOptions lists the choices of a foreign key column.
func (svc *Service) LookupOptions(ctx context.Context, table, column string) core.Result[[]Option] {
	cfg, err := svc.registry.Table(table)
	if err != nil {
		return core.Fail[[]Option](err)
	}
	col, ok := cfg.Column(column)
	if !ok || col.ForeignKey == nil {
		return core.Fail[[]Option](core.NewValidationError(fmt.Errorf("Column %s has no lookup", column)))
	}
	if _, err := svc.registry.Table(col.ForeignKey.Table); err != nil {
		return core.Fail[[]Option](err)
	}
	opts, err := svc.store.Lookup(ctx, *col.ForeignKey)
	if err != nil {
		svc.fail("LookupOptions", table, err)
		return core.Fail[[]Option](err)
	}
	if opts == nil {
		opts = []Option{}
	}
	return core.OkCount(opts, len(opts))
}

func (svc *Service) writableTable(table string) (TableConfig, error) {
	cfg, err := svc.registry.Table(table)
	if err != nil {
		return cfg, err
	}
	if cfg.ReadOnly {
		return cfg, core.ErrPermissionDenied
	}
	return cfg, nil
}

// coerce keeps the editable columns of values, converted to their stored form.
func (svc *Service) coerce(cfg TableConfig, values Row) (Row, error) {
	row := make(Row, len(values))
	var fldErrs []core.FieldError
	for name, v := range values {
		col, ok := cfg.Column(name)
		if !ok || !col.Editable || cfg.IsImmutable(name) {
			continue
		}
		cv, err := CoerceValue(col, v)
		if err != nil {
			fldErrs = append(fldErrs, core.FieldError{Field: col.Name, Error: err.Error()})
			continue
		}
		row[name] = cv
	}
	if len(fldErrs) > 0 {
		return nil, core.NewValidationError(nil, fldErrs...)
	}
	return row, nil
}

func (svc *Service) prepareInsert(cfg TableConfig, values Row) (Row, error) {
	row, err := svc.coerce(cfg, values)
	if err != nil {
		return nil, err
	}
	var fldErrs []core.FieldError
	for _, col := range cfg.Columns {
		if col.Required && col.Editable && row[col.Name] == nil {
			fldErrs = append(fldErrs, core.FieldError{Field: col.Name, Error: errRequired.Error()})
		}
	}
	if len(fldErrs) > 0 {
		return nil, core.NewValidationError(nil, fldErrs...)
	}
	svc.stampInsert(cfg, row)
	return row, nil
}

// prepareUpdate strips the immutable columns first: an update left empty fails with
// core.ErrNoFieldsToUpdate.
func (svc *Service) prepareUpdate(cfg TableConfig, values Row) (Row, error) {
	stripped := make(Row, len(values))
	for name, v := range values {
		if !cfg.IsImmutable(name) && name != ColUpdatedAt {
			stripped[name] = v
		}
	}
	if len(stripped) == 0 {
		return nil, core.ErrNoFieldsToUpdate
	}
	row, err := svc.coerce(cfg, stripped)
	if err != nil {
		return nil, err
	}
	if len(row) == 0 {
		return nil, core.ErrNoFieldsToUpdate
	}
	if cfg.HasColumn(ColUpdatedAt) {
		row[ColUpdatedAt] = svc.nowFunc()
	}
	return row, nil
}

func (svc *Service) stampInsert(cfg TableConfig, row Row) {
	now := svc.nowFunc()
	if cfg.PrimaryKey == ColID {
		row[ColID] = uuid.New().String()
	}
	if cfg.HasColumn(ColCreatedAt) {
		row[ColCreatedAt] = now
	}
	if cfg.HasColumn(ColUpdatedAt) {
		row[ColUpdatedAt] = now
	}
}
