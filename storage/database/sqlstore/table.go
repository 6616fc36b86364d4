package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/datamgmt"
	"github.com/trezcool/summercamps/storage/database"
)

type tableStore struct {
	*Store
}

var _ datamgmt.Store = (*tableStore)(nil) // interface compliance check

func NewTableStore(s *Store) datamgmt.Store {
	return &tableStore{Store: s}
}

func columns(cfg datamgmt.TableConfig) []string {
	cols := make([]string, len(cfg.Columns))
	for i, col := range cfg.Columns {
		cols[i] = quote(col.Name)
	}
	return cols
}

func returning(cfg datamgmt.TableConfig) string {
	return "RETURNING " + strings.Join(columns(cfg), ", ")
}

// condition turns a validated filter into a WHERE clause.
func (s *tableStore) condition(cfg datamgmt.TableConfig, f datamgmt.Filter) (sq.Sqlizer, error) {
	col, _ := cfg.Column(f.Column)
	name := quote(f.Column)
	switch f.Operator {
	case datamgmt.OpEq:
		return sq.Eq{name: bindFilterValue(col, f.Value)}, nil
	case datamgmt.OpNeq:
		return sq.NotEq{name: bindFilterValue(col, f.Value)}, nil
	case datamgmt.OpGt:
		return sq.Gt{name: bindFilterValue(col, f.Value)}, nil
	case datamgmt.OpGte:
		return sq.GtOrEq{name: bindFilterValue(col, f.Value)}, nil
	case datamgmt.OpLt:
		return sq.Lt{name: bindFilterValue(col, f.Value)}, nil
	case datamgmt.OpLte:
		return sq.LtOrEq{name: bindFilterValue(col, f.Value)}, nil
	case datamgmt.OpLike:
		return sq.Like{name: fmt.Sprint(f.Value)}, nil
	case datamgmt.OpILike:
		return s.ilike(name, fmt.Sprint(f.Value)), nil
	case datamgmt.OpIn:
		values, _ := f.Value.([]interface{})
		bound := make([]interface{}, len(values))
		for i, v := range values {
			bound[i] = bindFilterValue(col, v)
		}
		return sq.Eq{name: bound}, nil
	case datamgmt.OpIs:
		switch v := f.Value.(type) {
		case nil:
			return sq.Eq{name: nil}, nil
		case bool:
			if v {
				return sq.Expr(name + " IS TRUE"), nil
			}
			return sq.Expr(name + " IS FALSE"), nil
		}
	}
	return nil, errors.Errorf("unsupported filter %s %s", f.Column, f.Operator)
}

// where combines the filters and the search of q.
func (s *tableStore) where(cfg datamgmt.TableConfig, q datamgmt.Query) (sq.And, error) {
	and := sq.And{}
	for _, f := range q.Filters {
		cond, err := s.condition(cfg, f)
		if err != nil {
			return nil, err
		}
		and = append(and, cond)
	}
	if q.Search != "" {
		var cols []string
		for _, col := range cfg.SearchableColumns() {
			cols = append(cols, quote(col.Name))
		}
		if len(cols) > 0 {
			and = append(and, s.search(q.Search, cols...))
		}
	}
	return and, nil
}

func (s *tableStore) Query(ctx context.Context, cfg datamgmt.TableConfig, q datamgmt.Query) ([]datamgmt.Row, int, error) {
	where, err := s.where(cfg, q)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.count(ctx, s.sb.Select("COUNT(*)").From(quote(cfg.Name)).Where(where))
	if err != nil {
		return nil, 0, errors.Wrapf(err, "counting %s", cfg.Name)
	}

	b := s.sb.Select(columns(cfg)...).From(quote(cfg.Name)).Where(where)
	for _, ord := range q.Sort {
		b = b.OrderBy(core.DBOrdering{Field: quote(ord.Field), Ascending: ord.Ascending}.String())
	}
	b = b.OrderBy(quote(cfg.PrimaryKey) + " ASC")
	b = paginate(b, q.Pagination)

	rows, err := s.rows(ctx, s.db, cfg, b)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "querying %s", cfg.Name)
	}
	return rows, count, nil
}

func (s *tableStore) Get(ctx context.Context, cfg datamgmt.TableConfig, id string) (datamgmt.Row, error) {
	b := s.sb.Select(columns(cfg)...).From(quote(cfg.Name)).Where(sq.Eq{quote(cfg.PrimaryKey): id})
	rows, err := s.rows(ctx, s.db, cfg, b)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, core.ErrNotFound
	}
	return rows[0], nil
}

func (s *tableStore) Insert(ctx context.Context, cfg datamgmt.TableConfig, values datamgmt.Row) (datamgmt.Row, error) {
	return s.insert(ctx, s.db, cfg, values)
}

func (s *tableStore) insert(ctx context.Context, ext core.DBExecutor, cfg datamgmt.TableConfig, values datamgmt.Row) (datamgmt.Row, error) {
	b := s.sb.Insert(quote(cfg.Name)).SetMap(bindRow(cfg, values)).Suffix(returning(cfg))
	rows, err := s.rows(ctx, ext, cfg, b)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.Errorf("inserting into %s returned no row", cfg.Name)
	}
	return rows[0], nil
}

// InsertMany inserts every row or none.
func (s *tableStore) InsertMany(ctx context.Context, cfg datamgmt.TableConfig, rows []datamgmt.Row) (int, error) {
	err := s.inTx(ctx, func(tx core.DBExecutor) error {
		for i, values := range rows {
			if _, err := s.insert(ctx, tx, cfg, values); err != nil {
				return errors.Wrapf(err, "row %d", i+1)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *tableStore) Update(ctx context.Context, cfg datamgmt.TableConfig, ids []string, values datamgmt.Row) ([]datamgmt.Row, error) {
	if len(ids) == 0 {
		return []datamgmt.Row{}, nil
	}
	b := s.sb.Update(quote(cfg.Name)).
		SetMap(bindRow(cfg, values)).
		Where(sq.Eq{quote(cfg.PrimaryKey): ids}).
		Suffix(returning(cfg))
	return s.rows(ctx, s.db, cfg, b)
}

func (s *tableStore) Delete(ctx context.Context, cfg datamgmt.TableConfig, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.exec(ctx, s.db, s.sb.Delete(quote(cfg.Name)).Where(sq.Eq{quote(cfg.PrimaryKey): ids}))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *tableStore) Lookup(ctx context.Context, fk datamgmt.ForeignKey) ([]datamgmt.Option, error) {
	var rows []struct {
		Value interface{} `db:"value"`
		Label interface{} `db:"label"`
	}
	b := s.sb.
		Select(quote(fk.Column)+" AS value", quote(fk.DisplayColumn)+" AS label").
		From(quote(fk.Table)).
		OrderBy("label ASC")
	if err := s.selectx(ctx, s.db, &rows, b); err != nil {
		return nil, err
	}
	opts := make([]datamgmt.Option, len(rows))
	for i, r := range rows {
		opts[i] = datamgmt.Option{Value: outValue(datamgmt.TypeText, r.Value), Label: fmt.Sprint(outValue(datamgmt.TypeText, r.Label))}
	}
	return opts, nil
}

// rows runs a query returning table rows and converts driver values.
func (s *tableStore) rows(ctx context.Context, ext core.DBExecutor, cfg datamgmt.TableConfig, b sq.Sqlizer) ([]datamgmt.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	rs, err := ext.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, database.TranslateError(err)
	}
	defer func() { _ = rs.Close() }()

	out := make([]datamgmt.Row, 0)
	for rs.Next() {
		raw := make(map[string]interface{})
		if err := rs.MapScan(raw); err != nil {
			return nil, err
		}
		row := make(datamgmt.Row, len(raw))
		for name, v := range raw {
			col, _ := cfg.Column(name)
			row[name] = outValue(col.Type, v)
		}
		out = append(out, row)
	}
	return out, database.TranslateError(rs.Err())
}

// bindRow keeps the known columns of values, in the form the drivers write.
func bindRow(cfg datamgmt.TableConfig, values datamgmt.Row) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for name, v := range values {
		col, ok := cfg.Column(name)
		if !ok {
			continue
		}
		out[quote(name)] = bindValue(col, v)
	}
	return out
}

// bindValue turns datetime strings into time.Time so both engines store a parseable timestamp.
func bindValue(col datamgmt.ColumnConfig, v interface{}) interface{} {
	s, ok := v.(string)
	if !ok || col.Type != datamgmt.TypeDatetime {
		return v
	}
	if t, err := time.Parse(datamgmt.DatetimeLayout, s); err == nil {
		return t.UTC()
	}
	return v
}

// bindFilterValue converts query string values to the column's type when it can.
func bindFilterValue(col datamgmt.ColumnConfig, v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch col.Type {
	case datamgmt.TypeNumber, datamgmt.TypeBoolean, datamgmt.TypeDate, datamgmt.TypeDatetime:
		col.Required = false
		if parsed, err := datamgmt.ParseCell(col, s); err == nil && parsed != nil {
			return bindValue(col, parsed)
		}
	}
	return v
}

// outValue converts a driver value to the JSON-friendly form of its column type.
func outValue(typ datamgmt.ColumnType, v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch typ {
	case datamgmt.TypeNumber:
		switch n := v.(type) {
		case string:
			f, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return n
			}
			return wholeNumber(f)
		case float64:
			return wholeNumber(n)
		}
	case datamgmt.TypeBoolean:
		switch b := v.(type) {
		case int64:
			return b != 0
		case string:
			if parsed, err := strconv.ParseBool(b); err == nil {
				return parsed
			}
		}
	case datamgmt.TypeDate:
		if t, ok := v.(time.Time); ok {
			return t.Format(datamgmt.DateLayout)
		}
	case datamgmt.TypeDatetime:
		if t, ok := v.(time.Time); ok {
			return t.UTC().Format(datamgmt.DatetimeLayout)
		}
	case datamgmt.TypeJSON:
		if s, ok := v.(string); ok {
			var decoded interface{}
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				return decoded
			}
		}
	}
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(datamgmt.DatetimeLayout)
	}
	return v
}

func wholeNumber(f float64) interface{} {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}
