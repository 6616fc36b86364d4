package datamgmt

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
)

// Filter operators
const (
	OpEq    Operator = "eq"
	OpNeq   Operator = "neq"
	OpGt    Operator = "gt"
	OpGte   Operator = "gte"
	OpLt    Operator = "lt"
	OpLte   Operator = "lte"
	OpLike  Operator = "like"
	OpILike Operator = "ilike"
	OpIn    Operator = "in"
	OpIs    Operator = "is"
)

var operators = map[Operator]struct{}{
	OpEq: {}, OpNeq: {}, OpGt: {}, OpGte: {}, OpLt: {}, OpLte: {},
	OpLike: {}, OpILike: {}, OpIn: {}, OpIs: {},
}

type (
	Operator string

	Filter struct {
		Column   string      `json:"column"`
		Operator Operator    `json:"operator"`
		Value    interface{} `json:"value"`
	}

	// Query selects rows of a table. Search matches the Searchable columns of the table.
	Query struct {
		Filters    []Filter          `json:"filters"`
		Search     string            `json:"search"`
		Sort       []core.DBOrdering `json:"sort"`
		Pagination core.Pagination   `json:"pagination"`
	}
)

// ParseFilter reads the `column.operator:value` form used in query strings;
// `column:value` means eq. `in` values are comma separated.
func ParseFilter(s string) (Filter, error) {
	key, value, ok := strings.Cut(s, ":")
	if !ok {
		return Filter{}, errors.Errorf("invalid filter %q: expected column[.operator]:value", s)
	}
	column, op, hasOp := strings.Cut(key, ".")
	f := Filter{Column: strings.TrimSpace(column), Operator: OpEq, Value: value}
	if hasOp {
		f.Operator = Operator(strings.ToLower(strings.TrimSpace(op)))
	}
	if f.Operator == OpIn {
		values := make([]interface{}, 0)
		for _, v := range strings.Split(value, ",") {
			values = append(values, strings.TrimSpace(v))
		}
		f.Value = values
	}
	return f, nil
}

// Validate checks the filter against the table's columns. `is` accepts null, true or false.
func (f *Filter) Validate(cfg TableConfig) error {
	if !cfg.HasColumn(f.Column) {
		return core.NewValidationError(fmt.Errorf("Unknown column: %s", f.Column))
	}
	if _, ok := operators[f.Operator]; !ok {
		return core.NewValidationError(fmt.Errorf("Unknown operator: %s", f.Operator))
	}
	switch f.Operator {
	case OpIn:
		switch v := f.Value.(type) {
		case []interface{}:
		case []string:
			values := make([]interface{}, len(v))
			for i := range v {
				values[i] = v[i]
			}
			f.Value = values
		default:
			return core.NewValidationError(fmt.Errorf("Operator in requires a list of values"))
		}
	case OpIs:
		switch v := f.Value.(type) {
		case nil, bool:
		case string:
			switch strings.ToLower(v) {
			case "null", "":
				f.Value = nil
			case "true":
				f.Value = true
			case "false":
				f.Value = false
			default:
				return core.NewValidationError(fmt.Errorf("Operator is requires null, true or false"))
			}
		default:
			return core.NewValidationError(fmt.Errorf("Operator is requires null, true or false"))
		}
	}
	return nil
}

// Clean validates filters and sort columns and applies pagination defaults.
func (q *Query) Clean(cfg TableConfig) error {
	for i := range q.Filters {
		if err := q.Filters[i].Validate(cfg); err != nil {
			return err
		}
	}
	q.Search = core.CleanString(q.Search)

	sort := q.Sort[:0]
	for _, ord := range q.Sort {
		if col, ok := cfg.Column(ord.Field); ok && col.Sortable {
			sort = append(sort, ord)
		}
	}
	q.Sort = sort
	if len(q.Sort) == 0 && cfg.DefaultSort.Field != "" {
		q.Sort = []core.DBOrdering{cfg.DefaultSort}
	}
	q.Pagination.Clean()
	return nil
}
