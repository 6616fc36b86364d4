package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/summercamps/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=name,-created_at`; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

// queryTime parses an RFC 3339 datetime or a 2006-01-02 date. Invalid values are ignored.
func queryTime(ctx echo.Context, name string) time.Time {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", val); err == nil {
		return t
	}
	return time.Time{}
}

func queryFloat(ctx echo.Context, name string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(ctx.QueryParam(name)), 64)
	return f, err == nil
}

// queryValues reads repeated and comma separated values: `?id=a&id=b,c`.
func queryValues(ctx echo.Context, name string) []string {
	var values []string
	for _, v := range ctx.QueryParams()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}
