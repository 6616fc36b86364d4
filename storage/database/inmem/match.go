package inmemdb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/summercamps/core/datamgmt"
)

// Matches evaluates a filter against a column value the way the SQL store does.
func Matches(v interface{}, f datamgmt.Filter) bool {
	switch f.Operator {
	case datamgmt.OpEq:
		return equal(v, f.Value)
	case datamgmt.OpNeq:
		return v != nil && !equal(v, f.Value)
	case datamgmt.OpGt, datamgmt.OpGte, datamgmt.OpLt, datamgmt.OpLte:
		if v == nil || f.Value == nil {
			return false
		}
		c, ok := compare(v, f.Value)
		if !ok {
			return false
		}
		switch f.Operator {
		case datamgmt.OpGt:
			return c > 0
		case datamgmt.OpGte:
			return c >= 0
		case datamgmt.OpLt:
			return c < 0
		default:
			return c <= 0
		}
	case datamgmt.OpLike, datamgmt.OpILike:
		s, ok := v.(string)
		if !ok {
			return false
		}
		return likePattern(fmt.Sprint(f.Value), f.Operator == datamgmt.OpILike).MatchString(s)
	case datamgmt.OpIn:
		values, _ := f.Value.([]interface{})
		for _, fv := range values {
			if equal(v, fv) {
				return true
			}
		}
		return false
	case datamgmt.OpIs:
		if f.Value == nil {
			return v == nil
		}
		return equal(v, f.Value)
	}
	return false
}

func equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return false
	}
	c, ok := compare(a, b)
	return ok && c == 0
}

// compare orders numbers numerically, times chronologically, bools false first and
// anything else by its text.
func compare(a, b interface{}) (int, bool) {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			}
			return 0, true
		}
	}
	if ta, ok := toTime(a); ok {
		if tb, ok := toTime(b); ok {
			return ta.Compare(tb), true
		}
	}
	if ba, ok := toBool(a); ok {
		if bb, ok := toBool(b); ok {
			return compareBools(ba, bb), true
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b)), true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{datamgmt.DatetimeLayout, datamgmt.DateLayout} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func toBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		return parsed, err == nil
	}
	return false, false
}

func likePattern(pattern string, insensitive bool) *regexp.Regexp {
	var sb strings.Builder
	if insensitive {
		sb.WriteString("(?i)")
	}
	sb.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}
