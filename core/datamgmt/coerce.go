package datamgmt

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	DateLayout     = "2006-01-02"
	DatetimeLayout = time.RFC3339
)

var (
	numberPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

	trueTokens  = map[string]bool{"true": true, "yes": true, "y": true, "1": true, "t": true}
	falseTokens = map[string]bool{"false": true, "no": true, "n": true, "0": true, "f": true}

	timeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		DateLayout,
		"2006/01/02",
		"01/02/2006",
		"1/2/2006",
		"02 Jan 2006",
		"2 Jan 2006",
		"Jan 2, 2006",
		"January 2, 2006",
	}

	errRequired = errors.New("This field is required")
)

// ParseCell converts the raw text of a CSV cell into the value stored for col.
// Empty cells are nil, or an error when the column is required.
func ParseCell(col ColumnConfig, raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if col.Required {
			return nil, errRequired
		}
		return nil, nil
	}

	switch col.Type {
	case TypeNumber:
		return parseNumber(raw)
	case TypeBoolean:
		return parseBool(raw)
	case TypeDate, TypeDatetime:
		t, err := parseTime(raw)
		if err != nil {
			return nil, err
		}
		return formatTime(col.Type, t), nil
	case TypeEnum:
		for _, v := range col.EnumValues {
			if strings.EqualFold(v, raw) {
				return v, nil
			}
		}
		return nil, fmt.Errorf("Must be one of: %s", strings.Join(col.EnumValues, ", "))
	case TypeJSON:
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, errors.New("Must be valid JSON")
		}
		b, _ := json.Marshal(v)
		return string(b), nil
	case TypeEmail:
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			return nil, errors.New("Must be a valid email address")
		}
		return strings.ToLower(addr.Address), nil
	case TypeURL:
		u, err := url.ParseRequestURI(raw)
		if err != nil || u.Scheme == "" {
			return nil, errors.New("Must be a valid URL")
		}
		return raw, nil
	case TypeUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.New("Must be a valid UUID")
		}
		return id.String(), nil
	}
	return raw, nil
}

// CoerceValue converts a decoded JSON value into the value stored for col.
func CoerceValue(col ColumnConfig, v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil:
		if col.Required {
			return nil, errRequired
		}
		return nil, nil
	case string:
		if col.Type == TypeText || col.Type == TypeTextarea {
			if col.Required && strings.TrimSpace(val) == "" {
				return nil, errRequired
			}
			return val, nil
		}
		return ParseCell(col, val)
	case bool:
		switch col.Type {
		case TypeBoolean:
			return val, nil
		case TypeJSON:
			return strconv.FormatBool(val), nil
		case TypeText, TypeTextarea:
			return strconv.FormatBool(val), nil
		}
		return ParseCell(col, strconv.FormatBool(val))
	case float64, float32, int, int64, int32, json.Number:
		s := fmt.Sprint(val)
		switch col.Type {
		case TypeNumber:
			return parseNumber(s)
		case TypeJSON, TypeText, TypeTextarea:
			return s, nil
		}
		return ParseCell(col, s)
	case time.Time:
		if col.Type.IsTemporal() {
			return formatTime(col.Type, val), nil
		}
		return ParseCell(col, val.Format(DatetimeLayout))
	case []interface{}, map[string]interface{}, []string:
		if col.Type != TypeJSON {
			return nil, fmt.Errorf("Must be a %s value", col.Type)
		}
		b, err := json.Marshal(val)
		if err != nil {
			return nil, errors.New("Must be valid JSON")
		}
		return string(b), nil
	}
	return nil, fmt.Errorf("Unsupported value %v", v)
}

// parseNumber reads the leading numeric part of s: "12.5kg" is 12.5, "kg" is an error.
// Whole numbers are returned as int64.
func parseNumber(s string) (interface{}, error) {
	m := numberPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return nil, errors.New("Must be a number")
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, errors.New("Must be a number")
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f), nil
	}
	return f, nil
}

func parseBool(s string) (bool, error) {
	token := strings.ToLower(strings.TrimSpace(s))
	if trueTokens[token] {
		return true, nil
	}
	if falseTokens[token] {
		return false, nil
	}
	return false, errors.New("Must be a boolean (true/false, yes/no, 1/0)")
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("Must be a valid date")
}

func formatTime(ct ColumnType, t time.Time) string {
	if ct == TypeDate {
		return t.Format(DateLayout)
	}
	return t.UTC().Format(DatetimeLayout)
}
