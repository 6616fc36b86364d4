package core

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/pkg/errors"
)

// StringList is a list of strings stored as a JSON array in a text column.
type StringList []string

func (l *StringList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// JSONColumn stores any JSON-serialisable value in a text column.
type JSONColumn[T any] struct {
	V T
}

func (c *JSONColumn[T]) Scan(src interface{}) error {
	return scanJSON(src, &c.V)
}

func (c JSONColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(c.V)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c JSONColumn[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.V)
}

func (c *JSONColumn[T]) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &c.V)
}

func scanJSON(src interface{}, dst interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("cannot scan %T into JSON column", src)
	}
	if len(data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, dst), "decoding JSON column")
}
