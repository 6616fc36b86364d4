package importexport

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/trezcool/summercamps/core/datamgmt"
)

// ExportCSV writes the non-hidden columns of rows, headed by their display names.
func ExportCSV(w io.Writer, cfg datamgmt.TableConfig, rows []datamgmt.Row) error {
	cols := cfg.VisibleColumns()
	cw := csv.NewWriter(w)

	headers := make([]string, len(cols))
	for i, col := range cols {
		headers[i] = col.DisplayName
	}
	if err := cw.Write(headers); err != nil {
		return err
	}

	rec := make([]string, len(cols))
	for _, row := range rows {
		for i, col := range cols {
			rec[i] = FormatValue(col, row[col.Name])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatValue renders a stored value as CSV cell text: nil is empty, lists and objects are JSON.
func FormatValue(col datamgmt.ColumnConfig, v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		if col.Type == datamgmt.TypeDate {
			return val.Format(datamgmt.DateLayout)
		}
		return val.UTC().Format(datamgmt.DatetimeLayout)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// ExportJSON writes rows as an indented JSON array.
func ExportJSON(w io.Writer, rows []datamgmt.Row) error {
	if rows == nil {
		rows = []datamgmt.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// GenerateTemplate writes the editable columns of cfg and one example row.
func GenerateTemplate(w io.Writer, cfg datamgmt.TableConfig) error {
	cols := cfg.EditableColumns()
	headers := make([]string, len(cols))
	example := make([]string, len(cols))
	for i, col := range cols {
		headers[i] = col.DisplayName
		example[i] = exampleValue(col)
	}

	cw := csv.NewWriter(w)
	_ = cw.Write(headers)
	_ = cw.Write(example)
	cw.Flush()
	return cw.Error()
}

func exampleValue(col datamgmt.ColumnConfig) string {
	switch col.Type {
	case datamgmt.TypeNumber:
		return "10"
	case datamgmt.TypeBoolean:
		return "true"
	case datamgmt.TypeDate:
		return "2024-07-01"
	case datamgmt.TypeDatetime:
		return "2024-07-01T09:00:00Z"
	case datamgmt.TypeEnum:
		if len(col.EnumValues) > 0 {
			return col.EnumValues[0]
		}
	case datamgmt.TypeJSON:
		return "[]"
	case datamgmt.TypeEmail:
		return "name@example.com"
	case datamgmt.TypeURL:
		return "https://example.com"
	case datamgmt.TypeUUID:
		return "00000000-0000-4000-8000-000000000000"
	}
	return "Example " + col.DisplayName
}
