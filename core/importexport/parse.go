// Package importexport turns CSV or JSON files into validated rows of a datamgmt table, and rows back into files.
package importexport

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core/datamgmt"
)

// headerOffset turns a 0-based data row index into the 1-based line users see in a spreadsheet.
const headerOffset = 2

type (
	ImportError struct {
		Row     int    `json:"row"`
		Field   string `json:"field"`
		Message string `json:"message"`
		Value   string `json:"value"`
	}

	ImportResult struct {
		Total        int            `json:"total"`
		SuccessCount int            `json:"success_count"`
		ErrorCount   int            `json:"error_count"`
		Inserted     int            `json:"inserted"`
		DryRun       bool           `json:"dry_run"`
		Errors       []ImportError  `json:"errors"`
		Data         []datamgmt.Row `json:"data"`
	}
)

// ParseCSV reads comma delimited records with double-quote escaping. Rows shorter than the
// header are padded with empty cells.
func ParseCSV(r io.Reader) (headers []string, records [][]string, err error) {
	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = -1
	rdr.LazyQuotes = true

	all, err := rdr.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading CSV")
	}
	if len(all) == 0 {
		return nil, nil, errors.New("CSV file is empty")
	}

	headers = all[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	records = all[1:]
	for i, rec := range records {
		if len(rec) < len(headers) {
			padded := make([]string, len(headers))
			copy(padded, rec)
			records[i] = padded
		}
	}
	return headers, records, nil
}

// ValidateRecords coerces every cell per the column type of cfg. Only rows without errors
// are kept in the result's Data.
func ValidateRecords(cfg datamgmt.TableConfig, headers []string, records [][]string) ImportResult {
	// column name -> index in record
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if col, ok := cfg.MatchColumn(h); ok && col.Editable && !cfg.IsImmutable(col.Name) {
			if _, dup := index[col.Name]; !dup {
				index[col.Name] = i
			}
		}
	}

	res := ImportResult{Total: len(records), Errors: []ImportError{}, Data: []datamgmt.Row{}}
	for i, rec := range records {
		row, errs := validateRecord(cfg, index, rec, i+headerOffset)
		if len(errs) > 0 {
			res.ErrorCount++
			res.Errors = append(res.Errors, errs...)
			continue
		}
		res.SuccessCount++
		res.Data = append(res.Data, row)
	}
	return res
}

func validateRecord(cfg datamgmt.TableConfig, index map[string]int, rec []string, rowNum int) (datamgmt.Row, []ImportError) {
	row := make(datamgmt.Row, len(index))
	var errs []ImportError
	for _, col := range cfg.EditableColumns() {
		i, mapped := index[col.Name]
		if !mapped && !col.Required {
			continue
		}
		var raw string
		if mapped && i < len(rec) {
			raw = rec[i]
		}
		v, err := datamgmt.ParseCell(col, raw)
		if err != nil {
			errs = append(errs, ImportError{Row: rowNum, Field: col.DisplayName, Message: err.Error(), Value: raw})
			continue
		}
		if v != nil {
			row[col.Name] = v
		}
	}
	return row, errs
}

// ValidateCSV parses and validates a CSV file against cfg.
func ValidateCSV(cfg datamgmt.TableConfig, r io.Reader) (ImportResult, error) {
	headers, records, err := ParseCSV(r)
	if err != nil {
		return ImportResult{}, err
	}
	return ValidateRecords(cfg, headers, records), nil
}

// ValidateJSON validates an array of objects against cfg with the CSV rules.
func ValidateJSON(cfg datamgmt.TableConfig, r io.Reader) (ImportResult, error) {
	var objects []map[string]interface{}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&objects); err != nil {
		return ImportResult{}, errors.Wrap(err, "JSON import must be an array of objects")
	}

	headerSet := make(map[string]struct{})
	var headers []string
	for _, obj := range objects {
		for k := range obj {
			if _, ok := headerSet[k]; !ok {
				headerSet[k] = struct{}{}
				headers = append(headers, k)
			}
		}
	}
	records := make([][]string, len(objects))
	for i, obj := range objects {
		rec := make([]string, len(headers))
		for j, h := range headers {
			rec[j] = cellText(obj[h])
		}
		records[i] = rec
	}
	return ValidateRecords(cfg, headers, records), nil
}

func cellText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return fmt.Sprint(val)
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}
