package importexport

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/datamgmt"
	inmemdb "github.com/trezcool/summercamps/storage/database/inmem"
)

func campsConfig(t *testing.T) datamgmt.TableConfig {
	t.Helper()
	cfg, err := datamgmt.DefaultRegistry().Table("camps")
	require.NoError(t, err)
	return cfg
}

func TestParseCSV(t *testing.T) {
	in := "Name,Notes,Extra\n" +
		`"a,b""c","line one` + "\n" + `line two",x` + "\n" +
		"short\n"
	headers, records, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Notes", "Extra"}, headers)
	require.Len(t, records, 2)
	assert.Equal(t, []string{`a,b"c`, "line one\nline two", "x"}, records[0])
	assert.Equal(t, []string{"short", "", ""}, records[1])

	_, _, err = ParseCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestValidateCSV_InvalidDate(t *testing.T) {
	in := "Name,Slug,Organisation,Status,Price,Start Date\n" +
		"Lakeside,lakeside,5b7e4b8e-2f0a-4a57-9a0e-6f1d1f4c3b21,published,450,2024-07-01\n" +
		"Mountain,mountain,5b7e4b8e-2f0a-4a57-9a0e-6f1d1f4c3b21,draft,520,not-a-date\n" +
		"Coding,coding,5b7e4b8e-2f0a-4a57-9a0e-6f1d1f4c3b21,draft,300,\n"

	res, err := ValidateCSV(campsConfig(t), strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.ErrorCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, ImportError{Row: 3, Field: "Start Date", Message: "Must be a valid date", Value: "not-a-date"}, res.Errors[0])
	require.Len(t, res.Data, 2)
	assert.Equal(t, "2024-07-01", res.Data[0]["start_date"])
	assert.Equal(t, int64(450), res.Data[0]["price"])
	assert.NotContains(t, res.Data[1], "start_date")
}

func TestValidateRecords(t *testing.T) {
	cfg := campsConfig(t)
	org := "5b7e4b8e-2f0a-4a57-9a0e-6f1d1f4c3b21"

	t.Run("missing required column", func(t *testing.T) {
		res := ValidateRecords(cfg, []string{"name", "slug", "organisation_id", "status"}, [][]string{{"Lakeside", "lakeside", org, "draft"}})
		assert.Equal(t, 1, res.ErrorCount)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "Price", res.Errors[0].Field)
		assert.Equal(t, "This field is required", res.Errors[0].Message)
	})

	t.Run("booleans", func(t *testing.T) {
		headers := []string{"NAME", "slug", "organisation", "status", "price", "featured"}
		var records [][]string
		for _, token := range []string{"yes", "1", "Y", "true", "T"} {
			records = append(records, []string{"Camp", "camp-" + token, org, "draft", "10", token})
		}
		res := ValidateRecords(cfg, headers, records)
		require.Equal(t, 5, res.SuccessCount, res.Errors)
		for _, row := range res.Data {
			assert.Equal(t, true, row["featured"])
		}
	})

	t.Run("out of enum", func(t *testing.T) {
		res := ValidateRecords(cfg, []string{"Name", "Slug", "Organisation", "Status", "Price"}, [][]string{{"Camp", "camp", org, "live", "10"}})
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "Status", res.Errors[0].Field)
		assert.Equal(t, "Must be one of: draft, pending_review, published, archived", res.Errors[0].Message)
		assert.Equal(t, "live", res.Errors[0].Value)
	})

	t.Run("unknown and read-only columns are ignored", func(t *testing.T) {
		res := ValidateRecords(cfg,
			[]string{"Name", "Slug", "Organisation", "Status", "Price", "Enrolled", "id", "Colour"},
			[][]string{{"Camp", "camp", org, "draft", "10", "99", "x", "red"}},
		)
		require.Equal(t, 1, res.SuccessCount, res.Errors)
		assert.NotContains(t, res.Data[0], "enrolled_count")
		assert.NotContains(t, res.Data[0], "id")
	})
}

func TestValidateJSON(t *testing.T) {
	in := `[
		{"name": "Lakeside", "slug": "lakeside", "organisation_id": "5b7e4b8e-2f0a-4a57-9a0e-6f1d1f4c3b21", "status": "draft", "price": 450, "highlights": ["canoe", "campfire"]},
		{"name": "Broken", "slug": "broken", "status": "draft", "price": "cheap"}
	]`
	res, err := ValidateJSON(campsConfig(t), strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, `["canoe","campfire"]`, res.Data[0]["highlights"])

	fields := map[string]string{}
	for _, e := range res.Errors {
		assert.Equal(t, 3, e.Row)
		fields[e.Field] = e.Message
	}
	assert.Equal(t, "This field is required", fields["Organisation"])
	assert.Equal(t, "Must be a number", fields["Price"])

	_, err = ValidateJSON(campsConfig(t), strings.NewReader(`{"name": "x"}`))
	assert.Error(t, err)
}

func TestExportCSV(t *testing.T) {
	cfg := datamgmt.TableConfig{
		Name: "things",
		Columns: []datamgmt.ColumnConfig{
			{Name: "name", DisplayName: "Name", Type: datamgmt.TypeText},
			{Name: "tags", DisplayName: "Tags", Type: datamgmt.TypeJSON},
			{Name: "active", DisplayName: "Active", Type: datamgmt.TypeBoolean},
			{Name: "price", DisplayName: "Price", Type: datamgmt.TypeNumber},
			{Name: "secret", DisplayName: "Secret", Type: datamgmt.TypeText, Hidden: true},
		},
	}
	rows := []datamgmt.Row{
		{"name": `a,b"c`, "tags": []interface{}{"x", "y"}, "active": true, "price": 12.5, "secret": "s"},
		{"name": "plain", "tags": nil, "active": false, "price": int64(3)},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, cfg, rows))
	want := "Name,Tags,Active,Price\n" +
		`"a,b""c","[""x"",""y""]",true,12.5` + "\n" +
		"plain,,false,3\n"
	assert.Equal(t, want, buf.String())

	// round trip through the parser
	headers, records, err := ParseCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Tags", "Active", "Price"}, headers)
	assert.Equal(t, `a,b"c`, records[0][0])
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, ExportJSON(&buf, []datamgmt.Row{{"name": "x"}}))
	assert.Equal(t, "[\n  {\n    \"name\": \"x\"\n  }\n]\n", buf.String())
}

func TestGenerateTemplate(t *testing.T) {
	cfg, err := datamgmt.DefaultRegistry().Table("discount_codes")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, GenerateTemplate(&buf, cfg))
	headers, records, err := ParseCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Code", "Description", "Type", "Value", "Camp", "Valid From", "Valid Until", "Max Uses", "Active"}, headers)
	require.Len(t, records, 1)

	// the example row must pass validation itself
	res := ValidateRecords(cfg, headers, records)
	assert.Equal(t, 1, res.SuccessCount, res.Errors)
}

func TestService_Import(t *testing.T) {
	registry := datamgmt.DefaultRegistry()
	tables := datamgmt.NewService(inmemdb.NewTableStore(inmemdb.Open()), registry, core.NopLogger())
	svc := NewService(tables, nil, core.NopLogger())
	ctx := context.Background()

	in := "Name,Slug,Status\nLakeside,lakeside,active\nBroken,,active\nAlpine,alpine,active\n"

	res := svc.Import(ctx, "organisations", strings.NewReader(in), FormatCSV, true)
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Data.DryRun)
	assert.Equal(t, 0, res.Data.Inserted)
	assert.Equal(t, 2, res.Data.SuccessCount)
	assert.Equal(t, 0, tables.GetTableData(ctx, "organisations", datamgmt.Query{}).Count)

	res = svc.Import(ctx, "organisations", strings.NewReader(in), FormatCSV, false)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Data.Inserted)
	assert.Equal(t, 1, res.Data.ErrorCount)
	assert.Equal(t, 2, tables.GetTableData(ctx, "organisations", datamgmt.Query{}).Count)

	// same slugs again: the insert fails with a translated message
	res = svc.Import(ctx, "organisations", strings.NewReader(in), FormatCSV, false)
	assert.False(t, res.Success)
	assert.Equal(t, "A record with this value already exists", res.Error)

	res = svc.Import(ctx, "communications", strings.NewReader(in), FormatCSV, false)
	assert.False(t, res.Success)
	assert.Equal(t, "Permission denied: you do not have access to this record", res.Error)

	exp := svc.Export(ctx, "organisations", datamgmt.Query{Sort: []core.DBOrdering{{Field: "name", Ascending: true}}}, FormatCSV)
	require.True(t, exp.Success, exp.Error)
	assert.Equal(t, 2, exp.Count)
	lines := strings.Split(strings.TrimSpace(string(exp.Data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Name,Slug,Email"))
	assert.Contains(t, lines[1], ",Alpine,alpine,")
}
