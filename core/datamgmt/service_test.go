package datamgmt

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/summercamps/core"
)

// storeSpy records the calls it receives and keeps rows in memory.
type storeSpy struct {
	rows  map[string]Row
	calls []string
	err   error
}

func newStoreSpy(rows ...Row) *storeSpy {
	s := &storeSpy{rows: make(map[string]Row)}
	for _, r := range rows {
		s.rows[r[ColID].(string)] = r
	}
	return s
}

func (s *storeSpy) Query(_ context.Context, _ TableConfig, q Query) ([]Row, int, error) {
	s.calls = append(s.calls, "Query")
	if s.err != nil {
		return nil, 0, s.err
	}
	rows := make([]Row, 0, len(s.rows))
	for _, r := range s.rows {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][ColID].(string) < rows[j][ColID].(string) })
	return rows, len(rows), nil
}

func (s *storeSpy) Get(_ context.Context, _ TableConfig, id string) (Row, error) {
	s.calls = append(s.calls, "Get")
	if r, ok := s.rows[id]; ok {
		return r, nil
	}
	return nil, core.ErrNotFound
}

func (s *storeSpy) Insert(_ context.Context, _ TableConfig, values Row) (Row, error) {
	s.calls = append(s.calls, "Insert")
	if s.err != nil {
		return nil, s.err
	}
	s.rows[values[ColID].(string)] = values
	return values, nil
}

func (s *storeSpy) InsertMany(_ context.Context, _ TableConfig, rows []Row) (int, error) {
	s.calls = append(s.calls, "InsertMany")
	for _, r := range rows {
		s.rows[r[ColID].(string)] = r
	}
	return len(rows), nil
}

func (s *storeSpy) Update(_ context.Context, _ TableConfig, ids []string, values Row) ([]Row, error) {
	s.calls = append(s.calls, "Update")
	if s.err != nil {
		return nil, s.err
	}
	var updated []Row
	for _, id := range ids {
		if r, ok := s.rows[id]; ok {
			for k, v := range values {
				r[k] = v
			}
			updated = append(updated, r)
		}
	}
	return updated, nil
}

func (s *storeSpy) Delete(_ context.Context, _ TableConfig, ids []string) (int, error) {
	s.calls = append(s.calls, "Delete")
	if s.err != nil {
		return 0, s.err
	}
	var n int
	for _, id := range ids {
		if _, ok := s.rows[id]; ok {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *storeSpy) Lookup(_ context.Context, fk ForeignKey) ([]Option, error) {
	s.calls = append(s.calls, "Lookup")
	return []Option{{Value: "org-1", Label: "Lakeside Adventures"}}, nil
}

func newTestService(store Store) *Service {
	svc := NewService(store, DefaultRegistry(), core.NopLogger())
	svc.nowFunc = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func campRow(id string) Row {
	return Row{
		ColID:             id,
		"name":            "Lakeside Adventure",
		"slug":            "lakeside-adventure",
		"organisation_id": "5b7e4b8e-2f0a-4a57-9a0e-6f1d1f4c3b21",
		"status":          "draft",
		"price":           int64(450),
		"enrolled_count":  int64(12),
		ColCreatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestService_BulkUpdate_NoFields(t *testing.T) {
	tests := []struct {
		name    string
		updates Row
	}{
		{name: "nil updates", updates: nil},
		{name: "empty updates", updates: Row{}},
		{name: "only immutable fields", updates: Row{"id": "x", "created_at": "2024-01-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStoreSpy(campRow("c1"))
			svc := newTestService(store)

			res := svc.BulkUpdate(context.Background(), "camps", []string{"c1"}, tt.updates)
			assert.False(t, res.Success)
			assert.Equal(t, "No fields to update", res.Error)
			assert.Empty(t, store.calls, "store must not be called")
		})
	}
}

func TestService_UpdateRecord(t *testing.T) {
	store := newStoreSpy(campRow("c1"))
	svc := newTestService(store)

	res := svc.UpdateRecord(context.Background(), "camps", "c1", Row{
		"id":         "hijacked",
		"created_at": "2000-01-01",
		"status":     "Published",
		"featured":   "yes",
		"price":      "499.50",
		"unknown":    "ignored",
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "c1", res.Data[ColID])
	assert.Equal(t, "published", res.Data["status"])
	assert.Equal(t, true, res.Data["featured"])
	assert.Equal(t, 499.5, res.Data["price"])
	assert.Equal(t, svc.nowFunc(), res.Data[ColUpdatedAt])
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), res.Data[ColCreatedAt])
	assert.NotContains(t, res.Data, "unknown")

	t.Run("not found", func(t *testing.T) {
		res := svc.UpdateRecord(context.Background(), "camps", "missing", Row{"name": "X"})
		assert.False(t, res.Success)
		assert.Equal(t, "Record not found", res.Error)
	})

	t.Run("invalid enum", func(t *testing.T) {
		res := svc.UpdateRecord(context.Background(), "camps", "c1", Row{"status": "live"})
		assert.False(t, res.Success)
		assert.Equal(t, "status: Must be one of: draft, pending_review, published, archived", res.Error)
	})
}

func TestService_ErrorTranslation(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{name: "unique", err: core.ErrUniqueViolation, wantMsg: "A record with this value already exists"},
		{name: "foreign key", err: core.ErrForeignKeyViolation, wantMsg: "This record references a related record that does not exist or is still in use"},
		{name: "permission", err: core.ErrPermissionDenied, wantMsg: "Permission denied: you do not have access to this record"},
		{name: "generic", err: assert.AnError, wantMsg: assert.AnError.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStoreSpy(campRow("c1"))
			store.err = tt.err
			svc := newTestService(store)

			res := svc.BulkDelete(context.Background(), "camps", []string{"c1"})
			assert.False(t, res.Success)
			assert.Equal(t, tt.wantMsg, res.Error)
			assert.Equal(t, tt.err, res.Err)
		})
	}
}

func TestService_UnknownTable(t *testing.T) {
	svc := newTestService(newStoreSpy())
	res := svc.GetTableData(context.Background(), "users; DROP TABLE camps", Query{})
	assert.False(t, res.Success)
	assert.Equal(t, "Unknown table", res.Error)
}

func TestService_ReadOnlyTable(t *testing.T) {
	store := newStoreSpy()
	svc := newTestService(store)

	res := svc.CreateRecord(context.Background(), "communications", Row{"subject": "Hi"})
	assert.False(t, res.Success)
	assert.Equal(t, "Permission denied: you do not have access to this record", res.Error)
	assert.Empty(t, store.calls)
}

func TestService_GetTableData(t *testing.T) {
	store := newStoreSpy(campRow("c1"), campRow("c2"))
	svc := newTestService(store)

	res := svc.GetTableData(context.Background(), "camps", Query{
		Filters: []Filter{{Column: "status", Operator: OpEq, Value: "draft"}},
	})
	require.True(t, res.Success)
	assert.Len(t, res.Data, 2)
	assert.Equal(t, 2, res.Count)

	res = svc.GetTableData(context.Background(), "camps", Query{
		Filters: []Filter{{Column: "password", Operator: OpEq, Value: "x"}},
	})
	assert.False(t, res.Success)
	assert.Equal(t, "Unknown column: password", res.Error)
}

func TestService_CreateRecord(t *testing.T) {
	store := newStoreSpy()
	svc := newTestService(store)

	res := svc.CreateRecord(context.Background(), "organisations", Row{"name": "Lakeside", "slug": "lakeside", "status": "active"})
	require.True(t, res.Success, res.Error)
	assert.NotEmpty(t, res.Data[ColID])
	assert.Equal(t, svc.nowFunc(), res.Data[ColCreatedAt])

	res = svc.CreateRecord(context.Background(), "organisations", Row{"name": "No slug"})
	assert.False(t, res.Success)
	verr, ok := res.Err.(*core.ValidationError)
	require.True(t, ok)
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Error
	}
	assert.Equal(t, "This field is required", fields["slug"])
	assert.Equal(t, "This field is required", fields["status"])
}

func TestService_DuplicateRecord(t *testing.T) {
	store := newStoreSpy(campRow("c1"))
	svc := newTestService(store)

	res := svc.DuplicateRecord(context.Background(), "camps", "c1")
	require.True(t, res.Success, res.Error)
	assert.NotEqual(t, "c1", res.Data[ColID])
	assert.Equal(t, "lakeside-adventure-copy", res.Data["slug"])
	assert.Equal(t, "Lakeside Adventure", res.Data["name"])
	assert.NotContains(t, res.Data, "enrolled_count")
	assert.Equal(t, svc.nowFunc(), res.Data[ColCreatedAt])

	assert.Equal(t, "jane-copy@example.com", copyValue(TypeEmail, "jane@example.com"))
	assert.Equal(t, "SUMMER10-copy", copyValue(TypeText, "SUMMER10"))
}

func TestService_LookupOptions(t *testing.T) {
	svc := newTestService(newStoreSpy())

	res := svc.LookupOptions(context.Background(), "camps", "organisation_id")
	require.True(t, res.Success)
	assert.Equal(t, []Option{{Value: "org-1", Label: "Lakeside Adventures"}}, res.Data)

	res = svc.LookupOptions(context.Background(), "camps", "name")
	assert.False(t, res.Success)
	assert.Equal(t, "Column name has no lookup", res.Error)
}

func TestService_DeleteRecord(t *testing.T) {
	store := newStoreSpy(campRow("c1"))
	svc := newTestService(store)

	res := svc.DeleteRecord(context.Background(), "camps", "c1")
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Data)

	res = svc.DeleteRecord(context.Background(), "camps", "c1")
	assert.False(t, res.Success)
	assert.Equal(t, "Record not found", res.Error)
}
