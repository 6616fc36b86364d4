package inmemdb

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/datamgmt"
)

type tableStore struct {
	db *tableSet
}

var _ datamgmt.Store = (*tableStore)(nil) // interface compliance check

func NewTableStore(db *DB) datamgmt.Store {
	return &tableStore{db: db.tables}
}

func (s *tableStore) table(name string) map[string]datamgmt.Row {
	t, ok := s.db.rows[name]
	if !ok {
		t = make(map[string]datamgmt.Row)
		s.db.rows[name] = t
	}
	return t
}

func copyRow(r datamgmt.Row) datamgmt.Row {
	c := make(datamgmt.Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

func (s *tableStore) Query(_ context.Context, cfg datamgmt.TableConfig, q datamgmt.Query) ([]datamgmt.Row, int, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	rows := make([]datamgmt.Row, 0)
	for _, r := range s.db.rows[cfg.Name] {
		if matchRow(cfg, r, q) {
			rows = append(rows, copyRow(r))
		}
	}
	sortRows(rows, cfg.PrimaryKey, q.Sort)

	count := len(rows)
	if q.Pagination.PerPage > 0 {
		start := q.Pagination.Offset()
		if start > count {
			start = count
		}
		end := start + q.Pagination.Limit()
		if end > count {
			end = count
		}
		rows = rows[start:end]
	}
	return rows, count, nil
}

func (s *tableStore) Get(_ context.Context, cfg datamgmt.TableConfig, id string) (datamgmt.Row, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	if r, ok := s.db.rows[cfg.Name][id]; ok {
		return copyRow(r), nil
	}
	return nil, core.ErrNotFound
}

func (s *tableStore) Insert(_ context.Context, cfg datamgmt.TableConfig, values datamgmt.Row) (datamgmt.Row, error) {
	s.db.Lock()
	defer s.db.Unlock()

	if err := s.insert(cfg, values); err != nil {
		return nil, err
	}
	return copyRow(values), nil
}

// InsertMany stops at the first failing row; rows inserted before it are kept.
func (s *tableStore) InsertMany(_ context.Context, cfg datamgmt.TableConfig, rows []datamgmt.Row) (int, error) {
	s.db.Lock()
	defer s.db.Unlock()

	for i, r := range rows {
		if err := s.insert(cfg, r); err != nil {
			return i, err
		}
	}
	return len(rows), nil
}

func (s *tableStore) insert(cfg datamgmt.TableConfig, values datamgmt.Row) error {
	id := fmt.Sprint(values[cfg.PrimaryKey])
	t := s.table(cfg.Name)
	if _, ok := t[id]; ok {
		return core.ErrUniqueViolation
	}
	if err := checkUnique(cfg, t, id, values); err != nil {
		return err
	}
	t[id] = copyRow(values)
	return nil
}

func (s *tableStore) Update(_ context.Context, cfg datamgmt.TableConfig, ids []string, values datamgmt.Row) ([]datamgmt.Row, error) {
	s.db.Lock()
	defer s.db.Unlock()

	t := s.table(cfg.Name)
	updated := make([]datamgmt.Row, 0, len(ids))
	for _, id := range ids {
		r, ok := t[id]
		if !ok {
			continue
		}
		if err := checkUnique(cfg, t, id, values); err != nil {
			return nil, err
		}
		for k, v := range values {
			r[k] = v
		}
		updated = append(updated, copyRow(r))
	}
	return updated, nil
}

func (s *tableStore) Delete(_ context.Context, cfg datamgmt.TableConfig, ids []string) (int, error) {
	s.db.Lock()
	defer s.db.Unlock()

	t := s.table(cfg.Name)
	var n int
	for _, id := range ids {
		if _, ok := t[id]; ok {
			delete(t, id)
			n++
		}
	}
	return n, nil
}

func (s *tableStore) Lookup(_ context.Context, fk datamgmt.ForeignKey) ([]datamgmt.Option, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	opts := make([]datamgmt.Option, 0, len(s.db.rows[fk.Table]))
	for _, r := range s.db.rows[fk.Table] {
		opts = append(opts, datamgmt.Option{Value: r[fk.Column], Label: fmt.Sprint(r[fk.DisplayColumn])})
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].Label < opts[j].Label })
	return opts, nil
}

func checkUnique(cfg datamgmt.TableConfig, t map[string]datamgmt.Row, id string, values datamgmt.Row) error {
	for _, col := range cfg.Columns {
		if !col.Unique {
			continue
		}
		v, ok := values[col.Name]
		if !ok || v == nil {
			continue
		}
		for otherID, other := range t {
			if otherID != id && other[col.Name] == v {
				return core.ErrUniqueViolation
			}
		}
	}
	return nil
}

func matchRow(cfg datamgmt.TableConfig, r datamgmt.Row, q datamgmt.Query) bool {
	for _, f := range q.Filters {
		if !Matches(r[f.Column], f) {
			return false
		}
	}
	if q.Search == "" {
		return true
	}
	search := strings.ToLower(q.Search)
	for _, col := range cfg.SearchableColumns() {
		if v, ok := r[col.Name].(string); ok && strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}

func sortRows(rows []datamgmt.Row, pk string, ordering []core.DBOrdering) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := rows[i][ord.Field], rows[j][ord.Field]
			// NULLs last
			if a == nil || b == nil {
				if a == nil && b == nil {
					continue
				}
				return b == nil
			}
			if c, ok := compare(a, b); ok && c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return fmt.Sprint(rows[i][pk]) < fmt.Sprint(rows[j][pk])
	})
}
