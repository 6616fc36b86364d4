package datamgmt

import (
	"context"
	"strings"

	"github.com/trezcool/summercamps/core"
)

// Column types
const (
	TypeText     ColumnType = "text"
	TypeTextarea ColumnType = "textarea"
	TypeEmail    ColumnType = "email"
	TypeURL      ColumnType = "url"
	TypeUUID     ColumnType = "uuid"
	TypeNumber   ColumnType = "number"
	TypeBoolean  ColumnType = "boolean"
	TypeDate     ColumnType = "date"
	TypeDatetime ColumnType = "datetime"
	TypeEnum     ColumnType = "enum"
	TypeJSON     ColumnType = "json"
)

// Columns that are never written by clients.
const (
	ColID        = "id"
	ColCreatedAt = "created_at"
	ColUpdatedAt = "updated_at"
)

type (
	ColumnType string

	ForeignKey struct {
		Table         string `json:"table"`
		Column        string `json:"column"`
		DisplayColumn string `json:"display_column"`
	}

	ColumnConfig struct {
		Name        string      `json:"name"`
		DisplayName string      `json:"display_name"`
		Type        ColumnType  `json:"type"`
		Required    bool        `json:"required"`
		Editable    bool        `json:"editable"`
		Hidden      bool        `json:"hidden"`
		Searchable  bool        `json:"searchable"`
		Sortable    bool        `json:"sortable"`
		Unique      bool        `json:"unique"`
		EnumValues  []string    `json:"enum_values,omitempty"`
		ForeignKey  *ForeignKey `json:"foreign_key,omitempty"`
	}

	TableConfig struct {
		Name        string          `json:"name"`
		DisplayName string          `json:"display_name"`
		PrimaryKey  string          `json:"primary_key"`
		DefaultSort core.DBOrdering `json:"default_sort"`
		Columns     []ColumnConfig  `json:"columns"`
		ReadOnly    bool            `json:"read_only"`
	}

	// Row is a record of any table, keyed by column name.
	Row map[string]interface{}

	// Option is a select input choice built from a foreign key.
	Option struct {
		Value interface{} `json:"value"`
		Label string      `json:"label"`
	}

	// Store reads and writes rows of any configured table.
	// Implementations must only use column names found in the TableConfig.
	Store interface {
		Query(ctx context.Context, cfg TableConfig, q Query) ([]Row, int, error)
		Get(ctx context.Context, cfg TableConfig, id string) (Row, error)
		Insert(ctx context.Context, cfg TableConfig, values Row) (Row, error)
		InsertMany(ctx context.Context, cfg TableConfig, rows []Row) (int, error)
		Update(ctx context.Context, cfg TableConfig, ids []string, values Row) ([]Row, error)
		Delete(ctx context.Context, cfg TableConfig, ids []string) (int, error)
		Lookup(ctx context.Context, fk ForeignKey) ([]Option, error)
	}
)

func (ct ColumnType) IsTemporal() bool { return ct == TypeDate || ct == TypeDatetime }

func (cfg TableConfig) Column(name string) (ColumnConfig, bool) {
	for _, col := range cfg.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnConfig{}, false
}

func (cfg TableConfig) HasColumn(name string) bool {
	_, ok := cfg.Column(name)
	return ok
}

// MatchColumn finds a column by name or display name, ignoring case.
func (cfg TableConfig) MatchColumn(header string) (ColumnConfig, bool) {
	header = strings.TrimSpace(header)
	for _, col := range cfg.Columns {
		if strings.EqualFold(col.Name, header) || strings.EqualFold(col.DisplayName, header) {
			return col, true
		}
	}
	return ColumnConfig{}, false
}

func (cfg TableConfig) ColumnNames() []string {
	names := make([]string, len(cfg.Columns))
	for i, col := range cfg.Columns {
		names[i] = col.Name
	}
	return names
}

func (cfg TableConfig) filterColumns(keep func(ColumnConfig) bool) []ColumnConfig {
	cols := make([]ColumnConfig, 0, len(cfg.Columns))
	for _, col := range cfg.Columns {
		if keep(col) {
			cols = append(cols, col)
		}
	}
	return cols
}

func (cfg TableConfig) EditableColumns() []ColumnConfig {
	return cfg.filterColumns(func(col ColumnConfig) bool { return col.Editable })
}

func (cfg TableConfig) VisibleColumns() []ColumnConfig {
	return cfg.filterColumns(func(col ColumnConfig) bool { return !col.Hidden })
}

func (cfg TableConfig) SearchableColumns() []ColumnConfig {
	return cfg.filterColumns(func(col ColumnConfig) bool { return col.Searchable })
}

// IsImmutable reports whether column may never be set by a client.
func (cfg TableConfig) IsImmutable(column string) bool {
	return column == ColID || column == ColCreatedAt || column == cfg.PrimaryKey
}
