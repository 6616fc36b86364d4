// Package inmemdb keeps users and generic table rows in memory, for tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/summercamps/core/datamgmt"
	"github.com/trezcool/summercamps/core/user"
)

type (
	DB struct {
		user   *userTable
		tables *tableSet
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	tableSet struct {
		sync.RWMutex
		rows map[string]map[string]datamgmt.Row // {table: {id: row}}
	}
)

func Open() *DB {
	return &DB{
		user:   &userTable{table: make(map[string]*user.User)},
		tables: &tableSet{rows: make(map[string]map[string]datamgmt.Row)},
	}
}
