package datastore

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// SqliteAdapter provides support for SQLite databases through the pure Go driver, for builds
// without cgo. The schema is the same as for Sqlite3Adapter.
type SqliteAdapter struct{}

func (s SqliteAdapter) PostCreate(db *sqlx.DB) error {
	return sqlitePragmas(db)
}

func (s SqliteAdapter) BindType() int {
	return sqlx.QUESTION
}

func (s SqliteAdapter) SupportsLastInsertId() bool {
	return true
}

func (s SqliteAdapter) IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func (s SqliteAdapter) versionTableQuery() string {
	return sqliteVersionTable
}

func (s SqliteAdapter) migrations() []migration {
	return sqliteMigrations()
}
