package datastore

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// Sqlite3Adapter provides support for SQLite3 databases through the cgo driver.
type Sqlite3Adapter struct{}

func (s Sqlite3Adapter) PostCreate(db *sqlx.DB) error {
	return sqlitePragmas(db)
}

func (s Sqlite3Adapter) BindType() int {
	return sqlx.QUESTION
}

func (s Sqlite3Adapter) SupportsLastInsertId() bool {
	return true
}

func (s Sqlite3Adapter) IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func (s Sqlite3Adapter) versionTableQuery() string {
	return sqliteVersionTable
}

func (s Sqlite3Adapter) migrations() []migration {
	return sqliteMigrations()
}

const sqliteVersionTable = `CREATE TABLE IF NOT EXISTS "schema_migrations" ("version" INTEGER PRIMARY KEY NOT NULL)`

func sqlitePragmas(db *sqlx.DB) (err error) {
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return err
	}
	// Faster than using default journal file
	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return err
	}
	// Default (full) is slower
	_, err = db.Exec("PRAGMA synchronous = NORMAL")
	if err != nil {
		return err
	}

	return nil
}

// sqliteMigrations is shared by both SQLite drivers.
func sqliteMigrations() []migration {
	return []migration{
		// 1
		{
			up: []string{
				`CREATE TABLE "language" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "code" TEXT NOT NULL UNIQUE,
    "name" TEXT NOT NULL DEFAULT ''
)`,
				`CREATE TABLE "catalog" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "name" TEXT NOT NULL UNIQUE,
    "source_language" TEXT NOT NULL DEFAULT ''
)`,
				`CREATE TABLE "catalog_language" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "catalog_id" INTEGER NOT NULL REFERENCES "catalog"("id") ON UPDATE CASCADE ON DELETE CASCADE,
    "language_id" INTEGER NOT NULL REFERENCES "language"("id") ON UPDATE CASCADE ON DELETE CASCADE,
    "version" TEXT NOT NULL DEFAULT '',
    UNIQUE ("catalog_id", "language_id")
)`,
				`CREATE TABLE "context" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "catalog_id" INTEGER NOT NULL REFERENCES "catalog"("id") ON UPDATE CASCADE ON DELETE CASCADE,
    "name" TEXT NOT NULL,
    "position" INTEGER NOT NULL DEFAULT 0,
    UNIQUE ("catalog_id", "name")
)`,
				`CREATE TABLE "message" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "context_id" INTEGER NOT NULL REFERENCES "context"("id") ON UPDATE CASCADE ON DELETE CASCADE,
    "source" TEXT NOT NULL,
    "comment" TEXT NOT NULL DEFAULT '',
    "key_hash" TEXT NOT NULL,
    "extra_comment" TEXT NOT NULL DEFAULT '',
    "numerus" INTEGER NOT NULL DEFAULT 0,
    "position" INTEGER NOT NULL DEFAULT 0,
    UNIQUE ("context_id", "key_hash")
)`,
				`CREATE TABLE "translation" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "message_id" INTEGER NOT NULL REFERENCES "message"("id") ON UPDATE CASCADE ON DELETE CASCADE,
    "language_id" INTEGER NOT NULL REFERENCES "language"("id") ON UPDATE CASCADE ON DELETE CASCADE,
    "content" TEXT NOT NULL DEFAULT '',
    "status" TEXT NOT NULL DEFAULT '',
    "locations" TEXT NOT NULL DEFAULT '',
    "translator_comment" TEXT NOT NULL DEFAULT '',
    UNIQUE ("message_id", "language_id")
)`,
				`CREATE INDEX "translation_language_id" ON "translation" ("language_id")`,
			},
			down: []string{
				`DROP TABLE "translation"`,
				`DROP TABLE "message"`,
				`DROP TABLE "context"`,
				`DROP TABLE "catalog_language"`,
				`DROP TABLE "catalog"`,
				`DROP TABLE "language"`,
			},
		},
		// 2
		seedMigration(),
	}
}
