package datastore

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresAdapter provides support for PostgreSQL databases.
type PostgresAdapter struct{}

func (a PostgresAdapter) PostCreate(db *sqlx.DB) (err error) {
	return nil
}

func (a PostgresAdapter) BindType() int {
	return sqlx.DOLLAR
}

// The lib/pq driver does not implement LastInsertId, inserts use RETURNING instead.
func (a PostgresAdapter) SupportsLastInsertId() bool {
	return false
}

func (a PostgresAdapter) IsUniqueViolation(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code.Name() == "unique_violation"
	}
	return false
}

func (a PostgresAdapter) versionTableQuery() string {
	return `CREATE TABLE IF NOT EXISTS schema_migrations (version integer PRIMARY KEY NOT NULL)`
}

func (a PostgresAdapter) migrations() []migration {
	return []migration{
		// 1
		{
			up: []string{
				`CREATE TABLE language (
    id SERIAL PRIMARY KEY,
    code varchar NOT NULL UNIQUE,
    name varchar NOT NULL DEFAULT ''
)`,
				`CREATE TABLE catalog (
    id SERIAL PRIMARY KEY,
    name varchar NOT NULL UNIQUE,
    source_language varchar NOT NULL DEFAULT ''
)`,
				`CREATE TABLE catalog_language (
    id SERIAL PRIMARY KEY,
    catalog_id integer NOT NULL REFERENCES catalog(id) ON DELETE CASCADE ON UPDATE CASCADE,
    language_id integer NOT NULL REFERENCES language(id) ON DELETE CASCADE ON UPDATE CASCADE,
    version varchar NOT NULL DEFAULT ''
)`,
				`CREATE UNIQUE INDEX catalog_language_idx ON catalog_language (catalog_id, language_id)`,
				`CREATE TABLE context (
    id SERIAL PRIMARY KEY,
    catalog_id integer NOT NULL REFERENCES catalog(id) ON DELETE CASCADE ON UPDATE CASCADE,
    name varchar NOT NULL,
    position integer NOT NULL DEFAULT 0
)`,
				`CREATE UNIQUE INDEX context_catalog_name_idx ON context (catalog_id, name)`,
				`CREATE TABLE message (
    id SERIAL PRIMARY KEY,
    context_id integer NOT NULL REFERENCES context(id) ON DELETE CASCADE ON UPDATE CASCADE,
    source TEXT NOT NULL,
    comment TEXT NOT NULL DEFAULT '',
    key_hash char(40) NOT NULL,
    extra_comment TEXT NOT NULL DEFAULT '',
    numerus boolean NOT NULL DEFAULT false,
    position integer NOT NULL DEFAULT 0
)`,
				`CREATE UNIQUE INDEX message_context_key_idx ON message (context_id, key_hash)`,
				`CREATE TABLE translation (
    id SERIAL PRIMARY KEY,
    message_id integer NOT NULL REFERENCES message(id) ON DELETE CASCADE ON UPDATE CASCADE,
    language_id integer NOT NULL REFERENCES language(id) ON DELETE CASCADE ON UPDATE CASCADE,
    content TEXT NOT NULL DEFAULT '',
    status varchar NOT NULL DEFAULT '',
    locations TEXT NOT NULL DEFAULT '',
    translator_comment TEXT NOT NULL DEFAULT ''
)`,
				`CREATE INDEX translation_language_id_idx ON translation (language_id)`,
				`CREATE UNIQUE INDEX translation_message_language_idx ON translation (message_id, language_id)`,
			},
			down: []string{
				`DROP TABLE translation`,
				`DROP TABLE message`,
				`DROP TABLE context`,
				`DROP TABLE catalog_language`,
				`DROP TABLE catalog`,
				`DROP TABLE language`,
			},
		},
		// 2
		seedMigration(),
	}
}
