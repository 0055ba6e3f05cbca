package datastore

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// ER_DUP_ENTRY
const mysqlDuplicateEntry = 1062

// MysqlAdapter provides support for MySQL and MariaDB databases. Names are compared with a
// binary collation so that contexts differing only in case stay apart.
type MysqlAdapter struct{}

func (a MysqlAdapter) PostCreate(db *sqlx.DB) (err error) {
	return nil
}

func (a MysqlAdapter) BindType() int {
	return sqlx.QUESTION
}

func (a MysqlAdapter) SupportsLastInsertId() bool {
	return true
}

func (a MysqlAdapter) IsUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	return false
}

func (a MysqlAdapter) versionTableQuery() string {
	return `CREATE TABLE IF NOT EXISTS schema_migrations (version BIGINT PRIMARY KEY NOT NULL)`
}

// TEXT columns cannot have defaults in older MySQL versions, every insert sets them.
func (a MysqlAdapter) migrations() []migration {
	return []migration{
		// 1
		{
			up: []string{
				`CREATE TABLE language (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    code VARCHAR(35) COLLATE utf8mb4_bin NOT NULL UNIQUE,
    name VARCHAR(255) NOT NULL DEFAULT ''
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
				`CREATE TABLE catalog (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(191) COLLATE utf8mb4_bin NOT NULL UNIQUE,
    source_language VARCHAR(35) NOT NULL DEFAULT ''
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
				`CREATE TABLE catalog_language (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    catalog_id BIGINT NOT NULL,
    language_id BIGINT NOT NULL,
    version VARCHAR(16) NOT NULL DEFAULT '',
    UNIQUE KEY catalog_language_idx (catalog_id, language_id),
    FOREIGN KEY (catalog_id) REFERENCES catalog(id) ON DELETE CASCADE ON UPDATE CASCADE,
    FOREIGN KEY (language_id) REFERENCES language(id) ON DELETE CASCADE ON UPDATE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
				`CREATE TABLE context (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    catalog_id BIGINT NOT NULL,
    name VARCHAR(191) COLLATE utf8mb4_bin NOT NULL,
    position INT NOT NULL DEFAULT 0,
    UNIQUE KEY context_catalog_name_idx (catalog_id, name),
    FOREIGN KEY (catalog_id) REFERENCES catalog(id) ON DELETE CASCADE ON UPDATE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
				`CREATE TABLE message (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    context_id BIGINT NOT NULL,
    source TEXT NOT NULL,
    comment TEXT NOT NULL,
    key_hash CHAR(40) NOT NULL,
    extra_comment TEXT NOT NULL,
    numerus BOOLEAN NOT NULL DEFAULT FALSE,
    position INT NOT NULL DEFAULT 0,
    UNIQUE KEY message_context_key_idx (context_id, key_hash),
    FOREIGN KEY (context_id) REFERENCES context(id) ON DELETE CASCADE ON UPDATE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
				`CREATE TABLE translation (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    message_id BIGINT NOT NULL,
    language_id BIGINT NOT NULL,
    content TEXT NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT '',
    locations TEXT NOT NULL,
    translator_comment TEXT NOT NULL,
    UNIQUE KEY translation_message_language_idx (message_id, language_id),
    KEY translation_language_id_idx (language_id),
    FOREIGN KEY (message_id) REFERENCES message(id) ON DELETE CASCADE ON UPDATE CASCADE,
    FOREIGN KEY (language_id) REFERENCES language(id) ON DELETE CASCADE ON UPDATE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
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
