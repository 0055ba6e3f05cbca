package datastore

import (
	"fmt"
	"strings"

	"github.com/go-errors/errors"
)

// migration is one schema version. Every statement is executed on its own since not every
// driver accepts several statements per Exec.
type migration struct {
	up   []string
	down []string
}

var seedLanguages = []struct {
	code string
	name string
}{
	{"de", "German"},
	{"en", "English"},
	{"es", "Spanish"},
	{"fr", "French"},
	{"it", "Italian"},
	{"nl", "Dutch"},
	{"pl", "Polish"},
	{"pt", "Portuguese"},
	{"cs", "Czech"},
	{"hu", "Hungarian"},
	{"de-at", "German (Austria)"},
	{"de-ch", "German (Switzerland)"},
	{"de-de", "German (Germany)"},
	{"en-au", "English (Australia)"},
	{"en-ca", "English (Canada)"},
	{"en-gb", "English (UK)"},
	{"en-ie", "English (Ireland)"},
	{"en-us", "English (US)"},
	{"en-za", "English (South Africa)"},
	{"es-us", "Spanish (US)"},
	{"fr-ca", "French (Canada)"},
}

// seedMigration inserts the languages catalogs are commonly translated to. The statements use
// only standard SQL so every adapter shares them.
func seedMigration() migration {
	m := migration{}
	codes := make([]string, len(seedLanguages))
	for i, l := range seedLanguages {
		m.up = append(m.up, fmt.Sprintf("INSERT INTO language (code, name) VALUES ('%v', '%v')", l.code, l.name))
		codes[i] = "'" + l.code + "'"
	}
	m.down = []string{fmt.Sprintf("DELETE FROM language WHERE code IN (%v)", strings.Join(codes, ", "))}

	return m
}

func (ds *DataStore) ensureVersionTableExists() (err error) {
	_, err = ds.db.Exec(ds.adapter.versionTableQuery())
	if err != nil {
		return err
	}

	var count int
	err = ds.db.Get(&count, `SELECT COUNT(*) FROM schema_migrations`)
	if err != nil {
		return err
	}
	switch {
	case count == 0:
		_, err = ds.db.Exec(`INSERT INTO schema_migrations (version) VALUES (0)`)
	case count > 1:
		err = errors.New("too many rows in schema_migrations table")
	}

	return err
}

// Version returns the schema version the database is at.
func (ds *DataStore) Version() (version int64, err error) {
	if err = ds.ensureVersionTableExists(); err != nil {
		return 0, err
	}
	return ds.version()
}

func (ds *DataStore) version() (version int64, err error) {
	err = ds.db.Get(&version, "SELECT version FROM schema_migrations")
	return version, err
}

func (ds *DataStore) updateVersion(version int64) (err error) {
	_, err = ds.db.Exec(ds.q("UPDATE schema_migrations SET version = ?"), version)

	return err
}

// MigrateUp applies every migration newer than the current schema version and returns the
// version reached. On failure the version of the last successful migration is returned.
func (ds *DataStore) MigrateUp() (version int64, err error) {
	if err = ds.ensureVersionTableExists(); err != nil {
		return 0, err
	}
	startVer, err := ds.version()
	if err != nil {
		return 0, err
	}

	version = startVer
	for i, m := range ds.adapter.migrations() {
		migTo := int64(i + 1)
		if migTo <= startVer {
			continue
		}

		for _, query := range m.up {
			if _, err = ds.db.Exec(query); err != nil {
				return version, errors.Errorf("migration %v: %v", migTo, err)
			}
		}

		if err = ds.updateVersion(migTo); err != nil {
			return version, err
		}
		version = migTo
	}

	return version, nil
}

// MigrateDown reverts every applied migration, newest first.
func (ds *DataStore) MigrateDown() (version int64, err error) {
	if err = ds.ensureVersionTableExists(); err != nil {
		return 0, err
	}
	startVer, err := ds.version()
	if err != nil {
		return 0, err
	}

	version = startVer
	migs := ds.adapter.migrations()
	for i := len(migs) - 1; i >= 0; i-- {
		migVer := int64(i + 1) // The version of the Down migration we will apply
		migTo := int64(i)      // The version we will end up at

		// Skip migrations for newer versions
		if migVer > startVer {
			continue
		}

		for _, query := range migs[i].down {
			if _, err = ds.db.Exec(query); err != nil {
				return version, errors.Errorf("migration %v: %v", migVer, err)
			}
		}

		if err = ds.updateVersion(migTo); err != nil {
			return version, err
		}
		version = migTo
	}

	ds.resetCaches()
	return version, nil
}
