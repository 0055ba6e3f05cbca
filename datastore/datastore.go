/*
Package datastore keeps translation catalogs in a SQL database.

Catalogs are split into languages, contexts, messages and per-language translations so that
several catalog files (one per language) share their source strings. Queries are written once
with ? placeholders and rebound for the dialect of the configured driver.
*/
package datastore

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/e2nIEE/ppqgis-translations/config"
	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/go-errors/errors"
	"github.com/jmoiron/sqlx"
)

// ErrAlreadyExists is returned when creating something that is already stored.
var ErrAlreadyExists = errors.New("already exists")

// ErrInvalidContent is returned when the content of a numerus translation is not a JSON list of
// forms.
var ErrInvalidContent = errors.New("numerus messages take a JSON list of forms")

// Adapter provides database-driver-specific behaviour: schema, placeholders and error codes.
type Adapter interface {
	PostCreate(*sqlx.DB) error
	BindType() int
	SupportsLastInsertId() bool
	IsUniqueViolation(error) bool
	versionTableQuery() string
	migrations() []migration
}

// execer is satisfied by both *sqlx.DB and *sqlx.Tx.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
}

type DataStore struct {
	adapter       Adapter
	db            *sqlx.DB
	ex            execer
	languageCache map[string]trans.Language
	catalogCache  map[string]int64
	contextCache  map[contextKey]int64
	Stats         Stats
}

type contextKey struct {
	CatalogId int64
	Name      string
}

type Stats map[StatKey]StatItem

type StatKey struct {
	Name   string
	Action string
}

type StatItem struct {
	Duration time.Duration
	Count    int
}

func (s Stats) Log(name, action string, d time.Duration) {
	item := s[StatKey{Name: name, Action: action}]
	item.Count++
	item.Duration += d
	s[StatKey{Name: name, Action: action}] = item
}

// Keys returns the recorded keys ordered by name and action.
func (s Stats) Keys() []StatKey {
	keys := make([]StatKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Action < keys[j].Action
	})
	return keys
}

func (s Stats) String() (out string) {
	for _, k := range s.Keys() {
		v := s[k]
		out += fmt.Sprintf("%v  %v '%v' actions took %v total, %v avg\n", v.Count, k.Name, k.Action, v.Duration, v.Duration/time.Duration(v.Count))
	}

	return out
}

// Creates a new datastore using the given database connection. The driver parameter is used to
// select the appropriate database adapter, and should be one of the config.DbDriver* constants.
func New(db *sqlx.DB, driver string) (ds *DataStore, err error) {
	adp, err := newAdapter(driver)
	if err != nil {
		return &DataStore{}, err
	}

	ds = &DataStore{
		adapter:       adp,
		db:            db,
		ex:            db,
		languageCache: make(map[string]trans.Language),
		catalogCache:  make(map[string]int64),
		contextCache:  make(map[contextKey]int64),
		Stats:         make(map[StatKey]StatItem),
	}

	err = ds.adapter.PostCreate(ds.db)
	if err != nil {
		return ds, err
	}

	return ds, nil
}

// Connect opens the database the config points to.
func Connect(c config.DbConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect(c.Driver, c.ConnectionString())
	if err != nil {
		return nil, errors.Errorf("could not connect to %v database: %v", c.Driver, err)
	}
	return db, nil
}

func newAdapter(driver string) (adp Adapter, err error) {
	switch driver {
	case config.DbDriverSqlite3:
		adp = &Sqlite3Adapter{}
	case config.DbDriverSqlite:
		adp = &SqliteAdapter{}
	case config.DbDriverPostgresql:
		adp = &PostgresAdapter{}
	case config.DbDriverMysql:
		adp = &MysqlAdapter{}
	}

	if adp == nil {
		return nil, errors.Errorf("no adapter available for database driver '%v'", driver)
	}

	return adp, nil
}

// q rebinds a query written with ? placeholders for the adapter's dialect.
func (ds *DataStore) q(query string) string {
	return sqlx.Rebind(ds.adapter.BindType(), query)
}

func (ds *DataStore) insert(query string, args ...interface{}) (id int64, err error) {
	if !ds.adapter.SupportsLastInsertId() {
		err = ds.ex.Get(&id, ds.q(query+" RETURNING id"), args...)
		return id, err
	}

	result, err := ds.ex.Exec(ds.q(query), args...)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// inTx runs fn against a copy of the datastore bound to a transaction. The caches are dropped
// when the transaction is rolled back.
func (ds *DataStore) inTx(fn func(tx *DataStore) error) (err error) {
	tx, err := ds.db.Beginx()
	if err != nil {
		return err
	}

	txds := *ds
	txds.ex = tx
	if err = fn(&txds); err != nil {
		_ = tx.Rollback()
		ds.resetCaches()
		return err
	}

	if err = tx.Commit(); err != nil {
		ds.resetCaches()
	}
	return err
}

func (ds *DataStore) resetCaches() {
	clear(ds.languageCache)
	clear(ds.catalogCache)
	clear(ds.contextCache)
}
