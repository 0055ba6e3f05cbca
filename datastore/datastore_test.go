package datastore

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/e2nIEE/ppqgis-translations/config"
	"github.com/e2nIEE/ppqgis-translations/export"
	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/e2nIEE/ppqgis-translations/ts"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCatalog = "pandapower_qgis"
	testDataDir = "../ts/_test_data"
)

// testDrivers are the SQLite drivers the store tests run against.
var testDrivers = []string{config.DbDriverSqlite3, config.DbDriverSqlite}

func newTestStore(t *testing.T, driver string) *DataStore {
	t.Helper()

	db, err := sqlx.Connect(driver, ":memory:")
	require.NoError(t, err)
	// every connection would open its own in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ds, err := New(db, driver)
	require.NoError(t, err)
	version, err := ds.MigrateUp()
	require.NoError(t, err)
	require.EqualValues(t, 2, version)

	return ds
}

// forEachDriver runs fn as a subtest with a fresh store for every test driver.
func forEachDriver(t *testing.T, fn func(t *testing.T, ds *DataStore)) {
	for _, driver := range testDrivers {
		t.Run(driver, func(t *testing.T) {
			fn(t, newTestStore(t, driver))
		})
	}
}

func testFile(name string) string {
	return filepath.Join(testDataDir, name)
}

func smallCatalog() *trans.Catalog {
	c := &trans.Catalog{Name: "plugin", Version: "2.1", Language: "de_DE", SourceLanguage: "en"}
	c.Add("dialog", &trans.Message{
		Source:      "Open",
		Translation: "Öffnen",
		Locations:   []trans.Location{{Filename: "dialog.ui", Line: 12}},
	})
	c.Add("dialog", &trans.Message{Source: "Open", Comment: "menu", Translation: "Öffnen…", Status: trans.StatusUnfinished})
	c.Add("dialog", &trans.Message{Source: "Close", ExtraComment: "button", TranslatorComment: "short"})
	c.Add("dialog", &trans.Message{Source: "%n file(s)", Numerus: true, NumerusForms: []string{"%n Datei", "%n Dateien"}})
	c.Add("main", &trans.Message{Source: "Quit", Translation: "Beenden", Status: trans.StatusObsolete})
	return c
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(nil, "oracle")
	assert.EqualError(t, err, "no adapter available for database driver 'oracle'")
}

func TestNewAdapter(t *testing.T) {
	type scenario struct {
		driver   string
		expected Adapter
	}

	scenarios := []scenario{
		{config.DbDriverSqlite3, &Sqlite3Adapter{}},
		{config.DbDriverSqlite, &SqliteAdapter{}},
		{config.DbDriverPostgresql, &PostgresAdapter{}},
		{config.DbDriverMysql, &MysqlAdapter{}},
	}

	for _, s := range scenarios {
		adp, err := newAdapter(s.driver)
		require.NoError(t, err)
		assert.Equal(t, s.expected, adp)
		assert.Len(t, adp.migrations(), 2, s.driver)
		for i, m := range adp.migrations() {
			assert.NotEmpty(t, m.up, "%v migration %v", s.driver, i+1)
			assert.NotEmpty(t, m.down, "%v migration %v", s.driver, i+1)
		}
	}
}

func TestRebind(t *testing.T) {
	ds := &DataStore{adapter: PostgresAdapter{}}
	assert.Equal(t, "SELECT id FROM message WHERE context_id = $1 AND key_hash = $2", ds.q("SELECT id FROM message WHERE context_id = ? AND key_hash = ?"))

	ds = &DataStore{adapter: MysqlAdapter{}}
	assert.Equal(t, "SELECT id FROM catalog WHERE name = ?", ds.q("SELECT id FROM catalog WHERE name = ?"))
}

func TestMigrations(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		// running again is a no-op
		version, err := ds.MigrateUp()
		require.NoError(t, err)
		assert.EqualValues(t, 2, version)

		version, err = ds.MigrateDown()
		require.NoError(t, err)
		assert.EqualValues(t, 0, version)

		version, err = ds.Version()
		require.NoError(t, err)
		assert.EqualValues(t, 0, version)

		_, err = ds.GetLanguageList()
		assert.Error(t, err)

		version, err = ds.MigrateUp()
		require.NoError(t, err)
		assert.EqualValues(t, 2, version)
	})
}

func TestLanguages(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		ls, err := ds.GetLanguageList()
		require.NoError(t, err)
		assert.Len(t, ls, len(seedLanguages))
		assert.Equal(t, "cs", ls[0].Code)

		l, err := ds.CreateLanguage("sv_SE", "")
		require.NoError(t, err)
		assert.Equal(t, "sv-se", l.Code)
		assert.Equal(t, "Swedish (Sweden)", l.Name)
		assert.NotZero(t, l.Id)

		l, err = ds.CreateLanguage("sv", "Svenska")
		require.NoError(t, err)
		assert.Equal(t, "Svenska", l.Name)

		_, err = ds.CreateLanguage("de", "Deutsch")
		assert.Equal(t, ErrAlreadyExists, err)

		_, err = ds.CreateLanguage("not a language", "")
		assert.Error(t, err)

		ls, err = ds.GetLanguageList()
		require.NoError(t, err)
		assert.Len(t, ls, len(seedLanguages)+2)
	})
}

func TestUniqueViolation(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		_, err := ds.db.Exec("INSERT INTO language (code, name) VALUES ('de', 'German')")
		require.Error(t, err)
		assert.True(t, ds.adapter.IsUniqueViolation(err))
		assert.False(t, ds.adapter.IsUniqueViolation(errors.New("other")))
	})
}

func TestImportAndGetCatalog(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		c := smallCatalog()

		require.NoError(t, ds.ImportCatalog(c))

		got, err := ds.GetCatalog("plugin", "de-DE")
		require.NoError(t, err)
		assert.Equal(t, c, got)

		// importing again updates in place
		c.Contexts[0].Messages[0].Translation = "Öffnen!"
		require.NoError(t, ds.ImportCatalog(c))
		got, err = ds.GetCatalog("plugin", "de_DE")
		require.NoError(t, err)
		assert.Equal(t, "Öffnen!", got.Translate("dialog", "Open", ""))
		assert.Equal(t, 5, got.Len())

		langs, err := ds.GetCatalogLanguages("plugin")
		require.NoError(t, err)
		require.Len(t, langs, 1)
		assert.Equal(t, "de-de", langs[0].Code)

		ctxs, err := ds.GetContextList("plugin")
		require.NoError(t, err)
		assert.Equal(t, []string{"dialog", "main"}, ctxs)
	})
}

func TestImportCatalogErrors(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		assert.Error(t, ds.ImportCatalog(&trans.Catalog{Language: "de"}))
		assert.Error(t, ds.ImportCatalog(&trans.Catalog{Name: "plugin"}))

		// an invalid language rolls the whole import back
		c := smallCatalog()
		c.Language = "not a language"
		assert.Error(t, ds.ImportCatalog(c))

		cs, err := ds.GetCatalogList()
		require.NoError(t, err)
		assert.Empty(t, cs)
	})
}

func TestImportCreatesUnknownLanguages(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		c := smallCatalog()
		c.Language = "sv_SE"

		require.NoError(t, ds.ImportCatalog(c))

		l, err := ds.getLanguage("sv-se")
		require.NoError(t, err)
		assert.Equal(t, "Swedish (Sweden)", l.Name)
	})
}

func TestGetCatalogUnknown(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		require.NoError(t, ds.ImportCatalog(smallCatalog()))

		type scenario struct {
			name string
			lang string
		}

		scenarios := []scenario{
			{"missing", "de_DE"},
			{"plugin", "xx"},
			// known language the catalog was never translated to
			{"plugin", "fr"},
		}

		for _, s := range scenarios {
			_, err := ds.GetCatalog(s.name, s.lang)
			assert.Equal(t, sql.ErrNoRows, err, s)
		}

		_, err := ds.GetContextList("missing")
		assert.Equal(t, sql.ErrNoRows, err)
		_, err = ds.GetCatalogLanguages("missing")
		assert.Equal(t, sql.ErrNoRows, err)
	})
}

func TestMessagesWithoutTranslationAreUnfinished(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		require.NoError(t, ds.ImportCatalog(smallCatalog()))

		en := &trans.Catalog{Name: "plugin", Language: "en", SourceLanguage: "en"}
		en.Add("dialog", &trans.Message{Source: "Open", Translation: "Open"})
		en.Add("dialog", &trans.Message{Source: "Help", Translation: "Help"})
		require.NoError(t, ds.ImportCatalog(en))

		de, err := ds.GetCatalog("plugin", "de_DE")
		require.NoError(t, err)
		m, ok := de.Lookup("dialog", "Help", "")
		require.True(t, ok)
		assert.Equal(t, trans.StatusUnfinished, m.Status)
		assert.Equal(t, "", m.Translation)
		assert.Equal(t, 6, de.Len())

		langs, err := ds.GetCatalogLanguages("plugin")
		require.NoError(t, err)
		assert.Len(t, langs, 2)
	})
}

func TestImportDirRoundTrip(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		notify := make(chan string, 10)
		count, err := ds.ImportDir(testDataDir, notify)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		close(notify)

		imported := []string{}
		for name := range notify {
			imported = append(imported, name)
		}
		assert.Equal(t, []string{"pandapower_qgis_de.ts", "pandapower_qgis_en.ts"}, imported)

		cs, err := ds.GetCatalogList()
		require.NoError(t, err)
		require.Len(t, cs, 1)
		assert.Equal(t, testCatalog, cs[0].Name)
		assert.Equal(t, "en", cs[0].SourceLanguage)

		for _, file := range []string{"pandapower_qgis_de.ts", "pandapower_qgis_en.ts"} {
			orig, err := ts.NewFromFile(testFile(file))
			require.NoError(t, err)

			got, err := ds.GetCatalog(testCatalog, orig.Language)
			require.NoError(t, err)
			assert.Equal(t, orig.Version, got.Version)
			assert.Equal(t, orig.Language, got.Language)

			orig.Each(func(ctx *trans.Context, m *trans.Message) {
				assert.Equal(t, orig.Translate(ctx.Name, m.Source, m.Comment), got.Translate(ctx.Name, m.Source, m.Comment), m.Source)
				stored, ok := got.Lookup(ctx.Name, m.Source, m.Comment)
				if assert.True(t, ok, m.Source) {
					assert.Equal(t, m.Locations, stored.Locations)
				}
			})
		}
	})
}

func TestImportSingleFileKeepsOrder(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		_, err := ds.ImportFiles([]string{testFile("pandapower_qgis_de.ts")}, nil)
		require.NoError(t, err)

		orig, err := ts.NewFromFile(testFile("pandapower_qgis_de.ts"))
		require.NoError(t, err)
		got, err := ds.GetCatalog(testCatalog, "de_DE")
		require.NoError(t, err)
		assert.Equal(t, orig, got)
	})
}

func TestImportFilesErrors(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		dir := t.TempDir()
		bad := filepath.Join(dir, "broken_de.ts")
		require.NoError(t, os.WriteFile(bad, []byte("<TS"), 0644))

		count, err := ds.ImportFiles([]string{testFile("pandapower_qgis_de.ts"), bad}, nil)
		assert.Error(t, err)
		assert.Equal(t, 1, count)

		_, err = ds.ImportFiles([]string{filepath.Join(dir, "catalog.txt")}, nil)
		assert.EqualError(t, err, "unsupported catalog file '"+filepath.Join(dir, "catalog.txt")+"'")
	})
}

func TestCreateOrUpdateTranslation(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		require.NoError(t, ds.ImportCatalog(smallCatalog()))

		// updating an unfinished translation finishes it
		require.NoError(t, ds.CreateOrUpdateTranslation("plugin", "dialog", "Open", "menu", "de_DE", "Öffnen...", false))
		text, found, err := ds.Lookup("plugin", "de_DE", "dialog", "Open", "menu")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "Öffnen...", text)

		// obsolete translations stay obsolete
		require.NoError(t, ds.CreateOrUpdateTranslation("plugin", "main", "Quit", "", "de_DE", "Schließen", false))
		_, found, err = ds.Lookup("plugin", "de_DE", "main", "Quit", "")
		require.NoError(t, err)
		assert.False(t, found)

		// nothing is created without allowCreate
		err = ds.CreateOrUpdateTranslation("plugin", "dialog", "Save", "", "de_DE", "Speichern", false)
		assert.Equal(t, sql.ErrNoRows, err)
		err = ds.CreateOrUpdateTranslation("plugin", "dialog", "Open", "", "fr", "Ouvrir", false)
		assert.Equal(t, sql.ErrNoRows, err)
		err = ds.CreateOrUpdateTranslation("other", "dialog", "Open", "", "de_DE", "Öffnen", false)
		assert.Equal(t, sql.ErrNoRows, err)

		require.NoError(t, ds.CreateOrUpdateTranslation("plugin", "settings", "Save", "", "fr", "Enregistrer", true))
		text, found, err = ds.Lookup("plugin", "fr", "settings", "Save", "")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "Enregistrer", text)

		ctxs, err := ds.GetContextList("plugin")
		require.NoError(t, err)
		assert.Equal(t, []string{"dialog", "main", "settings"}, ctxs)

		fr, err := ds.GetCatalog("plugin", "fr")
		require.NoError(t, err)
		assert.Equal(t, "Enregistrer", fr.Translate("settings", "Save", ""))
		assert.Equal(t, "Open", fr.Translate("dialog", "Open", ""))
	})
}

func TestCreateOrUpdateNumerusTranslation(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		require.NoError(t, ds.ImportCatalog(smallCatalog()))

		forms := NumerusContent([]string{"eine Datei", "%n Dateien"})
		require.NoError(t, ds.CreateOrUpdateTranslation("plugin", "dialog", "%n file(s)", "", "de_DE", forms, false))

		c, err := ds.GetCatalog("plugin", "de_DE")
		require.NoError(t, err)
		m, ok := c.Lookup("dialog", "%n file(s)", "")
		require.True(t, ok)
		assert.Equal(t, []string{"eine Datei", "%n Dateien"}, m.NumerusForms)

		err = ds.CreateOrUpdateTranslation("plugin", "dialog", "%n file(s)", "", "de_DE", "not json", false)
		assert.Equal(t, ErrInvalidContent, err)
		err = ds.CreateOrUpdateTranslation("plugin", "dialog", "%n file(s)", "", "de_DE", `{"one":"eine Datei"}`, true)
		assert.Equal(t, ErrInvalidContent, err)
	})
}

func TestLookup(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		require.NoError(t, ds.ImportCatalog(smallCatalog()))

		type scenario struct {
			context  string
			source   string
			comment  string
			expected string
			found    bool
		}

		scenarios := []scenario{
			{"dialog", "Open", "", "Öffnen", true},
			// unfinished translations are used
			{"dialog", "Open", "menu", "Öffnen…", true},
			{"dialog", "Open", "toolbar", "Öffnen", true},
			{"dialog", "Close", "", "Close", false},
			{"dialog", "%n file(s)", "", "%n Datei", true},
			{"main", "Quit", "", "Quit", false},
			{"other", "Open", "", "Open", false},
		}

		for _, s := range scenarios {
			text, found, err := ds.Lookup("plugin", "de_DE", s.context, s.source, s.comment)
			require.NoError(t, err)
			assert.Equal(t, s.expected, text, s)
			assert.Equal(t, s.found, found, s)
		}

		_, _, err := ds.Lookup("missing", "de_DE", "dialog", "Open", "")
		assert.Equal(t, sql.ErrNoRows, err)
		_, _, err = ds.Lookup("plugin", "xx", "dialog", "Open", "")
		assert.Equal(t, sql.ErrNoRows, err)
	})
}

func TestDeleteMessageAndTranslation(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		require.NoError(t, ds.ImportCatalog(smallCatalog()))

		require.NoError(t, ds.DeleteTranslation("plugin", "dialog", "Open", "", "de_DE"))
		assert.Equal(t, sql.ErrNoRows, ds.DeleteTranslation("plugin", "dialog", "Open", "", "de_DE"))

		c, err := ds.GetCatalog("plugin", "de_DE")
		require.NoError(t, err)
		m, ok := c.Lookup("dialog", "Open", "")
		require.True(t, ok)
		assert.Equal(t, trans.StatusUnfinished, m.Status)

		require.NoError(t, ds.DeleteMessage("plugin", "dialog", "Open", "menu"))
		assert.Equal(t, sql.ErrNoRows, ds.DeleteMessage("plugin", "dialog", "Open", "menu"))
		assert.Equal(t, sql.ErrNoRows, ds.DeleteMessage("plugin", "nowhere", "Open", ""))

		c, err = ds.GetCatalog("plugin", "de_DE")
		require.NoError(t, err)
		_, ok = c.Lookup("dialog", "Open", "menu")
		assert.False(t, ok)
		assert.Equal(t, 4, c.Len())
	})
}

func TestExportCatalog(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ds *DataStore) {
		require.NoError(t, ds.ImportCatalog(smallCatalog()))
		dir := t.TempDir()

		path, err := ds.ExportCatalog("plugin", "de_DE", dir, "ts")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "plugin_de.ts"), path)

		c, err := ts.NewFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, smallCatalog(), c)

		_, err = ds.ExportCatalog("plugin", "de_DE", dir, "doc")
		assert.Error(t, err)
		_, err = ds.ExportCatalog("missing", "de_DE", dir, "ts")
		assert.Equal(t, sql.ErrNoRows, err)

		paths, err := ds.ExportAll("plugin", dir, "qm")
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "plugin_de.qm")}, paths)
	})
}

func TestReadCatalogFile(t *testing.T) {
	dir := t.TempDir()
	c := smallCatalog()

	for _, format := range []string{"xliff", "po"} {
		path, err := export.ExportFile(dir, c, format)
		require.NoError(t, err)

		got, err := ReadCatalogFile(path)
		require.NoError(t, err, format)
		assert.Equal(t, "plugin", got.Name, format)
		assert.Equal(t, c.Translate("dialog", "Open", ""), got.Translate("dialog", "Open", ""), format)
	}
}

func TestStats(t *testing.T) {
	s := Stats{}
	s.Log("message", "insert", 2*time.Millisecond)
	s.Log("message", "insert", 4*time.Millisecond)
	s.Log("catalog", "get", time.Millisecond)

	assert.Equal(t, []StatKey{{"catalog", "get"}, {"message", "insert"}}, s.Keys())
	assert.Equal(t, "1  catalog 'get' actions took 1ms total, 1ms avg\n2  message 'insert' actions took 6ms total, 3ms avg\n", s.String())
}
