package importer

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/e2nIEE/ppqgis-translations/config"
	"github.com/e2nIEE/ppqgis-translations/datastore"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *logrus.Entry {
	log := logrus.New()
	log.Out = io.Discard
	return logrus.NewEntry(log)
}

func testConfig(t *testing.T) config.Config {
	c := config.Default()
	c.DB.File = filepath.Join(t.TempDir(), "translations.db")
	c.Catalog.ImportPath = filepath.FromSlash("../ts/_test_data")
	return c
}

func TestImport(t *testing.T) {
	c := testConfig(t)

	r, err := Import(c, testLog(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Count)
	assert.NotEmpty(t, r.Stats)

	db, err := datastore.Connect(c.DB)
	require.NoError(t, err)
	defer db.Close()
	ds, err := datastore.New(db, c.DB.Driver)
	require.NoError(t, err)

	langs, err := ds.GetCatalogLanguages("pandapower_qgis")
	require.NoError(t, err)
	codes := []string{}
	for _, l := range langs {
		codes = append(codes, l.Code)
	}
	assert.Equal(t, []string{"de-de", "en-us"}, codes)

	// importing twice updates the stored catalog
	r, err = Import(c, testLog(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Count)

	cs, err := ds.GetCatalogList()
	require.NoError(t, err)
	assert.Len(t, cs, 1)
}

func TestImportMissingDir(t *testing.T) {
	c := testConfig(t)
	c.Catalog.ImportPath = filepath.Join(t.TempDir(), "missing")

	_, err := Import(c, testLog(), io.Discard)
	assert.ErrorContains(t, err, "invalid catalog.import_path")
}

func TestImportEmptyDir(t *testing.T) {
	c := testConfig(t)
	c.Catalog.ImportPath = t.TempDir()

	r, err := Import(c, testLog(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Count)
}
