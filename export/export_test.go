package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/e2nIEE/ppqgis-translations/po"
	"github.com/e2nIEE/ppqgis-translations/qm"
	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/e2nIEE/ppqgis-translations/ts"
	"github.com/e2nIEE/ppqgis-translations/xliff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func testCatalog() *trans.Catalog {
	c := &trans.Catalog{Name: "pandapower_qgis", Version: "2.1", Language: "de_DE", SourceLanguage: "en"}
	c.Add("importDialog", &trans.Message{Source: "Layername:", Translation: "Ebenenname:"})
	c.Add("importDialog", &trans.Message{Source: "Hz"})
	c.Add("exportDialog", &trans.Message{Source: "<b>Name</b>", Translation: "<b>Name</b>", Comment: "bold"})
	c.Add("ppqgis", &trans.Message{Source: "layers", Translation: "Ebenen", Status: trans.StatusObsolete})
	return c
}

func TestFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "po", "qm", "ts", "xliff", "yaml"}, Formats())

	_, err := Get("csv")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	type scenario struct {
		format   string
		expected string
	}

	scenarios := []scenario{
		{"ts", "pandapower_qgis_de.ts"},
		{"qm", "pandapower_qgis_de.qm"},
		{"po", "pandapower_qgis_de.po"},
		{"json", "pandapower_qgis_de.json"},
		{"yaml", "pandapower_qgis_de.yaml"},
		{"xliff", "pandapower_qgis.de_DE.xliff"},
	}

	c := testCatalog()
	for _, s := range scenarios {
		e, err := Get(s.format)
		require.NoError(t, err)
		assert.Equal(t, s.expected, FileName(c, e), s.format)
	}

	e, _ := Get("ts")
	assert.Equal(t, "messages.ts", FileName(&trans.Catalog{Name: "messages"}, e))
}

func TestJSONExport(t *testing.T) {
	e, err := Get("json")
	require.NoError(t, err)
	data, err := e.Export(testCatalog())
	require.NoError(t, err)

	expected := `{
  "exportDialog|<b>Name</b>|bold": "<b>Name</b>",
  "importDialog|Hz": "Hz",
  "importDialog|Layername:": "Ebenenname:"
}
`
	assert.Equal(t, expected, string(data))
}

func TestYAMLExport(t *testing.T) {
	e, err := Get("yaml")
	require.NoError(t, err)
	data, err := e.Export(testCatalog())
	require.NoError(t, err)

	var got map[string]map[string]string
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, map[string]map[string]string{
		"importDialog": {"Layername:": "Ebenenname:", "Hz": "Hz"},
		"exportDialog": {"<b>Name</b>|bold": "<b>Name</b>"},
	}, got)

	// contexts keep file order
	assert.True(t, bytes.Index(data, []byte("importDialog")) < bytes.Index(data, []byte("exportDialog")))
}

func TestExportFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "i18n")
	c := testCatalog()

	type scenario struct {
		format string
		decode func(path string) (*trans.Catalog, error)
	}

	scenarios := []scenario{
		{"ts", ts.NewFromFile},
		{"qm", func(path string) (*trans.Catalog, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return qm.Decode(f)
		}},
		{"xliff", func(path string) (*trans.Catalog, error) {
			x, err := xliff.NewFromFile(path)
			if err != nil {
				return nil, err
			}
			return x.Catalog(), nil
		}},
		{"po", func(path string) (*trans.Catalog, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return po.Parse(f)
		}},
	}

	for _, s := range scenarios {
		path, err := ExportFile(dir, c, s.format)
		require.NoError(t, err, s.format)
		assert.Equal(t, dir, filepath.Dir(path))

		got, err := s.decode(path)
		require.NoError(t, err, s.format)
		assert.Equal(t, "Ebenenname:", got.Translate("importDialog", "Layername:", ""), s.format)
		assert.Equal(t, "<b>Name</b>", got.Translate("exportDialog", "<b>Name</b>", "bold"), s.format)
		assert.Equal(t, "layers", got.Translate("ppqgis", "layers", ""), s.format)
	}

	_, err := ExportFile(dir, c, "csv")
	assert.Error(t, err)
}
