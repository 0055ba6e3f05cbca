package xliff

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/e2nIEE/ppqgis-translations/ts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *trans.Catalog {
	c := &trans.Catalog{Name: "pandapower_qgis", Language: "de_DE", SourceLanguage: "en"}
	c.Add("importDialog", &trans.Message{
		Source:      "Select save folder:",
		Comment:     "Select save folder:",
		Translation: "Speicherverzeichnis:",
		Locations:   []trans.Location{{Filename: "../pandapower_import_dialog_base.ui", Line: 164}},
	})
	c.Add("importDialog", &trans.Message{Source: "Hz", ExtraComment: "frequency unit"})
	c.Add("exportDialog", &trans.Message{Source: "Name:", Translation: "Name:", Status: trans.StatusUnfinished, TranslatorComment: "check"})
	c.Add("ppqgis", &trans.Message{Source: "layers", Translation: "Ebenen", Status: trans.StatusObsolete})
	c.Add("ppqgis", &trans.Message{
		Source:       "%n bus(es)",
		Numerus:      true,
		NumerusForms: []string{"%n Bus", "%n Busse"},
		Locations:    []trans.Location{{Filename: "../pandapower_qgis.py", Line: 647}},
	})
	return c
}

func TestFromCatalogStructure(t *testing.T) {
	x := FromCatalog(testCatalog())

	assert.Equal(t, "1.2", x.Version)
	assert.Equal(t, "pandapower_qgis", x.File.Original)
	assert.Equal(t, "en", x.File.SourceLang)
	assert.Equal(t, "de_DE", x.File.Language())
	require.Len(t, x.File.Groups, 3)

	g := x.File.Groups[0]
	assert.Equal(t, ContextRestype, g.Restype)
	assert.Equal(t, "importDialog", g.Resname)
	require.Len(t, g.Units, 2)
	assert.Equal(t, "_msg1", g.Units[0].Id)
	assert.Equal(t, []XliffNote{{From: "disambiguation", Text: "Select save folder:"}}, g.Units[0].Notes)

	assert.Equal(t, "needs-translation", x.File.Groups[1].Units[0].Target.State)

	plural := x.File.Groups[2].Groups[0]
	assert.Equal(t, PluralRestype, plural.Restype)
	assert.Equal(t, "_msg5", plural.Id)
	require.Len(t, plural.Units, 2)
	assert.Equal(t, "_msg5[1]", plural.Units[1].Id)
	assert.Equal(t, "%n Busse", plural.Units[1].Target.Text)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := testCatalog()

	var buf bytes.Buffer
	require.NoError(t, FromCatalog(c).Encode(&buf))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, out, `<xliff xmlns="urn:oasis:names:tc:xliff:document:1.2" version="1.2">`)
	assert.Contains(t, out, `<context context-type="linenumber">164</context>`)

	x, err := Decode(&buf)
	require.NoError(t, err)
	got := x.Catalog()
	assert.Equal(t, c, got)

	// a decoded document encodes again without a duplicated namespace
	var again bytes.Buffer
	require.NoError(t, x.Encode(&again))
	assert.Equal(t, 1, strings.Count(again.String(), "xmlns="))
}

func TestConvertShippedCatalog(t *testing.T) {
	c, err := ts.NewFromFile(filepath.Join("..", "ts", "_test_data", "pandapower_qgis_de.ts"))
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, FileName(c.Name, c.Language))
	assert.Equal(t, "pandapower_qgis.de_DE.xliff", filepath.Base(path))

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, FromCatalog(c).Encode(f))
	require.NoError(t, f.Close())

	x, err := NewFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pandapower_qgis", x.File.Name())

	got := x.Catalog()
	c.Version = ""
	assert.Equal(t, c, got)
	assert.Equal(t, "Flüssigkeit/Gas:", got.Translate("exportDialog", "Fluid:", ""))
}

func TestNewFromFileChecksFilename(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<xliff version="1.2">
  <file source-language="en" target-language="de" datatype="plaintext" original="messages">
    <header><tool tool-id="x" tool-name="x"/></header>
    <body>
      <group restype="x-trolltech-linguist-context" resname="ppqgis">
        <trans-unit id="1">
          <source>layers</source>
          <target>Ebenen</target>
        </trans-unit>
      </group>
    </body>
  </file>
</xliff>
`
	dir := t.TempDir()

	type scenario struct {
		filename  string
		expectErr bool
	}

	scenarios := []scenario{
		{"messages.de.xliff", false},
		{"messages.fr.xliff", true},
		{"messages.xliff", true},
	}

	for _, s := range scenarios {
		path := filepath.Join(dir, s.filename)
		require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
		x, err := NewFromFile(path)
		if s.expectErr {
			assert.Error(t, err, s.filename)
			continue
		}
		require.NoError(t, err, s.filename)
		assert.Equal(t, "Ebenen", x.Catalog().Translate("ppqgis", "layers", ""))
	}
}
