/*
Package export renders catalogs in the formats the CLI and the server can write: the Qt formats
(ts, qm), the interchange formats (xliff, po) and flat lookup tables (json, yaml).
*/
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/e2nIEE/ppqgis-translations/po"
	"github.com/e2nIEE/ppqgis-translations/qm"
	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/e2nIEE/ppqgis-translations/ts"
	"github.com/e2nIEE/ppqgis-translations/xliff"
	"github.com/go-errors/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"gopkg.in/yaml.v2"
)

type Exporter interface {
	Format() string
	Extension() string
	Export(c *trans.Catalog) ([]byte, error)
}

var exporters = map[string]Exporter{}

// Register makes an exporter available under its format name, replacing any previous one.
func Register(e Exporter) {
	exporters[e.Format()] = e
}

func init() {
	Register(tsExporter{})
	Register(qmExporter{})
	Register(xliffExporter{})
	Register(poExporter{})
	Register(jsonExporter{})
	Register(yamlExporter{})
}

func Get(format string) (Exporter, error) {
	e, ok := exporters[format]
	if !ok {
		return nil, errors.Errorf("unknown export format '%v' (known: %v)", format, Formats())
	}
	return e, nil
}

// Formats lists the registered format names in alphabetical order.
func Formats() []string {
	formats := lo.Keys(exporters)
	sort.Strings(formats)
	return formats
}

// FileName is the name the plugin expects for a catalog file: <name>_<xx>.<ext>, with the two
// letter language code. XLIFF files follow the <name>.<lang>.xliff convention instead.
func FileName(c *trans.Catalog, e Exporter) string {
	if e.Format() == "xliff" {
		return xliff.FileName(c.Name, c.Language)
	}
	if c.Language == "" {
		return fmt.Sprintf("%v.%v", c.Name, e.Extension())
	}
	return fmt.Sprintf("%v_%v.%v", c.Name, trans.BaseCode(c.Language), e.Extension())
}

// ExportFile writes the catalog to dir in the given format and returns the path written.
func ExportFile(dir string, c *trans.Catalog, format string) (string, error) {
	e, err := Get(format)
	if err != nil {
		return "", err
	}

	data, err := e.Export(c)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(c, e))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	return path, nil
}

type tsExporter struct{}

func (tsExporter) Format() string    { return "ts" }
func (tsExporter) Extension() string { return "ts" }
func (tsExporter) Export(c *trans.Catalog) ([]byte, error) {
	var buf bytes.Buffer
	err := ts.Encode(&buf, c)
	return buf.Bytes(), err
}

type qmExporter struct {
	opts qm.Options
}

func (qmExporter) Format() string    { return "qm" }
func (qmExporter) Extension() string { return "qm" }
func (e qmExporter) Export(c *trans.Catalog) ([]byte, error) {
	var buf bytes.Buffer
	_, err := qm.Compile(&buf, c, e.opts)
	return buf.Bytes(), err
}

type xliffExporter struct{}

func (xliffExporter) Format() string    { return "xliff" }
func (xliffExporter) Extension() string { return "xliff" }
func (xliffExporter) Export(c *trans.Catalog) ([]byte, error) {
	var buf bytes.Buffer
	err := xliff.FromCatalog(c).Encode(&buf)
	return buf.Bytes(), err
}

type poExporter struct{}

func (poExporter) Format() string    { return "po" }
func (poExporter) Extension() string { return "po" }
func (poExporter) Export(c *trans.Catalog) ([]byte, error) {
	var buf bytes.Buffer
	err := po.Write(&buf, c)
	return buf.Bytes(), err
}

var jsonAPI = jsoniter.Config{
	SortMapKeys:   true,
	EscapeHTML:    false,
	IndentionStep: 2,
}.Froze()

// jsonExporter writes a flat object from "context|source[|comment]" to the text the runtime would
// show, so untranslated entries map to their source.
type jsonExporter struct{}

func (jsonExporter) Format() string    { return "json" }
func (jsonExporter) Extension() string { return "json" }
func (jsonExporter) Export(c *trans.Catalog) ([]byte, error) {
	table := make(map[string]string, c.Len())
	c.Each(func(ctx *trans.Context, m *trans.Message) {
		if !m.Active() {
			return
		}
		table[m.Key(ctx.Name).String()] = c.Translate(ctx.Name, m.Source, m.Comment)
	})

	data, err := jsonAPI.Marshal(table)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// yamlExporter writes context -> source -> text, keeping file order.
type yamlExporter struct{}

func (yamlExporter) Format() string    { return "yaml" }
func (yamlExporter) Extension() string { return "yaml" }
func (yamlExporter) Export(c *trans.Catalog) ([]byte, error) {
	doc := yaml.MapSlice{}
	for _, ctx := range c.Contexts {
		entries := yaml.MapSlice{}
		for _, m := range ctx.Messages {
			if !m.Active() {
				continue
			}
			key := m.Source
			if m.Comment != "" {
				key += "|" + m.Comment
			}
			entries = append(entries, yaml.MapItem{Key: key, Value: c.Translate(ctx.Name, m.Source, m.Comment)})
		}
		if len(entries) > 0 {
			doc = append(doc, yaml.MapItem{Key: ctx.Name, Value: entries})
		}
	}
	return yaml.Marshal(doc)
}
