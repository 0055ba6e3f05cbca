package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/e2nIEE/ppqgis-translations/config"
	"github.com/e2nIEE/ppqgis-translations/datastore"
	"github.com/e2nIEE/ppqgis-translations/export"
	"github.com/e2nIEE/ppqgis-translations/i18n"
	"github.com/e2nIEE/ppqgis-translations/importer"
	applog "github.com/e2nIEE/ppqgis-translations/log"
	"github.com/e2nIEE/ppqgis-translations/qm"
	"github.com/e2nIEE/ppqgis-translations/server"
	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/e2nIEE/ppqgis-translations/translator"
	"github.com/e2nIEE/ppqgis-translations/validate"
	"github.com/fatih/color"
	"github.com/go-errors/errors"
	"github.com/mattn/go-runewidth"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sirupsen/logrus"
)

// errFailed ends the program with exit status 1 after the command reported its own failure.
var errFailed = errors.New("command failed")

type app struct {
	out    io.Writer
	errOut io.Writer

	config    config.Config
	configErr error

	log *logrus.Entry
	tr  *i18n.Localizer
}

func newApp(out, errOut io.Writer, configPath string) *app {
	a := &app{out: out, errOut: errOut}
	a.config, a.configErr = config.LoadOrDefault(configPath)

	log, err := applog.NewLogger(a.config.Log)
	if err != nil {
		fmt.Fprintln(errOut, "Could not open log file:", err)
		log, _ = applog.NewLogger(config.LogConfig{Level: a.config.Log.Level, Format: a.config.Log.Format})
	}
	a.log = log
	a.tr = i18n.NewLocalizer(log, a.config.Translator.Locale)

	return a
}

func (a *app) datastore() (*datastore.DataStore, func(), error) {
	db, err := datastore.Connect(a.config.DB)
	if err != nil {
		return nil, nil, err
	}
	ds, err := datastore.New(db, a.config.DB.Driver)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return ds, func() { db.Close() }, nil
}

func (a *app) initDb(down bool) error {
	ds, closeDb, err := a.datastore()
	if err != nil {
		return err
	}
	defer closeDb()

	migrate := ds.MigrateUp
	if down {
		migrate = ds.MigrateDown
	}

	version, err := migrate()
	if err != nil {
		fmt.Fprintln(a.errOut, a.tr.T("MigrationFailed", map[string]interface{}{"Version": version}))
		return err
	}

	fmt.Fprintln(a.out, a.tr.T("MigratedDatabase", map[string]interface{}{"Version": version}))
	return nil
}

func (a *app) importCatalogs() error {
	result, err := importer.Import(a.config, a.log, a.errOut)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, a.tr.T("ImportFinished", map[string]interface{}{
		"Count":    result.Count,
		"Duration": result.Duration.Round(time.Millisecond),
	}))
	return nil
}

func (a *app) serve(ctx context.Context) error {
	fmt.Fprintln(a.out, a.tr.T("Listening", map[string]interface{}{"Port": a.config.Server.Port}))
	return server.Serve(ctx, a.config, a.log)
}

// expand replaces directories with the files in them matching pattern.
func expand(paths []string, patterns ...string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		var matches []string
		for _, pattern := range patterns {
			m, err := filepath.Glob(filepath.Join(p, pattern))
			if err != nil {
				return nil, err
			}
			matches = append(matches, m...)
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	return files, nil
}

func (a *app) check(paths []string) error {
	files, err := expand(paths, "*.ts")
	if err != nil {
		return err
	}

	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)

	var errCount, warnCount int
	for _, file := range files {
		report := validate.CheckFile(file)
		if len(report.Issues) == 0 {
			green.Fprintln(a.out, a.tr.T("CheckOK", map[string]interface{}{"File": file}))
			continue
		}

		for _, issue := range report.Issues {
			line := file + ": " + issue.String()
			if issue.Severity == validate.SeverityError {
				errCount++
				red.Fprintln(a.out, line)
			} else {
				warnCount++
				yellow.Fprintln(a.out, line)
			}
		}
	}

	fmt.Fprintln(a.out, a.tr.T("CheckSummary", map[string]interface{}{
		"Errors":   errCount,
		"Warnings": warnCount,
		"Files":    len(files),
	}))

	if errCount > 0 {
		return errFailed
	}
	return nil
}

// readCatalog reads any catalog file including compiled .qm files.
func readCatalog(file string) (*trans.Catalog, error) {
	if strings.ToLower(filepath.Ext(file)) != ".qm" {
		return datastore.ReadCatalogFile(file)
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := qm.Decode(f)
	if err != nil {
		return nil, errors.Errorf("%v: %v", file, err)
	}
	c.Name, _ = strings.CutSuffix(filepath.Base(file), filepath.Ext(file))
	return c, nil
}

// writeTable prints rows with every column padded to its widest cell.
func writeTable(w io.Writer, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i == len(row)-1 {
				cells[i] = cell
			} else {
				cells[i] = runewidth.FillRight(cell, widths[i])
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "  "))
	}
}

func (a *app) stats(paths []string) error {
	files, err := expand(paths, "*.ts", "*.xliff", "*.po")
	if err != nil {
		return err
	}

	rows := [][]string{{
		a.tr.T("StatsCatalog"),
		a.tr.T("StatsLanguage"),
		a.tr.T("StatsTranslated"),
		a.tr.T("StatsUnfinished"),
		a.tr.T("StatsUntranslated"),
		a.tr.T("StatsObsolete"),
		a.tr.T("StatsCompletion"),
	}}
	for _, file := range files {
		c, err := readCatalog(file)
		if err != nil {
			return err
		}
		s := c.Stats()
		rows = append(rows, []string{
			c.Name,
			trans.QtCode(c.Language),
			strconv.Itoa(s.Translated),
			strconv.Itoa(s.Unfinished),
			strconv.Itoa(s.Untranslated),
			strconv.Itoa(s.Obsolete),
			fmt.Sprintf("%.1f%%", s.Completion()*100),
		})
	}

	writeTable(a.out, rows)
	return nil
}

// diffLines renders every message as one line, sorted so file order does not matter.
func diffLines(c *trans.Catalog) []string {
	var lines []string
	c.Each(func(ctx *trans.Context, m *trans.Message) {
		text := m.Translation
		if m.Numerus {
			text = strings.Join(m.NumerusForms, " | ")
		}
		lines = append(lines, fmt.Sprintf("%v = %q [%v]\n", m.Key(ctx.Name), text, m.Status))
	})
	sort.Strings(lines)
	return lines
}

func (a *app) diff(fileA, fileB string) error {
	ca, err := readCatalog(fileA)
	if err != nil {
		return err
	}
	cb, err := readCatalog(fileB)
	if err != nil {
		return err
	}

	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        diffLines(ca),
		B:        diffLines(cb),
		FromFile: fileA,
		ToFile:   fileB,
		Context:  1,
	})
	if err != nil {
		return err
	}

	if out == "" {
		fmt.Fprintln(a.out, a.tr.T("NoDifferences"))
		return nil
	}
	fmt.Fprint(a.out, out)
	return nil
}

func (a *app) convert(file, format, outDir string) error {
	if format == "" {
		format = a.config.Catalog.ExportFormat
	}
	if outDir == "" {
		outDir = a.config.Catalog.ExportPath
	}

	c, err := readCatalog(file)
	if err != nil {
		return err
	}
	path, err := export.ExportFile(outDir, c, format)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, a.tr.T("WroteFile", map[string]interface{}{"Path": path}))
	return nil
}

func (a *app) compile(file, output string, skipUnfinished bool) error {
	c, err := readCatalog(file)
	if err != nil {
		return err
	}
	if output == "" {
		output = strings.TrimSuffix(file, filepath.Ext(file)) + ".qm"
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	stats, err := qm.Compile(f, c, qm.Options{SkipUnfinished: skipUnfinished})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, a.tr.T("CompileSummary", map[string]interface{}{
		"Total":        stats.Finished + stats.Unfinished,
		"Finished":     stats.Finished,
		"Unfinished":   stats.Unfinished,
		"Untranslated": stats.Untranslated,
	}))
	fmt.Fprintln(a.out, a.tr.T("WroteFile", map[string]interface{}{"Path": output}))
	return nil
}

// translate looks up one message. A directory is searched for the catalog of the configured
// locale the way the plugin does at startup, a file is used directly.
func (a *app) translate(path, contextName, source, comment string) error {
	if contextName == "" {
		contextName = translator.DefaultContext
	}
	if source == "" {
		return errors.New("missing --source")
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	t := translator.New(a.log, translator.Options{
		Dir:       path,
		Basename:  a.config.Catalog.Basename,
		Fallbacks: a.config.Translator.Fallbacks,
	})
	if info.IsDir() {
		if _, err := t.Load(a.config.Translator.Locale); err != nil {
			return err
		}
	} else {
		c, err := readCatalog(path)
		if err != nil {
			return err
		}
		if err := t.Install(c); err != nil {
			return err
		}
	}

	text, found := t.Lookup(contextName, source, comment)
	fmt.Fprintln(a.out, text)
	if !found {
		fmt.Fprintln(a.errOut, a.tr.T("NotTranslated"))
	}
	return nil
}
