// Package importer loads the catalog files of the import directory into the database.
package importer

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/e2nIEE/ppqgis-translations/config"
	"github.com/e2nIEE/ppqgis-translations/datastore"
	"github.com/go-errors/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// Result summarizes an import run.
type Result struct {
	Count    int
	Duration time.Duration
	Stats    datastore.Stats
}

// Import migrates the database to the latest schema and imports every catalog file found in
// c.Catalog.ImportPath, drawing a progress bar to progress.
func Import(c config.Config, log *logrus.Entry, progress io.Writer) (r Result, err error) {
	start := time.Now()

	if info, err := os.Stat(c.Catalog.ImportPath); err != nil || !info.IsDir() {
		return r, errors.Errorf("config: invalid catalog.import_path value. (Directory '%v' does not exist)", c.Catalog.ImportPath)
	}

	db, err := datastore.Connect(c.DB)
	if err != nil {
		return r, err
	}
	defer db.Close()

	ds, err := datastore.New(db, c.DB.Driver)
	if err != nil {
		return r, err
	}
	version, err := ds.MigrateUp()
	if err != nil {
		return r, err
	}
	log.WithField("version", version).Debug("database schema is up to date")

	files, err := datastore.CatalogFiles(c.Catalog.ImportPath)
	if err != nil {
		return r, err
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("importing"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	results := make(chan string, len(files))
	done := make(chan struct{})
	go func() {
		for imported := range results {
			log.WithField("file", imported).Info("imported catalog")
			_ = bar.Add(1)
		}
		close(done)
	}()

	r.Count, err = ds.ImportFiles(files, results)
	close(results)
	<-done
	_ = bar.Finish()

	r.Duration = time.Since(start)
	r.Stats = ds.Stats
	for _, k := range ds.Stats.Keys() {
		item := ds.Stats[k]
		log.WithFields(logrus.Fields{
			"entity": k.Name,
			"action": k.Action,
			"count":  item.Count,
			"total":  item.Duration,
		}).Debug("datastore timing")
	}
	if err != nil {
		return r, err
	}

	log.WithFields(logrus.Fields{
		"files":    r.Count,
		"duration": r.Duration,
		"dir":      filepath.Clean(c.Catalog.ImportPath),
	}).Info("import finished")

	return r, nil
}
