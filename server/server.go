// Package server provides the JSON HTTP API for reading and editing stored catalogs.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/e2nIEE/ppqgis-translations/config"
	"github.com/e2nIEE/ppqgis-translations/datastore"
	"github.com/e2nIEE/ppqgis-translations/export"
	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const requestIdHeader = "X-Request-Id"

type ctxKey int

const logKey ctxKey = iota

// exportJob asks for a catalog to be written to the export directory. An empty language means
// every language of the catalog.
type exportJob struct {
	Catalog  string
	Language string
}

type Server struct {
	Log    *logrus.Entry
	config config.Config
	db     *sqlx.DB
	export chan exportJob
}

func New(c config.Config, db *sqlx.DB, log *logrus.Entry) *Server {
	return &Server{
		Log:    log,
		config: c,
		db:     db,
		export: make(chan exportJob, 100),
	}
}

// requestLog returns the logger carrying the request id.
func requestLog(r *http.Request) *logrus.Entry {
	if log, ok := r.Context().Value(logKey).(*logrus.Entry); ok {
		return log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func checkHttpWithStatus(e error, w http.ResponseWriter, r *http.Request, status int) (hadError bool) {
	if e != nil {
		w.WriteHeader(status)

		errMsg := e.Error()
		// Don't expose the 'sql: no rows in result set' message to the user
		if status == http.StatusNotFound && e == sql.ErrNoRows {
			errMsg = "not found"
		}
		if status >= http.StatusInternalServerError {
			requestLog(r).WithError(e).Error("request failed")
		}

		jsonErr := struct {
			Error string `json:"error"`
		}{
			Error: errMsg,
		}
		enc := json.NewEncoder(w)
		_ = enc.Encode(jsonErr)

		return true
	}
	return false
}

func checkHttp(e error, w http.ResponseWriter, r *http.Request) (hadError bool) {
	status := http.StatusInternalServerError
	switch e {
	case sql.ErrNoRows:
		status = http.StatusNotFound
	case datastore.ErrAlreadyExists:
		status = http.StatusConflict
	case datastore.ErrInvalidContent:
		status = http.StatusBadRequest
	}
	return checkHttpWithStatus(e, w, r, status)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) (ok bool) {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		return !checkHttpWithStatus(errors.Errorf("Could not decode request (%v)", err), w, r, http.StatusBadRequest)
	}
	return true
}

func writeJson(w http.ResponseWriter, r *http.Request, v interface{}) {
	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(v), w, r)
}

func writeOk(w http.ResponseWriter) {
	_, _ = w.Write([]byte("{\"result\":\"ok\"}\n"))
}

// Instantiates a datastore for a request using the server's DB connection
func (s *Server) handleWithDatastore(f func(http.ResponseWriter, *http.Request, *datastore.DataStore)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := datastore.New(s.db, s.config.DB.Driver)

		if checkHttpWithStatus(err, w, r, http.StatusServiceUnavailable) {
			return
		}
		f(w, r, ds)
	}
}

func setJsonHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		h.ServeHTTP(w, r)
	})
}

// withRequestId passes on the caller's request id, or assigns a new one, and attaches a logger
// carrying it to the request.
func (s *Server) withRequestId(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIdHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIdHeader, id)

		log := s.Log.WithFields(logrus.Fields{"request_id": id, "method": r.Method, "path": r.URL.Path})
		h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), logKey, log)))
	})
}

// queueExport schedules a re-export of a changed catalog when auto export is enabled. Jobs are
// dropped rather than blocking the request when the queue is full.
func (s *Server) queueExport(r *http.Request, catalog, lang string) {
	if !s.config.Server.AutoExport {
		return
	}
	select {
	case s.export <- exportJob{Catalog: catalog, Language: lang}:
	default:
		requestLog(r).WithField("catalog", catalog).Warn("export queue is full, skipping export")
	}
}

// RunExporter writes the catalogs queued by modifying requests until ctx is done.
func (s *Server) RunExporter(ctx context.Context) {
	ds, err := datastore.New(s.db, s.config.DB.Driver)
	if err != nil {
		s.Log.WithError(err).Error("exporter could not open the datastore")
		return
	}

	dir, format := s.config.Catalog.ExportPath, s.config.Catalog.ExportFormat
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.export:
			log := s.Log.WithFields(logrus.Fields{"catalog": job.Catalog, "language": job.Language})
			var paths []string
			if job.Language == "" {
				paths, err = ds.ExportAll(job.Catalog, dir, format)
			} else {
				var path string
				path, err = ds.ExportCatalog(job.Catalog, job.Language, dir, format)
				paths = []string{path}
			}
			if err != nil {
				log.WithError(err).Error("export failed")
				continue
			}
			log.WithField("files", paths).Info("exported catalog")
		}
	}
}

// Gets list of available languages
func getLanguagesHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	ls, err := ds.GetLanguageList()
	if checkHttp(err, w, r) {
		return
	}

	writeJson(w, r, ls)
}

// Creates a new language
func createLanguageHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	code := mux.Vars(r)["lang"]

	// the name is optional, so is the body
	var content struct {
		Name string `json:"name"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &content) {
		return
	}
	if _, err := trans.ParseTag(code); checkHttpWithStatus(err, w, r, http.StatusBadRequest) {
		return
	}

	l, err := ds.CreateLanguage(code, content.Name)
	if checkHttp(err, w, r) {
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJson(w, r, l)
}

// Gets list of stored catalogs
func getCatalogsHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	cs, err := ds.GetCatalogList()
	if checkHttp(err, w, r) {
		return
	}

	var output struct {
		Catalogs []datastore.CatalogInfo `json:"catalogs"`
	}
	output.Catalogs = cs
	writeJson(w, r, output)
}

func getContextsHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	ctxs, err := ds.GetContextList(mux.Vars(r)["catalog"])
	if checkHttp(err, w, r) {
		return
	}

	var output struct {
		Contexts []string `json:"contexts"`
	}
	output.Contexts = ctxs
	writeJson(w, r, output)
}

func getCatalogLanguagesHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	ls, err := ds.GetCatalogLanguages(mux.Vars(r)["catalog"])
	if checkHttp(err, w, r) {
		return
	}

	writeJson(w, r, ls)
}

// Get a catalog in one language with all its messages
func getCatalogHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	vars := mux.Vars(r)

	c, err := ds.GetCatalog(vars["catalog"], vars["lang"])
	if checkHttp(err, w, r) {
		return
	}

	writeJson(w, r, NewCatalog(c))
}

func getStatsHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	vars := mux.Vars(r)

	c, err := ds.GetCatalog(vars["catalog"], vars["lang"])
	if checkHttp(err, w, r) {
		return
	}

	stats := c.Stats()
	writeJson(w, r, Stats{Stats: stats, Completion: stats.Completion()})
}

// Resolves a single message the way the plugin would at runtime
func translateHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	vars := mux.Vars(r)
	query := r.URL.Query()

	source := query.Get("source")
	if source == "" {
		checkHttpWithStatus(errors.New("missing source parameter"), w, r, http.StatusBadRequest)
		return
	}

	text, found, err := ds.Lookup(vars["catalog"], vars["lang"], query.Get("context"), source, query.Get("comment"))
	if checkHttp(err, w, r) {
		return
	}

	writeJson(w, r, translateResponse{Translation: text, Found: found})
}

// Export a catalog to a file in the export directory
func (s *Server) exportCatalogHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	vars := mux.Vars(r)

	format := r.URL.Query().Get("format")
	if format == "" {
		format = s.config.Catalog.ExportFormat
	}
	if _, err := export.Get(format); checkHttpWithStatus(err, w, r, http.StatusBadRequest) {
		return
	}

	path, err := ds.ExportCatalog(vars["catalog"], vars["lang"], s.config.Catalog.ExportPath, format)
	if checkHttp(err, w, r) {
		return
	}

	writeJson(w, r, struct {
		Result string `json:"result"`
		Path   string `json:"path"`
	}{"ok", path})
}

// Update a translation with new content (or create it if we have a POST request)
// On success, the affected catalog will be re-exported to file.
func (s *Server) createOrUpdateTranslationHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	vars := mux.Vars(r)

	var body translationRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Source == "" {
		checkHttpWithStatus(errors.New("missing source"), w, r, http.StatusBadRequest)
		return
	}
	if _, err := trans.ParseTag(vars["lang"]); checkHttpWithStatus(err, w, r, http.StatusBadRequest) {
		return
	}

	content := body.Content
	if len(body.Forms) > 0 {
		content = datastore.NumerusContent(body.Forms)
	}

	allowCreate := false
	if r.Method == "POST" {
		allowCreate = true
	}

	err := ds.CreateOrUpdateTranslation(vars["catalog"], vars["context"], body.Source, body.Comment, vars["lang"], content, allowCreate)
	if checkHttp(err, w, r) {
		return
	}

	writeOk(w)

	s.queueExport(r, vars["catalog"], vars["lang"])
}

// Deletes a single message and all its associated translations.
// On success, every language of the affected catalog will be re-exported to file.
func (s *Server) deleteMessageHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	vars := mux.Vars(r)

	var body messageRequest
	if !decodeBody(w, r, &body) {
		return
	}

	err := ds.DeleteMessage(vars["catalog"], vars["context"], body.Source, body.Comment)
	if checkHttp(err, w, r) {
		return
	}

	writeOk(w)

	s.queueExport(r, vars["catalog"], "")
}

// Delete a single translation.
// On success, the affected catalog will be re-exported to file.
func (s *Server) deleteTranslationHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	vars := mux.Vars(r)

	var body messageRequest
	if !decodeBody(w, r, &body) {
		return
	}

	err := ds.DeleteTranslation(vars["catalog"], vars["context"], body.Source, body.Comment, vars["lang"])
	if checkHttp(err, w, r) {
		return
	}

	writeOk(w)

	s.queueExport(r, vars["catalog"], vars["lang"])
}

// Handler returns the API with its middlewares. Access log lines go to accessLog.
func (s *Server) Handler(accessLog io.Writer) http.Handler {
	r := mux.NewRouter().StrictSlash(true)
	r.HandleFunc("/languages", s.handleWithDatastore(getLanguagesHandler)).Methods("GET")
	r.HandleFunc("/languages/{lang}", s.handleWithDatastore(createLanguageHandler)).Methods("POST")
	r.HandleFunc("/catalogs", s.handleWithDatastore(getCatalogsHandler)).Methods("GET")
	r.HandleFunc("/catalogs/{catalog}/contexts", s.handleWithDatastore(getContextsHandler)).Methods("GET")
	r.HandleFunc("/catalogs/{catalog}/languages", s.handleWithDatastore(getCatalogLanguagesHandler)).Methods("GET")
	r.HandleFunc("/catalogs/{catalog}/languages/{lang}", s.handleWithDatastore(getCatalogHandler)).Methods("GET")
	r.HandleFunc("/catalogs/{catalog}/languages/{lang}/stats", s.handleWithDatastore(getStatsHandler)).Methods("GET")
	r.HandleFunc("/catalogs/{catalog}/languages/{lang}/translate", s.handleWithDatastore(translateHandler)).Methods("GET")
	r.HandleFunc("/catalogs/{catalog}/languages/{lang}/export", s.handleWithDatastore(s.exportCatalogHandler)).Methods("POST")
	r.HandleFunc("/catalogs/{catalog}/contexts/{context}/messages", s.handleWithDatastore(s.deleteMessageHandler)).Methods("DELETE")
	r.HandleFunc("/catalogs/{catalog}/contexts/{context}/messages/translations/{lang}", s.handleWithDatastore(s.deleteTranslationHandler)).Methods("DELETE")
	r.HandleFunc("/catalogs/{catalog}/contexts/{context}/messages/translations/{lang}", s.handleWithDatastore(s.createOrUpdateTranslationHandler)).Methods("POST", "PUT")

	return handlers.CombinedLoggingHandler(accessLog, s.withRequestId(setJsonHeaders(r)))
}

// Serve runs the API on the configured port until ctx is done.
func Serve(ctx context.Context, c config.Config, log *logrus.Entry) error {
	db, err := datastore.Connect(c.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	s := New(c, db, log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// Listen for catalogs to export to file
	go s.RunExporter(ctx)

	accessLog := log.WithField("component", "access").WriterLevel(logrus.InfoLevel)
	defer accessLog.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", c.Server.Port),
		Handler:           s.Handler(accessLog),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.WithField("port", c.Server.Port).Info("listening")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err = <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		return srv.Shutdown(shutdownCtx)
	}
}
