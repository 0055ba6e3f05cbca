package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/e2nIEE/ppqgis-translations/config"
	"github.com/e2nIEE/ppqgis-translations/datastore"
	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/e2nIEE/ppqgis-translations/ts"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*Server
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := sqlx.Connect(config.DbDriverSqlite3, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ds, err := datastore.New(db, config.DbDriverSqlite3)
	require.NoError(t, err)
	_, err = ds.MigrateUp()
	require.NoError(t, err)
	_, err = ds.ImportFiles([]string{filepath.Join("..", "ts", "_test_data", "pandapower_qgis_de.ts")}, nil)
	require.NoError(t, err)

	c := config.Default()
	c.DB.Driver = config.DbDriverSqlite3
	c.Catalog.ExportPath = t.TempDir()
	c.Server.AutoExport = false

	log := logrus.New()
	log.Out = io.Discard
	s := New(c, db, logrus.NewEntry(log))

	return &testServer{Server: s, handler: s.Handler(io.Discard)}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t)

	type scenario struct {
		method   string
		target   string
		body     string
		status   int
		contains string
	}

	scenarios := []scenario{
		{"GET", "/languages", "", http.StatusOK, `"code":"de-de"`},
		{"POST", "/languages/sv", `{"name":"Svenska"}`, http.StatusCreated, `"name":"Svenska"`},
		{"POST", "/languages/de", `{"name":"Deutsch"}`, http.StatusConflict, `"error":"already exists"`},
		{"POST", "/languages/not%20a%20language", `{}`, http.StatusBadRequest, `"error"`},
		{"POST", "/languages/sv", `{`, http.StatusBadRequest, `Could not decode request`},
		{"POST", "/languages/sv_SE", "", http.StatusCreated, `"name":"Swedish (Sweden)"`},
		{"GET", "/catalogs", "", http.StatusOK, `{"catalogs":[{"name":"pandapower_qgis","source_language":"en"}]}`},
		{"GET", "/catalogs/pandapower_qgis/contexts", "", http.StatusOK, `{"contexts":["exportDialog","exportSummaryDialog","importDialog","ppqgis"]}`},
		{"GET", "/catalogs/missing/contexts", "", http.StatusNotFound, `{"error":"not found"}`},
		{"GET", "/catalogs/pandapower_qgis/languages", "", http.StatusOK, `"code":"de-de"`},
		{"GET", "/catalogs/pandapower_qgis/languages/de_DE", "", http.StatusOK, `"language":"de_DE"`},
		{"GET", "/catalogs/pandapower_qgis/languages/fr", "", http.StatusNotFound, `not found`},
		{"GET", "/catalogs/pandapower_qgis/languages/de_DE/stats", "", http.StatusOK, `"messages":32`},
		{"GET", "/catalogs/pandapower_qgis/languages/de_DE/translate?context=ppqgis", "", http.StatusBadRequest, `missing source parameter`},
		{"POST", "/catalogs/pandapower_qgis/languages/de_DE/export?format=doc", "", http.StatusBadRequest, `unknown export format`},
		{"GET", "/nowhere", "", http.StatusNotFound, ``},
	}

	for _, sc := range scenarios {
		rec := s.do(sc.method, sc.target, sc.body)
		assert.Equal(t, sc.status, rec.Code, "%v %v: %v", sc.method, sc.target, rec.Body.String())
		assert.Contains(t, rec.Body.String(), sc.contains, "%v %v", sc.method, sc.target)
	}
}

func TestJsonHeadersAndRequestId(t *testing.T) {
	s := newTestServer(t)

	rec := s.do("GET", "/languages", "")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Len(t, rec.Header().Get(requestIdHeader), 36)

	req := httptest.NewRequest("GET", "/languages", nil)
	req.Header.Set(requestIdHeader, "abc")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(requestIdHeader))
}

func TestGetCatalog(t *testing.T) {
	s := newTestServer(t)

	rec := s.do("GET", "/catalogs/pandapower_qgis/languages/de-de", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var c Catalog
	decode(t, rec, &c)
	assert.Equal(t, "pandapower_qgis", c.Name)
	assert.Equal(t, "2.1", c.Version)
	require.Len(t, c.Contexts, 4)
	assert.Equal(t, "exportDialog", c.Contexts[0].Name)
	assert.NotEmpty(t, c.Contexts[0].Messages)
	assert.Equal(t, "finished", c.Contexts[0].Messages[0].Status)
}

func TestTranslate(t *testing.T) {
	s := newTestServer(t)
	orig, err := ts.NewFromFile(filepath.Join("..", "ts", "_test_data", "pandapower_qgis_de.ts"))
	require.NoError(t, err)

	m := orig.Contexts[0].Messages[0]
	target := "/catalogs/pandapower_qgis/languages/de_DE/translate?context=" + orig.Contexts[0].Name + "&source=" + url.QueryEscape(m.Source)
	rec := s.do("GET", target, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out translateResponse
	decode(t, rec, &out)
	assert.Equal(t, orig.Translate(orig.Contexts[0].Name, m.Source, ""), out.Translation)
	assert.Equal(t, m.Resolvable(), out.Found)

	rec = s.do("GET", "/catalogs/pandapower_qgis/languages/de_DE/translate?context=ppqgis&source=Unknown", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &out)
	assert.Equal(t, translateResponse{Translation: "Unknown", Found: false}, out)
}

func TestModifyTranslations(t *testing.T) {
	s := newTestServer(t)
	base := "/catalogs/pandapower_qgis/contexts/ppqgis/messages"

	rec := s.do("PUT", base+"/translations/de_DE", `{"source":"Brand new","content":"Ganz neu"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do("POST", base+"/translations/de_DE", `{"source":"Brand new","content":"Ganz neu"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "{\"result\":\"ok\"}\n", rec.Body.String())

	rec = s.do("PUT", base+"/translations/de_DE", `{"source":"Brand new","content":"Nagelneu"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out translateResponse
	decode(t, s.do("GET", "/catalogs/pandapower_qgis/languages/de_DE/translate?context=ppqgis&source=Brand+new", ""), &out)
	assert.Equal(t, translateResponse{Translation: "Nagelneu", Found: true}, out)

	rec = s.do("POST", base+"/translations/de_DE", `{"content":"Ganz neu"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do("DELETE", base+"/translations/de_DE", `{"source":"Brand new"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do("DELETE", base+"/translations/de_DE", `{"source":"Brand new"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do("DELETE", base, `{"source":"Brand new"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do("DELETE", base, `{"source":"Brand new"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModifyNumerusTranslation(t *testing.T) {
	s := newTestServer(t)
	ds, err := datastore.New(s.db, config.DbDriverSqlite3)
	require.NoError(t, err)
	c := &trans.Catalog{Name: "plugin", Language: "de_DE"}
	c.Add("ppqgis", &trans.Message{Source: "%n bus(es)", Numerus: true, NumerusForms: []string{"%n Bus", "%n Busse"}})
	require.NoError(t, ds.ImportCatalog(c))

	base := "/catalogs/plugin/contexts/ppqgis/messages/translations/de_DE"

	type scenario struct {
		body     string
		status   int
		contains string
	}

	scenarios := []scenario{
		{`{"source":"%n bus(es)","content":"Busse"}`, http.StatusBadRequest, `"error":"numerus messages take a JSON list of forms"`},
		{`{"source":"%n bus(es)","forms":["ein Bus","%n Busse"]}`, http.StatusOK, `"result":"ok"`},
	}
	for _, sc := range scenarios {
		rec := s.do("PUT", base, sc.body)
		assert.Equal(t, sc.status, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), sc.contains)
	}

	var out translateResponse
	decode(t, s.do("GET", "/catalogs/plugin/languages/de_DE/translate?context=ppqgis&source=%25n+bus%28es%29", ""), &out)
	assert.Equal(t, translateResponse{Translation: "ein Bus", Found: true}, out)
}

func TestExportCatalog(t *testing.T) {
	s := newTestServer(t)

	rec := s.do("POST", "/catalogs/pandapower_qgis/languages/de_DE/export?format=qm", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Result string `json:"result"`
		Path   string `json:"path"`
	}
	decode(t, rec, &out)
	assert.Equal(t, filepath.Join(s.config.Catalog.ExportPath, "pandapower_qgis_de.qm"), out.Path)
	assert.FileExists(t, out.Path)

	// the configured format is the default
	rec = s.do("POST", "/catalogs/pandapower_qgis/languages/de_DE/export", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.FileExists(t, filepath.Join(s.config.Catalog.ExportPath, "pandapower_qgis_de.ts"))
}

func TestAutoExport(t *testing.T) {
	s := newTestServer(t)
	s.config.Server.AutoExport = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.RunExporter(ctx)

	rec := s.do("POST", "/catalogs/pandapower_qgis/contexts/ppqgis/messages/translations/de_DE", `{"source":"Brand new","content":"Ganz neu"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	path := filepath.Join(s.config.Catalog.ExportPath, "pandapower_qgis_de.ts")
	assert.Eventually(t, func() bool {
		c, err := ts.NewFromFile(path)
		return err == nil && c.Translate("ppqgis", "Brand new", "") == "Ganz neu"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestNoAutoExport(t *testing.T) {
	s := newTestServer(t)

	rec := s.do("POST", "/catalogs/pandapower_qgis/contexts/ppqgis/messages/translations/de_DE", `{"source":"Brand new","content":"Ganz neu"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.export)

	entries, err := os.ReadDir(s.config.Catalog.ExportPath)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
