package datastore

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/e2nIEE/ppqgis-translations/export"
	"github.com/e2nIEE/ppqgis-translations/po"
	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/e2nIEE/ppqgis-translations/ts"
	"github.com/e2nIEE/ppqgis-translations/xliff"
	"github.com/go-errors/errors"
	jsoniter "github.com/json-iterator/go"
)

// CatalogInfo describes a stored catalog without its messages.
type CatalogInfo struct {
	Id             int64  `db:"id" json:"-"`
	Name           string `db:"name" json:"name"`
	SourceLanguage string `db:"source_language" json:"source_language"`
}

type translationRow struct {
	Id     int64  `db:"id"`
	Status string `db:"status"`
}

type messageRow struct {
	Context           string `db:"context_name"`
	Source            string `db:"source"`
	Comment           string `db:"comment"`
	ExtraComment      string `db:"extra_comment"`
	Numerus           bool   `db:"numerus"`
	Content           string `db:"content"`
	Status            string `db:"status"`
	Locations         string `db:"locations"`
	TranslatorComment string `db:"translator_comment"`
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NumerusContent encodes the forms of a numerus translation for the content column.
func NumerusContent(forms []string) string {
	if len(forms) == 0 {
		return ""
	}
	out, _ := json.MarshalToString(forms)
	return out
}

func content(m *trans.Message) string {
	if m.Numerus {
		return NumerusContent(m.NumerusForms)
	}
	return m.Translation
}

func setContent(m *trans.Message, content string) error {
	if !m.Numerus {
		m.Translation = content
		return nil
	}
	if content == "" {
		return nil
	}
	return json.UnmarshalFromString(content, &m.NumerusForms)
}

func (ds *DataStore) getLanguage(code string) (l trans.Language, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("language", "get", time.Since(start)) }()

	code = trans.NormalizeCode(code)
	if l, ok := ds.languageCache[code]; ok {
		return l, nil
	}

	err = ds.ex.Get(&l, ds.q("SELECT id, code, name FROM language WHERE code = ?"), code)
	if err != nil {
		return l, err
	}
	ds.languageCache[code] = l

	return l, nil
}

// ensureLanguage returns the language with the given code, creating it when the code is valid but
// not yet known.
func (ds *DataStore) ensureLanguage(code string) (l trans.Language, err error) {
	l, err = ds.getLanguage(code)
	if err != sql.ErrNoRows {
		return l, err
	}

	return ds.CreateLanguage(code, "")
}

// Gets all available languages
func (ds *DataStore) GetLanguageList() (languages []trans.Language, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("language", "get", time.Since(start)) }()

	languages = []trans.Language{}
	err = ds.ex.Select(&languages, "SELECT id, code, name FROM language ORDER BY code")

	return languages, err
}

// CreateLanguage adds a language. An empty name is replaced by the English name of the language.
// Returns ErrAlreadyExists when the code is already stored.
func (ds *DataStore) CreateLanguage(code, name string) (l trans.Language, err error) {
	l, err = trans.ParseLanguage(code)
	if err != nil {
		return l, err
	}
	if name != "" {
		l.Name = name
	}

	if _, err := ds.getLanguage(l.Code); err == nil {
		return l, ErrAlreadyExists
	} else if err != sql.ErrNoRows {
		return l, err
	}

	start := time.Now()
	defer func() { ds.Stats.Log("language", "insert", time.Since(start)) }()

	l.Id, err = ds.insert("INSERT INTO language (code, name) VALUES (?, ?)", l.Code, l.Name)
	if err != nil {
		if ds.adapter.IsUniqueViolation(err) {
			return l, ErrAlreadyExists
		}
		return l, err
	}
	ds.languageCache[l.Code] = l

	return l, nil
}

func (ds *DataStore) getCatalogId(name string) (id int64, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("catalog", "get", time.Since(start)) }()

	if id, ok := ds.catalogCache[name]; ok {
		return id, nil
	}

	err = ds.ex.Get(&id, ds.q("SELECT id FROM catalog WHERE name = ?"), name)
	if err != nil {
		return 0, err
	}
	ds.catalogCache[name] = id

	return id, nil
}

func (ds *DataStore) createOrGetCatalog(name, sourceLanguage string) (id int64, err error) {
	id, err = ds.getCatalogId(name)
	if err != sql.ErrNoRows {
		if err == nil && sourceLanguage != "" {
			_, err = ds.ex.Exec(ds.q("UPDATE catalog SET source_language = ? WHERE id = ?"), sourceLanguage, id)
		}
		return id, err
	}

	start := time.Now()
	defer func() { ds.Stats.Log("catalog", "insert", time.Since(start)) }()

	id, err = ds.insert("INSERT INTO catalog (name, source_language) VALUES (?, ?)", name, sourceLanguage)
	if err != nil {
		return 0, err
	}
	ds.catalogCache[name] = id

	return id, nil
}

// ensureCatalogLanguage records that the catalog is translated to the language. A non-empty
// version replaces the stored one.
func (ds *DataStore) ensureCatalogLanguage(catalogId, languageId int64, version string) (err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("catalog_language", "upsert", time.Since(start)) }()

	var id int64
	err = ds.ex.Get(&id, ds.q("SELECT id FROM catalog_language WHERE catalog_id = ? AND language_id = ?"), catalogId, languageId)
	switch {
	case err == sql.ErrNoRows:
		_, err = ds.insert("INSERT INTO catalog_language (catalog_id, language_id, version) VALUES (?, ?, ?)", catalogId, languageId, version)
	case err == nil && version != "":
		_, err = ds.ex.Exec(ds.q("UPDATE catalog_language SET version = ? WHERE id = ?"), version, id)
	}

	return err
}

func (ds *DataStore) getContextId(catalogId int64, name string) (id int64, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("context", "get", time.Since(start)) }()

	key := contextKey{CatalogId: catalogId, Name: name}
	if id, ok := ds.contextCache[key]; ok {
		return id, nil
	}

	err = ds.ex.Get(&id, ds.q("SELECT id FROM context WHERE catalog_id = ? AND name = ?"), catalogId, name)
	if err != nil {
		return 0, err
	}
	ds.contextCache[key] = id

	return id, nil
}

// createOrGetContext appends a new context after the existing ones when position is negative.
func (ds *DataStore) createOrGetContext(catalogId int64, name string, position int) (id int64, err error) {
	id, err = ds.getContextId(catalogId, name)
	if err != sql.ErrNoRows {
		return id, err
	}

	start := time.Now()
	defer func() { ds.Stats.Log("context", "insert", time.Since(start)) }()

	if position < 0 {
		err = ds.ex.Get(&position, ds.q("SELECT COALESCE(MAX(position), -1) + 1 FROM context WHERE catalog_id = ?"), catalogId)
		if err != nil {
			return 0, err
		}
	}

	id, err = ds.insert("INSERT INTO context (catalog_id, name, position) VALUES (?, ?, ?)", catalogId, name, position)
	if err != nil {
		return 0, err
	}
	ds.contextCache[contextKey{CatalogId: catalogId, Name: name}] = id

	return id, nil
}

func (ds *DataStore) getMessageId(contextId int64, key trans.Key) (id int64, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("message", "get", time.Since(start)) }()

	err = ds.ex.Get(&id, ds.q("SELECT id FROM message WHERE context_id = ? AND key_hash = ?"), contextId, key.Hash())

	return id, err
}

func (ds *DataStore) createMessage(contextId int64, key trans.Key, m *trans.Message, position int) (id int64, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("message", "insert", time.Since(start)) }()

	if position < 0 {
		err = ds.ex.Get(&position, ds.q("SELECT COALESCE(MAX(position), -1) + 1 FROM message WHERE context_id = ?"), contextId)
		if err != nil {
			return 0, err
		}
	}

	return ds.insert(
		"INSERT INTO message (context_id, source, comment, key_hash, extra_comment, numerus, position) VALUES (?, ?, ?, ?, ?, ?, ?)",
		contextId, key.Source, key.Comment, key.Hash(), m.ExtraComment, m.Numerus, position)
}

func (ds *DataStore) updateMessage(id int64, m *trans.Message, position int) (err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("message", "update", time.Since(start)) }()

	_, err = ds.ex.Exec(ds.q("UPDATE message SET extra_comment = ?, numerus = ?, position = ? WHERE id = ?"), m.ExtraComment, m.Numerus, position, id)

	return err
}

func (ds *DataStore) getTranslation(messageId, languageId int64) (t translationRow, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("translation", "get", time.Since(start)) }()

	err = ds.ex.Get(&t, ds.q("SELECT id, status FROM translation WHERE message_id = ? AND language_id = ?"), messageId, languageId)

	return t, err
}

func (ds *DataStore) insertTranslation(messageId, languageId int64, m *trans.Message) (err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("translation", "insert", time.Since(start)) }()

	_, err = ds.insert(
		"INSERT INTO translation (message_id, language_id, content, status, locations, translator_comment) VALUES (?, ?, ?, ?, ?, ?)",
		messageId, languageId, content(m), string(m.Status), trans.FormatLocations(m.Locations), m.TranslatorComment)

	return err
}

func (ds *DataStore) updateTranslation(id int64, m *trans.Message) (err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("translation", "update", time.Since(start)) }()

	_, err = ds.ex.Exec(
		ds.q("UPDATE translation SET content = ?, status = ?, locations = ?, translator_comment = ? WHERE id = ?"),
		content(m), string(m.Status), trans.FormatLocations(m.Locations), m.TranslatorComment, id)

	return err
}

// Gets all stored catalogs, ordered by name.
func (ds *DataStore) GetCatalogList() (catalogs []CatalogInfo, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("catalog", "get", time.Since(start)) }()

	catalogs = []CatalogInfo{}
	err = ds.ex.Select(&catalogs, "SELECT id, name, source_language FROM catalog ORDER BY name")

	return catalogs, err
}

// GetCatalogLanguages returns the languages the named catalog has been imported or translated
// to. Returns sql.ErrNoRows when the catalog does not exist.
func (ds *DataStore) GetCatalogLanguages(catalog string) (languages []trans.Language, err error) {
	catalogId, err := ds.getCatalogId(catalog)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { ds.Stats.Log("language", "get", time.Since(start)) }()

	languages = []trans.Language{}
	err = ds.ex.Select(&languages, ds.q(`SELECT language.id, language.code, language.name
FROM catalog_language INNER JOIN language ON language.id = catalog_language.language_id
WHERE catalog_language.catalog_id = ? ORDER BY language.code`), catalogId)

	return languages, err
}

// GetContextList returns the context names of the named catalog in file order.
// Returns sql.ErrNoRows when the catalog does not exist.
func (ds *DataStore) GetContextList(catalog string) (contexts []string, err error) {
	catalogId, err := ds.getCatalogId(catalog)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { ds.Stats.Log("context", "get", time.Since(start)) }()

	contexts = []string{}
	err = ds.ex.Select(&contexts, ds.q("SELECT name FROM context WHERE catalog_id = ? ORDER BY position, id"), catalogId)

	return contexts, err
}

// ImportCatalog stores every message of the catalog together with its translation to the
// catalog's language. Existing messages and translations are updated, unknown languages are
// created. The import is atomic.
func (ds *DataStore) ImportCatalog(c *trans.Catalog) error {
	if c.Name == "" {
		return errors.New("cannot import a catalog without a name")
	}
	if c.Language == "" {
		return errors.Errorf("catalog %v has no language", c.Name)
	}

	return ds.inTx(func(tx *DataStore) error {
		return tx.importCatalog(c)
	})
}

func (ds *DataStore) importCatalog(c *trans.Catalog) error {
	lang, err := ds.ensureLanguage(c.Language)
	if err != nil {
		return err
	}

	catalogId, err := ds.createOrGetCatalog(c.Name, trans.NormalizeCode(c.SourceLanguage))
	if err != nil {
		return err
	}

	if err := ds.ensureCatalogLanguage(catalogId, lang.Id, c.Version); err != nil {
		return err
	}

	for i, ctx := range c.Contexts {
		contextId, err := ds.createOrGetContext(catalogId, ctx.Name, i)
		if err != nil {
			return err
		}

		for j, m := range ctx.Messages {
			key := m.Key(ctx.Name)
			messageId, err := ds.getMessageId(contextId, key)
			switch {
			case err == sql.ErrNoRows:
				messageId, err = ds.createMessage(contextId, key, m, j)
			case err == nil:
				err = ds.updateMessage(messageId, m, j)
			}
			if err != nil {
				return err
			}

			t, err := ds.getTranslation(messageId, lang.Id)
			switch {
			case err == sql.ErrNoRows:
				err = ds.insertTranslation(messageId, lang.Id, m)
			case err == nil:
				err = ds.updateTranslation(t.Id, m)
			}
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// ReadCatalogFile parses a catalog file by its extension: .ts, .xliff or .po.
func ReadCatalogFile(file string) (c *trans.Catalog, err error) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".ts":
		return ts.NewFromFile(file)
	case ".xliff", ".xlf":
		x, err := xliff.NewFromFile(file)
		if err != nil {
			return nil, err
		}
		return x.Catalog(), nil
	case ".po":
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		c, err = po.Parse(f)
		if err != nil {
			return nil, errors.Errorf("%v: %v", file, err)
		}
		name, err := ts.CatalogName(file, c.Language)
		if err != nil {
			return nil, err
		}
		c.Name = name
		return c, nil
	}

	return nil, errors.Errorf("unsupported catalog file '%v'", file)
}

// ImportFiles imports the given catalog files in order, sending the base name of each imported
// file to notify when it is not nil. Returns the number of files imported.
func (ds *DataStore) ImportFiles(files []string, notify chan<- string) (count int, err error) {
	for i, file := range files {
		c, err := ReadCatalogFile(file)
		if err != nil {
			return i, err
		}

		if err = ds.ImportCatalog(c); err != nil {
			return i, errors.Errorf("%v: %v", file, err)
		}

		if notify != nil {
			notify <- filepath.Base(file)
		}
	}

	return len(files), nil
}

// CatalogFiles lists the catalog files in dir, sorted by name.
func CatalogFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.ts", "*.xliff", "*.po"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	return files, nil
}

func (ds *DataStore) ImportDir(dir string, notify chan<- string) (count int, err error) {
	files, err := CatalogFiles(dir)
	if err != nil {
		return 0, err
	}

	return ds.ImportFiles(files, notify)
}

// GetCatalog assembles the named catalog in the given language. Messages without a translation
// to that language are returned unfinished and empty.
// Returns sql.ErrNoRows when the catalog does not exist or has never been translated to the
// language.
func (ds *DataStore) GetCatalog(name, lang string) (c *trans.Catalog, err error) {
	catalog := CatalogInfo{}
	err = ds.ex.Get(&catalog, ds.q("SELECT id, name, source_language FROM catalog WHERE name = ?"), name)
	if err != nil {
		return nil, err
	}

	l, err := ds.getLanguage(lang)
	if err != nil {
		return nil, err
	}

	var version string
	err = ds.ex.Get(&version, ds.q("SELECT version FROM catalog_language WHERE catalog_id = ? AND language_id = ?"), catalog.Id, l.Id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { ds.Stats.Log("catalog", "get", time.Since(start)) }()

	var rows []messageRow
	err = ds.ex.Select(&rows, ds.q(`SELECT context.name AS context_name, message.source, message.comment,
    message.extra_comment, message.numerus,
    COALESCE(translation.content, '') AS content,
    COALESCE(translation.status, 'unfinished') AS status,
    COALESCE(translation.locations, '') AS locations,
    COALESCE(translation.translator_comment, '') AS translator_comment
FROM context
INNER JOIN message ON message.context_id = context.id
LEFT JOIN translation ON translation.message_id = message.id AND translation.language_id = ?
WHERE context.catalog_id = ?
ORDER BY context.position, context.id, message.position, message.id`), l.Id, catalog.Id)
	if err != nil {
		return nil, err
	}

	c = &trans.Catalog{
		Name:           catalog.Name,
		Version:        version,
		Language:       trans.QtCode(l.Code),
		SourceLanguage: trans.QtCode(catalog.SourceLanguage),
	}
	for _, r := range rows {
		m := &trans.Message{
			Source:            r.Source,
			Comment:           r.Comment,
			ExtraComment:      r.ExtraComment,
			TranslatorComment: r.TranslatorComment,
			Numerus:           r.Numerus,
			Status:            trans.ParseStatus(r.Status),
			Locations:         trans.ParseLocations(r.Locations),
		}
		if err := setContent(m, r.Content); err != nil {
			return nil, errors.Errorf("%v: invalid numerus forms: %v", m.Key(r.Context), err)
		}
		c.Add(r.Context, m)
	}

	return c, nil
}

// ExportCatalog writes the named catalog in the given language and format to dir and returns the
// path of the written file.
func (ds *DataStore) ExportCatalog(name, lang, dir, format string) (path string, err error) {
	c, err := ds.GetCatalog(name, lang)
	if err != nil {
		return "", err
	}

	start := time.Now()
	defer func() { ds.Stats.Log("catalog", "export", time.Since(start)) }()

	return export.ExportFile(dir, c, format)
}

// ExportAll writes every language of the named catalog to dir.
func (ds *DataStore) ExportAll(name, dir, format string) (paths []string, err error) {
	langs, err := ds.GetCatalogLanguages(name)
	if err != nil {
		return nil, err
	}

	for _, l := range langs {
		path, err := ds.ExportCatalog(name, l.Code, dir, format)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// findMessage resolves the ids along a message key. Missing parts are created when allowCreate is
// true, otherwise sql.ErrNoRows is returned.
func (ds *DataStore) findMessage(catalog string, key trans.Key, allowCreate bool) (catalogId, messageId int64, err error) {
	if allowCreate {
		catalogId, err = ds.createOrGetCatalog(catalog, "")
	} else {
		catalogId, err = ds.getCatalogId(catalog)
	}
	if err != nil {
		return 0, 0, err
	}

	var contextId int64
	if allowCreate {
		contextId, err = ds.createOrGetContext(catalogId, key.Context, -1)
	} else {
		contextId, err = ds.getContextId(catalogId, key.Context)
	}
	if err != nil {
		return 0, 0, err
	}

	messageId, err = ds.getMessageId(contextId, key)
	if err == sql.ErrNoRows && allowCreate {
		messageId, err = ds.createMessage(contextId, key, &trans.Message{}, -1)
	}

	return catalogId, messageId, err
}

// Updates the translation of a message to have the given content and marks it finished.
// When allowCreate is false, will return sql.ErrNoRows if the message does not exist or is not yet
// translated into the given language.
// If allowCreate is true, the catalog, context, message and translation are created as needed.
func (ds *DataStore) CreateOrUpdateTranslation(catalog, context, source, comment, langCode, content string, allowCreate bool) error {
	return ds.inTx(func(tx *DataStore) error {
		return tx.createOrUpdateTranslation(catalog, trans.Key{Context: context, Source: source, Comment: comment}, langCode, content, allowCreate)
	})
}

func (ds *DataStore) createOrUpdateTranslation(catalog string, key trans.Key, langCode, content string, allowCreate bool) (err error) {
	catalogId, messageId, err := ds.findMessage(catalog, key, allowCreate)
	if err != nil {
		return err
	}

	var lang trans.Language
	if allowCreate {
		lang, err = ds.ensureLanguage(langCode)
	} else {
		lang, err = ds.getLanguage(langCode)
	}
	if err != nil {
		return err
	}

	var numerus bool
	err = ds.ex.Get(&numerus, ds.q("SELECT numerus FROM message WHERE id = ?"), messageId)
	if err != nil {
		return err
	}
	m := &trans.Message{Numerus: numerus}
	if err := setContent(m, content); err != nil {
		return ErrInvalidContent
	}

	t, err := ds.getTranslation(messageId, lang.Id)
	switch {
	case err == sql.ErrNoRows && allowCreate:
		if err = ds.ensureCatalogLanguage(catalogId, lang.Id, ""); err != nil {
			return err
		}
		return ds.insertTranslation(messageId, lang.Id, m)
	case err != nil:
		return err
	}

	// a message that left the UI stays obsolete whatever its content
	status := trans.ParseStatus(t.Status)
	if status == trans.StatusUnfinished {
		status = trans.StatusFinished
	}

	start := time.Now()
	defer func() { ds.Stats.Log("translation", "update", time.Since(start)) }()

	_, err = ds.ex.Exec(ds.q("UPDATE translation SET content = ?, status = ? WHERE id = ?"), content, string(status), t.Id)

	return err
}

// DeleteMessage deletes a message and all its translations.
// Returns sql.ErrNoRows when the message does not exist.
func (ds *DataStore) DeleteMessage(catalog, context, source, comment string) error {
	return ds.inTx(func(tx *DataStore) error {
		_, messageId, err := tx.findMessage(catalog, trans.Key{Context: context, Source: source, Comment: comment}, false)
		if err != nil {
			return err
		}

		start := time.Now()
		defer func() { tx.Stats.Log("message", "delete", time.Since(start)) }()

		if _, err = tx.ex.Exec(tx.q("DELETE FROM translation WHERE message_id = ?"), messageId); err != nil {
			return err
		}
		_, err = tx.ex.Exec(tx.q("DELETE FROM message WHERE id = ?"), messageId)
		return err
	})
}

// DeleteTranslation deletes the translation of a message to one language.
// Returns sql.ErrNoRows when the message or the translation does not exist.
func (ds *DataStore) DeleteTranslation(catalog, context, source, comment, langCode string) error {
	_, messageId, err := ds.findMessage(catalog, trans.Key{Context: context, Source: source, Comment: comment}, false)
	if err != nil {
		return err
	}

	lang, err := ds.getLanguage(langCode)
	if err != nil {
		return err
	}

	t, err := ds.getTranslation(messageId, lang.Id)
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() { ds.Stats.Log("translation", "delete", time.Since(start)) }()

	_, err = ds.ex.Exec(ds.q("DELETE FROM translation WHERE id = ?"), t.Id)

	return err
}

// Lookup resolves a message the way the Qt runtime does, see trans.Catalog.Translate. The source
// string is returned with found set to false when no usable translation exists.
// Returns sql.ErrNoRows when the catalog or the language does not exist.
func (ds *DataStore) Lookup(catalog, langCode, context, source, comment string) (translation string, found bool, err error) {
	if _, err = ds.getCatalogId(catalog); err != nil {
		return source, false, err
	}
	lang, err := ds.getLanguage(langCode)
	if err != nil {
		return source, false, err
	}

	start := time.Now()
	defer func() { ds.Stats.Log("translation", "lookup", time.Since(start)) }()

	keys := []trans.Key{{Context: context, Source: source, Comment: comment}}
	if comment != "" {
		keys = append(keys, trans.Key{Context: context, Source: source})
	}
	for _, key := range keys {
		var rows []messageRow
		err = ds.ex.Select(&rows, ds.q(`SELECT context.name AS context_name, message.source, message.comment,
    message.extra_comment, message.numerus, translation.content, translation.status,
    translation.locations, translation.translator_comment
FROM translation
INNER JOIN message ON message.id = translation.message_id
INNER JOIN context ON context.id = message.context_id
INNER JOIN catalog ON catalog.id = context.catalog_id
WHERE catalog.name = ? AND context.name = ? AND message.key_hash = ? AND translation.language_id = ?`),
			catalog, key.Context, key.Hash(), lang.Id)
		if err != nil {
			return source, false, err
		}
		if len(rows) == 0 {
			continue
		}

		m := &trans.Message{Numerus: rows[0].Numerus, Status: trans.ParseStatus(rows[0].Status)}
		if err := setContent(m, rows[0].Content); err != nil {
			return source, false, err
		}
		if m.Resolvable() {
			return m.Text(), true, nil
		}
	}

	return source, false, nil
}
