/*
Package translator resolves source strings at runtime the way the plugin does: it loads the
catalog matching the user's locale from the plugin's i18n directory and falls back to the source
string whenever no usable translation exists.
*/
package translator

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/cloudfoundry/jibber_jabber"
	"github.com/e2nIEE/ppqgis-translations/qm"
	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/e2nIEE/ppqgis-translations/ts"
	"github.com/go-errors/errors"
	"github.com/samber/lo"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

// DefaultContext is the context the plugin's own tr() calls use.
const DefaultContext = "ppqgis"

// Auto asks the translator to detect the user's locale.
const Auto = "auto"

type Options struct {
	// Dir holds the catalog files, Basename is their common prefix (pandapower_qgis).
	Dir      string
	Basename string

	// Fallbacks are consulted in order when the active language has no translation.
	Fallbacks []string

	// DefaultContext is used by Tr. Empty means DefaultContext.
	DefaultContext string
}

type Translator struct {
	Log *logrus.Entry

	opts   Options
	detect func() (string, error)

	mutex deadlock.RWMutex
	// catalogs installed per normalized language code, in installation order
	layers map[string][]*trans.Catalog
	active string
}

// Creates a new translator with nothing installed, so every string resolves to itself
func New(log *logrus.Entry, opts Options) *Translator {
	if opts.DefaultContext == "" {
		opts.DefaultContext = DefaultContext
	}

	return &Translator{
		Log:    log,
		opts:   opts,
		detect: jibber_jabber.DetectIETF,
		layers: make(map[string][]*trans.Catalog),
	}
}

// Install registers a catalog under its language. A catalog installed for a language that already
// has one is layered on top: its translations win, but its empty ones never hide older ones.
func (t *Translator) Install(c *trans.Catalog) error {
	code := trans.NormalizeCode(c.Language)
	if code == "" {
		return errors.Errorf("catalog '%v' has no language", c.Name)
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.layers[code] = append(t.layers[code], c)
	if t.active == "" {
		t.active = code
	}

	t.Log.WithFields(logrus.Fields{"catalog": c.Name, "language": code, "messages": c.Len()}).Debug("installed catalog")

	return nil
}

// candidates lists the files tried for a locale: the full code first, then the two letter code.
func (t *Translator) candidates(locale string) []string {
	codes := lo.Uniq([]string{trans.QtCode(locale), trans.BaseCode(locale)})

	var files []string
	for _, code := range codes {
		for _, ext := range []string{"qm", "ts"} {
			files = append(files, filepath.Join(t.opts.Dir, t.opts.Basename+"_"+code+"."+ext))
		}
	}
	return files
}

func loadFile(path string) (*trans.Catalog, error) {
	if filepath.Ext(path) == ".ts" {
		return ts.ParseFile(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := qm.Decode(f)
	if err != nil {
		return nil, errors.Errorf("%v: %v", path, err)
	}
	c.Name = filepath.Base(path)
	return c, nil
}

// Load installs and activates the catalog for locale, "auto" meaning the user's system locale.
// When no catalog file exists for it, nothing is installed, no language is active and "" is
// returned without an error.
func (t *Translator) Load(locale string) (string, error) {
	if locale == "" || locale == Auto {
		detected, err := t.detect()
		if err != nil {
			t.Log.WithError(err).Warn("could not detect the system locale")
			detected = "en"
		}
		locale = detected
	}

	for _, path := range t.candidates(locale) {
		if _, err := os.Stat(path); err != nil {
			continue
		}

		c, err := loadFile(path)
		if err != nil {
			return "", err
		}
		if c.Language == "" {
			c.Language = locale
		}
		if err := t.Install(c); err != nil {
			return "", err
		}

		code := trans.NormalizeCode(c.Language)
		t.mutex.Lock()
		t.active = code
		t.mutex.Unlock()

		t.Log.WithFields(logrus.Fields{"file": path, "language": code}).Info("loaded catalog")
		return code, nil
	}

	t.Log.WithField("locale", locale).Info("no catalog for locale, using source strings")
	t.mutex.Lock()
	t.active = ""
	t.mutex.Unlock()

	return "", nil
}

// match finds the installed language serving locale: the same code, or one sharing its base
// language (de-at is served by de or de-de). Callers hold the lock.
func (t *Translator) match(locale string) (string, bool) {
	code := trans.NormalizeCode(locale)
	if _, ok := t.layers[code]; ok {
		return code, true
	}

	want, err := trans.ParseTag(code)
	if err != nil {
		return "", false
	}
	wantBase, _ := want.Base()

	codes := t.languages()
	tags := make([]language.Tag, 0, len(codes))
	for _, c := range codes {
		tag, err := trans.ParseTag(c)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return "", false
	}

	_, idx, conf := language.NewMatcher(tags).Match(want)
	if conf == language.No {
		return "", false
	}
	// the matcher happily maps related languages onto each other, require the same base
	if base, _ := tags[idx].Base(); base != wantBase {
		return "", false
	}
	return codes[idx], true
}

// Use activates the installed language best matching locale.
func (t *Translator) Use(locale string) (string, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	code, ok := t.match(locale)
	if !ok {
		return "", errors.Errorf("no catalog installed for '%v' (installed: %v)", locale, t.languages())
	}
	t.active = code
	return code, nil
}

func lookup(layers []*trans.Catalog, context, source, comment string) (string, bool) {
	for i := len(layers) - 1; i >= 0; i-- {
		c := layers[i]
		if m, ok := c.Lookup(context, source, comment); ok && m.Resolvable() {
			return m.Text(), true
		}
	}
	if comment != "" {
		return lookup(layers, context, source, "")
	}
	return "", false
}

// Translate resolves a message through the active language, then the fallbacks, and finally
// returns the source string itself.
func (t *Translator) Translate(context, source, comment string) string {
	text, _ := t.Lookup(context, source, comment)
	return text
}

// Lookup is Translate that also reports whether a translation was found.
func (t *Translator) Lookup(context, source, comment string) (string, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if t.active != "" {
		if text, ok := lookup(t.layers[t.active], context, source, comment); ok {
			return text, true
		}
	}
	for _, fallback := range t.opts.Fallbacks {
		code, ok := t.match(fallback)
		if !ok || code == t.active {
			continue
		}
		if text, ok := lookup(t.layers[code], context, source, comment); ok {
			return text, true
		}
	}

	return source, false
}

// Tr translates a string of the plugin's default context.
func (t *Translator) Tr(source string) string {
	return t.Translate(t.opts.DefaultContext, source, "")
}

func (t *Translator) languages() []string {
	codes := lo.Keys(t.layers)
	sort.Strings(codes)
	return codes
}

// Languages lists the installed language codes.
func (t *Translator) Languages() []string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.languages()
}

// Active returns the active language code, "" when strings resolve to themselves.
func (t *Translator) Active() string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.active
}
