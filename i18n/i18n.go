package i18n

import (
	"github.com/cloudfoundry/jibber_jabber"
	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

// Localizer will translate a message into the user's language
type Localizer struct {
	Log      *logrus.Entry
	Language string

	localizer *i18n.Localizer
}

// ISO 639-1 supported language codes.
const (
	// English
	EN = "en"
	// German
	DE = "de"
)

// getSupportedLanguages returns all the supported languages.
func getSupportedLanguages() []string {
	return []string{EN, DE}
}

// detectLanguage extracts user language from environment
func detectLanguage(langDetector func() (string, error)) string {
	if userLang, err := langDetector(); err == nil {
		return userLang
	}

	return EN
}

func newBundle() *i18n.Bundle {
	bundle := i18n.NewBundle(language.English)
	// the message tables are static, a failure here is a programming error
	if err := addEnglish(bundle); err != nil {
		panic(err)
	}
	if err := addGerman(bundle); err != nil {
		panic(err)
	}
	return bundle
}

// NewLocalizer returns a localizer for the configured language, "auto" meaning the system
// language. Unsupported languages fall back to English.
func NewLocalizer(log *logrus.Entry, configLanguage string) *Localizer {
	lang := configLanguage
	if lang == "" || lang == "auto" {
		lang = detectLanguage(jibber_jabber.DetectLanguage)
	}
	lang = trans.BaseCode(lang)
	if !lo.Contains(getSupportedLanguages(), lang) {
		log.WithField("language", lang).Debug("no tool messages for language, using English")
		lang = EN
	}

	return &Localizer{
		Log:       log,
		Language:  lang,
		localizer: i18n.NewLocalizer(newBundle(), lang),
	}
}

// T translates the message with the given id, filling in its template fields from data. Unknown
// ids are returned unchanged.
func (l *Localizer) T(id string, data ...map[string]interface{}) string {
	config := &i18n.LocalizeConfig{MessageID: id}
	if len(data) > 0 {
		config.TemplateData = data[0]
		if count, ok := data[0]["Count"]; ok {
			config.PluralCount = count
		}
	}

	msg, err := l.localizer.Localize(config)
	if err != nil {
		l.Log.WithError(err).WithField("id", id).Warn("missing tool message")
		return id
	}
	return msg
}
