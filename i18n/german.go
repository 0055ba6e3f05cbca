package i18n

import (
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

func addGerman(i18nObject *i18n.Bundle) error {

	return i18nObject.AddMessages(language.German,
		&i18n.Message{
			ID:    "MigratedDatabase",
			Other: "Datenbank erfolgreich auf Version {{.Version}} migriert",
		}, &i18n.Message{
			ID:    "MigrationFailed",
			Other: "Die Datenbankmigration ist fehlgeschlagen, zuletzt angewendete Version: {{.Version}}",
		}, &i18n.Message{
			ID:    "ImportFinished",
			One:   "{{.Count}} Katalogdatei in {{.Duration}} importiert",
			Other: "{{.Count}} Katalogdateien in {{.Duration}} importiert",
		}, &i18n.Message{
			ID:    "Listening",
			Other: "Lausche auf Port {{.Port}}",
		}, &i18n.Message{
			ID:    "CheckOK",
			Other: "{{.File}}: OK",
		}, &i18n.Message{
			ID:    "CheckSummary",
			Other: "{{.Errors}} Fehler und {{.Warnings}} Warnung(en) in {{.Files}} Datei(en)",
		}, &i18n.Message{
			ID:    "StatsCatalog",
			Other: "Katalog",
		}, &i18n.Message{
			ID:    "StatsLanguage",
			Other: "Sprache",
		}, &i18n.Message{
			ID:    "StatsTranslated",
			Other: "Übersetzt",
		}, &i18n.Message{
			ID:    "StatsUnfinished",
			Other: "Unfertig",
		}, &i18n.Message{
			ID:    "StatsUntranslated",
			Other: "Unübersetzt",
		}, &i18n.Message{
			ID:    "StatsObsolete",
			Other: "Veraltet",
		}, &i18n.Message{
			ID:    "StatsCompletion",
			Other: "Fertig",
		}, &i18n.Message{
			ID:    "NoDifferences",
			Other: "Keine Unterschiede",
		}, &i18n.Message{
			ID:    "WroteFile",
			Other: "{{.Path}} geschrieben",
		}, &i18n.Message{
			ID:    "CompileSummary",
			Other: "{{.Total}} Übersetzung(en) erzeugt ({{.Finished}} fertig, {{.Unfinished}} unfertig), {{.Untranslated}} unübersetzte Quelltext(e) ignoriert",
		}, &i18n.Message{
			ID:    "NotTranslated",
			Other: "(keine Übersetzung, der Quelltext wird angezeigt)",
		})
}
