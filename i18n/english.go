package i18n

import (
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

func addEnglish(i18nObject *i18n.Bundle) error {

	return i18nObject.AddMessages(language.English,
		&i18n.Message{
			ID:    "MigratedDatabase",
			Other: "Successfully migrated the database to version {{.Version}}",
		}, &i18n.Message{
			ID:    "MigrationFailed",
			Other: "Could not complete the database migration, last applied version was {{.Version}}",
		}, &i18n.Message{
			ID:    "ImportFinished",
			One:   "Imported {{.Count}} catalog file in {{.Duration}}",
			Other: "Imported {{.Count}} catalog files in {{.Duration}}",
		}, &i18n.Message{
			ID:    "Listening",
			Other: "Listening on port {{.Port}}",
		}, &i18n.Message{
			ID:    "CheckOK",
			Other: "{{.File}}: OK",
		}, &i18n.Message{
			ID:    "CheckSummary",
			Other: "{{.Errors}} error(s) and {{.Warnings}} warning(s) in {{.Files}} file(s)",
		}, &i18n.Message{
			ID:    "StatsCatalog",
			Other: "Catalog",
		}, &i18n.Message{
			ID:    "StatsLanguage",
			Other: "Language",
		}, &i18n.Message{
			ID:    "StatsTranslated",
			Other: "Translated",
		}, &i18n.Message{
			ID:    "StatsUnfinished",
			Other: "Unfinished",
		}, &i18n.Message{
			ID:    "StatsUntranslated",
			Other: "Untranslated",
		}, &i18n.Message{
			ID:    "StatsObsolete",
			Other: "Obsolete",
		}, &i18n.Message{
			ID:    "StatsCompletion",
			Other: "Done",
		}, &i18n.Message{
			ID:    "NoDifferences",
			Other: "No differences",
		}, &i18n.Message{
			ID:    "WroteFile",
			Other: "Wrote {{.Path}}",
		}, &i18n.Message{
			ID:    "CompileSummary",
			Other: "Generated {{.Total}} translation(s) ({{.Finished}} finished and {{.Unfinished}} unfinished), ignored {{.Untranslated}} untranslated source text(s)",
		}, &i18n.Message{
			ID:    "NotTranslated",
			Other: "(no translation, showing the source string)",
		})
}
