package trans

import (
	"strings"

	"github.com/go-errors/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type Language struct {
	Id   int64  `db:"id" json:"-"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// NormalizeCode converts Qt style ("de_DE") and BCP 47 style ("de-DE") codes to the lower case,
// dash separated form used as a key everywhere ("de-de").
func NormalizeCode(code string) string {
	return strings.ToLower(strings.Replace(strings.TrimSpace(code), "_", "-", -1))
}

// BaseCode returns the language part of a code, e.g. "de" for "de_DE".
func BaseCode(code string) string {
	code = NormalizeCode(code)
	if idx := strings.Index(code, "-"); idx >= 0 {
		return code[:idx]
	}
	return code
}

// QtCode converts a code to the form Qt uses in TS files and file names: "de-de" becomes "de_DE".
func QtCode(code string) string {
	parts := strings.Split(NormalizeCode(code), "-")
	if len(parts) == 2 && len(parts[1]) == 2 {
		return parts[0] + "_" + strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "_")
}

// ParseTag parses a language code in either Qt or BCP 47 form.
func ParseTag(code string) (language.Tag, error) {
	norm := NormalizeCode(code)
	if norm == "" {
		return language.Und, errors.New("empty language code")
	}
	tag, err := language.Parse(norm)
	if err != nil {
		return language.Und, errors.Errorf("invalid language code '%v': %v", code, err)
	}
	return tag, nil
}

// ParseLanguage returns a Language with a normalized code and an English display name.
func ParseLanguage(code string) (Language, error) {
	tag, err := ParseTag(code)
	if err != nil {
		return Language{}, err
	}
	return Language{Code: NormalizeCode(code), Name: display.English.Tags().Name(tag)}, nil
}
