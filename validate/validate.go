/*
Package validate runs the data-validation checks a translation pipeline applies to catalogs before
they are compiled or committed: every message has a source string, every (context, source,
comment) key is unique, and the file is well-formed XML of a known TS version.

Untranslated messages are not reported; they resolve to the source string at runtime.
*/
package validate

import (
	"fmt"
	"os"

	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/e2nIEE/ppqgis-translations/ts"
	"github.com/samber/lo"
)

type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Issue codes.
const (
	CodeMalformed        = "malformed"
	CodeUnknownVersion   = "unknown-version"
	CodeMissingLanguage  = "missing-language"
	CodeFilenameLanguage = "filename-language"
	CodeEmptySource      = "empty-source"
	CodeDuplicateKey     = "duplicate-key"
	CodeEmptyContextName = "empty-context-name"
	CodeNumerusMismatch  = "numerus-mismatch"
)

type Issue struct {
	Severity Severity       `json:"severity"`
	Code     string         `json:"code"`
	Context  string         `json:"context,omitempty"`
	Source   string         `json:"source,omitempty"`
	Location trans.Location `json:"location"`
	Message  string         `json:"message"`
}

func (i Issue) String() string {
	where := i.Location.String()
	if where == "" {
		where = i.Context
	}
	if where == "" {
		return fmt.Sprintf("%v [%v] %v", i.Severity, i.Code, i.Message)
	}
	return fmt.Sprintf("%v: %v [%v] %v", where, i.Severity, i.Code, i.Message)
}

// Report collects the issues found in one catalog.
type Report struct {
	File   string  `json:"file,omitempty"`
	Issues []Issue `json:"issues"`
}

func (r Report) HasErrors() bool {
	return lo.SomeBy(r.Issues, func(i Issue) bool { return i.Severity == SeverityError })
}

func (r Report) Errors() []Issue {
	return lo.Filter(r.Issues, func(i Issue, _ int) bool { return i.Severity == SeverityError })
}

func (r Report) Warnings() []Issue {
	return lo.Filter(r.Issues, func(i Issue, _ int) bool { return i.Severity == SeverityWarning })
}

func (r *Report) add(sev Severity, code string, ctx string, m *trans.Message, format string, args ...interface{}) {
	issue := Issue{Severity: sev, Code: code, Context: ctx, Message: fmt.Sprintf(format, args...)}
	if m != nil {
		issue.Source = m.Source
		if len(m.Locations) > 0 {
			issue.Location = m.Locations[0]
		}
	}
	r.Issues = append(r.Issues, issue)
}

// Check validates a parsed catalog.
func Check(c *trans.Catalog) Report {
	var r Report

	switch {
	case c.Version == "":
		r.add(SeverityError, CodeUnknownVersion, "", nil, "no TS version declared")
	case !lo.Contains(ts.KnownVersions, c.Version):
		r.add(SeverityError, CodeUnknownVersion, "", nil, "unknown TS version '%v' (known: %v)", c.Version, ts.KnownVersions)
	}
	if c.Language == "" {
		r.add(SeverityWarning, CodeMissingLanguage, "", nil, "no target language declared")
	}

	seen := make(map[trans.Key]*trans.Message)
	for _, ctx := range c.Contexts {
		if ctx.Name == "" {
			r.add(SeverityWarning, CodeEmptyContextName, "", nil, "context without a name")
		}
		for _, m := range ctx.Messages {
			if m.Source == "" {
				r.add(SeverityError, CodeEmptySource, ctx.Name, m, "message in context '%v' has an empty source string", ctx.Name)
				continue
			}

			key := m.Key(ctx.Name)
			if first, ok := seen[key]; ok {
				r.add(SeverityError, CodeDuplicateKey, ctx.Name, m, "duplicate message %q in context '%v' (first defined at %v)",
					m.Source, ctx.Name, trans.FormatLocations(first.Locations))
			} else {
				seen[key] = m
			}

			switch {
			case m.Numerus && len(m.NumerusForms) == 0 && m.Status == trans.StatusFinished:
				r.add(SeverityWarning, CodeNumerusMismatch, ctx.Name, m, "numerus message %q has no numerus forms", m.Source)
			case !m.Numerus && len(m.NumerusForms) > 0:
				r.add(SeverityWarning, CodeNumerusMismatch, ctx.Name, m, "message %q has numerus forms but is not marked numerus", m.Source)
			}
		}
	}

	return r
}

// CheckFile parses and validates the TS file at path. Parse failures are reported as issues.
func CheckFile(path string) Report {
	r := Report{File: path}

	f, err := os.Open(path)
	if err != nil {
		r.add(SeverityError, CodeMalformed, "", nil, "%v", err)
		return r
	}
	defer f.Close()

	c, err := ts.Parse(f)
	if err != nil {
		r.add(SeverityError, CodeMalformed, "", nil, "not a well-formed TS document: %v", err)
		return r
	}

	if _, err := ts.CatalogName(path, c.Language); err != nil {
		r.add(SeverityError, CodeFilenameLanguage, "", nil, "%v", err)
	}

	checked := Check(c)
	r.Issues = append(r.Issues, checked.Issues...)

	return r
}
