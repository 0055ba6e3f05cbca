/*
Package po converts catalogs to and from gettext PO files, the format most translation platforms
accept.

Qt contexts and disambiguating comments are carried in msgctxt as "context|comment", announced by
the X-Qt-Contexts header the way lconvert does it.
*/
package po

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/go-errors/errors"
	"github.com/spkg/bom"
)

const (
	maxLineLength = 80
)

type writer struct {
	w   *bufio.Writer
	err error
}

func (w *writer) line(format string, args ...interface{}) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format+"\n", args...)
}

// comment writes one comment line per line of text.
func (w *writer) comment(prefix, text string) {
	for _, l := range strings.Split(text, "\n") {
		w.line("%s%s", prefix, l)
	}
}

// str writes a keyword and its quoted value, splitting long or multi-line values over several
// lines the way msgmerge does.
func (w *writer) str(obsolete bool, keyword, value string) {
	prefix := ""
	if obsolete {
		prefix = "#~ "
	}
	quoted := quote(value)
	body := quoted[1 : len(quoted)-1]
	multiline := len(splitQuoted(body, len(body))) > 1
	if !multiline && len(prefix)+len(keyword)+1+len(quoted) <= maxLineLength {
		w.line("%s%s %s", prefix, keyword, quoted)
		return
	}
	w.line(`%s%s ""`, prefix, keyword)
	for _, l := range splitQuoted(body, maxLineLength-len(prefix)-2) {
		w.line(`%s"%s"`, prefix, l)
	}
}

var poEscaper = strings.NewReplacer(
	`\\`, `\\\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\t", `\t`,
	"\r", `\r`,
)

// quote writes s as a PO string. Only the C escapes gettext tools expect are used, every other
// character is written as is.
func quote(s string) string {
	return `"` + poEscaper.Replace(s) + `"`
}

// unquote reads a PO string, including the octal and hexadecimal escapes of C.
func unquote(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", errors.Errorf("invalid string %v", s)
	}
	s = s[1 : len(s)-1]
	if !strings.ContainsAny(s, `\"`) {
		return s, nil
	}

	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' {
			return "", errors.Errorf("unescaped quote in %q", s)
		}
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i == len(s) {
			return "", errors.Errorf("string ends in a backslash: %q", s)
		}
		switch c = s[i]; c {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '\\', '"', '\'', '?':
			sb.WriteByte(c)
		case 'x':
			j := i + 1
			for j < len(s) && j < i+3 && isHex(s[j]) {
				j++
			}
			if j == i+1 {
				return "", errors.Errorf("invalid escape \\x in %q", s)
			}
			n, _ := strconv.ParseUint(s[i+1:j], 16, 8)
			sb.WriteByte(byte(n))
			i = j - 1
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(s[i:j], 8, 16)
			sb.WriteByte(byte(n))
			i = j - 1
		default:
			return "", errors.Errorf("invalid escape \\%c in %q", c, s)
		}
	}
	return sb.String(), nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// splitQuoted breaks an escaped string after each \n escape and at spaces so that no line exceeds
// width when possible. Escape sequences are never split.
func splitQuoted(body string, width int) (lines []string) {
	var tokens []string
	start := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			if i+1 < len(body) && body[i+1] == 'n' {
				tokens = append(tokens, body[start:i+2])
				start = i + 2
			}
			i++
		case ' ':
			tokens = append(tokens, body[start:i+1])
			start = i + 1
		}
	}
	if start < len(body) {
		tokens = append(tokens, body[start:])
	}

	cur := ""
	for _, t := range tokens {
		if cur != "" && len(cur)+len(t) > width {
			lines = append(lines, cur)
			cur = ""
		}
		cur += t
		if strings.HasSuffix(t, `\n`) {
			lines = append(lines, cur)
			cur = ""
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

func msgctxt(context, comment string) string {
	if comment == "" {
		return context
	}
	return context + "|" + comment
}

func header(c *trans.Catalog) string {
	var b strings.Builder
	if c.Name != "" {
		fmt.Fprintf(&b, "Project-Id-Version: %s\n", c.Name)
	}
	fmt.Fprintf(&b, "Language: %s\n", c.Language)
	b.WriteString("MIME-Version: 1.0\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\n")
	b.WriteString("X-Qt-Contexts: true\n")
	if c.SourceLanguage != "" {
		fmt.Fprintf(&b, "X-Source-Language: %s\n", c.SourceLanguage)
	}
	return b.String()
}

// Write encodes the catalog as a PO file. Unfinished messages are marked fuzzy, obsolete and
// vanished ones are written commented out with #~.
func Write(out io.Writer, c *trans.Catalog) error {
	w := &writer{w: bufio.NewWriter(out)}

	w.str(false, "msgid", "")
	w.str(false, "msgstr", header(c))

	c.Each(func(ctx *trans.Context, m *trans.Message) {
		obsolete := !m.Active()

		w.line("")
		if m.TranslatorComment != "" {
			w.comment("# ", m.TranslatorComment)
		}
		if m.ExtraComment != "" {
			w.comment("#. ", m.ExtraComment)
		}
		if len(m.Locations) > 0 {
			refs := make([]string, len(m.Locations))
			for i, l := range m.Locations {
				refs[i] = l.String()
			}
			w.line("#: %s", strings.Join(refs, " "))
		}
		if m.Status == trans.StatusUnfinished {
			w.line("#, fuzzy")
		}

		w.str(obsolete, "msgctxt", msgctxt(ctx.Name, m.Comment))
		w.str(obsolete, "msgid", m.Source)
		if m.Numerus {
			w.str(obsolete, "msgid_plural", m.Source)
			forms := m.NumerusForms
			if len(forms) == 0 {
				forms = []string{""}
			}
			for i, f := range forms {
				w.str(obsolete, fmt.Sprintf("msgstr[%d]", i), f)
			}
		} else {
			w.str(obsolete, "msgstr", m.Translation)
		}
	})

	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

type entry struct {
	translatorComment []string
	extraComment      []string
	refs              []string
	fuzzy             bool
	obsolete          bool

	hasContext bool
	context    string
	id         *string
	idPlural   *string
	strs       []string

	// the field continuation lines append to
	last *string
}

func (e *entry) empty() bool {
	return e.id == nil && !e.hasContext
}

func (e *entry) message() (string, *trans.Message) {
	context, comment := e.context, ""
	if idx := strings.Index(context, "|"); idx >= 0 {
		context, comment = e.context[:idx], e.context[idx+1:]
	}

	m := &trans.Message{
		Source:            *e.id,
		Comment:           comment,
		ExtraComment:      strings.Join(e.extraComment, "\n"),
		TranslatorComment: strings.Join(e.translatorComment, "\n"),
		Locations:         trans.ParseLocations(strings.Join(e.refs, "\n")),
	}
	switch {
	case e.obsolete:
		m.Status = trans.StatusObsolete
	case e.fuzzy:
		m.Status = trans.StatusUnfinished
	}
	if e.idPlural != nil {
		m.Numerus = true
		m.NumerusForms = e.strs
		if len(m.NumerusForms) == 1 && m.NumerusForms[0] == "" {
			m.NumerusForms = nil
		}
	} else if len(e.strs) > 0 {
		m.Translation = e.strs[0]
	}
	return context, m
}

// Parse decodes a PO file. The header entry provides the catalog languages.
func Parse(r io.Reader) (*trans.Catalog, error) {
	c := &trans.Catalog{}
	e := &entry{}
	headerSeen := false

	finish := func() {
		if e.empty() {
			e = &entry{}
			return
		}
		if !headerSeen && !e.hasContext && *e.id == "" {
			headerSeen = true
			if len(e.strs) > 0 {
				parseHeader(c, e.strs[0])
			}
		} else {
			ctx, m := e.message()
			c.Add(ctx, m)
		}
		e = &entry{}
	}

	scanner := bufio.NewScanner(bom.NewReader(r))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			finish()
			continue
		}

		obsolete := false
		if strings.HasPrefix(line, "#~") {
			obsolete = true
			line = strings.TrimSpace(line[2:])
		} else if strings.HasPrefix(line, "#") {
			if e.id != nil {
				finish()
			}
			switch {
			case strings.HasPrefix(line, "#:"):
				e.refs = append(e.refs, strings.Fields(line[2:])...)
			case strings.HasPrefix(line, "#."):
				e.extraComment = append(e.extraComment, strings.TrimPrefix(line[2:], " "))
			case strings.HasPrefix(line, "#,"):
				for _, flag := range strings.Split(line[2:], ",") {
					if strings.TrimSpace(flag) == "fuzzy" {
						e.fuzzy = true
					}
				}
			case strings.HasPrefix(line, "#|"):
			default:
				e.translatorComment = append(e.translatorComment, strings.TrimPrefix(line[1:], " "))
			}
			continue
		}

		if strings.HasPrefix(line, `"`) {
			if e.last == nil {
				return nil, errors.Errorf("line %d: string without a keyword", lineNo)
			}
			s, err := unquote(line)
			if err != nil {
				return nil, errors.Errorf("line %d: %v", lineNo, err)
			}
			*e.last += s
			continue
		}

		keyword, rest := line, ""
		if idx := strings.IndexAny(line, " \t"); idx > 0 {
			keyword, rest = line[:idx], strings.TrimSpace(line[idx:])
		}
		value, err := unquote(rest)
		if err != nil {
			return nil, errors.Errorf("line %d: invalid string %v", lineNo, rest)
		}

		if (keyword == "msgctxt" || keyword == "msgid") && e.id != nil {
			finish()
		}
		e.obsolete = e.obsolete || obsolete

		switch {
		case keyword == "msgctxt":
			e.hasContext = true
			e.context = value
			e.last = &e.context
		case keyword == "msgid":
			e.id = &value
			e.last = e.id
		case keyword == "msgid_plural":
			e.idPlural = &value
			e.last = e.idPlural
		case keyword == "msgstr":
			e.strs = append(e.strs[:0], value)
			e.last = &e.strs[0]
		case strings.HasPrefix(keyword, "msgstr["):
			n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(keyword, "msgstr["), "]"))
			if err != nil || n != len(e.strs) {
				return nil, errors.Errorf("line %d: unexpected %v", lineNo, keyword)
			}
			e.strs = append(e.strs, value)
			e.last = &e.strs[n]
		default:
			return nil, errors.Errorf("line %d: unknown keyword %v", lineNo, keyword)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	finish()

	return c, nil
}

func parseHeader(c *trans.Catalog, meta string) {
	for _, line := range strings.Split(meta, "\n") {
		colon := strings.Index(line, ":")
		if colon <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		switch key {
		case "Language":
			c.Language = value
		case "X-Source-Language":
			c.SourceLanguage = value
		case "Project-Id-Version":
			c.Name = value
		}
	}
}
