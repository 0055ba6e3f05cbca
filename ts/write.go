package ts

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/e2nIEE/ppqgis-translations/trans"
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

// invalidChar reports characters XML 1.0 documents cannot contain.
func invalidChar(r rune) bool {
	return (r < 0x20 && r != '\t' && r != '\n' && r != '\r') || r == 0xfffe || r == 0xffff
}

// escape escapes element content. Characters XML cannot hold are written as byte elements the
// way lupdate does.
func escape(s string) string {
	s = escaper.Replace(s)
	if strings.IndexFunc(s, invalidChar) < 0 {
		return s
	}

	var sb strings.Builder
	for _, r := range s {
		if invalidChar(r) {
			fmt.Fprintf(&sb, `<byte value="x%x"/>`, r)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// escapeAttr escapes an attribute value, dropping the characters XML cannot hold.
func escapeAttr(s string) string {
	return escaper.Replace(strings.Map(func(r rune) rune {
		if invalidChar(r) {
			return -1
		}
		return r
	}, s))
}

// Encode writes the catalog in the layout lupdate produces, so regenerated files diff cleanly
// against the ones under version control.
func Encode(w io.Writer, c *trans.Catalog) error {
	bw := bufio.NewWriter(w)

	version := c.Version
	if version == "" {
		version = DefaultVersion
	}

	fmt.Fprintln(bw, `<?xml version="1.0" encoding="utf-8"?>`)
	fmt.Fprintln(bw, `<!DOCTYPE TS>`)
	fmt.Fprintf(bw, `<TS version="%s"`, escapeAttr(version))
	if c.Language != "" {
		fmt.Fprintf(bw, ` language="%s"`, escapeAttr(c.Language))
	}
	if c.SourceLanguage != "" {
		fmt.Fprintf(bw, ` sourcelanguage="%s"`, escapeAttr(c.SourceLanguage))
	}
	fmt.Fprintln(bw, ">")

	for _, ctx := range c.Contexts {
		fmt.Fprintln(bw, "<context>")
		fmt.Fprintf(bw, "    <name>%s</name>\n", escape(ctx.Name))
		for _, m := range ctx.Messages {
			writeMessage(bw, m)
		}
		fmt.Fprintln(bw, "</context>")
	}
	fmt.Fprintln(bw, "</TS>")

	return bw.Flush()
}

func writeMessage(w *bufio.Writer, m *trans.Message) {
	if m.Numerus {
		fmt.Fprintln(w, `    <message numerus="yes">`)
	} else {
		fmt.Fprintln(w, "    <message>")
	}
	for _, l := range m.Locations {
		if l.Line > 0 {
			fmt.Fprintf(w, "        <location filename=\"%s\" line=\"%d\"/>\n", escapeAttr(l.Filename), l.Line)
		} else {
			fmt.Fprintf(w, "        <location filename=\"%s\"/>\n", escapeAttr(l.Filename))
		}
	}
	fmt.Fprintf(w, "        <source>%s</source>\n", escape(m.Source))
	if m.Comment != "" {
		fmt.Fprintf(w, "        <comment>%s</comment>\n", escape(m.Comment))
	}
	if m.ExtraComment != "" {
		fmt.Fprintf(w, "        <extracomment>%s</extracomment>\n", escape(m.ExtraComment))
	}
	if m.TranslatorComment != "" {
		fmt.Fprintf(w, "        <translatorcomment>%s</translatorcomment>\n", escape(m.TranslatorComment))
	}

	open := "<translation>"
	if m.Status != trans.StatusFinished {
		open = fmt.Sprintf(`<translation type="%s">`, m.Status)
	}
	if m.Numerus {
		fmt.Fprintf(w, "        %s\n", open)
		for _, f := range m.NumerusForms {
			fmt.Fprintf(w, "            <numerusform>%s</numerusform>\n", escape(f))
		}
		fmt.Fprintln(w, "        </translation>")
	} else {
		fmt.Fprintf(w, "        %s%s</translation>\n", open, escape(m.Translation))
	}
	fmt.Fprintln(w, "    </message>")
}

// WriteFile encodes the catalog to path, replacing any existing file.
func WriteFile(path string, c *trans.Catalog) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Encode(f, c); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
