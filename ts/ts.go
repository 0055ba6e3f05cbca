/*
Package ts reads and writes Qt Linguist translation source (TS) files.

A TS file holds one catalog: a TS root element naming the format version, the target language
and the source language, followed by context blocks of messages.
*/
package ts

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/go-errors/errors"
	"github.com/spkg/bom"
)

// DefaultVersion is written when a catalog does not carry a version of its own.
const DefaultVersion = "2.1"

// KnownVersions lists the TS schema versions lupdate has produced.
var KnownVersions = []string{"1.1", "2.0", "2.1"}

type tsFile struct {
	XMLName        xml.Name    `xml:"TS"`
	Version        string      `xml:"version,attr"`
	Language       string      `xml:"language,attr"`
	SourceLanguage string      `xml:"sourcelanguage,attr"`
	Contexts       []tsContext `xml:"context"`
}

type tsContext struct {
	Name     tsText      `xml:"name"`
	Messages []tsMessage `xml:"message"`
}

type tsMessage struct {
	Numerus           string        `xml:"numerus,attr"`
	Locations         []tsLocation  `xml:"location"`
	Source            tsText        `xml:"source"`
	Comment           tsText        `xml:"comment"`
	ExtraComment      tsText        `xml:"extracomment"`
	TranslatorComment tsText        `xml:"translatorcomment"`
	Translation       tsTranslation `xml:"translation"`
}

type tsLocation struct {
	Filename *string `xml:"filename,attr"`
	Line     string  `xml:"line,attr"`
}

type tsTranslation struct {
	Type  string
	Text  string
	Forms []string
}

func (t *tsTranslation) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		if a.Name.Local == "type" {
			t.Type = a.Value
		}
	}

	text, err := readText(d, func(el xml.StartElement) error {
		if el.Name.Local != "numerusform" {
			return d.Skip()
		}
		var form tsText
		if err := d.DecodeElement(&form, &el); err != nil {
			return err
		}
		t.Forms = append(t.Forms, string(form))
		return nil
	})
	t.Text = text
	return err
}

// tsText is element content that may hold <byte value="x7"/> elements for characters XML
// cannot carry.
type tsText string

func (t *tsText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	text, err := readText(d, nil)
	*t = tsText(text)
	return err
}

// readText collects the character data up to the end of the current element, decoding byte
// elements on the way. Other child elements are handed to child, or skipped when it is nil.
func readText(d *xml.Decoder, child func(xml.StartElement) error) (string, error) {
	var sb strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.CharData:
			sb.Write(el)
		case xml.StartElement:
			if el.Name.Local == "byte" {
				var r rune
				if r, err = byteValue(el); err != nil {
					return "", err
				}
				sb.WriteRune(r)
				err = d.Skip()
			} else if child != nil {
				err = child(el)
			} else {
				err = d.Skip()
			}
			if err != nil {
				return "", err
			}
		case xml.EndElement:
			return sb.String(), nil
		}
	}
}

// byteValue reads the character of a byte element: hexadecimal with an x prefix, decimal
// otherwise.
func byteValue(el xml.StartElement) (rune, error) {
	for _, a := range el.Attr {
		if a.Name.Local != "value" {
			continue
		}
		v, base := a.Value, 10
		if rest, ok := strings.CutPrefix(v, "x"); ok {
			v, base = rest, 16
		}
		n, err := strconv.ParseUint(v, base, 32)
		if err != nil {
			return 0, errors.Errorf("invalid byte value %q", a.Value)
		}
		return rune(n), nil
	}
	return 0, errors.New("byte element without a value")
}

// Parse decodes a TS document. The returned catalog has no name; see NewFromFile.
func Parse(r io.Reader) (*trans.Catalog, error) {
	var doc tsFile
	dec := xml.NewDecoder(bom.NewReader(r))
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if err := checkTrailer(dec); err != nil {
		return nil, err
	}

	c := &trans.Catalog{
		Version:        doc.Version,
		Language:       doc.Language,
		SourceLanguage: doc.SourceLanguage,
	}
	locs := newLocationResolver()
	for _, tc := range doc.Contexts {
		ctx := c.AddContext(string(tc.Name))
		for _, tm := range tc.Messages {
			m := &trans.Message{
				Source:            string(tm.Source),
				Comment:           string(tm.Comment),
				ExtraComment:      string(tm.ExtraComment),
				TranslatorComment: string(tm.TranslatorComment),
				Numerus:           tm.Numerus == "yes",
				Status:            trans.ParseStatus(tm.Translation.Type),
			}
			if m.Numerus {
				m.NumerusForms = tm.Translation.Forms
			} else {
				m.Translation = tm.Translation.Text
			}
			for _, l := range tm.Locations {
				m.Locations = append(m.Locations, locs.resolve(l))
			}
			ctx.Messages = append(ctx.Messages, m)
		}
	}

	return c, nil
}

// checkTrailer reads the rest of the document after the root element. Only whitespace, comments
// and processing instructions may follow it.
func checkTrailer(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			return errors.Errorf("unexpected element <%v> after the TS element", el.Name.Local)
		case xml.CharData:
			if len(bytes.TrimSpace(el)) > 0 {
				return errors.Errorf("unexpected text %q after the TS element", bytes.TrimSpace(el))
			}
		}
	}
}

// ParseFile decodes the TS file at path, naming the catalog after the file.
func ParseFile(path string) (*trans.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, errors.Errorf("%v: %v", path, err)
	}
	c.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	return c, nil
}

// Creates a new catalog from the file at the given path. The catalog name is derived from the
// file name, and the language suffix of the file name must agree with the language declared in
// the file.
func NewFromFile(path string) (*trans.Catalog, error) {
	c, err := ParseFile(path)
	if err != nil {
		return nil, err
	}

	name, err := CatalogName(path, c.Language)
	if err != nil {
		return nil, err
	}
	c.Name = name

	return c, nil
}

// CatalogName strips the language suffix from a file name such as pandapower_qgis_de.ts. A file
// name without a language suffix is used as is; a suffix naming another language is an error.
func CatalogName(path, lang string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if lang == "" {
		return base, nil
	}

	want := trans.BaseCode(lang)
	segs := strings.Split(base, "_")
	n := len(segs)
	switch {
	case n >= 3 && strings.EqualFold(segs[n-2], want) && len(segs[n-1]) == 2:
		// name_de_DE
		return strings.Join(segs[:n-2], "_"), nil
	case n >= 2 && strings.EqualFold(segs[n-1], want):
		// name_de
		return strings.Join(segs[:n-1], "_"), nil
	case n >= 2 && len(segs[n-1]) == 2:
		if _, err := trans.ParseTag(segs[n-1]); err == nil {
			return "", errors.Errorf("Found language %v but expected %v based on filename '%v'", lang, segs[n-1], path)
		}
	}

	return base, nil
}

// locationResolver expands the relative line numbers (+n/-n) and omitted file names written by
// lupdate's relative location mode.
type locationResolver struct {
	lastFile string
	lastLine map[string]int
}

func newLocationResolver() *locationResolver {
	return &locationResolver{lastLine: make(map[string]int)}
}

func (r *locationResolver) resolve(l tsLocation) trans.Location {
	file := r.lastFile
	if l.Filename != nil {
		file = *l.Filename
	}
	r.lastFile = file

	line := 0
	if l.Line != "" {
		n, err := strconv.Atoi(l.Line)
		if err == nil {
			if l.Line[0] == '+' || l.Line[0] == '-' {
				n += r.lastLine[file]
			}
			line = n
		}
	}
	r.lastLine[file] = line

	return trans.Location{Filename: file, Line: line}
}
