package xliff

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/go-errors/errors"
	"github.com/spkg/bom"
)

const (
	Version   = "1.2"
	Namespace = "urn:oasis:names:tc:xliff:document:1.2"

	// restype of the groups holding the messages of one Qt context
	ContextRestype = "x-trolltech-linguist-context"
	// restype of the groups holding the forms of one numerus message
	PluralRestype = "x-gettext-plurals"
)

// Note authors used to carry the three kinds of message comments.
const (
	noteComment           = "disambiguation"
	noteExtraComment      = "developer"
	noteTranslatorComment = "translator"
)

// Target states for messages that are not finished.
const (
	stateUnfinished = "needs-translation"
	stateObsolete   = "x-obsolete"
	stateVanished   = "x-vanished"
)

type Xliff struct {
	XMLName xml.Name  `xml:"xliff"`
	Xmlns   string    `xml:"xmlns,attr,omitempty"`
	Version string    `xml:"version,attr"`
	File    XliffFile `xml:"file"`
}

type XliffFile struct {
	XliffDomain
	Date     string       `xml:"date,attr,omitempty"`
	DataType string       `xml:"datatype,attr"`
	Original string       `xml:"original,attr"`
	Header   XliffHeader  `xml:"header"`
	Groups   []XliffGroup `xml:"body>group"`
}

type XliffHeader struct {
	Tool XliffTool `xml:"tool"`
	Note string    `xml:"note,omitempty"`
}

type XliffTool struct {
	Id      string `xml:"tool-id,attr"`
	Name    string `xml:"tool-name,attr"`
	Version string `xml:"tool-version,attr,omitempty"`
}

type XliffDomain struct {
	name       string
	SourceLang string `xml:"source-language,attr"`
	TargetLang string `xml:"target-language,attr,omitempty"`
}

func (xd XliffDomain) Name() string {
	return xd.name
}
func (xd *XliffDomain) SetName(name string) {
	xd.name = name
}
func (xd XliffDomain) Language() string {
	return xd.TargetLang
}

// XliffGroup is either a Qt context (ContextRestype) or, nested inside one, the forms of a numerus
// message (PluralRestype).
type XliffGroup struct {
	Id      string       `xml:"id,attr,omitempty"`
	Restype string       `xml:"restype,attr"`
	Resname string       `xml:"resname,attr,omitempty"`
	Units   []XliffUnit  `xml:"trans-unit"`
	Groups  []XliffGroup `xml:"group"`
	Notes   []XliffNote  `xml:"note"`
}

type XliffUnit struct {
	Id            string              `xml:"id,attr"`
	Source        string              `xml:"source"`
	Target        XliffTarget         `xml:"target"`
	Notes         []XliffNote         `xml:"note"`
	ContextGroups []XliffContextGroup `xml:"context-group"`
}

type XliffTarget struct {
	State string `xml:"state,attr,omitempty"`
	Text  string `xml:",chardata"`
}

type XliffNote struct {
	From string `xml:"from,attr,omitempty"`
	Text string `xml:",chardata"`
}

type XliffContextGroup struct {
	Purpose  string         `xml:"purpose,attr"`
	Contexts []XliffContext `xml:"context"`
}

type XliffContext struct {
	Type string `xml:"context-type,attr"`
	Text string `xml:",chardata"`
}

// Tool identifies this program in the header of written files.
var Tool = XliffTool{Id: "ppqgis-translations", Name: "ppqgis-translations"}

func state(s trans.Status) string {
	switch s {
	case trans.StatusUnfinished:
		return stateUnfinished
	case trans.StatusObsolete:
		return stateObsolete
	case trans.StatusVanished:
		return stateVanished
	}
	return ""
}

func status(state string) trans.Status {
	switch state {
	case stateUnfinished, "new", "needs-l10n", "needs-adaptation", "needs-review-translation":
		return trans.StatusUnfinished
	case stateObsolete:
		return trans.StatusObsolete
	case stateVanished:
		return trans.StatusVanished
	}
	return trans.StatusFinished
}

func notes(m *trans.Message) (ns []XliffNote) {
	if m.Comment != "" {
		ns = append(ns, XliffNote{From: noteComment, Text: m.Comment})
	}
	if m.ExtraComment != "" {
		ns = append(ns, XliffNote{From: noteExtraComment, Text: m.ExtraComment})
	}
	if m.TranslatorComment != "" {
		ns = append(ns, XliffNote{From: noteTranslatorComment, Text: m.TranslatorComment})
	}
	return ns
}

func applyNotes(m *trans.Message, ns []XliffNote) {
	for _, n := range ns {
		switch n.From {
		case noteComment:
			m.Comment = n.Text
		case noteTranslatorComment:
			m.TranslatorComment = n.Text
		default:
			m.ExtraComment = n.Text
		}
	}
}

func locationGroups(locs []trans.Location) (groups []XliffContextGroup) {
	for _, l := range locs {
		g := XliffContextGroup{Purpose: "location", Contexts: []XliffContext{{Type: "sourcefile", Text: l.Filename}}}
		if l.Line > 0 {
			g.Contexts = append(g.Contexts, XliffContext{Type: "linenumber", Text: strconv.Itoa(l.Line)})
		}
		groups = append(groups, g)
	}
	return groups
}

func locations(groups []XliffContextGroup) (locs []trans.Location) {
	for _, g := range groups {
		if g.Purpose != "location" {
			continue
		}
		var l trans.Location
		for _, c := range g.Contexts {
			switch c.Type {
			case "sourcefile":
				l.Filename = c.Text
			case "linenumber":
				l.Line, _ = strconv.Atoi(c.Text)
			}
		}
		locs = append(locs, l)
	}
	return locs
}

// Creates a new Xliff document holding the given catalog
func FromCatalog(c *trans.Catalog) *Xliff {
	x := &Xliff{
		Xmlns:   Namespace,
		Version: Version,
		File: XliffFile{
			XliffDomain: XliffDomain{name: c.Name, SourceLang: c.SourceLanguage, TargetLang: c.Language},
			DataType:    "plaintext",
			Original:    c.Name,
			Header:      XliffHeader{Tool: Tool},
		},
	}
	if x.File.SourceLang == "" {
		x.File.SourceLang = "en"
	}

	id := 0
	for _, ctx := range c.Contexts {
		g := XliffGroup{Restype: ContextRestype, Resname: ctx.Name}
		for _, m := range ctx.Messages {
			id++
			if !m.Numerus {
				g.Units = append(g.Units, XliffUnit{
					Id:            fmt.Sprintf("_msg%d", id),
					Source:        m.Source,
					Target:        XliffTarget{State: state(m.Status), Text: m.Translation},
					Notes:         notes(m),
					ContextGroups: locationGroups(m.Locations),
				})
				continue
			}

			plural := XliffGroup{Id: fmt.Sprintf("_msg%d", id), Restype: PluralRestype, Notes: notes(m)}
			forms := m.NumerusForms
			if len(forms) == 0 {
				forms = []string{""}
			}
			for i, f := range forms {
				u := XliffUnit{
					Id:     fmt.Sprintf("_msg%d[%d]", id, i),
					Source: m.Source,
					Target: XliffTarget{State: state(m.Status), Text: f},
				}
				if i == 0 {
					u.ContextGroups = locationGroups(m.Locations)
				}
				plural.Units = append(plural.Units, u)
			}
			g.Groups = append(g.Groups, plural)
		}
		x.File.Groups = append(x.File.Groups, g)
	}

	return x
}

// Catalog converts the document back to a catalog. Numerus messages follow the plain messages of
// their context.
func (x *Xliff) Catalog() *trans.Catalog {
	c := &trans.Catalog{
		Name:           x.File.Name(),
		Language:       x.File.TargetLang,
		SourceLanguage: x.File.SourceLang,
	}
	if c.Name == "" {
		c.Name = x.File.Original
	}

	for _, g := range x.File.Groups {
		ctx := c.AddContext(g.Resname)
		for _, u := range g.Units {
			m := &trans.Message{
				Source:      u.Source,
				Translation: u.Target.Text,
				Status:      status(u.Target.State),
				Locations:   locations(u.ContextGroups),
			}
			applyNotes(m, u.Notes)
			ctx.Messages = append(ctx.Messages, m)
		}
		for _, plural := range g.Groups {
			if plural.Restype != PluralRestype || len(plural.Units) == 0 {
				continue
			}
			first := plural.Units[0]
			m := &trans.Message{
				Source:    first.Source,
				Numerus:   true,
				Status:    status(first.Target.State),
				Locations: locations(first.ContextGroups),
			}
			for _, u := range plural.Units {
				m.NumerusForms = append(m.NumerusForms, u.Target.Text)
			}
			if len(m.NumerusForms) == 1 && m.NumerusForms[0] == "" {
				m.NumerusForms = nil
			}
			applyNotes(m, plural.Notes)
			ctx.Messages = append(ctx.Messages, m)
		}
	}

	return c
}

// Encode writes the document as indented XML.
func (x *Xliff) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	// a decoded document carries the namespace in XMLName, which would duplicate the attribute
	out := *x
	out.XMLName = xml.Name{}
	out.Xmlns = Namespace

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Decode reads an XLIFF document. The returned document has no name.
func Decode(r io.Reader) (*Xliff, error) {
	x := &Xliff{}
	if err := xml.NewDecoder(bom.NewReader(r)).Decode(x); err != nil {
		return nil, err
	}
	return x, nil
}

// FileName is the name an exported catalog gets: <name>.<lang>.xliff
func FileName(name, lang string) string {
	return fmt.Sprintf("%v.%v.xliff", name, lang)
}

func infoFromFilename(filename string) (name string, expectLang string, err error) {
	parts := strings.Split(filename, ".")
	if len(parts) != 3 {
		return "", "", errors.Errorf("Domain name or language missing from filename '%v'", filename)
	}

	return parts[0], parts[1], nil
}

// Creates a new Xliff from the file at the given path
func NewFromFile(file string) (xliff *Xliff, err error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	xliff, err = Decode(f)
	if err != nil {
		return nil, errors.Errorf("%v: %v", file, err)
	}

	if name, expectLang, err := infoFromFilename(filepath.Base(file)); err != nil {
		return nil, err
	} else {
		if trans.NormalizeCode(xliff.File.XliffDomain.Language()) != trans.NormalizeCode(expectLang) {
			return nil, errors.Errorf(
				"Found language %v but expected %v based on filename '%v' ",
				xliff.File.XliffDomain.Language(),
				expectLang,
				file)
		}

		xliff.File.XliffDomain.SetName(name)

		return xliff, nil
	}
}
