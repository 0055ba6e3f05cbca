/*
Package trans holds the data model shared by every catalog format: a Catalog is a set of named
Contexts, each holding Messages keyed by their source string and optional disambiguating comment.
*/
package trans

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Status mirrors the type attribute of a Qt Linguist translation element.
type Status string

const (
	StatusFinished   Status = ""
	StatusUnfinished Status = "unfinished"
	StatusObsolete   Status = "obsolete"
	StatusVanished   Status = "vanished"
)

func (s Status) String() string {
	if s == StatusFinished {
		return "finished"
	}
	return string(s)
}

// ParseStatus converts a stored or serialized status back to a Status. Unknown values are
// treated as finished.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusUnfinished, StatusObsolete, StatusVanished:
		return Status(s)
	}
	return StatusFinished
}

// Key identifies a message within a catalog.
type Key struct {
	Context string
	Source  string
	Comment string
}

func (k Key) String() string {
	if k.Comment == "" {
		return k.Context + "|" + k.Source
	}
	return k.Context + "|" + k.Source + "|" + k.Comment
}

// Hash is a stable digest of the key, used where the full strings are too long to index.
func (k Key) Hash() string {
	h := sha1.New()
	h.Write([]byte(k.Context))
	h.Write([]byte{0})
	h.Write([]byte(k.Source))
	h.Write([]byte{0})
	h.Write([]byte(k.Comment))
	return hex.EncodeToString(h.Sum(nil))
}

// Location is the file and line a source string was extracted from.
type Location struct {
	Filename string `json:"filename"`
	Line     int    `json:"line,omitempty"`
}

func (l Location) String() string {
	if l.Line == 0 {
		return l.Filename
	}
	return fmt.Sprintf("%s:%d", l.Filename, l.Line)
}

// FormatLocations renders locations one per line.
func FormatLocations(locs []Location) string {
	lines := make([]string, len(locs))
	for i, l := range locs {
		lines[i] = l.String()
	}
	return strings.Join(lines, "\n")
}

// ParseLocations is the inverse of FormatLocations.
func ParseLocations(s string) []Location {
	var locs []Location
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		loc := Location{Filename: line}
		if idx := strings.LastIndex(line, ":"); idx > 0 {
			if n, err := strconv.Atoi(line[idx+1:]); err == nil {
				loc = Location{Filename: line[:idx], Line: n}
			}
		}
		locs = append(locs, loc)
	}
	return locs
}

// Message is a single translation entry.
type Message struct {
	Source            string
	Comment           string
	ExtraComment      string
	TranslatorComment string
	Translation       string
	Numerus           bool
	NumerusForms      []string
	Status            Status
	Locations         []Location
}

// Key returns the lookup key of the message within the named context.
func (m *Message) Key(context string) Key {
	return Key{Context: context, Source: m.Source, Comment: m.Comment}
}

// Active reports whether the message is still present in the UI definitions.
func (m *Message) Active() bool {
	return m.Status != StatusObsolete && m.Status != StatusVanished
}

// Text returns the translation, or the first numerus form for numerus messages.
func (m *Message) Text() string {
	if m.Numerus {
		if len(m.NumerusForms) > 0 {
			return m.NumerusForms[0]
		}
		return ""
	}
	return m.Translation
}

// Translated reports whether the message carries a usable translation. Every numerus form must
// be filled in.
func (m *Message) Translated() bool {
	if m.Numerus {
		if len(m.NumerusForms) == 0 {
			return false
		}
		for _, f := range m.NumerusForms {
			if f == "" {
				return false
			}
		}
		return true
	}
	return m.Translation != ""
}

// Resolvable reports whether a runtime would show the translation instead of the source.
// Unfinished translations count; QTranslator shows them too.
func (m *Message) Resolvable() bool {
	return m.Active() && m.Translated()
}

// Context groups the messages of one dialog or menu.
type Context struct {
	Name     string
	Messages []*Message
}

// Catalog is the content of one translation file.
type Catalog struct {
	Name           string
	Version        string
	Language       string
	SourceLanguage string
	Contexts       []*Context
}

// Context returns the context with the given name, or nil.
func (c *Catalog) Context(name string) *Context {
	for _, ctx := range c.Contexts {
		if ctx.Name == name {
			return ctx
		}
	}
	return nil
}

// AddContext returns the named context, creating it after the existing ones when needed.
func (c *Catalog) AddContext(name string) *Context {
	if ctx := c.Context(name); ctx != nil {
		return ctx
	}
	ctx := &Context{Name: name}
	c.Contexts = append(c.Contexts, ctx)
	return ctx
}

// Add appends a message to the named context.
func (c *Catalog) Add(context string, m *Message) {
	ctx := c.AddContext(context)
	ctx.Messages = append(ctx.Messages, m)
}

// Each calls fn for every message in file order.
func (c *Catalog) Each(fn func(ctx *Context, m *Message)) {
	for _, ctx := range c.Contexts {
		for _, m := range ctx.Messages {
			fn(ctx, m)
		}
	}
}

// Len returns the number of messages in the catalog.
func (c *Catalog) Len() (n int) {
	for _, ctx := range c.Contexts {
		n += len(ctx.Messages)
	}
	return n
}

// Lookup finds the first message matching the key exactly.
func (c *Catalog) Lookup(context, source, comment string) (*Message, bool) {
	ctx := c.Context(context)
	if ctx == nil {
		return nil, false
	}
	for _, m := range ctx.Messages {
		if m.Source == source && m.Comment == comment {
			return m, true
		}
	}
	return nil, false
}

// Translate resolves a source string the way the Qt runtime does: an exact match first, then a
// match ignoring the comment, and finally the source string itself.
func (c *Catalog) Translate(context, source, comment string) string {
	if m, ok := c.Lookup(context, source, comment); ok && m.Resolvable() {
		return m.Text()
	}
	if comment != "" {
		if m, ok := c.Lookup(context, source, ""); ok && m.Resolvable() {
			return m.Text()
		}
	}
	return source
}

// Stats summarizes translation progress.
type Stats struct {
	Contexts     int `json:"contexts"`
	Messages     int `json:"messages"`
	Translated   int `json:"translated"`
	Untranslated int `json:"untranslated"`
	Unfinished   int `json:"unfinished"`
	Obsolete     int `json:"obsolete"`
}

// Completion is the share of active messages with a finished translation.
func (s Stats) Completion() float64 {
	active := s.Messages - s.Obsolete
	if active <= 0 {
		return 1
	}
	return float64(s.Translated) / float64(active)
}

func (c *Catalog) Stats() Stats {
	s := Stats{Contexts: len(c.Contexts)}
	c.Each(func(ctx *Context, m *Message) {
		s.Messages++
		switch {
		case !m.Active():
			s.Obsolete++
		case m.Status == StatusUnfinished:
			s.Unfinished++
		case m.Translated():
			s.Translated++
		default:
			s.Untranslated++
		}
	})
	return s
}
