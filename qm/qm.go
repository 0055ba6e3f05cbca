/*
Package qm compiles catalogs to the binary .qm format loaded by QTranslator, and reads such files
back.

The layout is the subset lrelease writes for plain catalogs: the magic number, a language
section, a sorted hash table pointing into the message section, and the message records
themselves.
*/
package qm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/e2nIEE/ppqgis-translations/trans"
	"github.com/go-errors/errors"
	"golang.org/x/text/encoding/unicode"
)

var magic = []byte{
	0x3c, 0xb8, 0x64, 0x18, 0xca, 0xef, 0x9c, 0x95,
	0xcd, 0x21, 0x1c, 0xbf, 0x60, 0xa1, 0xbd, 0xdd,
}

// section tags
const (
	sectionContexts     = 0x2f
	sectionHashes       = 0x42
	sectionMessages     = 0x69
	sectionNumerusRules = 0x88
	sectionDependencies = 0x96
	sectionLanguage     = 0xa7
)

// record tags
const (
	tagEnd          = 1
	tagSourceText16 = 2
	tagTranslation  = 3
	tagContext16    = 4
	tagObsolete1    = 5
	tagSourceText   = 6
	tagContext      = 7
	tagComment      = 8
	tagObsolete2    = 9
)

const nullString = 0xffffffff

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// Options controls which messages end up in the compiled file.
type Options struct {
	// SkipUnfinished leaves out translations still marked unfinished, like lrelease
	// -nounfinished. They are compiled otherwise.
	SkipUnfinished bool
}

// CompileStats counts what happened to the messages of a catalog.
type CompileStats struct {
	Finished     int `json:"finished"`
	Unfinished   int `json:"unfinished"`
	Untranslated int `json:"untranslated"`
	Skipped      int `json:"skipped"`
}

func (s CompileStats) String() string {
	return fmt.Sprintf("Generated %d translation(s) (%d finished and %d unfinished), ignored %d untranslated source text(s)",
		s.Finished+s.Unfinished, s.Finished, s.Unfinished, s.Untranslated)
}

// elfHash is the hash QTranslator uses to locate a message by source text and comment.
func elfHash(b []byte) uint32 {
	var h uint32
	for _, c := range b {
		h = (h << 4) + uint32(c)
		g := h & 0xf0000000
		if g != 0 {
			h ^= g >> 24
		}
		h &^= g
	}
	if h == 0 {
		return 1
	}
	return h
}

type hashEntry struct {
	hash   uint32
	offset uint32
}

// Compile writes the translated messages of c to w.
func Compile(w io.Writer, c *trans.Catalog, opts Options) (stats CompileStats, err error) {
	var messages bytes.Buffer
	var hashes []hashEntry

	enc := utf16be.NewEncoder()

	for _, ctx := range c.Contexts {
		for _, m := range ctx.Messages {
			switch {
			case !m.Active():
				stats.Skipped++
				continue
			case !m.Translated():
				stats.Untranslated++
				continue
			case m.Status == trans.StatusUnfinished:
				if opts.SkipUnfinished {
					stats.Untranslated++
					continue
				}
				stats.Unfinished++
			default:
				stats.Finished++
			}

			forms := []string{m.Translation}
			if m.Numerus {
				forms = m.NumerusForms
			}

			hashes = append(hashes, hashEntry{
				hash:   elfHash([]byte(m.Source + m.Comment)),
				offset: uint32(messages.Len()),
			})

			for _, f := range forms {
				encoded, err := enc.Bytes([]byte(f))
				if err != nil {
					return stats, errors.Errorf("encoding translation of %q: %v", m.Source, err)
				}
				messages.WriteByte(tagTranslation)
				writeBytes(&messages, encoded)
			}
			messages.WriteByte(tagContext)
			writeBytes(&messages, []byte(ctx.Name))
			messages.WriteByte(tagSourceText)
			writeBytes(&messages, []byte(m.Source))
			messages.WriteByte(tagComment)
			writeBytes(&messages, []byte(m.Comment))
			messages.WriteByte(tagEnd)
		}
	}

	sort.Slice(hashes, func(i, j int) bool {
		if hashes[i].hash != hashes[j].hash {
			return hashes[i].hash < hashes[j].hash
		}
		return hashes[i].offset < hashes[j].offset
	})

	var out bytes.Buffer
	out.Write(magic)
	if c.Language != "" {
		writeSection(&out, sectionLanguage, []byte(c.Language))
	}
	if len(hashes) > 0 {
		var table bytes.Buffer
		for _, h := range hashes {
			binary.Write(&table, binary.BigEndian, h.hash)
			binary.Write(&table, binary.BigEndian, h.offset)
		}
		writeSection(&out, sectionHashes, table.Bytes())
		writeSection(&out, sectionMessages, messages.Bytes())
	}

	_, err = w.Write(out.Bytes())
	return stats, err
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	binary.Write(buf, binary.BigEndian, uint32(len(b)))
	buf.Write(b)
}

func writeSection(buf *bytes.Buffer, tag byte, data []byte) {
	buf.WriteByte(tag)
	writeBytes(buf, data)
}

// Decode reads a .qm file into a catalog. Messages with one translation become plain messages,
// messages with several become numerus messages.
func Decode(r io.Reader) (*trans.Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < len(magic) || !bytes.Equal(data[:len(magic)], magic) {
		return nil, errors.New("not a qm file: bad magic number")
	}

	c := &trans.Catalog{}
	var messages []byte

	rest := data[len(magic):]
	for len(rest) > 0 {
		if len(rest) < 5 {
			return nil, errors.New("truncated section header")
		}
		tag := rest[0]
		n := binary.BigEndian.Uint32(rest[1:5])
		rest = rest[5:]
		if uint64(n) > uint64(len(rest)) {
			return nil, errors.Errorf("section 0x%02x: length %d exceeds file size", tag, n)
		}
		body := rest[:n]
		rest = rest[n:]

		switch tag {
		case sectionLanguage:
			c.Language = string(body)
		case sectionMessages:
			messages = body
		case sectionHashes, sectionContexts, sectionNumerusRules, sectionDependencies:
		default:
			return nil, errors.Errorf("unknown section 0x%02x", tag)
		}
	}

	if err := decodeMessages(c, messages); err != nil {
		return nil, err
	}

	return c, nil
}

type recordReader struct {
	data []byte
	pos  int
}

func (r *recordReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// readString reads a length prefixed string. A null string reads as nil.
func (r *recordReader) readString() ([]byte, error) {
	if r.pos+4 > len(r.data) {
		return nil, io.ErrUnexpectedEOF
	}
	n := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	if n == nullString {
		return nil, nil
	}
	if uint64(r.pos)+uint64(n) > uint64(len(r.data)) {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

func decodeMessages(c *trans.Catalog, data []byte) error {
	dec := utf16be.NewDecoder()
	r := &recordReader{data: data}

	for r.pos < len(r.data) {
		var context string
		m := &trans.Message{}
		var forms []string

	record:
		for {
			tag, err := r.readByte()
			if err != nil {
				return errors.Errorf("truncated message record at offset %d", r.pos)
			}
			switch tag {
			case tagEnd:
				break record
			case tagTranslation:
				b, err := r.readString()
				if err != nil {
					return errors.Errorf("truncated translation at offset %d", r.pos)
				}
				s, err := dec.Bytes(b)
				if err != nil {
					return errors.Errorf("decoding translation at offset %d: %v", r.pos, err)
				}
				forms = append(forms, string(s))
			case tagContext, tagSourceText, tagComment:
				b, err := r.readString()
				if err != nil {
					return errors.Errorf("truncated string at offset %d", r.pos)
				}
				switch tag {
				case tagContext:
					context = string(b)
				case tagSourceText:
					m.Source = string(b)
				case tagComment:
					m.Comment = string(b)
				}
			case tagSourceText16, tagContext16:
				if _, err := r.readString(); err != nil {
					return errors.Errorf("truncated record at offset %d", r.pos)
				}
			case tagObsolete1, tagObsolete2:
				if r.pos+4 > len(r.data) {
					return errors.Errorf("truncated record at offset %d", r.pos)
				}
				r.pos += 4
			default:
				return errors.Errorf("unsupported record tag %d at offset %d", tag, r.pos-1)
			}
		}

		switch len(forms) {
		case 0:
		case 1:
			m.Translation = forms[0]
		default:
			m.Numerus = true
			m.NumerusForms = forms
		}
		c.Add(context, m)
	}

	return nil
}
