package server

import (
	"github.com/e2nIEE/ppqgis-translations/trans"
)

type Catalog struct {
	Name           string    `json:"name"`
	Language       string    `json:"language"`
	SourceLanguage string    `json:"source_language"`
	Version        string    `json:"version,omitempty"`
	Contexts       []Context `json:"contexts"`
}

// NewCatalog converts a catalog to its JSON representation.
func NewCatalog(tc *trans.Catalog) *Catalog {
	c := &Catalog{
		Name:           tc.Name,
		Language:       tc.Language,
		SourceLanguage: tc.SourceLanguage,
		Version:        tc.Version,
		Contexts:       make([]Context, len(tc.Contexts)),
	}

	for i, ctx := range tc.Contexts {
		nc := Context{Name: ctx.Name, Messages: make([]Message, len(ctx.Messages))}
		for j, m := range ctx.Messages {
			nc.Messages[j] = Message{
				Source:            m.Source,
				Comment:           m.Comment,
				ExtraComment:      m.ExtraComment,
				TranslatorComment: m.TranslatorComment,
				Translation:       m.Translation,
				Numerus:           m.Numerus,
				NumerusForms:      m.NumerusForms,
				Status:            m.Status.String(),
				Locations:         m.Locations,
			}
		}
		c.Contexts[i] = nc
	}

	return c
}

type Context struct {
	Name     string    `json:"name"`
	Messages []Message `json:"messages"`
}

type Message struct {
	Source            string           `json:"source"`
	Comment           string           `json:"comment,omitempty"`
	ExtraComment      string           `json:"extra_comment,omitempty"`
	TranslatorComment string           `json:"translator_comment,omitempty"`
	Translation       string           `json:"translation"`
	Numerus           bool             `json:"numerus,omitempty"`
	NumerusForms      []string         `json:"numerus_forms,omitempty"`
	Status            string           `json:"status"`
	Locations         []trans.Location `json:"locations,omitempty"`
}

type Stats struct {
	trans.Stats
	Completion float64 `json:"completion"`
}

// messageRequest identifies a message in request bodies. The context is part of the URL.
type messageRequest struct {
	Source  string `json:"source"`
	Comment string `json:"comment"`
}

type translationRequest struct {
	messageRequest
	Content string `json:"content"`
	// Forms replaces Content for numerus messages
	Forms []string `json:"forms"`
}

type translateResponse struct {
	Translation string `json:"translation"`
	Found       bool   `json:"found"`
}
