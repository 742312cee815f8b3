package preview

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/killallgit/webbuilder/pkg/sandbox"
	"github.com/pkg/errors"
)

// DefaultStylesheet is the base stylesheet imported by every document.
const DefaultStylesheet = "https://cdn.jsdelivr.net/npm/tailwindcss@2.2.19/dist/tailwind.min.css"

//go:embed templates/*.tmpl
var templateFS embed.FS

var documentTemplate = template.Must(
	template.New("document.html.tmpl").Funcs(sprig.FuncMap()).ParseFS(templateFS, "templates/document.html.tmpl"),
)

// Document is one complete sandbox document.
type Document struct {
	Revision    uint64 `json:"revision"`
	Markup      string `json:"-"`
	IsSelecting bool   `json:"isSelecting"`
	HTML        string `json:"html"`
}

// Renderer builds sandbox documents.
type Renderer struct {
	stylesheet string
}

// NewRenderer returns a renderer importing stylesheet. An empty stylesheet
// selects DefaultStylesheet.
func NewRenderer(stylesheet string) *Renderer {
	if stylesheet == "" {
		stylesheet = DefaultStylesheet
	}
	return &Renderer{stylesheet: stylesheet}
}

// Render builds a full document around markup. The markup is placed in the
// body unmodified and the interaction script starts in the given mode.
func (r *Renderer) Render(markup string, isSelecting bool, revision uint64) (Document, error) {
	script, err := sandbox.Script(sandbox.Options{IsSelecting: isSelecting, Revision: revision})
	if err != nil {
		return Document{}, errors.Wrap(err, "failed to build interaction script")
	}

	data := struct {
		Revision      uint64
		Stylesheet    string
		HoverClass    string
		SelectedClass string
		IsSelecting   bool
		Script        template.JS
		Markup        template.HTML
	}{
		Revision:      revision,
		Stylesheet:    r.stylesheet,
		HoverClass:    sandbox.HoverClass,
		SelectedClass: sandbox.SelectedClass,
		IsSelecting:   isSelecting,
		Script:        template.JS(script),
		Markup:        template.HTML(markup),
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return Document{}, errors.Wrapf(err, "failed to render preview document (revision %d)", revision)
	}

	return Document{
		Revision:    revision,
		Markup:      markup,
		IsSelecting: isSelecting,
		HTML:        buf.String(),
	}, nil
}

// Render builds a document with the default stylesheet.
func Render(markup string, isSelecting bool) (Document, error) {
	return NewRenderer("").Render(markup, isSelecting, 0)
}
