// Package templates handles HTML template rendering for Datastar SSE responses.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
)

//go:embed fragments/*.html pages/*.html
var embedded embed.FS

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs, useful for passing multiple values to nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
}

// Renderer manages HTML fragment and page templates.
type Renderer struct {
	templates *template.Template
}

// New creates a renderer over the embedded templates.
func New() (*Renderer, error) {
	return Parse(embedded)
}

// Parse creates a renderer from the fragments/ and pages/ directories of
// fsys.
func Parse(fsys fs.FS) (*Renderer, error) {
	tmpl, err := parse(fsys)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

func parse(fsys fs.FS) (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseFS(fsys, "fragments/*.html", "pages/*.html")
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	return r.templates.ExecuteTemplate(buf, name, data)
}
