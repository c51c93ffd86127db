// Package web provides the embedded HTML templates for public pages.
package web

import (
	"embed"
	"io"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var templatesFS embed.FS

// Layout wraps every public page.
const Layout = "layouts/main"

// Template names
const (
	TemplateLanding  = "landing"
	TemplateRedirect = "redirect"
	TemplateNotFound = "not_found"
)

// Templates returns the embedded templates filesystem with the
// "templates/" prefix stripped.
func Templates() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewEngine returns a template engine over the embedded templates.
func NewEngine() *html.Engine {
	return html.NewFileSystem(http.FS(Templates()), ".html")
}

// Renderer renders a named page inside the shared layout.
type Renderer struct {
	engine *html.Engine
}

// NewRenderer parses the embedded templates up front.
func NewRenderer() (*Renderer, error) {
	engine := NewEngine()
	if err := engine.Load(); err != nil {
		return nil, err
	}
	return &Renderer{engine: engine}, nil
}

// Render writes the page name with data inside the layout.
func (r *Renderer) Render(out io.Writer, name string, data any) error {
	return r.engine.Render(out, name, data, Layout)
}
