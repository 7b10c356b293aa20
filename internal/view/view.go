// Package view renders HTML pages. Handlers hand it a Page; it owns the
// templates, the layout and the markdown conversion of product copy.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/sakif/energy-advisor/internal/auth"
	"github.com/sakif/energy-advisor/internal/model"
)

// Page template names.
const (
	PageCatalog          = "catalog"
	PageProduct          = "product"
	PageBooking          = "booking"
	PageBookingConfirmed = "booking_confirmed"
	PageRegister         = "register"
	PageLogin            = "login"
	PagePassword         = "password"
	PageAccount          = "account"
	PageError            = "error"
)

var pageNames = []string{
	PageCatalog, PageProduct, PageBooking, PageBookingConfirmed,
	PageRegister, PageLogin, PagePassword, PageAccount, PageError,
}

//go:embed templates/*.html
var templateFS embed.FS

// Page is one rendered response.
//
// Form holds submitted values to put back into inputs after a failed POST;
// Errors maps a form field to its message. Message is a page-level notice.
type Page struct {
	Name    string
	Title   string
	Data    any
	Form    map[string]string
	Errors  map[string]string
	Message string
}

// Confirmation is the Data of PageBookingConfirmed.
type Confirmation struct {
	Booking     *model.Booking
	Calculation *model.CalculationView
}

// Renderer writes a Page with the given status.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, p Page) error
}

// layoutData is what the templates actually execute against.
type layoutData struct {
	Page
	Session   *model.Session
	CSRFField template.HTML
}

// TemplateRenderer is the html/template implementation of Renderer.
type TemplateRenderer struct {
	pages map[string]*template.Template
}

var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Markdown converts product copy to HTML. Raw HTML in the source is escaped
// because goldmark's unsafe mode is off.
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

var funcs = template.FuncMap{
	"markdown": Markdown,
	"money":    func(v float64) string { return fmt.Sprintf("£%.2f", v) },
	"num":      func(v float64) string { return fmt.Sprintf("%.2f", v) },
}

// New parses every page against the shared layout once, at startup.
func New() (*TemplateRenderer, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}

	base, err := template.New("layout.html").Funcs(funcs).ParseFS(sub, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("view: parsing layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("view: cloning layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(sub, name+".html"); err != nil {
			return nil, fmt.Errorf("view: parsing %s: %w", name, err)
		}
		pages[name] = t
	}
	return &TemplateRenderer{pages: pages}, nil
}

// Render executes into a buffer first so a template error never leaves a
// half-written page behind a 200.
func (tr *TemplateRenderer) Render(w http.ResponseWriter, r *http.Request, status int, p Page) error {
	t, ok := tr.pages[p.Name]
	if !ok {
		return fmt.Errorf("view: unknown page %q", p.Name)
	}

	data := layoutData{Page: p, CSRFField: csrf.TemplateField(r)}
	if sess, ok := auth.SessionFromContext(r.Context()); ok {
		data.Session = sess
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("view: rendering %s: %w", p.Name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
