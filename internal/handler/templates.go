package handler

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/olienttech/portal/internal/domain/catalog"
	"github.com/olienttech/portal/internal/domain/order"
	"github.com/olienttech/portal/internal/session"
	"github.com/olienttech/portal/pkg/table"
)

//go:embed templates
var templateFS embed.FS

var templates = mustParseTemplates()

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"datetime": func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04")
	},
}

// templateSet holds one parsed template per page, each sharing the layout.
type templateSet struct {
	pages map[string]*template.Template
}

// mustParseTemplates parses every page under templates/pages against the
// shared layout. It panics on malformed templates: these are embedded at
// build time, so a parse failure is a programming error.
func mustParseTemplates() *templateSet {
	names, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		panic(err)
	}
	set := &templateSet{pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		t, err := template.New("layout.html").
			Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			panic(err)
		}
		page := path.Base(name)
		set.pages[page[:len(page)-len(".html")]] = t
	}
	return set
}

func (s *templateSet) render(w io.Writer, page string, data pageData) error {
	t, ok := s.pages[page]
	if !ok {
		return errors.Errorf("unknown page template %q", page)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}

// pageData is implemented by every page's data struct so render can attach
// the session and any pending flash message.
type pageData interface {
	setSession(*session.Session)
	setFlash(*Flash)
}

// page carries the fields the layout needs; page structs embed it.
type page struct {
	Session *session.Session
	Flash   *Flash
}

func (p *page) setSession(s *session.Session) { p.Session = s }
func (p *page) setFlash(f *Flash)             { p.Flash = f }

type homePage struct {
	page
}

type signinPage struct {
	page
	Role  string
	Error string
}

type errorPage struct {
	page
	Status  int
	Message string
}

// catalogErrorPage notifies the user the catalog could not be loaded and
// redirects away from the unusable view after RedirectSeconds.
type catalogErrorPage struct {
	page
	RedirectSeconds int
	RedirectURL     string
}

type shopManufacturersPage struct {
	page
	Grid *table.Grid
}

type shopProductsPage struct {
	page
	Manufacturer catalog.Manufacturer
	Grid         *table.Grid
	OrderPath    string
}

type confirmPage struct {
	page
	Manufacturer string
	Grid         *table.Grid
	Total        decimal.Decimal
	SubmitError  string
	Submitting   bool
	BasePath     string
}

type completePage struct {
	page
	RedirectSeconds int
	RedirectURL     string
}

type ordersPage struct {
	page
	Grid *table.Grid
}

type manufacturerProductsPage struct {
	page
	Query          string
	Grid           *table.Grid
	DebounceMillis int
}

type orderDetailPage struct {
	page
	Order *order.Detail
	Grid  *table.Grid
}
