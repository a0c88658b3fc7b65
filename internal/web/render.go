// Package web renders the storefront pages from embedded templates.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/snuzng/storefront/internal/catalog"
	"github.com/snuzng/storefront/internal/domain"
	"github.com/snuzng/storefront/internal/pricing"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	PageHome          = "home"
	PageBrand         = "brand"
	PageCart          = "cart"
	PageCheckout      = "checkout"
	PageOrderComplete = "order_complete"
	PageUnderage      = "underage"
	PageNotFound      = "not_found"
)

var pageNames = []string{PageHome, PageBrand, PageCart, PageCheckout, PageOrderComplete, PageUnderage, PageNotFound}

// Layout is the data every page shares.
type Layout struct {
	Title       string
	Path        string
	ShowAgeGate bool
	// WindowToken is mirrored into window.name so a confirmation outlives cookies in the same tab.
	WindowToken string
	CartCount   int
	Brands      []catalog.Brand
}

type HomeData struct {
	Layout
	Cards []catalog.CategorizedCard
}

type BrandData struct {
	Layout
	Brand catalog.Brand
	Cards []catalog.Card
}

// Line is a cart row with its image sources resolved.
type Line struct {
	domain.CartItem
	Sources   *catalog.ImageSources
	LineTotal float64
}

type CartData struct {
	Layout
	Lines  []Line
	Totals domain.Totals
}

// Billing holds the checkout form values so they survive a failed submit.
type Billing struct {
	FirstName string
	LastName  string
	Company   string
	Country   string
	Address   string
	Address2  string
	City      string
	State     string
	Postcode  string
	Phone     string
	Email     string
	Notes     string
}

type CheckoutData struct {
	Layout
	Lines       []Line
	Totals      domain.Totals
	Billing     Billing
	Pay         string
	Terms       bool
	Error       string
	ButtonLabel string
}

type OrderCompleteData struct {
	Layout
	Heading   string
	Message   string
	Reference string
}

type Renderer struct {
	pages map[string]*template.Template
}

// LineControl pairs a line with the page its controls return to.
type LineControl struct {
	Line     Line
	ReturnTo string
}

var funcs = template.FuncMap{
	"ngn": pricing.FormatNGN,
	"control": func(l Line, returnTo string) LineControl {
		return LineControl{Line: l, ReturnTo: returnTo}
	},
}

// NewRenderer parses the layout together with each page.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes a page into w. Output is buffered so a template error
// never leaves a half-written page.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Lines builds cart rows for display.
func Lines(items []domain.CartItem) []Line {
	out := make([]Line, 0, len(items))
	for _, it := range items {
		out = append(out, Line{
			CartItem:  it,
			Sources:   catalog.ModernImageSources(it.Image),
			LineTotal: it.Price * float64(it.Qty),
		})
	}
	return out
}
