package view

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/seafood-erp/seafood-erp/web"
)

// Locale is the tag used for money and quantity formatting.
var Locale = language.MustParse("es-CL")

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CurrentPath string
	Data        any
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	printer := message.NewPrinter(Locale)
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"formatDay": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02-01-2006")
		},
		"money": func(d decimal.Decimal) string {
			return FormatMoney(printer, d)
		},
		"qty": func(d decimal.Decimal) string {
			return FormatQuantity(printer, d)
		},
		"percent": func(d decimal.Decimal) string {
			return FormatQuantity(printer, d) + "%"
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// Execute writes a named template to w without touching HTTP headers. Used to build documents
// that are converted to PDF.
func (e *Engine) Execute(w io.Writer, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	return e.templates.ExecuteTemplate(w, name, data)
}

// FormatMoney renders d with the locale's grouping and at most two decimals, prefixed by $.
func FormatMoney(p *message.Printer, d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return "$" + p.Sprint(number.Decimal(f, number.MaxFractionDigits(2)))
}

// FormatQuantity renders d with the locale's grouping and up to two decimals.
func FormatQuantity(p *message.Printer, d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return p.Sprint(number.Decimal(f, number.MaxFractionDigits(2)))
}
