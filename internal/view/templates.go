package view

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/dowesd/dowesd/internal/shared"
	"github.com/dowesd/dowesd/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title         string
	CSRFToken     string
	Flash         *shared.FlashMessage
	CurrentPath   string
	SignedIn      bool
	CurrentUserID string
	Data          any
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	printer := message.NewPrinter(language.English)
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006")
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"formatAmount": func(d decimal.Decimal) string {
			value, _ := d.Float64()
			return printer.Sprint(number.Decimal(value,
				number.MinFractionDigits(2),
				number.MaxFractionDigits(2)))
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates,
		"templates/partials/*.html",
		"templates/pages/*.html",
		"templates/pages/users/*.html",
		"templates/pages/accounts/*.html")
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
