package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/prathap-k00/expense-tracker/internal/core"
	applog "github.com/prathap-k00/expense-tracker/internal/log"
	"github.com/prathap-k00/expense-tracker/internal/middleware/session"
	appweb "github.com/prathap-k00/expense-tracker/web"
)

// page is the data every template receives.
type page struct {
	Title    string
	Email    string
	LoggedIn bool
	Flashes  []Flash
	Year     int
	Data     any
}

func parseTemplates(funcs template.FuncMap) (*template.Template, error) {
	t, err := template.New("").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"money": func(m core.Money) string { return s.format.Money(m) },
		"amount": func(m core.Money) string {
			return m.String()
		},
		"date": func(d core.Date) string { return d.String() },
		"monthName": func(m int) string {
			if m < 1 || m > 12 {
				return ""
			}
			return time.Month(m).String()
		},
		"comma":    func(n int) string { return humanize.Comma(int64(n)) },
		"months":   func() []int { return []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12} },
		"negative": func(m core.Money) bool { return m.Cents < 0 },
	}
}

// render executes a page template into a buffer first so a template error
// still produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any, flashes ...Flash) {
	ctx := r.Context()
	p := page{
		Title:    title,
		Email:    session.Email(ctx),
		LoggedIn: session.UserID(ctx) != 0,
		Flashes:  append(popFlashes(w, r), flashes...),
		Year:     s.opts.Now().Year(),
		Data:     data,
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, p); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Template execution failed",
			applog.FieldOperation, applog.OpRender,
			"template", name,
			applog.FieldError, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	NewResponse().Status(status).HTML(buf.Bytes()).Write(w)
}

// renderError shows the error page with message and status.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error", http.StatusText(status), struct {
		Status  int
		Message string
	}{status, message})
}
