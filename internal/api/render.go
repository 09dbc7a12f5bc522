package api

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/IlyasAtabaev731/barter-market/internal/lib/jwt"
	"github.com/IlyasAtabaev731/barter-market/internal/market"
	"github.com/shopspring/decimal"
)

//go:embed templates
var templatesFS embed.FS

var templateFuncs = template.FuncMap{
	"price": func(d decimal.Decimal) string {
		return d.StringFixed(2)
	},
	"date": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
}

// renderer holds one template set per page, each parsed together with the
// shared layout.
type renderer struct {
	pages map[string]*template.Template
}

func mustRenderer() *renderer {
	pages, err := fs.Glob(templatesFS, "templates/pages/*.html")
	if err != nil {
		panic(err)
	}

	r := &renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		t := template.Must(template.New("layout.html").
			Funcs(templateFuncs).
			ParseFS(templatesFS, "templates/layout.html", page))
		r.pages[strings.TrimSuffix(path.Base(page), ".html")] = t
	}

	return r
}

// view is the data every page receives. Data carries the page specific
// payload.
type view struct {
	Title   string
	Session *jwt.Session
	Error   string
	Data    any
}

func (s *APIServer) render(w http.ResponseWriter, r *http.Request, status int, page string, v view) {
	t, ok := s.pages.pages[page]
	if !ok {
		s.logger.Error("Unknown page", slog.String("page", page))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	v.Session = sessionFrom(r.Context())

	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		s.logger.Error("Failed to render page", slog.String("page", page), "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *APIServer) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error", view{
		Title: http.StatusText(status),
		Error: message,
		Data:  status,
	})
}

// fail maps a market error onto an error page. Unknown errors are logged
// and shown as a 500.
func (s *APIServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		nf  *market.NotFoundError
		inv *market.ValidationError
	)

	switch {
	case errors.As(err, &nf):
		s.renderError(w, r, http.StatusNotFound, "The "+nf.Entity+" you are looking for does not exist")
	case errors.As(err, &inv):
		s.renderError(w, r, http.StatusBadRequest, inv.Error())
	case errors.Is(err, market.ErrForbidden):
		s.renderError(w, r, http.StatusForbidden, "You are not allowed to do that")
	default:
		s.logger.Error("Request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			"error", err,
		)
		s.renderError(w, r, http.StatusInternalServerError, "Something went wrong, please try again")
	}
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}
