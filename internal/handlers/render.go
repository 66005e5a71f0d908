package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"github.com/rs/zerolog"

	"github.com/devfolio/portfolio/internal/session"
	"github.com/devfolio/portfolio/types"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageHome      = "index"
	pageRegister  = "register"
	pageLogin     = "login"
	pageContact   = "contact"
	pagePortfolio = "portfolio"
	pageProject   = "project"
	pageNotFound  = "not_found"
	pageError     = "error"
)

var pageNames = []string{
	pageHome, pageRegister, pageLogin, pageContact,
	pagePortfolio, pageProject, pageNotFound, pageError,
}

// viewData is what every page template receives.
type viewData struct {
	Identity  *session.Identity
	Flashes   []session.Flash
	CSRFField template.HTML
	Page      any
}

// Views renders the HTML pages inside the shared layout.
type Views struct {
	pages map[string]*template.Template
	log   zerolog.Logger
}

func NewViews(log zerolog.Logger) (*Views, error) {
	funcs := template.FuncMap{
		"imageSrc":   imageSrc,
		"formatTime": formatTime,
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Views{pages: pages, log: log}, nil
}

// Render writes page with status. Pending flashes on sess are consumed.
func (v *Views) Render(w http.ResponseWriter, r *http.Request, sess *session.Session, status int, page string, data any) {
	tmpl, ok := v.pages[page]
	if !ok {
		v.log.Error().Str("page", page).Msg("unknown page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	vd := viewData{
		CSRFField: csrf.TemplateField(r),
		Page:      data,
	}
	if sess != nil {
		vd.Identity = sess.Identity()
		vd.Flashes = sess.PopFlashes()
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", vd); err != nil {
		v.log.Error().Err(err).Str("page", page).Msg("render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// NotFound renders the not-found page.
func (v *Views) NotFound(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	v.Render(w, r, sess, http.StatusNotFound, pageNotFound, nil)
}

// ServerError logs err and renders the generic error page.
func (v *Views) ServerError(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	v.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	v.Render(w, r, sess, http.StatusInternalServerError, pageError, nil)
}

func imageSrc(p types.Project) string {
	ref := p.ImageRef()
	switch {
	case ref == "":
		return ""
	case p.ImageIsURL():
		return ref
	default:
		return "/images/" + ref
	}
}

func formatTime(t time.Time) string {
	return t.Local().Format("Jan 2, 2006 15:04")
}
