package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devfolio/portfolio/internal/services"
	"github.com/devfolio/portfolio/internal/session"
)

// PageHandler serves the static pages and the contact forms.
type PageHandler struct {
	contactService *services.ContactService
	views          *Views
}

func NewPageHandler(contactService *services.ContactService, views *Views) *PageHandler {
	return &PageHandler{contactService: contactService, views: views}
}

// PageRouter registers the home and contact routes.
func PageRouter(r chi.Router, contactService *services.ContactService, views *Views) {
	handler := NewPageHandler(contactService, views)

	r.Get("/", withSession(handler.Home))
	r.Get("/contact", withSession(handler.ContactForm))
	r.Post("/contact", withSession(handler.Contact))
	r.Post("/send-message", withSession(handler.SendMessage))
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	h.views.Render(w, r, sess, http.StatusOK, pageHome, nil)
}

func (h *PageHandler) ContactForm(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	h.views.Render(w, r, sess, http.StatusOK, pageContact, nil)
}

func (h *PageHandler) Contact(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	h.submit(w, r, sess, services.FormContact, "Thank you for your message!")
}

func (h *PageHandler) SendMessage(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	h.submit(w, r, sess, services.FormSendMessage, "Your message has been sent successfully!")
}

func (h *PageHandler) submit(w http.ResponseWriter, r *http.Request, sess *session.Session, form, thanks string) {
	err := h.contactService.Submit(r.Context(), services.ContactMessage{
		Form:    form,
		Name:    r.PostFormValue("name"),
		Email:   r.PostFormValue("email"),
		Message: r.PostFormValue("message"),
	})
	if err != nil {
		h.views.ServerError(w, r, sess, err)
		return
	}

	sess.AddFlash(session.LevelSuccess, thanks)
	redirect(w, r, "/contact")
}

// NotFound renders the not-found page for unmatched routes.
func NotFound(views *Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views.NotFound(w, r, session.FromContext(r.Context()))
	}
}
