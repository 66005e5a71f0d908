package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devfolio/portfolio/internal/services"
	"github.com/devfolio/portfolio/internal/session"
)

type registerForm struct {
	Username string
	Email    string
}

type loginForm struct {
	Username string
}

// AuthHandler serves registration, login and logout.
type AuthHandler struct {
	userService *services.UserService
	sessions    *session.Manager
	views       *Views
}

func NewAuthHandler(userService *services.UserService, sessions *session.Manager, views *Views) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		sessions:    sessions,
		views:       views,
	}
}

// AuthRouter registers auth routes on the given router. limit guards the
// credential-accepting POSTs.
func AuthRouter(r chi.Router, userService *services.UserService, sessions *session.Manager, views *Views, limit func(http.Handler) http.Handler) {
	handler := NewAuthHandler(userService, sessions, views)
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	r.Get("/register", withSession(handler.RegisterForm))
	r.With(limit).Post("/register", withSession(handler.Register))
	r.Get("/login", withSession(handler.LoginForm))
	r.With(limit).Post("/login", withSession(handler.Login))
	r.With(sessions.RequireIdentity).Get("/logout", withSession(handler.Logout))
}

func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	h.views.Render(w, r, sess, http.StatusOK, pageRegister, registerForm{})
}

// Register creates an account. It does not sign the new user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	in := services.RegisterInput{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}

	_, err := h.userService.Register(r.Context(), in)
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		sess.AddFlash(session.LevelDanger, verr.Message)
		h.views.Render(w, r, sess, http.StatusBadRequest, pageRegister, registerForm{
			Username: in.Username,
			Email:    in.Email,
		})
		return
	case err != nil:
		h.views.ServerError(w, r, sess, err)
		return
	}

	sess.AddFlash(session.LevelSuccess, "Registration successful!")
	redirect(w, r, "/")
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	h.views.Render(w, r, sess, http.StatusOK, pageLogin, loginForm{})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	username := r.PostFormValue("username")
	user, err := h.userService.Authenticate(r.Context(), username, r.PostFormValue("password"))
	if errors.Is(err, services.ErrInvalidCredentials) {
		sess.AddFlash(session.LevelDanger, "Invalid username or password.")
		h.views.Render(w, r, sess, http.StatusUnauthorized, pageLogin, loginForm{Username: username})
		return
	}
	if err != nil {
		h.views.ServerError(w, r, sess, err)
		return
	}

	signedIn, err := h.sessions.Login(w, sess, session.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	if err != nil {
		h.views.ServerError(w, r, sess, err)
		return
	}

	signedIn.AddFlash(session.LevelSuccess, "Login successful!")
	redirect(w, r, "/portfolio")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	anonymous, err := h.sessions.Logout(w, sess)
	if err != nil {
		h.views.ServerError(w, r, sess, err)
		return
	}

	anonymous.AddFlash(session.LevelInfo, "You have been logged out!")
	redirect(w, r, "/login")
}
