package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

const (
	CookieName = "session"

	loginPath         = "/login"
	loginRequiredText = "Please log in to access this page."
)

type contextKey string

const sessionContextKey contextKey = "session"

// Manager binds sessions to requests through a signed cookie.
type Manager struct {
	store  *Store
	secret []byte
	secure bool
	log    zerolog.Logger
}

func NewManager(store *Store, secret []byte, secureCookies bool, log zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		secret: secret,
		secure: secureCookies,
		log:    log,
	}
}

// FromContext returns the session attached by Load, or nil.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionContextKey).(*Session); ok {
		return s
	}
	return nil
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// Load attaches the caller's session to the request, starting an anonymous
// one when the cookie is missing, forged or expired.
func (m *Manager) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.lookup(r)
		if sess == nil {
			var err error
			sess, err = m.store.Create(nil)
			if err != nil {
				m.log.Error().Err(err).Msg("create session")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if err := m.writeCookie(w, sess); err != nil {
				m.log.Error().Err(err).Msg("sign session cookie")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

func (m *Manager) lookup(r *http.Request) *Session {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	id, err := parseTokenSubject(cookie.Value, m.secret)
	if err != nil {
		return nil
	}
	sess, ok := m.store.Get(id)
	if !ok {
		return nil
	}
	return sess
}

// RequireIdentity redirects anonymous callers to the login page.
func (m *Manager) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := FromContext(r.Context())
		if sess == nil || !sess.Authenticated() {
			if sess != nil {
				sess.AddFlash(LevelInfo, loginRequiredText)
			}
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Login replaces sess with a fresh session signed in as identity. Pending
// flashes move to the new session and the old id stops being valid.
func (m *Manager) Login(w http.ResponseWriter, sess *Session, identity Identity) (*Session, error) {
	return m.rotate(w, sess, &identity)
}

// Logout replaces sess with a fresh anonymous session.
func (m *Manager) Logout(w http.ResponseWriter, sess *Session) (*Session, error) {
	return m.rotate(w, sess, nil)
}

func (m *Manager) rotate(w http.ResponseWriter, sess *Session, identity *Identity) (*Session, error) {
	next, err := m.store.Create(identity)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		for _, f := range sess.PopFlashes() {
			next.AddFlash(f.Level, f.Message)
		}
		m.store.Delete(sess.ID)
	}
	if err := m.writeCookie(w, next); err != nil {
		m.store.Delete(next.ID)
		return nil, err
	}
	return next, nil
}

// writeCookie sets the session cookie, replacing one already queued on
// this response.
func (m *Manager) writeCookie(w http.ResponseWriter, sess *Session) error {
	token, err := issueToken(sess.ID, m.secret, sess.ExpiresAt)
	if err != nil {
		return err
	}

	header := w.Header()
	existing := header.Values("Set-Cookie")
	header.Del("Set-Cookie")
	for _, value := range existing {
		if !strings.HasPrefix(value, CookieName+"=") {
			header.Add("Set-Cookie", value)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.store.TTL().Seconds()),
	})
	return nil
}
