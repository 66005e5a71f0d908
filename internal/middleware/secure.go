package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecureHeaders sets browser security headers on every response. Project
// images may be hosted anywhere over https.
func SecureHeaders(isDevelopment bool) func(next http.Handler) http.Handler {
	s := secure.New(secure.Options{
		IsDevelopment:         isDevelopment,
		ContentTypeNosniff:    true,
		FrameDeny:             true,
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' https: data:; style-src 'self' 'unsafe-inline'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	})
	return s.Handler
}
