package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const unauthorizedBody = `{"error":"authentication_failed","message":"Authentication required"}`

// Middleware guards the HTTP API with a static bearer token.
// An empty token disables the check entirely.
type Middleware struct {
	token   string
	enabled bool
}

// NewMiddleware builds the middleware for the configured token.
func NewMiddleware(token string) *Middleware {
	token = strings.TrimSpace(token)
	return &Middleware{token: token, enabled: token != ""}
}

// Enabled reports whether requests are actually checked.
func (m *Middleware) Enabled() bool { return m.enabled }

// GinAuth returns the check as a Gin handler.
func (m *Middleware) GinAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.enabled && !m.authenticate(c.Request) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "authentication_failed",
				"message": "Authentication required",
			})
			return
		}
		c.Next()
	}
}

// HTTPAuth wraps a plain http.Handler with the same check, for
// listeners that do not go through Gin.
func (m *Middleware) HTTPAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.enabled && !m.authenticate(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(unauthorizedBody))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate extracts the bearer token and compares it in constant time.
func (m *Middleware) authenticate(r *http.Request) bool {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) == 1
}
