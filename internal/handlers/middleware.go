package handlers

import (
	"net/http"
	"strings"

	"github.com/shopadmin/apiserver/internal/auth"
	"go.uber.org/zap"
)

// SessionMiddleware resolves the session token of each request.
type SessionMiddleware struct {
	issuer     *auth.TokenIssuer
	cookieName string
	logger     *zap.Logger
}

func NewSessionMiddleware(issuer *auth.TokenIssuer, cookieName string, logger *zap.Logger) *SessionMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionMiddleware{issuer: issuer, cookieName: cookieName, logger: logger}
}

// Load verifies the session cookie, or a bearer token, and stores the
// rehydrated session in the request context. Requests without a valid token
// continue anonymously.
func (m *SessionMiddleware) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.token(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := m.issuer.Verify(token)
		if err != nil {
			m.logger.Debug("ignoring invalid session token", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		session := auth.SessionFromClaims(claims)
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
	})
}

func (m *SessionMiddleware) token(r *http.Request) string {
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Gate redirects anonymous requests for protected paths to the sign-in page.
func Gate(gate *auth.PathGate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, hasSession := SessionFromContext(r.Context())
			decision := gate.Authorize(hasSession, r.URL)
			if !decision.Allowed {
				http.Redirect(w, r, decision.RedirectURL, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects anonymous requests with 401.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose session lacks an explicit true admin claim.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !session.Admin() {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
