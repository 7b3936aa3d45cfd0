package oauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	stateCookieName    = "__oauth_state"
	verifierCookieName = "__oauth_pkce"
	callbackCookieName = "__oauth_callback"
	flowTTL            = 5 * time.Minute
)

var ErrStateMismatch = errors.New("oauth state mismatch")

// Flow carries the per-login secrets between the login redirect and the callback.
type Flow struct {
	State    string
	Verifier string
	Callback string
}

// BeginFlow generates state and PKCE verifier and stores them, with the
// post-login callback, in short-lived cookies.
func BeginFlow(w http.ResponseWriter, callback string, secure bool) Flow {
	flow := Flow{
		State:    randomToken(),
		Verifier: oauth2.GenerateVerifier(),
		Callback: SafeCallback(callback),
	}
	setFlowCookie(w, stateCookieName, flow.State, secure, flowTTL)
	setFlowCookie(w, verifierCookieName, flow.Verifier, secure, flowTTL)
	setFlowCookie(w, callbackCookieName, flow.Callback, secure, flowTTL)
	return flow
}

// CompleteFlow checks the returned state against the cookie and returns the
// stored flow. The cookies are cleared either way.
func CompleteFlow(w http.ResponseWriter, r *http.Request, secure bool) (Flow, error) {
	defer func() {
		for _, name := range []string{stateCookieName, verifierCookieName, callbackCookieName} {
			setFlowCookie(w, name, "", secure, -1)
		}
	}()

	state := r.URL.Query().Get("state")
	stored := cookieValue(r, stateCookieName)
	if state == "" || stored == "" || subtle.ConstantTimeCompare([]byte(state), []byte(stored)) != 1 {
		return Flow{}, ErrStateMismatch
	}

	verifier := cookieValue(r, verifierCookieName)
	if verifier == "" {
		return Flow{}, errors.New("oauth pkce verifier missing")
	}

	return Flow{
		State:    state,
		Verifier: verifier,
		Callback: SafeCallback(cookieValue(r, callbackCookieName)),
	}, nil
}

// SafeCallback keeps only same-site relative paths and falls back to "/".
func SafeCallback(callback string) string {
	if !strings.HasPrefix(callback, "/") || strings.HasPrefix(callback, "//") || strings.HasPrefix(callback, "/\\") {
		return "/"
	}
	return callback
}

func setFlowCookie(w http.ResponseWriter, name, value string, secure bool, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func randomToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
