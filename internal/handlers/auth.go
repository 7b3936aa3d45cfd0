package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopadmin/apiserver/config"
	"github.com/shopadmin/apiserver/internal/auth"
	"github.com/shopadmin/apiserver/internal/oauth"
	"github.com/shopadmin/apiserver/types"
	"go.uber.org/zap"
)

// Error codes appended to the error page URL when a federated sign-in fails.
const (
	codeAccessDenied  = "AccessDenied"
	codeNotLinked     = "OAuthAccountNotLinked"
	codeOAuthCallback = "OAuthCallback"
	codeCallback      = "Callback"
)

// AuthHandler serves sign-up, sign-in, sign-out, and the federated flow.
type AuthHandler struct {
	service   *auth.Service
	issuer    *auth.TokenIssuer
	providers *oauth.Registry
	cfg       config.AuthConfig
	logger    *zap.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(service *auth.Service, issuer *auth.TokenIssuer, providers *oauth.Registry, cfg config.AuthConfig, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if providers == nil {
		providers = oauth.NewRegistry()
	}
	return &AuthHandler{
		service:   service,
		issuer:    issuer,
		providers: providers,
		cfg:       cfg,
		logger:    logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/signup", handler.SignUp)
	r.Post("/signin", handler.SignIn)
	r.Post("/signout", handler.SignOut)
	r.Get("/session", handler.Session)
	r.Get("/providers", handler.Providers)
	r.Get("/{provider}/login", handler.FederatedLogin)
	r.Get("/{provider}/callback", handler.FederatedCallback)
}

type signInResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      types.Claims `json:"user"`
}

type sessionResponse struct {
	User *auth.Session `json:"user"`
}

// SignUp registers a credentials identity and signs it in.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var in auth.SignUpInput
	if !decodeJSON(w, r, &in) {
		return
	}

	identity, err := h.service.RegisterWithPassword(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp, err := h.startSession(w, auth.ClaimsFor(identity))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// SignIn verifies an email and password and sets the session cookie.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var in auth.SignInInput
	if !decodeJSON(w, r, &in) {
		return
	}

	claims, err := h.service.AuthenticateWithPassword(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp, err := h.startSession(w, claims)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SignOut clears the session cookie.
func (h *AuthHandler) SignOut(w http.ResponseWriter, _ *http.Request) {
	h.setSessionCookie(w, "", time.Unix(0, 0), -1)
	w.WriteHeader(http.StatusNoContent)
}

// Session returns the current session, or a null user.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: &session})
}

// Providers lists the configured federated providers.
func (h *AuthHandler) Providers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"providers": h.providers.Names()})
}

// FederatedLogin redirects to the provider's authorization page.
func (h *AuthHandler) FederatedLogin(w http.ResponseWriter, r *http.Request) {
	provider, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown provider")
		return
	}

	flow := oauth.BeginFlow(w, r.URL.Query().Get("callbackUrl"), h.cfg.SecureCookies)
	http.Redirect(w, r, provider.AuthCodeURL(flow.State, flow.Verifier), http.StatusFound)
}

// FederatedCallback completes the authorization code flow, reconciles the
// asserted profile with the identity store, and starts a session.
func (h *AuthHandler) FederatedCallback(w http.ResponseWriter, r *http.Request) {
	provider, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown provider")
		return
	}
	logger := h.logger.With(zap.String("provider", string(provider.Name())))

	flow, err := oauth.CompleteFlow(w, r, h.cfg.SecureCookies)
	if err != nil {
		logger.Warn("oauth callback rejected", zap.Error(err))
		h.redirectError(w, r, codeOAuthCallback, "")
		return
	}
	if reason := r.URL.Query().Get("error"); reason != "" {
		logger.Info("provider denied authorization", zap.String("reason", reason))
		h.redirectError(w, r, codeAccessDenied, "")
		return
	}

	profile, err := provider.Exchange(r.Context(), r.URL.Query().Get("code"), flow.Verifier)
	if err != nil {
		logger.Warn("oauth exchange failed", zap.Error(err))
		h.redirectError(w, r, codeOAuthCallback, "")
		return
	}

	result, err := h.service.ReconcileFederatedSignIn(r.Context(), profile)
	if err != nil {
		var authErr *auth.Error
		errors.As(err, &authErr)
		switch auth.KindOf(err) {
		case auth.KindDenied:
			h.redirectError(w, r, codeAccessDenied, string(authErr.Provider))
		case auth.KindProviderMismatch:
			h.redirectError(w, r, codeNotLinked, string(authErr.Provider))
		default:
			h.redirectError(w, r, codeCallback, "")
		}
		return
	}

	if _, err := h.startSession(w, auth.ClaimsFor(result.Identity)); err != nil {
		logger.Error("issue session failed", zap.Error(err))
		h.redirectError(w, r, codeCallback, "")
		return
	}
	http.Redirect(w, r, flow.Callback, http.StatusFound)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, claims types.Claims) (signInResponse, error) {
	token, expiresAt, err := h.issuer.Issue(claims)
	if err != nil {
		return signInResponse{}, err
	}
	h.setSessionCookie(w, token, expiresAt, int(h.issuer.MaxAge().Seconds()))
	return signInResponse{Token: token, ExpiresAt: expiresAt, User: claims}, nil
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) redirectError(w http.ResponseWriter, r *http.Request, code, provider string) {
	query := url.Values{"error": {code}}
	if provider != "" {
		query.Set("provider", provider)
	}
	http.Redirect(w, r, h.cfg.ErrorPath+"?"+query.Encode(), http.StatusFound)
}
