package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopadmin/apiserver/config"
	"github.com/shopadmin/apiserver/internal/auth"
	"github.com/shopadmin/apiserver/internal/oauth"
	"github.com/shopadmin/apiserver/internal/services"
	"github.com/shopadmin/apiserver/internal/store"
	"github.com/shopadmin/apiserver/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memIdentities backs both the auth core and the user service.
type memIdentities struct {
	mu   sync.Mutex
	byID map[string]types.Identity
}

func newMemIdentities() *memIdentities {
	return &memIdentities{byID: map[string]types.Identity{}}
}

func (m *memIdentities) put(identity types.Identity) types.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	m.byID[identity.ID] = identity
	return identity
}

func (m *memIdentities) List(context.Context) ([]types.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Identity, 0, len(m.byID))
	for _, identity := range m.byID {
		out = append(out, identity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *memIdentities) GetByID(_ context.Context, id string) (types.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.byID[id]
	if !ok {
		return types.Identity{}, store.ErrNotFound
	}
	return identity, nil
}

func (m *memIdentities) GetByEmail(_ context.Context, email string) (types.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, identity := range m.byID {
		if strings.EqualFold(identity.Email, email) {
			return identity, nil
		}
	}
	return types.Identity{}, store.ErrNotFound
}

func (m *memIdentities) Create(ctx context.Context, identity types.Identity) (types.Identity, error) {
	if _, err := m.GetByEmail(ctx, identity.Email); err == nil {
		return types.Identity{}, store.ErrAlreadyExists
	}
	identity.ID = ""
	identity.CreatedAt = time.Now()
	identity.UpdatedAt = identity.CreatedAt
	return m.put(identity), nil
}

func (m *memIdentities) ClaimProvider(_ context.Context, id string, provider types.Provider) (types.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.byID[id]
	if !ok || identity.Provider.IsSet() {
		return types.Identity{}, store.ErrNotFound
	}
	identity.Provider = provider
	m.byID[id] = identity
	return identity, nil
}

func (m *memIdentities) Update(_ context.Context, identity types.Identity) (types.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[identity.ID]; !ok {
		return types.Identity{}, store.ErrNotFound
	}
	m.byID[identity.ID] = identity
	return identity, nil
}

func (m *memIdentities) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memCategories struct {
	byID map[string]types.Category
}

func (m *memCategories) List(context.Context) ([]types.Category, error) {
	out := make([]types.Category, 0, len(m.byID))
	for _, category := range m.byID {
		out = append(out, category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryName < out[j].CategoryName })
	return out, nil
}

func (m *memCategories) Get(_ context.Context, id string) (types.Category, error) {
	category, ok := m.byID[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	return category, nil
}

func (m *memCategories) GetByName(_ context.Context, name string) (types.Category, error) {
	for _, category := range m.byID {
		if strings.EqualFold(category.CategoryName, name) {
			return category, nil
		}
	}
	return types.Category{}, store.ErrNotFound
}

func (m *memCategories) Create(_ context.Context, category types.Category) (types.Category, error) {
	category.ID = uuid.NewString()
	m.byID[category.ID] = category
	return category, nil
}

func (m *memCategories) Update(_ context.Context, category types.Category) (types.Category, error) {
	if _, ok := m.byID[category.ID]; !ok {
		return types.Category{}, store.ErrNotFound
	}
	m.byID[category.ID] = category
	return category, nil
}

func (m *memCategories) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type fakeProvider struct {
	name    types.Provider
	profile auth.FederatedProfile
	err     error
	codes   []string
}

func (p *fakeProvider) Name() types.Provider { return p.name }

func (p *fakeProvider) AuthCodeURL(state, verifier string) string {
	return "https://provider.example/authorize?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, code, _ string) (auth.FederatedProfile, error) {
	p.codes = append(p.codes, code)
	if p.err != nil {
		return auth.FederatedProfile{}, p.err
	}
	return p.profile, nil
}

type testApp struct {
	handler    http.Handler
	identities *memIdentities
	issuer     *auth.TokenIssuer
	provider   *fakeProvider
	cfg        config.AuthConfig
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.AuthConfig{
		SessionCookie:  "session_token",
		SignInPath:     "/signin",
		ErrorPath:      "/signin",
		ProtectedPaths: config.DefaultProtectedPaths,
	}
	identities := newMemIdentities()
	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}
	authService := auth.NewService(identities, hasher)
	issuer, err := auth.NewTokenIssuer("handler-test-secret", time.Hour)
	require.NoError(t, err)
	gate, err := auth.NewPathGate(cfg.ProtectedPaths, cfg.SignInPath)
	require.NoError(t, err)
	provider := &fakeProvider{name: types.ProviderGitHub}

	authHandler := NewAuthHandler(authService, issuer, oauth.NewRegistry(provider), cfg, nil)
	userHandler := NewUserHandler(services.NewUserService(identities, authService, hasher, nil, nil), nil)
	categoryHandler := NewCategoryHandler(services.NewCategoryService(&memCategories{byID: map[string]types.Category{}}), nil)
	sessions := NewSessionMiddleware(issuer, cfg.SessionCookie, nil)

	router := chi.NewRouter()
	router.Use(sessions.Load, Gate(gate))
	router.Get("/healthz", Healthz)
	router.Route("/auth", func(r chi.Router) { AuthRouter(r, authHandler) })
	router.Route("/admin", func(r chi.Router) {
		r.Use(RequireAdmin)
		r.Route("/users", func(r chi.Router) { AdminUserRouter(r, userHandler) })
		r.Route("/categories", func(r chi.Router) { CategoryRouter(r, categoryHandler) })
	})
	router.Route("/user", func(r chi.Router) { UserRouter(r, userHandler) })
	router.Route("/profile", func(r chi.Router) { ProfileRouter(r, userHandler) })

	return &testApp{
		handler:    router,
		identities: identities,
		issuer:     issuer,
		provider:   provider,
		cfg:        cfg,
	}
}

func (a *testApp) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// tokenFor signs a session for an identity stored in the app.
func (a *testApp) tokenFor(t *testing.T, identity types.Identity) string {
	t.Helper()
	token, _, err := a.issuer.Issue(auth.ClaimsFor(identity))
	require.NoError(t, err)
	return token
}

func (a *testApp) withSession(t *testing.T, req *http.Request, identity types.Identity) *http.Request {
	t.Helper()
	req.AddCookie(&http.Cookie{Name: a.cfg.SessionCookie, Value: a.tokenFor(t, identity)})
	return req
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.BcryptHasher{Cost: bcrypt.MinCost}.Hash(password)
	require.NoError(t, err)
	return hash
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
