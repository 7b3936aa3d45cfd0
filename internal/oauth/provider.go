// Package oauth runs the authorization code flow against federated identity
// providers and normalizes what they assert into auth.FederatedProfile values.
// It makes no account decisions; those belong to auth.Service.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopadmin/apiserver/config"
	"github.com/shopadmin/apiserver/internal/auth"
	"github.com/shopadmin/apiserver/types"
)

// ErrUnknownProvider is returned for provider names that are not registered.
var ErrUnknownProvider = errors.New("unknown oauth provider")

// Provider is one configured federated identity provider.
type Provider interface {
	Name() types.Provider

	// AuthCodeURL returns the authorization URL for the given state and PKCE verifier.
	AuthCodeURL(state, verifier string) string

	// Exchange trades an authorization code for the user's profile.
	Exchange(ctx context.Context, code, verifier string) (auth.FederatedProfile, error)
}

// Registry looks up configured providers by name.
type Registry struct {
	providers map[types.Provider]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	m := make(map[types.Provider]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// New builds a registry holding every provider with complete client configuration.
func New(ctx context.Context, cfg config.OAuthConfig) (*Registry, error) {
	var providers []Provider
	if cfg.Google.Enabled() {
		google, err := NewGoogle(ctx, cfg.Google)
		if err != nil {
			return nil, err
		}
		providers = append(providers, google)
	}
	if cfg.GitHub.Enabled() {
		providers = append(providers, NewGitHub(cfg.GitHub))
	}
	return NewRegistry(providers...), nil
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[types.Provider(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names lists the registered providers in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}
