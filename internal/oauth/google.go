package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/shopadmin/apiserver/config"
	"github.com/shopadmin/apiserver/internal/auth"
	"github.com/shopadmin/apiserver/types"
	"golang.org/x/oauth2"
)

const googleIssuer = "https://accounts.google.com"

// Google signs users in through Google's OpenID Connect endpoint.
type Google struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

func NewGoogle(ctx context.Context, cfg config.OAuthClientConfig) (*Google, error) {
	if !cfg.Enabled() {
		return nil, errors.New("google oauth config missing required fields")
	}

	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("init google oidc provider: %w", err)
	}

	return &Google{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (g *Google) Name() types.Provider {
	return types.ProviderGoogle
}

func (g *Google) AuthCodeURL(state, verifier string) string {
	return g.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

func (g *Google) Exchange(ctx context.Context, code, verifier string) (auth.FederatedProfile, error) {
	token, err := g.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return auth.FederatedProfile{}, fmt.Errorf("google token exchange: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return auth.FederatedProfile{}, errors.New("google did not return id_token")
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return auth.FederatedProfile{}, fmt.Errorf("google id_token verification: %w", err)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return auth.FederatedProfile{}, fmt.Errorf("google id_token claims: %w", err)
	}
	return claims.profile()
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

func (c googleClaims) profile() (auth.FederatedProfile, error) {
	if c.Email == "" {
		return auth.FederatedProfile{}, errors.New("google id_token has no email")
	}
	if !c.EmailVerified {
		return auth.FederatedProfile{}, errors.New("google email is not verified")
	}
	return auth.FederatedProfile{
		Provider:    types.ProviderGoogle,
		Email:       c.Email,
		DisplayName: c.Name,
		GivenName:   c.GivenName,
		FamilyName:  c.FamilyName,
		PictureURL:  c.Picture,
	}, nil
}
