package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopadmin/apiserver/config"
	"github.com/shopadmin/apiserver/internal/auth"
	"github.com/shopadmin/apiserver/types"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPI = "https://api.github.com"

// GitHub signs users in through GitHub OAuth apps. GitHub is not an OpenID
// provider, so the profile comes from the REST API.
type GitHub struct {
	oauthConfig *oauth2.Config
	apiBaseURL  string
}

func NewGitHub(cfg config.OAuthClientConfig) *GitHub {
	return &GitHub{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBaseURL: githubAPI,
	}
}

func (g *GitHub) Name() types.Provider {
	return types.ProviderGitHub
}

func (g *GitHub) AuthCodeURL(state, verifier string) string {
	return g.oauthConfig.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

type githubUser struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *GitHub) Exchange(ctx context.Context, code, verifier string) (auth.FederatedProfile, error) {
	token, err := g.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return auth.FederatedProfile{}, fmt.Errorf("github token exchange: %w", err)
	}
	client := g.oauthConfig.Client(ctx, token)

	var user githubUser
	if err := g.getJSON(ctx, client, "/user", &user); err != nil {
		return auth.FederatedProfile{}, err
	}

	// The public profile email may be hidden; fall back to the primary verified address.
	email := user.Email
	if email == "" {
		var emails []githubEmail
		if err := g.getJSON(ctx, client, "/user/emails", &emails); err != nil {
			return auth.FederatedProfile{}, err
		}
		for _, candidate := range emails {
			if candidate.Primary && candidate.Verified {
				email = candidate.Email
				break
			}
		}
	}
	if email == "" {
		return auth.FederatedProfile{}, errors.New("github account has no verified primary email")
	}

	displayName := strings.TrimSpace(user.Name)
	if displayName == "" {
		displayName = user.Login
	}
	given, family := splitName(user.Name)

	return auth.FederatedProfile{
		Provider:    types.ProviderGitHub,
		Email:       email,
		DisplayName: displayName,
		GivenName:   given,
		FamilyName:  family,
		PictureURL:  user.AvatarURL,
	}, nil
}

func (g *GitHub) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func splitName(name string) (given, family string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	given, family, _ = strings.Cut(name, " ")
	return given, strings.TrimSpace(family)
}
