package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// GitLabIdentity is what a GitLab sign-in proves about the user.
type GitLabIdentity struct {
	Subject  string `json:"sub"`
	Username string `json:"preferred_username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// GitLab signs users in through a GitLab instance acting as an OpenID Connect provider.
// Provider metadata is discovered on first use and retried until it succeeds.
type GitLab struct {
	issuer       string
	clientID     string
	clientSecret string
	redirectURL  string

	mu       sync.Mutex
	oauth2   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

func NewGitLab(issuer, clientID, clientSecret, redirectURL string) *GitLab {
	return &GitLab{
		issuer:       strings.TrimRight(issuer, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
	}
}

func (g *GitLab) discover(ctx context.Context) (*oauth2.Config, *oidc.IDTokenVerifier, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verifier != nil {
		return g.oauth2, g.verifier, nil
	}

	provider, err := oidc.NewProvider(ctx, g.issuer)
	if err != nil {
		return nil, nil, fmt.Errorf("discover gitlab at %s: %w", g.issuer, err)
	}
	g.oauth2 = &oauth2.Config{
		ClientID:     g.clientID,
		ClientSecret: g.clientSecret,
		RedirectURL:  g.redirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	g.verifier = provider.Verifier(&oidc.Config{ClientID: g.clientID})
	return g.oauth2, g.verifier, nil
}

// AuthCodeURL is where the browser is sent to sign in. state comes back on the callback.
func (g *GitLab) AuthCodeURL(ctx context.Context, state string) (string, error) {
	cfg, _, err := g.discover(ctx)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state), nil
}

// Exchange trades the callback code for tokens and returns the verified identity.
func (g *GitLab) Exchange(ctx context.Context, code string) (*GitLabIdentity, error) {
	cfg, verifier, err := g.discover(ctx)
	if err != nil {
		return nil, err
	}
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, errors.New("gitlab returned no id_token")
	}
	idToken, err := verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}

	var ident GitLabIdentity
	if err := idToken.Claims(&ident); err != nil {
		return nil, fmt.Errorf("decode id_token claims: %w", err)
	}
	if ident.Subject == "" {
		ident.Subject = idToken.Subject
	}
	return &ident, nil
}
