// ABOUTME: OAuth2 authorization for the Fitbit Web API.
// ABOUTME: Tokens persist in the store so that refreshes survive restarts.
package fitbit

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/harperreed/pulse/internal/config"
	"github.com/harperreed/pulse/internal/storage"
)

// Scopes requested during authorization. Everything the sync registry
// reads.
var scopes = []string{
	"activity", "cardio_fitness", "heartrate", "oxygen_saturation",
	"respiratory_rate", "sleep", "temperature",
}

// OAuthConfig builds the oauth2 configuration from process config.
func OAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.FitbitClientID,
		ClientSecret: cfg.FitbitClientSecret,
		RedirectURL:  cfg.FitbitRedirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://www.fitbit.com/oauth2/authorize",
			TokenURL:  "https://api.fitbit.com/oauth2/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AuthCodeURL returns the URL the user visits to grant access.
func AuthCodeURL(cfg *config.Config, state string) string {
	return OAuthConfig(cfg).AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token and persists it.
func Exchange(ctx context.Context, cfg *config.Config, store *storage.DB, code string) error {
	tok, err := OAuthConfig(cfg).Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	return store.SaveToken(fromOAuth2(tok))
}

func fromOAuth2(tok *oauth2.Token) *storage.OAuthToken {
	userID, _ := tok.Extra("user_id").(string)
	scope, _ := tok.Extra("scope").(string)
	return &storage.OAuthToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
		Scope:        scope,
		UserID:       userID,
	}
}

func toOAuth2(tok *storage.OAuthToken) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.ExpiresAt,
	}
}

// persistingTokenSource saves every refreshed token back to the store so
// the rotated refresh token is never lost.
type persistingTokenSource struct {
	src   oauth2.TokenSource
	store *storage.DB
	last  string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		if err := s.store.SaveToken(fromOAuth2(tok)); err != nil {
			return nil, fmt.Errorf("persist refreshed token: %w", err)
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
