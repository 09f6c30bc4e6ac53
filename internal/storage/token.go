// ABOUTME: OAuth token persistence for the Fitbit cloud-poll path.
// ABOUTME: Single-row table; the stored token survives restarts and refreshes in place.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// OAuthToken is the persisted form of an OAuth2 token.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	Scope        string
	UserID       string
}

// GetToken loads the stored token, or ErrNotFound when no authorization
// has been performed yet.
func (d *DB) GetToken() (*OAuthToken, error) {
	var t OAuthToken
	var tokenType, scope, userID sql.NullString
	var expiresAt string
	err := d.queryRow(`
		SELECT access_token, refresh_token, token_type, expires_at, scope, user_id
		FROM oauth_token WHERE id = 1
	`).Scan(&t.AccessToken, &t.RefreshToken, &tokenType, &expiresAt, &scope, &userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	if tokenType.Valid {
		t.TokenType = tokenType.String
	}
	if scope.Valid {
		t.Scope = scope.String
	}
	if userID.Valid {
		t.UserID = userID.String
	}
	t.ExpiresAt = parseTS(expiresAt)
	return &t, nil
}

// SaveToken stores or replaces the token.
func (d *DB) SaveToken(t *OAuthToken) error {
	_, err := d.exec(`
		INSERT INTO oauth_token (id, access_token, refresh_token, token_type, expires_at, scope, user_id)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			user_id = excluded.user_id
	`, t.AccessToken, t.RefreshToken, t.TokenType, formatTS(t.ExpiresAt), t.Scope, t.UserID)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// DeleteToken removes the stored token.
func (d *DB) DeleteToken() error {
	if _, err := d.exec(`DELETE FROM oauth_token WHERE id = 1`); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
