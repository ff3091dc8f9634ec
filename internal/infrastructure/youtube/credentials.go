package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

const defaultTokenURI = "https://oauth2.googleapis.com/token"

var defaultScopes = []string{
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube.readonly",
}

// credentialsBlob is the JSON credential bundle handed to the process via
// configuration.
type credentialsBlob struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
}

// NewTokenSource parses a credential blob into a self-refreshing token
// source. The source caches the access token and refreshes it on expiry,
// so callers never mutate process-wide credential state.
func NewTokenSource(ctx context.Context, blob string) (oauth2.TokenSource, error) {
	if blob == "" {
		return nil, errors.New("credentials not configured")
	}

	var creds credentialsBlob
	if err := json.Unmarshal([]byte(blob), &creds); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if creds.RefreshToken == "" || creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, errors.New("credentials missing refresh_token, client_id or client_secret")
	}

	tokenURI := creds.TokenURI
	if tokenURI == "" {
		tokenURI = defaultTokenURI
	}
	scopes := creds.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURI},
		Scopes:       scopes,
	}

	// The blob carries no expiry, so start expired and let the source
	// refresh on first use.
	token := &oauth2.Token{
		AccessToken:  creds.Token,
		RefreshToken: creds.RefreshToken,
		Expiry:       time.Now().Add(-time.Minute),
	}

	return oauth2.ReuseTokenSource(nil, cfg.TokenSource(ctx, token)), nil
}
