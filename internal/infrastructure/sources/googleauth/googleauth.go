// Package googleauth builds authenticated Google API client options from
// local credential files. Both the sheets and gmail drivers go through it:
// a service-account key authenticates directly, an OAuth client JSON pairs
// with a cached token file produced by a one-time consent flow.
package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/mezze/backend/internal/domain/ingestion"
)

// credentialsProbe is the minimal shape needed to tell a service-account
// key from an OAuth client JSON
type credentialsProbe struct {
	Type      string          `json:"type"`
	Installed json.RawMessage `json:"installed"`
	Web       json.RawMessage `json:"web"`
}

// ClientOptions reads the credentials file and returns the API client
// options for it. Missing or malformed credential material is an auth
// failure, not a format error: the upstream was never reached.
func ClientOptions(ctx context.Context, credentialsFile, tokenFile string, scopes ...string) ([]option.ClientOption, error) {
	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: reading credentials %s: %v", ingestion.ErrSourceAuthFailed, credentialsFile, err)
	}

	var probe credentialsProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: credentials %s is not JSON: %v", ingestion.ErrSourceAuthFailed, credentialsFile, err)
	}

	if probe.Type == "service_account" {
		creds, err := google.CredentialsFromJSON(ctx, raw, scopes...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ingestion.ErrSourceAuthFailed, err)
		}
		return []option.ClientOption{option.WithCredentials(creds)}, nil
	}

	if probe.Installed == nil && probe.Web == nil {
		return nil, fmt.Errorf("%w: credentials %s is neither a service account key nor an OAuth client", ingestion.ErrSourceAuthFailed, credentialsFile)
	}

	cfg, err := google.ConfigFromJSON(raw, scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ingestion.ErrSourceAuthFailed, err)
	}
	token, err := loadToken(tokenFile)
	if err != nil {
		return nil, err
	}
	return []option.ClientOption{option.WithTokenSource(cfg.TokenSource(ctx, token))}, nil
}

// loadToken reads a cached OAuth token. The token file is written by the
// consent flow; an expired token refreshes through the token source as
// long as the refresh token is present.
func loadToken(tokenFile string) (*oauth2.Token, error) {
	f, err := os.Open(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: token file %s missing, run the consent flow first: %v", ingestion.ErrSourceAuthFailed, tokenFile, err)
	}
	defer f.Close()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("%w: token file %s unreadable: %v", ingestion.ErrSourceAuthFailed, tokenFile, err)
	}
	if token.RefreshToken == "" && !token.Valid() {
		return nil, fmt.Errorf("%w: token in %s expired with no refresh token", ingestion.ErrSourceAuthFailed, tokenFile)
	}
	return &token, nil
}
