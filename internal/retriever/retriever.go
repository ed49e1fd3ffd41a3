// Package retriever implements the optional Origin-authentication upstream
// collaborator used by OriginLogin: given an Origin auth token it resolves
// the player's email/display name, and separately fetches their bulk
// settings blob for one-time import into local player-data storage.
//
// This is the one collaborator in the module built on net/http alone
// rather than a richer HTTP client library: the example pack carries no
// REST client beyond what each domain-specific SDK already wraps (pgx,
// testcontainers, websocket), and a single two-endpoint JSON client has no
// ecosystem library in the pack worth pulling in over five-line stdlib
// calls.
package retriever

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client calls a configured Origin-compatible identity service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client. baseURL is the origin service root (no trailing
// slash expected); timeout bounds every request this client issues.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type authenticateResponse struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// OriginAuthenticate exchanges an Origin auth token for the account's email
// and display name.
func (c *Client) OriginAuthenticate(ctx context.Context, token string) (email, displayName string, err error) {
	endpoint := c.baseURL + "/identity/authenticate?" + url.Values{"token": {token}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", "", fmt.Errorf("building origin authenticate request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("calling origin authenticate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("origin authenticate returned status %d", resp.StatusCode)
	}

	var out authenticateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("decoding origin authenticate response: %w", err)
	}
	return out.Email, out.DisplayName, nil
}

// OriginGetSettings fetches the account's bulk settings blob, to be
// imported once into local player-data storage on first origin login.
func (c *Client) OriginGetSettings(ctx context.Context) (map[string]string, error) {
	endpoint := c.baseURL + "/identity/settings"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building origin settings request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling origin settings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("origin settings returned status %d", resp.StatusCode)
	}

	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding origin settings response: %w", err)
	}
	return out, nil
}
