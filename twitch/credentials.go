/*
Copyright © 2026 aga.lol
*/

package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
)

// DefaultHelixURL is the base URL of the Twitch Helix API.
const DefaultHelixURL = "https://api.twitch.tv/helix"

// User is the authenticated identity as returned by the user-info endpoint.
type User struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// Credentials holds the bearer token and the identity it resolves to.
// Token acquisition (the OAuth redirect dance) happens outside the core;
// the token arrives either from configuration or from the login page
// relaying it. Lifecycle is tied to the process, there is no refresh.
type Credentials struct {
	ClientID string
	HelixURL string
	Client   *http.Client

	mu    sync.RWMutex
	token string
	user  *User
}

func NewCredentials(clientID, helixURL string) *Credentials {
	if helixURL == "" {
		helixURL = DefaultHelixURL
	}
	return &Credentials{
		ClientID: clientID,
		HelixURL: helixURL,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SetToken stores a bearer token and clears any previously resolved
// identity, since it may belong to a different account.
func (c *Credentials) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
	c.user = nil
}

func (c *Credentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.token
}

func (c *Credentials) User() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.user
}

// Authenticated reports whether a token is present and has resolved to
// a user identity.
func (c *Credentials) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.token != "" && c.user != nil
}

func (c *Credentials) authorize(r *http.Request) {
	r.Header.Set("Client-ID", c.ClientID)
	r.Header.Set("Authorization", "Bearer "+c.Token())
}

// Resolve looks up the identity behind the current token via
// GET {helix}/users. A non-2xx response surfaces as IdentityLookupError.
func (c *Credentials) Resolve(ctx context.Context) (*User, error) {
	if c.Token() == "" {
		return nil, errors.New("no access token set")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.HelixURL+"/users", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &IdentityLookupError{Status: resp.StatusCode}
	}

	var body struct {
		Data []User `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, errors.New("no user data returned")
	}

	c.mu.Lock()
	c.user = &body.Data[0]
	c.mu.Unlock()

	return c.User(), nil
}
