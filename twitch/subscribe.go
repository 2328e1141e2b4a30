/*
Copyright © 2026 aga.lol
*/

package twitch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// Subscriber registers an EventSub subscription against a live session.
// Satisfied by SubscriptionClient; narrowed to an interface so the
// session manager can be tested without Helix.
type Subscriber interface {
	Create(ctx context.Context, req SubscribeRequest) error
}

// SubscribeRequest is the JSON body POSTed to the subscriptions endpoint.
type SubscribeRequest struct {
	Type      string            `json:"type"`
	Version   string            `json:"version"`
	Condition map[string]string `json:"condition"`
	Transport Transport         `json:"transport"`
}

type Transport struct {
	Method    string `json:"method"`
	SessionID string `json:"session_id"`
}

// SubscriptionClient is a thin request/response wrapper around
// POST {helix}/eventsub/subscriptions. Used only by the session manager.
type SubscriptionClient struct {
	creds *Credentials
}

func NewSubscriptionClient(creds *Credentials) *SubscriptionClient {
	return &SubscriptionClient{creds: creds}
}

func (s *SubscriptionClient) Create(ctx context.Context, req SubscribeRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.creds.HelixURL+"/eventsub/subscriptions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	s.creds.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.creds.Client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &SubscriptionError{Type: req.Type, Status: resp.StatusCode}
	}

	return nil
}
