/*
Copyright © 2026 aga.lol
*/

package twitch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubscriptionCreate(t *testing.T) {
	var got SubscribeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/eventsub/subscriptions", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		require.Equal(t, "client-abc", r.Header.Get("Client-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	creds := NewCredentials("client-abc", srv.URL)
	creds.SetToken("tok-123")

	client := NewSubscriptionClient(creds)
	err := client.Create(context.Background(), SubscribeRequest{
		Type:      TopicChatMessage,
		Version:   "1",
		Condition: map[string]string{"broadcaster_user_id": "42", "user_id": "42"},
		Transport: Transport{Method: "websocket", SessionID: "s-1"},
	})
	require.NoError(t, err)

	require.Equal(t, TopicChatMessage, got.Type)
	require.Equal(t, "websocket", got.Transport.Method)
	require.Equal(t, "s-1", got.Transport.SessionID)
	require.Equal(t, "42", got.Condition["broadcaster_user_id"])
}

func TestSubscriptionCreateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	creds := NewCredentials("client-abc", srv.URL)
	creds.SetToken("tok-123")

	client := NewSubscriptionClient(creds)
	err := client.Create(context.Background(), SubscribeRequest{
		Type:    TopicChatMessage,
		Version: "1",
	})

	var subErr *SubscriptionError
	require.ErrorAs(t, err, &subErr)
	require.Equal(t, TopicChatMessage, subErr.Type)
	require.Equal(t, http.StatusForbidden, subErr.Status)
}
