/*
Copyright © 2026 aga.lol
*/

package twitch

import "encoding/json"

// EventSub WebSocket message types, as carried in metadata.message_type.
const (
	frameWelcome   = "session_welcome"
	frameKeepalive = "session_keepalive"
	frameNotify    = "notification"
	frameReconnect = "session_reconnect"
	frameRevoke    = "revocation"
)

// Envelope is the outer structure of every EventSub WebSocket frame:
// {metadata, payload}. The payload is decoded lazily depending on
// metadata.message_type.
type Envelope struct {
	Metadata Metadata        `json:"metadata"`
	Payload  json.RawMessage `json:"payload"`
}

type Metadata struct {
	MessageID           string `json:"message_id"`
	MessageType         string `json:"message_type"`
	MessageTimestamp    string `json:"message_timestamp"`
	SubscriptionType    string `json:"subscription_type,omitempty"`
	SubscriptionVersion string `json:"subscription_version,omitempty"`
}

// sessionPayload is the payload of session_welcome and session_reconnect
// frames.
type sessionPayload struct {
	Session struct {
		ID                      string `json:"id"`
		Status                  string `json:"status"`
		KeepaliveTimeoutSeconds int    `json:"keepalive_timeout_seconds"`
		ReconnectURL            string `json:"reconnect_url"`
		ConnectedAt             string `json:"connected_at"`
	} `json:"session"`
}

// NotificationPayload is the payload of notification and revocation
// frames. Event stays raw; consumers decode it against the concrete
// event type for the subscription.
type NotificationPayload struct {
	Subscription struct {
		ID        string            `json:"id"`
		Type      string            `json:"type"`
		Version   string            `json:"version"`
		Status    string            `json:"status"`
		Condition map[string]string `json:"condition"`
	} `json:"subscription"`
	Event json.RawMessage `json:"event"`
}

// Subscription topics used by the app.
const (
	TopicChatMessage       = "channel.chat.message"
	TopicChatMessageDelete = "channel.chat.message_delete"
)

// ChatMessageEvent is the event payload for channel.chat.message.
type ChatMessageEvent struct {
	BroadcasterUserName string          `json:"broadcaster_user_name"`
	ChatterUserName     string          `json:"chatter_user_name"`
	MessageID           string          `json:"message_id"`
	Color               string          `json:"color"`
	Message             ChatMessageBody `json:"message"`
}

type ChatMessageBody struct {
	Text      string     `json:"text"`
	Fragments []Fragment `json:"fragments"`
}

// Fragment is one typed span of a chat message. Type is one of
// "text", "emote", "mention" or "cheermote".
type Fragment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ChatDeleteEvent is the event payload for channel.chat.message_delete.
type ChatDeleteEvent struct {
	BroadcasterUserName string `json:"broadcaster_user_name"`
	TargetUserName      string `json:"target_user_name"`
	MessageID           string `json:"message_id"`
}

// DecodeNotification unpacks a notification (or revocation) frame's payload.
func DecodeNotification(env *Envelope) (*NotificationPayload, error) {
	var p NotificationPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
