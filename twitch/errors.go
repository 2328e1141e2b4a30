/*
Copyright © 2026 aga.lol
*/

package twitch

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned when an operation requires an established
// EventSub session (state Welcomed or later) and none exists yet.
var ErrNotReady = errors.New("eventsub session not established")

// ConnectionError wraps a transport-level failure while dialing the
// EventSub endpoint. Retryable via backoff.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("eventsub connect %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// SubscriptionError reports a non-2xx response from the subscriptions
// endpoint. Not auto-retried.
type SubscriptionError struct {
	Type   string
	Status int
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscribe to %s: status %d", e.Type, e.Status)
}

// IdentityLookupError reports a non-2xx response from the user-info
// endpoint.
type IdentityLookupError struct {
	Status int
}

func (e *IdentityLookupError) Error() string {
	return fmt.Sprintf("identity lookup: status %d", e.Status)
}
