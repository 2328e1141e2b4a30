/*
Copyright © 2026 aga.lol
*/

package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// fakeEventSub is a WebSocket endpoint that hands each accepted
// connection to the test for scripted frame injection.
type fakeEventSub struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
}

func newFakeEventSub(t *testing.T) *fakeEventSub {
	t.Helper()

	f := &fakeEventSub{
		conns: make(chan *websocket.Conn, 8),
	}

	up := websocket.Upgrader{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.conns <- conn
	}))
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeEventSub) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func (f *fakeEventSub) accept(t *testing.T) *websocket.Conn {
	t.Helper()

	select {
	case conn := <-f.conns:
		return conn
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for connection")
		return nil
	}
}

func sendFrame(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func welcomeFrame(id string, keepaliveSeconds int) string {
	return fmt.Sprintf(`{
		"metadata": {"message_id": "m1", "message_type": "session_welcome"},
		"payload": {"session": {"id": %q, "status": "connected", "keepalive_timeout_seconds": %d}}
	}`, id, keepaliveSeconds)
}

func reconnectFrame(url string) string {
	return fmt.Sprintf(`{
		"metadata": {"message_id": "m2", "message_type": "session_reconnect"},
		"payload": {"session": {"id": "s-old", "status": "reconnecting", "reconnect_url": %q}}
	}`, url)
}

func chatFrame(text string) string {
	return fmt.Sprintf(`{
		"metadata": {"message_id": "m3", "message_type": "notification", "subscription_type": "channel.chat.message", "subscription_version": "1"},
		"payload": {
			"subscription": {"id": "sub1", "type": "channel.chat.message", "version": "1", "status": "enabled"},
			"event": {"chatter_user_name": "viewer", "message_id": "msg1", "message": {"text": %q}}
		}
	}`, text)
}

const keepaliveFrame = `{
	"metadata": {"message_id": "m4", "message_type": "session_keepalive"},
	"payload": {}
}`

type stubSubscriber struct {
	mu   sync.Mutex
	reqs []SubscribeRequest
	err  error
}

func (s *stubSubscriber) Create(_ context.Context, req SubscribeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.reqs = append(s.reqs, req)
	return nil
}

func (s *stubSubscriber) requests() []SubscribeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SubscribeRequest(nil), s.reqs...)
}

func collectEvents(s *Session, names ...string) <-chan Event {
	ch := make(chan Event, 64)
	for _, name := range names {
		s.On(name, func(e Event) {
			ch <- e
		})
	}
	return ch
}

func waitEvent(t *testing.T, ch <-chan Event, name string) Event {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.Name == name {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", name)
		}
	}
}

func TestSessionWelcome(t *testing.T) {
	f := newFakeEventSub(t)

	s := NewSession(SessionOpts{URL: f.url()})
	defer s.Disconnect()

	events := collectEvents(s, EventConnected, EventKeepalive)

	require.NoError(t, s.Connect(context.Background()))
	conn := f.accept(t)

	sendFrame(t, conn, welcomeFrame("s-1", 10))

	e := waitEvent(t, events, EventConnected)
	require.Equal(t, "s-1", e.SessionID)
	require.Equal(t, "s-1", s.SessionID())
	require.Equal(t, StateWelcomed, s.Status())

	sendFrame(t, conn, keepaliveFrame)
	waitEvent(t, events, EventKeepalive)
}

func TestConnectFailure(t *testing.T) {
	s := NewSession(SessionOpts{URL: "ws://127.0.0.1:1/ws"})
	defer s.Disconnect()

	err := s.Connect(context.Background())
	require.Error(t, err)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, StateIdle, s.Status())
}

func TestSubscribeFlow(t *testing.T) {
	f := newFakeEventSub(t)
	subs := &stubSubscriber{}

	s := NewSession(SessionOpts{URL: f.url(), Subscriber: subs})
	defer s.Disconnect()

	events := collectEvents(s, EventConnected)

	// Before any session exists, subscribing must refuse cleanly.
	err := s.Subscribe(context.Background(), TopicChatMessage, "1", nil)
	require.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, s.Connect(context.Background()))
	conn := f.accept(t)
	sendFrame(t, conn, welcomeFrame("s-1", 10))
	waitEvent(t, events, EventConnected)

	condition := map[string]string{"broadcaster_user_id": "42", "user_id": "42"}
	require.NoError(t, s.Subscribe(context.Background(), TopicChatMessage, "1", condition))
	require.Equal(t, StateLive, s.Status())

	reqs := subs.requests()
	require.Len(t, reqs, 1)
	require.Equal(t, TopicChatMessage, reqs[0].Type)
	require.Equal(t, "1", reqs[0].Version)
	require.Equal(t, condition, reqs[0].Condition)
	require.Equal(t, "websocket", reqs[0].Transport.Method)
	require.Equal(t, "s-1", reqs[0].Transport.SessionID)

	// Re-subscribing the same topic on the same session is a no-op.
	require.NoError(t, s.Subscribe(context.Background(), TopicChatMessage, "1", condition))
	require.Len(t, subs.requests(), 1)
}

func TestNotificationDispatch(t *testing.T) {
	f := newFakeEventSub(t)

	s := NewSession(SessionOpts{URL: f.url()})
	defer s.Disconnect()

	events := collectEvents(s, EventConnected, TopicChatMessage)

	require.NoError(t, s.Connect(context.Background()))
	conn := f.accept(t)
	sendFrame(t, conn, welcomeFrame("s-1", 10))
	waitEvent(t, events, EventConnected)

	sendFrame(t, conn, chatFrame("hello there"))

	e := waitEvent(t, events, TopicChatMessage)
	require.NotNil(t, e.Frame)

	payload, err := DecodeNotification(e.Frame)
	require.NoError(t, err)

	var ev ChatMessageEvent
	require.NoError(t, json.Unmarshal(payload.Event, &ev))
	require.Equal(t, "hello there", ev.Message.Text)
	require.Equal(t, "viewer", ev.ChatterUserName)
}

func TestFramesBeforeWelcomeDropped(t *testing.T) {
	f := newFakeEventSub(t)

	s := NewSession(SessionOpts{URL: f.url()})
	defer s.Disconnect()

	events := collectEvents(s, EventConnected, TopicChatMessage)

	require.NoError(t, s.Connect(context.Background()))
	conn := f.accept(t)

	// A notification before the welcome has no session context.
	sendFrame(t, conn, chatFrame("too early"))
	sendFrame(t, conn, welcomeFrame("s-1", 10))

	// The very first event out must be the welcome, not the stray
	// notification.
	select {
	case e := <-events:
		require.Equal(t, EventConnected, e.Name)
		require.Equal(t, "s-1", e.SessionID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for welcome")
	}

	select {
	case stray := <-events:
		t.Fatalf("unexpected event %q", stray.Name)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestServerDirectedReconnect(t *testing.T) {
	first := newFakeEventSub(t)
	second := newFakeEventSub(t)

	s := NewSession(SessionOpts{URL: first.url()})
	defer s.Disconnect()

	events := collectEvents(s, EventConnected, TopicChatMessage)

	require.NoError(t, s.Connect(context.Background()))
	oldConn := first.accept(t)
	sendFrame(t, oldConn, welcomeFrame("s-old", 10))
	waitEvent(t, events, EventConnected)

	sendFrame(t, oldConn, reconnectFrame(second.url()))
	newConn := second.accept(t)

	// Until the new transport is welcomed, the old one still delivers.
	sendFrame(t, oldConn, chatFrame("still here"))
	waitEvent(t, events, TopicChatMessage)

	sendFrame(t, newConn, welcomeFrame("s-new", 10))

	e := waitEvent(t, events, EventConnected)
	require.Equal(t, "s-new", e.SessionID)
	require.Equal(t, "s-new", s.SessionID())

	// The old transport is closed at handoff.
	_ = oldConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := oldConn.ReadMessage()
	require.Error(t, err)

	// And the new transport carries notifications.
	sendFrame(t, newConn, chatFrame("after handoff"))
	waitEvent(t, events, TopicChatMessage)
}

func TestKeepaliveWatchdogReconnects(t *testing.T) {
	f := newFakeEventSub(t)

	s := NewSession(SessionOpts{URL: f.url()})
	defer s.Disconnect()

	events := collectEvents(s, EventConnected, EventSilenced)

	require.NoError(t, s.Connect(context.Background()))
	conn := f.accept(t)
	sendFrame(t, conn, welcomeFrame("s-1", 1))
	waitEvent(t, events, EventConnected)

	// Send nothing: the watchdog (1.5x keepalive) must fire exactly once
	// and trigger a redial.
	waitEvent(t, events, EventSilenced)

	conn2 := f.accept(t)
	sendFrame(t, conn2, welcomeFrame("s-2", 10))

	e := waitEvent(t, events, EventConnected)
	require.Equal(t, "s-2", e.SessionID)

	select {
	case stray := <-events:
		require.NotEqual(t, EventSilenced, stray.Name, "watchdog fired twice")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMaxReconnectAttempts(t *testing.T) {
	f := newFakeEventSub(t)

	s := NewSession(SessionOpts{URL: f.url(), MaxReconnects: 1})
	defer s.Disconnect()

	events := collectEvents(s, EventConnected, EventMaxReconnects)

	require.NoError(t, s.Connect(context.Background()))
	conn := f.accept(t)
	sendFrame(t, conn, welcomeFrame("s-1", 30))
	waitEvent(t, events, EventConnected)

	// Kill the endpoint entirely so every redial fails. The upgraded
	// connection is hijacked, so the server's Close never reaches it;
	// drop it by hand to make the read loop fail.
	f.srv.Close()
	_ = conn.Close()

	waitEvent(t, events, EventMaxReconnects)
	require.Equal(t, StateClosed, s.Status())
}

func TestDisconnectIdempotent(t *testing.T) {
	f := newFakeEventSub(t)

	s := NewSession(SessionOpts{URL: f.url()})
	events := collectEvents(s, EventConnected)

	require.NoError(t, s.Connect(context.Background()))
	conn := f.accept(t)
	sendFrame(t, conn, welcomeFrame("s-1", 10))
	waitEvent(t, events, EventConnected)

	s.Disconnect()
	s.Disconnect()
	require.Equal(t, StateClosed, s.Status())

	require.Error(t, s.Connect(context.Background()))
}

func TestHandlerPanicIsolated(t *testing.T) {
	f := newFakeEventSub(t)

	s := NewSession(SessionOpts{URL: f.url()})
	defer s.Disconnect()

	survived := make(chan struct{}, 1)
	s.On(TopicChatMessage, func(Event) {
		panic("boom")
	})
	s.On(TopicChatMessage, func(Event) {
		survived <- struct{}{}
	})

	events := collectEvents(s, EventConnected)

	require.NoError(t, s.Connect(context.Background()))
	conn := f.accept(t)
	sendFrame(t, conn, welcomeFrame("s-1", 10))
	waitEvent(t, events, EventConnected)

	sendFrame(t, conn, chatFrame("does the pump survive"))

	select {
	case <-survived:
	case <-time.After(5 * time.Second):
		t.Fatal("second handler never ran")
	}

	// The read pump must still be alive after the panic.
	sendFrame(t, conn, chatFrame("again"))
	select {
	case <-survived:
	case <-time.After(5 * time.Second):
		t.Fatal("read pump died after handler panic")
	}
}

func TestUnsubscribeHandler(t *testing.T) {
	f := newFakeEventSub(t)

	s := NewSession(SessionOpts{URL: f.url()})
	defer s.Disconnect()

	got := make(chan string, 8)
	cancel := s.On(TopicChatMessage, func(Event) {
		got <- "first"
	})
	s.On(TopicChatMessage, func(Event) {
		got <- "second"
	})

	events := collectEvents(s, EventConnected)

	require.NoError(t, s.Connect(context.Background()))
	conn := f.accept(t)
	sendFrame(t, conn, welcomeFrame("s-1", 10))
	waitEvent(t, events, EventConnected)

	cancel()
	sendFrame(t, conn, chatFrame("only one listener left"))

	select {
	case name := <-got:
		require.Equal(t, "second", name)
	case <-time.After(5 * time.Second):
		t.Fatal("remaining handler never ran")
	}
}
