/*
Copyright © 2026 aga.lol
*/

// Package twitch implements the Twitch EventSub WebSocket protocol for a
// single streamer session: credential holding, the subscribe handshake,
// keepalive supervision, and recovery from disconnects and
// server-directed reconnects.
package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// DefaultEventSubURL is the production EventSub WebSocket endpoint.
const DefaultEventSubURL = "wss://eventsub.wss.twitch.tv/ws"

// State is the connection state of the logical EventSub session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateWelcomed
	StateSubscribing
	StateLive
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateWelcomed:
		return "welcomed"
	case StateSubscribing:
		return "subscribing"
	case StateLive:
		return "live"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Synthetic event names delivered alongside subscription topics.
const (
	EventConnected     = "connected"
	EventKeepalive     = "session_keepalive"
	EventSilenced      = "session_silenced"
	EventRevocation    = "revocation"
	EventMaxReconnects = "max_reconnect_attempts"
)

// Event is what registered handlers receive. SessionID is set for
// EventConnected; Frame is set for notification and revocation events.
type Event struct {
	Name      string
	SessionID string
	Frame     *Envelope
}

type Handler func(Event)

// Logf matches the shape of the app's verbose logger. May be nil.
type Logf func(format string, args ...any)

// SessionOpts configures a Session. Zero values pick production defaults.
type SessionOpts struct {
	URL           string
	MaxReconnects int
	Subscriber    Subscriber
	Dialer        *websocket.Dialer
	Logf          Logf
}

// Session owns at most one EventSub WebSocket transport at a time and
// exposes a named-event subscription interface that survives transport
// churn. Subscriptions do NOT survive a session swap: every EventConnected
// carries a fresh session id and the caller must re-subscribe its topics.
//
// Each physical transport carries a generation number; frames from a
// retired generation are dropped, so a reconnect handoff never interleaves
// two session contexts.
type Session struct {
	url        string
	maxRetries int
	subs       Subscriber
	dialer     *websocket.Dialer
	logf       Logf

	mu           sync.Mutex
	state        State
	id           string
	keepalive    time.Duration
	watchdog     *time.Timer
	conn         *websocket.Conn
	gen          int
	pendingConn  *websocket.Conn
	pendingGen   int
	nextGen      int
	subscribed   map[string]struct{}
	attempts     int
	reconnecting bool
	silenced     bool
	closed       bool
	done         chan struct{}

	hmu      sync.Mutex
	handlers map[string][]handlerEntry
	hseq     int
}

type handlerEntry struct {
	id int
	fn Handler
}

func NewSession(opts SessionOpts) *Session {
	if opts.URL == "" {
		opts.URL = DefaultEventSubURL
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = 5
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}

	return &Session{
		url:        opts.URL,
		maxRetries: opts.MaxReconnects,
		subs:       opts.Subscriber,
		dialer:     opts.Dialer,
		logf:       opts.Logf,
		done:       make(chan struct{}),
		handlers:   make(map[string][]handlerEntry),
	}
}

// On registers a handler for a named event (a synthetic event or a
// subscription topic) and returns its unsubscribe handle. Handlers for
// one event run in registration order.
func (s *Session) On(name string, fn Handler) func() {
	s.hmu.Lock()
	s.hseq++
	id := s.hseq
	s.handlers[name] = append(s.handlers[name], handlerEntry{id: id, fn: fn})
	s.hmu.Unlock()

	return func() {
		s.hmu.Lock()
		defer s.hmu.Unlock()

		list := s.handlers[name]
		for i, e := range list {
			if e.id == id {
				s.handlers[name] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
}

// Status returns the current connection state.
func (s *Session) Status() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// SessionID returns the live session id, or "" before the welcome.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.id
}

// Connect opens the transport. It returns once the dial completes; the
// welcome (and the session id) arrives asynchronously as an
// EventConnected event, so callers should register handlers first.
// A failed dial surfaces as *ConnectionError and may be retried.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("session disconnected")
	}
	if s.state != StateIdle && s.state != StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateConnecting
	s.attempts = 0
	s.mu.Unlock()

	conn, err := s.dial(ctx, s.url)
	if err != nil {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		return &ConnectionError{URL: s.url, Err: err}
	}

	s.adopt(conn)
	return nil
}

// Disconnect is caller-initiated and idempotent: watchdog cancelled,
// transport closed, state Closed, no reconnection.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.state = StateClosed
	s.stopWatchdogLocked()
	conn, pending := s.conn, s.pendingConn
	s.conn, s.pendingConn = nil, nil
	s.gen, s.pendingGen = 0, 0
	close(s.done)
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if pending != nil {
		_ = pending.Close()
	}
}

// Subscribe registers a topic against the live session id. Requires an
// established session (ErrNotReady otherwise). Re-subscribing a topic
// already held by the current session is a no-op.
func (s *Session) Subscribe(ctx context.Context, topic, version string, condition map[string]string) error {
	s.mu.Lock()
	if s.id == "" {
		s.mu.Unlock()
		return ErrNotReady
	}
	if _, ok := s.subscribed[topic]; ok {
		s.mu.Unlock()
		return nil
	}
	if s.state == StateWelcomed {
		s.state = StateSubscribing
	}
	id := s.id
	s.mu.Unlock()

	err := s.subs.Create(ctx, SubscribeRequest{
		Type:      topic,
		Version:   version,
		Condition: condition,
		Transport: Transport{Method: "websocket", SessionID: id},
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if s.state == StateSubscribing {
			s.state = StateWelcomed
		}
		return err
	}
	if s.id == id {
		if s.subscribed == nil {
			s.subscribed = make(map[string]struct{})
		}
		s.subscribed[topic] = struct{}{}
		s.state = StateLive
	}
	return nil
}

func (s *Session) dial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, resp, err := s.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// adopt installs conn as the active transport and starts its read pump.
func (s *Session) adopt(conn *websocket.Conn) {
	s.mu.Lock()
	s.nextGen++
	gen := s.nextGen
	s.conn = conn
	s.gen = gen
	s.mu.Unlock()

	go s.readLoop(conn, gen)
}

func (s *Session) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.transportClosed(gen)
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.logf("eventsub: discarding malformed frame: %v", err)
			continue
		}

		s.handleFrame(gen, &env)
	}
}

// handleFrame classifies one inbound frame. Dispatch is synchronous but
// handler panics are isolated, so a faulty consumer cannot stall the
// read pump or starve later handlers.
func (s *Session) handleFrame(gen int, env *Envelope) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	active := gen == s.gen && gen != 0
	pending := gen == s.pendingGen && gen != 0
	if !active && !pending {
		// Retired transport; its session context is gone.
		s.mu.Unlock()
		return
	}
	if pending && env.Metadata.MessageType != frameWelcome {
		// The replacement transport only takes over at its welcome.
		s.mu.Unlock()
		return
	}
	if env.Metadata.MessageType != frameWelcome && s.id == "" {
		s.mu.Unlock()
		s.logf("eventsub: dropping %q frame before session welcome", env.Metadata.MessageType)
		return
	}

	switch env.Metadata.MessageType {
	case frameWelcome:
		var p sessionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			s.mu.Unlock()
			s.logf("eventsub: malformed welcome payload: %v", err)
			return
		}
		if pending {
			// Handoff: the old transport is retired only now that the
			// new one has its own session.
			old := s.conn
			s.conn, s.gen = s.pendingConn, s.pendingGen
			s.pendingConn, s.pendingGen = nil, 0
			if old != nil {
				_ = old.Close()
			}
		}
		s.id = p.Session.ID
		s.keepalive = time.Duration(p.Session.KeepaliveTimeoutSeconds) * time.Second
		s.state = StateWelcomed
		s.subscribed = make(map[string]struct{})
		s.attempts = 0
		s.armWatchdogLocked()
		id, keepalive := s.id, s.keepalive
		s.mu.Unlock()

		s.logf("TWITCH: Session %s welcomed (keepalive %s)", id, keepalive)
		s.emit(Event{Name: EventConnected, SessionID: id})

	case frameKeepalive:
		s.armWatchdogLocked()
		s.mu.Unlock()

		s.emit(Event{Name: EventKeepalive})

	case frameNotify:
		s.armWatchdogLocked()
		topic := env.Metadata.SubscriptionType
		s.mu.Unlock()

		if topic == "" {
			s.logf("eventsub: notification without subscription type")
			return
		}
		s.emit(Event{Name: topic, Frame: env})

	case frameReconnect:
		s.armWatchdogLocked()
		var p sessionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			s.mu.Unlock()
			s.logf("eventsub: malformed reconnect payload: %v", err)
			return
		}
		s.mu.Unlock()

		s.logf("TWITCH: Server-directed reconnect to %s", p.Session.ReconnectURL)
		go s.migrate(p.Session.ReconnectURL)

	case frameRevoke:
		s.armWatchdogLocked()
		s.mu.Unlock()

		s.emit(Event{Name: EventRevocation, Frame: env})

	default:
		s.armWatchdogLocked()
		s.mu.Unlock()

		s.logf("eventsub: ignoring unknown frame type %q", env.Metadata.MessageType)
	}
}

// migrate dials the server-supplied URL while the old transport keeps
// delivering, avoiding a gap. The swap happens on the new welcome.
func (s *Session) migrate(url string) {
	if url == "" {
		s.scheduleReconnect()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	conn, err := s.dial(ctx, url)
	cancel()
	if err != nil {
		s.logf("eventsub: server-directed reconnect failed: %v", err)
		s.scheduleReconnect()
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.state = StateReconnecting
	s.nextGen++
	s.pendingConn = conn
	s.pendingGen = s.nextGen
	gen := s.pendingGen
	s.mu.Unlock()

	go s.readLoop(conn, gen)
}

func (s *Session) transportClosed(gen int) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	switch gen {
	case s.pendingGen:
		// Handoff candidate died before its welcome.
		s.pendingConn, s.pendingGen = nil, 0
		if s.conn != nil {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		s.scheduleReconnect()

	case s.gen:
		s.conn, s.gen = nil, 0
		if s.pendingGen != 0 {
			// Migration in flight; the new transport takes over on welcome.
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		s.logf("eventsub: transport closed unexpectedly")
		s.scheduleReconnect()

	default:
		s.mu.Unlock()
	}
}

func (s *Session) armWatchdogLocked() {
	s.silenced = false
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
	if s.keepalive <= 0 || s.closed {
		return
	}

	gen := s.gen
	// 1.5x the advertised timeout before declaring the peer gone.
	s.watchdog = time.AfterFunc(s.keepalive*3/2, func() {
		s.watchdogExpired(gen)
	})
}

func (s *Session) stopWatchdogLocked() {
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
}

func (s *Session) watchdogExpired(gen int) {
	s.mu.Lock()
	if s.closed || gen != s.gen || s.silenced {
		s.mu.Unlock()
		return
	}
	s.silenced = true
	s.mu.Unlock()

	s.emit(Event{Name: EventSilenced})
	s.logf("TWITCH: No frames within keepalive window, reconnecting")
	s.scheduleReconnect()
}

// scheduleReconnect voids the current session (its subscriptions die with
// it) and starts the capped-backoff redial loop.
func (s *Session) scheduleReconnect() {
	s.mu.Lock()
	if s.closed || s.reconnecting {
		s.mu.Unlock()
		return
	}
	s.reconnecting = true
	s.state = StateReconnecting
	s.id = ""
	s.subscribed = nil
	s.stopWatchdogLocked()
	conn := s.conn
	s.conn, s.gen = nil, 0
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	go s.reconnectLoop()
}

func (s *Session) reconnectLoop() {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	for {
		s.mu.Lock()
		if s.closed {
			s.reconnecting = false
			s.mu.Unlock()
			return
		}
		s.attempts++
		attempt := s.attempts
		s.mu.Unlock()

		if attempt > s.maxRetries {
			s.mu.Lock()
			s.state = StateClosed
			s.reconnecting = false
			s.mu.Unlock()

			s.logf("TWITCH: Giving up after %d reconnect attempts", s.maxRetries)
			s.emit(Event{Name: EventMaxReconnects})
			return
		}

		wait := bo.NextBackOff()
		s.logf("TWITCH: Reconnect attempt %d in %s", attempt, wait)

		select {
		case <-time.After(wait):
		case <-s.done:
			s.mu.Lock()
			s.reconnecting = false
			s.mu.Unlock()
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		conn, err := s.dial(ctx, s.url)
		cancel()
		if err != nil {
			s.logf("TWITCH: Reconnect attempt %d failed: %v", attempt, err)
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.reconnecting = false
		s.mu.Unlock()

		s.adopt(conn)
		return
	}
}

func (s *Session) emit(e Event) {
	s.hmu.Lock()
	entries := append([]handlerEntry(nil), s.handlers[e.Name]...)
	s.hmu.Unlock()

	for _, h := range entries {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logf("eventsub: handler for %q panicked: %v", e.Name, r)
				}
			}()
			h.fn(e)
		}()
	}
}
