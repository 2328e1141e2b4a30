/*
Copyright © 2026 aga.lol
*/

package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/agalol/chatbotornot/games"
	"github.com/agalol/chatbotornot/router"
	"github.com/agalol/chatbotornot/twitch"
)

// App wires the EventSub session, the message router, and the games to
// the browser hub. One App per process; it serves every connected tab
// the same shared state.
type App struct {
	cfg       *Config
	hub       *Hub
	creds     *twitch.Credentials
	router    *router.Router
	game      *games.Game
	blackjack *games.Blackjack

	mu        sync.Mutex
	session   *twitch.Session
	streaming bool
	lastError string
}

func newApp(cfg *Config) *App {
	app := &App{
		cfg:       cfg,
		hub:       newHub(),
		creds:     twitch.NewCredentials(cfg.clientID, cfg.helixURL),
		blackjack: games.NewBlackjack(nil),
	}

	corpus := games.DefaultCorpus()

	app.router = router.New(router.Config{
		PoolCapacity: cfg.poolCapacity,
		DisplayMax:   cfg.displayMax,
		Corpus:       corpus.Texts(),
		Chance: func() bool {
			return rand.Float64() < cfg.interceptChance
		},
		Logf: func(format string, args ...any) {
			logf(cfg, format, args...)
		},
	})

	app.game = games.NewGame(games.GameConfig{
		Source:       app.router,
		Corpus:       corpus,
		RoundTimeout: cfg.roundTimeout,
		ResultDelay:  cfg.resultDelay,
		Logf: func(format string, args ...any) {
			logf(cfg, format, args...)
		},
		OnChange: func(snap games.Snapshot) {
			app.hub.Broadcast(GameStateMessage{Type: "game_state", State: snap})
		},
	})

	app.router.BindRounds(app.game)
	app.router.OnPooled(func(int) {
		app.game.Wake()
	})

	return app
}

// welcome catches a freshly connected client up on shared state. Sends
// go straight to this client only.
func (a *App) welcome(c *Client) {
	msgs := []any{
		a.statusMessage(),
		ChatHistoryMessage{Type: "chat_history", Messages: a.router.Display().Messages()},
		GameStateMessage{Type: "game_state", State: a.game.Snapshot()},
		BlackjackStateMessage{Type: "blackjack_state", State: a.blackjack.Snapshot()},
	}

	for _, msg := range msgs {
		select {
		case c.send <- msg:
		default:
			return
		}
	}
}

// handleClient dispatches one inbound browser message.
func (a *App) handleClient(c *Client, msg ClientMessage) {
	switch msg.Type {
	case "token":
		if msg.Token == "" {
			return
		}
		a.creds.SetToken(msg.Token)
		go a.startStreaming(context.Background())

	case "guess":
		if msg.Synthetic == nil {
			return
		}
		if _, err := a.game.Answer(*msg.Synthetic); err != nil {
			logf(a.cfg, "GAME: Guess from %s ignored: %v", c.id, err)
		}

	case "start_round":
		a.game.StartRound()

	case "blackjack":
		switch msg.Action {
		case "deal":
			a.blackjack.Deal()
		case "hit":
			a.blackjack.Hit()
		case "stand":
			a.blackjack.Stand()
		default:
			return
		}
		a.hub.Broadcast(BlackjackStateMessage{Type: "blackjack_state", State: a.blackjack.Snapshot()})

	default:
		// ignore unknown types
	}
}

// startStreaming resolves the identity behind the current token and
// brings up the EventSub session. Safe to call again after a token
// change or a fatal session error.
func (a *App) startStreaming(ctx context.Context) {
	a.mu.Lock()
	if a.streaming {
		a.mu.Unlock()
		return
	}
	a.streaming = true
	a.lastError = ""
	a.mu.Unlock()

	resolveCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	user, err := a.creds.Resolve(resolveCtx)
	cancel()
	if err != nil {
		a.fail("login failed: " + err.Error())
		return
	}
	logf(a.cfg, "TWITCH: Logged in as %s", user.Login)

	a.mu.Lock()
	if a.session != nil {
		a.session.Disconnect()
	}
	session := twitch.NewSession(twitch.SessionOpts{
		URL:           a.cfg.eventsubURL,
		MaxReconnects: a.cfg.maxReconnects,
		Subscriber:    twitch.NewSubscriptionClient(a.creds),
		Logf: func(format string, args ...any) {
			logf(a.cfg, format, args...)
		},
	})
	a.session = session
	a.mu.Unlock()

	session.On(twitch.EventConnected, func(e twitch.Event) {
		go a.subscribeTopics(session, e.SessionID)
	})
	session.On(twitch.TopicChatMessage, a.onChatMessage)
	session.On(twitch.TopicChatMessageDelete, a.onChatDelete)
	session.On(twitch.EventSilenced, func(twitch.Event) {
		a.broadcastStatus()
	})
	session.On(twitch.EventRevocation, func(e twitch.Event) {
		logf(a.cfg, "TWITCH: Subscription revoked")
		a.broadcastStatus()
	})
	session.On(twitch.EventMaxReconnects, func(twitch.Event) {
		a.fail("connection lost: too many failed reconnect attempts")
	})

	if err := session.Connect(ctx); err != nil {
		a.fail("connect failed: " + err.Error())
		return
	}

	a.broadcastStatus()
}

// subscribeTopics registers both chat topics against a fresh session id.
// Runs on every welcome, since subscriptions die with their session.
func (a *App) subscribeTopics(session *twitch.Session, sessionID string) {
	user := a.creds.User()
	if user == nil {
		return
	}

	condition := map[string]string{
		"broadcaster_user_id": user.ID,
		"user_id":             user.ID,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, topic := range []string{twitch.TopicChatMessage, twitch.TopicChatMessageDelete} {
		if err := session.Subscribe(ctx, topic, "1", condition); err != nil {
			logf(a.cfg, "TWITCH: Subscribe %s failed: %v", topic, err)
			a.fail("subscribe failed: " + err.Error())
			return
		}
	}

	logf(a.cfg, "TWITCH: Session %s live", sessionID)
	a.broadcastStatus()
}

func (a *App) onChatMessage(e twitch.Event) {
	payload, err := twitch.DecodeNotification(e.Frame)
	if err != nil {
		logf(a.cfg, "TWITCH: Bad notification payload: %v", err)
		return
	}

	var ev twitch.ChatMessageEvent
	if err := json.Unmarshal(payload.Event, &ev); err != nil {
		logf(a.cfg, "TWITCH: Bad chat message event: %v", err)
		return
	}

	a.deliver(router.ChatMessage{
		ID:        ev.MessageID,
		Chatter:   ev.ChatterUserName,
		Text:      ev.Message.Text,
		Color:     ev.Color,
		Fragments: ev.Message.Fragments,
	})
}

func (a *App) onChatDelete(e twitch.Event) {
	payload, err := twitch.DecodeNotification(e.Frame)
	if err != nil {
		logf(a.cfg, "TWITCH: Bad notification payload: %v", err)
		return
	}

	var ev twitch.ChatDeleteEvent
	if err := json.Unmarshal(payload.Event, &ev); err != nil {
		logf(a.cfg, "TWITCH: Bad chat delete event: %v", err)
		return
	}

	if a.router.HandleDelete(ev.MessageID) {
		a.hub.Broadcast(ChatDeleteMessage{Type: "chat_delete", ID: ev.MessageID})
	}
}

// deliver routes one inbound chat message; messages the router doesn't
// divert into the game pool surface in every connected tab.
func (a *App) deliver(msg router.ChatMessage) {
	if a.router.Route(msg) {
		return
	}
	a.hub.Broadcast(ChatLineMessage{Type: "chat_message", Message: msg})
}

func (a *App) fail(reason string) {
	a.mu.Lock()
	a.streaming = false
	a.lastError = reason
	a.mu.Unlock()

	logf(a.cfg, "TWITCH: %s", reason)
	a.broadcastStatus()
}

func (a *App) broadcastStatus() {
	a.hub.Broadcast(a.statusMessage())
}

func (a *App) statusMessage() StatusMessage {
	a.mu.Lock()
	session := a.session
	lastError := a.lastError
	a.mu.Unlock()

	state := "idle"
	if a.cfg.demo {
		state = "demo"
	} else if session != nil {
		state = session.Status().String()
	}

	return StatusMessage{
		Type:          "status",
		State:         state,
		Authenticated: a.creds.Authenticated(),
		Demo:          a.cfg.demo,
		User:          a.creds.User(),
		AuthURL:       a.authURL(),
		Error:         lastError,
	}
}

// authURL builds the implicit-grant login URL the browser is sent to.
// The token comes back in the redirect fragment and the page relays it
// over the websocket.
func (a *App) authURL() string {
	if a.cfg.clientID == "" {
		return ""
	}

	redirect := a.cfg.redirectURI
	if redirect == "" {
		redirect = a.cfg.scheme() + "://localhost:" + strconv.Itoa(a.cfg.port) + a.cfg.prefix + "/"
	}

	q := url.Values{}
	q.Set("client_id", a.cfg.clientID)
	q.Set("redirect_uri", redirect)
	q.Set("response_type", "token")
	q.Set("scope", "user:read:chat")

	return "https://id.twitch.tv/oauth2/authorize?" + q.Encode()
}

// shutdown tears the app down at server exit.
func (a *App) shutdown() {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()

	if session != nil {
		session.Disconnect()
	}
	a.game.Stop()
	a.hub.closeAll()
}
