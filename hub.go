/*
Copyright © 2026 aga.lol
*/

package main

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/agalol/chatbotornot/games"
	"github.com/agalol/chatbotornot/router"
	"github.com/agalol/chatbotornot/twitch"
)

// Messages coming from the browser
type ClientMessage struct {
	Type      string `json:"type"`                // "token", "guess", "start_round", "blackjack"
	Token     string `json:"token,omitempty"`     // token
	Synthetic *bool  `json:"synthetic,omitempty"` // guess
	Action    string `json:"action,omitempty"`    // blackjack: "deal", "hit", "stand"
}

// Messages sent to the browser
type ChatLineMessage struct {
	Type    string             `json:"type"` // "chat_message"
	Message router.ChatMessage `json:"message"`
}

type ChatDeleteMessage struct {
	Type string `json:"type"` // "chat_delete"
	ID   string `json:"id"`
}

type ChatHistoryMessage struct {
	Type     string               `json:"type"` // "chat_history"
	Messages []router.ChatMessage `json:"messages"`
}

// StatusMessage carries the connection and login state, sent on connect
// and after every transition.
type StatusMessage struct {
	Type          string       `json:"type"` // "status"
	State         string       `json:"state"`
	Authenticated bool         `json:"authenticated"`
	Demo          bool         `json:"demo"`
	User          *twitch.User `json:"user,omitempty"`
	AuthURL       string       `json:"auth_url,omitempty"`
	Error         string       `json:"error,omitempty"`
}

type GameStateMessage struct {
	Type  string         `json:"type"` // "game_state"
	State games.Snapshot `json:"state"`
}

type BlackjackStateMessage struct {
	Type  string                  `json:"type"` // "blackjack_state"
	State games.BlackjackSnapshot `json:"state"`
}

type Client struct {
	conn *websocket.Conn
	send chan any
	id   string
}

// Hub fans application messages out to every connected browser tab.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]bool
}

func newHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

// Broadcast sends msg to every client, dropping clients whose send
// buffer is full rather than blocking the caller.
func (h *Hub) Broadcast(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = true
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// closeAll disconnects every client, used at shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWS(cfg *Config, app *App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "WS: Upgrade error from %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 16),
			id:   uuid.NewString(),
		}

		app.hub.add(client)
		logf(cfg, "WS: Client %s connected from %s", client.id, realIP(r))

		go client.writePump()
		app.welcome(client)
		client.readPump(app)
	}
}

func (c *Client) readPump(app *App) {
	defer func() {
		app.hub.remove(c)
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		app.handleClient(c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
