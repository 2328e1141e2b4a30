/*
Copyright © 2026 aga.lol
*/

package router

import (
	"sync"

	"github.com/agalol/chatbotornot/twitch"
)

// ChatMessage is one visible chat line. Identity is the ID; deletion
// flips Deleted in place (struck-through in the UI), it never removes
// the entry.
type ChatMessage struct {
	ID        string            `json:"id"`
	Chatter   string            `json:"chatter"`
	Text      string            `json:"text"`
	Color     string            `json:"color,omitempty"`
	Fragments []twitch.Fragment `json:"fragments,omitempty"`
	Deleted   bool              `json:"deleted"`
}

// Display is the bounded buffer backing the visible chat. Oldest lines
// scroll out once the cap is reached; a deletion for a scrolled-out or
// unknown id is a no-op.
type Display struct {
	mu    sync.Mutex
	max   int
	order []string
	byID  map[string]*ChatMessage
}

func NewDisplay(max int) *Display {
	if max <= 0 {
		max = 200
	}
	return &Display{
		max:  max,
		byID: make(map[string]*ChatMessage),
	}
}

// Add appends a message. A duplicate id is ignored: an id is never
// rebound to a different text.
func (d *Display) Add(msg ChatMessage) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byID[msg.ID]; ok {
		return false
	}

	if len(d.order) >= d.max {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.byID, oldest)
	}

	m := msg
	d.order = append(d.order, m.ID)
	d.byID[m.ID] = &m
	return true
}

// MarkDeleted soft-deletes by id. Idempotent; unknown ids are no-ops.
func (d *Display) MarkDeleted(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.byID[id]
	if !ok {
		return false
	}
	m.Deleted = true
	return true
}

func (d *Display) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.order)
}

// Messages returns a snapshot in arrival order.
func (d *Display) Messages() []ChatMessage {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]ChatMessage, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, *d.byID[id])
	}
	return out
}
