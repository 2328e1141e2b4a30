/*
Copyright © 2026 aga.lol
*/

// Package router decides, per inbound chat message, whether it surfaces
// in the visible chat or is diverted into the hidden pool as game
// material, and applies deletion markers to the display list.
package router

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

type Logf func(format string, args ...any)

// RoundState is the narrow view of the guessing game the router needs.
// The router never holds game state of its own.
type RoundState interface {
	// ActiveText returns the locked question text and whether a round
	// is currently in progress.
	ActiveText() (string, bool)
	// Absorbing reports whether the game is still waiting for material.
	Absorbing() bool
}

// Config for a Router. Zero values pick defaults.
type Config struct {
	PoolCapacity int
	DisplayMax   int
	// Corpus is the synthetic-message fingerprint list: chat echoing one
	// of these is hidden but never pooled.
	Corpus []string
	// Chance is the probabilistic interception decision (default 50%).
	Chance func() bool
	Rand   *rand.Rand
	Logf   Logf
}

// Router applies the interception rules. All pool and used-set mutation
// happens here, under rule evaluation or through TakeCandidate/MarkUsed.
type Router struct {
	display *Display
	pool    *Pool
	corpus  []string
	chance  func() bool
	logf    Logf

	mu   sync.Mutex
	rng  *rand.Rand
	used map[string]struct{}

	rounds   RoundState
	onPooled func(pooled int)
}

func New(cfg Config) *Router {
	if cfg.Chance == nil {
		cfg.Chance = func() bool { return rand.Intn(2) == 0 }
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Logf == nil {
		cfg.Logf = func(string, ...any) {}
	}

	return &Router{
		display: NewDisplay(cfg.DisplayMax),
		pool:    NewPool(cfg.PoolCapacity),
		corpus:  cfg.Corpus,
		chance:  cfg.Chance,
		logf:    cfg.Logf,
		rng:     cfg.Rand,
		used:    make(map[string]struct{}),
	}
}

// BindRounds attaches the guessing game's round state. Optional; without
// it the router treats every message as rule-8 material.
func (r *Router) BindRounds(rs RoundState) {
	r.rounds = rs
}

// OnPooled registers a callback fired after each successful pool enqueue
// with the new pool size. Used to wake a round waiting for material.
func (r *Router) OnPooled(fn func(pooled int)) {
	r.onPooled = fn
}

func (r *Router) Display() *Display {
	return r.display
}

func (r *Router) PoolSize() int {
	return r.pool.Len()
}

// Route runs the ordered interception rules for one new chat message and
// returns true when the message must be hidden from the visible chat.
// Shown messages are appended to the display list here.
func (r *Router) Route(msg ChatMessage) bool {
	hidden := r.decide(msg.Text)
	if !hidden {
		r.display.Add(msg)
	}
	return hidden
}

// decide is first-match-wins over the rule ladder.
func (r *Router) decide(text string) bool {
	// 1. Empty or whitespace-only: never hidden, never pooled.
	if strings.TrimSpace(text) == "" {
		return false
	}

	// 2. Already consumed by a past round: safe to surface now.
	if r.isUsed(text) {
		return false
	}

	// 3. Already staged verbatim: hide, no pool mutation.
	if r.pool.Contains(text) {
		return true
	}

	absorbing := r.rounds == nil || r.rounds.Absorbing()
	active, playing := "", false
	if r.rounds != nil {
		active, playing = r.rounds.ActiveText()
	}

	// 5. The live round's answer must never leak into the feed. This
	// outranks the capacity bail-out below: hiding the answer is
	// deterministic, never subject to pool pressure.
	if playing && text == active {
		return true
	}

	// 4. Pool full and nothing waiting on it: stop absorbing.
	if r.pool.Len() >= r.pool.Capacity() && !absorbing {
		return false
	}

	// 6. Echo of a synthetic fingerprint: hide, but never pool a
	// coincidental copy of canned material.
	if r.matchesCorpus(text) {
		return true
	}

	// 7. A locked round stops absorption; display normally.
	if playing {
		return false
	}

	// 8. Probabilistic interception, capacity re-checked at enqueue.
	if !r.chance() {
		return false
	}
	if !r.pool.Add(text) {
		return false
	}

	r.logf("ROUTE: Intercepted message into pool (%d/%d)", r.pool.Len(), r.pool.Capacity())
	if r.onPooled != nil {
		r.onPooled(r.pool.Len())
	}
	return true
}

// HandleDelete flips the deletion marker for id. Idempotent; unknown ids
// (e.g. already scrolled out) are no-ops.
func (r *Router) HandleDelete(id string) bool {
	return r.display.MarkDeleted(id)
}

// TakeCandidate removes one random staged text for round use.
func (r *Router) TakeCandidate() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pool.Take(r.rng)
}

// MarkUsed records a text as consumed by a finished round; it is never
// pooled or offered again, and future echoes of it surface normally.
func (r *Router) MarkUsed(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.used[text] = struct{}{}
}

func (r *Router) isUsed(text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.used[text]
	return ok
}

func (r *Router) matchesCorpus(text string) bool {
	for _, c := range r.corpus {
		if text == c || strings.Contains(text, c) {
			return true
		}
	}
	return false
}
