/*
Copyright © 2026 aga.lol
*/

// Package games holds the Chat-or-Chatbot round state machine and the
// Blackjack table. Both are pure in-memory engines; streaming input only
// reaches the round machine through its material source.
package games

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase of the guessing game.
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhasePlaying Phase = "playing"
	PhaseResult  Phase = "result"
)

// Question is the message currently being judged. Written exactly once
// at round start and cleared at round end; nothing else may touch it, so
// there is no mutable mirror to drift from.
type Question struct {
	RoundID   string `json:"round_id"`
	Text      string `json:"text"`
	Synthetic bool   `json:"-"`
}

type Score struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

// RoundResult is the outcome of one finished round.
type RoundResult struct {
	RoundID          string `json:"round_id"`
	Text             string `json:"text"`
	WasSynthetic     bool   `json:"was_synthetic"`
	GuessedSynthetic bool   `json:"guessed_synthetic"`
	Correct          bool   `json:"correct"`
	TimedOut         bool   `json:"timed_out"`
}

// Snapshot is the UI-facing view of the game.
type Snapshot struct {
	Phase    Phase        `json:"phase"`
	Question *Question    `json:"question,omitempty"`
	Result   *RoundResult `json:"result,omitempty"`
	Score    Score        `json:"score"`
}

// Source supplies intercepted chat texts and records their consumption.
// Satisfied by the message router.
type Source interface {
	TakeCandidate() (string, bool)
	MarkUsed(text string)
}

var ErrNoRound = errors.New("no round in progress")

type Logf func(format string, args ...any)

// GameConfig configures the round machine. Zero durations pick the
// defaults (30s round timeout, 5s result display).
type GameConfig struct {
	Source       Source
	Corpus       *Corpus
	RoundTimeout time.Duration
	ResultDelay  time.Duration
	// Chance decides synthetic-vs-human at round start and the forced
	// guess on timeout. Default 50%.
	Chance func() bool
	Rand   *rand.Rand
	Logf   Logf
	// OnChange is invoked with a fresh snapshot after every transition.
	OnChange func(Snapshot)
}

// Game is the single owner of the round state machine. Every mutation
// goes through its methods under one mutex; the locked question is
// immutable for the lifetime of its round.
type Game struct {
	source   Source
	corpus   *Corpus
	timeout  time.Duration
	delay    time.Duration
	chance   func() bool
	logf     Logf
	onChange func(Snapshot)

	mu       sync.Mutex
	rng      *rand.Rand
	phase    Phase
	question Question
	result   *RoundResult
	score    Score
	timer    *time.Timer
	stopped  bool
}

func NewGame(cfg GameConfig) *Game {
	if cfg.RoundTimeout <= 0 {
		cfg.RoundTimeout = 30 * time.Second
	}
	if cfg.ResultDelay <= 0 {
		cfg.ResultDelay = 5 * time.Second
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Chance == nil {
		rng := cfg.Rand
		var mu sync.Mutex
		cfg.Chance = func() bool {
			mu.Lock()
			defer mu.Unlock()
			return rng.Intn(2) == 0
		}
	}
	if cfg.Logf == nil {
		cfg.Logf = func(string, ...any) {}
	}
	if cfg.Corpus == nil {
		cfg.Corpus = DefaultCorpus()
	}

	return &Game{
		source:   cfg.Source,
		corpus:   cfg.Corpus,
		timeout:  cfg.RoundTimeout,
		delay:    cfg.ResultDelay,
		chance:   cfg.Chance,
		logf:     cfg.Logf,
		onChange: cfg.OnChange,
		rng:      cfg.Rand,
		phase:    PhaseWaiting,
	}
}

// Stop cancels any pending timers. Terminal.
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopped = true
	g.stopTimerLocked()
}

// ActiveText implements the router's RoundState view: the locked
// question's text while a round is in progress.
func (g *Game) ActiveText() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhasePlaying {
		return "", false
	}
	return g.question.Text, true
}

// Absorbing reports whether the game still wants chat material.
func (g *Game) Absorbing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.phase == PhaseWaiting
}

// Wake nudges a waiting game once material arrives.
func (g *Game) Wake() {
	g.mu.Lock()
	if g.stopped || g.phase != PhaseWaiting {
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	g.StartRound()
}

// StartRound locks a new question: a coin flip picks synthetic or human
// material; an empty pool on the human path leaves the game waiting.
// Taking the candidate unstages it, but it is only recorded as consumed
// when the round resolves, so echoes stay hidden for the whole round.
func (g *Game) StartRound() {
	g.mu.Lock()
	if g.stopped || g.phase == PhasePlaying {
		g.mu.Unlock()
		return
	}

	synthetic := g.chance()
	var text string
	if !synthetic && g.source != nil {
		if candidate, ok := g.source.TakeCandidate(); ok {
			text = candidate
		} else {
			synthetic = true
		}
	}
	if synthetic {
		text = g.corpus.Pick(g.rng)
	}
	if text == "" {
		g.phase = PhaseWaiting
		g.result = nil
		g.mu.Unlock()
		g.notify()
		return
	}

	g.question = Question{
		RoundID:   uuid.NewString(),
		Text:      text,
		Synthetic: synthetic,
	}
	g.phase = PhasePlaying
	g.result = nil

	roundID := g.question.RoundID
	g.stopTimerLocked()
	g.timer = time.AfterFunc(g.timeout, func() {
		g.roundTimedOut(roundID)
	})
	g.mu.Unlock()

	g.logf("GAME: Round %s locked (synthetic=%t)", roundID, synthetic)
	g.notify()
}

// Answer resolves the current round with the player's guess.
func (g *Game) Answer(guessSynthetic bool) (RoundResult, error) {
	g.mu.Lock()
	if g.phase != PhasePlaying {
		g.mu.Unlock()
		return RoundResult{}, ErrNoRound
	}
	res := g.resolveLocked(guessSynthetic, false)
	g.mu.Unlock()

	g.notify()
	return res, nil
}

// roundTimedOut forces a uniformly random guess for an unanswered round.
// The round id guards against a stale timer resolving a later round.
func (g *Game) roundTimedOut(roundID string) {
	g.mu.Lock()
	if g.stopped || g.phase != PhasePlaying || g.question.RoundID != roundID {
		g.mu.Unlock()
		return
	}
	res := g.resolveLocked(g.chance(), true)
	g.mu.Unlock()

	g.logf("GAME: Round %s timed out, random guess (correct=%t)", roundID, res.Correct)
	g.notify()
}

func (g *Game) resolveLocked(guessSynthetic, timedOut bool) RoundResult {
	correct := guessSynthetic == g.question.Synthetic
	if correct {
		g.score.Correct++
	} else {
		g.score.Incorrect++
	}

	res := RoundResult{
		RoundID:          g.question.RoundID,
		Text:             g.question.Text,
		WasSynthetic:     g.question.Synthetic,
		GuessedSynthetic: guessSynthetic,
		Correct:          correct,
		TimedOut:         timedOut,
	}

	// The human text joins the used set only now: for the round's whole
	// lifetime it was neither staged nor used, so echoes were hidden by
	// the active-answer rule rather than surfaced as already-consumed.
	if !g.question.Synthetic && g.source != nil {
		g.source.MarkUsed(g.question.Text)
	}

	g.result = &res
	g.phase = PhaseResult
	g.question = Question{}

	g.stopTimerLocked()
	if !g.stopped {
		g.timer = time.AfterFunc(g.delay, g.StartRound)
	}

	return res
}

func (g *Game) Score() Score {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.score
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase: g.phase,
		Score: g.score,
	}
	if g.phase == PhasePlaying {
		q := g.question
		snap.Question = &q
	}
	if g.phase == PhaseResult && g.result != nil {
		r := *g.result
		snap.Result = &r
	}
	return snap
}

func (g *Game) stopTimerLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

func (g *Game) notify() {
	if g.onChange == nil {
		return
	}
	g.onChange(g.Snapshot())
}
