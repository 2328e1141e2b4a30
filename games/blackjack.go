/*
Copyright © 2026 aga.lol
*/

package games

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Standalone single-player Blackjack. Pure rules engine, no streaming
// input: dealer hits to 17, aces fall back from 11 to 1 as needed, a
// natural 21 wins immediately.

var (
	suits  = []string{"♠", "♥", "♦", "♣"}
	values = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}
)

type Card struct {
	Suit   string `json:"suit"`
	Value  string `json:"value"`
	Hidden bool   `json:"hidden,omitempty"`
}

type BlackjackPhase string

const (
	BJInitial    BlackjackPhase = "initial"
	BJPlayerTurn BlackjackPhase = "playerTurn"
	BJDealerTurn BlackjackPhase = "dealerTurn"
	BJGameOver   BlackjackPhase = "gameOver"
)

type BlackjackResult string

const (
	BJWinPlayer    BlackjackResult = "player"
	BJWinDealer    BlackjackResult = "dealer"
	BJPush         BlackjackResult = "push"
	BJWinBlackjack BlackjackResult = "blackjack"
)

// BlackjackSnapshot is the UI-facing table state. The dealer's hole card
// stays hidden (and out of the dealer total) until the dealer's turn.
type BlackjackSnapshot struct {
	Phase       BlackjackPhase  `json:"phase"`
	Player      []Card          `json:"player"`
	Dealer      []Card          `json:"dealer"`
	PlayerTotal int             `json:"player_total"`
	DealerTotal int             `json:"dealer_total"`
	Result      BlackjackResult `json:"result,omitempty"`
	Message     string          `json:"message"`
}

type Blackjack struct {
	mu      sync.Mutex
	rng     *rand.Rand
	deck    []Card
	player  []Card
	dealer  []Card
	phase   BlackjackPhase
	result  BlackjackResult
	message string
}

func NewBlackjack(rng *rand.Rand) *Blackjack {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Blackjack{
		rng:     rng,
		phase:   BJInitial,
		message: "Welcome to Blackjack!",
	}
}

// HandValue totals a hand, counting aces as 11 and dropping them to 1
// while the total busts. Hidden cards don't count.
func HandValue(hand []Card) int {
	value, aces := 0, 0
	for _, c := range hand {
		if c.Hidden {
			continue
		}
		switch c.Value {
		case "A":
			aces++
			value += 11
		case "J", "Q", "K", "10":
			value += 10
		default:
			value += int(c.Value[0] - '0')
		}
	}
	for value > 21 && aces > 0 {
		value -= 10
		aces--
	}
	return value
}

// Deal shuffles a fresh 52-card deck and deals the opening hands.
func (b *Blackjack) Deal() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.deck = b.freshDeckLocked()
	b.player = nil
	b.dealer = nil
	b.result = ""

	p1 := b.drawLocked(false)
	d1 := b.drawLocked(true)
	p2 := b.drawLocked(false)
	d2 := b.drawLocked(false)
	b.player = []Card{p1, p2}
	b.dealer = []Card{d1, d2}
	b.phase = BJPlayerTurn

	if HandValue(b.player) == 21 {
		b.revealDealerLocked()
		b.phase = BJGameOver
		b.result = BJWinBlackjack
		b.message = "Blackjack! You win!"
		return
	}
	b.message = "Your turn: Hit or Stand?"
}

// Hit draws one card for the player; a bust or an exact 21 ends the
// player's turn.
func (b *Blackjack) Hit() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.phase != BJPlayerTurn {
		return
	}

	b.player = append(b.player, b.drawLocked(false))
	total := HandValue(b.player)
	switch {
	case total > 21:
		b.revealDealerLocked()
		b.phase = BJGameOver
		b.result = BJWinDealer
		b.message = fmt.Sprintf("Bust with %d! Dealer wins.", total)
	case total == 21:
		b.standLocked()
	default:
		b.message = fmt.Sprintf("Your hand: %d. Hit or Stand?", total)
	}
}

// Stand ends the player's turn and plays out the dealer.
func (b *Blackjack) Stand() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.phase != BJPlayerTurn {
		return
	}
	b.standLocked()
}

func (b *Blackjack) standLocked() {
	b.phase = BJDealerTurn
	b.revealDealerLocked()

	for HandValue(b.dealer) < 17 {
		b.dealer = append(b.dealer, b.drawLocked(false))
	}

	playerTotal := HandValue(b.player)
	dealerTotal := HandValue(b.dealer)
	b.phase = BJGameOver

	switch {
	case dealerTotal > 21:
		b.result = BJWinPlayer
		b.message = fmt.Sprintf("Dealer busts with %d! You win with %d!", dealerTotal, playerTotal)
	case playerTotal > dealerTotal:
		b.result = BJWinPlayer
		b.message = fmt.Sprintf("You win! %d beats %d", playerTotal, dealerTotal)
	case dealerTotal > playerTotal:
		b.result = BJWinDealer
		b.message = fmt.Sprintf("Dealer wins. %d beats %d", dealerTotal, playerTotal)
	default:
		b.result = BJPush
		b.message = fmt.Sprintf("Push! Both have %d", playerTotal)
	}
}

func (b *Blackjack) Snapshot() BlackjackSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := BlackjackSnapshot{
		Phase:       b.phase,
		Player:      append([]Card(nil), b.player...),
		Dealer:      append([]Card(nil), b.dealer...),
		PlayerTotal: HandValue(b.player),
		DealerTotal: HandValue(b.dealer),
		Result:      b.result,
		Message:     b.message,
	}
	return snap
}

func (b *Blackjack) freshDeckLocked() []Card {
	deck := make([]Card, 0, 52)
	for _, s := range suits {
		for _, v := range values {
			deck = append(deck, Card{Suit: s, Value: v})
		}
	}

	// Fisher-Yates
	for i := len(deck) - 1; i > 0; i-- {
		j := b.rng.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

func (b *Blackjack) drawLocked(hidden bool) Card {
	card := b.deck[0]
	b.deck = b.deck[1:]
	card.Hidden = hidden
	return card
}

func (b *Blackjack) revealDealerLocked() {
	for i := range b.dealer {
		b.dealer[i].Hidden = false
	}
}
