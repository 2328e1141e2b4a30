/*
Copyright © 2026 aga.lol
*/

package games

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func card(value string) Card {
	return Card{Suit: "♠", Value: value}
}

func hiddenCard(value string) Card {
	return Card{Suit: "♠", Value: value, Hidden: true}
}

func TestHandValue(t *testing.T) {
	for _, tc := range []struct {
		name string
		hand []Card
		want int
	}{
		{"simple", []Card{card("2"), card("9")}, 11},
		{"faces", []Card{card("K"), card("Q"), card("J")}, 30},
		{"natural", []Card{card("A"), card("K")}, 21},
		{"soft ace drops", []Card{card("A"), card("9"), card("5")}, 15},
		{"two aces", []Card{card("A"), card("A"), card("9")}, 21},
		{"hidden excluded", []Card{hiddenCard("K"), card("6")}, 6},
		{"empty", nil, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, HandValue(tc.hand))
		})
	}
}

func TestDealOpeningHands(t *testing.T) {
	b := NewBlackjack(nil)
	b.Deal()

	snap := b.Snapshot()
	require.Len(t, snap.Player, 2)
	require.Len(t, snap.Dealer, 2)
	require.False(t, snap.Player[0].Hidden)
	require.False(t, snap.Player[1].Hidden)

	switch snap.Phase {
	case BJPlayerTurn:
		// Hole card stays hidden and out of the dealer total.
		require.True(t, snap.Dealer[0].Hidden)
		require.False(t, snap.Dealer[1].Hidden)
		require.Equal(t, HandValue([]Card{snap.Dealer[1]}), snap.DealerTotal)
	case BJGameOver:
		// Natural 21 resolves immediately with everything revealed.
		require.Equal(t, BJWinBlackjack, snap.Result)
		require.Equal(t, 21, snap.PlayerTotal)
		require.False(t, snap.Dealer[0].Hidden)
	default:
		t.Fatalf("unexpected phase %q", snap.Phase)
	}
}

// rigged builds a table mid-hand with a scripted deck.
func rigged(player, dealer, deck []Card) *Blackjack {
	b := NewBlackjack(nil)
	b.player = player
	b.dealer = dealer
	b.deck = deck
	b.phase = BJPlayerTurn
	return b
}

func TestHitBust(t *testing.T) {
	b := rigged(
		[]Card{card("K"), card("Q")},
		[]Card{hiddenCard("5"), card("6")},
		[]Card{card("5")},
	)

	b.Hit()

	snap := b.Snapshot()
	require.Equal(t, BJGameOver, snap.Phase)
	require.Equal(t, BJWinDealer, snap.Result)
	require.Equal(t, 25, snap.PlayerTotal)
	require.False(t, snap.Dealer[0].Hidden, "bust reveals the hole card")
	require.Contains(t, snap.Message, "Bust with 25")
}

func TestHitTo21AutoStands(t *testing.T) {
	b := rigged(
		[]Card{card("A"), card("5")},
		[]Card{hiddenCard("K"), card("6")},
		[]Card{card("5"), card("10")},
	)

	b.Hit()

	// 21 ends the player's turn; the dealer draws to 16+10 and busts.
	snap := b.Snapshot()
	require.Equal(t, BJGameOver, snap.Phase)
	require.Equal(t, BJWinPlayer, snap.Result)
	require.Equal(t, 21, snap.PlayerTotal)
	require.Equal(t, 26, snap.DealerTotal)
}

func TestStandDealerStandsOn17(t *testing.T) {
	b := rigged(
		[]Card{card("10"), card("8")},
		[]Card{hiddenCard("K"), card("9")},
		[]Card{card("2")},
	)

	b.Stand()

	snap := b.Snapshot()
	require.Equal(t, BJGameOver, snap.Phase)
	require.Equal(t, BJWinDealer, snap.Result)
	require.Equal(t, 19, snap.DealerTotal)
	require.Len(t, snap.Dealer, 2, "dealer must not draw on 19")
	require.Contains(t, snap.Message, "19 beats 18")
}

func TestStandDealerDrawsTo17(t *testing.T) {
	b := rigged(
		[]Card{card("10"), card("9")},
		[]Card{hiddenCard("10"), card("2")},
		[]Card{card("5")},
	)

	b.Stand()

	// Dealer has 12 once revealed, draws the 5 and stands on 17.
	snap := b.Snapshot()
	require.Equal(t, BJWinPlayer, snap.Result)
	require.Equal(t, 17, snap.DealerTotal)
	require.Len(t, snap.Dealer, 3)
}

func TestPush(t *testing.T) {
	b := rigged(
		[]Card{card("10"), card("8")},
		[]Card{hiddenCard("K"), card("8")},
		nil,
	)

	b.Stand()

	snap := b.Snapshot()
	require.Equal(t, BJPush, snap.Result)
	require.Contains(t, snap.Message, "Push! Both have 18")
}

func TestActionsIgnoredOutsidePlayerTurn(t *testing.T) {
	b := NewBlackjack(nil)

	// Nothing dealt yet: hitting and standing must be no-ops.
	b.Hit()
	b.Stand()

	snap := b.Snapshot()
	require.Equal(t, BJInitial, snap.Phase)
	require.Empty(t, snap.Player)
}
