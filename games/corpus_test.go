/*
Copyright © 2026 aga.lol
*/

package games

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCorpusPickEmpty(t *testing.T) {
	c := NewCorpus(nil)
	require.Equal(t, "", c.Pick(rand.New(rand.NewSource(1))))
}

func TestCorpusPickSingle(t *testing.T) {
	c := NewCorpus([]CorpusEntry{{ID: "1", Text: "only"}})
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 5; i++ {
		require.Equal(t, "only", c.Pick(rng))
	}
}

func TestCorpusPickAvoidsOverused(t *testing.T) {
	entries := []CorpusEntry{
		{ID: "hot", Text: "overused", used: 100},
	}
	for _, text := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		entries = append(entries, CorpusEntry{ID: text, Text: text})
	}

	c := NewCorpus(entries)
	rng := rand.New(rand.NewSource(1))

	// Candidates are the least-used quartile; the overused entry cannot
	// reappear until the rest catch up.
	for i := 0; i < 20; i++ {
		require.NotEqual(t, "overused", c.Pick(rng))
	}
}

func TestDefaultCorpus(t *testing.T) {
	c := DefaultCorpus()
	require.Equal(t, 100, c.Len())

	texts := c.Texts()
	require.Len(t, texts, 100)

	seen := make(map[string]bool)
	for _, text := range texts {
		require.NotEmpty(t, text)
		require.False(t, seen[text], "duplicate corpus text %q", text)
		seen[text] = true
	}
}
