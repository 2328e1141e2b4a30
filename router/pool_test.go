/*
Copyright © 2026 aga.lol
*/

package router

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolDedupAndCapacity(t *testing.T) {
	p := NewPool(2)

	require.True(t, p.Add("one"))
	require.False(t, p.Add("one"), "duplicate must not enqueue")
	require.True(t, p.Add("two"))
	require.False(t, p.Add("three"), "capacity must hold")
	require.Equal(t, 2, p.Len())
	require.True(t, p.Contains("one"))
	require.False(t, p.Contains("three"))
}

func TestPoolTakeRemoves(t *testing.T) {
	p := NewPool(25)
	rng := rand.New(rand.NewSource(1))

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		p.Add(fmt.Sprintf("msg %d", i))
	}

	for i := 0; i < 5; i++ {
		text, ok := p.Take(rng)
		require.True(t, ok)
		require.False(t, seen[text], "drew %q twice", text)
		seen[text] = true
	}

	_, ok := p.Take(rng)
	require.False(t, ok)
	require.Equal(t, 0, p.Len())
}
