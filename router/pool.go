/*
Copyright © 2026 aga.lol
*/

package router

import (
	"math/rand"
	"sync"
)

// Pool is the hidden message pool: a bounded, deduplicated set of chat
// texts withheld from display and staged as game material.
type Pool struct {
	mu  sync.Mutex
	cap int
	set map[string]struct{}
}

func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = 25
	}
	return &Pool{
		cap: capacity,
		set: make(map[string]struct{}),
	}
}

func (p *Pool) Capacity() int {
	return p.cap
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.set)
}

func (p *Pool) Contains(text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.set[text]
	return ok
}

// Add enqueues a text, re-checking capacity at enqueue time. Returns
// false when the text is a duplicate or the pool is full; the pool never
// exceeds its capacity.
func (p *Pool) Add(text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.set[text]; ok {
		return false
	}
	if len(p.set) >= p.cap {
		return false
	}
	p.set[text] = struct{}{}
	return true
}

// Take removes and returns a uniformly random entry.
func (p *Pool) Take(rng *rand.Rand) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.set) == 0 {
		return "", false
	}

	n := rng.Intn(len(p.set))
	for text := range p.set {
		if n == 0 {
			delete(p.set, text)
			return text, true
		}
		n--
	}
	return "", false
}
