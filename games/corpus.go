/*
Copyright © 2026 aga.lol
*/

package games

import (
	"math/rand"
	"sort"
	"strconv"
	"sync"
)

// CorpusEntry is one canned chatbot message with its usage count.
type CorpusEntry struct {
	ID   string
	Text string
	used int
}

// Corpus is the generated-message bank the guessing game draws its
// synthetic questions from. Picks favor the least-used entries so the
// same phrases don't repeat round after round.
type Corpus struct {
	mu      sync.Mutex
	entries []CorpusEntry
}

func NewCorpus(entries []CorpusEntry) *Corpus {
	return &Corpus{entries: entries}
}

// Texts returns every entry's text, for use as router fingerprints.
func (c *Corpus) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Text
	}
	return out
}

func (c *Corpus) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Pick selects a synthetic message: candidates are the least-used
// quartile (at least 3), the winner is random among them, and its usage
// count goes up.
func (c *Corpus) Pick(rng *rand.Rand) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) == 0 {
		return ""
	}

	order := make([]int, len(c.entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return c.entries[order[a]].used < c.entries[order[b]].used
	})

	n := len(order) / 4
	if n < 3 {
		n = 3
	}
	if n > len(order) {
		n = len(order)
	}

	idx := order[rng.Intn(n)]
	c.entries[idx].used++
	return c.entries[idx].Text
}

// DefaultCorpus returns the stock chatbot message bank.
func DefaultCorpus() *Corpus {
	texts := []string{
		"Have you tried turning it off and on again?",
		"I can't believe they're adding another battle royale game to the market",
		"This stream is so entertaining, I've been watching for hours!",
		"The new patch completely ruined my favorite character",
		"Does anyone know when the next big gaming event is?",
		"I think the streamer needs to adjust their audio settings",
		"That was an amazing play! How did you manage to pull that off?",
		"I've been a subscriber for three months now and I love the content!",
		"This game has the best graphics I've seen all year",
		"Can we see your gaming setup? I'm curious what peripherals you use",
		"I tried that strategy yesterday and it completely failed for me",
		"The loading times in this game are ridiculous",
		"What's your opinion on the controversial change in the latest update?",
		"I just got here, what did I miss?",
		"My internet keeps dropping today, so frustrating",
		"Do you have any recommendations for a good gaming chair?",
		"That was so unlucky! You should have won that match",
		"I can't understand why people are hating on this game, it's fantastic",
		"What's your favorite game of all time?",
		"The developers need to fix the servers ASAP",
		"monkaS bro this stream is getting intense!! cant believe what just happened",
		"KEKW did you see that fail? absolute disaster but im here for it",
		"wait did that actually just happen lol",
		"poggers!! just got my first win of the day, feeling cracked rn",
		"anyone else having buffer issues or just me?",
		"ngl this convo is giving very demure, very mindful energy and i respect it",
		"touch grass my dude, youve been streaming for 12 hours straight",
		"that was actually super wholesome",
		"skill issue tbh, maybe try getting better at the game?? just a thought",
		"sheeeesh that play was clean af, clip that someone!!",
		"yo who else is watching this at 3am instead of sleeping",
		"copium levels are off the charts in this chat lmaooo",
		"sadge... missed the drop by 2 seconds, pain is all i know",
		"W take, based opinion, you dropped this king 👑",
		"yall are sleeping on this game fr, its actually fire",
		"im just here vibing and farming LULW in the chat",
		"the stream quality today is top tier",
		"bruh moment fr fr, cant believe what im seeing rn",
		"lowkey this stream is a vibe, might stay here all night tbh",
		"ratio + L + you fell off + didnt ask",
		"im literally deceased 💀 this is too funny cant breathe",
		"first time chatter, long time lurker, love the content!",
		"this is giving major red flag energy, yikes",
		"no cap, this is straight bussin fr fr",
		"weird champ behavior in chat today, mods do your thing",
		"anyone here from tiktok?",
		"the delulu is the solulu as they say, keep dreaming bestie",
		"this chat is moving so fast no one will see that i love my mom",
		"greetings from germany! 3am here but worth staying up for",
		"lets gooooo! hype train incoming, choo choo!",
		"BRO that dodge was INSANE PogChamp",
		"lmaooo chat's wildin today",
		"!lurk gonna watch while i eat dinner",
		"RIPBOZO to that boss you just destroyed",
		"anyone know what gpu they're using??",
		"BatChest I LOOOOOVE THIS SONG",
		"yo mod can we get a timeout on that guy spamming",
		"KEKW KEKW KEKW",
		"that's cap and you know it",
		"PauseChamp ...",
		"NEW FROG ALERT LUL",
		"guys stop backseat gaming fr",
		"AYOOOO WTF WAS THAT monkaW",
		"just followed! love the content",
		"this games actually mid ngl",
		"HUH???? how did that not hit??",
		"modCheck where gameplay",
		"RIPBOZO chat's dead tonight",
		"nice..... 69 viewers LUL",
		"EZ Clap",
		"widepeepoHappy so cute!!",
		"Yo i just subbed and my name didn't show up on screen??",
		"OMEGALUL HE DOESN'T KNOW",
		"drop your socials bro i wanna follow",
		"the rizz is immaculate sheeeesh",
		"this is why we can't have nice things chat",
		"Madge i missed the beginning",
		"!song",
		"someone gift me a sub plsssss",
		"ok but the REAL ONES remember the minecraft streams",
		"Great points being made today.",
		"I hadn't thought of it that way. Good perspective.",
		"Did anyone catch that documentary on Netflix?",
		"I see your point, though I view it differently.",
		"Thanks for the clear explanation.",
		"Been following this topic for months. So interesting.",
		"Anyone else from the East Coast? It's late here!",
		"Love the quality conversations here.",
		"Curious what everyone thinks about the recent changes.",
		"This gives me a lot to think about. Thanks all.",
		"Nice to see civil discussion for once!",
		"Long-time viewer, first-time chatter. Hello everyone!",
		"What's everyone drinking tonight?",
		"This topic is fascinating. Thanks for covering it.",
		"Just subbed with Prime!",
		"The historical context really helps here.",
		"Anyone else having audio issues?",
		"Could you explain that last point again?",
		"This community has taught me so much.",
		"Both sides make valid arguments here.",
	}

	entries := make([]CorpusEntry, len(texts))
	for i, t := range texts {
		entries[i] = CorpusEntry{ID: "ai" + strconv.Itoa(i+1), Text: t}
	}
	return NewCorpus(entries)
}
