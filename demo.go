/*
Copyright © 2026 aga.lol
*/

package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/agalol/chatbotornot/router"
)

var demoChatters = []string{
	"pixel_wanderer", "night0wl", "TurboSnail", "lurker_prime", "cass_io",
	"gg_marmot", "VoidTuna", "sleepy_koala", "quartzfox", "mira_beam",
	"DachsDriver", "plasmapotato", "wren_online", "softserveskater", "k0dama",
}

var demoColors = []string{
	"#FF4500", "#1E90FF", "#8A2BE2", "#00FF7F", "#DAA520",
	"#FF69B4", "#5F9EA0", "#B22222",
}

var demoLines = []string{
	"ok that jump was actually insane",
	"chat am i the only one lagging",
	"my cat just walked across my keyboard sorry for the spam",
	"wait go back, what was in that chest",
	"been here since the intro music, no regrets",
	"does this boss have a second phase or are we safe",
	"i literally cannot look away from the minimap",
	"someone explain the lore to me like i'm five",
	"the soundtrack tonight is carrying the whole run",
	"brb making tea, nobody win anything without me",
	"that dodge roll had no business working",
	"my grandma plays this level better, love you though",
	"viewers from last stream know what's about to happen",
	"can we get a count of how many times we've died here",
	"honestly the side quests in this game are underrated",
	"i called that play three minutes ago, scroll up",
	"the way you looted past the legendary item...",
	"who else is eating dinner while watching",
	"new here, does this stream always go this late",
	"petition to name the horse after me",
	"that merchant is scamming you and you know it",
	"my duo queue partner could never",
	"the fog in this area gives me the creeps",
	"you had the parry and you panicked, respectfully",
	"this map rotation is my favorite by far",
	"alt tabbed for one second and we're in a boss fight??",
	"the prediction points are flowing tonight",
	"controller or keyboard for this one?",
	"i swear that npc waved at us",
	"save some health potions for the rest of us",
}

// runDemoFeed emits synthetic chat traffic so the whole pipeline can be
// exercised without a Twitch login. Messages flow through the same
// routing path as real ones; a few get deleted to exercise the strike
// markers.
func runDemoFeed(ctx context.Context, cfg *Config, app *App) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	logf(cfg, "DEMO: Synthetic chat feed running")

	var recent []string

	for {
		wait := time.Duration(800+rng.Intn(2400)) * time.Millisecond
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		msg := router.ChatMessage{
			ID:      uuid.NewString(),
			Chatter: demoChatters[rng.Intn(len(demoChatters))],
			Text:    demoLines[rng.Intn(len(demoLines))],
			Color:   demoColors[rng.Intn(len(demoColors))],
		}

		app.deliver(msg)

		recent = append(recent, msg.ID)
		if len(recent) > 20 {
			recent = recent[1:]
		}

		// Sometimes a moderator "deletes" an older line.
		if len(recent) > 5 && rng.Intn(15) == 0 {
			id := recent[rng.Intn(len(recent))]
			if app.router.HandleDelete(id) {
				app.hub.Broadcast(ChatDeleteMessage{Type: "chat_delete", ID: id})
			}
		}
	}
}
