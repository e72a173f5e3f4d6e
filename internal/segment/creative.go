package segment

import (
	"fmt"
	"math/rand"
)

// Creative is one notification content variant. ImageURL may be empty;
// the dispatcher sends text-only pushes in that case.
type Creative struct {
	Title    string
	Body     string
	ImageURL string
}

// catalog holds the static per-segment creative variants. Which variant was
// shown is not tracked anywhere; selection is uniform-random per send.
var catalog = map[string][]Creative{
	"BrandNew": {
		{Title: "Welcome to Lumapix ✨", Body: "Your first edits look great. Try a portrait style next!"},
		{Title: "You're off to a great start", Body: "Keep the momentum going — there's a style for every photo.", ImageURL: "https://cdn.lumapix.app/push/onboarding.png"},
	},
	"AiEditReminder": {
		{Title: "Your photos miss you", Body: "Pick a shot and let the AI do the rest. It takes 10 seconds."},
		{Title: "One more edit?", Body: "You were on a roll this week. Finish another photo tonight."},
	},
	"CoreActive": {
		{Title: "You're on fire 🔥", Body: "Another day, another stunning edit. What's next?"},
		{Title: "New styles just dropped", Body: "Power users get the best out of them. Take a look.", ImageURL: "https://cdn.lumapix.app/push/new-styles.png"},
	},
	"RecentlyActive": {
		{Title: "Been a couple of days", Body: "Your last edit turned out great. Make another one tonight?"},
		{Title: "Quick edit break?", Body: "Two minutes, one photo, instant magic."},
	},
	"Inactive": {
		{Title: "We kept your spot warm", Body: "A lot of new styles arrived since your last visit."},
		{Title: "Your gallery is waiting", Body: "Come back and turn a photo into something special.", ImageURL: "https://cdn.lumapix.app/push/comeback.png"},
	},
	"Churned": {
		{Title: "It's been a while", Body: "Lumapix got a major upgrade. See what the AI can do now."},
		{Title: "Remember this?", Body: "Your best edits are still here. Make a new favorite tonight."},
	},
	"Viral": {
		{Title: "Your edit is traveling 🚀", Body: "Shared edits get seen. Make another share-worthy one!"},
		{Title: "People love your style", Body: "Keep sharing — your edits stand out."},
	},
	"SavedEdit": {
		{Title: "Nice collection growing", Body: "You saved some great edits lately. Add one more tonight?"},
		{Title: "Your saves look amazing", Body: "Turn tonight's photo into the next keeper."},
	},
	"StyleOpened": {
		{Title: "Found a style you like?", Body: "You've been browsing — try one on a photo, it's free."},
		{Title: "Stop scrolling, start editing", Body: "That style you keep opening? It's one tap away from your photo.", ImageURL: "https://cdn.lumapix.app/push/styles-grid.png"},
	},
	"StreakBroken": {
		{Title: "Your streak misses you", Body: "One quick edit brings it right back."},
		{Title: "Don't let the streak go", Body: "You edited days in a row — pick it back up tonight!"},
	},
	"AlmostSubscriber": {
		{Title: "Unlock everything", Body: "You've seen what Pro offers. First week is on us."},
		{Title: "Pro styles are calling", Body: "Get unlimited AI edits and every premium style.", ImageURL: "https://cdn.lumapix.app/push/pro.png"},
	},
	"PaywallDismissed": {
		{Title: "Still thinking it over?", Body: "Pro is cheaper than a coffee a month. Give it a try."},
		{Title: "A little nudge", Body: "The styles you wanted are waiting behind one tap."},
	},
}

// Pick selects a creative uniformly at random from the segment's catalog.
func Pick(segmentName string) (Creative, error) {
	variants, ok := catalog[segmentName]
	if !ok || len(variants) == 0 {
		return Creative{}, fmt.Errorf("no creatives for segment %q", segmentName)
	}
	return variants[rand.Intn(len(variants))], nil
}

// Variants returns the catalog entries for a segment. Used by tests and the
// segments listing endpoint.
func Variants(segmentName string) []Creative {
	return catalog[segmentName]
}
