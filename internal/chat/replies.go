package chat

import (
	"fmt"
	"math/rand"
)

// cannedReplies are the walker-side responses used by the simulated chat.
var cannedReplies = []string{
	"No trouble at all.",
	"Perfect, no problem.",
	"Understood, all good.",
	"Don't worry, everything is fine.",
	"Perfect, sounds good to me.",
	"Understood, everything under control.",
	"Perfect! All set.",
	"No trouble with that.",
	"Perfect, no worries.",
	"Understood, no trouble.",
	"Great! All clear.",
	"Perfect, all good.",
	"No problem at all.",
	"Understood, no worries.",
	"Perfect! No trouble.",
}

// Greeting is the synthesized first message of a fresh transcript.
func Greeting(walkerName string) string {
	return fmt.Sprintf("Hi! I'm %s, your assigned walker. How is your pet doing?", walkerName)
}

// RandomReply picks one canned walker response.
func RandomReply(rng *rand.Rand) string {
	if rng == nil {
		return cannedReplies[0]
	}
	return cannedReplies[rng.Intn(len(cannedReplies))]
}
