package mood

import (
	"math/rand/v2"
	"sync"
)

var defaultResponses = map[Mood][]string{
	Happy: {
		"I'm glad to hear you're feeling positive! What's bringing you joy today?",
		"That's wonderful! It's great to see you in such high spirits.",
	},
	Calm: {
		"It sounds like you're in a peaceful state of mind. How can we maintain this tranquility?",
		"I'm here to support your calm energy. What would you like to explore today?",
	},
	Sad: {
		"I'm sorry to hear you're feeling down. Would you like to talk about what's troubling you?",
		"It's okay to feel sad sometimes. I'm here to listen whenever you're ready to share.",
	},
	Anxious: {
		"I notice you might be feeling anxious. Would taking a few deep breaths together help?",
		"Anxiety can be challenging. Let's work through these feelings together at your pace.",
	},
	Stressed: {
		"It sounds like you're under a lot of pressure. What's contributing to your stress right now?",
		"When you're feeling stressed, it can help to identify what's within your control. Shall we explore that?",
	},
	Neutral: {
		"How are you feeling right now? I'm here to support you however you need.",
		"Is there something specific you'd like to talk about today?",
	},
	Improved: {
		"It's great to hear you're feeling better! What positive changes have you noticed?",
		"Progress is something to celebrate! What's been working well for you?",
	},
}

// Bank is a fixed table of canned replies keyed by mood.
type Bank struct {
	mu        sync.Mutex
	rng       *rand.Rand
	responses map[Mood][]string
}

// NewBank returns the built-in reply table. A nil rng uses a randomly
// seeded source.
func NewBank(rng *rand.Rand) *Bank {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Bank{rng: rng, responses: defaultResponses}
}

// Pick returns a uniformly random reply for m, using the neutral set for
// unknown moods.
func (b *Bank) Pick(m Mood) string {
	options := b.Responses(m)

	b.mu.Lock()
	i := b.rng.IntN(len(options))
	b.mu.Unlock()

	return options[i]
}

// Responses returns the candidate set Pick draws from.
func (b *Bank) Responses(m Mood) []string {
	options, ok := b.responses[m]
	if !ok || len(options) == 0 {
		options = b.responses[Neutral]
	}
	return options
}
