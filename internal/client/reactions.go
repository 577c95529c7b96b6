package client

import (
	"sync"

	"github.com/bowerhall/bubble/internal/environment"
	"github.com/bowerhall/bubble/internal/mood"
)

const BreathingPrompt = "I noticed you might be feeling stressed. Would you like to try a breathing exercise to help calm your mind?"

type Expression struct {
	Name string
	Face string
}

var expressions = map[mood.Mood]Expression{
	mood.Happy:    {"smiling", "(^‿^)"},
	mood.Calm:     {"serene", "(ᵔ‿ᵔ)"},
	mood.Sad:      {"frowning", "(╥﹏╥)"},
	mood.Anxious:  {"worried", "(°o°)"},
	mood.Stressed: {"tense", "(>_<)"},
	mood.Improved: {"bright", "(^▽^)"},
	mood.Neutral:  {"neutral", "(•_•)"},
}

// AvatarExpression is the avatar face for m.
func AvatarExpression(m mood.Mood) Expression {
	if e, ok := expressions[m]; ok {
		return e
	}
	return expressions[mood.Neutral]
}

// AmbientTrack is the background sound for m.
func AmbientTrack(m mood.Mood) environment.Track {
	return environment.Default().Track(m)
}

// MoodChangeMessage is what the companion says when the mood moves to m.
func MoodChangeMessage(m mood.Mood) string {
	switch m {
	case mood.Sad, mood.Anxious, mood.Stressed:
		return "I noticed your mood has changed to " + m.String() + ". Would you like to talk about what's happening? A breathing exercise might also help."
	case mood.Happy:
		return "I'm so glad to see you're feeling happy! Would you like to share what's bringing you joy today?"
	case mood.Improved:
		return "It's great to see you're feeling better! What positive changes have you noticed?"
	case mood.Calm:
		return "I notice you're feeling calm. That's wonderful! Would you like to continue this peaceful state with a mindfulness exercise?"
	default:
		return "I see your mood has shifted to neutral. How would you describe how you're feeling right now?"
	}
}

// BreathingOffer suggests a breathing exercise once per entry into
// distress. It re-arms when the mood leaves distress.
type BreathingOffer struct {
	mu       sync.Mutex
	armed    bool
	detector *mood.DistressDetector
	offer    func(prompt string)
}

func NewBreathingOffer(offer func(prompt string)) *BreathingOffer {
	return &BreathingOffer{
		armed:    true,
		detector: mood.NewDistressDetector(),
		offer:    offer,
	}
}

// Observe is a Bus observer.
func (b *BreathingOffer) Observe(t Transition) {
	if !mood.IsDistress(t.To) {
		b.mu.Lock()
		b.armed = true
		b.mu.Unlock()
		return
	}
	b.fire(MoodChangeMessage(t.To))
}

// CheckInput offers the exercise when the user's own words signal distress.
func (b *BreathingOffer) CheckInput(text string) bool {
	if !b.detector.Detect(text) {
		return false
	}
	return b.fire(BreathingPrompt)
}

func (b *BreathingOffer) fire(prompt string) bool {
	b.mu.Lock()
	if !b.armed {
		b.mu.Unlock()
		return false
	}
	b.armed = false
	b.mu.Unlock()

	if b.offer != nil {
		b.offer(prompt)
	}
	return true
}
