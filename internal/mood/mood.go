// Package mood holds the closed set of emotional states the companion
// reasons about, the lexical classifiers that infer them, and the canned
// replies used when the language model is unavailable.
package mood

import "strings"

type Mood string

const (
	Happy    Mood = "happy"
	Calm     Mood = "calm"
	Sad      Mood = "sad"
	Anxious  Mood = "anxious"
	Stressed Mood = "stressed"
	Neutral  Mood = "neutral"
	Improved Mood = "improved"
)

// All lists every mood in classification order, neutral last.
var All = []Mood{Happy, Calm, Sad, Anxious, Stressed, Improved, Neutral}

func (m Mood) String() string {
	return string(m)
}

// Valid reports whether m is one of the known moods.
func (m Mood) Valid() bool {
	for _, known := range All {
		if m == known {
			return true
		}
	}
	return false
}

// Parse converts a wire value into a Mood. Matching ignores case and
// surrounding whitespace.
func Parse(s string) (Mood, bool) {
	m := Mood(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", false
	}
	return m, true
}

// IsDistress reports whether m is one of the moods that warrant offering
// a coping exercise.
func IsDistress(m Mood) bool {
	return m == Sad || m == Anxious || m == Stressed
}

// wellbeing scores used by the mood chart, 0 (low) to 100 (high)
var values = map[Mood]int{
	Sad:      20,
	Stressed: 25,
	Anxious:  30,
	Neutral:  50,
	Calm:     70,
	Happy:    80,
	Improved: 85,
}

// Value maps m onto the 0-100 wellbeing scale. Unknown moods score as neutral.
func Value(m Mood) int {
	if v, ok := values[m]; ok {
		return v
	}
	return values[Neutral]
}
