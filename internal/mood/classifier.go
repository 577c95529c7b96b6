package mood

import "strings"

// Classifier infers a mood from free text. Implementations must always
// return a valid mood.
type Classifier interface {
	Classify(text string) Mood
}

type rule struct {
	mood     Mood
	keywords []string
}

// ordered: first matching rule wins
var defaultRules = []rule{
	{Happy, []string{"happy", "joy", "excited"}},
	{Calm, []string{"calm", "peaceful", "relaxed"}},
	{Sad, []string{"sad", "depressed", "unhappy"}},
	{Anxious, []string{"anxious", "worried", "nervous"}},
	{Stressed, []string{"stress", "overwhelm", "pressure"}},
	{Improved, []string{"better", "improv", "progress"}},
}

// KeywordClassifier is a case-insensitive substring matcher over an
// ordered rule table. The zero value uses the built-in table.
type KeywordClassifier struct {
	rules []rule
}

// NewKeywordClassifier returns the classifier with the built-in table.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{rules: defaultRules}
}

func (k *KeywordClassifier) Classify(text string) Mood {
	rules := k.rules
	if rules == nil {
		rules = defaultRules
	}

	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.mood
			}
		}
	}

	return Neutral
}

// Classify runs the built-in keyword table.
func Classify(text string) Mood {
	return NewKeywordClassifier().Classify(text)
}

var distressKeywords = []string{
	"anxious", "anxiety", "stressed", "overwhelmed", "panic", "scared",
	"frightened", "worry", "worried", "nervous", "tense", "uneasy",
}

// DistressDetector flags user text that suggests a breathing exercise
// might help.
type DistressDetector struct {
	keywords []string
}

func NewDistressDetector() *DistressDetector {
	return &DistressDetector{keywords: distressKeywords}
}

func (d *DistressDetector) Detect(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range d.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
