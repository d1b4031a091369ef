package filter

import (
	"testing"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercase", input: "HELLO WORLD", expected: "hello world"},
		{name: "unicode diacritics", input: "café résumé", expected: "cafe resume"},
		{name: "digits kept", input: "DALL-E 3", expected: "dall-e 3"},
		{name: "empty string", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeText(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeText(%q) = %q; want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestAhoCorasick_Search(t *testing.T) {
	ac := NewAhoCorasick(
		Pattern{Word: "he", Category: "test"},
		Pattern{Word: "she", Category: "test"},
		Pattern{Word: "his", Category: "test"},
		Pattern{Word: "hers", Category: "test"},
	)

	tests := []struct {
		name          string
		text          string
		expectedCount int
		expectedWords map[string]bool
	}{
		{name: "single match", text: "he is here", expectedCount: 2, expectedWords: map[string]bool{"he": true}},
		{name: "overlapping matches", text: "she", expectedCount: 2, expectedWords: map[string]bool{"he": true, "she": true}},
		{name: "multiple different matches", text: "she said his name", expectedCount: 3, expectedWords: map[string]bool{"he": true, "she": true, "his": true}},
		{name: "empty text", text: "", expectedCount: 0, expectedWords: map[string]bool{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := ac.Search(tt.text)
			if len(matches) != tt.expectedCount {
				t.Errorf("Search(%q) returned %d matches; want %d", tt.text, len(matches), tt.expectedCount)
				return
			}
			for _, match := range matches {
				if !tt.expectedWords[match.Pattern] {
					t.Errorf("Search(%q) found unexpected word %q", tt.text, match.Pattern)
				}
			}
		})
	}
}

func TestAhoCorasick_SearchPosition(t *testing.T) {
	ac := NewAhoCorasick(Pattern{Word: "park", Category: "place"})
	matches := ac.Search("dog in the park")
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Position != 11 || matches[0].Category != "place" {
		t.Errorf("unexpected match %+v", matches[0])
	}
}

func TestAhoCorasick_Rebuild(t *testing.T) {
	ac := NewAhoCorasick(Pattern{Word: "old"})
	ac.Build([]Pattern{{Word: "new"}})
	if ac.HasMatch("old text") {
		t.Error("pattern from previous build still matches")
	}
	if !ac.HasMatch("new text") {
		t.Error("expected rebuilt pattern to match")
	}
}

func TestAIMarkers(t *testing.T) {
	m := NewAIMarkerMatcher()

	tests := []struct {
		name     string
		texts    []string
		expected bool
	}{
		{name: "tag list", texts: []string{"dog, park, ai generated"}, expected: true},
		{name: "mixed case", texts: []string{"Made with MidJourney v6"}, expected: true},
		{name: "hyphenated", texts: []string{"", "an AI-Art portrait"}, expected: true},
		{name: "joined", texts: []string{"#stablediffusion"}, expected: true},
		{name: "author name", texts: []string{"sunset", "DALLE Studio"}, expected: true},
		{name: "accented", texts: []string{"génératif: generative AI"}, expected: true},
		{name: "clean", texts: []string{"dog running in the park", "Jane Doe"}, expected: false},
		{name: "no texts", texts: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsAIMarker(m, tt.texts...); got != tt.expected {
				t.Errorf("ContainsAIMarker(%q) = %v; want %v", tt.texts, got, tt.expected)
			}
		})
	}
}

func BenchmarkAIMarkers_HasMatch(b *testing.B) {
	m := NewAIMarkerMatcher()
	text := "golden retriever, dog, park, grass, summer, outdoor, pet, animal, happy"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.HasMatch(text)
	}
}
