package filter

// CategoryAIGenerated tags phrases that mark an image as machine generated.
const CategoryAIGenerated = "ai_generated"

// AIMarkers are the phrases that disqualify a provider hit when found in its
// tags, description, alt text, title or author name.
var AIMarkers = []string{
	"ai generated",
	"ai-generated",
	"aigenerated",
	"ai art",
	"ai-art",
	"generated by ai",
	"midjourney",
	"stable diffusion",
	"stablediffusion",
	"dall-e",
	"dalle",
	"generative ai",
	"genai",
	"neural art",
	"text-to-image",
	"ai image",
}

// NewAIMarkerMatcher returns a matcher over AIMarkers.
func NewAIMarkerMatcher() *AhoCorasick {
	patterns := make([]Pattern, 0, len(AIMarkers))
	for _, m := range AIMarkers {
		patterns = append(patterns, Pattern{Word: m, Category: CategoryAIGenerated})
	}
	return NewAhoCorasick(patterns...)
}

// ContainsAIMarker reports whether any of the texts carries an AI marker.
func ContainsAIMarker(m *AhoCorasick, texts ...string) bool {
	for _, t := range texts {
		if t != "" && m.HasMatch(t) {
			return true
		}
	}
	return false
}
