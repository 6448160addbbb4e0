package memory

import (
	"sort"
	"strings"
)

// Extraction is the output of a text analysis pass.
type Extraction struct {
	Topics   []string
	Entities []string
	Triggers []string
}

// Extractor analyzes free text for topics, entities and triggers.
// Implementations are heuristic; swapping in a smarter one changes
// retrieval quality but not storage semantics.
type Extractor interface {
	Extract(text string) Extraction
}

// emotionalKeywords gate long-term promotion. A message containing any
// of these is significant regardless of sentiment score or length.
var emotionalKeywords = []string{
	"anxious", "anxiety", "depressed", "depression", "panic",
	"scared", "afraid", "terrified", "overwhelmed", "hopeless",
	"suicidal", "grief", "grieving", "trauma", "breakthrough",
	"proud", "grateful", "excited", "happy", "relieved",
	"angry", "furious", "ashamed", "guilty", "lonely",
}

// ContainsEmotionalKeyword reports whether text mentions any of the
// fixed emotional vocabulary.
func ContainsEmotionalKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range emotionalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// KeywordExtractor matches text against fixed vocabularies by
// substring containment.
type KeywordExtractor struct{}

var _ Extractor = (*KeywordExtractor)(nil)

var topicVocab = map[string][]string{
	"work":          {"work", "job", "boss", "colleague", "deadline", "meeting", "career"},
	"family":        {"family", "mother", "father", "mom", "dad", "sister", "brother", "parent"},
	"relationships": {"partner", "boyfriend", "girlfriend", "spouse", "wife", "husband", "dating", "friend"},
	"health":        {"sleep", "exercise", "doctor", "medication", "diet", "tired", "energy"},
	"anxiety":       {"anxious", "anxiety", "worry", "worried", "panic", "nervous"},
	"mood":          {"sad", "happy", "depressed", "angry", "lonely", "hopeful"},
	"self":          {"confidence", "self-esteem", "identity", "worth", "proud", "ashamed"},
}

var entityMarkers = []string{
	"therapist", "doctor", "boss", "mother", "father", "partner",
	"sister", "brother", "friend", "coworker",
}

var triggerVocab = []string{
	"deadline", "conflict", "criticism", "rejection", "crowds",
	"silence", "darkness", "abandonment", "failure",
}

// Extract scans text against the topic, entity and trigger
// vocabularies. Empty slices mean nothing matched.
func (KeywordExtractor) Extract(text string) Extraction {
	lower := strings.ToLower(text)
	var out Extraction

	for topic, keywords := range topicVocab {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				out.Topics = append(out.Topics, topic)
				break
			}
		}
	}
	sort.Strings(out.Topics)

	for _, marker := range entityMarkers {
		if strings.Contains(lower, marker) {
			out.Entities = append(out.Entities, marker)
		}
	}

	for _, trig := range triggerVocab {
		if strings.Contains(lower, trig) {
			out.Triggers = append(out.Triggers, trig)
		}
	}

	return out
}
