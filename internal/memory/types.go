// Package memory fuses short-term, long-term, emotional and contextual
// memory layers into a ranked context bundle for prompt construction.
package memory

import (
	"time"

	"github.com/nithinv16/hearmem/internal/session"
)

// Layer identifies which memory tier an entry lives in.
type Layer string

const (
	LayerShortTerm  Layer = "short_term"
	LayerLongTerm   Layer = "long_term"
	LayerEmotional  Layer = "emotional"
	LayerContextual Layer = "contextual"
)

// Entry is one remembered interaction. Short-term entries live only in
// process; the other layers persist.
type Entry struct {
	ID        string             `json:"id"`
	Layer     Layer              `json:"layer"`
	Message   string             `json:"message"`
	Response  string             `json:"response,omitempty"`
	SessionID string             `json:"session_id,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Sentiment *session.Sentiment `json:"sentiment,omitempty"`

	// Importance is set on long-term promotion, in [0,1].
	Importance float64 `json:"importance,omitempty"`

	Topics   []string `json:"topics,omitempty"`
	Entities []string `json:"entities,omitempty"`
	Triggers []string `json:"triggers,omitempty"`
}

// Text returns the searchable text of an entry.
func (e *Entry) Text() string {
	if e.Response == "" {
		return e.Message
	}
	return e.Message + " " + e.Response
}

// UserPreferences is the durable profile snapshot bundled into the
// user context.
type UserPreferences struct {
	DisplayName          string   `json:"display_name,omitempty"`
	GenderPreference     string   `json:"gender_preference,omitempty"`
	CommunicationStyle   string   `json:"communication_style,omitempty"`
	Goals                []string `json:"goals,omitempty"`
	Triggers             []string `json:"triggers,omitempty"`
	CopingStrategies     []string `json:"coping_strategies,omitempty"`
	Interests            []string `json:"interests,omitempty"`
	RelationshipPatterns []string `json:"relationship_patterns,omitempty"`
}

// EmotionalSummary aggregates the emotional layer.
type EmotionalSummary struct {
	Samples       int     `json:"samples"`
	AverageScore  float64 `json:"average_score"`
	DominantLabel string  `json:"dominant_label,omitempty"`
}

// UserContext is the bundle handed to prompt builders. It is always
// safe to use: a failing subsystem yields empty fields, never an error.
type UserContext struct {
	Preferences    UserPreferences  `json:"preferences"`
	RecentMemories []*Entry         `json:"recent_memories"`
	Emotional      EmotionalSummary `json:"emotional"`
}
