// Package session owns conversation sessions: ordered message logs,
// their lifecycle, and search over their text.
package session

import (
	"errors"
	"time"
)

// Session is one continuous conversation holding an ordered message log.
// Identity (ID) is immutable for the session's lifetime.
type Session struct {
	ID        string     `json:"id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Messages is append-only; messages are never mutated after creation.
	Messages []*Message `json:"messages"`

	Metadata SessionMetadata `json:"metadata"`

	// Summary is computed when the session ends.
	Summary *Summary `json:"summary,omitempty"`

	KeyMoments []*KeyMoment `json:"key_moments,omitempty"`

	// EmotionalJourney records one point per message carrying sentiment.
	EmotionalJourney []EmotionalPoint `json:"emotional_journey,omitempty"`
}

// SessionMetadata carries user-facing session annotations.
type SessionMetadata struct {
	Title string   `json:"title,omitempty"`
	Tags  []string `json:"tags,omitempty"`
	Mood  string   `json:"mood,omitempty"`
	Goals []string `json:"goals,omitempty"`
}

// Message is a single conversational turn.
type Message struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	IsUser    bool            `json:"is_user"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  MessageMetadata `json:"metadata"`
}

// MessageMetadata carries best-effort derived annotations.
type MessageMetadata struct {
	Sentiment *Sentiment `json:"sentiment,omitempty"`
	Topics    []string   `json:"topics,omitempty"`
	Entities  []string   `json:"entities,omitempty"`

	// Importance is a retrieval weight in [0,1].
	Importance float64 `json:"importance"`
}

// Sentiment is a scored sentiment annotation. Score runs from -1
// (negative) to 1 (positive).
type Sentiment struct {
	Score float64 `json:"score"`
	Label string  `json:"label,omitempty"`
}

// KeyMoment is a lightweight annotation pointing into a session,
// optionally at a specific message.
type KeyMoment struct {
	ID          string                 `json:"id"`
	Description string                 `json:"description"`
	Timestamp   time.Time              `json:"timestamp"`
	MessageID   string                 `json:"message_id,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Summary is derived when a session ends.
type Summary struct {
	MessageCount   int           `json:"message_count"`
	UserMessages   int           `json:"user_messages"`
	AIMessages     int           `json:"ai_messages"`
	Duration       time.Duration `json:"duration"`
	EmotionalTrend Trend         `json:"emotional_trend"`
}

// EmotionalPoint is one sample of the session's sentiment over time.
type EmotionalPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Sentiment float64   `json:"sentiment"`
}

// Trend classifies how sentiment moved across a session.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// Sentinel errors for session lifecycle operations.
var (
	// ErrDuplicateSession is returned when starting a session whose id
	// is already present.
	ErrDuplicateSession = errors.New("session already exists")

	// ErrNoActiveSession is returned by operations that need an active
	// session when none is running.
	ErrNoActiveSession = errors.New("no active session")
)
