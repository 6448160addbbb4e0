// Package reference manages references: user-created pointers to
// conversational moments, plus the bookmarks and collections built on
// top of them.
package reference

import (
	"errors"
	"time"
)

// Type classifies what a reference points at.
type Type string

const (
	TypeMessage      Type = "message"
	TypeMoment       Type = "moment"
	TypeInsight      Type = "insight"
	TypeBreakthrough Type = "breakthrough"
	TypeGoal         Type = "goal"
)

// Importance ranks how much weight a reference carries.
type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceMedium   Importance = "medium"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

// Rank returns the sort weight of an importance level, critical highest.
func (i Importance) Rank() int {
	switch i {
	case ImportanceCritical:
		return 4
	case ImportanceHigh:
		return 3
	case ImportanceMedium:
		return 2
	case ImportanceLow:
		return 1
	default:
		return 0
	}
}

// Reference is a pointer into a session, carrying enough captured
// context to stay meaningful if the session is later deleted.
type Reference struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id,omitempty"`

	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Type        Type       `json:"type"`
	Importance  Importance `json:"importance"`
	Tags        []string   `json:"tags,omitempty"`

	Context  Context  `json:"context"`
	Metadata Metadata `json:"metadata"`
	Insights Insights `json:"insights"`
}

// Context is a snapshot of the conversational surroundings captured at
// creation time.
type Context struct {
	SessionTitle   string    `json:"session_title,omitempty"`
	SessionDate    time.Time `json:"session_date,omitempty"`
	MessageContext string    `json:"message_context,omitempty"`
	EmotionalState string    `json:"emotional_state,omitempty"`
	Topics         []string  `json:"topics,omitempty"`
	Entities       []string  `json:"entities,omitempty"`
}

// Metadata tracks lifecycle and linkage of a reference.
type Metadata struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	AccessCount  int64     `json:"access_count"`
	LastAccessed time.Time `json:"last_accessed,omitempty"`
	IsPrivate    bool      `json:"is_private"`

	// LinkedReferences is derived by the linking pass: at most ten ids,
	// never the reference's own, ordered by discovery priority.
	LinkedReferences []string `json:"linked_references,omitempty"`

	RelatedSessions []string `json:"related_sessions,omitempty"`
}

// Insights holds free-form analysis attached to a reference.
type Insights struct {
	KeyPoints             []string `json:"key_points,omitempty"`
	EmotionalSignificance string   `json:"emotional_significance,omitempty"`
	TherapeuticValue      string   `json:"therapeutic_value,omitempty"`
	ProgressMarkers       []string `json:"progress_markers,omitempty"`
}

// Bookmark is a labeled pointer to a reference. It holds the reference
// id only (a weak reference): deleting the reference cascades to its
// bookmarks.
type Bookmark struct {
	ID          string    `json:"id"`
	ReferenceID string    `json:"reference_id"`
	Label       string    `json:"label,omitempty"`
	Color       string    `json:"color,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Position is the insertion order; there is no reordering operation.
	Position int `json:"position"`
}

// Collection is a named, ordered grouping of references. Its reference
// ids are not validated against live references; rendering must
// tolerate dangling ids.
type Collection struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	ReferenceIDs []string  `json:"reference_ids"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Statistics summarizes the reference store.
type Statistics struct {
	TotalReferences  int                `json:"total_references"`
	TotalBookmarks   int                `json:"total_bookmarks"`
	TotalCollections int                `json:"total_collections"`
	ByType           map[Type]int       `json:"by_type"`
	ByImportance     map[Importance]int `json:"by_importance"`
	TopTags          []TagCount         `json:"top_tags"`
	CreatedLast24h   int                `json:"created_last_24h"`
}

// TagCount pairs a tag with its usage count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Sentinel errors for reference operations.
var (
	// ErrSessionNotFound is returned when a reference targets a session
	// the session store cannot resolve.
	ErrSessionNotFound = errors.New("session not found")

	// ErrReferenceNotFound is returned by operations that require an
	// existing reference.
	ErrReferenceNotFound = errors.New("reference not found")
)

// ValidationError reports a missing or malformed required field,
// raised before any state is mutated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + ": " + e.Message
}
