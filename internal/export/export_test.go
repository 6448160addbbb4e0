package export

import (
	"strings"
	"testing"
	"time"

	"github.com/nithinv16/hearmem/internal/reference"
	"github.com/nithinv16/hearmem/internal/session"
)

func sampleReferences() []*reference.Reference {
	created := time.Date(2026, 5, 2, 14, 30, 0, 0, time.UTC)
	return []*reference.Reference{
		{
			ID:          "ref-1",
			SessionID:   "sess-1",
			Title:       `The "big" realization`,
			Description: "Connected the dots on avoidance",
			Type:        reference.TypeBreakthrough,
			Importance:  reference.ImportanceHigh,
			Tags:        []string{"avoidance", "cbt"},
			Metadata:    reference.Metadata{CreatedAt: created},
		},
		{
			ID:         "ref-2",
			SessionID:  "sess-2",
			Title:      "Sleep note",
			Type:       reference.TypeInsight,
			Importance: reference.ImportanceLow,
			Tags:       []string{"sleep"},
			Metadata:   reference.Metadata{CreatedAt: created.Add(time.Hour)},
		},
	}
}

func TestReferencesJSONRoundTrip(t *testing.T) {
	refs := sampleReferences()
	collections := []*reference.Collection{
		{ID: "col-1", Name: "Wins", ReferenceIDs: []string{"ref-1"}},
	}

	data, err := ReferencesJSON(refs, collections)
	if err != nil {
		t.Fatalf("ReferencesJSON: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"version\": 1") {
		t.Error("export should be two-space indented with a version field")
	}

	bundle, err := ParseReferences(data)
	if err != nil {
		t.Fatalf("ParseReferences: %v", err)
	}
	if len(bundle.References) != len(refs) {
		t.Fatalf("round-trip references = %d, want %d", len(bundle.References), len(refs))
	}
	for i, r := range bundle.References {
		orig := refs[i]
		if r.ID != orig.ID || r.Type != orig.Type {
			t.Errorf("reference %d: id/type changed: %q/%q", i, r.ID, r.Type)
		}
		if strings.Join(r.Tags, ",") != strings.Join(orig.Tags, ",") {
			t.Errorf("reference %d: tags changed: %v", i, r.Tags)
		}
	}
	if len(bundle.Collections) != 1 || bundle.Collections[0].Name != "Wins" {
		t.Error("collections lost in round trip")
	}
}

func TestParseReferencesTolerance(t *testing.T) {
	// Unknown fields and a foreign version must parse.
	raw := `{"version": 99, "extra": {"nested": true}, "references": [{"id": "x", "title": "T"}]}`
	bundle, err := ParseReferences([]byte(raw))
	if err != nil {
		t.Fatalf("ParseReferences: %v", err)
	}
	if len(bundle.References) != 1 || bundle.References[0].ID != "x" {
		t.Errorf("references = %v", bundle.References)
	}

	if _, err := ParseReferences([]byte("not json")); err == nil {
		t.Error("malformed input should error")
	}
}

func TestReferencesCSV(t *testing.T) {
	data, err := ReferencesCSV(sampleReferences())
	if err != nil {
		t.Fatalf("ReferencesCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header plus 2 rows", len(lines))
	}
	if lines[0] != "ID,Title,Type,Importance,Tags,Created,Session" {
		t.Errorf("header = %q", lines[0])
	}
	// Embedded quotes doubled, field quoted.
	if !strings.Contains(lines[1], `"The ""big"" realization"`) {
		t.Errorf("quote escaping wrong: %q", lines[1])
	}
	if !strings.Contains(lines[1], `"avoidance, cbt"`) {
		t.Errorf("tags not joined: %q", lines[1])
	}
}

func TestReferencesMarkdown(t *testing.T) {
	collections := []*reference.Collection{
		{Name: "Wins", Description: "Good days", ReferenceIDs: []string{"ref-1", "ref-2"}},
	}
	out := string(ReferencesMarkdown(sampleReferences(), collections))

	for _, want := range []string{
		"# Chat References Export",
		"## References",
		`### The "big" realization`,
		"- **Type**: breakthrough",
		"- **Importance**: high",
		"- **Tags**: avoidance, cbt",
		"- **Description**: Connected the dots on avoidance",
		"## Collections",
		"### Wins",
		"- **References**: 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	refIdx := strings.Index(out, "## References")
	colIdx := strings.Index(out, "## Collections")
	if refIdx < 0 || colIdx < 0 || colIdx < refIdx {
		t.Error("sections out of order")
	}
}

func TestSessionsRoundTrip(t *testing.T) {
	end := time.Date(2026, 5, 2, 10, 45, 0, 0, time.UTC)
	sessions := []*session.Session{
		{
			ID:        "sess-1",
			StartTime: end.Add(-time.Hour),
			EndTime:   &end,
			Metadata:  session.SessionMetadata{Title: "Morning"},
			Messages: []*session.Message{
				{ID: "m1", Content: "hello", IsUser: true, Timestamp: end.Add(-50 * time.Minute)},
				{ID: "m2", Content: "hi, how are you feeling?", Timestamp: end.Add(-49 * time.Minute)},
			},
		},
	}

	data, err := SessionsJSON(sessions)
	if err != nil {
		t.Fatalf("SessionsJSON: %v", err)
	}
	bundle, err := ParseSessions(data)
	if err != nil {
		t.Fatalf("ParseSessions: %v", err)
	}
	if len(bundle.Sessions) != 1 || len(bundle.Sessions[0].Messages) != 2 {
		t.Fatalf("round-trip sessions = %+v", bundle.Sessions)
	}

	md := string(SessionsMarkdown(sessions))
	for _, want := range []string{"# Conversation Export", "## Morning", "**User**", "**Assistant**"} {
		if !strings.Contains(md, want) {
			t.Errorf("session markdown missing %q", want)
		}
	}
}

func TestSessionsCSV(t *testing.T) {
	end := time.Date(2026, 5, 2, 10, 45, 0, 0, time.UTC)
	sessions := []*session.Session{
		{
			ID:        "sess-1",
			StartTime: end.Add(-time.Hour),
			EndTime:   &end,
			Metadata:  session.SessionMetadata{Title: "Morning"},
			Summary:   &session.Summary{EmotionalTrend: session.TrendImproving},
			Messages: []*session.Message{
				{ID: "m1", Content: "hello", IsUser: true},
				{ID: "m2", Content: "hi, how are you feeling?"},
			},
		},
		{
			ID:        "sess-2",
			StartTime: end.Add(time.Hour),
		},
	}

	data, err := SessionsCSV(sessions)
	if err != nil {
		t.Fatalf("SessionsCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header plus 2 rows", len(lines))
	}
	if lines[0] != "ID,Title,Started,Ended,Messages,Trend" {
		t.Errorf("header = %q", lines[0])
	}
	if want := "sess-1,Morning,2026-05-02T09:45:00Z,2026-05-02T10:45:00Z,2,improving"; lines[1] != want {
		t.Errorf("row = %q, want %q", lines[1], want)
	}
	// An open session has no end time or trend yet.
	if want := "sess-2,,2026-05-02T11:45:00Z,,0,"; lines[2] != want {
		t.Errorf("open session row = %q, want %q", lines[2], want)
	}
}
