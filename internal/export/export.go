// Package export renders references and sessions to JSON, CSV and
// Markdown, and parses JSON exports back for import.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nithinv16/hearmem/internal/reference"
	"github.com/nithinv16/hearmem/internal/session"
)

// bundleVersion tags JSON exports. Parsing tolerates other versions;
// the field exists so future shapes can be told apart.
const bundleVersion = 1

// ReferenceBundle is the JSON export envelope for references.
type ReferenceBundle struct {
	Version     int                     `json:"version"`
	ExportedAt  time.Time               `json:"exported_at"`
	References  []*reference.Reference  `json:"references"`
	Collections []*reference.Collection `json:"collections,omitempty"`
}

// ReferencesJSON renders the full reference graph, pretty-printed with
// two-space indentation.
func ReferencesJSON(refs []*reference.Reference, collections []*reference.Collection) ([]byte, error) {
	bundle := ReferenceBundle{
		Version:     bundleVersion,
		ExportedAt:  time.Now().UTC(),
		References:  refs,
		Collections: collections,
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding reference export: %w", err)
	}
	return data, nil
}

// ParseReferences reads a JSON export back. Unknown fields are
// ignored; a missing or unexpected version is not an error.
func ParseReferences(data []byte) (*ReferenceBundle, error) {
	var bundle ReferenceBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parsing reference export: %w", err)
	}
	return &bundle, nil
}

// csvHeader is fixed; consumers key on these column names.
var csvHeader = []string{"ID", "Title", "Type", "Importance", "Tags", "Created", "Session"}

// ReferencesCSV flattens references to CSV. Tags are joined with
// ", "; embedded quotes are escaped by doubling per RFC 4180.
func ReferencesCSV(refs []*reference.Reference) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range refs {
		row := []string{
			r.ID,
			r.Title,
			string(r.Type),
			string(r.Importance),
			strings.Join(r.Tags, ", "),
			r.Metadata.CreatedAt.Format(time.RFC3339),
			r.SessionID,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ReferencesMarkdown renders a human-readable document: a references
// section with one block per reference, then the collections.
func ReferencesMarkdown(refs []*reference.Reference, collections []*reference.Collection) []byte {
	var b strings.Builder
	b.WriteString("# Chat References Export\n\n")

	b.WriteString("## References\n\n")
	for _, r := range refs {
		fmt.Fprintf(&b, "### %s\n\n", r.Title)
		fmt.Fprintf(&b, "- **Type**: %s\n", r.Type)
		fmt.Fprintf(&b, "- **Importance**: %s\n", r.Importance)
		if len(r.Tags) > 0 {
			fmt.Fprintf(&b, "- **Tags**: %s\n", strings.Join(r.Tags, ", "))
		}
		fmt.Fprintf(&b, "- **Created**: %s\n", r.Metadata.CreatedAt.Format("2006-01-02 15:04"))
		if r.Description != "" {
			fmt.Fprintf(&b, "- **Description**: %s\n", r.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Collections\n\n")
	for _, c := range collections {
		fmt.Fprintf(&b, "### %s\n\n", c.Name)
		if c.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", c.Description)
		}
		fmt.Fprintf(&b, "- **References**: %d\n", len(c.ReferenceIDs))
		fmt.Fprintf(&b, "- **Created**: %s\n\n", c.CreatedAt.Format("2006-01-02 15:04"))
	}

	return []byte(b.String())
}

// SessionBundle is the JSON export envelope for sessions.
type SessionBundle struct {
	Version    int                `json:"version"`
	ExportedAt time.Time          `json:"exported_at"`
	Sessions   []*session.Session `json:"sessions"`
}

// SessionsJSON renders full session transcripts, pretty-printed.
func SessionsJSON(sessions []*session.Session) ([]byte, error) {
	bundle := SessionBundle{
		Version:    bundleVersion,
		ExportedAt: time.Now().UTC(),
		Sessions:   sessions,
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding session export: %w", err)
	}
	return data, nil
}

// ParseSessions reads a session export back.
func ParseSessions(data []byte) (*SessionBundle, error) {
	var bundle SessionBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parsing session export: %w", err)
	}
	return &bundle, nil
}

// sessionCSVHeader is fixed; consumers key on these column names.
var sessionCSVHeader = []string{"ID", "Title", "Started", "Ended", "Messages", "Trend"}

// SessionsCSV flattens sessions to one summary row each. Ended and
// Trend are left empty for sessions that have not ended.
func SessionsCSV(sessions []*session.Session) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(sessionCSVHeader); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	for _, s := range sessions {
		ended := ""
		if s.EndTime != nil {
			ended = s.EndTime.Format(time.RFC3339)
		}
		trend := ""
		if s.Summary != nil {
			trend = string(s.Summary.EmotionalTrend)
		}
		row := []string{
			s.ID,
			s.Metadata.Title,
			s.StartTime.Format(time.RFC3339),
			ended,
			fmt.Sprintf("%d", len(s.Messages)),
			trend,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

// SessionsMarkdown renders session transcripts as a readable log.
func SessionsMarkdown(sessions []*session.Session) []byte {
	var b strings.Builder
	b.WriteString("# Conversation Export\n\n")

	for _, s := range sessions {
		title := s.Metadata.Title
		if title == "" {
			title = s.ID
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		fmt.Fprintf(&b, "- **Started**: %s\n", s.StartTime.Format("2006-01-02 15:04"))
		if s.EndTime != nil {
			fmt.Fprintf(&b, "- **Ended**: %s\n", s.EndTime.Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(&b, "- **Messages**: %d\n\n", len(s.Messages))

		for _, m := range s.Messages {
			speaker := "Assistant"
			if m.IsUser {
				speaker = "User"
			}
			fmt.Fprintf(&b, "**%s** (%s): %s\n\n", speaker, m.Timestamp.Format("15:04"), m.Content)
		}
	}

	return []byte(b.String())
}
