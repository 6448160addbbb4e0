package session

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/nithinv16/hearmem/internal/metrics"
)

// SearchOptions filter and shape conversation search.
type SearchOptions struct {
	// SessionIDs restricts the search to the given sessions.
	SessionIDs []string

	// From/To bound message timestamps (zero = unbounded).
	From time.Time
	To   time.Time

	// IncludeMetadata also matches tokens against message metadata.
	IncludeMetadata bool

	// SortBy is "relevance" (default), "date" or "importance".
	SortBy string

	// Limit caps results (0 = configured default).
	Limit int

	// ContextRadius is the number of surrounding messages returned with
	// each hit. 0 uses the configured default; negative disables context.
	ContextRadius int
}

// SearchResult is one matched message with its surrounding context.
type SearchResult struct {
	SessionID string     `json:"session_id"`
	Message   *Message   `json:"message"`
	Score     float64    `json:"score"`
	Context   []*Message `json:"context,omitempty"`
}

// SearchConversations scores every message in the filtered sessions
// against the query. Tokens of two characters or less are dropped; a
// message scores +1 per token found in its text, +2 when the full query
// string appears verbatim, and +0.5 per token found in its serialized
// metadata when metadata search is enabled. Zero-score messages are
// excluded.
func (s *Store) SearchConversations(ctx context.Context, query string, opts SearchOptions) []SearchResult {
	metrics.IncCounter(metrics.MetricConversationSearch)
	timer := metrics.StartTimer(metrics.MetricSearchDuration)
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	queryLower := strings.ToLower(query)
	tokens := queryTokens(queryLower)

	limit := opts.Limit
	if limit <= 0 {
		limit = s.searchLimit
	}
	radius := opts.ContextRadius
	if radius == 0 {
		radius = s.contextRadius
	}

	var idFilter map[string]bool
	if len(opts.SessionIDs) > 0 {
		idFilter = make(map[string]bool, len(opts.SessionIDs))
		for _, id := range opts.SessionIDs {
			idFilter[id] = true
		}
	}

	results := make([]SearchResult, 0)
	for _, sess := range s.orderedSessionsLocked() {
		if idFilter != nil && !idFilter[sess.ID] {
			continue
		}
		for i, msg := range sess.Messages {
			if !opts.From.IsZero() && msg.Timestamp.Before(opts.From) {
				continue
			}
			if !opts.To.IsZero() && msg.Timestamp.After(opts.To) {
				continue
			}

			score := scoreMessage(msg, queryLower, tokens, opts.IncludeMetadata)
			if score <= 0 {
				continue
			}

			result := SearchResult{
				SessionID: sess.ID,
				Message:   msg,
				Score:     score,
			}
			if radius > 0 {
				result.Context = contextWindow(sess.Messages, i, radius)
			}
			results = append(results, result)
		}
	}

	sortResults(results, opts.SortBy)

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// queryTokens splits a lower-cased query on whitespace, dropping tokens
// of two characters or less.
func queryTokens(queryLower string) []string {
	fields := strings.Fields(queryLower)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func scoreMessage(msg *Message, queryLower string, tokens []string, includeMetadata bool) float64 {
	content := strings.ToLower(msg.Content)

	var score float64
	for _, token := range tokens {
		if strings.Contains(content, token) {
			score++
		}
	}
	if queryLower != "" && strings.Contains(content, queryLower) {
		score += 2
	}

	if includeMetadata && len(tokens) > 0 {
		if data, err := json.Marshal(msg.Metadata); err == nil {
			meta := strings.ToLower(string(data))
			for _, token := range tokens {
				if strings.Contains(meta, token) {
					score += 0.5
				}
			}
		}
	}
	return score
}

// contextWindow returns the messages within radius positions of index i.
func contextWindow(messages []*Message, i, radius int) []*Message {
	lo := i - radius
	if lo < 0 {
		lo = 0
	}
	hi := i + radius + 1
	if hi > len(messages) {
		hi = len(messages)
	}
	window := make([]*Message, hi-lo)
	copy(window, messages[lo:hi])
	return window
}

func sortResults(results []SearchResult, sortBy string) {
	switch sortBy {
	case "date":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Message.Timestamp.After(results[j].Message.Timestamp)
		})
	case "importance":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Message.Metadata.Importance > results[j].Message.Metadata.Importance
		})
	default: // relevance
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
	}
}
