package reference

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/nithinv16/hearmem/internal/metrics"
)

// SearchOptions filter and shape a reference search. All filters are
// combined with AND; within a single filter any value matching is
// enough.
type SearchOptions struct {
	Tags       []string
	Types      []Type
	Importance []Importance
	From       time.Time
	To         time.Time
	SessionIDs []string

	// IncludeContext extends scoring to the serialized context snapshot.
	IncludeContext bool

	// SortBy is one of relevance (default), date, importance, access.
	SortBy string

	// Limit caps the result count; 0 means the configured default.
	Limit int
}

// SearchResult pairs a reference with its relevance score.
type SearchResult struct {
	Reference *Reference `json:"reference"`
	Score     float64    `json:"score"`
}

// SearchReferences scores every reference passing the filters against
// the query. Zero-scoring references are excluded unless the query is
// empty, in which case filters alone select the results.
func (m *Manager) SearchReferences(query string, opts SearchOptions) []*SearchResult {
	metrics.IncCounter(metrics.MetricReferenceSearch)

	m.mu.RLock()
	defer m.mu.RUnlock()

	queryLower := strings.ToLower(strings.TrimSpace(query))
	tokens := queryTokens(queryLower)

	results := make([]*SearchResult, 0)
	for _, ref := range m.orderedRefsLocked() {
		if !matchesFilters(ref, opts) {
			continue
		}
		score := 0.0
		if queryLower != "" {
			score = scoreReference(ref, queryLower, tokens, opts.IncludeContext)
			if score == 0 {
				continue
			}
		}
		results = append(results, &SearchResult{Reference: ref, Score: score})
	}

	sortReferenceResults(results, opts.SortBy)

	limit := opts.Limit
	if limit <= 0 {
		limit = m.searchLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

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

func matchesFilters(ref *Reference, opts SearchOptions) bool {
	if len(opts.Tags) > 0 && !anyTagMatch(ref.Tags, opts.Tags) {
		return false
	}
	if len(opts.Types) > 0 && !containsType(opts.Types, ref.Type) {
		return false
	}
	if len(opts.Importance) > 0 && !containsImportance(opts.Importance, ref.Importance) {
		return false
	}
	if !opts.From.IsZero() && ref.Metadata.CreatedAt.Before(opts.From) {
		return false
	}
	if !opts.To.IsZero() && ref.Metadata.CreatedAt.After(opts.To) {
		return false
	}
	if len(opts.SessionIDs) > 0 {
		found := false
		for _, id := range opts.SessionIDs {
			if id == ref.SessionID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func anyTagMatch(refTags, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range refTags {
			if strings.EqualFold(t, w) {
				return true
			}
		}
	}
	return false
}

func containsType(types []Type, t Type) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

func containsImportance(imps []Importance, imp Importance) bool {
	for _, v := range imps {
		if v == imp {
			return true
		}
	}
	return false
}

// scoreReference weights fields by editorial intent: the title carries
// the most signal, then the description, then tags, then the raw
// context snapshot.
func scoreReference(ref *Reference, queryLower string, tokens []string, includeContext bool) float64 {
	score := 0.0

	title := strings.ToLower(ref.Title)
	if strings.Contains(title, queryLower) {
		score += 5
	}
	for _, token := range tokens {
		if strings.Contains(title, token) {
			score += 2
		}
	}

	desc := strings.ToLower(ref.Description)
	if desc != "" {
		if strings.Contains(desc, queryLower) {
			score += 3
		}
		for _, token := range tokens {
			if strings.Contains(desc, token) {
				score += 1
			}
		}
	}

	for _, tag := range ref.Tags {
		tagLower := strings.ToLower(tag)
		if strings.Contains(tagLower, queryLower) {
			score += 2
		}
		for _, token := range tokens {
			if strings.Contains(tagLower, token) {
				score += 1
			}
		}
	}

	if includeContext {
		if ctxJSON, err := json.Marshal(ref.Context); err == nil {
			ctxLower := strings.ToLower(string(ctxJSON))
			for _, token := range tokens {
				if strings.Contains(ctxLower, token) {
					score += 0.5
				}
			}
		}
	}

	return score
}

func sortReferenceResults(results []*SearchResult, sortBy string) {
	switch sortBy {
	case "date":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Reference.Metadata.CreatedAt.After(results[j].Reference.Metadata.CreatedAt)
		})
	case "importance":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Reference.Importance.Rank() > results[j].Reference.Importance.Rank()
		})
	case "access":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Reference.Metadata.AccessCount > results[j].Reference.Metadata.AccessCount
		})
	default:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
	}
}
