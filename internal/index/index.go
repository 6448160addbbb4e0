// Package index provides the inverted token index over message and
// reference text.
package index

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// minTokenLen filters out short stopword-like tokens. Tokens of length
// 2 or less never enter the index.
const minTokenLen = 3

var tokenSplit = regexp.MustCompile(`\W+`)

// Tokenize lower-cases text, splits on non-word boundaries and drops
// tokens shorter than three characters.
func Tokenize(text string) []string {
	parts := tokenSplit.Split(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) >= minTokenLen {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// Index maps normalized tokens to the set of entity keys containing them.
// Keys are opaque to the index; callers encode session+message pairs or
// bare reference ids as they see fit.
type Index struct {
	mu      sync.RWMutex
	buckets map[string]map[string]struct{}
}

// New creates an empty index.
func New() *Index {
	return &Index{buckets: make(map[string]map[string]struct{})}
}

// Add indexes id under every token of text.
func (x *Index) Add(id, text string) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for _, token := range tokens {
		bucket, ok := x.buckets[token]
		if !ok {
			bucket = make(map[string]struct{})
			x.buckets[token] = bucket
		}
		bucket[id] = struct{}{}
	}
}

// Remove deletes id from every bucket it appears in, pruning buckets
// that become empty. This walks the whole index; deletes are rare
// relative to reads at single-user data sizes, so the linear scan is a
// deliberate tradeoff over keeping a reverse mapping in sync.
func (x *Index) Remove(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for token, bucket := range x.buckets {
		if _, ok := bucket[id]; ok {
			delete(bucket, id)
			if len(bucket) == 0 {
				delete(x.buckets, token)
			}
		}
	}
}

// Rebuild clears the index and re-adds every entry. Used after bulk
// load so index state never depends on how the persisted blob was
// structured.
func (x *Index) Rebuild(entries map[string]string) {
	x.mu.Lock()
	x.buckets = make(map[string]map[string]struct{})
	x.mu.Unlock()

	for id, text := range entries {
		x.Add(id, text)
	}
}

// Lookup returns the sorted ids indexed under token. The token is
// normalized the same way Add normalizes text.
func (x *Index) Lookup(token string) []string {
	normalized := Tokenize(token)
	if len(normalized) == 0 {
		return nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	bucket, ok := x.buckets[normalized[0]]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Contains reports whether id is indexed under token.
func (x *Index) Contains(token, id string) bool {
	normalized := Tokenize(token)
	if len(normalized) == 0 {
		return false
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	bucket, ok := x.buckets[normalized[0]]
	if !ok {
		return false
	}
	_, ok = bucket[id]
	return ok
}

// Tokens returns the number of distinct tokens in the index.
func (x *Index) Tokens() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.buckets)
}

// Snapshot returns a copy of the index state as token -> sorted ids,
// for tests and diagnostics.
func (x *Index) Snapshot() map[string][]string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make(map[string][]string, len(x.buckets))
	for token, bucket := range x.buckets {
		ids := make([]string, 0, len(bucket))
		for id := range bucket {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[token] = ids
	}
	return out
}
