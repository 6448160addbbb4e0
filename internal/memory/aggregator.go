package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nithinv16/hearmem/internal/cache"
	"github.com/nithinv16/hearmem/internal/config"
	"github.com/nithinv16/hearmem/internal/logger"
	"github.com/nithinv16/hearmem/internal/metrics"
	"github.com/nithinv16/hearmem/internal/session"
	"github.com/nithinv16/hearmem/internal/storage"
)

// Aggregator owns the four memory layers for one user. The short-term
// layer is an in-process LRU buffer; the others persist through the KV
// store, best effort.
type Aggregator struct {
	mu sync.RWMutex

	kv     storage.KV
	userID string
	log    *logger.Logger

	shortTerm  *cache.LRU[*Entry]
	longTerm   []*Entry
	emotional  []*Entry
	contextual []*Entry

	prefs     UserPreferences
	extractor Extractor

	retrievalLimit int
}

// NewAggregator creates a memory aggregator. A nil extractor gets the
// built-in keyword extractor. Call Load to restore persisted layers.
func NewAggregator(kv storage.KV, userID string, cfg config.MemoryConfig, extractor Extractor, log *logger.Logger) *Aggregator {
	if log == nil {
		log = logger.Default()
	}
	if extractor == nil {
		extractor = KeywordExtractor{}
	}
	capacity := cfg.ShortTermCapacity
	if capacity <= 0 {
		capacity = 50
	}
	limit := cfg.RetrievalLimit
	if limit <= 0 {
		limit = 10
	}
	return &Aggregator{
		kv:             kv,
		userID:         userID,
		log:            log.WithPrefix("memory"),
		shortTerm:      cache.NewLRU[*Entry](capacity, 0),
		extractor:      extractor,
		retrievalLimit: limit,
	}
}

type persistedState struct {
	LongTerm    []*Entry        `json:"long_term"`
	Emotional   []*Entry        `json:"emotional"`
	Contextual  []*Entry        `json:"contextual"`
	Preferences UserPreferences `json:"preferences"`
}

// Load restores the persisted layers. Failures degrade to empty
// layers.
func (a *Aggregator) Load(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := a.kv.Get(ctx, a.storageKey())
	if err != nil {
		a.log.Error("loading memories: %v", err)
		return
	}
	if data == nil {
		return
	}

	var state persistedState
	if err := storage.DecodeBlob(data, &state); err != nil {
		a.log.Error("parsing memories blob, starting empty: %v", err)
		return
	}

	a.longTerm = state.LongTerm
	a.emotional = state.Emotional
	a.contextual = state.Contextual
	a.prefs = state.Preferences
	a.log.Debug("loaded %d long-term, %d emotional, %d contextual memories",
		len(a.longTerm), len(a.emotional), len(a.contextual))
}

func (a *Aggregator) storageKey() string {
	return storage.Key(storage.DomainMemories, a.userID)
}

// StoreInput is one interaction handed to StoreMemory.
type StoreInput struct {
	Message   string
	Response  string
	Sentiment *session.Sentiment
	SessionID string
	Timestamp time.Time
}

// StoreResult reports which layers recorded the interaction.
type StoreResult struct {
	Promoted   bool
	Importance float64
	Emotional  bool
	Contextual bool
}

// StoreMemory always buffers the interaction short-term, promotes it
// to long-term when significant, and records emotional and contextual
// entries when the analysis yields anything.
func (a *Aggregator) StoreMemory(ctx context.Context, in StoreInput) StoreResult {
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	base := Entry{
		ID:        uuid.New().String(),
		Message:   in.Message,
		Response:  in.Response,
		SessionID: in.SessionID,
		Timestamp: in.Timestamp,
		Sentiment: in.Sentiment,
	}
	extraction := a.extractor.Extract(in.Message)
	base.Topics = extraction.Topics
	base.Entities = extraction.Entities
	base.Triggers = extraction.Triggers

	a.mu.Lock()
	defer a.mu.Unlock()

	short := base
	short.Layer = LayerShortTerm
	a.shortTerm.Set(short.ID, &short)

	var result StoreResult
	if significant(in) {
		long := base
		long.ID = uuid.New().String()
		long.Layer = LayerLongTerm
		long.Importance = importanceScore(in)
		a.longTerm = append(a.longTerm, &long)
		result.Promoted = true
		result.Importance = long.Importance
		metrics.IncCounter(metrics.MetricMemoriesPromoted)
	}

	if in.Sentiment != nil || len(extraction.Triggers) > 0 {
		emo := base
		emo.ID = uuid.New().String()
		emo.Layer = LayerEmotional
		a.emotional = append(a.emotional, &emo)
		result.Emotional = true
	}

	if len(extraction.Topics) > 0 || len(extraction.Entities) > 0 {
		ctxEntry := base
		ctxEntry.ID = uuid.New().String()
		ctxEntry.Layer = LayerContextual
		a.contextual = append(a.contextual, &ctxEntry)
		result.Contextual = true
	}

	if result.Promoted || result.Emotional || result.Contextual {
		a.persistLocked(ctx)
	}
	return result
}

// significant is the long-term promotion gate.
func significant(in StoreInput) bool {
	if ContainsEmotionalKeyword(in.Message) {
		return true
	}
	if in.Sentiment != nil && abs(in.Sentiment.Score) > 0.7 {
		return true
	}
	return len(in.Message) > 100
}

// importanceScore weighs a promoted memory: base 0.5, plus scaled
// sentiment strength, plus a length bonus, clamped to [0,1].
func importanceScore(in StoreInput) float64 {
	score := 0.5
	if in.Sentiment != nil {
		score += abs(in.Sentiment.Score) * 0.3
	}
	if len(in.Message) > 200 {
		score += 0.2
	}
	if score > 1 {
		score = 1
	}
	return score
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// RetrievalOptions select which layers feed RelevantMemories. Leaving
// every flag false selects all layers.
type RetrievalOptions struct {
	IncludeShortTerm  bool
	IncludeLongTerm   bool
	IncludeEmotional  bool
	IncludeContextual bool

	// Limit caps the result count; 0 means the configured default.
	Limit int
}

func (o RetrievalOptions) allLayers() bool {
	return !o.IncludeShortTerm && !o.IncludeLongTerm && !o.IncludeEmotional && !o.IncludeContextual
}

// RelevantMemories merges the enabled layers and ranks by relevance,
// the count of query words appearing as substrings in the entry text,
// with recency breaking ties.
func (a *Aggregator) RelevantMemories(query string, opts RetrievalOptions) []*Entry {
	metrics.IncCounter(metrics.MetricMemoryRetrievals)

	a.mu.RLock()
	defer a.mu.RUnlock()

	all := opts.allLayers()
	var candidates []*Entry
	if all || opts.IncludeShortTerm {
		candidates = append(candidates, a.shortTerm.Recent(0)...)
	}
	if all || opts.IncludeLongTerm {
		candidates = append(candidates, a.longTerm...)
	}
	if all || opts.IncludeEmotional {
		candidates = append(candidates, a.emotional...)
	}
	if all || opts.IncludeContextual {
		candidates = append(candidates, a.contextual...)
	}

	words := strings.Fields(strings.ToLower(query))
	relevance := make(map[*Entry]int, len(candidates))
	for _, e := range candidates {
		relevance[e] = countWordHits(e.Text(), words)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := relevance[candidates[i]], relevance[candidates[j]]
		if ri != rj {
			return ri > rj
		}
		return candidates[i].Timestamp.After(candidates[j].Timestamp)
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = a.retrievalLimit
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// countWordHits counts query words found as substrings in text. Every
// whitespace-delimited word counts, regardless of length.
func countWordHits(text string, words []string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			hits++
		}
	}
	return hits
}

// SetPreferences replaces the preference snapshot and persists.
func (a *Aggregator) SetPreferences(ctx context.Context, prefs UserPreferences) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prefs = prefs
	a.persistLocked(ctx)
}

// Preferences returns the current preference snapshot.
func (a *Aggregator) Preferences() UserPreferences {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.prefs
}

// Context bundles preferences, the ten most recent cross-layer
// memories and the emotional summary. It never fails: a broken layer
// contributes an empty field.
func (a *Aggregator) Context() UserContext {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := UserContext{
		Preferences:    a.prefs,
		RecentMemories: []*Entry{},
	}

	recent := make([]*Entry, 0, len(a.longTerm)+len(a.emotional)+len(a.contextual))
	recent = append(recent, a.shortTerm.Recent(0)...)
	recent = append(recent, a.longTerm...)
	recent = append(recent, a.emotional...)
	recent = append(recent, a.contextual...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})
	if len(recent) > 10 {
		recent = recent[:10]
	}
	out.RecentMemories = recent

	out.Emotional = summarizeEmotionalLocked(a.emotional)
	return out
}

func summarizeEmotionalLocked(entries []*Entry) EmotionalSummary {
	var sum EmotionalSummary
	labelCounts := make(map[string]int)
	var total float64
	for _, e := range entries {
		if e.Sentiment == nil {
			continue
		}
		sum.Samples++
		total += e.Sentiment.Score
		if e.Sentiment.Label != "" {
			labelCounts[e.Sentiment.Label]++
		}
	}
	if sum.Samples > 0 {
		sum.AverageScore = total / float64(sum.Samples)
	}
	best := 0
	for label, n := range labelCounts {
		if n > best || (n == best && label < sum.DominantLabel) {
			best = n
			sum.DominantLabel = label
		}
	}
	return sum
}

// Flush persists the durable layers.
func (a *Aggregator) Flush(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.persistLocked(ctx)
}

// LayerSizes reports entry counts per layer, for stats output.
func (a *Aggregator) LayerSizes() map[Layer]int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return map[Layer]int{
		LayerShortTerm:  a.shortTerm.Len(),
		LayerLongTerm:   len(a.longTerm),
		LayerEmotional:  len(a.emotional),
		LayerContextual: len(a.contextual),
	}
}

func (a *Aggregator) persistLocked(ctx context.Context) {
	state := persistedState{
		LongTerm:    a.longTerm,
		Emotional:   a.emotional,
		Contextual:  a.contextual,
		Preferences: a.prefs,
	}
	data, err := storage.EncodeBlob(state)
	if err != nil {
		metrics.IncCounter(metrics.MetricFlushFailures)
		a.log.Error("encoding memories: %v", err)
		return
	}
	if err := a.kv.Set(ctx, a.storageKey(), data); err != nil {
		metrics.IncCounter(metrics.MetricFlushFailures)
		a.log.Error("persisting memories: %v", err)
	}
}
