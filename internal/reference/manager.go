package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nithinv16/hearmem/internal/config"
	"github.com/nithinv16/hearmem/internal/index"
	"github.com/nithinv16/hearmem/internal/logger"
	"github.com/nithinv16/hearmem/internal/metrics"
	"github.com/nithinv16/hearmem/internal/session"
	"github.com/nithinv16/hearmem/internal/storage"
)

// SessionResolver is the read-only view of the session store the
// manager depends on. References hold weak pointers into sessions:
// a nil resolution is tolerated everywhere except reference creation.
type SessionResolver interface {
	GetSession(id string) *session.Session
	GetMessage(sessionID, messageID string) *session.Message
}

// Manager owns references, bookmarks and collections for one user, and
// maintains the tag and token indices over them.
type Manager struct {
	mu sync.RWMutex

	kv       storage.KV
	userID   string
	log      *logger.Logger
	sessions SessionResolver

	refs        map[string]*Reference
	bookmarks   map[string]*Bookmark
	collections map[string]*Collection

	// tagIndex maps a tag to the ordered reference ids claiming it.
	// Invariant: an id appears in a bucket iff the reference currently
	// lists that tag.
	tagIndex map[string][]string

	searchIdx *index.Index

	maxLinked   int
	searchLimit int
}

// NewManager creates a reference manager. Call Load to restore
// persisted state.
func NewManager(kv storage.KV, userID string, sessions SessionResolver, cfg config.ReferenceConfig, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Default()
	}
	maxLinked := cfg.MaxLinked
	if maxLinked == 0 {
		maxLinked = 10
	}
	searchLimit := cfg.SearchLimit
	if searchLimit <= 0 {
		searchLimit = 50
	}
	return &Manager{
		kv:          kv,
		userID:      userID,
		log:         log.WithPrefix("reference"),
		sessions:    sessions,
		refs:        make(map[string]*Reference),
		bookmarks:   make(map[string]*Bookmark),
		collections: make(map[string]*Collection),
		tagIndex:    make(map[string][]string),
		searchIdx:   index.New(),
		maxLinked:   maxLinked,
		searchLimit: searchLimit,
	}
}

type persistedState struct {
	References  []*Reference  `json:"references"`
	Bookmarks   []*Bookmark   `json:"bookmarks"`
	Collections []*Collection `json:"collections"`
}

// Load restores persisted state, rebuilding the derived tag and token
// indices from scratch. Failures degrade to an empty manager.
func (m *Manager) Load(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.kv.Get(ctx, m.storageKey())
	if err != nil {
		m.log.Error("loading references: %v", err)
		return
	}
	if data == nil {
		return
	}

	var state persistedState
	if err := storage.DecodeBlob(data, &state); err != nil {
		m.log.Error("parsing references blob, starting empty: %v", err)
		return
	}

	m.refs = make(map[string]*Reference, len(state.References))
	for _, r := range state.References {
		m.refs[r.ID] = r
	}
	m.bookmarks = make(map[string]*Bookmark, len(state.Bookmarks))
	for _, b := range state.Bookmarks {
		m.bookmarks[b.ID] = b
	}
	m.collections = make(map[string]*Collection, len(state.Collections))
	for _, c := range state.Collections {
		m.collections[c.ID] = c
	}

	m.rebuildIndicesLocked()
	m.log.Debug("loaded %d references, %d bookmarks, %d collections",
		len(m.refs), len(m.bookmarks), len(m.collections))
}

func (m *Manager) rebuildIndicesLocked() {
	m.tagIndex = make(map[string][]string)
	entries := make(map[string]string, len(m.refs))

	// Deterministic bucket order regardless of map iteration.
	ids := make([]string, 0, len(m.refs))
	for id := range m.refs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.refs[ids[i]].Metadata.CreatedAt.Before(m.refs[ids[j]].Metadata.CreatedAt)
	})

	for _, id := range ids {
		r := m.refs[id]
		for _, tag := range r.Tags {
			m.tagIndex[tag] = append(m.tagIndex[tag], r.ID)
		}
		entries[r.ID] = searchableText(r)
	}
	m.searchIdx.Rebuild(entries)
}

func (m *Manager) storageKey() string {
	return storage.Key(storage.DomainReferences, m.userID)
}

// searchableText is the token source for a reference: title,
// description, tags and the serialized context snapshot.
func searchableText(r *Reference) string {
	text := r.Title + " " + r.Description
	for _, tag := range r.Tags {
		text += " " + tag
	}
	if ctxJSON, err := json.Marshal(r.Context); err == nil {
		text += " " + string(ctxJSON)
	}
	return text
}

// CreateParams are the inputs to CreateReference. SessionID is the
// only required field.
type CreateParams struct {
	SessionID   string
	MessageID   string
	Title       string
	Description string
	Type        Type
	Importance  Importance
	Tags        []string
	Context     Context
	IsPrivate   bool
}

// CreateReference validates, builds and stores a reference, then runs
// the linking pass before persisting. Validation failures happen before
// any mutation.
func (m *Manager) CreateReference(ctx context.Context, p CreateParams) (*Reference, error) {
	if p.SessionID == "" {
		return nil, &ValidationError{Field: "session_id", Message: "session id is required"}
	}

	sess := m.sessions.GetSession(p.SessionID)
	if sess == nil {
		return nil, fmt.Errorf("creating reference for session %q: %w", p.SessionID, ErrSessionNotFound)
	}

	var msg *session.Message
	if p.MessageID != "" {
		msg = m.sessions.GetMessage(p.SessionID, p.MessageID)
	}

	if p.Type == "" {
		p.Type = TypeMessage
	}
	if p.Importance == "" {
		p.Importance = ImportanceMedium
	}

	now := time.Now()
	ref := &Reference{
		ID:          uuid.New().String(),
		SessionID:   p.SessionID,
		MessageID:   p.MessageID,
		Title:       buildTitle(p.Title, sess, msg),
		Description: p.Description,
		Type:        p.Type,
		Importance:  p.Importance,
		Tags:        dedupe(p.Tags),
		Context:     buildContext(p.Context, sess, msg),
		Metadata: Metadata{
			CreatedAt: now,
			UpdatedAt: now,
			IsPrivate: p.IsPrivate,
		},
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.refs[ref.ID] = ref
	for _, tag := range ref.Tags {
		m.tagIndex[tag] = append(m.tagIndex[tag], ref.ID)
	}
	m.searchIdx.Add(ref.ID, searchableText(ref))
	m.linkRelatedLocked(ref)

	m.persistLocked(ctx)
	metrics.IncCounter(metrics.MetricReferencesCreated)
	m.log.Debug("created reference %s in session %s", ref.ID, ref.SessionID)
	return ref, nil
}

// buildTitle falls back from the explicit title to a 50-character
// message preview, then to the session title.
func buildTitle(title string, sess *session.Session, msg *session.Message) string {
	if title != "" {
		return title
	}
	if msg != nil {
		preview := []rune(msg.Content)
		if len(preview) > 50 {
			return string(preview[:50]) + "..."
		}
		return msg.Content
	}
	if sess.Metadata.Title != "" {
		return sess.Metadata.Title
	}
	return "Reference"
}

// buildContext fills gaps in a caller-supplied context from the live
// session and message.
func buildContext(c Context, sess *session.Session, msg *session.Message) Context {
	if c.SessionTitle == "" {
		c.SessionTitle = sess.Metadata.Title
	}
	if c.SessionDate.IsZero() {
		c.SessionDate = sess.StartTime
	}
	if msg != nil {
		if c.MessageContext == "" {
			c.MessageContext = msg.Content
		}
		if len(c.Topics) == 0 {
			c.Topics = msg.Metadata.Topics
		}
		if len(c.Entities) == 0 {
			c.Entities = msg.Metadata.Entities
		}
		if c.EmotionalState == "" && msg.Metadata.Sentiment != nil {
			c.EmotionalState = msg.Metadata.Sentiment.Label
		}
	}
	return c
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// linkRelatedLocked recomputes the linked-references list for ref only.
// Candidates are discovered in priority order: shared tags, same
// session, overlapping topics. Neighbors' own lists are left untouched,
// so the link graph is asymmetric.
func (m *Manager) linkRelatedLocked(ref *Reference) {
	seen := map[string]bool{ref.ID: true}
	linked := make([]string, 0, m.maxLinked)

	add := func(id string) {
		if !seen[id] && len(linked) < m.maxLinked {
			seen[id] = true
			linked = append(linked, id)
		}
	}

	// Shared tags first.
	for _, tag := range ref.Tags {
		for _, id := range m.tagIndex[tag] {
			add(id)
		}
	}

	// Same session next. Iterate deterministically.
	for _, other := range m.orderedRefsLocked() {
		if other.SessionID == ref.SessionID {
			add(other.ID)
		}
	}

	// Topic overlap last.
	if len(ref.Context.Topics) > 0 {
		topics := make(map[string]bool, len(ref.Context.Topics))
		for _, t := range ref.Context.Topics {
			topics[t] = true
		}
		for _, other := range m.orderedRefsLocked() {
			for _, t := range other.Context.Topics {
				if topics[t] {
					add(other.ID)
					break
				}
			}
		}
	}

	ref.Metadata.LinkedReferences = linked
}

// orderedRefsLocked returns references ordered by creation time.
func (m *Manager) orderedRefsLocked() []*Reference {
	out := make([]*Reference, 0, len(m.refs))
	for _, r := range m.refs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Metadata.CreatedAt.Before(out[j].Metadata.CreatedAt)
	})
	return out
}

// GetReference returns the reference with the given id, or nil. A
// successful read bumps the access count and last-accessed time; the
// popularity ranking depends on this side effect.
func (m *Manager) GetReference(ctx context.Context, id string) *Reference {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := m.refs[id]
	if ref == nil {
		return nil
	}
	ref.Metadata.AccessCount++
	ref.Metadata.LastAccessed = time.Now()
	return ref
}

// UpdateParams are the mutable fields of a reference; nil fields are
// left unchanged.
type UpdateParams struct {
	Title       *string
	Description *string
	Type        *Type
	Importance  *Importance
	Tags        *[]string
	IsPrivate   *bool
	Insights    *Insights
}

// UpdateReference applies updates to an existing reference. A tag
// change fully removes the id from its old buckets before inserting it
// into the new ones, keeping tag bidirectionality intact.
func (m *Manager) UpdateReference(ctx context.Context, id string, p UpdateParams) (*Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := m.refs[id]
	if ref == nil {
		return nil, fmt.Errorf("updating reference %q: %w", id, ErrReferenceNotFound)
	}

	if p.Title != nil {
		ref.Title = *p.Title
	}
	if p.Description != nil {
		ref.Description = *p.Description
	}
	if p.Type != nil {
		ref.Type = *p.Type
	}
	if p.Importance != nil {
		ref.Importance = *p.Importance
	}
	if p.IsPrivate != nil {
		ref.Metadata.IsPrivate = *p.IsPrivate
	}
	if p.Insights != nil {
		ref.Insights = *p.Insights
	}

	if p.Tags != nil {
		for _, tag := range ref.Tags {
			m.removeFromTagBucketLocked(tag, id)
		}
		ref.Tags = dedupe(*p.Tags)
		for _, tag := range ref.Tags {
			m.tagIndex[tag] = append(m.tagIndex[tag], id)
		}
	}

	ref.Metadata.UpdatedAt = time.Now()

	m.searchIdx.Remove(id)
	m.searchIdx.Add(id, searchableText(ref))

	m.persistLocked(ctx)
	return ref, nil
}

func (m *Manager) removeFromTagBucketLocked(tag, id string) {
	bucket := m.tagIndex[tag]
	for i, v := range bucket {
		if v == id {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(m.tagIndex, tag)
	} else {
		m.tagIndex[tag] = bucket
	}
}

// DeleteReference removes a reference and cascades: its id leaves
// every tag bucket, every collection, every bookmark pointing at it,
// and the search index. Returns false when the id does not exist.
func (m *Manager) DeleteReference(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := m.refs[id]
	if ref == nil {
		return false
	}

	for _, tag := range ref.Tags {
		m.removeFromTagBucketLocked(tag, id)
	}

	for _, col := range m.collections {
		for i, rid := range col.ReferenceIDs {
			if rid == id {
				col.ReferenceIDs = append(col.ReferenceIDs[:i], col.ReferenceIDs[i+1:]...)
				col.UpdatedAt = time.Now()
				break
			}
		}
	}

	for bid, b := range m.bookmarks {
		if b.ReferenceID == id {
			delete(m.bookmarks, bid)
		}
	}

	m.searchIdx.Remove(id)
	delete(m.refs, id)

	m.persistLocked(ctx)
	metrics.IncCounter(metrics.MetricReferencesDeleted)
	return true
}

// CreateBookmark attaches a bookmark to an existing reference. The
// position is the bookmark count at creation; ordering is append-only.
func (m *Manager) CreateBookmark(ctx context.Context, referenceID, label, color string) (*Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := m.refs[referenceID]
	if ref == nil {
		return nil, fmt.Errorf("bookmarking reference %q: %w", referenceID, ErrReferenceNotFound)
	}
	if label == "" {
		label = ref.Title
	}

	b := &Bookmark{
		ID:          uuid.New().String(),
		ReferenceID: referenceID,
		Label:       label,
		Color:       color,
		CreatedAt:   time.Now(),
		Position:    len(m.bookmarks),
	}
	m.bookmarks[b.ID] = b

	m.persistLocked(ctx)
	return b, nil
}

// CreateCollection builds a named grouping of reference ids. The ids
// are deduplicated but not validated; consumers tolerate dangling ids.
func (m *Manager) CreateCollection(ctx context.Context, name, description string, referenceIDs, tags []string) (*Collection, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "collection name is required"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	c := &Collection{
		ID:           uuid.New().String(),
		Name:         name,
		Description:  description,
		ReferenceIDs: dedupe(referenceIDs),
		Tags:         dedupe(tags),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.collections[c.ID] = c

	m.persistLocked(ctx)
	return c, nil
}

// GetCollection returns a collection by id, or nil.
func (m *Manager) GetCollection(id string) *Collection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collections[id]
}

// References returns all references ordered by creation time.
func (m *Manager) References() []*Reference {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orderedRefsLocked()
}

// Bookmarks returns all bookmarks ordered by position.
func (m *Manager) Bookmarks() []*Bookmark {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Bookmark, 0, len(m.bookmarks))
	for _, b := range m.bookmarks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Collections returns all collections ordered by creation time.
func (m *Manager) Collections() []*Collection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Collection, 0, len(m.collections))
	for _, c := range m.collections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Statistics derives aggregate metrics over the reference store.
func (m *Manager) Statistics() *Statistics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Statistics{
		TotalReferences:  len(m.refs),
		TotalBookmarks:   len(m.bookmarks),
		TotalCollections: len(m.collections),
		ByType:           make(map[Type]int),
		ByImportance:     make(map[Importance]int),
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	for _, r := range m.refs {
		stats.ByType[r.Type]++
		stats.ByImportance[r.Importance]++
		if r.Metadata.CreatedAt.After(cutoff) {
			stats.CreatedLast24h++
		}
	}

	tags := make([]TagCount, 0, len(m.tagIndex))
	for tag, ids := range m.tagIndex {
		tags = append(tags, TagCount{Tag: tag, Count: len(ids)})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})
	if len(tags) > 10 {
		tags = tags[:10]
	}
	stats.TopTags = tags

	return stats
}

// TagBucket returns the reference ids currently claiming tag.
func (m *Manager) TagBucket(tag string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket := m.tagIndex[tag]
	out := make([]string, len(bucket))
	copy(out, bucket)
	return out
}

// SearchIndex exposes the token index for diagnostics and tests.
func (m *Manager) SearchIndex() *index.Index {
	return m.searchIdx
}

// Replace swaps in an imported set of references and collections,
// rebuilding all derived state and persisting.
func (m *Manager) Replace(ctx context.Context, refs []*Reference, collections []*Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refs = make(map[string]*Reference, len(refs))
	for _, r := range refs {
		m.refs[r.ID] = r
	}
	m.collections = make(map[string]*Collection, len(collections))
	for _, c := range collections {
		m.collections[c.ID] = c
	}

	m.rebuildIndicesLocked()
	m.persistLocked(ctx)
}

// Flush persists the current state.
func (m *Manager) Flush(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistLocked(ctx)
}

// persistLocked writes the full state. The write is best-effort: a
// failure is logged and the in-memory mutation stands.
func (m *Manager) persistLocked(ctx context.Context) {
	state := persistedState{
		References:  make([]*Reference, 0, len(m.refs)),
		Bookmarks:   make([]*Bookmark, 0, len(m.bookmarks)),
		Collections: make([]*Collection, 0, len(m.collections)),
	}
	for _, r := range m.refs {
		state.References = append(state.References, r)
	}
	sort.Slice(state.References, func(i, j int) bool {
		return state.References[i].Metadata.CreatedAt.Before(state.References[j].Metadata.CreatedAt)
	})
	for _, b := range m.bookmarks {
		state.Bookmarks = append(state.Bookmarks, b)
	}
	sort.Slice(state.Bookmarks, func(i, j int) bool {
		return state.Bookmarks[i].Position < state.Bookmarks[j].Position
	})
	for _, c := range m.collections {
		state.Collections = append(state.Collections, c)
	}
	sort.Slice(state.Collections, func(i, j int) bool {
		return state.Collections[i].CreatedAt.Before(state.Collections[j].CreatedAt)
	})

	data, err := storage.EncodeBlob(state)
	if err != nil {
		metrics.IncCounter(metrics.MetricFlushFailures)
		m.log.Error("encoding references: %v", err)
		return
	}
	if err := m.kv.Set(ctx, m.storageKey(), data); err != nil {
		metrics.IncCounter(metrics.MetricFlushFailures)
		m.log.Error("persisting references: %v", err)
	}
}
