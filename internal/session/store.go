package session

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nithinv16/hearmem/internal/config"
	"github.com/nithinv16/hearmem/internal/index"
	"github.com/nithinv16/hearmem/internal/logger"
	"github.com/nithinv16/hearmem/internal/metrics"
	"github.com/nithinv16/hearmem/internal/storage"
)

// Store owns all sessions for a user. In-memory state is the source of
// truth; the persistent store trails it by at most one flush batch and
// a flush failure never rolls back a mutation.
type Store struct {
	mu sync.RWMutex

	kv     storage.KV
	userID string
	log    *logger.Logger

	sessions map[string]*Session
	activeID string

	// msgIndex maps tokens to "<sessionID>/<messageID>" keys.
	msgIndex *index.Index

	flushEvery    int
	contextRadius int
	searchLimit   int

	appendsSinceFlush int
}

// NewStore creates a session store. Call Load to restore persisted state.
func NewStore(kv storage.KV, userID string, cfg config.SessionConfig, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Default()
	}
	flushEvery := cfg.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 10
	}
	searchLimit := cfg.SearchLimit
	if searchLimit <= 0 {
		searchLimit = 50
	}
	return &Store{
		kv:            kv,
		userID:        userID,
		log:           log.WithPrefix("session"),
		sessions:      make(map[string]*Session),
		msgIndex:      index.New(),
		flushEvery:    flushEvery,
		contextRadius: cfg.ContextRadius,
		searchLimit:   searchLimit,
	}
}

// persistedState is the shape of the sessions blob.
type persistedState struct {
	Sessions []*Session `json:"sessions"`
	ActiveID string     `json:"active_id,omitempty"`
}

// Load restores persisted sessions. Read or parse failures degrade to
// an empty store; the caller keeps working offline.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.kv.Get(ctx, s.storageKey())
	if err != nil {
		s.log.Error("loading sessions: %v", err)
		return
	}
	if data == nil {
		return
	}

	var state persistedState
	if err := storage.DecodeBlob(data, &state); err != nil {
		s.log.Error("parsing sessions blob, starting empty: %v", err)
		return
	}

	s.sessions = make(map[string]*Session, len(state.Sessions))
	for _, sess := range state.Sessions {
		s.sessions[sess.ID] = sess
	}
	s.activeID = state.ActiveID
	if s.activeID != "" && s.sessions[s.activeID] == nil {
		s.activeID = ""
	}

	s.rebuildIndexLocked()
	s.log.Debug("loaded %d sessions", len(s.sessions))
}

func (s *Store) storageKey() string {
	return storage.Key(storage.DomainSessions, s.userID)
}

// msgKey builds the index key for a message within a session.
func msgKey(sessionID, messageID string) string {
	return sessionID + "/" + messageID
}

func (s *Store) rebuildIndexLocked() {
	entries := make(map[string]string)
	for _, sess := range s.sessions {
		for _, msg := range sess.Messages {
			entries[msgKey(sess.ID, msg.ID)] = msg.Content
		}
	}
	s.msgIndex.Rebuild(entries)
}

// GenerateSessionID builds an id with an embedded timestamp and a
// random suffix, so ids sort roughly by creation time.
func GenerateSessionID() string {
	return fmt.Sprintf("sess-%d-%04d", time.Now().UnixMilli(), rand.Intn(10000))
}

// StartSession creates a new session with the given id and makes it
// active. An empty id is generated. Returns ErrDuplicateSession when
// the id is already present; the caller guarantees uniqueness of ids
// it supplies itself.
func (s *Store) StartSession(ctx context.Context, id string, meta SessionMetadata) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = GenerateSessionID()
	}
	if _, exists := s.sessions[id]; exists {
		return nil, fmt.Errorf("starting session %q: %w", id, ErrDuplicateSession)
	}

	sess := &Session{
		ID:        id,
		StartTime: time.Now(),
		Messages:  make([]*Message, 0),
		Metadata:  meta,
	}
	s.sessions[id] = sess
	s.activeID = id

	metrics.IncCounter(metrics.MetricSessionsStarted)
	s.log.Debug("started session %s", id)
	return sess, nil
}

// AddMessage appends a message to the active session, auto-starting a
// session when none is active. Every flushEvery-th append triggers a
// best-effort persistence flush; other appends stay in memory.
func (s *Store) AddMessage(ctx context.Context, content string, isUser bool, meta MessageMetadata) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[s.activeID]
	if s.activeID == "" || sess == nil {
		id := GenerateSessionID()
		sess = &Session{
			ID:        id,
			StartTime: time.Now(),
			Messages:  make([]*Message, 0),
		}
		s.sessions[id] = sess
		s.activeID = id

		metrics.IncCounter(metrics.MetricSessionsAutoStarted)
		s.log.Warn("no active session, auto-started %s", id)
	}

	msg := &Message{
		ID:        uuid.New().String(),
		Content:   content,
		IsUser:    isUser,
		Timestamp: time.Now(),
		Metadata:  meta,
	}
	sess.Messages = append(sess.Messages, msg)

	if meta.Sentiment != nil {
		sess.EmotionalJourney = append(sess.EmotionalJourney, EmotionalPoint{
			Timestamp: msg.Timestamp,
			Sentiment: meta.Sentiment.Score,
		})
	}

	s.msgIndex.Add(msgKey(sess.ID, msg.ID), content)
	metrics.IncCounter(metrics.MetricMessagesStored)

	s.appendsSinceFlush++
	if s.appendsSinceFlush >= s.flushEvery {
		s.flushLocked(ctx)
	}

	return msg, nil
}

// MarkKeyMoment annotates the active session with a key moment,
// optionally pointing at a specific message.
func (s *Store) MarkKeyMoment(ctx context.Context, description, messageID string) (*KeyMoment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[s.activeID]
	if sess == nil {
		return nil, ErrNoActiveSession
	}

	moment := &KeyMoment{
		ID:          uuid.New().String(),
		Description: description,
		Timestamp:   time.Now(),
		MessageID:   messageID,
	}
	sess.KeyMoments = append(sess.KeyMoments, moment)
	return moment, nil
}

// EndSession closes the session with the given id (the active session
// when id is empty): sets the end time, computes the summary, persists.
// A missing id is a no-op.
func (s *Store) EndSession(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = s.activeID
	}
	sess := s.sessions[id]
	if sess == nil {
		return
	}

	now := time.Now()
	sess.EndTime = &now
	sess.Summary = summarize(sess, now)

	if s.activeID == id {
		s.activeID = ""
	}

	s.flushLocked(ctx)
	s.log.Debug("ended session %s (%d messages)", id, len(sess.Messages))
}

// summarize derives the end-of-session summary.
func summarize(sess *Session, end time.Time) *Summary {
	sum := &Summary{MessageCount: len(sess.Messages)}
	for _, m := range sess.Messages {
		if m.IsUser {
			sum.UserMessages++
		} else {
			sum.AIMessages++
		}
	}
	sum.Duration = end.Sub(sess.StartTime)

	scores := make([]float64, 0, len(sess.EmotionalJourney))
	for _, p := range sess.EmotionalJourney {
		scores = append(scores, p.Sentiment)
	}
	sum.EmotionalTrend = ClassifyTrend(scores)
	return sum
}

// ClassifyTrend splits the sentiment sequence into thirds and compares
// the first third's average against the last third's. A shift above
// +0.2 is improving, below -0.2 declining, anything else stable.
// Fewer than two samples always classify as stable.
func ClassifyTrend(scores []float64) Trend {
	if len(scores) < 2 {
		return TrendStable
	}

	third := len(scores) / 3
	if third == 0 {
		third = 1
	}

	first := average(scores[:third])
	last := average(scores[len(scores)-third:])

	switch delta := last - first; {
	case delta > 0.2:
		return TrendImproving
	case delta < -0.2:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func average(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return sum / float64(len(scores))
}

// GetSession returns the session with the given id, or nil.
func (s *Store) GetSession(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// GetMessage returns a message within a session, or nil when either is
// missing.
func (s *Store) GetMessage(sessionID, messageID string) *Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.sessions[sessionID]
	if sess == nil {
		return nil
	}
	for _, m := range sess.Messages {
		if m.ID == messageID {
			return m
		}
	}
	return nil
}

// ActiveSession returns the currently active session, or nil.
func (s *Store) ActiveSession() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[s.activeID]
}

// Sessions returns all sessions ordered by start time, oldest first.
func (s *Store) Sessions() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orderedSessionsLocked()
}

// orderedSessionsLocked returns sessions ordered by start time, id
// breaking ties, so iteration order never depends on map layout.
func (s *Store) orderedSessionsLocked() []*Session {
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DeleteSession removes a session and its index entries. Returns false
// when the id does not exist.
func (s *Store) DeleteSession(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[id]
	if sess == nil {
		return false
	}

	for _, msg := range sess.Messages {
		s.msgIndex.Remove(msgKey(id, msg.ID))
	}
	delete(s.sessions, id)
	if s.activeID == id {
		s.activeID = ""
	}

	s.flushLocked(ctx)
	return true
}

// Flush persists the full session state. Errors are logged, not
// returned; in-memory state stays authoritative.
func (s *Store) Flush(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked(ctx)
}

func (s *Store) flushLocked(ctx context.Context) {
	timer := metrics.StartTimer(metrics.MetricFlushDuration)
	defer timer.Stop()

	state := persistedState{
		Sessions: make([]*Session, 0, len(s.sessions)),
		ActiveID: s.activeID,
	}
	for _, sess := range s.sessions {
		state.Sessions = append(state.Sessions, sess)
	}
	sort.Slice(state.Sessions, func(i, j int) bool {
		return state.Sessions[i].StartTime.Before(state.Sessions[j].StartTime)
	})

	data, err := storage.EncodeBlob(state)
	if err != nil {
		metrics.IncCounter(metrics.MetricFlushFailures)
		s.log.Error("encoding sessions: %v", err)
		return
	}
	if err := s.kv.Set(ctx, s.storageKey(), data); err != nil {
		metrics.IncCounter(metrics.MetricFlushFailures)
		s.log.Error("flushing sessions: %v", err)
		return
	}
	s.appendsSinceFlush = 0
}

// MessageIndex exposes the message token index for diagnostics.
func (s *Store) MessageIndex() *index.Index {
	return s.msgIndex
}
