package reference

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/nithinv16/hearmem/internal/config"
	"github.com/nithinv16/hearmem/internal/session"
	"github.com/nithinv16/hearmem/internal/storage"
)

type stubResolver struct {
	sessions map[string]*session.Session
}

func (s *stubResolver) GetSession(id string) *session.Session {
	return s.sessions[id]
}

func (s *stubResolver) GetMessage(sessionID, messageID string) *session.Message {
	sess := s.sessions[sessionID]
	if sess == nil {
		return nil
	}
	for _, msg := range sess.Messages {
		if msg.ID == messageID {
			return msg
		}
	}
	return nil
}

func newTestResolver() *stubResolver {
	return &stubResolver{
		sessions: map[string]*session.Session{
			"sess-1": {
				ID:        "sess-1",
				StartTime: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
				Metadata:  session.SessionMetadata{Title: "Morning check-in"},
				Messages: []*session.Message{
					{
						ID:      "msg-1",
						Content: "I finally stood up for myself at work today and it felt incredible",
						IsUser:  true,
						Metadata: session.MessageMetadata{
							Topics: []string{"work", "confidence"},
						},
					},
				},
			},
			"sess-2": {
				ID:        "sess-2",
				StartTime: time.Date(2026, 3, 11, 20, 0, 0, 0, time.UTC),
				Metadata:  session.SessionMetadata{Title: "Evening reflection"},
			},
		},
	}
}

func newTestManager(t *testing.T) (*Manager, storage.KV) {
	t.Helper()
	kv := storage.NewMemKV()
	m := NewManager(kv, "alice", newTestResolver(), config.ReferenceConfig{MaxLinked: 10, SearchLimit: 50}, nil)
	return m, kv
}

func TestCreateReferenceValidation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.CreateReference(ctx, CreateParams{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "session_id" {
		t.Errorf("validation field = %q, want session_id", verr.Field)
	}
	if len(m.References()) != 0 {
		t.Error("validation failure must not create a reference")
	}

	_, err = m.CreateReference(ctx, CreateParams{SessionID: "no-such-session"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if len(m.References()) != 0 {
		t.Error("missing session must not create a reference")
	}
}

func TestCreateReferenceTitleFallback(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		params CreateParams
		want   string
	}{
		{
			name:   "explicit title wins",
			params: CreateParams{SessionID: "sess-1", MessageID: "msg-1", Title: "Standing up"},
			want:   "Standing up",
		},
		{
			name:   "message preview when no title",
			params: CreateParams{SessionID: "sess-1", MessageID: "msg-1"},
			want:   "I finally stood up for myself at work today and it...",
		},
		{
			name:   "session title when no message",
			params: CreateParams{SessionID: "sess-2"},
			want:   "Evening reflection",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := m.CreateReference(ctx, tt.params)
			if err != nil {
				t.Fatalf("CreateReference: %v", err)
			}
			if ref.Title != tt.want {
				t.Errorf("title = %q, want %q", ref.Title, tt.want)
			}
		})
	}
}

func TestCreateReferenceTitlePreviewMultibyte(t *testing.T) {
	resolver := newTestResolver()
	content := strings.Repeat("é", 60)
	resolver.sessions["sess-3"] = &session.Session{
		ID:        "sess-3",
		StartTime: time.Now(),
		Messages:  []*session.Message{{ID: "msg-1", Content: content}},
	}
	m := NewManager(storage.NewMemKV(), "alice", resolver, config.ReferenceConfig{}, nil)

	ref, err := m.CreateReference(context.Background(), CreateParams{SessionID: "sess-3", MessageID: "msg-1"})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}
	if !utf8.ValidString(ref.Title) {
		t.Fatalf("title is not valid UTF-8: %q", ref.Title)
	}
	if want := strings.Repeat("é", 50) + "..."; ref.Title != want {
		t.Errorf("title = %q, want 50-rune preview", ref.Title)
	}
}

func TestCreateReferenceDefaults(t *testing.T) {
	m, _ := newTestManager(t)

	ref, err := m.CreateReference(context.Background(), CreateParams{SessionID: "sess-1", MessageID: "msg-1"})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}
	if ref.Type != TypeMessage {
		t.Errorf("type = %q, want %q", ref.Type, TypeMessage)
	}
	if ref.Importance != ImportanceMedium {
		t.Errorf("importance = %q, want %q", ref.Importance, ImportanceMedium)
	}
	if ref.Context.SessionTitle != "Morning check-in" {
		t.Errorf("context session title = %q", ref.Context.SessionTitle)
	}
	if ref.Context.MessageContext == "" {
		t.Error("message context should be captured from the message")
	}
	if len(ref.Context.Topics) != 2 {
		t.Errorf("topics = %v, want message topics", ref.Context.Topics)
	}
}

func TestTagIndexBidirectional(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	ref, err := m.CreateReference(ctx, CreateParams{
		SessionID: "sess-1",
		Title:     "Tagged",
		Tags:      []string{"growth", "growth", "work", ""},
	})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}
	if len(ref.Tags) != 2 {
		t.Fatalf("tags = %v, want deduplicated pair", ref.Tags)
	}
	for _, tag := range []string{"growth", "work"} {
		bucket := m.TagBucket(tag)
		if len(bucket) != 1 || bucket[0] != ref.ID {
			t.Errorf("bucket %q = %v, want [%s]", tag, bucket, ref.ID)
		}
	}
}

func TestUpdateReferenceRetags(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	ref, err := m.CreateReference(ctx, CreateParams{SessionID: "sess-1", Title: "Retag me", Tags: []string{"old"}})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}

	newTags := []string{"fresh"}
	updated, err := m.UpdateReference(ctx, ref.ID, UpdateParams{Tags: &newTags})
	if err != nil {
		t.Fatalf("UpdateReference: %v", err)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "fresh" {
		t.Errorf("tags = %v, want [fresh]", updated.Tags)
	}
	if got := m.TagBucket("old"); len(got) != 0 {
		t.Errorf("old bucket should be pruned, got %v", got)
	}
	if got := m.TagBucket("fresh"); len(got) != 1 || got[0] != ref.ID {
		t.Errorf("fresh bucket = %v", got)
	}
	if !m.SearchIndex().Contains("fresh", ref.ID) {
		t.Error("search index should track the updated tags")
	}

	_, err = m.UpdateReference(ctx, "missing", UpdateParams{})
	if !errors.Is(err, ErrReferenceNotFound) {
		t.Errorf("expected ErrReferenceNotFound, got %v", err)
	}
}

func TestGetReferenceTracksAccess(t *testing.T) {
	m, _ := newTestManager(t)

	ref, err := m.CreateReference(context.Background(), CreateParams{SessionID: "sess-1", Title: "Popular"})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}

	for i := 0; i < 3; i++ {
		if got := m.GetReference(context.Background(), ref.ID); got == nil {
			t.Fatal("GetReference returned nil for existing id")
		}
	}
	if ref.Metadata.AccessCount != 3 {
		t.Errorf("access count = %d, want 3", ref.Metadata.AccessCount)
	}
	if ref.Metadata.LastAccessed.IsZero() {
		t.Error("last accessed should be set")
	}
	if got := m.GetReference(context.Background(), "missing"); got != nil {
		t.Errorf("GetReference(missing) = %v, want nil", got)
	}
}

func TestLinkRelated(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	shared, err := m.CreateReference(ctx, CreateParams{SessionID: "sess-1", Title: "First", Tags: []string{"anxiety"}})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}
	sameSession, err := m.CreateReference(ctx, CreateParams{SessionID: "sess-1", Title: "Second"})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}
	topical, err := m.CreateReference(ctx, CreateParams{
		SessionID: "sess-2",
		Title:     "Third",
		Context:   Context{Topics: []string{"sleep"}},
	})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}

	ref, err := m.CreateReference(ctx, CreateParams{
		SessionID: "sess-1",
		Title:     "Fourth",
		Tags:      []string{"anxiety"},
		Context:   Context{Topics: []string{"sleep"}},
	})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}

	links := ref.Metadata.LinkedReferences
	if len(links) != 3 {
		t.Fatalf("linked = %v, want 3 entries", links)
	}
	// Tag match first, then same session, then topic overlap.
	if links[0] != shared.ID || links[1] != sameSession.ID || links[2] != topical.ID {
		t.Errorf("linked order = %v, want [%s %s %s]", links, shared.ID, sameSession.ID, topical.ID)
	}
	for _, id := range links {
		if id == ref.ID {
			t.Error("reference must not link to itself")
		}
	}

	// Linking is one-way: earlier references keep their lists.
	if len(shared.Metadata.LinkedReferences) != 0 {
		t.Errorf("earlier reference gained links: %v", shared.Metadata.LinkedReferences)
	}
}

func TestLinkRelatedCap(t *testing.T) {
	kv := storage.NewMemKV()
	m := NewManager(kv, "alice", newTestResolver(), config.ReferenceConfig{MaxLinked: 3}, nil)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if _, err := m.CreateReference(ctx, CreateParams{SessionID: "sess-1", Title: "Seed", Tags: []string{"shared"}}); err != nil {
			t.Fatalf("CreateReference: %v", err)
		}
	}
	ref, err := m.CreateReference(ctx, CreateParams{SessionID: "sess-1", Title: "Capped", Tags: []string{"shared"}})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}
	if len(ref.Metadata.LinkedReferences) != 3 {
		t.Errorf("linked count = %d, want cap of 3", len(ref.Metadata.LinkedReferences))
	}
}

func TestDeleteReferenceCascades(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	ref, err := m.CreateReference(ctx, CreateParams{SessionID: "sess-1", Title: "Doomed entry", Tags: []string{"temp"}})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}
	keep, err := m.CreateReference(ctx, CreateParams{SessionID: "sess-1", Title: "Keeper"})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}

	col, err := m.CreateCollection(ctx, "Mixed", "", []string{ref.ID, keep.ID}, nil)
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if _, err := m.CreateBookmark(ctx, ref.ID, "bm", "red"); err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}

	if !m.DeleteReference(ctx, ref.ID) {
		t.Fatal("DeleteReference returned false for existing id")
	}

	if got := m.GetReference(ctx, ref.ID); got != nil {
		t.Error("deleted reference still retrievable")
	}
	if got := m.TagBucket("temp"); len(got) != 0 {
		t.Errorf("tag bucket survived delete: %v", got)
	}
	got := m.GetCollection(col.ID)
	if len(got.ReferenceIDs) != 1 || got.ReferenceIDs[0] != keep.ID {
		t.Errorf("collection ids = %v, want [%s]", got.ReferenceIDs, keep.ID)
	}
	if len(m.Bookmarks()) != 0 {
		t.Error("bookmark survived delete of its reference")
	}
	if m.SearchIndex().Contains("doomed", ref.ID) {
		t.Error("search index still holds deleted id")
	}

	if m.DeleteReference(ctx, ref.ID) {
		t.Error("second delete should report false")
	}
}

func TestCreateBookmark(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.CreateBookmark(ctx, "missing", "x", "")
	if !errors.Is(err, ErrReferenceNotFound) {
		t.Fatalf("expected ErrReferenceNotFound, got %v", err)
	}

	ref, err := m.CreateReference(ctx, CreateParams{SessionID: "sess-1", Title: "Bookmarked"})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}

	first, err := m.CreateBookmark(ctx, ref.ID, "", "blue")
	if err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}
	if first.Label != "Bookmarked" {
		t.Errorf("label = %q, want reference title fallback", first.Label)
	}
	if first.Position != 0 {
		t.Errorf("position = %d, want 0", first.Position)
	}

	second, err := m.CreateBookmark(ctx, ref.ID, "again", "")
	if err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}
	if second.Position != 1 {
		t.Errorf("position = %d, want 1", second.Position)
	}
}

func TestCreateCollection(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.CreateCollection(ctx, "", "", nil, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty name, got %v", err)
	}

	// Reference ids are not validated for existence.
	col, err := m.CreateCollection(ctx, "Wins", "good days", []string{"a", "a", "b"}, []string{"progress"})
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if len(col.ReferenceIDs) != 2 {
		t.Errorf("reference ids = %v, want deduplicated pair", col.ReferenceIDs)
	}
}

func TestStatistics(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	imp := ImportanceHigh
	typ := TypeBreakthrough
	for i := 0; i < 2; i++ {
		if _, err := m.CreateReference(ctx, CreateParams{
			SessionID:  "sess-1",
			Title:      "Entry",
			Type:       typ,
			Importance: imp,
			Tags:       []string{"anxiety"},
		}); err != nil {
			t.Fatalf("CreateReference: %v", err)
		}
	}
	if _, err := m.CreateReference(ctx, CreateParams{SessionID: "sess-2", Title: "Plain", Tags: []string{"anxiety", "sleep"}}); err != nil {
		t.Fatalf("CreateReference: %v", err)
	}
	ref := m.References()[0]
	if _, err := m.CreateBookmark(ctx, ref.ID, "bm", ""); err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}
	if _, err := m.CreateCollection(ctx, "All", "", nil, nil); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	stats := m.Statistics()
	if stats.TotalReferences != 3 || stats.TotalBookmarks != 1 || stats.TotalCollections != 1 {
		t.Errorf("totals = %d/%d/%d", stats.TotalReferences, stats.TotalBookmarks, stats.TotalCollections)
	}
	if stats.ByType[typ] != 2 || stats.ByType[TypeMessage] != 1 {
		t.Errorf("by type = %v", stats.ByType)
	}
	if stats.ByImportance[imp] != 2 {
		t.Errorf("by importance = %v", stats.ByImportance)
	}
	if stats.CreatedLast24h != 3 {
		t.Errorf("created last 24h = %d, want 3", stats.CreatedLast24h)
	}
	if len(stats.TopTags) == 0 || stats.TopTags[0].Tag != "anxiety" || stats.TopTags[0].Count != 3 {
		t.Errorf("top tags = %v, want anxiety first with count 3", stats.TopTags)
	}
}

func TestManagerPersistence(t *testing.T) {
	kv := storage.NewMemKV()
	resolver := newTestResolver()
	ctx := context.Background()

	m := NewManager(kv, "alice", resolver, config.ReferenceConfig{}, nil)
	ref, err := m.CreateReference(ctx, CreateParams{SessionID: "sess-1", Title: "Survivor", Tags: []string{"keep"}})
	if err != nil {
		t.Fatalf("CreateReference: %v", err)
	}
	if _, err := m.CreateBookmark(ctx, ref.ID, "bm", ""); err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}
	if _, err := m.CreateCollection(ctx, "Col", "", []string{ref.ID}, nil); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	restored := NewManager(kv, "alice", resolver, config.ReferenceConfig{}, nil)
	restored.Load(ctx)

	if len(restored.References()) != 1 {
		t.Fatalf("restored references = %d, want 1", len(restored.References()))
	}
	if restored.References()[0].Title != "Survivor" {
		t.Errorf("restored title = %q", restored.References()[0].Title)
	}
	if len(restored.Bookmarks()) != 1 || len(restored.Collections()) != 1 {
		t.Error("bookmarks or collections lost across reload")
	}
	if got := restored.TagBucket("keep"); len(got) != 1 || got[0] != ref.ID {
		t.Errorf("tag index not rebuilt: %v", got)
	}
	if !restored.SearchIndex().Contains("survivor", ref.ID) {
		t.Error("search index not rebuilt")
	}
}

func TestManagerLoadCorruptBlob(t *testing.T) {
	kv := storage.NewMemKV()
	ctx := context.Background()
	if err := kv.Set(ctx, storage.Key(storage.DomainReferences, "alice"), []byte("not json")); err != nil {
		t.Fatalf("seeding corrupt blob: %v", err)
	}

	m := NewManager(kv, "alice", newTestResolver(), config.ReferenceConfig{}, nil)
	m.Load(ctx)

	if len(m.References()) != 0 {
		t.Error("corrupt blob should load as empty")
	}
	if _, err := m.CreateReference(ctx, CreateParams{SessionID: "sess-1", Title: "After corruption"}); err != nil {
		t.Errorf("manager unusable after corrupt load: %v", err)
	}
}

func TestUsersIsolated(t *testing.T) {
	kv := storage.NewMemKV()
	resolver := newTestResolver()
	ctx := context.Background()

	alice := NewManager(kv, "alice", resolver, config.ReferenceConfig{}, nil)
	bob := NewManager(kv, "bob", resolver, config.ReferenceConfig{}, nil)

	if _, err := alice.CreateReference(ctx, CreateParams{SessionID: "sess-1", Title: "Alice only"}); err != nil {
		t.Fatalf("CreateReference: %v", err)
	}

	bob.Load(ctx)
	if len(bob.References()) != 0 {
		t.Error("user namespaces leaked")
	}
}
