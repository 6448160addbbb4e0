package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/nithinv16/hearmem/internal/config"
)

// kvContract exercises the behavior every backend must share.
func kvContract(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	// Missing key is (nil, nil), not an error.
	got, err := kv.Get(ctx, "absent")
	if err != nil {
		t.Fatalf("Get(absent) error = %v", err)
	}
	if got != nil {
		t.Fatalf("Get(absent) = %q, want nil", got)
	}

	if err := kv.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err = kv.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "v1" {
		t.Errorf("Get() = %q, want %q", got, "v1")
	}

	// Overwrite.
	if err := kv.Set(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	got, _ = kv.Get(ctx, "k")
	if string(got) != "v2" {
		t.Errorf("after overwrite Get() = %q, want %q", got, "v2")
	}

	// Delete, then absent again.
	if err := kv.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, err = kv.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() after delete = %q, want nil", got)
	}

	// Deleting a missing key is a no-op.
	if err := kv.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestMemKV(t *testing.T) {
	kv := NewMemKV()
	defer kv.Close()
	kvContract(t, kv)
}

func TestBadgerKV(t *testing.T) {
	kv, err := NewBadgerKV(BadgerOptions{Dir: t.TempDir(), GCInterval: 0})
	if err != nil {
		t.Fatalf("NewBadgerKV() error = %v", err)
	}
	defer kv.Close()
	kvContract(t, kv)
}

func TestSQLiteKV(t *testing.T) {
	kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteKV() error = %v", err)
	}
	defer kv.Close()
	kvContract(t, kv)
}

func TestCachedKV(t *testing.T) {
	inner := NewMemKV()
	kv, err := NewCachedKV(inner, 1)
	if err != nil {
		t.Fatalf("NewCachedKV() error = %v", err)
	}
	defer kv.Close()
	kvContract(t, kv)
}

func TestCachedKVReadsAfterWrite(t *testing.T) {
	ctx := context.Background()
	inner := NewMemKV()
	kv, err := NewCachedKV(inner, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer kv.Close()

	if err := kv.Set(ctx, "a", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(ctx, "a", []byte("two")); err != nil {
		t.Fatal(err)
	}

	got, err := kv.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two" {
		t.Errorf("Get() = %q, want latest write %q", got, "two")
	}
}

func TestBadgerKVSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	kv, err := NewBadgerKV(BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(ctx, "persist", []byte("yes")); err != nil {
		t.Fatal(err)
	}
	if err := kv.Close(); err != nil {
		t.Fatal(err)
	}

	kv, err = NewBadgerKV(BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer kv.Close()

	got, err := kv.Get(ctx, "persist")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "yes" {
		t.Errorf("Get() after reopen = %q, want %q", got, "yes")
	}
}

func TestKey(t *testing.T) {
	if got := Key(DomainSessions, "u1"); got != "hearmem_sessions_u1" {
		t.Errorf("Key() = %q", got)
	}
}

func TestBlobEnvelope(t *testing.T) {
	type payload struct {
		Name  string    `json:"name"`
		When  time.Time `json:"when"`
		Count int       `json:"count"`
	}

	in := payload{Name: "test", When: time.Now().UTC(), Count: 3}

	data, err := EncodeBlob(in)
	if err != nil {
		t.Fatalf("EncodeBlob() error = %v", err)
	}

	var env struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &env); err != nil || env.Version != 1 {
		t.Errorf("encoded blob missing version stamp: %s", data)
	}

	var out payload
	if err := DecodeBlob(data, &out); err != nil {
		t.Fatalf("DecodeBlob() error = %v", err)
	}
	if out.Name != in.Name || out.Count != in.Count {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestDecodeBlobLegacyShape(t *testing.T) {
	// Blobs written before the envelope existed are bare payloads.
	var out struct {
		Name string `json:"name"`
	}
	if err := DecodeBlob([]byte(`{"name":"legacy"}`), &out); err != nil {
		t.Fatalf("DecodeBlob(legacy) error = %v", err)
	}
	if out.Name != "legacy" {
		t.Errorf("Name = %q, want %q", out.Name, "legacy")
	}

	// Empty blob decodes to the zero value.
	if err := DecodeBlob(nil, &out); err != nil {
		t.Errorf("DecodeBlob(nil) error = %v", err)
	}
}

func TestOpen(t *testing.T) {
	cfg := config.StorageConfig{Backend: "memory"}
	kv, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	defer kv.Close()
	kvContract(t, kv)

	if _, err := Open(config.StorageConfig{Backend: "bogus"}); err == nil {
		t.Error("Open(bogus) should fail")
	}
}
