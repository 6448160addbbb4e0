// Package storage provides the persistent key-value store behind the
// memory subsystem. Every domain (sessions, references, memories) serializes
// to a JSON blob under a namespaced key of the shape <domain>_<userID>.
//
// Backends are interchangeable: an in-memory map, BadgerDB, or an embedded
// SQLite database. Callers treat all of them as best-effort durable; the
// in-memory model is the source of truth within a process lifetime.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// KV is the persistent store interface. Get returns (nil, nil) for a
// missing key; absence is not an error.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key builds the namespaced storage key for a domain and user.
func Key(domain, userID string) string {
	return domain + "_" + userID
}

// Domain names for persisted blobs.
const (
	DomainSessions   = "hearmem_sessions"
	DomainReferences = "hearmem_references"
	DomainMemories   = "hearmem_memories"
	DomainPrefs      = "hearmem_prefs"
)

// blobVersion is the current envelope schema version.
const blobVersion = 1

// envelope wraps every persisted blob with an explicit schema version so
// loading an older or newer shape defaults instead of failing.
type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// EncodeBlob wraps v in a versioned envelope and marshals it.
func EncodeBlob(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling blob payload: %w", err)
	}
	return json.Marshal(envelope{Version: blobVersion, Data: data})
}

// DecodeBlob unmarshals an enveloped blob into v. Blobs written before the
// envelope was introduced are decoded as-is; unknown future versions decode
// on a best-effort basis (unknown fields are ignored by encoding/json).
func DecodeBlob(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Version > 0 && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, v)
	}

	// Legacy blob without an envelope.
	return json.Unmarshal(data, v)
}
