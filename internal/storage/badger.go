package storage

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerKV is a BadgerDB-backed KV implementation, the default disk
// backend. Badger keeps the working set in memory, so reads stay cheap
// even though every blob is a full domain snapshot.
type BadgerKV struct {
	db     *badger.DB
	gcStop chan struct{}
}

// BadgerOptions configures the badger backend.
type BadgerOptions struct {
	// Dir is the database directory
	Dir string

	// GCInterval is how often the value log is garbage collected
	// (0 disables background GC)
	GCInterval time.Duration
}

// NewBadgerKV opens (or creates) a badger database at opts.Dir.
func NewBadgerKV(opts BadgerOptions) (*BadgerKV, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir)
	badgerOpts.Logger = nil // badger's own logging is too chatty

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening badger db: %w", err)
	}

	kv := &BadgerKV{
		db:     db,
		gcStop: make(chan struct{}),
	}

	if opts.GCInterval > 0 {
		go kv.runGC(opts.GCInterval)
	}

	return kv, nil
}

// Compile-time interface check.
var _ KV = (*BadgerKV)(nil)

// Get returns the value for key, or (nil, nil) if absent.
func (b *BadgerKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get([]byte(key))
		if getErr != nil {
			return getErr
		}
		value, getErr = item.ValueCopy(nil)
		return getErr
	})

	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting key %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key.
func (b *BadgerKV) Set(ctx context.Context, key string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("setting key %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (b *BadgerKV) Delete(ctx context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("deleting key %q: %w", key, err)
	}
	return nil
}

// Close stops background GC and closes the database.
func (b *BadgerKV) Close() error {
	close(b.gcStop)
	return b.db.Close()
}

func (b *BadgerKV) runGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = b.db.RunValueLogGC(0.5)
		case <-b.gcStop:
			return
		}
	}
}
