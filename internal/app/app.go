// Package app wires the engine together. One App is constructed at
// process start and handed to every command; components never reach
// for hidden globals.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/nithinv16/hearmem/internal/config"
	"github.com/nithinv16/hearmem/internal/logger"
	"github.com/nithinv16/hearmem/internal/memory"
	"github.com/nithinv16/hearmem/internal/reference"
	"github.com/nithinv16/hearmem/internal/session"
	"github.com/nithinv16/hearmem/internal/storage"
)

// App holds every wired component for one process lifetime.
type App struct {
	Config *config.Config
	Log    *logger.Logger
	KV     storage.KV

	Sessions   *session.Store
	References *reference.Manager
	Memory     *memory.Aggregator
}

// New opens storage and constructs the stores, restoring persisted
// state for each.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.New(logger.ParseLevel(cfg.Logging.Level), os.Stderr)
	log.SetMaskContent(cfg.Logging.MaskContent)

	kv, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	sessions := session.NewStore(kv, cfg.UserID, cfg.Session, log)
	sessions.Load(ctx)

	references := reference.NewManager(kv, cfg.UserID, sessions, cfg.Reference, log)
	references.Load(ctx)

	mem := memory.NewAggregator(kv, cfg.UserID, cfg.Memory, nil, log)
	mem.Load(ctx)

	return &App{
		Config:     cfg,
		Log:        log,
		KV:         kv,
		Sessions:   sessions,
		References: references,
		Memory:     mem,
	}, nil
}

// Close flushes every store and releases the storage backend.
func (a *App) Close(ctx context.Context) error {
	a.Sessions.Flush(ctx)
	a.References.Flush(ctx)
	a.Memory.Flush(ctx)

	if err := a.KV.Close(); err != nil {
		return fmt.Errorf("closing storage: %w", err)
	}
	return nil
}
