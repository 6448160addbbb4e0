// Package config handles all configuration management for hearmem.
//
// Configuration is loaded from multiple sources in order of precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables (HEARMEM_*)
// 3. Configuration file (.hearmem.yaml)
// 4. Default values (lowest priority)
package config

// Config is the main configuration structure for hearmem.
type Config struct {
	// UserID namespaces every persisted blob (<domain>_<user_id>)
	UserID string `mapstructure:"user_id" yaml:"user_id"`

	// Storage configures the persistent store backend
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Session configures the conversation session store
	Session SessionConfig `mapstructure:"session" yaml:"session"`

	// Reference configures the reference manager
	Reference ReferenceConfig `mapstructure:"reference" yaml:"reference"`

	// Memory configures the memory aggregator
	Memory MemoryConfig `mapstructure:"memory" yaml:"memory"`

	// Logging configures log output
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Output configures CLI output formatting
	Output OutputConfig `mapstructure:"output" yaml:"output"`
}

// StorageConfig configures the persistent store backend.
type StorageConfig struct {
	// Backend is the store backend: "memory", "badger", "sqlite"
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Dir is the data directory for disk-backed backends
	Dir string `mapstructure:"dir" yaml:"dir"`

	// Cache enables the read-through cache in front of the backend
	Cache StorageCacheConfig `mapstructure:"cache" yaml:"cache"`
}

// StorageCacheConfig configures the storage read cache.
type StorageCacheConfig struct {
	// Enabled enables the ristretto read cache
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// MaxSizeMB is the maximum cache cost in megabytes
	MaxSizeMB int64 `mapstructure:"max_size_mb" yaml:"max_size_mb"`
}

// SessionConfig configures the session store.
type SessionConfig struct {
	// FlushEvery is the append batch size between persistence flushes
	FlushEvery int `mapstructure:"flush_every" yaml:"flush_every"`

	// ContextRadius is the number of messages around a search hit
	ContextRadius int `mapstructure:"context_radius" yaml:"context_radius"`

	// SearchLimit is the default maximum search results
	SearchLimit int `mapstructure:"search_limit" yaml:"search_limit"`
}

// ReferenceConfig configures the reference manager.
type ReferenceConfig struct {
	// MaxLinked caps the related-references list per reference
	MaxLinked int `mapstructure:"max_linked" yaml:"max_linked"`

	// SearchLimit is the default maximum search results
	SearchLimit int `mapstructure:"search_limit" yaml:"search_limit"`
}

// MemoryConfig configures the memory aggregator.
type MemoryConfig struct {
	// ShortTermCapacity bounds the in-process short-term buffer
	ShortTermCapacity int `mapstructure:"short_term_capacity" yaml:"short_term_capacity"`

	// RetrievalLimit is the default maximum retrieved memories
	RetrievalLimit int `mapstructure:"retrieval_limit" yaml:"retrieval_limit"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error"
	Level string `mapstructure:"level" yaml:"level"`

	// MaskContent hides conversation text in log fields
	MaskContent bool `mapstructure:"mask_content" yaml:"mask_content"`
}

// OutputConfig configures CLI output formatting.
type OutputConfig struct {
	// Format is the export format: "json", "csv", "markdown"
	Format string `mapstructure:"format" yaml:"format"`

	// File is the output file path (empty = stdout)
	File string `mapstructure:"file" yaml:"file"`

	// Verbose enables verbose output
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`

	// Quiet suppresses all output except errors
	Quiet bool `mapstructure:"quiet" yaml:"quiet"`
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "user id is required"}
	}

	validBackends := map[string]bool{"memory": true, "badger": true, "sqlite": true}
	if !validBackends[c.Storage.Backend] {
		return &ValidationError{Field: "storage.backend", Message: "invalid backend, must be one of: memory, badger, sqlite"}
	}
	if c.Storage.Backend != "memory" && c.Storage.Dir == "" {
		return &ValidationError{Field: "storage.dir", Message: "data directory is required for disk-backed backends"}
	}

	if c.Session.FlushEvery < 1 {
		return &ValidationError{Field: "session.flush_every", Message: "flush batch size must be at least 1"}
	}
	if c.Session.ContextRadius < 0 {
		return &ValidationError{Field: "session.context_radius", Message: "context radius cannot be negative"}
	}
	if c.Session.SearchLimit < 1 {
		return &ValidationError{Field: "session.search_limit", Message: "search limit must be at least 1"}
	}

	if c.Reference.MaxLinked < 0 {
		return &ValidationError{Field: "reference.max_linked", Message: "max linked references cannot be negative"}
	}
	if c.Reference.SearchLimit < 1 {
		return &ValidationError{Field: "reference.search_limit", Message: "search limit must be at least 1"}
	}

	if c.Memory.ShortTermCapacity < 1 {
		return &ValidationError{Field: "memory.short_term_capacity", Message: "short-term capacity must be at least 1"}
	}

	validFormats := map[string]bool{"json": true, "csv": true, "markdown": true}
	if !validFormats[c.Output.Format] {
		return &ValidationError{Field: "output.format", Message: "invalid format, must be one of: json, csv, markdown"}
	}

	return nil
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "config validation error: " + e.Field + ": " + e.Message
}
