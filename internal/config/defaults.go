package config

import (
	"os"
	"path/filepath"
)

// DefaultConfig returns a Config with sensible default values.
// The defaults run fully local: an in-process store under the user's
// data directory and a single implicit user.
func DefaultConfig() *Config {
	return &Config{
		UserID:  "local",
		Storage: defaultStorageConfig(),
		Session: SessionConfig{
			FlushEvery:    10,
			ContextRadius: 2,
			SearchLimit:   50,
		},
		Reference: ReferenceConfig{
			MaxLinked:   10,
			SearchLimit: 50,
		},
		Memory: MemoryConfig{
			ShortTermCapacity: 50,
			RetrievalLimit:    10,
		},
		Logging: LoggingConfig{
			Level:       "info",
			MaskContent: true,
		},
		Output: OutputConfig{
			Format: "json",
		},
	}
}

// defaultDataDir returns the default data directory path.
func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".local", "share", "hearmem")
}

// defaultStorageConfig returns the default storage configuration.
func defaultStorageConfig() StorageConfig {
	return StorageConfig{
		Backend: "badger",
		Dir:     defaultDataDir(),
		Cache: StorageCacheConfig{
			Enabled:   true,
			MaxSizeMB: 16,
		},
	}
}
