package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const configFileName = ".hearmem.yaml"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()

	v.SetConfigName(".hearmem")
	v.SetConfigType("yaml")

	// Search paths in order of priority
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")

	// Environment variable support
	v.SetEnvPrefix("HEARMEM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// SetConfigFile sets a specific config file to use.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
	l.v.SetConfigFile(path)
}

// Load loads the configuration from all sources.
// Priority (highest to lowest):
// 1. Explicit config file (if set via SetConfigFile)
// 2. Environment variables (HEARMEM_*)
// 3. Config file from search paths (.hearmem.yaml)
// 4. Default values
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()
	l.setDefaults(cfg)

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine, defaults apply.
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults sets all default values in viper.
func (l *Loader) setDefaults(cfg *Config) {
	l.v.SetDefault("user_id", cfg.UserID)

	l.v.SetDefault("storage.backend", cfg.Storage.Backend)
	l.v.SetDefault("storage.dir", cfg.Storage.Dir)
	l.v.SetDefault("storage.cache.enabled", cfg.Storage.Cache.Enabled)
	l.v.SetDefault("storage.cache.max_size_mb", cfg.Storage.Cache.MaxSizeMB)

	l.v.SetDefault("session.flush_every", cfg.Session.FlushEvery)
	l.v.SetDefault("session.context_radius", cfg.Session.ContextRadius)
	l.v.SetDefault("session.search_limit", cfg.Session.SearchLimit)

	l.v.SetDefault("reference.max_linked", cfg.Reference.MaxLinked)
	l.v.SetDefault("reference.search_limit", cfg.Reference.SearchLimit)

	l.v.SetDefault("memory.short_term_capacity", cfg.Memory.ShortTermCapacity)
	l.v.SetDefault("memory.retrieval_limit", cfg.Memory.RetrievalLimit)

	l.v.SetDefault("logging.level", cfg.Logging.Level)
	l.v.SetDefault("logging.mask_content", cfg.Logging.MaskContent)

	l.v.SetDefault("output.format", cfg.Output.Format)
	l.v.SetDefault("output.file", cfg.Output.File)
	l.v.SetDefault("output.verbose", cfg.Output.Verbose)
	l.v.SetDefault("output.quiet", cfg.Output.Quiet)
}

// ConfigFileUsed returns the path of the config file used, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadDefault loads configuration with default search paths.
func LoadDefault() (*Config, error) {
	loader := NewLoader()
	return loader.Load()
}

// WriteDefault writes the default configuration as YAML to path.
// Fails if the file already exists.
func WriteDefault(path string) error {
	if path == "" {
		path = configFileName
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// FindConfigFile searches for a config file and returns its path.
// Returns empty string if no config file is found.
func FindConfigFile() string {
	if _, err := os.Stat(configFileName); err == nil {
		if abs, err := filepath.Abs(configFileName); err == nil {
			return abs
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, configFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
