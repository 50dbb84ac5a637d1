package mirror

import (
	"path"
	"strings"
	"time"
)

// Source kinds.
const (
	SourceNone     = "none"
	SourceDatabase = "database"
	SourceManifest = "manifest"
)

// Config holds configuration for the bucket mirror.
type Config struct {
	// Enabled mounts the mirror routes.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Prefix is prepended to every object name.
	Prefix string `mapstructure:"prefix" default:"overlay"`
	// Source selects where Refresh loads the desired items from (none, database, manifest).
	Source string `mapstructure:"source" default:"none"`
	// ManifestPath is the YAML manifest read by the manifest source.
	ManifestPath string `mapstructure:"manifest_path" default:"overlay.yaml"`
	// Table is the database table read by the database source.
	Table string `mapstructure:"table" default:"overlay_items"`
	// PassBudgetMs bounds a map change pass in milliseconds. 0 disables the bound.
	PassBudgetMs int `mapstructure:"pass_budget_ms" default:"50"`
	// MaxPerPass bounds the entries applied per pass. 0 disables the bound.
	MaxPerPass int `mapstructure:"max_per_pass" default:"0"`
	// PurgeOnDestroy removes every rendered object when the mirror is closed.
	PurgeOnDestroy bool `mapstructure:"purge_on_destroy" default:"false"`
	// CacheTTLSeconds caches source loads. 0 disables the cache.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" default:"0"`
	// CallTimeoutSeconds bounds one storage call.
	CallTimeoutSeconds int `mapstructure:"call_timeout_seconds" default:"30"`
}

// PassBudget returns the pass time budget.
func (c Config) PassBudget() time.Duration {
	return time.Duration(c.PassBudgetMs) * time.Millisecond
}

// CacheTTL returns the source cache lifetime.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// CallTimeout returns the storage call timeout, falling back to 30 seconds.
func (c Config) CallTimeout() time.Duration {
	if c.CallTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// ObjectName maps an item key to its object name under Prefix.
func (c Config) ObjectName(key string) string {
	key = strings.TrimLeft(key, "/")
	prefix := strings.Trim(c.Prefix, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}
