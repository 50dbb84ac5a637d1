package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"sync"
	"time"

	"overlay-sync/core/database"
	"overlay-sync/core/utils"
	"overlay-sync/feature/mirror/models"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// ErrNoSource is returned by Refresh when no source is configured.
var ErrNoSource = errors.New("no mirror source configured")

// Source loads the complete desired collection.
type Source interface {
	// Name identifies the source in logs and reports.
	Name() string
	// Load returns every desired item by key. The map belongs to the caller.
	Load(ctx context.Context) (map[string]models.Item, error)
}

// NewSource builds the source selected by cfg, wrapped in a cache when CacheTTLSeconds is set.
// It returns a nil Source for SourceNone.
func NewSource(cfg Config, db *gorm.DB) (Source, error) {
	var src Source
	switch cfg.Source {
	case SourceNone, "":
		return nil, nil
	case SourceDatabase:
		if db == nil {
			return nil, errors.New("database source requires a database connection")
		}
		src = NewDBSource(db, cfg.Table)
	case SourceManifest:
		src = NewManifestSource(cfg.ManifestPath)
	default:
		return nil, fmt.Errorf("unknown mirror source %q", cfg.Source)
	}

	if ttl := cfg.CacheTTL(); ttl > 0 {
		src = NewCachedSource(src, ttl)
	}
	return src, nil
}

// DBSource reads enabled rows from a database table.
type DBSource struct {
	db    *gorm.DB
	table string
}

// NewDBSource creates a source reading table.
func NewDBSource(db *gorm.DB, table string) *DBSource {
	return &DBSource{db: db, table: table}
}

// Name returns "database".
func (s *DBSource) Name() string { return SourceDatabase }

// Validate checks that the table has the columns Load reads.
func (s *DBSource) Validate() error {
	missing, err := database.MissingColumns(s.db, s.table, "item_key", "payload", "content_type", "enabled")
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s is missing columns %v", s.table, missing)
	}
	return nil
}

// Load returns the enabled rows keyed by item_key.
func (s *DBSource) Load(ctx context.Context) (map[string]models.Item, error) {
	var rows []models.ItemRow
	if err := s.db.WithContext(ctx).Table(s.table).Where("enabled = ?", true).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load items from %s: %w", s.table, err)
	}

	items := make(map[string]models.Item, len(rows))
	for _, row := range rows {
		if row.ItemKey == "" {
			continue
		}
		items[row.ItemKey] = row.Item()
	}
	return items, nil
}

// ManifestSource reads items from a YAML manifest:
//
//	defaults:
//	  content_type: text/plain
//	items:
//	  motd.txt: "Welcome back"
//	  banner.json:
//	    payload: '{"color":"red"}'
//	    content_type: application/json
//	  retired.txt:
//	    payload: gone
//	    enabled: false
type ManifestSource struct {
	path string
}

// NewManifestSource creates a source reading the manifest at path.
func NewManifestSource(path string) *ManifestSource {
	return &ManifestSource{path: path}
}

// Name returns "manifest".
func (s *ManifestSource) Name() string { return SourceManifest }

type manifest struct {
	Defaults struct {
		ContentType string `yaml:"content_type"`
	} `yaml:"defaults"`
	Items map[string]any `yaml:"items"`
}

// Load parses the manifest file.
func (s *ManifestSource) Load(ctx context.Context) (map[string]models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes manifest content. Unknown top-level fields are rejected.
func ParseManifest(data []byte) (map[string]models.Item, error) {
	var m manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	items := make(map[string]models.Item, len(m.Items))
	for key, raw := range m.Items {
		if key == "" {
			return nil, errors.New("manifest contains an empty item key")
		}
		item := models.Item{ContentType: m.Defaults.ContentType}

		switch v := raw.(type) {
		case map[string]any:
			if enabled, ok := v["enabled"]; ok && !utils.ToBool(enabled) {
				continue
			}
			if payload, ok := v["payload"]; ok && payload != nil {
				item.Payload = utils.ToString(payload)
			}
			if ct, ok := v["content_type"]; ok && ct != nil {
				item.ContentType = utils.ToString(ct)
			}
		case nil:
			// bare key renders an empty object
		default:
			item.Payload = utils.ToString(v)
		}
		items[key] = item
	}
	return items, nil
}

// CachedSource memoises another source for a TTL. Concurrent loads of an expired cache
// share one underlying Load.
type CachedSource struct {
	source Source
	ttl    time.Duration

	mu    sync.RWMutex
	items map[string]models.Item
	built time.Time
	sf    singleflight.Group
}

// NewCachedSource wraps source with a ttl cache.
func NewCachedSource(source Source, ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, ttl: ttl}
}

// Name returns the wrapped source's name.
func (c *CachedSource) Name() string { return c.source.Name() }

func (c *CachedSource) fresh() (map[string]models.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.items == nil || time.Since(c.built) > c.ttl {
		return nil, false
	}
	return c.items, true
}

// Load returns the cached collection, reloading it once expired.
func (c *CachedSource) Load(ctx context.Context) (map[string]models.Item, error) {
	if items, ok := c.fresh(); ok {
		return maps.Clone(items), nil
	}

	result, err, _ := c.sf.Do("load", func() (any, error) {
		// Double-check after joining the flight
		if items, ok := c.fresh(); ok {
			return items, nil
		}
		items, err := c.source.Load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.items = items
		c.built = time.Now()
		c.mu.Unlock()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return maps.Clone(result.(map[string]models.Item)), nil
}

// Invalidate drops the cached collection.
func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}
