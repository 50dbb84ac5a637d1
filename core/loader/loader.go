package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Feature is a module that can be mounted on the HTTP router.
type Feature interface {
	// Name identifies the feature in logs and errors.
	Name() string
	// IsEnabled reports whether the feature should be loaded.
	IsEnabled() bool
	// Load registers the feature's routes and starts its background work.
	Load(app fiber.Router) error
}

// Closer is implemented by features holding resources that must be released on shutdown.
type Closer interface {
	Close(ctx context.Context) error
}

// Manager is the registry of features.
type Manager struct {
	features []Feature
	loaded   []Feature
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a feature to the registry.
func (m *Manager) Register(f Feature) {
	m.features = append(m.features, f)
}

// LoadAll loads every enabled feature in registration order and stops at the first error.
func (m *Manager) LoadAll(app fiber.Router) error {
	for _, f := range m.features {
		if !f.IsEnabled() {
			continue
		}
		if err := f.Load(app); err != nil {
			return fmt.Errorf("failed to load feature %s: %w", f.Name(), err)
		}
		m.loaded = append(m.loaded, f)
	}
	return nil
}

// Loaded returns the names of the features loaded so far.
func (m *Manager) Loaded() []string {
	names := make([]string, 0, len(m.loaded))
	for _, f := range m.loaded {
		names = append(names, f.Name())
	}
	return names
}

// CloseAll closes the loaded features in reverse order. Every Closer is called even when
// an earlier one fails; the errors are joined.
func (m *Manager) CloseAll(ctx context.Context) error {
	var errs []error
	for i := len(m.loaded) - 1; i >= 0; i-- {
		c, ok := m.loaded[i].(Closer)
		if !ok {
			continue
		}
		if err := c.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close feature %s: %w", m.loaded[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}
