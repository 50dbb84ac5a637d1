// Package loader provides the plugin-like feature loading system.
//
// Each feature implements the Feature interface, which defines its route registration
// and enablement. Features holding background resources also implement Closer.
//
// # Feature Interface
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// # Manager
//
// The Manager holds the registry of available features. It handles:
//   - Registration of features via Register()
//   - Loading of enabled features via LoadAll()
//   - Shutdown of loaded features via CloseAll(), in reverse order
package loader
