package asyncmap

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Wrapper manages a key-indexed collection that is updated asynchronously through an
// Executor. All methods are safe for concurrent use and return immediately; their effect
// is only observable through the Executor callbacks.
type Wrapper[K comparable, V comparable, C any] struct {
	hooks  hooks[K, V, C]
	logger *zap.Logger

	destroyed atomic.Bool

	// command queue, guarded by cmdMu
	cmdMu          sync.Mutex
	commands       []func()
	drainRequested bool

	// reconciler state, guarded by mu
	mu            sync.Mutex
	state         *state[K, V, C]
	passRequested bool
	put           func(K, V)
	remove        func(K)
}

// New creates a Wrapper applying changes through exec.
// A nil logger disables logging.
func New[K comparable, V comparable, C any](exec Executor[K, V, C], logger *zap.Logger) *Wrapper[K, V, C] {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Wrapper[K, V, C]{
		hooks:  resolveHooks(exec),
		logger: logger.Named("asyncmap"),
		state:  newState[K, V, C](),
	}
	w.put = w.state.requestPut
	w.remove = w.state.requestRemove
	return w
}

// Put requests value to be applied under key.
func (w *Wrapper[K, V, C]) Put(key K, value V) {
	w.submit(func() { w.state.requestPut(key, value) })
}

// Add requests key to be applied with the zero value.
func (w *Wrapper[K, V, C]) Add(key K) {
	var zero V
	w.Put(key, zero)
}

// PutAll requests every pair of values to be applied.
func (w *Wrapper[K, V, C]) PutAll(values map[K]V) {
	owned := maps.Clone(values)
	w.MultiChange(func(put func(K, V), _ func(K)) {
		for key, value := range owned {
			put(key, value)
		}
	})
}

// Remove requests key to be taken down.
func (w *Wrapper[K, V, C]) Remove(key K) {
	w.submit(func() { w.state.requestRemove(key) })
}

// RemoveKeys requests every key to be taken down.
func (w *Wrapper[K, V, C]) RemoveKeys(keys []K) {
	owned := slices.Clone(keys)
	w.MultiChange(func(_ func(K, V), remove func(K)) {
		for _, key := range owned {
			remove(key)
		}
	})
}

// RemoveAll requests the whole collection to be taken down.
func (w *Wrapper[K, V, C]) RemoveAll() {
	w.submit(w.state.requestRemoveAll)
}

// ReplaceKeys makes keys, each with the zero value, the complete desired collection.
func (w *Wrapper[K, V, C]) ReplaceKeys(keys []K) {
	owned := slices.Clone(keys)
	w.submit(func() {
		w.state.requestReplaceAll(owned, func(K) V {
			var zero V
			return zero
		})
	})
}

// Replace makes values the complete desired collection.
//
// The effect equals RemoveAll followed by PutAll, but keys whose applied value does not
// change are never touched.
func (w *Wrapper[K, V, C]) Replace(values map[K]V) {
	keys := make([]K, 0, len(values))
	owned := make(map[K]V, len(values))
	for key, value := range values {
		keys = append(keys, key)
		owned[key] = value
	}
	w.submit(func() {
		w.state.requestReplaceAll(keys, func(key K) V { return owned[key] })
	})
}

// MultiChange submits an arbitrary batch of puts and removes. change is called later, once,
// on the command chain; the put and remove functions it receives are only valid during that
// call. The whole batch is replayed against one consistent state.
func (w *Wrapper[K, V, C]) MultiChange(change func(put func(K, V), remove func(K))) {
	w.submit(func() { change(w.put, w.remove) })
}

// IsDestroyed reports whether Destroy has been called.
func (w *Wrapper[K, V, C]) IsDestroyed() bool {
	return w.destroyed.Load()
}

// Destroy stops all processing for good. Queued commands and pending changes are dropped
// and the entries still applied are handed once to the Executor's Destroyer, through
// Scheduler.RunMapChanges. Later calls are no-ops.
func (w *Wrapper[K, V, C]) Destroy() {
	if !w.destroyed.CompareAndSwap(false, true) {
		return
	}

	w.cmdMu.Lock()
	clear(w.commands)
	w.commands = nil
	w.drainRequested = false
	w.cmdMu.Unlock()

	w.mu.Lock()
	remaining := w.state.reset()
	w.passRequested = false
	w.mu.Unlock()

	w.logger.Debug("Destroyed", zap.Int("remaining", len(remaining)))

	if w.hooks.destroyer == nil {
		return
	}
	destroyer := w.hooks.destroyer
	w.hooks.scheduler.RunMapChanges(func() { destroyer.Destroy(remaining) })
}

// Stats is a point-in-time view of the Wrapper's bookkeeping.
type Stats struct {
	// Applied counts the entries currently rendered.
	Applied int `json:"applied"`
	// PendingAdds counts keys waiting to be added or updated.
	PendingAdds int `json:"pending_adds"`
	// PendingRemoves counts keys waiting to be removed.
	PendingRemoves int `json:"pending_removes"`
	// Queued is the change queue length, stale entries included.
	Queued int `json:"queued"`
	// Commands counts submitted batches not yet replayed.
	Commands int `json:"commands"`
	// Draining is true while a command drain is scheduled or running.
	Draining bool `json:"draining"`
	// Processing is true while a batch processor pass is scheduled, running or paused.
	Processing bool `json:"processing"`
	// Destroyed mirrors IsDestroyed.
	Destroyed bool `json:"destroyed"`
}

// Stats returns the current bookkeeping counters. It takes both locks one after the other,
// so the two halves may be from slightly different instants.
func (w *Wrapper[K, V, C]) Stats() Stats {
	var s Stats

	w.cmdMu.Lock()
	s.Commands = len(w.commands)
	s.Draining = w.drainRequested
	w.cmdMu.Unlock()

	w.mu.Lock()
	s.Applied = len(w.state.applied)
	s.PendingAdds = len(w.state.toAdd)
	s.PendingRemoves = len(w.state.toRemove)
	s.Queued = len(w.state.queue)
	s.Processing = w.passRequested
	w.mu.Unlock()

	s.Destroyed = w.destroyed.Load()
	return s
}
