package asyncmap

import "time"

// Executor applies changes to the rendered collection.
// Add is never called for a key that is already applied. Remove is called at most once per
// applied key and add/remove cycle.
type Executor[K comparable, V comparable, C any] interface {
	// Add renders value under key and returns the context needed to remove it later.
	Add(key K, value V) (C, error)

	// Remove takes down the object rendered for key.
	Remove(key K, value V, ctx C) error
}

// Replacer is implemented by executors that can update an applied object in place.
// Without it a replace is performed as Remove followed by Add.
type Replacer[K comparable, V comparable, C any] interface {
	Replace(key K, oldValue V, oldCtx C, newValue V) (C, error)
}

// Scheduler decides where the two internal runners execute.
// Work handed to the same hook must not run concurrently with itself for one Wrapper, and
// must not be re-entered recursively before it returns.
// Without it both runners execute inline on the calling goroutine.
type Scheduler interface {
	// RunCommandChain schedules the drain loop of the request pipeline.
	RunCommandChain(work func())

	// RunMapChanges schedules a pass of the batch processor or the final teardown.
	RunMapChanges(work func())
}

// Throttler is the cooperative yield predicate consulted after every applied entry.
// Returning false pauses the pass; it is rescheduled through Scheduler.RunMapChanges.
type Throttler interface {
	ContinueMapChanges(start time.Time, remaining int) bool
}

// BatchObserver is notified whenever a pass pauses or drains the change queue.
type BatchObserver interface {
	OnMapChangeBatchEnd(processed int)
}

// Destroyer receives the entries still applied when the Wrapper is destroyed.
type Destroyer[K comparable, V comparable, C any] interface {
	Destroy(remaining []Entry[K, V, C])
}

// Entry is an object currently applied to the rendered collection.
type Entry[K comparable, V comparable, C any] struct {
	// Key identifies the entry.
	Key K
	// Value is the last value actually applied for Key.
	Value V
	// Context is whatever the Executor returned when Value was applied.
	Context C
}

// inline runs work on the calling goroutine.
type inline struct{}

func (inline) RunCommandChain(work func()) { work() }
func (inline) RunMapChanges(work func())   { work() }

// hooks resolves the optional interfaces of an executor once, falling back to defaults.
type hooks[K comparable, V comparable, C any] struct {
	exec      Executor[K, V, C]
	replacer  Replacer[K, V, C]
	scheduler Scheduler
	throttler Throttler
	observer  BatchObserver
	destroyer Destroyer[K, V, C]
}

func resolveHooks[K comparable, V comparable, C any](exec Executor[K, V, C]) hooks[K, V, C] {
	h := hooks[K, V, C]{exec: exec, scheduler: inline{}}

	if r, ok := exec.(Replacer[K, V, C]); ok {
		h.replacer = r
	}
	if s, ok := exec.(Scheduler); ok {
		h.scheduler = s
	}
	if t, ok := exec.(Throttler); ok {
		h.throttler = t
	}
	if o, ok := exec.(BatchObserver); ok {
		h.observer = o
	}
	if d, ok := exec.(Destroyer[K, V, C]); ok {
		h.destroyer = d
	}
	return h
}

// replace reports oldGone when the old object was taken down even though the call failed.
func (h hooks[K, V, C]) replace(key K, oldValue V, oldCtx C, newValue V) (ctx C, oldGone bool, err error) {
	if h.replacer != nil {
		ctx, err = h.replacer.Replace(key, oldValue, oldCtx, newValue)
		return ctx, false, err
	}
	if err = h.exec.Remove(key, oldValue, oldCtx); err != nil {
		return ctx, false, err
	}
	ctx, err = h.exec.Add(key, newValue)
	return ctx, err != nil, err
}

func (h hooks[K, V, C]) continueMapChanges(start time.Time, remaining int) bool {
	if h.throttler == nil {
		return true
	}
	return h.throttler.ContinueMapChanges(start, remaining)
}

func (h hooks[K, V, C]) batchEnd(processed int) {
	if h.observer != nil {
		h.observer.OnMapChangeBatchEnd(processed)
	}
}
