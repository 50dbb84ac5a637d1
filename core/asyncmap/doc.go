// Package asyncmap provides a generic, thread-safe engine that keeps an externally
// rendered, key-indexed collection in line with what callers ask it to contain.
//
// Callers describe the desired collection through Put, Remove, Replace and friends from
// any goroutine. The engine records that intent, coalesces requests that supersede each
// other and applies the resulting diff through an Executor in small, interruptible passes.
// Mutating the rendered collection is assumed to be expensive and bound to a specific
// execution context (a render loop, a UI dispatcher, a remote store), so nothing is ever
// applied on the caller's goroutine unless the Executor asks for it.
//
// # Architecture
//
// The Wrapper is made of four parts:
//
// 1. Request pipeline: caller batches are appended to a command queue and replayed one at a
// time by a single drain loop scheduled through Scheduler.RunCommandChain.
//
// 2. Reconciler state: the applied entries, the pending-add and pending-remove sets and the
// ordered change queue derived from them.
//
// 3. Batch processor: drains the change queue through the Executor, asking the Throttler
// after every entry whether to keep going. A paused pass resumes exactly where it stopped.
//
// 4. Lifecycle: Destroy is terminal. Pending work is dropped and the remaining applied
// entries are handed to the Executor once for bulk teardown.
//
// Two locks guard the two halves of the state. The command lock only covers the command
// queue; the state lock covers everything else. Neither is held while a Scheduler hook is
// called.
//
// # Executors
//
// Only Add and Remove are required. Replace, scheduling, throttling, batch notifications
// and teardown are optional interfaces detected at construction:
//
//	type layer struct{}
//
//	func (layer) Add(key string, v Marker) (*Handle, error)          { ... }
//	func (layer) Remove(key string, v Marker, h *Handle) error       { ... }
//	func (layer) ContinueMapChanges(start time.Time, left int) bool  { return time.Since(start) < 20*time.Millisecond }
//
//	w := asyncmap.New[string, Marker, *Handle](layer{}, logger)
//	w.Put("a", Marker{Lat: 1, Lon: 2})
//	w.Replace(map[string]Marker{"b": {}})
//	w.Destroy()
//
// Executor callbacks run under the state lock, which is not re-entrant. Calling Destroy or
// Stats from a callback deadlocks, as does waiting for the Wrapper to go idle. Submitting
// requests from a callback is allowed. A panicking callback ends only the current pass.
package asyncmap
