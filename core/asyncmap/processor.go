package asyncmap

import (
	"time"

	"go.uber.org/zap"
)

// runMapChanges is one pass of the batch processor. A pass that yields keeps passRequested
// set and reschedules itself, so the next pass resumes where the queue left off. A panicking
// executor ends the pass like a failed entry does.
func (w *Wrapper[K, V, C]) runMapChanges() {
	finished := false
	defer func() {
		if finished {
			return
		}
		w.mu.Lock()
		w.passRequested = false
		resume := w.claimPass()
		w.mu.Unlock()
		if resume {
			w.hooks.scheduler.RunMapChanges(w.runMapChanges)
		}
	}()

	resume := w.runPass()
	finished = true
	if resume {
		w.hooks.scheduler.RunMapChanges(w.runMapChanges)
	}
}

// runPass processes the queue under the state lock and reports whether the pass must be
// resumed.
func (w *Wrapper[K, V, C]) runPass() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed.Load() || !w.passRequested {
		return false
	}
	if w.processQueue() {
		w.passRequested = false
		return false
	}
	return !w.destroyed.Load()
}

// processQueue drains the change queue until it is empty, the throttler asks to yield or an
// entry fails. It reports whether the queue was drained. Must be called with mu held.
func (w *Wrapper[K, V, C]) processQueue() bool {
	start := time.Now()
	processed := 0

	for {
		if w.destroyed.Load() {
			return true
		}
		c, ok := w.state.dequeue()
		if !ok {
			break
		}

		var err error
		if c.add {
			err = w.processAdd(c.key)
		} else {
			err = w.processRemove(c.key)
		}
		processed++

		if err != nil {
			w.logger.Error("Map change failed, yielding",
				zap.Any("key", c.key),
				zap.Bool("add", c.add),
				zap.Int("remaining", len(w.state.queue)),
				zap.Error(err),
			)
			w.hooks.batchEnd(processed)
			return false
		}

		if !w.hooks.continueMapChanges(start, len(w.state.queue)) {
			w.logger.Debug("Yielding map change pass",
				zap.Int("processed", processed),
				zap.Int("remaining", len(w.state.queue)),
				zap.Duration("elapsed", time.Since(start)),
			)
			w.hooks.batchEnd(processed)
			return false
		}
	}

	w.logger.Debug("Map change pass finished",
		zap.Int("processed", processed),
		zap.Duration("elapsed", time.Since(start)),
	)
	w.hooks.batchEnd(processed)
	return true
}

// processAdd applies the pending add for key, if it is still wanted.
func (w *Wrapper[K, V, C]) processAdd(key K) error {
	value, ok := w.state.takeAdd(key)
	if !ok {
		// superseded by a later remove
		return nil
	}

	old, applied := w.state.applied[key]
	if !applied {
		ctx, err := w.hooks.exec.Add(key, value)
		if err != nil {
			return err
		}
		w.state.applied[key] = Entry[K, V, C]{Key: key, Value: value, Context: ctx}
		return nil
	}

	ctx, oldGone, err := w.hooks.replace(key, old.Value, old.Context, value)
	if err != nil {
		if oldGone {
			delete(w.state.applied, key)
		}
		return err
	}
	w.state.applied[key] = Entry[K, V, C]{Key: key, Value: value, Context: ctx}
	return nil
}

// processRemove takes key down, if its removal is still wanted.
func (w *Wrapper[K, V, C]) processRemove(key K) error {
	if !w.state.takeRemove(key) {
		// superseded by a later put
		return nil
	}

	old, applied := w.state.applied[key]
	if !applied {
		w.logger.Warn("Removal requested for a key that is not applied",
			zap.Any("key", key),
		)
		return nil
	}

	if err := w.hooks.exec.Remove(key, old.Value, old.Context); err != nil {
		return err
	}
	delete(w.state.applied, key)
	return nil
}
