package asyncmap

// submit appends batch to the command queue and makes sure exactly one drain loop is
// scheduled to replay it.
func (w *Wrapper[K, V, C]) submit(batch func()) {
	w.cmdMu.Lock()
	if w.destroyed.Load() {
		w.cmdMu.Unlock()
		return
	}
	w.commands = append(w.commands, batch)
	schedule := !w.drainRequested
	w.drainRequested = true
	w.cmdMu.Unlock()

	if schedule {
		w.hooks.scheduler.RunCommandChain(w.drainCommands)
	}
}

// drainCommands replays queued batches one at a time until the queue is empty. Batches
// submitted while it runs are picked up by the same loop. A panicking batch ends this drain
// and the rest of the queue is handed to a fresh one.
func (w *Wrapper[K, V, C]) drainCommands() {
	finished := false
	defer func() {
		if finished {
			return
		}
		w.cmdMu.Lock()
		resume := len(w.commands) > 0 && !w.destroyed.Load()
		w.drainRequested = resume
		w.cmdMu.Unlock()
		if resume {
			w.hooks.scheduler.RunCommandChain(w.drainCommands)
		}
	}()

	for {
		w.cmdMu.Lock()
		if len(w.commands) == 0 {
			w.drainRequested = false
			w.cmdMu.Unlock()
			finished = true
			return
		}
		batch := w.commands[0]
		w.commands[0] = nil
		w.commands = w.commands[1:]
		w.cmdMu.Unlock()

		w.applyCommand(batch)
	}
}

// applyCommand replays one batch against the reconciler state and schedules a processor
// pass when the batch left work behind, even if the batch panicked halfway.
func (w *Wrapper[K, V, C]) applyCommand(batch func()) {
	finished := false
	defer func() {
		if finished {
			return
		}
		w.mu.Lock()
		schedule := w.claimPass()
		w.mu.Unlock()
		if schedule {
			w.hooks.scheduler.RunMapChanges(w.runMapChanges)
		}
	}()

	schedule := w.replay(batch)
	finished = true
	if schedule {
		w.hooks.scheduler.RunMapChanges(w.runMapChanges)
	}
}

// replay runs batch under the state lock and reports whether a pass must be scheduled.
func (w *Wrapper[K, V, C]) replay(batch func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed.Load() {
		return false
	}
	batch()
	return w.claimPass()
}

// claimPass marks a processor pass as requested when there is queued work and none is
// requested yet. Must be called with mu held.
func (w *Wrapper[K, V, C]) claimPass() bool {
	if w.destroyed.Load() || w.passRequested || len(w.state.queue) == 0 {
		return false
	}
	w.passRequested = true
	return true
}
