package asyncmap

// change is one entry of the change queue. It records the intent to process key and may be
// stale by the time it is dequeued.
type change[K comparable] struct {
	key K
	add bool
}

// state is the reconciler state. It is not safe for concurrent use; every method must be
// called with the Wrapper's state lock held and leaves the state consistent.
type state[K comparable, V comparable, C any] struct {
	// applied holds what is actually rendered.
	applied map[K]Entry[K, V, C]
	// toAdd holds keys requested to be added or updated, with the latest requested value.
	toAdd map[K]V
	// toRemove holds keys requested to be removed.
	toRemove map[K]struct{}
	// queue is the ordered change queue. Staleness is resolved on dequeue against toAdd and
	// toRemove, never by editing the queue in place.
	queue []change[K]
}

func newState[K comparable, V comparable, C any]() *state[K, V, C] {
	return &state[K, V, C]{
		applied:  make(map[K]Entry[K, V, C]),
		toAdd:    make(map[K]V),
		toRemove: make(map[K]struct{}),
	}
}

// isChange reports whether putting value under key would alter the applied collection.
func (s *state[K, V, C]) isChange(key K, value V) bool {
	current, ok := s.applied[key]
	if !ok {
		return true
	}
	return current.Value != value
}

// requestPut records the intent to have value applied under key.
func (s *state[K, V, C]) requestPut(key K, value V) {
	delete(s.toRemove, key)

	if !s.isChange(key, value) {
		// already applied with this value, drop any superseded pending add
		delete(s.toAdd, key)
		return
	}
	if _, pending := s.toAdd[key]; !pending {
		s.queue = append(s.queue, change[K]{key: key, add: true})
	}
	s.toAdd[key] = value
}

// requestRemove records the intent to have key taken down.
func (s *state[K, V, C]) requestRemove(key K) {
	delete(s.toAdd, key)

	if _, ok := s.applied[key]; !ok {
		return
	}
	if _, pending := s.toRemove[key]; pending {
		return
	}
	s.toRemove[key] = struct{}{}
	s.queue = append(s.queue, change[K]{key: key, add: false})
}

// requestReplaceAll makes keys the complete desired collection. Unchanged keys are left
// alone; removals are queued before additions.
func (s *state[K, V, C]) requestReplaceAll(keys []K, lookup func(K) V) {
	adds := make(map[K]V, len(keys))
	addOrder := make([]K, 0, len(keys))
	wanted := make(map[K]struct{}, len(keys))
	for _, key := range keys {
		if _, seen := wanted[key]; seen {
			continue
		}
		wanted[key] = struct{}{}
		value := lookup(key)
		if s.isChange(key, value) {
			adds[key] = value
			addOrder = append(addOrder, key)
		}
	}

	removes := make([]K, 0)
	for key := range s.applied {
		if _, ok := wanted[key]; !ok {
			removes = append(removes, key)
		}
	}

	s.clearPending()
	s.toAdd = adds
	for _, key := range removes {
		s.toRemove[key] = struct{}{}
		s.queue = append(s.queue, change[K]{key: key, add: false})
	}
	for _, key := range addOrder {
		s.queue = append(s.queue, change[K]{key: key, add: true})
	}
}

// requestRemoveAll queues the removal of every applied key and drops all pending intent.
func (s *state[K, V, C]) requestRemoveAll() {
	s.clearPending()
	for key := range s.applied {
		s.toRemove[key] = struct{}{}
		s.queue = append(s.queue, change[K]{key: key, add: false})
	}
}

// clearPending drops both pending sets and the change queue.
func (s *state[K, V, C]) clearPending() {
	clear(s.toAdd)
	clear(s.toRemove)
	clear(s.queue)
	s.queue = s.queue[:0]
}

// dequeue pops the oldest change queue entry.
func (s *state[K, V, C]) dequeue() (change[K], bool) {
	if len(s.queue) == 0 {
		return change[K]{}, false
	}
	c := s.queue[0]
	s.queue[0] = change[K]{}
	if len(s.queue) == 1 {
		s.queue = s.queue[:0]
	} else {
		s.queue = s.queue[1:]
	}
	return c, true
}

// takeAdd consumes the pending add for key. ok is false when the queue entry is stale.
func (s *state[K, V, C]) takeAdd(key K) (value V, ok bool) {
	value, ok = s.toAdd[key]
	if ok {
		delete(s.toAdd, key)
	}
	return value, ok
}

// takeRemove consumes the pending removal for key. It returns false when the queue entry
// is stale.
func (s *state[K, V, C]) takeRemove(key K) bool {
	if _, ok := s.toRemove[key]; !ok {
		return false
	}
	delete(s.toRemove, key)
	return true
}

// reset drops everything and returns the entries that were still applied.
func (s *state[K, V, C]) reset() []Entry[K, V, C] {
	remaining := make([]Entry[K, V, C], 0, len(s.applied))
	for _, e := range s.applied {
		remaining = append(remaining, e)
	}
	s.clearPending()
	clear(s.applied)
	return remaining
}
