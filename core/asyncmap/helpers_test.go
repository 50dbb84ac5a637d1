package asyncmap

import (
	"fmt"
	"sync"
	"time"
)

// call is one recorded executor invocation.
type call struct {
	Op    string
	Key   string
	Value string
	Ctx   int
}

// recorder is a thread-safe executor that records every call. Contexts are increasing
// integers so tests can check which context a removal received.
type recorder struct {
	mu        sync.Mutex
	calls     []call
	nextCtx   int
	batches   []int
	destroyed [][]Entry[string, string, int]
	failures  map[string]error
	cont      func(start time.Time, remaining int) bool
}

func newRecorder() *recorder {
	return &recorder{failures: make(map[string]error)}
}

func (r *recorder) Add(key, value string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failures["add:"+key]; err != nil {
		return 0, err
	}
	r.nextCtx++
	r.calls = append(r.calls, call{Op: "add", Key: key, Value: value, Ctx: r.nextCtx})
	return r.nextCtx, nil
}

func (r *recorder) Remove(key, value string, ctx int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failures["remove:"+key]; err != nil {
		return err
	}
	r.calls = append(r.calls, call{Op: "remove", Key: key, Value: value, Ctx: ctx})
	return nil
}

func (r *recorder) ContinueMapChanges(start time.Time, remaining int) bool {
	if r.cont == nil {
		return true
	}
	return r.cont(start, remaining)
}

func (r *recorder) OnMapChangeBatchEnd(processed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, processed)
}

func (r *recorder) Destroy(remaining []Entry[string, string, int]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed = append(r.destroyed, remaining)
}

func (r *recorder) Calls() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func (r *recorder) Batches() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.batches...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.batches = nil
}

// callsFor filters the recorded calls for one key.
func callsFor(calls []call, key string) []call {
	var out []call
	for _, c := range calls {
		if c.Key == key {
			out = append(out, c)
		}
	}
	return out
}

// replacingRecorder also implements Replacer.
type replacingRecorder struct {
	*recorder
}

func (r replacingRecorder) Replace(key, oldValue string, oldCtx int, newValue string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failures["replace:"+key]; err != nil {
		return 0, err
	}
	r.nextCtx++
	r.calls = append(r.calls, call{Op: "replace", Key: key, Value: fmt.Sprintf("%s->%s", oldValue, newValue), Ctx: r.nextCtx})
	return r.nextCtx, nil
}

// manual is a Scheduler that only runs work when the test says so.
type manual struct {
	mu       sync.Mutex
	commands []func()
	changes  []func()
}

func (m *manual) RunCommandChain(work func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, work)
}

func (m *manual) RunMapChanges(work func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, work)
}

func (m *manual) pop(queue *[]func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(*queue) == 0 {
		return nil
	}
	work := (*queue)[0]
	*queue = (*queue)[1:]
	return work
}

// runCommands runs scheduled command drains only.
func (m *manual) runCommands() {
	for work := m.pop(&m.commands); work != nil; work = m.pop(&m.commands) {
		work()
	}
}

// runNextChange runs a single scheduled map change work item.
func (m *manual) runNextChange() bool {
	work := m.pop(&m.changes)
	if work == nil {
		return false
	}
	work()
	return true
}

// runAll runs everything until both queues are empty.
func (m *manual) runAll() {
	for {
		m.runCommands()
		if !m.runNextChange() {
			m.mu.Lock()
			idle := len(m.commands) == 0 && len(m.changes) == 0
			m.mu.Unlock()
			if idle {
				return
			}
		}
	}
}

func (m *manual) pendingChanges() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.changes)
}

// scheduled combines a recorder with a manual scheduler.
type scheduled struct {
	*recorder
	*manual
}

func newScheduled() (*Wrapper[string, string, int], *recorder, *manual) {
	rec := newRecorder()
	m := &manual{}
	return New[string, string, int](scheduled{rec, m}, nil), rec, m
}
