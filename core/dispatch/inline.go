package dispatch

// Inline runs work on the calling goroutine. It is mostly useful in tests and one-shot
// tools where nothing else competes for the collection.
type Inline struct{}

// Run calls work.
func (Inline) Run(work func()) { work() }

// RunCommandChain calls work.
func (Inline) RunCommandChain(work func()) { work() }

// RunMapChanges calls work.
func (Inline) RunMapChanges(work func()) { work() }
