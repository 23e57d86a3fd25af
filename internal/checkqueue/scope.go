package checkqueue

import "sync"

// Scope is QueueScope: a handle bound to one Queue for the duration of one
// batch-series. It forwards Add to the queue and guarantees Wait is called
// exactly once, even if the caller never calls it explicitly — Go has no
// destructors, so that guarantee is expressed as Close(), meant to be
// invoked via defer immediately after the scope is created, the same way
// a C++ destructor would run at end of block.
type Scope struct {
	once   sync.Once
	queue  *Queue
	result bool
	waited bool
}

// NewScope binds a fresh Scope to q. Callers should immediately
// `defer scope.Close()`.
func NewScope(q *Queue) *Scope {
	return &Scope{queue: q}
}

// Add forwards a batch of predicates to the bound queue. Calling Add after
// Wait (or Close) has already run is QueueMisuse; this implementation
// silently drops the batch rather than aborting, consistent with Queue.Add.
func (s *Scope) Add(batch []Predicate) {
	if s.waited {
		return
	}
	s.queue.Add(batch)
}

// Wait ends the batch-series explicitly and returns whether every
// predicate submitted through this scope returned true. Calling Wait a
// second time (directly, or via the deferred Close) is observationally
// equivalent to calling it once: the cached result is replayed rather than
// re-entering the queue's wait protocol.
func (s *Scope) Wait() bool {
	s.once.Do(func() {
		s.waited = true
		s.result = s.queue.Wait()
	})
	return s.result
}

// Close enforces the scope's contract when deferred: if Wait was never
// called explicitly, it is called now and its result discarded. No batch
// submitted through this scope can outlive the call to Close.
func (s *Scope) Close() {
	s.Wait()
}
