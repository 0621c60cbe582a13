package core

import (
	"sync"
)

// commandQueue serializes every device-touching operation. A single
// worker goroutine drains a FIFO of operations, so at most one logical
// transaction is on the bus at a time and operations execute in the
// exact order they were submitted. A failed operation reports its
// error through its result channel and the worker moves on; the queue
// can never be stalled by one bad command.
type commandQueue struct {
	mu     sync.Mutex
	ops    chan queuedOp
	closed bool
	done   chan struct{}
}

type queuedOp struct {
	run    func() error
	result chan error
}

const queueDepth = 32

func newCommandQueue() *commandQueue {
	q := &commandQueue{
		ops:  make(chan queuedOp, queueDepth),
		done: make(chan struct{}),
	}
	go q.worker()
	return q
}

func (q *commandQueue) worker() {
	defer close(q.done)
	for op := range q.ops {
		op.result <- op.run()
	}
}

// Submit appends an operation to the queue and returns a channel that
// receives the operation's result exactly once. Submitting to a closed
// queue resolves immediately with ErrClosed.
func (q *commandQueue) Submit(run func() error) <-chan error {
	result := make(chan error, 1)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		result <- ErrClosed
		return result
	}
	q.ops <- queuedOp{run: run, result: result}
	q.mu.Unlock()

	return result
}

// Do submits an operation and blocks until it has run.
func (q *commandQueue) Do(run func() error) error {
	return <-q.Submit(run)
}

// Close stops accepting operations and waits for the queued ones to
// finish.
func (q *commandQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.ops)
	q.mu.Unlock()
	<-q.done
}
