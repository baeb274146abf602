package queue

import (
	"context"
	"sync"
)

// InMemoryQueue implements an unbounded in-memory queue.
type InMemoryQueue struct {
	lock   sync.Mutex
	cond   *sync.Cond
	items  [][]byte
	closed bool
}

// NewInMemoryQueue creates a new queue.
func NewInMemoryQueue() *InMemoryQueue {
	q := &InMemoryQueue{}
	q.cond = sync.NewCond(&q.lock)
	return q
}

// Enqueue adds an item to the end of the queue.
func (q *InMemoryQueue) Enqueue(item []byte) error {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, item)
	q.cond.Signal()
	return nil
}

// Dequeue removes and returns the item from the front of the queue.
func (q *InMemoryQueue) Dequeue() ([]byte, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return item, true
}

// Wait blocks until the queue holds at least one item. It returns ErrClosed
// once the queue is closed and drained, or ctx.Err() if ctx ends first.
func (q *InMemoryQueue) Wait(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		q.lock.Lock()
		defer q.lock.Unlock()
		q.cond.Broadcast()
	})
	defer stop()

	q.lock.Lock()
	defer q.lock.Unlock()
	for len(q.items) == 0 {
		if q.closed {
			return ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		q.cond.Wait()
	}
	return nil
}

// Size returns the current size of the queue.
func (q *InMemoryQueue) Size() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.items)
}

// ReadAllMessages reads all pending messages in the queue
func (q *InMemoryQueue) ReadAllMessages() [][]byte {
	q.lock.Lock()
	defer q.lock.Unlock()

	messages := q.items
	q.items = nil
	return messages
}

// ClearQueue clears all messages from the queue.
func (q *InMemoryQueue) ClearQueue() {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.items = nil
}

// Close rejects further items and wakes all waiters. Items already queued
// can still be dequeued.
func (q *InMemoryQueue) Close() {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
