package queue

import (
	"context"
	"errors"
)

// ErrClosed is returned by queue operations after Close.
var ErrClosed = errors.New("queue is closed")

// Queue represents a basic FIFO queue of raw snapshots.
// Implementations must be thread-safe.
type Queue interface {
	// Enqueue adds an item to the end of the queue. It never blocks.
	Enqueue(item []byte) error
	// Dequeue removes and returns the item at the front of the queue,
	// reporting false when the queue is empty.
	Dequeue() ([]byte, bool)
	// Wait blocks until an item is available, the queue is closed or
	// ctx is done.
	Wait(ctx context.Context) error
	Size() int
	// ReadAllMessages removes and returns every pending item.
	ReadAllMessages() [][]byte
	ClearQueue()
	Close()
}
