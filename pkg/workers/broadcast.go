package workers

import (
	"context"
	"sync"
	"time"

	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/messages"
	"github.com/cbodonnell/statexfer/pkg/state"
)

// BroadcastWorker polls the state manager and fans every changed state out
// to the stream subscribers as a serialized messages.StateUpdate.
type BroadcastWorker struct {
	stateManager state.StateManager
	interval     time.Duration

	lock        sync.Mutex
	version     uint64
	latest      []byte
	subscribers map[chan []byte]struct{}
}

type NewBroadcastWorkerOptions struct {
	StateManager state.StateManager
	Interval     time.Duration
}

func NewBroadcastWorker(opts NewBroadcastWorkerOptions) *BroadcastWorker {
	return &BroadcastWorker{
		stateManager: opts.StateManager,
		interval:     opts.Interval,
		subscribers:  make(map[chan []byte]struct{}),
	}
}

func (w *BroadcastWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				log.Error("Failed to broadcast state: %v", err)
			}
		}
	}
}

func (w *BroadcastWorker) poll(ctx context.Context) error {
	current, changed, err := w.stateManager.Consume(ctx)
	if err != nil || !changed {
		return err
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	w.version++
	b, err := messages.SerializeStateUpdate(&messages.StateUpdate{
		Version: w.version,
		State:   current,
	})
	if err != nil {
		return err
	}
	w.latest = b
	for ch := range w.subscribers {
		offer(ch, b)
	}
	log.Trace("Broadcast state version %d to %d subscribers", w.version, len(w.subscribers))
	return nil
}

// Subscribe registers a subscriber. The channel holds at most one pending
// frame; a slow subscriber only ever sees the newest state. The latest frame,
// if any, is delivered immediately.
func (w *BroadcastWorker) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)

	w.lock.Lock()
	w.subscribers[ch] = struct{}{}
	if w.latest != nil {
		ch <- w.latest
	}
	w.lock.Unlock()

	return ch, func() {
		w.lock.Lock()
		defer w.lock.Unlock()
		delete(w.subscribers, ch)
	}
}

// offer replaces any pending frame with b.
func offer(ch chan []byte, b []byte) {
	select {
	case <-ch:
	default:
	}
	ch <- b
}
