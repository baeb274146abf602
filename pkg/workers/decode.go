package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/metrics"
	"github.com/cbodonnell/statexfer/pkg/queue"
	"github.com/cbodonnell/statexfer/pkg/snapshot"
	"github.com/cbodonnell/statexfer/pkg/state"
	"go.uber.org/atomic"
)

// DecodeWorker is the single consumer of the snapshot queue. It decodes each
// raw snapshot and publishes the result to the state manager.
type DecodeWorker struct {
	parser       *snapshot.Parser
	queue        queue.Queue
	stateManager state.StateManager
	archiveChan  chan<- ArchiveRequest
	metrics      *metrics.Metrics
	logger       *log.Logger

	stopping atomic.Bool
	lock     sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

type NewDecodeWorkerOptions struct {
	Parser       *snapshot.Parser
	Queue        queue.Queue
	StateManager state.StateManager
	// ArchiveChan receives every decoded snapshot when set.
	ArchiveChan chan<- ArchiveRequest
	Metrics     *metrics.Metrics
}

// NewDecodeWorker creates a new DecodeWorker.
func NewDecodeWorker(opts NewDecodeWorkerOptions) *DecodeWorker {
	return &DecodeWorker{
		parser:       opts.Parser,
		queue:        opts.Queue,
		stateManager: opts.StateManager,
		archiveChan:  opts.ArchiveChan,
		metrics:      opts.Metrics,
		logger:       log.With("decode-worker"),
		done:         make(chan struct{}),
	}
}

// Start runs the worker until ctx is done or Stop is called. After Stop,
// every snapshot already queued is decoded before Start returns.
func (w *DecodeWorker) Start(ctx context.Context) {
	defer close(w.done)

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.lock.Lock()
	w.cancel = cancel
	w.lock.Unlock()

	for {
		if ctx.Err() != nil {
			return
		}
		if item, ok := w.queue.Dequeue(); ok {
			w.decode(ctx, item)
			continue
		}
		if w.stopping.Load() {
			w.logger.Debug("Decode worker stopped")
			return
		}
		if err := w.queue.Wait(waitCtx); errors.Is(err, queue.ErrClosed) {
			w.logger.Debug("Snapshot queue closed, decode worker exiting")
			return
		}
	}
}

// Stop asks the worker to exit once the queue is drained. A decode in
// progress always runs to completion.
func (w *DecodeWorker) Stop() {
	w.stopping.Store(true)
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
}

// Done is closed when Start returns.
func (w *DecodeWorker) Done() <-chan struct{} {
	return w.done
}

func (w *DecodeWorker) decode(ctx context.Context, raw []byte) {
	start := time.Now()
	decoded, err := w.parser.Parse(raw)
	if err != nil {
		w.metrics.DecodeFailures.Inc()
		w.logger.Error("Failed to decode snapshot: %v", err)
		return
	}
	w.metrics.DecodeDuration.Observe(time.Since(start).Seconds())
	w.metrics.SnapshotsDecoded.Inc()

	for _, obj := range decoded.Objects {
		w.metrics.BlocksDecoded.Inc()
		w.metrics.DecodeWarnings.Add(float64(len(obj.Warnings)))
		if !obj.Match() {
			w.metrics.BlockMismatches.Inc()
		}
	}
	w.logger.Debug("Decoded snapshot of %d bytes into %d objects in %v", len(raw), len(decoded.Objects), time.Since(start))

	if err := w.stateManager.Set(ctx, decoded); err != nil {
		w.logger.Error("Failed to publish decoded state: %v", err)
		return
	}

	if w.archiveChan != nil {
		req := ArchiveRequest{
			ReceivedAt: start.UnixMilli(),
			Data:       raw,
			State:      decoded,
		}
		select {
		case w.archiveChan <- req:
		default:
			w.logger.Warn("Archive channel is full, dropping capture of %d bytes", len(raw))
		}
	}
}
