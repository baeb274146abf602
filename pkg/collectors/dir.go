package collectors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/metrics"
	"github.com/cbodonnell/statexfer/pkg/queue"
	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must go without writes before it is read.
const DefaultSettle = 250 * time.Millisecond

// DirWatcher submits every file created or rewritten in a directory once its
// writer goes quiet. Each file is one snapshot.
type DirWatcher struct {
	dir       string
	pattern   string
	settle    time.Duration
	maxSize   int64
	queue     queue.Queue
	recording *Recording
	metrics   *metrics.Metrics
	logger    *log.Logger
}

type NewDirWatcherOptions struct {
	Dir string
	// Pattern filters file names with filepath.Match. Empty matches all.
	Pattern string
	Settle  time.Duration
	// MaxSize drops larger files unread. Defaults to DefaultMaxSnapshotSize.
	MaxSize   int64
	Queue     queue.Queue
	Recording *Recording
	Metrics   *metrics.Metrics
}

func NewDirWatcher(opts NewDirWatcherOptions) *DirWatcher {
	w := &DirWatcher{
		dir:       opts.Dir,
		pattern:   opts.Pattern,
		settle:    opts.Settle,
		maxSize:   opts.MaxSize,
		queue:     opts.Queue,
		recording: opts.Recording,
		metrics:   opts.Metrics,
		logger:    log.With("dir-watcher"),
	}
	if w.settle <= 0 {
		w.settle = DefaultSettle
	}
	if w.maxSize <= 0 {
		w.maxSize = DefaultMaxSnapshotSize
	}
	return w
}

// Start watches the directory until ctx is done. If ready is non-nil it is
// closed once the watch is registered.
func (w *DirWatcher) Start(ctx context.Context, ready chan<- struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %v", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %v", w.dir, err)
	}
	w.logger.Info("Watching %s for snapshots", w.dir)
	if ready != nil {
		close(ready)
	}

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			pending[event.Name] = time.Now()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Directory watcher error: %v", err)
		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(pending, path)
				w.submitFile(path)
			}
		}
	}
}

func (w *DirWatcher) matches(path string) bool {
	if w.pattern == "" {
		return true
	}
	ok, err := filepath.Match(w.pattern, filepath.Base(path))
	if err != nil {
		w.logger.Warn("Invalid snapshot file pattern %q: %v", w.pattern, err)
		return false
	}
	return ok
}

func (w *DirWatcher) submitFile(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if info.Size() > w.maxSize {
		w.logger.Error("Snapshot %s exceeds %d bytes, dropping", path, w.maxSize)
		w.metrics.SnapshotsDropped.WithLabelValues(SourceDir).Inc()
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Error("Failed to read snapshot %s: %v", path, err)
		return
	}
	if len(data) == 0 {
		w.logger.Debug("Empty snapshot %s ignored", path)
		return
	}
	if Submit(w.queue, w.recording, w.metrics, SourceDir, data) {
		w.logger.Debug("Queued snapshot %s (%d bytes)", path, len(data))
	}
}
