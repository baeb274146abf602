// Package collectors receives raw snapshots from producers and hands them to
// the decode queue.
package collectors

import (
	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/metrics"
	"github.com/cbodonnell/statexfer/pkg/queue"
	"go.uber.org/atomic"
)

const (
	SourceTCP  = "tcp"
	SourceDir  = "dir"
	SourceHTTP = "http"
)

// Recording gates every collector: snapshots that arrive while recording is
// off are read and discarded.
type Recording struct {
	on atomic.Bool
}

func NewRecording(on bool) *Recording {
	r := &Recording{}
	r.on.Store(on)
	return r
}

func (r *Recording) Set(on bool) {
	if r.on.Swap(on) != on {
		log.Info("Recording set to %v", on)
	}
}

func (r *Recording) IsOn() bool {
	return r.on.Load()
}

// Submit enqueues data when recording is on. It reports whether the snapshot
// was queued.
func Submit(q queue.Queue, recording *Recording, m *metrics.Metrics, source string, data []byte) bool {
	if !recording.IsOn() {
		m.SnapshotsDropped.WithLabelValues(source).Inc()
		return false
	}
	if err := q.Enqueue(data); err != nil {
		log.Warn("Failed to enqueue snapshot from %s: %v", source, err)
		m.SnapshotsDropped.WithLabelValues(source).Inc()
		return false
	}
	m.SnapshotsReceived.WithLabelValues(source).Inc()
	m.SnapshotBytes.Observe(float64(len(data)))
	return true
}
