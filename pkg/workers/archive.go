package workers

import (
	"context"

	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/metrics"
	"github.com/cbodonnell/statexfer/pkg/repositories"
	"github.com/cbodonnell/statexfer/pkg/repositories/models"
	"github.com/cbodonnell/statexfer/pkg/snapshot"
	"github.com/cbodonnell/statexfer/pkg/xfer"
)

type ArchiveWorker struct {
	repository  repositories.Repository
	archiveChan <-chan ArchiveRequest
	source      string
	metrics     *metrics.Metrics
	done        chan struct{}
}

type NewArchiveWorkerOptions struct {
	Repository  repositories.Repository
	ArchiveChan <-chan ArchiveRequest
	// Source labels the stored captures.
	Source  string
	Metrics *metrics.Metrics
}

type ArchiveRequest struct {
	ReceivedAt int64
	Data       []byte
	State      *snapshot.State
}

// NewArchiveWorker creates a new ArchiveWorker.
// The worker persists every decoded snapshot it receives, together with a
// checksum of the raw bytes and a summary of the decoded blocks.
func NewArchiveWorker(opts NewArchiveWorkerOptions) *ArchiveWorker {
	return &ArchiveWorker{
		repository:  opts.Repository,
		archiveChan: opts.ArchiveChan,
		source:      opts.Source,
		metrics:     opts.Metrics,
		done:        make(chan struct{}),
	}
}

// Start archives requests until the channel is closed or ctx is done. Close
// the channel to have every buffered request saved before Start returns.
func (w *ArchiveWorker) Start(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-w.archiveChan:
			if !ok {
				return
			}
			w.archive(ctx, req)
		}
	}
}

// Done is closed when Start returns.
func (w *ArchiveWorker) Done() <-chan struct{} {
	return w.done
}

func (w *ArchiveWorker) archive(ctx context.Context, req ArchiveRequest) {
	capture := NewCapture(w.source, req)
	if err := w.repository.SaveCapture(ctx, capture); err != nil {
		w.metrics.ArchiveFailures.Inc()
		log.Error("Failed to save capture: %v", err)
		return
	}
	w.metrics.CapturesArchived.Inc()
	log.Debug("Archived capture %s (%d bytes, crc 0x%08X)", capture.ID, capture.Size, capture.CRC)
}

// NewCapture builds the repository record of an archive request.
func NewCapture(source string, req ArchiveRequest) *models.Capture {
	checksum := &xfer.Checksum{}
	checksum.Add(req.Data)

	capture := &models.Capture{
		Source:     source,
		ReceivedAt: req.ReceivedAt,
		Size:       len(req.Data),
		CRC:        checksum.Sum(),
		Data:       req.Data,
	}
	if req.State != nil {
		capture.Objects = len(req.State.Objects)
		for _, obj := range req.State.Objects {
			if !obj.Match() {
				capture.Mismatches++
			}
		}
	}
	return capture
}
