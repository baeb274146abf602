package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the counters the inspector service exports on /metrics.
type Metrics struct {
	SnapshotsReceived *prometheus.CounterVec
	SnapshotsDropped  *prometheus.CounterVec
	SnapshotsDecoded  prometheus.Counter
	DecodeFailures    prometheus.Counter
	DecodeDuration    prometheus.Histogram
	SnapshotBytes     prometheus.Histogram
	BlocksDecoded     prometheus.Counter
	BlockMismatches   prometheus.Counter
	DecodeWarnings    prometheus.Counter
	CapturesArchived  prometheus.Counter
	ArchiveFailures   prometheus.Counter
	StreamClients     prometheus.Gauge
}

func New(r prometheus.Registerer) *Metrics {
	return &Metrics{
		SnapshotsReceived: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Name: "statexfer_snapshots_received_total",
			Help: "Total number of raw snapshots accepted by a collector.",
		}, []string{"source"}),
		SnapshotsDropped: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Name: "statexfer_snapshots_dropped_total",
			Help: "Total number of snapshots ignored because recording was off or the queue was closed.",
		}, []string{"source"}),
		SnapshotsDecoded: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "statexfer_snapshots_decoded_total",
			Help: "Total number of snapshots decoded.",
		}),
		DecodeFailures: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "statexfer_decode_failures_total",
			Help: "Total number of snapshots that could not be decoded.",
		}),
		DecodeDuration: promauto.With(r).NewHistogram(prometheus.HistogramOpts{
			Name:    "statexfer_decode_duration_seconds",
			Help:    "Time taken to decode one snapshot.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		SnapshotBytes: promauto.With(r).NewHistogram(prometheus.HistogramOpts{
			Name:    "statexfer_snapshot_bytes",
			Help:    "Size of received snapshots.",
			Buckets: prometheus.ExponentialBucketsRange(1024, 256<<20, 10),
		}),
		BlocksDecoded: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "statexfer_blocks_decoded_total",
			Help: "Total number of known blocks decoded.",
		}),
		BlockMismatches: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "statexfer_block_mismatches_total",
			Help: "Total number of blocks whose decoded size differed from the declared size.",
		}),
		DecodeWarnings: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "statexfer_decode_warnings_total",
			Help: "Total number of warnings produced while decoding blocks.",
		}),
		CapturesArchived: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "statexfer_captures_archived_total",
			Help: "Total number of captures written to the repository.",
		}),
		ArchiveFailures: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "statexfer_archive_failures_total",
			Help: "Total number of captures that could not be written to the repository.",
		}),
		StreamClients: promauto.With(r).NewGauge(prometheus.GaugeOpts{
			Name: "statexfer_stream_clients",
			Help: "Number of connected state stream clients.",
		}),
	}
}

// NewQueueDepth exports the length reported by size as a gauge.
func NewQueueDepth(r prometheus.Registerer, size func() int) prometheus.GaugeFunc {
	return promauto.With(r).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "statexfer_queue_depth",
		Help: "Number of snapshots waiting to be decoded.",
	}, func() float64 {
		return float64(size())
	})
}
