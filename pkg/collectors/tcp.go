package collectors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/metrics"
	"github.com/cbodonnell/statexfer/pkg/queue"
)

const (
	// DefaultMaxSnapshotSize bounds a single snapshot read from a connection.
	DefaultMaxSnapshotSize = 256 << 20
	// DefaultReadTimeout bounds the time a producer may take to send one snapshot.
	DefaultReadTimeout = 30 * time.Second
)

// TCPCollector accepts one snapshot per connection: a producer connects,
// writes the raw save data and closes its write side.
type TCPCollector struct {
	port        int
	queue       queue.Queue
	recording   *Recording
	metrics     *metrics.Metrics
	maxSize     int64
	readTimeout time.Duration
	logger      *log.Logger

	lock     sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

type NewTCPCollectorOptions struct {
	Port        int
	Queue       queue.Queue
	Recording   *Recording
	Metrics     *metrics.Metrics
	MaxSize     int64
	ReadTimeout time.Duration
}

// NewTCPCollector creates a new TCPCollector.
func NewTCPCollector(opts NewTCPCollectorOptions) *TCPCollector {
	c := &TCPCollector{
		port:        opts.Port,
		queue:       opts.Queue,
		recording:   opts.Recording,
		metrics:     opts.Metrics,
		maxSize:     opts.MaxSize,
		readTimeout: opts.ReadTimeout,
		logger:      log.With("tcp-collector"),
		ready:       make(chan struct{}),
	}
	if c.maxSize <= 0 {
		c.maxSize = DefaultMaxSnapshotSize
	}
	if c.readTimeout <= 0 {
		c.readTimeout = DefaultReadTimeout
	}
	return c
}

// Start listens until ctx is done.
func (c *TCPCollector) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", c.port))
	if err != nil {
		return fmt.Errorf("failed to listen on TCP port %d: %v", c.port, err)
	}
	c.lock.Lock()
	c.listener = listener
	c.lock.Unlock()
	close(c.ready)

	c.logger.Info("TCP collector listening on %s", listener.Addr().String())

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				c.logger.Info("TCP collector closed")
				return nil
			}
			c.logger.Error("Failed to accept TCP connection: %v", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			c.handleTCPConnection(conn)
		}()
	}
}

// Addr returns the listening address once Start has bound it.
func (c *TCPCollector) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.listener.Addr(), nil
}

// handleTCPConnection reads one snapshot to EOF.
func (c *TCPCollector) handleTCPConnection(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		c.logger.Error("Failed to set read deadline for %s: %v", remote, err)
		return
	}
	data, err := io.ReadAll(io.LimitReader(conn, c.maxSize+1))
	if err != nil {
		c.logger.Error("Error reading snapshot from %s: %v", remote, err)
		return
	}
	if int64(len(data)) > c.maxSize {
		c.logger.Error("Snapshot from %s exceeds %d bytes, dropping", remote, c.maxSize)
		c.metrics.SnapshotsDropped.WithLabelValues(SourceTCP).Inc()
		return
	}
	if len(data) == 0 {
		c.logger.Debug("Empty snapshot from %s ignored", remote)
		return
	}

	Submit(c.queue, c.recording, c.metrics, SourceTCP, data)
	c.logger.Debug("Received snapshot of %d bytes from %s", len(data), remote)
}
