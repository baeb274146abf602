package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cbodonnell/statexfer/pkg/api/handlers"
	"github.com/cbodonnell/statexfer/pkg/api/middleware"
	"github.com/cbodonnell/statexfer/pkg/collectors"
	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/metrics"
	"github.com/cbodonnell/statexfer/pkg/queue"
	"github.com/cbodonnell/statexfer/pkg/repositories"
	"github.com/cbodonnell/statexfer/pkg/snapshot"
	"github.com/cbodonnell/statexfer/pkg/state"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIServer struct {
	server *http.Server
	tls    *TLSConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewAPIServerOptions struct {
	Port         int
	TLS          *TLSConfig
	Queue        queue.Queue
	Recording    *collectors.Recording
	StateManager state.StateManager
	Subscriber   handlers.Subscriber
	Parser       *snapshot.Parser
	// Repository enables the capture and crc routes when set.
	Repository      repositories.Repository
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	MaxSnapshotSize int64
}

// NewAPIServer creates a new http.Server for handling API requests
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: NewRouter(opts),
	}
	return &APIServer{
		server: server,
		tls:    opts.TLS,
	}
}

// NewRouter builds the API routes.
func NewRouter(opts NewAPIServerOptions) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.NewLoggingMiddleware(), middleware.NewCORSMiddleware())

	r.HandleFunc("/snapshots", handlers.HandlePostSnapshot(opts.Queue, opts.Recording, opts.Metrics, opts.MaxSnapshotSize)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/state", handlers.HandleGetState(opts.StateManager)).Methods(http.MethodGet)
	r.HandleFunc("/state", handlers.HandleDeleteState(opts.StateManager)).Methods(http.MethodDelete, http.MethodOptions)
	r.HandleFunc("/state/text", handlers.HandleGetStateText(opts.StateManager)).Methods(http.MethodGet)
	r.HandleFunc("/state/stream", handlers.HandleStateStream(opts.Subscriber, opts.Metrics)).Methods(http.MethodGet)
	r.HandleFunc("/recording", handlers.HandleGetRecording(opts.Recording)).Methods(http.MethodGet)
	r.HandleFunc("/recording", handlers.HandlePutRecording(opts.Recording)).Methods(http.MethodPut, http.MethodOptions)

	if opts.Repository != nil {
		r.HandleFunc("/captures", handlers.HandleListCaptures(opts.Repository)).Methods(http.MethodGet)
		r.HandleFunc("/captures/{captureID}", handlers.HandleGetCapture(opts.Repository, opts.Parser)).Methods(http.MethodGet)
		r.HandleFunc("/crc/{session}", handlers.HandleListCRCFrames(opts.Repository)).Methods(http.MethodGet)
		r.HandleFunc("/crc/{session}/compare/{other}", handlers.HandleCompareCRCSessions(opts.Repository)).Methods(http.MethodGet)
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}

// Start starts the APIServer
func (s *APIServer) Start() error {
	var listenAndServe func() error
	if s.tls != nil {
		log.Info("API server listening on %s with TLS", s.server.Addr)
		listenAndServe = func() error {
			return s.server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("API server listening on %s", s.server.Addr)
		listenAndServe = s.server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("API server closed")
			return nil
		}
		return fmt.Errorf("API server error: %v", err)
	}
	return nil
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
