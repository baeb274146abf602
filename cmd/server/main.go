package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cbodonnell/statexfer/pkg/api"
	"github.com/cbodonnell/statexfer/pkg/collectors"
	"github.com/cbodonnell/statexfer/pkg/config"
	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/metrics"
	"github.com/cbodonnell/statexfer/pkg/queue"
	"github.com/cbodonnell/statexfer/pkg/repositories"
	"github.com/cbodonnell/statexfer/pkg/schema"
	"github.com/cbodonnell/statexfer/pkg/snapshot"
	"github.com/cbodonnell/statexfer/pkg/state"
	"github.com/cbodonnell/statexfer/pkg/version"
	"github.com/cbodonnell/statexfer/pkg/workers"
	"github.com/prometheus/client_golang/prometheus"
	promcollectors "github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Parse("server", os.Args[1:], os.LookupEnv)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse config: %v", err))
	}

	parsedLogLevel, err := log.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting server version %s", version.Get())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schemas, err := schema.LoadFile(cfg.Schema)
	if err != nil {
		panic(fmt.Sprintf("Failed to load schema set: %v", err))
	}
	log.Info("Loaded %d schemas from %s", schemas.Len(), cfg.Schema)
	parser := snapshot.NewParser(schemas)

	registry := prometheus.NewRegistry()
	registry.MustRegister(promcollectors.NewGoCollector(), promcollectors.NewProcessCollector(promcollectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	snapshotQueue := queue.NewInMemoryQueue()
	metrics.NewQueueDepth(registry, snapshotQueue.Size)
	stateManager := state.NewInMemoryStateManager()
	recording := collectors.NewRecording(cfg.Recording)

	var repository repositories.Repository
	var archiveChan chan workers.ArchiveRequest
	if cfg.DatabaseURL != "" {
		repository, err = repositories.NewRepository(ctx, cfg.DatabaseURL, cfg.Migrations)
		if err != nil {
			panic(fmt.Sprintf("Failed to create repository: %v", err))
		}
		archiveChanSize := 100
		archiveChan = make(chan workers.ArchiveRequest, archiveChanSize)
	}

	g, gctx := errgroup.WithContext(ctx)

	decodeWorker := workers.NewDecodeWorker(workers.NewDecodeWorkerOptions{
		Parser:       parser,
		Queue:        snapshotQueue,
		StateManager: stateManager,
		ArchiveChan:  archiveChan,
		Metrics:      m,
	})
	// the decode worker drains the queue on Stop, so it runs outside gctx
	go decodeWorker.Start(context.Background())

	broadcastWorker := workers.NewBroadcastWorker(workers.NewBroadcastWorkerOptions{
		StateManager: stateManager,
		Interval:     cfg.StreamInterval,
	})
	g.Go(func() error {
		broadcastWorker.Start(gctx)
		return nil
	})

	// the archive worker outlives gctx so snapshots drained at shutdown are saved
	archiveCtx, cancelArchive := context.WithCancel(context.Background())
	defer cancelArchive()
	var archiveWorker *workers.ArchiveWorker
	if repository != nil {
		archiveWorker = workers.NewArchiveWorker(workers.NewArchiveWorkerOptions{
			Repository:  repository,
			ArchiveChan: archiveChan,
			Source:      "server",
			Metrics:     m,
		})
		go archiveWorker.Start(archiveCtx)
	}

	tcpCollector := collectors.NewTCPCollector(collectors.NewTCPCollectorOptions{
		Port:      cfg.TCPPort,
		Queue:     snapshotQueue,
		Recording: recording,
		Metrics:   m,
		MaxSize:   cfg.MaxSnapshotSize,
	})
	g.Go(func() error {
		return tcpCollector.Start(gctx)
	})

	if cfg.WatchDir != "" {
		dirWatcher := collectors.NewDirWatcher(collectors.NewDirWatcherOptions{
			Dir:       cfg.WatchDir,
			Pattern:   cfg.WatchPattern,
			MaxSize:   cfg.MaxSnapshotSize,
			Queue:     snapshotQueue,
			Recording: recording,
			Metrics:   m,
		})
		g.Go(func() error {
			return dirWatcher.Start(gctx, nil)
		})
	}

	apiServerOpts := api.NewAPIServerOptions{
		Port:            cfg.APIPort,
		Queue:           snapshotQueue,
		Recording:       recording,
		StateManager:    stateManager,
		Subscriber:      broadcastWorker,
		Parser:          parser,
		Repository:      repository,
		Metrics:         m,
		Gatherer:        registry,
		MaxSnapshotSize: cfg.MaxSnapshotSize,
	}
	tlsCertFile := os.Getenv(config.EnvPrefix + "API_TLS_CERT_FILE")
	tlsKeyFile := os.Getenv(config.EnvPrefix + "API_TLS_KEY_FILE")
	if tlsCertFile != "" && tlsKeyFile != "" {
		apiServerOpts.TLS = &api.TLSConfig{
			CertFile: tlsCertFile,
			KeyFile:  tlsKeyFile,
		}
	}
	server := api.NewAPIServer(apiServerOpts)
	g.Go(server.Start)

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop API server: %v", err)
		}

		// stop accepting new work, then let the decode worker drain
		recording.Set(false)
		decodeWorker.Stop()
		drained := false
		select {
		case <-decodeWorker.Done():
			drained = true
		case <-shutdownCtx.Done():
			log.Warn("Decode worker did not drain %d snapshot(s) before timeout", snapshotQueue.Size())
		}
		snapshotQueue.Close()

		if archiveWorker != nil {
			if drained {
				// no sender is left once the decode worker is done
				close(archiveChan)
			} else {
				cancelArchive()
			}
			select {
			case <-archiveWorker.Done():
			case <-shutdownCtx.Done():
				log.Warn("Archive worker did not save %d capture(s) before timeout", len(archiveChan))
				cancelArchive()
			}
		}
		return nil
	})

	err = g.Wait()
	if repository != nil {
		if err := repository.Close(context.Background()); err != nil {
			log.Error("Failed to close repository: %v", err)
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Server exited: %v", err)
		os.Exit(1)
	}
	log.Info("Server stopped")
}
