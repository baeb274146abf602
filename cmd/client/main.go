package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/snapshot"
	"github.com/cbodonnell/statexfer/pkg/version"
)

func main() {
	tcpAddr := flag.String("tcp-addr", "localhost:8888", "TCP collector address")
	apiURL := flag.String("api-url", "", "Post snapshots to this API base URL instead of the TCP collector")
	timeout := flag.Duration("timeout", 30*time.Second, "Timeout per snapshot")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stderr, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Debug("Starting client version %s", version.Get())

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: client [flags] <snapshot file>...")
		os.Exit(2)
	}

	failed := 0
	for _, path := range flag.Args() {
		data, err := snapshot.ReadFile(path)
		if err != nil {
			log.Error("Failed to read %s: %v", path, err)
			failed++
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		if *apiURL != "" {
			err = postSnapshot(ctx, *apiURL, data)
		} else {
			err = sendSnapshot(ctx, *tcpAddr, data)
		}
		cancel()
		if err != nil {
			log.Error("Failed to send %s: %v", path, err)
			failed++
			continue
		}
		log.Info("Sent %s (%d bytes)", path, len(data))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// sendSnapshot writes data over one TCP connection and closes the write side
// so the collector sees the end of the snapshot.
func sendSnapshot(ctx context.Context, addr string, data []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %v", addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("failed to write snapshot: %v", err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.CloseWrite(); err != nil {
			return fmt.Errorf("failed to close write side: %v", err)
		}
	}
	// wait for the collector to hang up
	_, _ = io.Copy(io.Discard, conn)
	return nil
}

func postSnapshot(ctx context.Context, baseURL string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/snapshots", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post snapshot: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	return nil
}
