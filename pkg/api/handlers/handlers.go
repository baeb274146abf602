package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/cbodonnell/statexfer/pkg/collectors"
	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/metrics"
	"github.com/cbodonnell/statexfer/pkg/queue"
	"github.com/cbodonnell/statexfer/pkg/state"
)

const defaultCaptureLimit = 50

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response: %v", err)
	}
}

// HandlePostSnapshot queues the request body as one raw snapshot.
func HandlePostSnapshot(q queue.Queue, recording *collectors.Recording, m *metrics.Metrics, maxSize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSize))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "Snapshot too large", http.StatusRequestEntityTooLarge)
				return
			}
			log.Error("failed to read snapshot: %v", err)
			http.Error(w, "Failed to read snapshot", http.StatusBadRequest)
			return
		}
		if len(data) == 0 {
			http.Error(w, "Snapshot is empty", http.StatusBadRequest)
			return
		}

		if !collectors.Submit(q, recording, m, collectors.SourceHTTP, data) {
			http.Error(w, "Recording is off", http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]int{"size": len(data), "queued": q.Size()})
	}
}

func HandleGetState(stateManager state.StateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := stateManager.Get(r.Context())
		if err != nil {
			log.Error("failed to get state: %v", err)
			http.Error(w, "Failed to get state", http.StatusInternalServerError)
			return
		}
		if current == nil {
			http.Error(w, "No snapshot decoded yet", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, current)
	}
}

func HandleGetStateText(stateManager state.StateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := stateManager.Get(r.Context())
		if err != nil {
			log.Error("failed to get state: %v", err)
			http.Error(w, "Failed to get state", http.StatusInternalServerError)
			return
		}
		if current == nil {
			http.Error(w, "No snapshot decoded yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := current.WriteText(w); err != nil {
			log.Error("failed to write state: %v", err)
		}
	}
}

func HandleDeleteState(stateManager state.StateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := stateManager.Clear(r.Context()); err != nil {
			log.Error("failed to clear state: %v", err)
			http.Error(w, "Failed to clear state", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type recordingBody struct {
	Recording bool `json:"recording"`
}

func HandleGetRecording(recording *collectors.Recording) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, recordingBody{Recording: recording.IsOn()})
	}
}

func HandlePutRecording(recording *collectors.Recording) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body recordingBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid recording request", http.StatusBadRequest)
			return
		}
		recording.Set(body.Recording)
		writeJSON(w, http.StatusOK, recordingBody{Recording: recording.IsOn()})
	}
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultCaptureLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return limit, nil
}
