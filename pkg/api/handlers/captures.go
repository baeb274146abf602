package handlers

import (
	"net/http"

	"github.com/cbodonnell/statexfer/pkg/crcdiff"
	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/repositories"
	"github.com/cbodonnell/statexfer/pkg/repositories/models"
	"github.com/cbodonnell/statexfer/pkg/snapshot"
	"github.com/gorilla/mux"
)

func HandleListCaptures(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseLimit(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		captures, err := repository.ListCaptures(r.Context(), limit)
		if err != nil {
			log.Error("failed to list captures: %v", err)
			http.Error(w, "Failed to list captures", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, captures)
	}
}

type captureResponse struct {
	*models.Capture
	State *snapshot.State `json:"state"`
}

// HandleGetCapture returns a stored capture decoded with the current schema,
// or its raw bytes when called with ?format=raw.
func HandleGetCapture(repository repositories.Repository, parser *snapshot.Parser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["captureID"]
		capture, err := repository.LoadCapture(r.Context(), id)
		if err != nil {
			if repositories.IsNotFound(err) {
				http.Error(w, "Capture not found", http.StatusNotFound)
				return
			}
			log.Error("failed to load capture %s: %v", id, err)
			http.Error(w, "Failed to load capture", http.StatusInternalServerError)
			return
		}

		if r.URL.Query().Get("format") == "raw" {
			w.Header().Set("Content-Type", "application/octet-stream")
			if _, err := w.Write(capture.Data); err != nil {
				log.Error("failed to write capture %s: %v", id, err)
			}
			return
		}

		decoded, err := parser.Parse(capture.Data)
		if err != nil {
			log.Error("failed to decode capture %s: %v", id, err)
			http.Error(w, "Failed to decode capture", http.StatusUnprocessableEntity)
			return
		}
		capture.Data = nil
		writeJSON(w, http.StatusOK, captureResponse{Capture: capture, State: decoded})
	}
}

func HandleListCRCFrames(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := mux.Vars(r)["session"]
		frames, err := repository.ListCRCFrames(r.Context(), session)
		if err != nil {
			log.Error("failed to list crc frames of %s: %v", session, err)
			http.Error(w, "Failed to list crc frames", http.StatusInternalServerError)
			return
		}
		if len(frames) == 0 {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		// logs can be large; the listing only carries the checksums
		for _, f := range frames {
			f.Log = nil
		}
		writeJSON(w, http.StatusOK, frames)
	}
}

type compareResponse struct {
	Compared int               `json:"compared"`
	Match    bool              `json:"match"`
	Mismatch *crcdiff.Mismatch `json:"mismatch,omitempty"`
}

func HandleCompareCRCSessions(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		result, err := crcdiff.CompareSessions(r.Context(), repository, vars["session"], vars["other"])
		if err != nil {
			if err == crcdiff.ErrNoCommonFrames {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			log.Error("failed to compare sessions: %v", err)
			http.Error(w, "Failed to compare sessions", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, compareResponse{
			Compared: result.Compared,
			Match:    result.Mismatch == nil,
			Mismatch: result.Mismatch,
		})
	}
}
