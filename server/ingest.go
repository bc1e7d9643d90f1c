package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/khaledhikmat/cm-go/model"
)

type ingestFrameRequest struct {
	Image       []byte             `json:"image"`
	Predictions []model.Prediction `json:"predictions"`
}

// handleIngestFrame accepts a processed frame from the detection
// pipeline and broadcasts it to the source's viewers. With no viewers
// the frame still refreshes the relay's cache.
func (s *Server) handleIngestFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sourceKey := r.PathValue("sourceKey")

	var req ingestFrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	if len(req.Image) == 0 {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}

	rel := s.relays.Get(sourceKey)
	rel.Broadcast(model.Frame{
		SourceKey:   sourceKey,
		Image:       req.Image,
		Predictions: req.Predictions,
		Timestamp:   time.Now().Unix(),
	})

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":      "accepted",
		"subscribers": rel.SubscriberCount(),
	})
}

type ingestAlertRequest struct {
	Target    string `json:"target"`
	Message   string `json:"message"`
	Detail    string `json:"detail"`
	ImageURL  string `json:"imageUrl"`
	ClipURL   string `json:"clipUrl"`
	SourceKey string `json:"sourceKey"`
}

// handleIngestAlert accepts an alert from the detection pipeline and
// hands it to the broker. Delivery is best effort, so this always
// acknowledges once the payload parses.
func (s *Server) handleIngestAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ingestAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	if req.Target == "" {
		writeError(w, http.StatusBadRequest, "target is required")
		return
	}

	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	alert := model.Alert{
		ID:        uuid.NewString(),
		Message:   req.Message,
		Detail:    req.Detail,
		ImageURL:  req.ImageURL,
		ClipURL:   req.ClipURL,
		SourceKey: req.SourceKey,
		Timestamp: time.Now().Unix(),
	}

	s.broker.SendAlert(req.Target, alert)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"id":     alert.ID,
	})
}
