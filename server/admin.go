package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/service/detect"
	"github.com/khaledhikmat/cm-go/service/metrics"
)

type detectRequest struct {
	Image string `json:"image"`
}

// handleDetect runs one image through the detection engine and returns
// the filtered predictions. Engine trouble is reported in the body so
// the kiosk keeps its capture loop simple.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	image, err := decodeImagePayload(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image payload: %v", err)
		return
	}

	predictions, err := s.svcs.DetectSvc.Detect(r.Context(), image)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"predictions": []model.Prediction{},
			"error":       err.Error(),
		})
		return
	}

	filtered := detect.FilterPredictions(predictions, s.svcs.CfgSvc.GetDetectorConfidence())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": filtered,
	})
}

type reportViolationRequest struct {
	RoomKey   string `json:"roomKey"`
	TeacherID string `json:"teacherId"`
	Detail    string `json:"detail"`
	Evidence  string `json:"evidence"`
}

// handleReportViolation stores the evidence image, appends an audit row
// and pushes an alert to the room's teacher. The alert leg is best
// effort; the audit row is not.
func (s *Server) handleReportViolation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req reportViolationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	if req.RoomKey == "" || req.Detail == "" {
		writeError(w, http.StatusBadRequest, "roomKey and detail are required")
		return
	}

	evidenceURL := ""
	if req.Evidence != "" {
		image, err := decodeImagePayload(req.Evidence)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid evidence payload: %v", err)
			return
		}

		name := fmt.Sprintf("violation_%s.jpg", shortID())
		path, err := s.svcs.StorageSvc.StoreFile(name, image)
		if err != nil {
			s.errorStream <- model.GenError("server_report_violation",
				err,
				map[string]interface{}{"roomKey": req.RoomKey},
				"error storing evidence file")
			writeError(w, http.StatusInternalServerError, "error storing evidence")
			return
		}

		evidenceURL = s.svcs.CfgSvc.GetPublicBaseURL() + path
	}

	event := model.AuditEvent{
		ID:          uuid.NewString(),
		RoomKey:     req.RoomKey,
		Detail:      req.Detail,
		EvidenceURL: evidenceURL,
		Timestamp:   time.Now().Unix(),
	}

	if err := s.svcs.DataSvc.NewAuditEvent(event); err != nil {
		s.errorStream <- model.GenError("server_report_violation",
			err,
			map[string]interface{}{"roomKey": req.RoomKey},
			"error persisting audit event")
		writeError(w, http.StatusInternalServerError, "error persisting audit event")
		return
	}

	metrics.ViolationsReported.Inc()

	// The teacher to notify comes from the request or from the room
	// record. Either way the mirror identifier sees a copy.
	target := req.TeacherID
	if target == "" {
		if room, err := s.svcs.DataSvc.RetrieveRoomByKey(req.RoomKey); err == nil {
			target = room.TeacherID
		}
	}

	s.broker.SendAlert(target, model.Alert{
		ID:        event.ID,
		Message:   fmt.Sprintf("Violation reported: %s", req.Detail),
		Detail:    req.Detail,
		ImageURL:  evidenceURL,
		SourceKey: req.RoomKey,
		Timestamp: event.Timestamp,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "reported",
		"id":          event.ID,
		"evidenceUrl": evidenceURL,
	})
}

type newRoomRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DeviceAddr string `json:"deviceAddr"`
	TeacherID  string `json:"teacherId"`
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !s.requireAdmin(w, r) {
			return
		}

		rooms, err := s.svcs.DataSvc.RetrieveRooms()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "error retrieving rooms")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"rooms": rooms,
		})

	case http.MethodPost:
		if !s.requireAdmin(w, r) {
			return
		}

		var req newRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}

		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		id := req.ID
		if id == "" {
			id = uuid.NewString()
		}

		room := model.Room{
			ID:         id,
			Name:       req.Name,
			DeviceAddr: req.DeviceAddr,
			QRPayload:  fmt.Sprintf("ROOM_%s_%s", req.Name, shortID()[:4]),
			TeacherID:  req.TeacherID,
			CreatedAt:  time.Now().Unix(),
		}

		if err := s.svcs.DataSvc.NewRoom(room); err != nil {
			writeError(w, http.StatusBadRequest, "error creating room: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, room)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !s.requireAdmin(w, r) {
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := s.svcs.DataSvc.RetrieveAuditEvents(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error retrieving audit events")
		return
	}

	type auditEntry struct {
		ID          string `json:"id"`
		RoomKey     string `json:"roomKey"`
		Detail      string `json:"detail"`
		EvidenceURL string `json:"evidenceUrl"`
		Timestamp   string `json:"timestamp"`
	}

	entries := make([]auditEntry, 0, len(events))
	for _, event := range events {
		entries = append(entries, auditEntry{
			ID:          event.ID,
			RoomKey:     event.RoomKey,
			Detail:      event.Detail,
			EvidenceURL: event.EvidenceURL,
			Timestamp:   time.Unix(event.Timestamp, 0).UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": entries,
	})
}

// decodeImagePayload accepts both a bare base64 string and a browser
// data URL.
func decodeImagePayload(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("empty image")
	}

	if idx := strings.Index(payload, ","); idx != -1 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}

	image, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}

	if len(image) == 0 {
		return nil, fmt.Errorf("empty image")
	}

	return image, nil
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
