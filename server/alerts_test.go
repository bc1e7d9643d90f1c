package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/service/auth"
)

func readAlert(t *testing.T, ws *websocket.Conn) model.Alert {
	t.Helper()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	var alert model.Alert
	if err := ws.ReadJSON(&alert); err != nil {
		t.Fatalf("read alert: %v", err)
	}

	return alert
}

func TestAlertListenersReceiveCopies(t *testing.T) {
	t.Setenv("MIRROR_IDENTIFIER", "admin")

	h := newHarness(t, testServices())

	// Two devices for the same teacher plus the mirror.
	teacherA := h.dial(t, "/api/ws/alerts/teacher-1")
	teacherB := h.dial(t, "/api/ws/alerts/teacher-1")
	mirror := h.dial(t, "/api/ws/alerts/admin")

	waitFor(t, 2*time.Second, func() bool {
		return h.conns.Count("teacher-1") == 2 && h.conns.Count("admin") == 1
	}, "alert listeners were not registered")

	resp := h.request(t, http.MethodPost, "/api/ingest/alerts", "", map[string]interface{}{
		"target":    "teacher-1",
		"message":   "phone out",
		"sourceKey": "room-1",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	var ack struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}
	decodeBody(t, resp, &ack)
	if ack.ID == "" {
		t.Fatal("expected an alert id in the ack")
	}

	for _, ws := range []*websocket.Conn{teacherA, teacherB, mirror} {
		alert := readAlert(t, ws)
		if alert.Message != "phone out" {
			t.Errorf("expected message 'phone out', got %q", alert.Message)
		}
		if alert.ID != ack.ID {
			t.Errorf("expected alert id %s, got %s", ack.ID, alert.ID)
		}
		if alert.SourceKey != "room-1" {
			t.Errorf("expected source key room-1, got %s", alert.SourceKey)
		}
	}
}

func TestAlertListenerUnregistersOnClose(t *testing.T) {
	h := newHarness(t, testServices())

	ws := h.dial(t, "/api/ws/alerts/teacher-1")
	waitFor(t, 2*time.Second, func() bool {
		return h.conns.Count("teacher-1") == 1
	}, "alert listener was not registered")

	ws.Close()

	waitFor(t, 2*time.Second, func() bool {
		return h.conns.Count("teacher-1") == 0
	}, "alert listener was not unregistered after close")
}

func TestIngestAlertValidation(t *testing.T) {
	h := newHarness(t, testServices())

	resp := h.request(t, http.MethodPost, "/api/ingest/alerts", "", map[string]interface{}{
		"message": "phone out",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without a target, got %d", resp.StatusCode)
	}

	resp = h.request(t, http.MethodPost, "/api/ingest/alerts", "", map[string]interface{}{
		"target": "teacher-1",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without a message, got %d", resp.StatusCode)
	}
}

func TestIngestAlertOfflineTarget(t *testing.T) {
	h := newHarness(t, testServices())

	// Nobody is listening; the alert is still accepted.
	resp := h.request(t, http.MethodPost, "/api/ingest/alerts", "", map[string]interface{}{
		"target":  "ghost",
		"message": "phone out",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	var ack struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}
	decodeBody(t, resp, &ack)
	if ack.Status != "accepted" || ack.ID == "" {
		t.Errorf("unexpected ack: %+v", ack)
	}
}

func TestAlertListenerRejectsMismatchedIdentifier(t *testing.T) {
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("JWT_SECRET", "test-secret")

	h := newHarness(t, authServices())

	// A teacher may not listen on another teacher's identifier.
	token := signToken(t, "test-secret", jwt.MapClaims{
		"sub":  "teacher-1",
		"role": auth.RoleTeacher,
	})

	ws, _, err := websocket.DefaultDialer.Dial(h.wsURL("/api/ws/alerts/teacher-2?token="+token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = ws.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected a policy violation close, got %v", err)
	}
}

func TestAlertListenerAdminMayListenAnywhere(t *testing.T) {
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("JWT_SECRET", "test-secret")

	h := newHarness(t, authServices())

	token := signToken(t, "test-secret", jwt.MapClaims{
		"sub":  "principal",
		"role": auth.RoleAdmin,
	})

	h.dial(t, "/api/ws/alerts/teacher-2?token="+token)

	waitFor(t, 2*time.Second, func() bool {
		return h.conns.Count("teacher-2") == 1
	}, "admin listener was not registered")
}
