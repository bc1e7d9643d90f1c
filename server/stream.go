package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/service/lgr"
)

type streamMessage struct {
	Type        string             `json:"type"`
	SourceKey   string             `json:"sourceKey"`
	Image       []byte             `json:"image,omitempty"`
	Predictions []model.Prediction `json:"predictions,omitempty"`
}

// handleStream serves one viewer. The connection subscribes to the
// source's relay, arms its puller and forwards frames until the socket
// dies or the process shuts down. Quiet stretches are bridged with
// keepalive messages so intermediaries do not reap the connection.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sourceKey := r.PathValue("sourceKey")

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		lgr.Logger.Error(
			"stream upgrade failed",
			slog.String("sourceKey", sourceKey),
			slog.Any("error", err),
		)
		return
	}
	defer ws.Close()

	identity, ok := s.wsAuthorize(ws, r.URL.Query().Get("token"))
	if !ok {
		lgr.Logger.Info(
			"stream viewer rejected",
			slog.String("sourceKey", sourceKey),
		)
		return
	}

	// A session credential is pinned to its room.
	if s.svcs.CfgSvc.GetAuthRequired() && identity.RoomKey != "" && identity.RoomKey != sourceKey {
		s.closePolicy(ws, "credential is for another room")
		lgr.Logger.Info(
			"stream viewer rejected for room mismatch",
			slog.String("sourceKey", sourceKey),
			slog.String("credentialRoom", identity.RoomKey),
		)
		return
	}

	lgr.Logger.Info(
		"stream viewer connected",
		slog.String("sourceKey", sourceKey),
		slog.String("subject", identity.Subject),
	)

	ctx, cancel := context.WithCancel(s.canxCtx)
	defer cancel()

	// Drain inbound traffic. Viewers send nothing meaningful; the read
	// failing is how we learn the peer went away.
	go func() {
		ws.SetReadLimit(512)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	rel := s.relays.Get(sourceKey)
	sub := rel.Subscribe()
	defer rel.Unsubscribe(sub)

	s.supervisor.EnsureRunning(sourceKey)

	// The cached frame goes out first so the viewer is not staring at a
	// blank screen until the next poll lands.
	if frame, ok := rel.LastFrame(); ok {
		if err := s.writeStream(ws, frameMessage(sourceKey, frame)); err != nil {
			return
		}
	}

	receiveTimeout := time.Duration(s.svcs.CfgSvc.GetStreamReceiveTimeout()) * time.Millisecond

	for {
		frame, received, err := sub.Next(ctx, receiveTimeout)
		if err != nil {
			lgr.Logger.Info(
				"stream viewer disconnected",
				slog.String("sourceKey", sourceKey),
			)
			return
		}

		msg := streamMessage{Type: "keepalive", SourceKey: sourceKey}
		if received {
			msg = frameMessage(sourceKey, frame)
		}

		if err := s.writeStream(ws, msg); err != nil {
			lgr.Logger.Info(
				"stream viewer write failed",
				slog.String("sourceKey", sourceKey),
				slog.Any("error", err),
			)
			return
		}
	}
}

func frameMessage(sourceKey string, frame model.Frame) streamMessage {
	return streamMessage{
		Type:        "frame",
		SourceKey:   sourceKey,
		Image:       frame.Image,
		Predictions: frame.Predictions,
	}
}

func (s *Server) writeStream(ws *websocket.Conn, msg streamMessage) error {
	ws.SetWriteDeadline(time.Now().Add(writeWait))

	return ws.WriteJSON(msg)
}
