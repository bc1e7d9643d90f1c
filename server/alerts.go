package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/khaledhikmat/cm-go/broker"
	"github.com/khaledhikmat/cm-go/service/auth"
	"github.com/khaledhikmat/cm-go/service/lgr"
)

// handleAlerts registers one alert listener under its identifier and
// parks on the socket until it closes. Alert delivery itself happens on
// the broker's callers; this handler only manages membership.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	identifier := r.PathValue("identifier")

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		lgr.Logger.Error(
			"alerts upgrade failed",
			slog.String("identifier", identifier),
			slog.Any("error", err),
		)
		return
	}
	defer ws.Close()

	identity, ok := s.wsAuthorize(ws, r.URL.Query().Get("token"))
	if !ok {
		lgr.Logger.Info(
			"alert listener rejected",
			slog.String("identifier", identifier),
		)
		return
	}

	// Only admins may listen on someone else's identifier.
	if s.svcs.CfgSvc.GetAuthRequired() && identity.Role != auth.RoleAdmin && identity.Subject != identifier {
		s.closePolicy(ws, "credential is for another identifier")
		lgr.Logger.Info(
			"alert listener rejected for identifier mismatch",
			slog.String("identifier", identifier),
			slog.String("subject", identity.Subject),
		)
		return
	}

	conn := broker.NewConn(ws)
	s.conns.Register(identifier, conn)
	defer s.conns.Unregister(identifier, conn)

	lgr.Logger.Info(
		"alert listener connected",
		slog.String("identifier", identifier),
		slog.String("connID", conn.ID),
	)

	// Shutting down closes the socket, which unblocks the read loop.
	ctx, cancel := context.WithCancel(s.canxCtx)
	defer cancel()
	go func() {
		<-ctx.Done()
		ws.Close()
	}()

	ws.SetReadLimit(512)
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	lgr.Logger.Info(
		"alert listener disconnected",
		slog.String("identifier", identifier),
		slog.String("connID", conn.ID),
	)
}
