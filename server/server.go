package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/khaledhikmat/cm-go/broker"
	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/relay"
	"github.com/khaledhikmat/cm-go/service/auth"
	"github.com/khaledhikmat/cm-go/service/lgr"
	"github.com/khaledhikmat/cm-go/service/metrics"
)

const writeWait = 10 * time.Second

type Server struct {
	canxCtx     context.Context
	svcs        relay.ServicesFactory
	relays      *relay.Relays
	supervisor  *relay.Supervisor
	broker      *broker.Broker
	conns       *broker.Connections
	errorStream chan interface{}

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

func New(canxCtx context.Context,
	svcs relay.ServicesFactory,
	relays *relay.Relays,
	supervisor *relay.Supervisor,
	alertBroker *broker.Broker,
	conns *broker.Connections,
	errorStream chan interface{}) *Server {
	s := &Server{
		canxCtx:     canxCtx,
		svcs:        svcs,
		relays:      relays,
		supervisor:  supervisor,
		broker:      alertBroker,
		conns:       conns,
		errorStream: errorStream,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Viewers and kiosks connect from arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	s.httpServer = &http.Server{
		Addr:    svcs.CfgSvc.GetHTTPAddr(),
		Handler: s.Handler(),
	}

	return s
}

// Handler builds the route table. Exposed so tests can mount it on a
// test server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/uploads/", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(s.svcs.CfgSvc.GetUploadsFolder()))))

	mux.HandleFunc("/api/ws/stream/{sourceKey}", s.handleStream)
	mux.HandleFunc("/api/ws/alerts/{identifier}", s.handleAlerts)

	mux.HandleFunc("/api/ingest/frames/{sourceKey}", s.handleIngestFrame)
	mux.HandleFunc("/api/ingest/alerts", s.handleIngestAlert)

	mux.HandleFunc("/api/detect", s.handleDetect)

	mux.HandleFunc("/api/admin/report-violation", s.handleReportViolation)
	mux.HandleFunc("/api/admin/rooms", s.handleRooms)
	mux.HandleFunc("/api/admin/audit", s.handleAudit)

	return s.logRequests(s.cors(mux))
}

func (s *Server) Start() error {
	lgr.Logger.Info(
		"http server starting....",
		slog.String("addr", s.httpServer.Addr),
	)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "classroom monitor relay is running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"relays":      len(s.relays.Keys()),
		"connections": s.conns.Total(),
	})
}

// cors mirrors the permissive policy of the upstream deployment: the
// kiosk and dashboard are served from different origins.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Scrapes and probes would drown everything else out.
		if r.URL.Path == "/metrics" || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		lgr.Logger.Debug(
			"http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", recorder.status),
			slog.Int64("durationMs", time.Since(start).Milliseconds()),
		)
	})
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working behind the recorder.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}

	return h.Hijack()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		lgr.Logger.Error(
			"error encoding response",
			slog.Any("error", err),
		)
	}
}

func writeError(w http.ResponseWriter, status int, messagef string, args ...interface{}) {
	writeJSON(w, status, map[string]string{
		"error": fmt.Sprintf(messagef, args...),
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return r.URL.Query().Get("token")
}

// requireAdmin gates the management endpoints. With auth disabled the
// process trusts its network, which is the dev posture.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !s.svcs.CfgSvc.GetAuthRequired() {
		return true
	}

	identity, err := s.svcs.AuthSvc.Verify(bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return false
	}

	if identity.Role != auth.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin role required")
		return false
	}

	return true
}

// wsAuthorize validates the credential of an already accepted socket.
// A bad credential closes the socket with a policy violation code so the
// client can tell rejection apart from a network failure.
func (s *Server) wsAuthorize(ws *websocket.Conn, token string) (model.Identity, bool) {
	if !s.svcs.CfgSvc.GetAuthRequired() {
		return model.Identity{}, true
	}

	identity, err := s.svcs.AuthSvc.Verify(token)
	if err != nil {
		s.closePolicy(ws, "invalid credentials")
		return model.Identity{}, false
	}

	return identity, true
}

func (s *Server) closePolicy(ws *websocket.Conn, reason string) {
	deadline := time.Now().Add(writeWait)
	ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	ws.Close()
}
