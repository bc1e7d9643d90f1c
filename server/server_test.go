package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/khaledhikmat/cm-go/broker"
	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/relay"
	"github.com/khaledhikmat/cm-go/service/auth"
	"github.com/khaledhikmat/cm-go/service/config"
	"github.com/khaledhikmat/cm-go/service/data"
	"github.com/khaledhikmat/cm-go/service/detect"
	"github.com/khaledhikmat/cm-go/service/device"
	"github.com/khaledhikmat/cm-go/service/storage"
)

// harness mounts a fully wired server on an httptest listener so tests
// exercise the real route table, including websocket upgrades.
type harness struct {
	ts          *httptest.Server
	srv         *Server
	svcs        relay.ServicesFactory
	relays      *relay.Relays
	conns       *broker.Connections
	errorStream chan interface{}
}

func newHarness(t *testing.T, svcs relay.ServicesFactory) *harness {
	t.Helper()

	canxCtx, canxFn := context.WithCancel(context.Background())

	relays := relay.NewRelays(svcs.CfgSvc)
	errorStream := make(chan interface{}, 16)
	statsStream := make(chan interface{}, 16)
	supervisor := relay.NewSupervisor(canxCtx, svcs, relays, errorStream, statsStream)
	conns := broker.NewConnections()
	alertBroker := broker.New(svcs.CfgSvc, conns)

	srv := New(canxCtx, svcs, relays, supervisor, alertBroker, conns, errorStream)
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		canxFn()
		ts.Close()
	})

	return &harness{
		ts:          ts,
		srv:         srv,
		svcs:        svcs,
		relays:      relays,
		conns:       conns,
		errorStream: errorStream,
	}
}

func testServices(rooms ...model.Room) relay.ServicesFactory {
	return relay.ServicesFactory{
		CfgSvc:     config.NewEnv(),
		DataSvc:    data.NewFake(rooms...),
		AuthSvc:    auth.NewFake(),
		DeviceSvc:  device.NewFake(testJPEG(), nil),
		DetectSvc:  detect.NewFake(nil, nil),
		StorageSvc: storage.NewFake(),
	}
}

// authServices swaps in the real credential verifier for tests that
// exercise the auth paths.
func authServices(rooms ...model.Room) relay.ServicesFactory {
	svcs := testServices(rooms...)
	svcs.AuthSvc = auth.NewJWT(svcs.CfgSvc)

	return svcs
}

func testJPEG() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
}

func (h *harness) wsURL(path string) string {
	return "ws" + strings.TrimPrefix(h.ts.URL, "http") + path
}

func (h *harness) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()

	ws, _, err := websocket.DefaultDialer.Dial(h.wsURL(path), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { ws.Close() })

	return ws
}

func (h *harness) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = strings.NewReader(string(encoded))
	}

	req, err := http.NewRequest(method, h.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	return token
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatal(msg)
}
