package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/optilist/internal/store"
	"github.com/vango-dev/optilist/pkg/protocol"
)

func startServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(store.NewMemoryStore(), opts...)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, f *protocol.Frame) {
	t.Helper()
	data, err := f.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		t.Fatal(err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) *protocol.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	f, err := protocol.DecodeFrame(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return f
}

func recvReply(t *testing.T, conn *websocket.Conn) *protocol.Reply {
	t.Helper()
	f := recv(t, conn)
	if f.Type != protocol.FrameReply {
		t.Fatalf("frame type = %v, want reply", f.Type)
	}
	r, err := protocol.DecodeReply(f.Payload)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestCreatePatchesBeforeReply(t *testing.T) {
	_, ts := startServer(t)
	conn := dial(t, ts)

	send(t, conn, (&protocol.Push{
		Ref: 1, Target: "lists/groceries", Event: EventCreate,
		Payload: map[string]string{"title": "Buy milk"},
	}).Frame())

	f := recv(t, conn)
	if f.Type != protocol.FramePatches {
		t.Fatalf("first frame = %v, want patches", f.Type)
	}
	patches, err := protocol.DecodePatches(f.Payload)
	if err != nil {
		t.Fatal(err)
	}
	want := protocol.Patch{Op: protocol.PatchInsert, Container: "groceries", ID: "item-1", Text: "Buy milk"}
	if len(patches) != 1 || patches[0] != want {
		t.Errorf("patches = %+v", patches)
	}

	reply := recvReply(t, conn)
	if reply.Ref != 1 || !reply.OK() {
		t.Errorf("reply = %+v", reply)
	}
}

func TestPushErrors(t *testing.T) {
	srv, ts := startServer(t)
	srv.Handle("explode", func(*Ctx) error { panic("boom") })
	conn := dial(t, ts)

	tests := []struct {
		name   string
		push   *protocol.Push
		reason string
	}{
		{"empty title", &protocol.Push{Ref: 1, Target: "l", Event: EventCreate, Payload: map[string]string{"title": " "}}, "empty title"},
		{"missing title", &protocol.Push{Ref: 2, Target: "l", Event: EventCreate}, "missing parameter"},
		{"unknown event", &protocol.Push{Ref: 3, Target: "l", Event: "rename"}, "handler not found"},
		{"panic", &protocol.Push{Ref: 4, Target: "l", Event: "explode"}, "handler panic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, tt.push.Frame())
			reply := recvReply(t, conn)
			if reply.Ref != tt.push.Ref || reply.OK() {
				t.Errorf("reply = %+v", reply)
			}
			if !strings.Contains(reply.Reason, tt.reason) {
				t.Errorf("reason = %q, want it to contain %q", reply.Reason, tt.reason)
			}
		})
	}
}

func TestInvalidFrame(t *testing.T) {
	_, ts := startServer(t)
	conn := dial(t, ts)

	conn.WriteMessage(websocket.BinaryMessage, []byte{0xff, 0, 0, 0})
	f := recv(t, conn)
	if f.Type != protocol.FrameError {
		t.Fatalf("frame = %v, want error", f.Type)
	}
	em, err := protocol.DecodeErrorMessage(f.Payload)
	if err != nil || em.Code != protocol.ErrInvalidFrame || em.Fatal {
		t.Errorf("error message = %+v, %v", em, err)
	}

	send(t, conn, protocol.NewFrame(protocol.FramePush, []byte{0x01}))
	f = recv(t, conn)
	em, _ = protocol.DecodeErrorMessage(f.Payload)
	if f.Type != protocol.FrameError || em.Code != protocol.ErrInvalidPush {
		t.Errorf("frame = %v %+v, want invalid push", f.Type, em)
	}
}

func TestHTTPRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"}))
	srv, ts := startServer(t, WithMetrics(reg))

	ctx := NewCtx(context.Background(), nil, &protocol.Push{
		Target: "lists/groceries", Event: EventCreate, Payload: map[string]string{"title": "Eggs"},
	})
	if err := srv.Dispatch(ctx); err != nil {
		t.Fatal(err)
	}

	get := func(path string) (int, string) {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	code, body := get("/healthz")
	if code != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		t.Errorf("/healthz = %d %s", code, body)
	}

	code, body = get("/api/lists/groceries/items")
	var got struct {
		List  string       `json:"list"`
		Items []store.Item `json:"items"`
	}
	if err := json.Unmarshal([]byte(body), &got); err != nil || code != http.StatusOK {
		t.Fatalf("items = %d %s (%v)", code, body, err)
	}
	if got.List != "groceries" || len(got.Items) != 1 || got.Items[0].Title != "Eggs" {
		t.Errorf("items = %+v", got)
	}

	code, body = get("/metrics")
	if code != http.StatusOK || !strings.Contains(body, "test_total") {
		t.Errorf("/metrics = %d", code)
	}
}

func TestMetricsRouteDisabled(t *testing.T) {
	_, ts := startServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestMaxSessions(t *testing.T) {
	srv, ts := startServer(t, WithConfig(&Config{MaxSessions: 1}))
	dial(t, ts)

	deadline := time.Now().Add(5 * time.Second)
	for srv.SessionCount() < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second connection accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("response = %v", resp)
	}
}

func TestMaxSessionsConcurrent(t *testing.T) {
	srv, ts := startServer(t, WithConfig(&Config{MaxSessions: 2}))
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live"

	const n = 8
	results := make(chan int, n)
	for i := 0; i < n; i++ {
		go func() {
			conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				code := 0
				if resp != nil {
					code = resp.StatusCode
				}
				results <- code
				return
			}
			t.Cleanup(func() { conn.Close() })
			results <- http.StatusSwitchingProtocols
		}()
	}

	accepted, rejected := 0, 0
	for i := 0; i < n; i++ {
		switch code := <-results; code {
		case http.StatusSwitchingProtocols:
			accepted++
		case http.StatusServiceUnavailable:
			rejected++
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	if accepted != 2 || rejected != n-2 {
		t.Errorf("accepted = %d, rejected = %d", accepted, rejected)
	}
	if got := srv.SessionCount(); got > 2 {
		t.Errorf("SessionCount() = %d, over the limit", got)
	}
}

func TestReserveCountsPendingUpgrades(t *testing.T) {
	srv := New(store.NewMemoryStore(), WithConfig(&Config{MaxSessions: 2}))
	if !srv.reserve() || !srv.reserve() {
		t.Fatal("first two reservations should succeed")
	}
	if srv.reserve() {
		t.Error("third reservation should fail while two upgrades are in flight")
	}
}

func TestInvalidConfigRefusesToServe(t *testing.T) {
	srv := New(store.NewMemoryStore(), WithConfig(&Config{MaxSessions: -1}))

	if err := srv.Run(context.Background()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Run() = %v, want ErrInvalidConfig", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Serve(context.Background(), ln); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Serve() = %v, want ErrInvalidConfig", err)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

type observer struct{ opened, closed chan *Session }

func (o *observer) SessionOpened(s *Session) { o.opened <- s }
func (o *observer) SessionClosed(s *Session) { o.closed <- s }

func TestSessionObserverAndShutdown(t *testing.T) {
	obs := &observer{opened: make(chan *Session, 1), closed: make(chan *Session, 1)}
	srv := New(store.NewMemoryStore(), WithSessionObserver(obs))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/live", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	var sess *Session
	select {
	case sess = <-obs.opened:
	case <-time.After(5 * time.Second):
		t.Fatal("SessionOpened not called")
	}
	if stats := srv.Sessions(); len(stats) != 1 || stats[0].ID != sess.ID {
		t.Errorf("Sessions() = %+v", stats)
	}

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return")
	}
	select {
	case closed := <-obs.closed:
		if closed != sess || !closed.IsClosed() {
			t.Error("wrong session closed")
		}
	default:
		t.Error("SessionClosed not called before Serve returned")
	}
}

func TestCtx(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"lists/groceries", "groceries"},
		{"groceries", "groceries"},
		{"", ""},
	}
	for _, tt := range tests {
		ctx := NewCtx(nil, nil, &protocol.Push{Target: tt.target})
		if got := ctx.List(); got != tt.want {
			t.Errorf("List(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}

	ctx := NewCtx(nil, nil, nil)
	if ctx.StdContext() == nil || ctx.Push() == nil {
		t.Error("nil arguments should get defaults")
	}
	ctx.SetValue("k", 1)
	if ctx.Value("k") != 1 {
		t.Error("Value() lost")
	}
	ctx.Emit(protocol.Patch{ID: "a"}, protocol.Patch{ID: "b"})
	if ctx.PatchCount() != 2 {
		t.Errorf("PatchCount() = %d", ctx.PatchCount())
	}
}

func TestConfig(t *testing.T) {
	c := (&Config{Address: ":9999"}).withDefaults()
	if c.Address != ":9999" || c.ReadTimeout != 60*time.Second || c.MetricsPath != "/metrics" {
		t.Errorf("withDefaults() = %+v", c)
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	bad := DefaultConfig()
	bad.MaxSessions = -1
	bad.HeartbeatInterval = time.Minute
	if err := bad.Validate(); err == nil || !strings.Contains(err.Error(), "MaxSessions") || !strings.Contains(err.Error(), "HeartbeatInterval") {
		t.Errorf("Validate() = %v", err)
	}

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://example.com", true},
		{"https://example.com", true},
		{"https://evil.test", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "http://example.com/live", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := sameOrigin(r); got != tt.want {
			t.Errorf("sameOrigin(%q) = %v", tt.origin, got)
		}
	}
}

func TestSessionError(t *testing.T) {
	err := NewSessionError("abc", "write", ErrNoConnection)
	if !errors.Is(err, ErrNoConnection) {
		t.Error("SessionError should unwrap")
	}
	if err.Error() != "server: session abc: write: server: no connection" {
		t.Errorf("Error() = %q", err.Error())
	}
	if got := NewSessionError("", "dial", io.EOF).Error(); got != "server: dial: EOF" {
		t.Errorf("Error() = %q", got)
	}
}
