package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/optilist/pkg/protocol"
)

const defaultTracerName = "optilist/remote"

// ClientConfig holds WebSocket client settings.
type ClientConfig struct {
	// DialTimeout bounds the WebSocket handshake.
	DialTimeout time.Duration

	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration

	// ReadTimeout is the longest the client waits for any message,
	// pongs included, before treating the connection as dead.
	ReadTimeout time.Duration

	// HeartbeatInterval is how often the client pings the server.
	HeartbeatInterval time.Duration

	// Header is sent with the handshake request.
	Header http.Header
}

// DefaultClientConfig returns the default client settings.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		DialTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadTimeout:       60 * time.Second,
		HeartbeatInterval: 25 * time.Second,
	}
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientConfig replaces the client settings.
func WithClientConfig(cfg ClientConfig) ClientOption {
	return func(c *Client) { c.config = cfg }
}

// WithPatchHandler sets the function that applies server patches. It runs
// on the document loop.
func WithPatchHandler(fn func([]protocol.Patch)) ClientOption {
	return func(c *Client) { c.onPatches = fn }
}

// WithClientLogger sets the client logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer used for push spans.
func WithTracer(t trace.Tracer) ClientOption {
	return func(c *Client) { c.tracer = t }
}

// Client is a Channel over a WebSocket connection speaking pkg/protocol.
//
// Every push gets a ref. When the server's reply for that ref reports
// success, the releaser is posted to the document loop, after any patches
// that arrived before the reply. Error replies and lost connections never
// release.
type Client struct {
	config    ClientConfig
	conn      *websocket.Conn
	poster    Poster
	onPatches func([]protocol.Patch)
	tracer    trace.Tracer
	logger    *slog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	nextRef  uint64
	inflight map[uint64]*inflight

	closed atomic.Bool
	done   chan struct{}
	errMu  sync.Mutex
	err    error
}

type inflight struct {
	releaser Releaser
	span     trace.Span
	target   string
	event    string
}

// Dial connects to url and starts the client's read and heartbeat loops.
func Dial(ctx context.Context, url string, p Poster, opts ...ClientOption) (*Client, error) {
	c := &Client{
		config:   DefaultClientConfig(),
		poster:   p,
		logger:   slog.Default(),
		inflight: make(map[uint64]*inflight),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(defaultTracerName)
	}
	c.logger = c.logger.With("component", "remote.client", "url", url)

	dialer := websocket.Dialer{HandshakeTimeout: c.config.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, url, c.config.Header)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", url, err)
	}
	c.conn = conn
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})

	go c.readLoop()
	go c.heartbeatLoop()
	c.logger.Info("connected")
	return c, nil
}

// PushEventTo implements Channel.
func (c *Client) PushEventTo(ctx context.Context, target, event string, payload map[string]any, releaser Releaser) error {
	if c.closed.Load() {
		return ErrNotConnected
	}

	_, span := c.tracer.Start(ctx, "remote.push "+event,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("optilist.target", target),
			attribute.String("optilist.event", event),
		),
	)

	c.mu.Lock()
	c.nextRef++
	ref := c.nextRef
	c.inflight[ref] = &inflight{releaser: Once(releaser), span: span, target: target, event: event}
	c.mu.Unlock()
	span.SetAttributes(attribute.Int64("optilist.ref", int64(ref)))

	push := &protocol.Push{Ref: ref, Target: target, Event: event, Payload: StringPayload(payload)}
	if err := c.write(push.Frame()); err != nil {
		c.take(ref)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return err
	}
	c.logger.Debug("push sent", "ref", ref, "target", target, "event", event)
	return nil
}

// Pending returns the number of pushes waiting for a reply.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns the error that ended the connection, if any.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close closes the connection. Pushes still waiting are never released.
func (c *Client) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Client) write(f *protocol.Frame) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *Client) take(ref uint64) *inflight {
	c.mu.Lock()
	defer c.mu.Unlock()
	in := c.inflight[ref]
	delete(c.inflight, ref)
	return in
}

func (c *Client) readLoop() {
	var loopErr error
	defer func() { c.shutdown(loopErr) }()

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) && !c.closed.Load() {
				loopErr = err
				c.logger.Error("read error", "error", err)
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			c.logger.Error("frame decode error", "error", err)
			continue
		}

		switch frame.Type {
		case protocol.FramePatches:
			c.handlePatches(frame.Payload)
		case protocol.FrameReply:
			c.handleReply(frame.Payload)
		case protocol.FrameError:
			em, err := protocol.DecodeErrorMessage(frame.Payload)
			if err != nil {
				c.logger.Error("error frame decode error", "error", err)
				continue
			}
			c.logger.Warn("server error", "code", em.Code, "message", em.Message, "fatal", em.Fatal)
			if em.Fatal {
				loopErr = em
				return
			}
		default:
			c.logger.Warn("unexpected frame type", "type", frame.Type)
		}
	}
}

func (c *Client) handlePatches(payload []byte) {
	patches, err := protocol.DecodePatches(payload)
	if err != nil {
		c.logger.Error("patches decode error", "error", err)
		return
	}
	if c.onPatches == nil || len(patches) == 0 {
		return
	}
	c.poster.Post(func() { c.onPatches(patches) })
}

func (c *Client) handleReply(payload []byte) {
	reply, err := protocol.DecodeReply(payload)
	if err != nil {
		c.logger.Error("reply decode error", "error", err)
		return
	}
	in := c.take(reply.Ref)
	if in == nil {
		c.logger.Warn("reply for unknown ref", "ref", reply.Ref)
		return
	}
	defer in.span.End()

	if !reply.OK() {
		perr := &PushError{Ref: reply.Ref, Target: in.target, Event: in.event, Reason: reply.Reason}
		in.span.RecordError(perr)
		in.span.SetStatus(codes.Error, reply.Reason)
		c.logger.Warn("push rejected", "ref", reply.Ref, "reason", reply.Reason)
		return
	}
	in.span.SetStatus(codes.Ok, "")
	if in.releaser != nil {
		c.poster.Post(func() { in.releaser.Release() })
	}
}

func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Error("ping error", "error", err)
				c.shutdown(err)
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) shutdown(err error) {
	if c.closed.Swap(true) {
		return
	}
	c.errMu.Lock()
	c.err = err
	c.errMu.Unlock()
	close(c.done)

	c.writeMu.Lock()
	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	c.conn.Close()

	c.mu.Lock()
	lost := c.inflight
	c.inflight = make(map[uint64]*inflight)
	c.mu.Unlock()
	for ref, in := range lost {
		in.span.SetStatus(codes.Error, "connection closed")
		in.span.End()
		c.logger.Warn("push lost", "ref", ref, "target", in.target, "event", in.event)
	}
	c.logger.Info("disconnected", "pending_lost", len(lost))
}
