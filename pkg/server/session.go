package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/optilist/pkg/protocol"
)

// Session is one WebSocket connection.
type Session struct {
	ID         string
	RemoteAddr string
	CreatedAt  time.Time

	conn   *websocket.Conn
	mu     sync.Mutex // Protects conn writes
	closed atomic.Bool
	done   chan struct{}

	// ctx is canceled when the session closes.
	ctx    context.Context
	cancel context.CancelFunc

	dispatch func(*Ctx) error
	config   *Config
	logger   *slog.Logger

	pushCount   atomic.Uint64
	failedCount atomic.Uint64
	patchCount  atomic.Uint64
}

// generateSessionID generates a random session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

func newSession(conn *websocket.Conn, remoteAddr string, dispatch func(*Ctx) error, config *Config, logger *slog.Logger) *Session {
	id := generateSessionID()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:         id,
		RemoteAddr: remoteAddr,
		CreatedAt:  time.Now(),
		conn:       conn,
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		dispatch:   dispatch,
		config:     config,
		logger:     logger.With("session_id", id),
	}
}

// Start runs the session loops. It returns when the session closes.
func (s *Session) Start() {
	go s.WriteLoop()
	s.ReadLoop()
}

// handlePush runs the handler for push and writes its result: patches
// first, then the reply.
func (s *Session) handlePush(push *protocol.Push) {
	s.pushCount.Add(1)
	ctx := NewCtx(s.ctx, s, push)
	err := s.dispatch(ctx)

	if err != nil {
		s.failedCount.Add(1)
		s.logger.Warn("push failed", "ref", push.Ref, "target", push.Target, "event", push.Event, "error", err)
		s.write((&protocol.Reply{Ref: push.Ref, Status: protocol.ReplyError, Reason: err.Error()}).Frame())
		return
	}

	if patches := ctx.Patches(); len(patches) > 0 {
		if err := s.write(protocol.EncodePatches(patches)); err != nil {
			return
		}
		s.patchCount.Add(uint64(len(patches)))
	}
	s.write((&protocol.Reply{Ref: push.Ref, Status: protocol.ReplyOK}).Frame())
	s.logger.Debug("push handled", "ref", push.Ref, "event", push.Event, "patches", ctx.PatchCount())
}

// write sends one frame.
func (s *Session) write(f *protocol.Frame) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.conn == nil {
		return ErrNoConnection
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		s.logger.Error("write error", "error", err)
		return NewSessionError(s.ID, "write", err)
	}
	return nil
}

// sendError sends a connection-level error frame.
func (s *Session) sendError(code protocol.ErrorCode, message string) {
	s.write(protocol.NewError(code, message).Frame())
}

// sendPing sends a heartbeat ping.
func (s *Session) sendPing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.conn == nil {
		return ErrNoConnection
	}
	err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteTimeout))
	if err != nil {
		s.logger.Error("ping error", "error", err)
	}
	return err
}

// Close closes the session. It is safe to call more than once.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)
	s.cancel()

	s.mu.Lock()
	if s.conn != nil {
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.conn.Close()
	}
	s.mu.Unlock()

	s.logger.Info("session closed",
		"pushes", s.pushCount.Load(),
		"failed", s.failedCount.Load(),
		"patches", s.patchCount.Load())
}

// IsClosed reports whether the session is closed.
func (s *Session) IsClosed() bool { return s.closed.Load() }

// Done returns a channel that is closed when the session closes.
func (s *Session) Done() <-chan struct{} { return s.done }

// SessionStats is a snapshot of session counters.
type SessionStats struct {
	ID       string
	Pushes   uint64
	Failed   uint64
	Patches  uint64
	Uptime   time.Duration
	IsClosed bool
}

// Stats returns the session counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		ID:       s.ID,
		Pushes:   s.pushCount.Load(),
		Failed:   s.failedCount.Load(),
		Patches:  s.patchCount.Load(),
		Uptime:   time.Since(s.CreatedAt),
		IsClosed: s.closed.Load(),
	}
}
