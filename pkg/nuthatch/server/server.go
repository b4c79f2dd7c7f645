// Package server implements the connection dispatcher (C7): it accepts TCP
// connections on an IPv4 listener tuned with SO_REUSEADDR and hands each
// one to the HTTP request handler (C4), either inline (the --no-fork
// semantics) or on its own goroutine — the goroutine-per-connection
// replacement for the original's fork-per-connection model described in
// SPEC_FULL.md §4.7.
//
// Grounded on pkg/shockwave/server/server.go's Config/Stats/BaseServer
// shapes (connection tracking map, atomic counters, graceful Shutdown),
// trimmed of everything that assumed a keep-alive, TLS-capable, interface
// based HTTP server this repository doesn't build (LegacyHandler, TLS
// config, per-request allocation-mode knobs).
package server

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tommika/nuthatch/pkg/nuthatch/http1"
	"github.com/tommika/nuthatch/pkg/nuthatch/sandbox"
	"github.com/tommika/nuthatch/pkg/nuthatch/socket"
	"github.com/tommika/nuthatch/pkg/nuthatch/websocket"
)

// Config configures a Server.
type Config struct {
	Addr   string        // "ip:port" to listen on
	Root   *sandbox.Root // immutable static-files root
	Log    *slog.Logger
	NoFork bool           // serve connections synchronously on the accept loop
	Socket *socket.Config // listener/connection tuning; nil uses socket.DefaultConfig()

	// ShutdownGrace bounds how long Serve waits for in-flight connections
	// to finish after the context is canceled before force-closing them.
	ShutdownGrace time.Duration
}

// Stats are atomic, process-wide counters exposed for diagnostics and
// tests — a connection-level generalization of the per-session
// ping/pong/ping-sent counters in SPEC_FULL.md §3.
type Stats struct {
	Accepted   atomic.Uint64
	Active     atomic.Int64
	Requests   atomic.Uint64
	WSMessages atomic.Uint64
}

// Snapshot is a point-in-time copy of Stats, safe to log or compare in
// tests.
type Snapshot struct {
	Accepted   uint64
	Active     int64
	Requests   uint64
	WSMessages uint64
}

// Snapshot reads all counters atomically (each individually; this is not a
// consistent multi-field transaction, which is acceptable for diagnostics).
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Accepted:   s.Accepted.Load(),
		Active:     s.Active.Load(),
		Requests:   s.Requests.Load(),
		WSMessages: s.WSMessages.Load(),
	}
}

// Server owns the listener and the set of in-flight connections.
type Server struct {
	cfg     Config
	stats   Stats
	handler *http1.Handler

	mu    sync.Mutex
	ln    net.Listener
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// New constructs a Server bound to cfg. The listener is not opened until
// Serve is called.
func New(cfg Config) *Server {
	if cfg.Socket == nil {
		cfg.Socket = socket.DefaultConfig()
	}
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = 5 * time.Second
	}
	s := &Server{cfg: cfg, conns: make(map[net.Conn]struct{})}
	s.handler = &http1.Handler{
		Root: cfg.Root,
		Log:  cfg.Log,
		Echo: func(websocket.Outcome, []byte) { s.stats.WSMessages.Add(1) },
	}
	return s
}

// Stats returns the server's live counters.
func (s *Server) Stats() *Stats { return &s.stats }

// Addr returns the listener's bound address, or nil before Serve has
// opened it. Useful when cfg.Addr asks for an ephemeral port ("127.0.0.1:0").
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve opens the listener at cfg.Addr, applies socket tuning, and accepts
// connections until ctx is canceled. On cancellation it closes the
// listener, waits up to cfg.ShutdownGrace for in-flight connections to
// finish on their own, then force-closes any still open.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp4", s.cfg.Addr)
	if err != nil {
		return err
	}
	if err := socket.ApplyListener(ln, s.cfg.Socket); err != nil && s.cfg.Log != nil {
		s.cfg.Log.Debug("listener tuning failed", "err", err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	if s.cfg.Log != nil {
		s.cfg.Log.Info("listening", "addr", ln.Addr().String(), "root", s.cfg.Root.Path(), "no_fork", s.cfg.NoFork)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	acceptErr := s.acceptLoop(ctx, ln)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownGrace):
		s.closeAllConnections()
	}

	if ctx.Err() != nil {
		return nil
	}
	return acceptErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if s.cfg.Log != nil {
				s.cfg.Log.Debug("accept error", "err", err)
			}
			continue
		}

		if err := socket.Apply(conn, s.cfg.Socket); err != nil && s.cfg.Log != nil {
			s.cfg.Log.Debug("connection tuning failed", "err", err)
		}

		s.stats.Accepted.Add(1)
		s.stats.Active.Add(1)
		s.trackConn(conn)

		if s.cfg.NoFork {
			s.serveOne(conn)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveOne(conn)
		}()
	}
}

// serveOne is the per-connection worker: sole owner of conn's socket and
// state for the connection's lifetime, the goroutine analogue of the
// original's forked child process.
func (s *Server) serveOne(conn net.Conn) {
	defer s.untrackConn(conn)
	defer s.stats.Active.Add(-1)
	s.stats.Requests.Add(1)
	s.handler.ServeConn(conn)
}

func (s *Server) trackConn(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) closeAllConnections() {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}
