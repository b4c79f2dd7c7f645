// Package socket applies ambient TCP tuning to the listening and accepted
// sockets: SO_REUSEADDR (required by SPEC_FULL.md §4.7), keepalive, and a
// handful of optional Linux/Darwin-specific knobs exposed as opt-in Config
// fields (the CLI does not set them). Grounded on pkg/shockwave/socket/tuning*.go, trimmed of the
// teacher's unused preset configs (HighThroughputConfig, LowLatencyConfig)
// and TCP_INFO introspection (GetTCPInfo/SocketInfo) — nothing in this
// server's scope calls them (see DESIGN.md).
package socket

import (
	"net"
	"syscall"
)

// Config controls which optional tuning knobs Apply/ApplyListener set.
// Zero value means "system defaults" for every optional knob; KeepAlive
// defaults true via DefaultConfig since this server's connections are
// otherwise unbounded in lifetime once a WebSocket session is open.
type Config struct {
	// QuickAck enables TCP_QUICKACK on Linux (no-op elsewhere).
	QuickAck bool
	// DeferAccept enables TCP_DEFER_ACCEPT on Linux (no-op elsewhere).
	DeferAccept bool
	// FastOpen enables TCP_FASTOPEN on the listener (Linux/Darwin).
	FastOpen bool
	// KeepAlive enables SO_KEEPALIVE on accepted connections.
	KeepAlive bool
}

// DefaultConfig returns conservative tuning: keepalive on, the
// Linux-specific latency knobs off (they require root or specific kernel
// support on some hosts, so this server only enables them when asked).
func DefaultConfig() *Config {
	return &Config{KeepAlive: true}
}

// Apply tunes an accepted connection. Failures to set non-essential
// options are swallowed (best-effort); conn is left usable either way.
func Apply(conn net.Conn, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return err
	}
	return rawConn.Control(func(fd uintptr) {
		_ = syscall.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1)
		if cfg.KeepAlive {
			_ = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_KEEPALIVE, 1)
		}
		applyPlatformOptions(int(fd), cfg)
	})
}

// ApplyListener tunes the listening socket: SO_REUSEADDR unconditionally
// (SPEC_FULL.md §4.7) plus any enabled platform-specific accept-path
// options.
func ApplyListener(listener net.Listener, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	tcpListener, ok := listener.(*net.TCPListener)
	if !ok {
		return nil
	}
	file, err := tcpListener.File()
	if err != nil {
		return err
	}
	defer file.Close()

	fd := int(file.Fd())
	_ = syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
	return applyListenerOptions(fd, cfg)
}
