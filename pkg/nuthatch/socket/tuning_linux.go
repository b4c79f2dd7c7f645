//go:build linux

package socket

import "syscall"

// Linux TCP socket option numbers not always exported by the syscall
// package on older Go toolchains.
const (
	tcpQuickAck    = 12
	tcpDeferAccept = 9
	tcpFastOpen    = 23
)

func applyPlatformOptions(fd int, cfg *Config) {
	if cfg.QuickAck {
		_ = syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpQuickAck, 1)
	}
}

func applyListenerOptions(fd int, cfg *Config) error {
	var lastErr error
	if cfg.DeferAccept {
		if err := syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpDeferAccept, 5); err != nil {
			lastErr = err
		}
	}
	if cfg.FastOpen {
		if err := syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpFastOpen, 256); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
