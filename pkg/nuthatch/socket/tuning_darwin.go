//go:build darwin

package socket

import "syscall"

const tcpFastOpenDarwin = 0x105

func applyPlatformOptions(fd int, cfg *Config) {
	// No-op: QuickAck has no Darwin equivalent.
}

func applyListenerOptions(fd int, cfg *Config) error {
	if cfg.FastOpen {
		return syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpFastOpenDarwin, 256)
	}
	return nil
}
