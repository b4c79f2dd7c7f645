//go:build linux

package socket

import (
	"io"
	"net"
	"os"
	"syscall"
)

// SendFileAll writes the entirety of file to conn using the sendfile(2)
// syscall when conn is a *net.TCPConn, avoiding a userspace copy of the
// file's bytes. Falls back to io.Copy for non-TCP connections or if
// sendfile fails before writing anything.
//
// Grounded on pkg/shockwave/socket/sendfile_linux.go, trimmed to the
// whole-file case this server's GET handler needs (no Range-request
// support is in scope).
func SendFileAll(conn net.Conn, file *os.File) (int64, error) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return io.Copy(conn, file)
	}
	stat, err := file.Stat()
	if err != nil {
		return 0, err
	}
	size := stat.Size()

	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return io.Copy(conn, file)
	}

	srcFd := int(file.Fd())
	var written int64
	var sendfileErr error

	ctrlErr := rawConn.Write(func(dstFd uintptr) bool {
		offset := int64(0)
		remaining := size
		for remaining > 0 {
			chunk := remaining
			if chunk > 1<<30 {
				chunk = 1 << 30
			}
			n, err := syscall.Sendfile(int(dstFd), srcFd, &offset, int(chunk))
			if err != nil {
				if err == syscall.EAGAIN || err == syscall.EINTR {
					continue
				}
				sendfileErr = err
				return false
			}
			if n == 0 {
				break
			}
			written += int64(n)
			remaining -= int64(n)
		}
		return true
	})

	if ctrlErr != nil {
		return io.Copy(conn, file)
	}
	if sendfileErr != nil {
		if written > 0 {
			if _, err := file.Seek(written, io.SeekStart); err != nil {
				return written, err
			}
			n, err := io.Copy(conn, file)
			return written + n, err
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return 0, err
		}
		return io.Copy(conn, file)
	}
	return written, nil
}
