//go:build !linux

package socket

import (
	"io"
	"net"
	"os"
)

// SendFileAll writes the entirety of file to conn. On platforms without a
// wired zero-copy path this is a plain io.Copy.
func SendFileAll(conn net.Conn, file *os.File) (int64, error) {
	return io.Copy(conn, file)
}
