package http1

import (
	"io"
)

// ReadLine reads one CRLF-terminated line from r into buf, one byte at a
// time, remembering the previous byte and stopping on the pair
// (CR, LF). It returns the line length excluding the terminator.
//
// Grounded on original_source/src/io.c:io_read_line_crlf: the line-by-line,
// single-byte-read discipline is preserved verbatim (it is what keeps
// header parsing memory-flat against unbounded input), but the NUL
// terminator and errno-based signaling are replaced with Go's slice-length
// and error-return idioms.
//
// ErrLineTooLong is returned if len(buf) bytes are filled without seeing
// the terminator. io.ErrUnexpectedEOF is returned if the stream ends before
// CRLF is seen. A single trailing read error (other than io.EOF) is
// returned unwrapped.
func ReadLine(r io.Reader, buf []byte) (int, error) {
	var one [1]byte
	n := 0
	var prev byte
	for {
		if n >= len(buf) {
			return 0, ErrLineTooLong
		}
		cb, err := r.Read(one[:])
		if cb == 1 {
			cur := one[0]
			if prev == '\r' && cur == '\n' {
				return n - 1, nil
			}
			buf[n] = cur
			n++
			prev = cur
			continue
		}
		if err == io.EOF {
			return 0, io.ErrUnexpectedEOF
		}
		if err != nil {
			return 0, err
		}
	}
}
