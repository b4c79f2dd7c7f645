package http1

import (
	"bytes"
	"fmt"
	"io"
)

// MaxRequestLineSize bounds the request-line buffer, per SPEC_FULL.md §4.4
// ("Read request-line via C1 into an 8192-byte buffer").
const MaxRequestLineSize = 8192

// Request is one parsed HTTP request: the request line, headers, and the
// declared Content-Length. ParseRequest leaves Body nil; a body is read by
// the handler directly off the connection.
type Request struct {
	Method      Method
	RawMethod   string
	URI         string
	ProtoMajor  int
	ProtoMinor  int
	Header      Header
	Body        io.Reader
	ContentLen  int64
	HasBody     bool
}

// ReadRequestLine reads and splits the request line "METHOD URI VERSION"
// from r, using a scratch buffer of MaxRequestLineSize bytes.
func ReadRequestLine(r io.Reader) (method Method, rawMethod, uri string, major, minor int, err error) {
	buf := make([]byte, MaxRequestLineSize)
	n, err := ReadLine(r, buf)
	if err != nil {
		return 0, "", "", 0, 0, err
	}
	line := buf[:n]

	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		return 0, "", "", 0, 0, ErrInvalidRequestLine
	}
	major, minor, err = parseVersion(parts[2])
	if err != nil {
		return 0, "", "", 0, 0, ErrInvalidRequestLine
	}
	rawMethod = string(parts[0])
	method = ParseMethod(parts[0])
	uri = string(parts[1])
	if uri == "" {
		return 0, "", "", 0, 0, ErrInvalidRequestLine
	}
	return method, rawMethod, uri, major, minor, nil
}

// ParseRequest reads the request line and header block from r and returns
// the assembled Request. Any malformed header line encountered is reported
// to onSkip (may be nil). The Body field is left nil — callers that need to
// consume a request body (POST/PUT) read it directly off the same
// connection afterward, since this server never buffers more than one
// request per connection.
func ParseRequest(r io.Reader, onSkip func(line []byte)) (*Request, error) {
	method, rawMethod, uri, major, minor, err := ReadRequestLine(r)
	if err != nil {
		return nil, err
	}
	header, err := ParseHeaders(r, onSkip)
	if err != nil {
		return nil, err
	}
	req := &Request{
		Method:     method,
		RawMethod:  rawMethod,
		URI:        uri,
		ProtoMajor: major,
		ProtoMinor: minor,
		Header:     header,
	}
	if cl, ok := header.Get("content-length"); ok {
		req.ContentLen = parseContentLengthHeader(cl)
		req.HasBody = req.ContentLen > 0
	}
	return req, nil
}

func parseContentLengthHeader(s string) int64 {
	s = trimASCII(s)
	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	return n
}

func trimASCII(s string) string {
	start, end := 0, len(s)
	for start < end && isHSP(s[start]) {
		start++
	}
	for end > start && isHSP(s[end-1]) {
		end--
	}
	return s[start:end]
}

// parseVersion parses "HTTP/<major>.<minor>" strictly.
func parseVersion(v []byte) (major, minor int, err error) {
	var maj, min int
	var rest string
	// A third conversion only succeeds when bytes follow the minor version.
	n, _ := fmt.Sscanf(string(v), "HTTP/%d.%d%s", &maj, &min, &rest)
	if n != 2 || maj < 0 || min < 0 {
		return 0, 0, ErrInvalidRequestLine
	}
	return maj, min, nil
}

// ParseHeaders consumes CRLF-terminated lines from r via ReadLine until an
// empty line terminates the header block. For each non-empty line: split at
// the first colon; a line without a colon is skipped (not an error, per
// SPEC_FULL.md §4.2); the name is lower-cased and the value is trimmed of
// surrounding ASCII whitespace before insertion. A line beginning with a
// space or tab (header folding) is rejected and skipped rather than merged
// into the previous value — folded continuations are not supported.
func ParseHeaders(r io.Reader, onSkip func(line []byte)) (Header, error) {
	h := NewHeader()
	buf := make([]byte, 8192)
	for {
		n, err := ReadLine(r, buf)
		if err != nil {
			return nil, ErrMalformedHeaderBlock
		}
		if n == 0 {
			return h, nil
		}
		line := buf[:n]
		if line[0] == ' ' || line[0] == '\t' {
			if onSkip != nil {
				onSkip(append([]byte(nil), line...))
			}
			continue
		}
		idx := bytes.IndexByte(line, ':')
		if idx < 0 {
			if onSkip != nil {
				onSkip(append([]byte(nil), line...))
			}
			continue
		}
		name := line[:idx]
		value := trimHeaderValue(line[idx+1:])
		h.Add(name, value)
	}
}

func trimHeaderValue(v []byte) []byte {
	start := 0
	for start < len(v) && isHSP(v[start]) {
		start++
	}
	end := len(v)
	for end > start && isHSP(v[end-1]) {
		end--
	}
	return v[start:end]
}

func isHSP(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
