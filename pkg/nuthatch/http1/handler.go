package http1

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/tommika/nuthatch/pkg/nuthatch/sandbox"
	"github.com/tommika/nuthatch/pkg/nuthatch/socket"
	"github.com/tommika/nuthatch/pkg/nuthatch/websocket"
)

// Handler drives exactly one request per connection (SPEC_FULL.md §4.4,
// "no keep-alive"). Grounded on original_source/src/http.c:http_client_connect
// for control flow and pkg/shockwave/server/server.go's Handler interface
// for the Go-shaped entry point.
type Handler struct {
	Root   *sandbox.Root
	Log    *slog.Logger
	Echo   func(outcome websocket.Outcome, payload []byte) // optional hook called with each message before it is echoed; the echo is sent either way
}

// ServeConn reads and handles exactly one request on conn and closes conn
// before returning (for plain HTTP, right after the response) — a
// successful WebSocket upgrade keeps the connection open for the session's
// lifetime, returned from here only once the session ends.
func (h *Handler) ServeConn(conn net.Conn) {
	defer conn.Close()

	var skipped []string
	req, err := ParseRequest(conn, func(line []byte) {
		skipped = append(skipped, string(line))
	})
	if err != nil {
		h.writeSimpleStatus(conn, StatusBadRequest)
		return
	}
	if len(skipped) > 0 && h.Log != nil {
		h.Log.Debug("skipped malformed header line(s)", "count", len(skipped))
	}

	if websocket.IsUpgradable(req.Header) {
		h.serveWebSocket(conn, req.Header)
		return
	}

	if req.Method == MethodUnknown || !req.Method.Honored() {
		if h.Log != nil {
			h.Log.Debug("method not allowed", "method", req.RawMethod, "uri", req.URI)
		}
		h.writeSimpleStatus(conn, StatusMethodNotAllowed)
		return
	}

	rw := NewResponseWriter(conn)

	// Expect: 100-continue is honored before header/body validation, a
	// known wart preserved for bit-compatibility with
	// original_source/src/http.c (SPEC_FULL.md §4.4 step 5).
	if v, ok := req.Header.Get("expect"); ok && strings.EqualFold(strings.TrimSpace(v), "100-continue") {
		if err := rw.WriteContinue(); err != nil {
			return
		}
	}

	switch req.Method {
	case MethodPOST, MethodPUT:
		h.serveWrite(conn, rw, req)
	case MethodGET:
		h.serveGet(conn, rw, req.URI)
	case MethodDELETE:
		h.serveDelete(rw, req.URI)
	}
}

func (h *Handler) writeSimpleStatus(w io.Writer, code int) {
	rw := NewResponseWriter(w)
	_ = rw.WriteStatus(code)
}

// serveWrite handles POST/PUT: reads exactly Content-Length bytes if
// present and positive, retrying short reads, then responds 201 Created
// without dispatching the body anywhere (the repo has no routing).
// Resolved ambiguity: any read error or short read maps to 400, matching
// original_source/src/http.c:dispatch_http's literal behavior of setting
// rsp_code=HTTP_BAD_REQUEST inside the read loop on both outcomes.
func (h *Handler) serveWrite(conn net.Conn, rw *ResponseWriter, req *Request) {
	if req.HasBody {
		buf := make([]byte, req.ContentLen)
		if _, err := io.ReadFull(conn, buf); err != nil {
			_ = rw.WriteStatus(StatusBadRequest)
			return
		}
	}
	_ = rw.WriteStatus(StatusCreated)
}

// serveGet handles GET: "/" rewrites to "/index.html", resolves the sandbox
// path, stats it, and streams it back with Content-Length set from the
// file size. Any sandbox resolution failure collapses to 404 (not 403),
// matching original_source/src/http.c's uniform "not found" treatment for
// GET failures (scenario S2).
//
// The body is written with socket.SendFileAll, which uses the sendfile(2)
// syscall on Linux TCP connections instead of copying the file through a
// userspace buffer — grounded on pkg/shockwave/socket/sendfile_linux.go.
func (h *Handler) serveGet(conn net.Conn, rw *ResponseWriter, uri string) {
	if uri == "/" {
		uri = "/index.html"
	}

	resolved, err := h.Root.Resolve(uri)
	if err != nil {
		_ = rw.WriteStatus(StatusNotFound)
		return
	}

	fi, err := os.Stat(resolved)
	if err != nil || !fi.Mode().IsRegular() {
		_ = rw.WriteStatus(StatusNotFound)
		return
	}

	f, err := os.Open(resolved)
	if err != nil {
		_ = rw.WriteStatus(StatusNotFound)
		return
	}
	defer f.Close()

	rw.Header()["content-length"] = strconv.FormatInt(fi.Size(), 10)
	if err := rw.WriteStatus(StatusOK); err != nil {
		return
	}

	if fi.Size() > 0 {
		if _, err := socket.SendFileAll(conn, f); err != nil {
			if h.Log != nil {
				h.Log.Debug("short file copy", "path", resolved, "err", err)
			}
		}
	}
}

// serveDelete resolves uri exactly like GET and reports 200 if the target
// exists as a regular file, 404 otherwise. The repo has no write path, so
// DELETE has no side effect — it is "honored" at the protocol layer the
// same way POST/PUT are accepted without being dispatched anywhere. See
// SPEC_FULL.md §4.4's resolution of the DELETE Open Question.
func (h *Handler) serveDelete(rw *ResponseWriter, uri string) {
	resolved, err := h.Root.Resolve(uri)
	if err != nil {
		_ = rw.WriteStatus(StatusNotFound)
		return
	}
	fi, err := os.Stat(resolved)
	if err != nil || !fi.Mode().IsRegular() {
		_ = rw.WriteStatus(StatusNotFound)
		return
	}
	_ = rw.WriteStatus(StatusOK)
}

// serveWebSocket performs the handshake and drives the message loop,
// echoing every TEXT/BIN message back with the same type — the only
// application-level logic in the repository (SPEC_FULL.md §4.6).
func (h *Handler) serveWebSocket(conn net.Conn, header Header) {
	ws, err := websocket.Accept(conn, header)
	if err != nil {
		if h.Log != nil {
			h.Log.Debug("websocket handshake failed", "err", err)
		}
		return
	}
	defer ws.Close(websocket.StatusGoingAway)

	for {
		outcome, err := ws.Wait()
		if err != nil {
			if !errors.Is(err, io.EOF) && h.Log != nil {
				h.Log.Debug("websocket session error", "err", err)
			}
			return
		}
		switch outcome {
		case websocket.OutcomeClose:
			_ = ws.Close(websocket.StatusNormal)
			return
		case websocket.OutcomeText:
			msg := append([]byte(nil), ws.GetMsg()...)
			if h.Echo != nil {
				h.Echo(outcome, msg)
			}
			if err := ws.Send(websocket.OpText, msg); err != nil {
				return
			}
		case websocket.OutcomeBinary:
			msg := append([]byte(nil), ws.GetMsg()...)
			if h.Echo != nil {
				h.Echo(outcome, msg)
			}
			if err := ws.Send(websocket.OpBinary, msg); err != nil {
				return
			}
		}
	}
}
