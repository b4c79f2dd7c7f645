package websocket

import (
	"bufio"
	"io"
	"strings"

	"github.com/tommika/nuthatch/pkg/nuthatch/bytesutil"
)

// HeaderGetter is the minimal surface this package needs from a parsed
// request's header set. http1.Header satisfies it structurally.
type HeaderGetter interface {
	Get(name string) (string, bool)
}

// IsUpgradable implements the upgrade predicate from SPEC_FULL.md §4.6: a
// request is upgradable iff it carries an "upgrade" header whose value
// equals "websocket" case-insensitively. The "connection: upgrade" token is
// deliberately not checked, matching original_source/src/ws.c:ws_is_upgradable
// — a concession preserved for clients that send
// "Connection: keep-alive, Upgrade".
func IsUpgradable(h HeaderGetter) bool {
	v, ok := h.Get("upgrade")
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(v), "websocket")
}

// Accept performs the server-side handshake over rw (already positioned
// immediately after the request's header block) and returns a live Conn on
// success. It requires a "sec-websocket-key" header; its absence is a
// protocol error even though the upgrade predicate alone was satisfied.
func Accept(rw io.ReadWriter, h HeaderGetter) (*Conn, error) {
	key, ok := h.Get("sec-websocket-key")
	if !ok || strings.TrimSpace(key) == "" {
		return nil, ErrNotUpgradable
	}
	accept := bytesutil.AcceptKey([]byte(key))

	bw := bufio.NewWriter(rw)
	if _, err := bw.WriteString("HTTP/1.1 101 Switching Protocols\r\n"); err != nil {
		return nil, err
	}
	if _, err := bw.WriteString("connection: upgrade\r\n"); err != nil {
		return nil, err
	}
	if _, err := bw.WriteString("upgrade: websocket\r\n"); err != nil {
		return nil, err
	}
	if _, err := bw.WriteString("sec-websocket-accept: " + accept + "\r\n\r\n"); err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}

	c := newConn(rw, bw)

	// Unsolicited proof-of-life PING, sent immediately after the 101
	// response and before the client has had a chance to send anything.
	// Grounded on original_source/src/ws.c:_ws_create; preserved per
	// SPEC_FULL.md §9 even though it may surprise clients that close on
	// unexpected control traffic.
	if err := c.sendControl(OpPing, nil); err != nil {
		return nil, err
	}
	c.stats.PingSent++

	return c, nil
}
