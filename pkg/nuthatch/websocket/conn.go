package websocket

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/valyala/bytebufferpool"
)

// Outcome identifies what the message loop (Wait) surfaced to its caller.
type Outcome int

const (
	OutcomeText Outcome = iota
	OutcomeBinary
	OutcomeClose
	OutcomeError
)

// Stats are the per-session counters from SPEC_FULL.md §3's session state.
type Stats struct {
	PingRecv uint64
	PongRecv uint64
	PingSent uint64
}

// Conn is a live WebSocket session: handshake already completed, looping
// over inbound frames, reassembling fragmented messages, auto-replying to
// control frames, and tracking close state.
//
// Grounded on pkg/shockwave/websocket/conn.go, with net/http's Hijacker
// dependency removed (the handshake runs directly over the raw net.Conn
// handed down by the HTTP request handler) and the teacher's utf8.Valid
// check on TEXT payloads removed entirely — SPEC_FULL.md §4.5 states that
// UTF-8 validity is deliberately not enforced.
type Conn struct {
	r io.Reader
	w io.Writer

	scratch    bytebufferpool.ByteBuffer
	reassembly bytebufferpool.ByteBuffer

	hasPrevOpcode bool
	prevOpcode    Opcode

	closeStatus uint16
	stats       Stats

	closeOnce sync.Once
	closed    bool
}

func newConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{r: r, w: w}
}

// Stats returns a copy of the session's counters.
func (c *Conn) Stats() Stats { return c.stats }

// CloseStatus returns the status code parsed from the peer's CLOSE frame,
// or 0 if none was received (SPEC_FULL.md's "status()").
func (c *Conn) CloseStatus() uint16 { return c.closeStatus }

// Wait reads and processes inbound frames until a complete message or a
// CLOSE frame is observed, returning the outcome. This is the message loop
// from SPEC_FULL.md §4.6: CONT frames inherit the effective opcode from the
// in-progress message; control frames (PING/PONG) are fully handled inline
// and never touch prevOpcode or the reassembly buffer — the corrected
// deviation from original_source/src/ws.c's _ws_read, whose unconditional
// "opcode_prev = df->fin ? -1 : opcode" would otherwise clear fragmentation
// state after any control frame, since control frames are always fin=1.
func (c *Conn) Wait() (Outcome, error) {
	for {
		f, err := ReadFrame(c.r, true, &c.scratch)
		if err != nil {
			return OutcomeError, err
		}

		var effective Opcode
		switch {
		case f.Opcode == OpContinuation:
			if !c.hasPrevOpcode {
				return OutcomeError, ErrProtocolViolation
			}
			effective = c.prevOpcode
		case f.Opcode.IsControl():
			effective = f.Opcode
		default:
			effective = f.Opcode
			c.reassembly.Reset()
		}

		switch effective {
		case OpPing:
			c.stats.PingRecv++
			if err := c.sendControl(OpPong, f.Payload); err != nil {
				return OutcomeError, err
			}
			continue

		case OpPong:
			c.stats.PongRecv++
			continue

		case OpClose:
			if len(f.Payload) >= 2 {
				c.closeStatus = binary.BigEndian.Uint16(f.Payload[:2])
			}
			return OutcomeClose, nil

		case OpText, OpBinary:
			c.reassembly.Write(f.Payload)
			if f.Fin {
				c.hasPrevOpcode = false
				if effective == OpText {
					return OutcomeText, nil
				}
				return OutcomeBinary, nil
			}
			c.hasPrevOpcode = true
			c.prevOpcode = effective
			continue

		default:
			return OutcomeError, ErrProtocolViolation
		}
	}
}

// GetMsg returns the reassembled payload of the message most recently
// surfaced by Wait. The returned slice aliases the session's reassembly
// buffer and is only valid until the next Wait call.
func (c *Conn) GetMsg() []byte {
	return c.reassembly.B
}

// Send writes one unmasked, unfragmented data frame (the server never masks
// outbound frames, per SPEC_FULL.md §6).
func (c *Conn) Send(opcode Opcode, payload []byte) error {
	return WriteFrame(c.w, Frame{Opcode: opcode, Fin: true, Payload: payload}, nil)
}

func (c *Conn) sendControl(opcode Opcode, payload []byte) error {
	return WriteFrame(c.w, Frame{Opcode: opcode, Fin: true, Payload: payload}, nil)
}

// Close sends a CLOSE frame carrying status (big-endian) unless the session
// is already closed, in which case it is a no-op. Idempotent via
// sync.Once, matching original_source/src/ws.c:ws_close.
func (c *Conn) Close(status uint16) error {
	var sendErr error
	c.closeOnce.Do(func() {
		var payload [2]byte
		binary.BigEndian.PutUint16(payload[:], status)
		sendErr = WriteFrame(c.w, Frame{Opcode: OpClose, Fin: true, Payload: payload[:]}, nil)
		c.closed = true
		closeIfCloser(c.w)
		closeIfCloser(c.r)
	})
	return sendErr
}

// closeIfCloser closes v if it implements io.Closer. c.w is typically a
// *bufio.Writer (no Close method) wrapping the same net.Conn held in c.r,
// so this naturally closes the underlying socket exactly once without
// needing to compare the two for identity.
func closeIfCloser(v any) {
	if cl, ok := v.(io.Closer); ok {
		_ = cl.Close()
	}
}
