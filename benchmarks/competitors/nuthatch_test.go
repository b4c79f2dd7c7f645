package competitors

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tommika/nuthatch/pkg/nuthatch/http1"
	"github.com/tommika/nuthatch/pkg/nuthatch/sandbox"
	"github.com/tommika/nuthatch/pkg/nuthatch/server"
)

// startNuthatchServer boots a real nuthatch server (real listener, real
// goroutine-per-connection dispatch) on an ephemeral port, serving body as
// /bench.bin, and returns its address plus a stop func.
func startNuthatchServer(b *testing.B, body []byte) (addr string, stop func()) {
	b.Helper()
	dir := b.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bench.bin"), body, 0o644); err != nil {
		b.Fatal(err)
	}
	root, err := sandbox.New(dir)
	if err != nil {
		b.Fatal(err)
	}

	srv := server.New(server.Config{Addr: "127.0.0.1:0", Root: root})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a := srv.Addr(); a != nil {
			return a.String(), func() {
				cancel()
				<-errCh
			}
		}
		time.Sleep(time.Millisecond)
	}
	b.Fatal("nuthatch server did not start in time")
	return "", nil
}

// BenchmarkNuthatchSimpleGET benchmarks static-file GET performance, the
// nuthatch counterpart to BenchmarkNetHTTPSimpleGET / BenchmarkFastHTTPSimpleGET.
// Unlike those two, nuthatch closes the connection after every response
// (SPEC_FULL.md Non-goals: no keep-alive, no pipelining), so each iteration
// also pays for a fresh TCP handshake — that is the architectural cost this
// benchmark is meant to surface, not an oversight in the harness.
func BenchmarkNuthatchSimpleGET(b *testing.B) {
	addr, stop := startNuthatchServer(b, []byte("OK"))
	defer stop()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := conn.Write([]byte("GET /bench.bin HTTP/1.1\r\nHost: bench\r\n\r\n")); err != nil {
			b.Fatal(err)
		}
		if _, err := io.Copy(io.Discard, conn); err != nil && err != io.EOF {
			b.Fatal(err)
		}
		conn.Close()
	}
}

// BenchmarkNuthatchLargeResponse is the nuthatch counterpart to
// BenchmarkNetHTTPLargeResponse / BenchmarkFastHTTPLargeResponse, exercising
// socket.SendFileAll's sendfile(2) fast path on Linux instead of a userspace
// copy (see DESIGN.md's C4/A3 entries).
func BenchmarkNuthatchLargeResponse(b *testing.B) {
	largeData := generateBody(1024 * 1024) // 1MB
	addr, stop := startNuthatchServer(b, largeData)
	defer stop()

	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(int64(len(largeData)))

	for i := 0; i < b.N; i++ {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := conn.Write([]byte("GET /bench.bin HTTP/1.1\r\nHost: bench\r\n\r\n")); err != nil {
			b.Fatal(err)
		}
		if _, err := io.Copy(io.Discard, conn); err != nil && err != io.EOF {
			b.Fatal(err)
		}
		conn.Close()
	}
}

// BenchmarkNuthatchRequestParsing isolates nuthatch's own wire parser
// (http1.ParseRequest) against the same request text
// BenchmarkComparisonRequestParsing parses (BenchmarkNetHTTPRequestParsing /
// BenchmarkFastHTTPRequestParsing use that text without its
// Content-Length: 0 line).
func BenchmarkNuthatchRequestParsing(b *testing.B) {
	reqStr := "GET /path HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"User-Agent: benchmark\r\n" +
		"Accept: */*\r\n" +
		"Connection: keep-alive\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n"

	b.ReportAllocs()
	b.SetBytes(int64(len(reqStr)))

	for i := 0; i < b.N; i++ {
		if _, err := http1.ParseRequest(strings.NewReader(reqStr), nil); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkNuthatchWebSocketEcho is the nuthatch counterpart to
// BenchmarkGorillaWebSocketEcho: the same gorilla/websocket client dialer
// against nuthatch's own handshake/frame codec (pkg/nuthatch/websocket)
// instead of gorilla's server-side Upgrader.
func BenchmarkNuthatchWebSocketEcho(b *testing.B) {
	addr, stop := startNuthatchServer(b, nil)
	defer stop()

	conn, _, err := gorillaws.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		b.Fatal(err)
	}
	defer conn.Close()

	message := []byte("Hello, WebSocket!")
	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(int64(len(message) * 2))

	for i := 0; i < b.N; i++ {
		if err := conn.WriteMessage(gorillaws.TextMessage, message); err != nil {
			b.Fatal(err)
		}
		if _, _, err := conn.ReadMessage(); err != nil {
			b.Fatal(err)
		}
	}
}
