package server

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tommika/nuthatch/pkg/nuthatch/sandbox"
)

func startTestServer(t *testing.T, noFork bool) (srv *Server, addr string, stop func()) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	root, err := sandbox.New(dir)
	if err != nil {
		t.Fatal(err)
	}

	srv = New(Config{Addr: "127.0.0.1:0", Root: root, NoFork: noFork, ShutdownGrace: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a := srv.Addr(); a != nil {
			addr = a.String()
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if addr == "" {
		t.Fatal("server did not bind an address in time")
	}

	return srv, addr, func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
			t.Fatal("server did not shut down in time")
		}
	}
}

func TestServerServesStaticFile(t *testing.T) {
	srv, addr, stop := startTestServer(t, true)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatal(err)
	}

	r := bufio.NewReader(conn)
	status, err := r.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(status, "HTTP/1.1 200") {
		t.Errorf("status line = %q", status)
	}

	if srv.Stats().Snapshot().Accepted == 0 {
		t.Error("expected Accepted to be incremented")
	}
}

func TestServerMissingFileIs404(t *testing.T) {
	_, addr, stop := startTestServer(t, true)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GET /nope.html HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatal(err)
	}
	r := bufio.NewReader(conn)
	status, err := r.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(status, "HTTP/1.1 404") {
		t.Errorf("status line = %q", status)
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	_, _, stop := startTestServer(t, true)
	stop() // must return within the deadline asserted inside startTestServer's stop closure
}
