package http1

import (
	"bytes"
	"strings"
	"testing"
)

func TestResponseWriterWriteStatus(t *testing.T) {
	var buf bytes.Buffer
	rw := NewResponseWriter(&buf)
	rw.Header().Add([]byte("Content-Length"), []byte("5"))
	if err := rw.WriteStatus(StatusOK); err != nil {
		t.Fatal(err)
	}
	if _, err := rw.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("status line = %q", out)
	}
	if !strings.Contains(out, "content-length: 5\r\n") {
		t.Errorf("missing content-length header: %q", out)
	}
	if !strings.HasSuffix(out, "\r\n\r\nhello") {
		t.Errorf("body not appended after blank line: %q", out)
	}
}

func TestResponseWriterDoubleWriteStatusFails(t *testing.T) {
	var buf bytes.Buffer
	rw := NewResponseWriter(&buf)
	if err := rw.WriteStatus(StatusOK); err != nil {
		t.Fatal(err)
	}
	if err := rw.WriteStatus(StatusNotFound); err == nil {
		t.Error("second WriteStatus call should fail")
	}
}

func TestResponseWriterUnknownStatusReason(t *testing.T) {
	var buf bytes.Buffer
	rw := NewResponseWriter(&buf)
	if err := rw.WriteStatus(599); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "HTTP/1.1 599 Unknown\r\n") {
		t.Errorf("got %q", buf.String())
	}
}

func TestResponseWriterWriteContinue(t *testing.T) {
	var buf bytes.Buffer
	rw := NewResponseWriter(&buf)
	if err := rw.WriteContinue(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "HTTP/1.1 100 Continue\r\n\r\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestReasonPhrasesMatchSpec(t *testing.T) {
	want := map[int]string{
		StatusContinue:           "Continue",
		StatusSwitchingProtocols: "Switching Protocols",
		StatusOK:                 "OK",
		StatusCreated:            "Created",
		StatusAccepted:           "Accepted",
		StatusBadRequest:         "Bad Request",
		StatusNotFound:           "Not Found",
		StatusMethodNotAllowed:   "Method Not Allowed",
	}
	for code, phrase := range want {
		var buf bytes.Buffer
		rw := NewResponseWriter(&buf)
		if err := rw.WriteStatus(code); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), phrase) {
			t.Errorf("status %d: expected reason phrase %q in %q", code, phrase, buf.String())
		}
	}
}
