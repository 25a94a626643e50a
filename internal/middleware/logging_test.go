package middleware

import (
	"bufio"
	"bytes"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLogger_LogsRequestLine(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snippets", nil))

	line := buf.String()
	for _, want := range []string{"method=GET", "path=/api/snippets", "status=418", "bytes=15"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %q: %s", want, line)
		}
	}
}

// hijackableRecorder stands in for the real server's connection-backed
// writer, which supports hijacking.
type hijackableRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	c, s := net.Pipe()
	s.Close()
	return c, bufio.NewReadWriter(bufio.NewReader(c), bufio.NewWriter(c)), nil
}

// The WebSocket upgrade type-asserts http.Hijacker on whatever writer it
// is handed, so the logging wrapper must expose Hijack itself rather than
// rely on Unwrap.
func TestLogger_PreservesHijack(t *testing.T) {
	rec := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder()}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("wrapped writer does not satisfy http.Hijacker")
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Fatalf("Hijack: %v", err)
		}
		conn.Close()
	}))

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/live", nil))

	if !rec.hijacked {
		t.Fatal("hijack was not delegated to the underlying writer")
	}
}
