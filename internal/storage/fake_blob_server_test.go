package storage

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeBlobServer struct {
	*httptest.Server
	mu       sync.Mutex
	blobs    map[string][]byte
	failWith int
	puts     int
	conns    int
}

func newFakeBlobServer(t *testing.T, token string) *fakeBlobServer {
	t.Helper()
	f := &fakeBlobServer{blobs: make(map[string][]byte)}
	f.Server = httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if f.failWith != 0 {
			w.WriteHeader(f.failWith)
			_, _ = w.Write([]byte("blob backend unavailable"))
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		key := strings.TrimPrefix(r.URL.Path, "/")
		switch r.Method {
		case http.MethodGet:
			body, ok := f.blobs[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Last-Modified", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Format(http.TimeFormat))
			_, _ = w.Write(body)
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			f.blobs[key] = body
			f.puts++
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	f.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			f.mu.Lock()
			f.conns++
			f.mu.Unlock()
		}
	}
	f.Start()
	t.Cleanup(f.Close)
	return f
}

func (f *fakeBlobServer) blob(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blobs[key]
	return b, ok
}

func (f *fakeBlobServer) setBlob(key string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = body
}

func (f *fakeBlobServer) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

func (f *fakeBlobServer) connCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns
}

func (f *fakeBlobServer) fail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = status
}
