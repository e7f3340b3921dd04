package client

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

const (
	testTimeout = 5 * time.Second
	testTick    = 5 * time.Millisecond
)

// sseServer 依次发送给定的数据帧，然后正常断开
func sseServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(sseHandler(frames...))
	t.Cleanup(srv.Close)
	return srv
}

func sseHandler(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, f := range frames {
			fmt.Fprint(w, f)
			flusher.Flush()
		}
	}
}

func waitDone(t *testing.T, s *StreamSession) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(testTimeout):
		t.Fatal("session did not close")
	}
}

type fakeInput struct {
	mu    sync.Mutex
	value string
}

func (i *fakeInput) Value() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.value
}

func (i *fakeInput) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.value = ""
}

func (i *fakeInput) Set(v string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.value = v
}
