package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// sseWriter emits one JSON frame per event over a text/event-stream
// response. Writes after the client disconnects surface as errors so the
// engine can stop.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu sync.Mutex
}

// newSSEWriter prepares the stream headers. Returns an error when the
// ResponseWriter cannot flush, which SSE requires.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by connection")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return &sseWriter{w: w, flusher: flusher}, nil
}

// Emit writes one event frame and flushes it.
func (s *sseWriter) Emit(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
