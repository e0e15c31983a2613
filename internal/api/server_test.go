package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"music-brief-scheduler/pkg/logging"
	"music-brief-scheduler/pkg/monitoring"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger, err := logging.NewLogger(logging.LogConfig{Level: logging.LevelError, Format: "text", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(nil, nil, nil, nil, nil, nil, monitoring.NewMetrics(16), logger)
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:55001"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubmit_HoneypotSilentDrop(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.Router(), "/submit",
		`{"venueName":"Bot Venue","vibes":["spam"],"website":"http://spam.example"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("honeypot must look successful, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["success"] != true {
		t.Fatalf("honeypot body: %v", body)
	}
	// No brief id, because nothing was created.
	if id, ok := body["briefId"]; ok && id != float64(0) {
		t.Fatalf("honeypot must not create a brief: %v", body)
	}
}

func TestSubmit_Validation(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	if rec := postJSON(t, r, "/submit", `{"vibes":["chill"]}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing venueName must 400, got %d", rec.Code)
	}
	if rec := postJSON(t, r, "/submit", `{"venueName":"Cafe Luna"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing vibes must 400, got %d", rec.Code)
	}
	if rec := postJSON(t, r, "/submit", `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("garbage body must 400, got %d", rec.Code)
	}
}

func TestRecommend_Validation(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.Router(), "/api/recommend", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty brief must 400, got %d", rec.Code)
	}
}

func TestSubmitRateLimit(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()
	// Honeypot payload exercises the limiter without touching services.
	body := `{"venueName":"x","website":"spam"}`

	for i := 0; i < submitPerHour; i++ {
		if rec := postJSON(t, r, "/submit", body); rec.Code != http.StatusOK {
			t.Fatalf("request %d inside budget got %d", i+1, rec.Code)
		}
	}
	rec := postJSON(t, r, "/submit", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("request over budget got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rate limit") {
		t.Fatalf("429 body: %s", rec.Body.String())
	}
}

func TestRateLimit_PerIP(t *testing.T) {
	l := newIPLimiter(2)
	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatal("budget must admit the first requests")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("exhausted budget must refuse")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatal("another IP has its own bucket")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4711"
	if got := clientIP(req); got != "192.0.2.1" {
		t.Fatalf("socket address: %s", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 70.41.3.18")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("first forwarded hop wins: %s", got)
	}
}

func TestPixel_AlwaysServesGIF(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/follow-up/track/unknown-id", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("pixel must never fail, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/gif" {
		t.Fatalf("content type: %s", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("pixel must not be cached: %s", cc)
	}
	if !bytes.Equal(rec.Body.Bytes(), trackingPixel) {
		t.Fatal("body must be the 1x1 GIF")
	}
}

func TestHealth_DegradedWithoutDatabase(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("health got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["mode"] != "degraded" {
		t.Fatalf("degraded health body: %v", body)
	}
}
