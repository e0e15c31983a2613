// Package monitoring keeps lightweight in-memory request metrics and exposes
// them as JSON. No external metrics backend; the numbers reset on restart.
package monitoring

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"
)

// Metrics holds a circular buffer of recent request durations plus a few
// named counters (schedule assignments, follow-ups, LLM retries).
type Metrics struct {
	mu        sync.Mutex
	durations []float64 // milliseconds, last N
	idx       int
	count     int64
	n         int
	counters  map[string]int64
}

func NewMetrics(capacity int) *Metrics {
	if capacity <= 0 {
		capacity = 256
	}
	return &Metrics{
		durations: make([]float64, capacity),
		n:         capacity,
		counters:  make(map[string]int64),
	}
}

// Observe records one request duration in milliseconds.
func (m *Metrics) Observe(ms float64) {
	m.mu.Lock()
	m.durations[m.idx] = ms
	m.idx = (m.idx + 1) % m.n
	m.count++
	m.mu.Unlock()
}

// Count increments a named counter.
func (m *Metrics) Count(name string) {
	m.mu.Lock()
	m.counters[name]++
	m.mu.Unlock()
}

// Snapshot returns request count, average and quantiles over recent samples.
func (m *Metrics) Snapshot() (count int64, avg, p50, p95 float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var samples []float64
	if m.count < int64(m.n) {
		samples = append(samples, m.durations[:m.idx]...)
	} else {
		samples = append(samples, m.durations...)
	}
	if len(samples) == 0 {
		return m.count, 0, 0, 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	avg = sum / float64(len(samples))
	cp := make([]float64, len(samples))
	copy(cp, samples)
	sort.Float64s(cp)
	p50 = cp[(len(cp)*50)/100]
	p95 = cp[(len(cp)*95)/100]
	return m.count, avg, p50, p95
}

func (m *Metrics) counterSnapshot() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}

type statusWriter struct {
	w          http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) Header() http.Header         { return sw.w.Header() }
func (sw *statusWriter) Write(b []byte) (int, error) { return sw.w.Write(b) }
func (sw *statusWriter) WriteHeader(statusCode int) {
	sw.statusCode = statusCode
	sw.w.WriteHeader(statusCode)
}

// Middleware measures request duration into Metrics. No per-route labels.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{w: w, statusCode: http.StatusOK}
			next.ServeHTTP(sw, r)
			m.Observe(time.Since(start).Seconds() * 1000.0)
		})
	}
}

// MetricsHandler serves the JSON snapshot at /metrics.json.
func MetricsHandler(m *Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		count, avg, p50, p95 := m.Snapshot()
		resp := map[string]interface{}{
			"time":             time.Now().Format(time.RFC3339),
			"requests_total":   count,
			"duration_ms_avg":  avg,
			"duration_ms_p50":  p50,
			"duration_ms_p95":  p95,
			"goroutines":       runtime.NumGoroutine(),
			"mem_alloc_bytes":  ms.Alloc,
			"heap_inuse_bytes": ms.HeapInuse,
			"gc_num":           ms.NumGC,
			"counters":         m.counterSnapshot(),
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
}
