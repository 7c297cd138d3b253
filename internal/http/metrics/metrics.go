package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

type Collector struct {
	requests      uint64
	errors        uint64
	clientErrors  uint64
	inFlight      int64
	durationMicro uint64
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) IncRequests() {
	atomic.AddUint64(&c.requests, 1)
}

func (c *Collector) IncErrors() {
	atomic.AddUint64(&c.errors, 1)
}

func (c *Collector) IncClientErrors() {
	atomic.AddUint64(&c.clientErrors, 1)
}

func (c *Collector) Begin() {
	atomic.AddInt64(&c.inFlight, 1)
}

func (c *Collector) End(d time.Duration) {
	atomic.AddInt64(&c.inFlight, -1)
	atomic.AddUint64(&c.durationMicro, uint64(d.Microseconds()))
}

type Snapshot struct {
	Requests     uint64
	Errors       uint64
	ClientErrors uint64
	InFlight     int64
	Duration     time.Duration
}

func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Requests:     atomic.LoadUint64(&c.requests),
		Errors:       atomic.LoadUint64(&c.errors),
		ClientErrors: atomic.LoadUint64(&c.clientErrors),
		InFlight:     atomic.LoadInt64(&c.inFlight),
		Duration:     time.Duration(atomic.LoadUint64(&c.durationMicro)) * time.Microsecond,
	}
}

type Handler struct {
	collector *Collector
}

func NewHandler(collector *Collector) *Handler {
	return &Handler{collector: collector}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	var snap Snapshot
	if h.collector != nil {
		snap = h.collector.Snapshot()
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = fmt.Fprintf(w, "# HELP ylabs_requests_total Total number of HTTP requests.\n")
	_, _ = fmt.Fprintf(w, "# TYPE ylabs_requests_total counter\n")
	_, _ = fmt.Fprintf(w, "ylabs_requests_total %d\n", snap.Requests)
	_, _ = fmt.Fprintf(w, "# HELP ylabs_errors_total Total number of 5xx HTTP responses.\n")
	_, _ = fmt.Fprintf(w, "# TYPE ylabs_errors_total counter\n")
	_, _ = fmt.Fprintf(w, "ylabs_errors_total %d\n", snap.Errors)
	_, _ = fmt.Fprintf(w, "# HELP ylabs_client_errors_total Total number of 4xx HTTP responses.\n")
	_, _ = fmt.Fprintf(w, "# TYPE ylabs_client_errors_total counter\n")
	_, _ = fmt.Fprintf(w, "ylabs_client_errors_total %d\n", snap.ClientErrors)
	_, _ = fmt.Fprintf(w, "# HELP ylabs_requests_in_flight Requests currently being served.\n")
	_, _ = fmt.Fprintf(w, "# TYPE ylabs_requests_in_flight gauge\n")
	_, _ = fmt.Fprintf(w, "ylabs_requests_in_flight %d\n", snap.InFlight)
	_, _ = fmt.Fprintf(w, "# HELP ylabs_request_duration_seconds_sum Total time spent serving requests.\n")
	_, _ = fmt.Fprintf(w, "# TYPE ylabs_request_duration_seconds_sum counter\n")
	_, _ = fmt.Fprintf(w, "ylabs_request_duration_seconds_sum %.6f\n", snap.Duration.Seconds())
}
