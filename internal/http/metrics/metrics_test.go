package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerRendersCounters(t *testing.T) {
	c := NewCollector()
	c.IncRequests()
	c.IncRequests()
	c.IncErrors()
	c.Begin()
	c.End(1500 * time.Millisecond)

	rec := httptest.NewRecorder()
	NewHandler(c).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		"ylabs_requests_total 2\n",
		"ylabs_errors_total 1\n",
		"ylabs_requests_in_flight 0\n",
		"ylabs_request_duration_seconds_sum 1.500000\n",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body:\n%s", want, body)
		}
	}
}
