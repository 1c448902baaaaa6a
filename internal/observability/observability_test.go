package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRecordToolInvocation(t *testing.T) {
	okBefore := testutil.ToFloat64(toolInvocations.WithLabelValues("add_data", OutcomeOK))
	failedBefore := testutil.ToFloat64(toolInvocations.WithLabelValues("add_data", OutcomeFailed))

	RecordToolInvocation("add_data", true, 5*time.Millisecond)
	RecordToolInvocation("add_data", false, time.Millisecond)
	RecordToolInvocation("add_data", false, time.Millisecond)

	if got := testutil.ToFloat64(toolInvocations.WithLabelValues("add_data", OutcomeOK)) - okBefore; got != 1 {
		t.Errorf("Expected 1 ok invocation, got %v", got)
	}
	if got := testutil.ToFloat64(toolInvocations.WithLabelValues("add_data", OutcomeFailed)) - failedBefore; got != 2 {
		t.Errorf("Expected 2 failed invocations, got %v", got)
	}
}

func TestRegisterMetrics_Twice(t *testing.T) {
	// must not panic with duplicate registration
	RegisterMetrics()
	RegisterMetrics()
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var logs bytes.Buffer
	router := gin.New()
	router.Use(RequestLogger(zerolog.New(&logs)), RequestMetricsMiddleware())
	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/healthz", "200"))
	missingBefore := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404"))

	for _, path := range []string{"/healthz", "/nope"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
	}

	if got := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/healthz", "200")) - before; got != 1 {
		t.Errorf("Expected 1 recorded /healthz request, got %v", got)
	}
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404")) - missingBefore; got != 1 {
		t.Errorf("Expected 1 recorded unmatched request, got %v", got)
	}

	out := logs.String()
	if !strings.Contains(out, `"path":"/healthz"`) {
		t.Errorf("Request log should contain path, got %s", out)
	}
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("404 should be logged at warn, got %s", out)
	}
}
