package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"furniture-service/pkg/config"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(MetricsMiddleware())
	e.GET("/things/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound)
	})

	before := testutil.ToFloat64(HTTPRequestCounter.WithLabelValues("/things/:id", http.MethodGet, "204"))
	notFound := testutil.ToFloat64(HTTPRequestCounter.WithLabelValues("/missing", http.MethodGet, "404"))

	for _, path := range []string{"/things/1", "/things/2", "/missing"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(HTTPRequestCounter.WithLabelValues("/things/:id", http.MethodGet, "204")) - before; got != 2 {
		t.Errorf("204 count delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(HTTPRequestCounter.WithLabelValues("/missing", http.MethodGet, "404")) - notFound; got != 1 {
		t.Errorf("404 count delta = %v, want 1", got)
	}
}

func TestInitMetricsIsIdempotent(t *testing.T) {
	cfg := &config.Config{ServiceName: "furniture-test", Metrics: config.MetricsConfig{Prefix: "test"}}
	InitMetrics(cfg)
	InitMetrics(cfg)

	RecordProductOperation("create")

	rec := httptest.NewRecorder()
	GetPrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "test_product_operations_total") {
		t.Error("prefixed product counter missing from /metrics output")
	}
}

func TestStatusCategory(t *testing.T) {
	tests := map[int]string{200: "2xx", 201: "2xx", 301: "", 403: "4xx", 503: "5xx"}
	for status, want := range tests {
		if got := statusCategory(status); got != want {
			t.Errorf("statusCategory(%d) = %q, want %q", status, got, want)
		}
	}
}
