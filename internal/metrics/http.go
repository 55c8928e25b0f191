package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ScopeLabelKey is the gin context key the tenant middlewares use to tag a
// request with the kind of scope it ran under.
const ScopeLabelKey = "metrics.scope"

// Values of the "scope" label on HTTP metrics. Tenant identifiers are never
// used as labels.
const (
	ScopeNone   = "none"
	ScopeTenant = "tenant"
	ScopeAdmin  = "admin"
)

type httpMetrics struct {
	requestCounter metric.Int64Counter
	durationHisto  metric.Float64Histogram
	rejectCounter  metric.Int64Counter
}

func newHTTPMetrics(meter metric.Meter, namespace string) (*httpMetrics, error) {
	requestCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	rejectCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_scope_rejections_total", namespace),
		metric.WithDescription("Requests rejected before a tenant scope could be established"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{
		requestCounter: requestCounter,
		durationHisto:  durationHisto,
		rejectCounter:  rejectCounter,
	}, nil
}

// HTTPMetricsMiddleware returns a Gin middleware that records request counts and
// durations labeled by method, route pattern, status code and scope kind.
// Requests that finish with 403 before any scope was established are also
// counted as scope rejections.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	m, err := newHTTPMetrics(meterProvider.Meter(namespace), namespace)
	if err != nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := routeLabel(c.FullPath())
		scopeKind := scopeLabel(c)
		status := c.Writer.Status()

		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", route),
			attribute.String("status_code", strconv.Itoa(status)),
			attribute.String("scope", scopeKind),
		)

		ctx := c.Request.Context()
		m.requestCounter.Add(ctx, 1, attrs)
		m.durationHisto.Record(ctx, time.Since(start).Seconds(), attrs)

		if scopeKind == ScopeNone && status == 403 {
			m.rejectCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("path", route)))
		}
	}
}

// routeLabel keeps label cardinality bounded: unmatched paths collapse to "unknown".
func routeLabel(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}

func scopeLabel(c *gin.Context) string {
	if v := c.GetString(ScopeLabelKey); v != "" {
		return v
	}
	return ScopeNone
}
