package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Security event kinds.
const (
	SecurityEventTenantRequired         = "tenant_required"
	SecurityEventTenantNotFound         = "tenant_not_found"
	SecurityEventAdminBoundaryViolation = "admin_boundary_violation"
	SecurityEventCrossTenantAccess      = "cross_tenant_access_denied"
	SecurityEventAuthenticationFailed   = "authentication_failed"
	SecurityEventCryptoFault            = "crypto_fault"
	SecurityEventKeyNotFound            = "key_not_found"
)

// SecurityMetrics counts isolation violations and cryptographic failures. An
// alert on the rate of this counter is the signal for tampering or corruption.
type SecurityMetrics interface {
	RecordSecurityEvent(ctx context.Context, kind string)
}

type securityMetrics struct {
	eventCounter metric.Int64Counter
}

// NewSecurityMetrics creates a SecurityMetrics backed by a
// <namespace>_security_events_total counter.
func NewSecurityMetrics(meterProvider metric.MeterProvider, namespace string) (SecurityMetrics, error) {
	meter := meterProvider.Meter(namespace)

	eventCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_security_events_total", namespace),
		metric.WithDescription("Total number of isolation violations and cryptographic failures"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create security event counter: %w", err)
	}

	return &securityMetrics{eventCounter: eventCounter}, nil
}

func (s *securityMetrics) RecordSecurityEvent(ctx context.Context, kind string) {
	s.eventCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// NoOpSecurityMetrics is used when metrics are disabled.
type NoOpSecurityMetrics struct{}

// NewNoOpSecurityMetrics creates a no-op SecurityMetrics implementation.
func NewNoOpSecurityMetrics() SecurityMetrics {
	return &NoOpSecurityMetrics{}
}

// RecordSecurityEvent does nothing when metrics are disabled.
func (n *NoOpSecurityMetrics) RecordSecurityEvent(ctx context.Context, kind string) {}
