package scope

import (
	"net"
	"slices"
	"strings"
)

// tenantAgnosticPaths are served without tenant resolution.
var tenantAgnosticPaths = []string{"/up", "/ready"}

// IsTenantAgnostic reports whether path is a health check that runs without a tenant.
func IsTenantAgnostic(path string) bool {
	return slices.Contains(tenantAgnosticPaths, path)
}

// ExtractRoutingKey returns the routing key carried by host.
//
// The port is ignored. "acme.localhost" yields "acme". With a base domain of
// "example.com", "acme.example.com" yields "acme" and hosts outside the base domain
// yield nothing. Without a base domain the host needs at least three labels and the
// first one is used. Reserved labels are returned as is; the Resolver rejects them.
func ExtractRoutingKey(host, baseDomain string) (string, bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" || net.ParseIP(host) != nil {
		return "", false
	}

	if label, ok := strings.CutSuffix(host, ".localhost"); ok {
		return singleLabel(label)
	}

	baseDomain = strings.Trim(strings.ToLower(baseDomain), ".")
	if baseDomain != "" {
		label, ok := strings.CutSuffix(host, "."+baseDomain)
		if !ok {
			return "", false
		}
		return singleLabel(label)
	}

	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return "", false
	}
	return labels[0], labels[0] != ""
}

// singleLabel rejects nested subdomains such as "a.b.example.com".
func singleLabel(label string) (string, bool) {
	if label == "" || strings.Contains(label, ".") {
		return "", false
	}
	return label, true
}
