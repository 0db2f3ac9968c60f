package tracefetch

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	fetcherKey   = attribute.Key("secretfs.fetcher")
	endpointsKey = attribute.Key("secretfs.endpoints")
	timeoutKey   = attribute.Key("secretfs.timeout")
	retriesKey   = attribute.Key("secretfs.retry_attempts")
	secretsKey   = attribute.Key("secretfs.secrets")
)

// The fetcher being used.
//
// Type: string
// Required: Yes
// Examples: "mock (for testing and development)", "remote (http, https)"
func Fetcher(name string) attribute.KeyValue {
	return fetcherKey.String(name)
}

// The number of endpoints configured.
//
// Type: int
// Required: No
// Examples: 1, 3
func Endpoints(n int) attribute.KeyValue {
	return endpointsKey.Int(n)
}

// The per-attempt timeout.
//
// Type: string
// Required: No
// Examples: "30s", "500ms"
func Timeout(s string) attribute.KeyValue {
	return timeoutKey.String(s)
}

// The number of retries for each endpoint.
//
// Type: int
// Required: No
// Examples: 3, 0
func RetryAttempts(n int) attribute.KeyValue {
	return retriesKey.Int(n)
}

// The number of secrets fetched. Secret names and values are never recorded.
//
// Type: int
// Required: No
// Examples: 2, 0
func Secrets(n int) attribute.KeyValue {
	return secretsKey.Int(n)
}
