// Package httputil provides shared HTTP client construction for VoiceDesk.
// Every backend call goes through a client built here so that timeouts and
// tracing are configured in one place.
package httputil

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Standard timeout defaults used across the project.
const (
	// DefaultRequestTimeout bounds small JSON calls such as starting or
	// stopping a meeting session and sending a text message.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultUploadTimeout bounds whole-recording uploads. The backend
	// transcribes before answering, so this is much longer.
	DefaultUploadTimeout = 120 * time.Second
)

// NewHTTPClient returns an *http.Client with the given timeout whose transport
// records an OpenTelemetry client span per request.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
