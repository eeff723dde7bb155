package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	pkgerrors "github.com/AltairaLabs/VoiceDesk/pkg/errors"
)

const component = "transport"

// Sentinel errors for the upload taxonomy.
var (
	// ErrNetwork is returned when the request could not be delivered or the
	// connection failed before a response arrived.
	ErrNetwork = errors.New("network error")

	// ErrTimeout is returned when the request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrUnauthenticated is returned when no token is available or the
	// backend answered 401.
	ErrUnauthenticated = errors.New("not authenticated")
)

// maxErrorMessage bounds the raw body echoed into a ServerError.
const maxErrorMessage = 200

// ServerError is a non-2xx answer from the backend.
type ServerError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error %d", e.StatusCode)
	}
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// classifyTransportError maps a failure that produced no HTTP status.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// classifyStatus maps a non-2xx response.
func classifyStatus(status int, body []byte) error {
	if status == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	return &ServerError{StatusCode: status, Message: errorMessage(body)}
}

// errorMessage extracts the backend's error text from common JSON shapes,
// falling back to the trimmed raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Detail  any    `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := unmarshal(body, &payload); err == nil {
		switch d := payload.Detail.(type) {
		case string:
			if d != "" {
				return d
			}
		case nil:
		default:
			return fmt.Sprint(d)
		}
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage] + "..."
	}
	return msg
}

func wrap(operation string, status int, err error) error {
	return pkgerrors.New(component, operation, err).WithStatusCode(status)
}
