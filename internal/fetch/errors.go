package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

var (
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrInvalidURL       = errors.New("invalid url")
)

// StatusError is a non-200 response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d %s for %s", e.Code, http.StatusText(e.Code), e.URL)
}

// IsTransientStatus reports whether a response status is worth retrying:
// server errors, 403 and 429.
func IsTransientStatus(code int) bool {
	return code >= 500 || code == http.StatusForbidden || code == http.StatusTooManyRequests
}

// IsTransient classifies an attempt error. Transient statuses and network
// failures retry; other statuses, bad requests and cancellation do not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, ErrInvalidURL) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return IsTransientStatus(statusErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}
