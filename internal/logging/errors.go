package logging

import (
	"context"
	"errors"

	apperrors "quotaflow-go/internal/errors"
)

// ErrorKind normalizes error categories for logs/metrics.
// It maps HTTP status codes and presence of error to a short string label.
func ErrorKind(status int, hasErr bool) string {
	if hasErr && status == 0 {
		return "network_error"
	}
	switch {
	case status == 429:
		return "upstream_429"
	case status == 401:
		return "upstream_401"
	case status == 403:
		return "upstream_403"
	case status >= 500 && status < 600:
		return "upstream_5xx"
	case status >= 400 && status < 500:
		return "upstream_4xx"
	}
	if hasErr {
		return "error"
	}
	return "ok"
}

// KindOf labels an error returned by the request core.
func KindOf(err error) string {
	if err == nil {
		return "ok"
	}
	var (
		terminal *apperrors.TerminalQuotaError
		allTiers *apperrors.AllTiersExhaustedError
	)
	switch {
	case errors.As(err, &allTiers):
		return "all_tiers_exhausted"
	case errors.As(err, &terminal):
		return "quota_exhausted"
	case errors.Is(err, apperrors.ErrEmptyPool):
		return "empty_pool"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return ErrorKind(sc.StatusCode(), true)
	}
	return "error"
}
