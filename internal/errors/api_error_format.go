package errors

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/tidwall/sjson"
)

var grpcStatusByHTTP = map[int]string{
	http.StatusBadRequest:          "INVALID_ARGUMENT",
	http.StatusUnauthorized:        "UNAUTHENTICATED",
	http.StatusForbidden:           "PERMISSION_DENIED",
	http.StatusNotFound:            "NOT_FOUND",
	http.StatusRequestTimeout:      "CANCELLED",
	http.StatusTooManyRequests:     StatusResourceExhausted,
	http.StatusInternalServerError: "INTERNAL",
	http.StatusBadGateway:          "UNAVAILABLE",
	http.StatusServiceUnavailable:  "UNAVAILABLE",
	http.StatusGatewayTimeout:      "DEADLINE_EXCEEDED",
}

// retry hints in seconds when the provider sent none
var defaultRetryAfter = map[int]int{
	http.StatusTooManyRequests:    60,
	http.StatusServiceUnavailable: 30,
	http.StatusBadGateway:         15,
	http.StatusGatewayTimeout:     15,
}

// ParseErrorFormat maps a query value to a format; anything unknown is Gemini.
func ParseErrorFormat(s string) ErrorFormat {
	if ErrorFormat(s) == FormatOpenAI {
		return FormatOpenAI
	}
	return FormatGemini
}

// Render encodes e in the requested envelope:
//
//	gemini: {"error":{"code":429,"message":"..","status":"RESOURCE_EXHAUSTED"}}
//	openai: {"error":{"message":"..","type":"rate_limit_error","code":"rate_limited"}}
func (e *APIError) Render(format ErrorFormat) ([]byte, error) {
	var (
		body = []byte(`{"error":{}}`)
		err  error
	)
	set := func(path string, v any) {
		if err == nil {
			body, err = sjson.SetBytes(body, path, v)
		}
	}
	if format == FormatOpenAI {
		set("error.message", e.Message)
		set("error.type", e.Type)
		if e.Code != "" {
			set("error.code", e.Code)
		}
	} else {
		set("error.code", e.HTTPStatus)
		set("error.message", e.Message)
		set("error.status", e.grpcStatus())
	}
	if len(e.Details) > 0 {
		set("error.details", e.Details)
	}
	return body, err
}

func (e *APIError) grpcStatus() string {
	if e.UpstreamStatus != "" {
		return e.UpstreamStatus
	}
	if s, ok := grpcStatusByHTTP[e.HTTPStatus]; ok {
		return s
	}
	return "UNKNOWN"
}

func New(httpStatus int, code, errType, message string) *APIError {
	return &APIError{HTTPStatus: httpStatus, Code: code, Type: errType, Message: message}
}

// SuggestedRetryAfter is the provider's Retry-After when it sent one,
// otherwise a per-status default. Zero means no hint.
func (e *APIError) SuggestedRetryAfter() int {
	if e.RetryAfter > 0 {
		return e.RetryAfter
	}
	return defaultRetryAfter[e.HTTPStatus]
}

// ToAPIError converts any error leaving the execution core into the error
// rendered to HTTP callers.
func ToAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var all *AllTiersExhaustedError
	var terminal *TerminalQuotaError
	switch {
	case stderrors.As(err, &all), stderrors.As(err, &terminal):
		return New(http.StatusTooManyRequests, "service_saturated", "rate_limit_error",
			"Service temporarily saturated, try again later")
	case stderrors.Is(err, ErrEmptyPool):
		return New(http.StatusServiceUnavailable, "no_credentials", "server_error", err.Error())
	case stderrors.Is(err, ErrNoTiers):
		return New(http.StatusInternalServerError, "no_tiers", "server_error", err.Error())
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return MapNetworkError(err)
	}
	var api *APIError
	if stderrors.As(err, &api) {
		return api
	}
	return New(http.StatusInternalServerError, "server_error", "server_error", err.Error())
}
