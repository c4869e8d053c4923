package errors

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// MapHTTPError maps HTTP status codes and upstream payloads to standardized errors.
func MapHTTPError(statusCode int, upstreamBody []byte) *APIError {
	env := parseEnvelope(upstreamBody)

	var e *APIError
	switch statusCode {
	case http.StatusBadRequest:
		e = New(statusCode, "invalid_request_error", "invalid_request_error", firstNonEmpty(env.message, "Invalid request"))
	case http.StatusUnauthorized:
		e = New(statusCode, "invalid_api_key", "authentication_error", firstNonEmpty(env.message, "Invalid authentication"))
	case http.StatusForbidden:
		e = New(statusCode, "permission_denied", "permission_error", firstNonEmpty(env.message, "Permission denied"))
	case http.StatusNotFound:
		e = New(statusCode, "not_found", "invalid_request_error", firstNonEmpty(env.message, "Resource not found"))
	case http.StatusTooManyRequests:
		e = New(statusCode, "rate_limit_exceeded", "rate_limit_error", firstNonEmpty(env.message, "Rate limit exceeded"))
	case http.StatusInternalServerError:
		e = New(statusCode, "server_error", "server_error", firstNonEmpty(env.message, "Internal server error"))
	case http.StatusBadGateway:
		e = New(statusCode, "bad_gateway", "server_error", firstNonEmpty(env.message, "Bad gateway"))
	case http.StatusServiceUnavailable:
		e = New(statusCode, "service_unavailable", "server_error", firstNonEmpty(env.message, "Service temporarily unavailable"))
	case http.StatusGatewayTimeout:
		e = New(statusCode, "timeout", "timeout_error", firstNonEmpty(env.message, "Request timeout"))
	default:
		e = New(statusCode, "unknown_error", "server_error", firstNonEmpty(env.message, fmt.Sprintf("HTTP %d error", statusCode)))
	}
	e.UpstreamCode = env.code
	e.UpstreamStatus = env.status
	return e
}

type envelope struct {
	code    int
	status  string
	message string
}

// parseEnvelope reads the provider's {"error":{...}} body. Non-JSON bodies are
// kept (truncated) as the message.
func parseEnvelope(body []byte) envelope {
	if len(body) == 0 {
		return envelope{}
	}
	if gjson.ValidBytes(body) {
		errObj := gjson.GetBytes(body, "error")
		if errObj.IsObject() {
			return envelope{
				code:    int(errObj.Get("code").Int()),
				status:  errObj.Get("status").String(),
				message: errObj.Get("message").String(),
			}
		}
		// some proxies answer with a top-level array of envelopes
		if first := gjson.GetBytes(body, "0.error"); first.IsObject() {
			return envelope{
				code:    int(first.Get("code").Int()),
				status:  first.Get("status").String(),
				message: first.Get("message").String(),
			}
		}
	}
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return envelope{message: msg}
}

func firstNonEmpty(strs ...string) string {
	for _, s := range strs {
		if s != "" {
			return s
		}
	}
	return ""
}
