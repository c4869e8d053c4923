package errors

import "fmt"

// ErrorFormat represents the target error format.
type ErrorFormat string

const (
	FormatOpenAI ErrorFormat = "openai"
	FormatGemini ErrorFormat = "gemini"
)

// APIError represents a standardized error returned by the inference provider
// or produced while rendering a failure back to an HTTP caller.
type APIError struct {
	HTTPStatus int
	Code       string
	Message    string
	Type       string
	// UpstreamCode and UpstreamStatus carry the provider's nested
	// {"error":{"code":..,"status":..}} fields when present.
	UpstreamCode   int
	UpstreamStatus string
	// RetryAfter is the provider's Retry-After header in seconds, 0 if absent.
	RetryAfter int
	Details    map[string]interface{}
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.UpstreamStatus != "" {
		return fmt.Sprintf("upstream %d %s: %s", e.HTTPStatus, e.UpstreamStatus, e.Message)
	}
	return fmt.Sprintf("upstream %d: %s", e.HTTPStatus, e.Message)
}

// StatusCode, DetailCode and DetailStatus expose the fields Classify inspects.
func (e *APIError) StatusCode() int      { return e.HTTPStatus }
func (e *APIError) DetailCode() int      { return e.UpstreamCode }
func (e *APIError) DetailStatus() string { return e.UpstreamStatus }
