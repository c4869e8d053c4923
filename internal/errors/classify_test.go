package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type topLevelErr struct{ status int }

func (e topLevelErr) Error() string   { return "request failed" }
func (e topLevelErr) StatusCode() int { return e.status }

type nestedResponseErr struct{ status int }

func (e nestedResponseErr) Error() string       { return "client error" }
func (e nestedResponseErr) ResponseStatus() int { return e.status }

type detailErr struct {
	code   int
	status string
}

func (e detailErr) Error() string        { return "structured error" }
func (e detailErr) DetailCode() int      { return e.code }
func (e detailErr) DetailStatus() string { return e.status }

type panickyErr struct{}

func (panickyErr) Error() string   { panic("boom") }
func (panickyErr) StatusCode() int { panic("boom") }

func TestClassifyDecisionTable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"top-level 429", topLevelErr{429}, Transient},
		{"top-level 503", topLevelErr{503}, Transient},
		{"top-level 500", topLevelErr{500}, Fatal},
		{"top-level 400", topLevelErr{400}, Fatal},
		{"nested response 429", nestedResponseErr{429}, Transient},
		{"nested response 503 is not enough", nestedResponseErr{503}, Fatal},
		{"detail code 429", detailErr{code: 429}, Transient},
		{"detail status exhausted", detailErr{status: StatusResourceExhausted}, Transient},
		{"detail status other", detailErr{code: 400, status: "INVALID_ARGUMENT"}, Fatal},
		{"message 429", stderrors.New("got HTTP 429 from upstream"), Transient},
		{"message 403", stderrors.New("403 Forbidden"), Transient},
		{"message token", stderrors.New("RESOURCE_EXHAUSTED: try later"), Transient},
		{"message quota mixed case", stderrors.New("Daily Quota exceeded"), Transient},
		{"plain message", stderrors.New("invalid argument: contents is empty"), Fatal},
		{"nil", nil, Fatal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestClassifyWrappedErrors(t *testing.T) {
	err := fmt.Errorf("call generateContent: %w", topLevelErr{429})
	require.Equal(t, Transient, Classify(err))

	api := MapHTTPError(400, []byte(`{"error":{"code":400,"message":"bad","status":"INVALID_ARGUMENT"}}`))
	require.Equal(t, Fatal, Classify(fmt.Errorf("wrapped: %w", api)))
}

func TestClassifyFatalLabelWins(t *testing.T) {
	err := &FatalRequestError{Err: topLevelErr{429}}
	require.Equal(t, Fatal, Classify(err))
}

func TestClassifyNeverPanics(t *testing.T) {
	require.NotPanics(t, func() {
		require.Equal(t, Fatal, Classify(panickyErr{}))
	})

	var nilAPI *APIError
	require.NotPanics(t, func() {
		require.Equal(t, Fatal, Classify(fmt.Errorf("x: %w", error(nilAPI))))
	})
}

func TestClassifyAPIErrorFromEnvelope(t *testing.T) {
	// Gemini sometimes answers 400 with a RESOURCE_EXHAUSTED body.
	api := MapHTTPError(400, []byte(`{"error":{"code":400,"message":"limit","status":"RESOURCE_EXHAUSTED"}}`))
	require.Equal(t, Transient, Classify(api))

	api = MapHTTPError(429, nil)
	require.Equal(t, Transient, Classify(api))
	require.Equal(t, "rate_limit_exceeded", api.Code)
}
