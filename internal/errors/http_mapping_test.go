package errors

import (
	"context"
	"crypto/x509"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestMapHTTPErrorReadsEnvelope(t *testing.T) {
	body := []byte(`{"error":{"code":429,"message":"Quota exceeded for model","status":"RESOURCE_EXHAUSTED"}}`)
	e := MapHTTPError(http.StatusTooManyRequests, body)
	assert.Equal(t, http.StatusTooManyRequests, e.HTTPStatus)
	assert.Equal(t, 429, e.UpstreamCode)
	assert.Equal(t, StatusResourceExhausted, e.UpstreamStatus)
	assert.Equal(t, "Quota exceeded for model", e.Message)
}

func TestMapHTTPErrorArrayEnvelope(t *testing.T) {
	body := []byte(`[{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}]`)
	e := MapHTTPError(http.StatusServiceUnavailable, body)
	assert.Equal(t, "overloaded", e.Message)
	assert.Equal(t, "UNAVAILABLE", e.UpstreamStatus)
}

func TestMapHTTPErrorPlainBody(t *testing.T) {
	e := MapHTTPError(http.StatusBadGateway, []byte(strings.Repeat("x", 300)))
	assert.Equal(t, "bad_gateway", e.Code)
	assert.True(t, strings.HasSuffix(e.Message, "..."))
	assert.Len(t, e.Message, 203)

	e = MapHTTPError(418, nil)
	assert.Equal(t, "HTTP 418 error", e.Message)
}

func TestRenderFormats(t *testing.T) {
	e := MapHTTPError(http.StatusTooManyRequests, nil)

	raw, err := e.Render(FormatGemini)
	require.NoError(t, err)
	assert.EqualValues(t, 429, gjson.GetBytes(raw, "error.code").Int())
	assert.Equal(t, StatusResourceExhausted, gjson.GetBytes(raw, "error.status").String())

	raw, err = e.Render(ParseErrorFormat("openai"))
	require.NoError(t, err)
	assert.Equal(t, "rate_limit_error", gjson.GetBytes(raw, "error.type").String())
	assert.False(t, gjson.GetBytes(raw, "error.status").Exists())

	assert.Equal(t, FormatGemini, ParseErrorFormat("xml"))
}

func TestSuggestedRetryAfter(t *testing.T) {
	e := MapHTTPError(http.StatusTooManyRequests, nil)
	assert.Equal(t, 60, e.SuggestedRetryAfter())
	e.RetryAfter = 7
	assert.Equal(t, 7, e.SuggestedRetryAfter())
	assert.Zero(t, MapHTTPError(http.StatusBadRequest, nil).SuggestedRetryAfter())
}

func TestToAPIError(t *testing.T) {
	last := MapHTTPError(429, nil)
	terminal := &TerminalQuotaError{Tier: "standard", Attempts: 3, Last: last}
	all := &AllTiersExhaustedError{Tiers: []string{"enhanced", "standard"}, Last: terminal}

	assert.Equal(t, http.StatusTooManyRequests, ToAPIError(all).HTTPStatus)
	assert.Equal(t, "service_saturated", ToAPIError(terminal).Code)
	assert.Equal(t, http.StatusServiceUnavailable, ToAPIError(ErrEmptyPool).HTTPStatus)

	bad := MapHTTPError(400, nil)
	assert.Same(t, bad, ToAPIError(bad))
	assert.Equal(t, http.StatusInternalServerError, ToAPIError(stderrors.New("boom")).HTTPStatus)
	assert.Nil(t, ToAPIError(nil))
}

func TestTerminalErrorsUnwrap(t *testing.T) {
	last := MapHTTPError(429, nil)
	terminal := &TerminalQuotaError{Tier: "enhanced", Attempts: 4, Last: last}
	all := &AllTiersExhaustedError{Tiers: []string{"enhanced"}, Last: terminal}

	var api *APIError
	require.True(t, stderrors.As(all, &api))
	require.Same(t, last, api)
	require.True(t, IsTerminal(all))
	require.True(t, IsTerminal(terminal))
	require.False(t, IsTerminal(last))
	require.Contains(t, terminal.Error(), `tier "enhanced" after 4 attempts`)
	require.True(t, stderrors.Is(ErrEmptyPool, EmptyPoolError{}))
}

func TestMapNetworkError(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{context.Canceled, "request_canceled"},
		{fmt.Errorf("post: %w", context.DeadlineExceeded), "timeout"},
		{&net.DNSError{Err: "no such host", Name: "example.invalid"}, "dns_error"},
		{&net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, "connection_error"},
		{fmt.Errorf("read: %w", io.ErrUnexpectedEOF), "connection_error"},
		{x509.UnknownAuthorityError{}, "tls_error"},
		{stderrors.New("something odd"), "network_error"},
	}
	for _, tc := range cases {
		apiErr := MapNetworkError(tc.err)
		require.NotNil(t, apiErr)
		assert.Equal(t, tc.code, apiErr.Code, tc.err.Error())
		assert.Equal(t, Fatal, Classify(apiErr), tc.err.Error())
	}
	assert.Nil(t, MapNetworkError(nil))
}
