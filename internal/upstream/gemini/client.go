package gemini

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quotaflow-go/internal/config"
	"quotaflow-go/internal/credential"
	apperrors "quotaflow-go/internal/errors"
	"quotaflow-go/internal/monitoring"
	"quotaflow-go/internal/monitoring/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxErrorBody bounds how much of a failed response is read for the error envelope.
const maxErrorBody = 64 << 10

// Client calls the generateContent endpoint with an API key credential.
// It never retries; retry and rotation belong to the upstream executor.
type Client struct {
	baseURL   string
	userAgent string
	cli       *http.Client
}

// New builds a client whose transport is traced with otelhttp.
func New(cfg config.UpstreamConfig) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout(),
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
	}
	transport := otelhttp.NewTransport(tr,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("Gemini %s %s", r.Method, r.URL.Host)
		}),
	)
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		cli:       &http.Client{Transport: transport, Timeout: cfg.Timeout()},
	}
}

// NewWithHTTPClient is used by tests to point the client at an httptest server.
func NewWithHTTPClient(baseURL string, cli *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), userAgent: "quotaflow-go", cli: cli}
}

// Generate posts payload to models/{model}:generateContent and returns the raw
// response body. Non-2xx answers come back as *errors.APIError so the
// executor can classify them.
func (c *Client) Generate(ctx context.Context, key credential.Credential, model string, payload []byte) ([]byte, error) {
	endpoint := c.baseURL + BuildModelActionPath(model, ActionGenerate)

	ctx, span := tracing.StartSpan(ctx, "upstream/gemini", "Gemini.Generate",
		trace.WithAttributes(
			attribute.String("upstream.model", model),
			attribute.String("credential", key.Masked()),
		))
	defer span.End()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.applyDefaultHeaders(req, key)

	resp, err := c.cli.Do(req)
	if err != nil {
		monitoring.UpstreamRequestDuration.WithLabelValues(model, "error").Observe(time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.MapNetworkError(err)
	}
	defer resp.Body.Close()

	monitoring.UpstreamRequestDuration.WithLabelValues(model, monitoring.StatusClass(resp.StatusCode)).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := apperrors.MapHTTPError(resp.StatusCode, body)
		if secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && secs > 0 {
			apiErr.RetryAfter = secs
		}
		span.SetStatus(codes.Error, fmt.Sprintf("http_status=%d", resp.StatusCode))
		log.WithFields(log.Fields{
			"model":      model,
			"status":     resp.StatusCode,
			"credential": key.Masked(),
		}).Debug("upstream returned error")
		return nil, apiErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("read response: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return body, nil
}

func (c *Client) applyDefaultHeaders(req *http.Request, key credential.Credential) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-goog-api-key", string(key))
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

// modelPath escapes a model id for use as a path segment.
func modelPath(model string) string {
	return url.PathEscape(strings.TrimPrefix(strings.TrimSpace(model), "models/"))
}
