package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s=%s]: %s", e.Field, e.Value, e.Message)
}

// ValidationResult holds the results of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
	Valid    bool
}

func (r *ValidationResult) AddError(field, value, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: message})
	r.Valid = false
}

func (r *ValidationResult) AddWarning(field, value, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Value: value, Message: message})
}

// Err joins all errors into one, or returns nil when the result is valid.
func (r ValidationResult) Err() error {
	if r.Valid || len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

var validBackends = []string{"file", "redis", "mongodb", "postgres"}

// Validate checks the configuration and returns validation results
func (c *Config) Validate() ValidationResult {
	result := ValidationResult{Valid: true}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		result.AddError("server.port", strconv.Itoa(c.Server.Port), "must be between 1 and 65535")
	}

	if c.Retry.BaseDelayMS < 0 {
		result.AddError("retry.base_delay_ms", strconv.Itoa(c.Retry.BaseDelayMS), "must not be negative")
	}
	if c.Retry.Multiplier < 1 {
		result.AddError("retry.multiplier", strconv.FormatFloat(c.Retry.Multiplier, 'f', -1, 64), "must be >= 1")
	}
	if c.Retry.OverrideDelayMS < 0 {
		result.AddError("retry.override_delay_ms", strconv.Itoa(c.Retry.OverrideDelayMS), "must not be negative")
	}
	if c.Retry.RequestTimeoutMS < 0 {
		result.AddError("retry.request_timeout_ms", strconv.Itoa(c.Retry.RequestTimeoutMS), "must not be negative")
	}

	if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		result.AddError("upstream.base_url", c.Upstream.BaseURL, "must be an absolute URL")
	}

	if len(c.Features) == 0 {
		result.AddError("features", "", "at least one feature is required")
	}
	for name, tiers := range c.Features {
		field := "features." + name
		if len(tiers) == 0 {
			result.AddError(field, "", "at least one tier is required")
			continue
		}
		seen := map[string]bool{}
		for i, tier := range tiers {
			if strings.TrimSpace(tier.Model) == "" {
				result.AddError(fmt.Sprintf("%s[%d].model", field, i), "", "model is required")
			}
			if tier.Name != "" && seen[tier.Name] {
				result.AddWarning(fmt.Sprintf("%s[%d].name", field, i), tier.Name, "duplicate tier name")
			}
			seen[tier.Name] = true
		}
	}

	if !contains(validBackends, c.Storage.Backend) {
		result.AddError("storage.backend", c.Storage.Backend,
			fmt.Sprintf("must be one of: %s", strings.Join(validBackends, ", ")))
	}
	switch c.Storage.Backend {
	case "redis":
		if c.Storage.RedisAddr == "" {
			result.AddError("storage.redis_addr", "", "required when using redis backend")
		}
	case "mongodb":
		if c.Storage.MongoURI == "" {
			result.AddError("storage.mongo_uri", "", "required when using mongodb backend")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			result.AddError("storage.postgres_dsn", "", "required when using postgres backend")
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RPS <= 0 {
			result.AddError("rate_limit.rps", strconv.FormatFloat(c.RateLimit.RPS, 'f', -1, 64), "must be positive when enabled")
		}
		if c.RateLimit.Burst <= 0 {
			result.AddError("rate_limit.burst", strconv.Itoa(c.RateLimit.Burst), "must be positive when enabled")
		}
	}

	if c.Logging.Level != "" {
		if _, err := log.ParseLevel(c.Logging.Level); err != nil {
			result.AddError("logging.level", c.Logging.Level, "unknown log level")
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		result.AddError("logging.format", c.Logging.Format, "must be json or text")
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		result.AddError("tracing.sample_ratio", strconv.FormatFloat(c.Tracing.SampleRatio, 'f', -1, 64), "must be between 0 and 1")
	}

	if len(c.Credentials.APIKeys) == 0 {
		result.AddWarning("credentials.api_keys", "", fmt.Sprintf("no static keys, relying on %sN environment variables", c.Credentials.EnvPrefix))
	}
	return result
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
