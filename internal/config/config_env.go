package config

func mergeEnvVars(c *Config) {
	setStringFromEnv("QUOTAFLOW_HOST", func(v string) { c.Server.Host = v })
	setIntFromEnv("QUOTAFLOW_PORT", func(n int) {
		if n > 0 && n <= 65535 {
			c.Server.Port = n
		}
	})
	setStringFromEnv("QUOTAFLOW_BASE_PATH", func(v string) { c.Server.BasePath = normalizeBasePath(v) })
	setToggleFromEnv("QUOTAFLOW_MANAGEMENT_ENABLED", func(b bool) { c.Server.ManagementEnabled = b })
	setToggleFromEnv("QUOTAFLOW_MANAGEMENT_ALLOW_REMOTE", func(b bool) { c.Server.ManagementAllowRemote = b })
	setStringFromEnv("QUOTAFLOW_MANAGEMENT_ALLOW_IPS", func(v string) { c.Server.ManagementAllowIPs = splitAndTrim(v, ",") })

	// A comma separated list replaces api_keys from the file.
	setStringFromEnv("QUOTAFLOW_API_KEYS", func(v string) { c.Credentials.APIKeys = splitAndTrim(v, ",") })
	setStringFromEnv("QUOTAFLOW_API_KEY_PREFIX", func(v string) { c.Credentials.EnvPrefix = v })

	setIntFromEnv("QUOTAFLOW_RETRY_BASE_DELAY_MS", func(n int) { c.Retry.BaseDelayMS = n })
	setFloatFromEnv("QUOTAFLOW_RETRY_MULTIPLIER", func(f float64) { c.Retry.Multiplier = f })
	setIntFromEnv("QUOTAFLOW_OVERRIDE_DELAY_MS", func(n int) { c.Retry.OverrideDelayMS = n })
	setIntFromEnv("QUOTAFLOW_REQUEST_TIMEOUT_MS", func(n int) { c.Retry.RequestTimeoutMS = n })

	setStringFromEnv("QUOTAFLOW_UPSTREAM_BASE_URL", func(v string) { c.Upstream.BaseURL = v })
	setIntFromEnv("QUOTAFLOW_UPSTREAM_TIMEOUT_SEC", func(n int) { c.Upstream.TimeoutSec = n })

	setStringFromEnv("QUOTAFLOW_STORAGE_BACKEND", func(v string) { c.Storage.Backend = v })
	setStringFromEnv("QUOTAFLOW_STORAGE_DIR", func(v string) { c.Storage.BaseDir = v })
	setStringFromEnv("REDIS_ADDR", func(v string) { c.Storage.RedisAddr = v })
	setStringFromEnv("REDIS_PASSWORD", func(v string) { c.Storage.RedisPassword = v })
	setIntFromEnv("REDIS_DB", func(n int) { c.Storage.RedisDB = n })
	setStringFromEnv("MONGODB_URI", func(v string) { c.Storage.MongoURI = v })
	setStringFromEnv("MONGODB_DATABASE", func(v string) { c.Storage.MongoDatabase = v })
	setStringFromEnv("POSTGRES_DSN", func(v string) { c.Storage.PostgresDSN = v })

	setStringFromEnv("QUOTAFLOW_OVERRIDE_KEY", func(v string) { c.Preferences.OverrideKey = v })

	setToggleFromEnv("QUOTAFLOW_DEBUG", func(b bool) { c.Logging.Debug = b })
	setStringFromEnv("LOG_FILE", func(v string) { c.Logging.File = v })
	setStringFromEnv("QUOTAFLOW_LOG_LEVEL", func(v string) { c.Logging.Level = v })
	setStringFromEnv("QUOTAFLOW_LOG_FORMAT", func(v string) { c.Logging.Format = v })
	setToggleFromEnv("QUOTAFLOW_REQUEST_LOG", func(b bool) { c.Logging.RequestLog = b })

	setToggleFromEnv("QUOTAFLOW_RATE_LIMIT_ENABLED", func(b bool) { c.RateLimit.Enabled = b })
	setFloatFromEnv("QUOTAFLOW_RATE_LIMIT_RPS", func(f float64) { c.RateLimit.RPS = f })
	setIntFromEnv("QUOTAFLOW_RATE_LIMIT_BURST", func(n int) { c.RateLimit.Burst = n })
	setStringFromEnv("QUOTAFLOW_RATE_LIMIT_KEY_HEADER", func(v string) { c.RateLimit.KeyHeader = v })

	setStringFromEnv("OTEL_SERVICE_NAME", func(v string) { c.Tracing.ServiceName = v })
	setStringFromEnv("OTEL_EXPORTER_OTLP_ENDPOINT", func(v string) { c.Tracing.Endpoint = v })
	setToggleFromEnv("OTEL_EXPORTER_OTLP_INSECURE", func(b bool) { c.Tracing.TLS = !b })
	setFloatFromEnv("QUOTAFLOW_TRACE_SAMPLE_RATIO", func(f float64) { c.Tracing.SampleRatio = f })
}
