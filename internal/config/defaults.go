package config

const (
	DefaultPort            = 8317
	DefaultUpstreamBaseURL = "https://generativelanguage.googleapis.com"
	DefaultFeature         = "generate"
	DefaultOverrideKey     = "quotaflow.override_credential"
	DefaultEnvPrefix       = "QUOTAFLOW_API_KEY_"
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              DefaultPort,
			ManagementEnabled: true,
		},
		Credentials: CredentialsConfig{EnvPrefix: DefaultEnvPrefix},
		Retry: RetryConfig{
			BaseDelayMS:     2000,
			Multiplier:      1.5,
			OverrideDelayMS: 2000,
		},
		Upstream: UpstreamConfig{
			BaseURL:    DefaultUpstreamBaseURL,
			TimeoutSec: 120,
			UserAgent:  "quotaflow-go",
		},
		Features: map[string][]TierConfig{
			DefaultFeature: {
				{Name: "enhanced", Model: "gemini-2.5-pro", Enhanced: true},
				{Name: "standard", Model: "gemini-2.5-flash"},
			},
		},
		Storage:     StorageConfig{Backend: "file", BaseDir: "./data", RedisPrefix: "quotaflow:"},
		Preferences: PreferencesConfig{OverrideKey: DefaultOverrideKey},
		RateLimit:   RateLimitConfig{Enabled: false, RPS: 10, Burst: 20},
		Tracing:     TracingConfig{ServiceName: "quotaflow-go", SampleRatio: 1},
	}
}

// applyDefaults fills zero values left by a partial config file.
func applyDefaults(c *Config) {
	d := DefaultConfig()
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Credentials.EnvPrefix == "" {
		c.Credentials.EnvPrefix = d.Credentials.EnvPrefix
	}
	if c.Retry.BaseDelayMS == 0 {
		c.Retry.BaseDelayMS = d.Retry.BaseDelayMS
	}
	if c.Retry.Multiplier == 0 {
		c.Retry.Multiplier = d.Retry.Multiplier
	}
	if c.Retry.OverrideDelayMS == 0 {
		c.Retry.OverrideDelayMS = d.Retry.OverrideDelayMS
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = d.Upstream.BaseURL
	}
	if c.Upstream.TimeoutSec == 0 {
		c.Upstream.TimeoutSec = d.Upstream.TimeoutSec
	}
	if c.Upstream.UserAgent == "" {
		c.Upstream.UserAgent = d.Upstream.UserAgent
	}
	if len(c.Features) == 0 {
		c.Features = d.Features
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.BaseDir == "" {
		c.Storage.BaseDir = d.Storage.BaseDir
	}
	if c.Storage.RedisPrefix == "" {
		c.Storage.RedisPrefix = d.Storage.RedisPrefix
	}
	if c.Preferences.OverrideKey == "" {
		c.Preferences.OverrideKey = d.Preferences.OverrideKey
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = d.RateLimit.RPS
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = d.RateLimit.Burst
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = d.Tracing.ServiceName
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = d.Tracing.SampleRatio
	}
	c.Server.BasePath = normalizeBasePath(c.Server.BasePath)
}
