package config

import "time"

// Config is the full process configuration, loaded from yaml/json and then
// overlaid with environment variables.
type Config struct {
	Server      ServerConfig            `yaml:"server" json:"server"`
	Credentials CredentialsConfig       `yaml:"credentials" json:"credentials"`
	Retry       RetryConfig             `yaml:"retry" json:"retry"`
	Upstream    UpstreamConfig          `yaml:"upstream" json:"upstream"`
	Features    map[string][]TierConfig `yaml:"features" json:"features"`
	Storage     StorageConfig           `yaml:"storage" json:"storage"`
	Preferences PreferencesConfig       `yaml:"preferences" json:"preferences"`
	Logging     LoggingConfig           `yaml:"logging" json:"logging"`
	RateLimit   RateLimitConfig         `yaml:"rate_limit" json:"rate_limit"`
	Tracing     TracingConfig           `yaml:"tracing" json:"tracing"`
}

type ServerConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	BasePath string `yaml:"base_path" json:"base_path"`
	// ManagementEnabled exposes the pool and preference endpoints.
	ManagementEnabled bool `yaml:"management_enabled" json:"management_enabled"`
	// Management endpoints answer loopback callers only unless remote access
	// is allowed; ManagementAllowIPs then narrows it to IPs/CIDRs.
	ManagementAllowRemote bool     `yaml:"management_allow_remote" json:"management_allow_remote"`
	ManagementAllowIPs    []string `yaml:"management_allow_ips" json:"management_allow_ips"`
}

// CredentialsConfig lists API keys in rotation order. Keys from numbered
// environment variables (EnvPrefix + N) are appended after APIKeys.
type CredentialsConfig struct {
	APIKeys   []string `yaml:"api_keys" json:"api_keys"`
	EnvPrefix string   `yaml:"env_prefix" json:"env_prefix"`
}

type RetryConfig struct {
	BaseDelayMS      int     `yaml:"base_delay_ms" json:"base_delay_ms"`
	Multiplier       float64 `yaml:"multiplier" json:"multiplier"`
	OverrideDelayMS  int     `yaml:"override_delay_ms" json:"override_delay_ms"`
	RequestTimeoutMS int     `yaml:"request_timeout_ms" json:"request_timeout_ms"`
}

func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

func (r RetryConfig) OverrideDelay() time.Duration {
	return time.Duration(r.OverrideDelayMS) * time.Millisecond
}

func (r RetryConfig) RequestTimeout() time.Duration {
	return time.Duration(r.RequestTimeoutMS) * time.Millisecond
}

type UpstreamConfig struct {
	BaseURL    string `yaml:"base_url" json:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec" json:"timeout_sec"`
	UserAgent  string `yaml:"user_agent" json:"user_agent"`
}

func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSec) * time.Second
}

// TierConfig is one backend configuration for a feature, tried in list order.
type TierConfig struct {
	Name     string `yaml:"name" json:"name"`
	Model    string `yaml:"model" json:"model"`
	Enhanced bool   `yaml:"enhanced" json:"enhanced"`
}

type StorageConfig struct {
	Backend       string `yaml:"backend" json:"backend"`
	BaseDir       string `yaml:"base_dir" json:"base_dir"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix" json:"redis_prefix"`
	MongoURI      string `yaml:"mongo_uri" json:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database" json:"mongo_database"`
	PostgresDSN   string `yaml:"postgres_dsn" json:"postgres_dsn"`
}

type PreferencesConfig struct {
	OverrideKey string `yaml:"override_key" json:"override_key"`
}

// LoggingConfig selects the logrus level and formatter. Debug implies the
// debug level unless Level is set, and the text formatter unless Format is.
type LoggingConfig struct {
	Debug      bool   `yaml:"debug" json:"debug"`
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file" json:"file"`
	RequestLog bool   `yaml:"request_log" json:"request_log"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	RPS     float64 `yaml:"rps" json:"rps"`
	Burst   int     `yaml:"burst" json:"burst"`

	// KeyHeader charges callers by this header (e.g. X-API-Key) instead of IP.
	KeyHeader string `yaml:"key_header" json:"key_header"`
}

// TracingConfig controls OTLP export. Tracing stays off while Endpoint is empty.
type TracingConfig struct {
	ServiceName string  `yaml:"service_name" json:"service_name"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	TLS         bool    `yaml:"tls" json:"tls"`
	SampleRatio float64 `yaml:"sample_ratio" json:"sample_ratio"`
}

// Clone returns a deep copy so callers can hold on to a snapshot.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Credentials.APIKeys = append([]string(nil), c.Credentials.APIKeys...)
	out.Server.ManagementAllowIPs = append([]string(nil), c.Server.ManagementAllowIPs...)
	if c.Features != nil {
		out.Features = make(map[string][]TierConfig, len(c.Features))
		for name, tiers := range c.Features {
			out.Features[name] = append([]TierConfig(nil), tiers...)
		}
	}
	return &out
}
