package types

import "time"

// Default tuning values. The acceptance and duplicate thresholds were
// tuned against observed false positives and are configurable.
const (
	DefaultPrimaryThreshold   = 70.0
	DefaultSecondaryThreshold = 50.0
	DefaultCacheTTL           = 30 * 24 * time.Hour
	DefaultMaxRetries         = 3
	DefaultRetryBaseDelay     = 2 * time.Second
	DefaultSearchLimit        = 10
	DefaultWorkers            = 4
	DefaultLookupTimeout      = 60 * time.Second
	DefaultUserAgent          = "citeverify/0.1"

	DefaultDuplicateTitleThreshold  = 99.5
	DefaultDuplicateAuthorThreshold = 80.0

	DefaultVerifiedThreshold = 80.0
	DefaultWarningThreshold  = 50.0
)

// Registry names for the built-in sources.
const (
	RegistryOpenAlex        = "openalex"
	RegistryCrossref        = "crossref"
	RegistrySemanticScholar = "semantic_scholar"
)

// HTTPConfig holds shared HTTP settings used by every registry source.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RegistryConfig configures one external registry.
type RegistryConfig struct {
	// Name selects the source implementation: openalex, crossref, semantic_scholar.
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Primary marks the registry whose stricter acceptance threshold applies.
	Primary bool `json:"primary" yaml:"primary" mapstructure:"primary"`

	// Threshold is the minimum title similarity (0-100) for accepting a
	// search candidate. Zero selects 70 for the primary registry and 50
	// otherwise.
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold"`

	// RatePerSecond is the token-bucket refill rate for this registry.
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst         int     `json:"burst" yaml:"burst" mapstructure:"burst"`

	// MaxRetries and RetryBaseDelay govern backoff on 429 and 5xx responses.
	MaxRetries     int           `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay" mapstructure:"retry_base_delay"`

	// SearchLimit is the number of candidates requested per search.
	SearchLimit int `json:"search_limit" yaml:"search_limit" mapstructure:"search_limit"`

	// BaseURL overrides the registry's public endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey is sent by registries that accept one (Semantic Scholar).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Email is sent as mailto for polite-pool access (OpenAlex, Crossref).
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`
}

// EffectiveThreshold returns Threshold or the default for the registry's role.
func (c RegistryConfig) EffectiveThreshold() float64 {
	if c.Threshold > 0 {
		return c.Threshold
	}
	if c.Primary {
		return DefaultPrimaryThreshold
	}
	return DefaultSecondaryThreshold
}

// CacheBackend selects the cache store implementation.
type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheSQLite CacheBackend = "sqlite"
	CacheRedis  CacheBackend = "redis"
	CacheNone   CacheBackend = "none"
)

// CacheConfig configures the registry response cache.
type CacheConfig struct {
	Backend CacheBackend  `json:"backend" yaml:"backend" mapstructure:"backend"`
	TTL     time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`

	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	RedisAddr     string `json:"redis_addr" yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db" mapstructure:"redis_db"`

	// Prefix namespaces keys in shared stores.
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
}

// Weights are the confidence fusion weights. They sum to 1.
type Weights struct {
	Title   float64 `json:"title" yaml:"title" mapstructure:"title"`
	Author  float64 `json:"author" yaml:"author" mapstructure:"author"`
	Year    float64 `json:"year" yaml:"year" mapstructure:"year"`
	DOI     float64 `json:"doi" yaml:"doi" mapstructure:"doi"`
	Sources float64 `json:"sources" yaml:"sources" mapstructure:"sources"`
}

// DefaultWeights returns title .40, author .25, year .15, DOI .10, sources .10.
func DefaultWeights() Weights {
	return Weights{Title: 0.40, Author: 0.25, Year: 0.15, DOI: 0.10, Sources: 0.10}
}

// VerifyConfig holds settings for the cross-validator.
type VerifyConfig struct {
	// LookupTimeout bounds each registry lookup for one citation.
	LookupTimeout time.Duration `json:"lookup_timeout" yaml:"lookup_timeout" mapstructure:"lookup_timeout"`

	Weights Weights `json:"weights" yaml:"weights" mapstructure:"weights"`

	VerifiedThreshold float64 `json:"verified_threshold" yaml:"verified_threshold" mapstructure:"verified_threshold"`
	WarningThreshold  float64 `json:"warning_threshold" yaml:"warning_threshold" mapstructure:"warning_threshold"`
}

// DedupConfig holds the duplicate detector thresholds.
type DedupConfig struct {
	TitleThreshold  float64 `json:"title_threshold" yaml:"title_threshold" mapstructure:"title_threshold"`
	AuthorThreshold float64 `json:"author_threshold" yaml:"author_threshold" mapstructure:"author_threshold"`
}

// BatchConfig holds settings for the batch orchestrator.
type BatchConfig struct {
	// Workers is the number of citations verified concurrently.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// LogConfig selects log level ("debug", "info", "warn", "error") and
// format ("console" or "json").
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	// Textfile, when set, receives the Prometheus text exposition after a run.
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty" mapstructure:"textfile"`
}

// Config groups all engine configuration.
type Config struct {
	HTTP       HTTPConfig       `json:"http" yaml:"http" mapstructure:"http"`
	Registries []RegistryConfig `json:"registries" yaml:"registries" mapstructure:"registries"`
	Cache      CacheConfig      `json:"cache" yaml:"cache" mapstructure:"cache"`
	Verify     VerifyConfig     `json:"verify" yaml:"verify" mapstructure:"verify"`
	Dedup      DedupConfig      `json:"dedup" yaml:"dedup" mapstructure:"dedup"`
	Batch      BatchConfig      `json:"batch" yaml:"batch" mapstructure:"batch"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

// DefaultRegistries returns OpenAlex as primary with Crossref and Semantic
// Scholar as secondary registries.
func DefaultRegistries() []RegistryConfig {
	return []RegistryConfig{
		{
			Name: RegistryOpenAlex, Enabled: true, Primary: true,
			Threshold: DefaultPrimaryThreshold, RatePerSecond: 10, Burst: 1,
			MaxRetries: DefaultMaxRetries, RetryBaseDelay: DefaultRetryBaseDelay,
			SearchLimit: DefaultSearchLimit,
		},
		{
			Name: RegistryCrossref, Enabled: true,
			Threshold: DefaultSecondaryThreshold, RatePerSecond: 10, Burst: 1,
			MaxRetries: DefaultMaxRetries, RetryBaseDelay: DefaultRetryBaseDelay,
			SearchLimit: DefaultSearchLimit,
		},
		{
			Name: RegistrySemanticScholar, Enabled: true,
			Threshold: DefaultSecondaryThreshold, RatePerSecond: 1, Burst: 1,
			MaxRetries: DefaultMaxRetries, RetryBaseDelay: DefaultRetryBaseDelay,
			SearchLimit: DefaultSearchLimit,
		},
	}
}

// DefaultVerifyConfig returns the cross-validator defaults.
func DefaultVerifyConfig() VerifyConfig {
	return VerifyConfig{
		LookupTimeout:     DefaultLookupTimeout,
		Weights:           DefaultWeights(),
		VerifiedThreshold: DefaultVerifiedThreshold,
		WarningThreshold:  DefaultWarningThreshold,
	}
}

// DefaultDedupConfig returns 99.5% title, exact year, 80% author overlap.
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		TitleThreshold:  DefaultDuplicateTitleThreshold,
		AuthorThreshold: DefaultDuplicateAuthorThreshold,
	}
}

// DefaultConfig returns a complete configuration with every default applied.
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: DefaultUserAgent,
		},
		Registries: DefaultRegistries(),
		Cache: CacheConfig{
			Backend:   CacheSQLite,
			TTL:       DefaultCacheTTL,
			Path:      ".citeverify/cache.db",
			RedisAddr: "localhost:6379",
			Prefix:    "citeverify:",
		},
		Verify:  DefaultVerifyConfig(),
		Dedup:   DefaultDedupConfig(),
		Batch:   BatchConfig{Workers: DefaultWorkers},
		Log:     LogConfig{Level: "info", Format: "console"},
		Metrics: MetricsConfig{},
	}
}
