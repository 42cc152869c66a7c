// Package config resolves the settings of a conformance run.
//
// Every value is resolved with the precedence: explicit flag, then
// environment variable, then .env file, then the built-in default.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/gauthierbraillon/ccconform/internal/aggregator"
	"github.com/gauthierbraillon/ccconform/pkg/token"
)

const (
	DefaultRequestTimeout     = 30 * time.Second
	DefaultAggregationTimeout = 60 * time.Second
	DefaultEnvFile            = ".env"

	OutputText = "text"
	OutputJSON = "json"
)

var (
	ErrInvalidEndpoint = errors.New("invalid endpoint")
	ErrInvalidTimeout  = errors.New("invalid timeout")
	ErrInvalidOutput   = errors.New("invalid output format")
	ErrInvalidMaxPages = errors.New("invalid max pages")
)

// Environment variables, listed in lookup order per setting.
var (
	EndpointEnv           = []string{"npm_config_endpoint", "WDAY_CC_TEST_ENDPOINT"}
	TokenEnv              = []string{"npm_config_token", "WDAY_CC_TEST_TOKEN"}
	KeyEnv                = []string{"WDAY_CC_TEST_KEY"}
	TimeoutEnv            = []string{"WDAY_CC_TEST_TIMEOUT"}
	AggregationTimeoutEnv = []string{"WDAY_CC_TEST_AGGREGATION_TIMEOUT"}
	MaxPagesEnv           = []string{"WDAY_CC_TEST_MAX_PAGES"}
	LogLevelEnv           = []string{"LOG_LEVEL"}
	MetricsFileEnv        = []string{"CCCONFORM_METRICS_FILE"}
	EnvFileEnv            = "CCCONFORM_ENV_FILE"
)

// Config is immutable for the duration of a run. An empty Token means one
// must be generated.
type Config struct {
	Endpoint           string
	Token              string
	KeyPath            string
	RequestTimeout     time.Duration
	AggregationTimeout time.Duration
	MaxPages           int
	LogLevel           string
	Output             string
	MetricsFile        string
}

// Overrides holds values given explicitly on the command line. Zero values
// mean "not given".
type Overrides struct {
	Endpoint           string
	Token              string
	KeyPath            string
	RequestTimeout     time.Duration
	AggregationTimeout time.Duration
	MaxPages           int
	LogLevel           string
	Output             string
	MetricsFile        string
}

// DefaultEndpoint is the local listing endpoint with the standard filter.
func DefaultEndpoint() string {
	filter, _ := json.Marshal(map[string]int{"limit": 1000, "skip": 0})
	return "http://localhost:8080/api/contents?filter=" + url.QueryEscape(string(filter))
}

// Load resolves the configuration and validates it.
func Load(o Overrides) (*Config, error) {
	loadEnvFile()

	requestTimeout, err := durationSetting(o.RequestTimeout, TimeoutEnv, DefaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	aggregationTimeout, err := durationSetting(o.AggregationTimeout, AggregationTimeoutEnv, DefaultAggregationTimeout)
	if err != nil {
		return nil, err
	}
	maxPages, err := intSetting(o.MaxPages, MaxPagesEnv, aggregator.DefaultMaxPages)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Endpoint:           first(o.Endpoint, lookup(EndpointEnv), DefaultEndpoint()),
		Token:              first(o.Token, lookup(TokenEnv)),
		KeyPath:            first(o.KeyPath, lookup(KeyEnv), token.DefaultKeyPath),
		RequestTimeout:     requestTimeout,
		AggregationTimeout: aggregationTimeout,
		MaxPages:           maxPages,
		LogLevel:           first(o.LogLevel, lookup(LogLevelEnv), "info"),
		Output:             first(o.Output, OutputText),
		MetricsFile:        first(o.MetricsFile, lookup(MetricsFileEnv)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the resolved values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidEndpoint, c.Endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w %q: must be an absolute http(s) URL", ErrInvalidEndpoint, c.Endpoint)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive, got %s", ErrInvalidTimeout, c.RequestTimeout)
	}
	if c.AggregationTimeout <= 0 {
		return fmt.Errorf("%w: aggregation timeout must be positive, got %s", ErrInvalidTimeout, c.AggregationTimeout)
	}

	if c.MaxPages <= 0 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidMaxPages, c.MaxPages)
	}

	if c.Output != OutputText && c.Output != OutputJSON {
		return fmt.Errorf("%w %q: must be %q or %q", ErrInvalidOutput, c.Output, OutputText, OutputJSON)
	}

	return nil
}

// GenerateToken reports whether no token was supplied.
func (c *Config) GenerateToken() bool {
	return c.Token == ""
}

func loadEnvFile() {
	path := os.Getenv(EnvFileEnv)
	if path == "" {
		path = DefaultEnvFile
	}

	if _, err := os.Stat(path); err != nil {
		// .env file not found - this is OK in CI/CD where env vars are set directly
		return
	}

	// godotenv.Load never overrides variables already set in the environment.
	if err := godotenv.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file from %s: %v\n", path, err)
	}
}

func lookup(keys []string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func durationSetting(override time.Duration, keys []string, defaultValue time.Duration) (time.Duration, error) {
	if override != 0 {
		return override, nil
	}

	raw := lookup(keys)
	if raw == "" {
		return defaultValue, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidTimeout, raw, err)
	}

	return d, nil
}

func intSetting(override int, keys []string, defaultValue int) (int, error) {
	if override != 0 {
		return override, nil
	}

	raw := lookup(keys)
	if raw == "" {
		return defaultValue, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w %q: must be a positive integer", ErrInvalidMaxPages, raw)
	}

	return n, nil
}
