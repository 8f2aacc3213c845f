package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultPushPath       = "/api/prom/push"
	DefaultPasswordEnv    = "PROMETHEUS_PASSWORD"
	DefaultRemoteTimeout  = 10 * time.Second
	DefaultMaxAttempts    = 3
	DefaultBackoffInitial = 500 * time.Millisecond
	DefaultBackoffMax     = 5 * time.Second
	DefaultSourceTimeout  = 30 * time.Second
	DefaultCycleTimeout   = 2 * time.Minute
	DefaultMaxEvents      = 10

	DefaultWeatherURL  = "https://api.gael.cloud/general/public/clima"
	DefaultSeismicURL  = "https://api.gael.cloud/general/public/sismos"
	DefaultCurrencyURL = "https://api.gael.cloud/general/public/monedas"
)

// Environment variables consulted by Load. They take precedence over the file.
const (
	EnvRemoteURL  = "PROMETHEUS_URL"
	EnvRemoteUser = "PROMETHEUS_USER"
	EnvTextfile   = "COLLECTOR_TEXTFILE"
)

// DefaultCurrencyCodes is the set of codes tracked when the config names none.
var DefaultCurrencyCodes = []string{"UF", "USD", "EUR", "UTM", "GBP", "CAD", "AUD", "BRL", "ARS", "MXN"}

// Config is the complete configuration of one collection cycle.
type Config struct {
	// Remote describes the metrics ingestion endpoint samples are pushed to.
	Remote RemoteConfig `yaml:"remote"`

	// Sources configures the upstream public APIs.
	Sources SourcesConfig `yaml:"sources"`

	// CycleTimeout bounds a whole fetch-map-push cycle. When it expires,
	// in-flight work is aborted and the cycle fails.
	CycleTimeout time.Duration `yaml:"cycle_timeout"`

	// Telemetry configures the collector's own run statistics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RemoteConfig holds the push endpoint and its credentials.
type RemoteConfig struct {
	// URL is the base URL of the backend, without the push path.
	URL string `yaml:"url"`

	// PushPath is appended to URL to form the push endpoint.
	PushPath string `yaml:"push_path"`

	// Username is the basic-auth user (safe to store in config).
	Username string `yaml:"username"`

	// PasswordEnv is the name of the environment variable that holds the password.
	PasswordEnv string `yaml:"password_env"`

	// Timeout bounds a single push attempt.
	Timeout time.Duration `yaml:"timeout"`

	// MaxAttempts is the total number of attempts for a transient failure.
	MaxAttempts int `yaml:"max_attempts"`

	// BackoffInitial is the delay before the second attempt; it doubles
	// after every further failure, capped at BackoffMax.
	BackoffInitial time.Duration `yaml:"backoff_initial"`
	BackoffMax     time.Duration `yaml:"backoff_max"`

	// CheckCert enables the TLS certificate preflight of the push host.
	CheckCert bool `yaml:"check_cert"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// Password returns the basic-auth password resolved from the environment.
func (r RemoteConfig) Password() string {
	if r.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(r.PasswordEnv)
}

// Endpoint returns the full push URL.
func (r RemoteConfig) Endpoint() string {
	return r.URL + r.PushPath
}

// TLSConfig holds TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// SourcesConfig configures the three upstream APIs.
type SourcesConfig struct {
	// Timeout bounds each source request.
	Timeout time.Duration `yaml:"timeout"`

	Weather  SourceConfig   `yaml:"weather"`
	Seismic  SeismicConfig  `yaml:"seismic"`
	Currency CurrencyConfig `yaml:"currency"`
}

// SourceConfig holds the settings common to every source.
type SourceConfig struct {
	URL      string `yaml:"url"`
	Disabled bool   `yaml:"disabled"`
}

// SeismicConfig configures the earthquake source.
type SeismicConfig struct {
	SourceConfig `yaml:",inline"`

	// MaxEvents keeps only the first MaxEvents events of the response,
	// which lists the most recent first.
	MaxEvents int `yaml:"max_events"`
}

// CurrencyConfig configures the currency source.
type CurrencyConfig struct {
	SourceConfig `yaml:",inline"`

	// Codes is the set of currency codes turned into records.
	Codes []string `yaml:"codes"`
}

// TelemetryConfig configures the collector's self-instrumentation.
type TelemetryConfig struct {
	// Textfile is the path the run statistics are written to after each
	// cycle, in the node exporter textfile format. Empty disables it.
	Textfile string `yaml:"textfile"`
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and the environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	applyEnv(cfg)
	cfg.Remote.URL = normalizeBaseURL(cfg.Remote.URL, cfg.Remote.PushPath)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	codes := make([]string, len(DefaultCurrencyCodes))
	copy(codes, DefaultCurrencyCodes)

	return &Config{
		Remote: RemoteConfig{
			PushPath:       DefaultPushPath,
			PasswordEnv:    DefaultPasswordEnv,
			Timeout:        DefaultRemoteTimeout,
			MaxAttempts:    DefaultMaxAttempts,
			BackoffInitial: DefaultBackoffInitial,
			BackoffMax:     DefaultBackoffMax,
		},
		Sources: SourcesConfig{
			Timeout: DefaultSourceTimeout,
			Weather: SourceConfig{URL: DefaultWeatherURL},
			Seismic: SeismicConfig{
				SourceConfig: SourceConfig{URL: DefaultSeismicURL},
				MaxEvents:    DefaultMaxEvents,
			},
			Currency: CurrencyConfig{
				SourceConfig: SourceConfig{URL: DefaultCurrencyURL},
				Codes:        codes,
			},
		},
		CycleTimeout: DefaultCycleTimeout,
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvRemoteURL)); v != "" {
		cfg.Remote.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRemoteUser)); v != "" {
		cfg.Remote.Username = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTextfile)); v != "" {
		cfg.Telemetry.Textfile = v
	}
}

// normalizeBaseURL trims whitespace and trailing slashes and drops a
// trailing push path, which operators commonly paste along with the host.
func normalizeBaseURL(raw, pushPath string) string {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	if pushPath != "" {
		s = strings.TrimSuffix(s, strings.TrimRight(pushPath, "/"))
	}
	return strings.TrimRight(s, "/")
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	r := cfg.Remote
	if r.URL == "" {
		return fmt.Errorf("remote.url is required (set %s)", EnvRemoteURL)
	}
	if err := checkURL(r.URL); err != nil {
		return fmt.Errorf("remote.url: %w", err)
	}
	if r.Username == "" {
		return fmt.Errorf("remote.username is required (set %s)", EnvRemoteUser)
	}
	if r.PasswordEnv == "" {
		return fmt.Errorf("remote.password_env is required")
	}
	if r.Password() == "" {
		return fmt.Errorf("remote password is required (set %s)", r.PasswordEnv)
	}
	if !strings.HasPrefix(r.PushPath, "/") {
		return fmt.Errorf("remote.push_path must start with /")
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be positive")
	}
	if r.MaxAttempts < 1 {
		return fmt.Errorf("remote.max_attempts must be at least 1")
	}
	if r.BackoffInitial <= 0 || r.BackoffMax < r.BackoffInitial {
		return fmt.Errorf("remote.backoff_initial must be positive and not exceed remote.backoff_max")
	}

	s := cfg.Sources
	if s.Timeout <= 0 {
		return fmt.Errorf("sources.timeout must be positive")
	}
	named := []struct {
		name string
		src  SourceConfig
	}{
		{"weather", s.Weather},
		{"seismic", s.Seismic.SourceConfig},
		{"currency", s.Currency.SourceConfig},
	}
	enabled := 0
	for _, n := range named {
		if n.src.Disabled {
			continue
		}
		enabled++
		if err := checkURL(n.src.URL); err != nil {
			return fmt.Errorf("sources.%s.url: %w", n.name, err)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}
	if s.Seismic.MaxEvents <= 0 {
		return fmt.Errorf("sources.seismic.max_events must be positive")
	}
	if !s.Currency.Disabled && len(s.Currency.Codes) == 0 {
		return fmt.Errorf("sources.currency.codes must not be empty")
	}

	if cfg.CycleTimeout <= 0 {
		return fmt.Errorf("cycle_timeout must be positive")
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
