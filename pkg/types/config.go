package types

import (
	"errors"
	"net/url"
	"time"
)

// Config holds everything the client needs to reach the catalog service.
type Config struct {
	// BaseURL is the API root every resource path is resolved against.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// CSRFURL is the token-issuing endpoint. Empty means CSRFPath on the
	// host of BaseURL.
	CSRFURL string `json:"csrf_url" yaml:"csrf_url,omitempty" mapstructure:"csrf_url"`

	// Timeout bounds a single HTTP exchange. Zero means no timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// RequestsPerSecond paces outgoing requests; zero disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst" mapstructure:"burst"`

	// CookieStore selects where session cookies live between runs.
	CookieStore string `json:"cookie_store" yaml:"cookie_store" mapstructure:"cookie_store"`
	DataDir     string `json:"data_dir" yaml:"data_dir,omitempty" mapstructure:"data_dir"`

	Log LogConfig `json:"log" yaml:"log" mapstructure:"log"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"` // text or json
	Output string `json:"output" yaml:"output" mapstructure:"output"` // stderr, file or both
	File   string `json:"file" yaml:"file,omitempty" mapstructure:"file"`

	MaxSize    int  `json:"max_size" yaml:"max_size" mapstructure:"max_size"` // MB
	MaxBackups int  `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int  `json:"max_age" yaml:"max_age" mapstructure:"max_age"` // days
	Compress   bool `json:"compress" yaml:"compress" mapstructure:"compress"`
}

// Cookie store names.
const (
	CookieStoreMemory = "memory"
	CookieStoreSQLite = "sqlite"
)

// Protocol constants shared by the transport and the fake service.
const (
	DefaultBaseURL     = "http://localhost:8000/api/"
	CSRFPath           = "/sanctum/csrf-cookie"
	CSRFCookieName     = "XSRF-TOKEN"
	CSRFHeaderName     = "X-XSRF-TOKEN"
	StatusTokenExpired = 419
)

// Config validation errors.
var (
	ErrBaseURLEmpty       = errors.New("base URL must not be empty")
	ErrBaseURLInvalid     = errors.New("base URL must be an absolute http(s) URL")
	ErrCSRFURLInvalid     = errors.New("csrf URL must be an absolute http(s) URL")
	ErrCookieStoreUnknown = errors.New("unknown cookie store")
	ErrRateInvalid        = errors.New("requests per second must not be negative")
)

var knownCookieStores = map[string]bool{
	CookieStoreMemory: true,
	CookieStoreSQLite: true,
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		Timeout:     30 * time.Second,
		Burst:       1,
		CookieStore: CookieStoreSQLite,
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return ErrBaseURLEmpty
	}
	if !isHTTPURL(c.BaseURL) {
		return ErrBaseURLInvalid
	}
	if c.CSRFURL != "" && !isHTTPURL(c.CSRFURL) {
		return ErrCSRFURLInvalid
	}
	if !knownCookieStores[c.CookieStore] {
		return ErrCookieStoreUnknown
	}
	if c.RequestsPerSecond < 0 {
		return ErrRateInvalid
	}
	return nil
}

// TokenURL returns the token-issuing endpoint.
func (c Config) TokenURL() (*url.URL, error) {
	if c.CSRFURL != "" {
		return url.Parse(c.CSRFURL)
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(&url.URL{Path: CSRFPath}), nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
