package client

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultEnvFile is the dotenv file read when --env-file is not given.
	DefaultEnvFile = ".env"

	// configFileName is the base name searched for when --config is not given.
	configFileName = "store"
)

//nolint:gochecknoglobals // Fixed list of accepted config file extensions.
var configFileExts = []string{".yaml", ".yml"}

// Environment variable names.
const (
	EnvAPIToken = "STORE_API_TOKEN"
	EnvAPIURL   = "STORE_API_URL"
	EnvProject  = "STORE_PROJECT"
	EnvTimeout  = "STORE_TIMEOUT"
)

// Configuration keys, shared by viper bindings and the YAML config file.
const (
	KeyAPIToken = "api_token"
	KeyAPIURL   = "api_url"
	KeyProject  = "project"
	KeyDataType = "type"
	KeyTimeout  = "timeout"
)

// Supported URL schemes.
const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the effective settings for one store invocation.
type Config struct {
	// APIToken is sent as a bearer token in the Authorization header.
	APIToken string

	// APIURL is the full endpoint URL the payload is POSTed to.
	// Must include the scheme (http:// or https://).
	APIURL string

	// Project is the project slug that owns the stored data.
	Project string

	// DataType is an optional classification tag. Empty means absent.
	DataType string

	// Timeout is the maximum duration for the HTTP request.
	Timeout time.Duration
}

// requiredField describes a mandatory setting and where it can come from.
type requiredField struct {
	name string
	flag string
	env  string
	get  func(Config) string
}

//nolint:gochecknoglobals // Static table of required settings.
var requiredFields = []requiredField{
	{name: "API token", flag: "--api-token", env: EnvAPIToken, get: func(c Config) string { return c.APIToken }},
	{name: "API URL", flag: "--api-url", env: EnvAPIURL, get: func(c Config) string { return c.APIURL }},
	{name: "project", flag: "--project", env: EnvProject, get: func(c Config) string { return c.Project }},
}

// Validate validates the configuration and returns an error if any field is invalid.
//
// Validation rules:
//   - APIToken, APIURL and Project must not be empty
//   - APIURL must be an absolute http:// or https:// URL
//   - Timeout must be positive (greater than zero)
func (c Config) Validate() error {
	var missing []string
	for _, f := range requiredFields {
		if strings.TrimSpace(f.get(c)) == "" {
			missing = append(missing, fmt.Sprintf("%s (%s or %s)", f.name, f.flag, f.env))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}

	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("%w: API URL %q: %w", ErrInvalidConfig, c.APIURL, err)
	}
	if u.Scheme != schemeHTTP && u.Scheme != schemeHTTPS {
		return fmt.Errorf("%w: API URL must have http:// or https:// scheme, got %q", ErrInvalidConfig, c.APIURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: API URL must include a host, got %q", ErrInvalidConfig, c.APIURL)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, c.Timeout)
	}

	return nil
}

// NewViper returns a viper instance with defaults and environment bindings.
// Command-line flags are bound on top of it by the caller.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyTimeout, DefaultTimeout)

	// BindEnv only fails when called without a key.
	_ = v.BindEnv(KeyAPIToken, EnvAPIToken)
	_ = v.BindEnv(KeyAPIURL, EnvAPIURL)
	_ = v.BindEnv(KeyProject, EnvProject)
	_ = v.BindEnv(KeyTimeout, EnvTimeout)

	return v
}

// ReadConfigFile loads the optional YAML config file into v.
// An explicit path must exist. Without one, the first existing file among
// DefaultConfigPaths is read; none existing is not an error.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("%w: reading config file %s: %w", ErrInvalidConfig, path, err)
		}
		return nil
	}

	for _, candidate := range DefaultConfigPaths() {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		v.SetConfigFile(candidate)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("%w: reading config file %s: %w", ErrInvalidConfig, candidate, err)
		}
		return nil
	}
	return nil
}

// DefaultConfigPaths lists the config files tried when --config is not given,
// in order. Only .yaml and .yml names are considered, so a binary named
// "store" in the working directory is never mistaken for configuration.
func DefaultConfigPaths() []string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", configFileName))
	}

	paths := make([]string, 0, len(dirs)*len(configFileExts))
	for _, dir := range dirs {
		for _, ext := range configFileExts {
			paths = append(paths, filepath.Join(dir, configFileName+ext))
		}
	}
	return paths
}

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is only an error
// when the path was given explicitly.
func LoadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: loading env file %s: %w", ErrInvalidConfig, path, err)
	}
	return nil
}

// FromViper builds and validates a Config from the resolved viper settings.
// Precedence is flag, then environment variable, then config file, then default.
func FromViper(v *viper.Viper) (*Config, error) {
	timeout, err := cast.ToDurationE(v.Get(KeyTimeout))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timeout %q: %w", ErrInvalidConfig, v.GetString(KeyTimeout), err)
	}

	cfg := &Config{
		APIToken: strings.TrimSpace(v.GetString(KeyAPIToken)),
		APIURL:   strings.TrimSpace(v.GetString(KeyAPIURL)),
		Project:  strings.TrimSpace(v.GetString(KeyProject)),
		DataType: strings.TrimSpace(v.GetString(KeyDataType)),
		Timeout:  timeout,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
