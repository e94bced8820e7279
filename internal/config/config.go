package config

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/installer-endpoint/internal/logger"
)

// Config holds the settings of the installer server.
type Config struct {
	// ListenAddress is the TCP address the HTTP endpoint listens on.
	ListenAddress string `yaml:"listen_addr"`
	// Route is the URL path the installer endpoint is mounted on.
	Route string `yaml:"route"`
	// ScriptDir is the directory holding the served script.
	// Empty means the directory of the running executable.
	ScriptDir string `yaml:"script_dir"`
	// ScriptName is the file name of the served script.
	ScriptName string `yaml:"script_name"`
	// HealthAddress is the gRPC health listen address. Empty disables it.
	HealthAddress string `yaml:"health_addr,omitempty"`
	// RateLimit is the number of requests per minute allowed per client IP. Zero disables limiting.
	RateLimit int `yaml:"rate_limit,omitempty"`
	// RateBurst is the token bucket size. Defaults to RateLimit.
	RateBurst int `yaml:"rate_burst,omitempty"`
	// Watch enables the script file watcher.
	Watch bool `yaml:"watch,omitempty"`
	// LogLevel is the minimum level name for log output.
	LogLevel string `yaml:"log_level"`
	// ReadTimeout bounds reading a whole request.
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout bounds writing a whole response.
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// ShutdownTimeout is how long in-flight requests get on shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// Timeout is the duration for health check calls.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for server settings.
	DefaultConfigFilename = "installer-server.yaml"

	// DefaultListenAddress is used when no listen address is configured.
	DefaultListenAddress = ":8080"

	// DefaultRoute serves the script from the site root.
	DefaultRoute = "/"

	// DefaultScriptName is the installer script served when none is configured.
	DefaultScriptName = "install.ps1"

	// DefaultLogLevel is the log level used when none is configured.
	DefaultLogLevel = "info"

	// DefaultReadTimeout is the default http.Server read timeout.
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout is the default http.Server write timeout.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultShutdownTimeout is the default graceful shutdown budget.
	DefaultShutdownTimeout = 5 * time.Second

	// DefaultTimeout is the default duration for health check calls.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidScriptName is returned when the script name is not a plain file name.
	errInvalidScriptName = errors.New("script name must be a file name without directories")
	// errInvalidRoute is returned when the route is not an absolute URL path.
	errInvalidRoute = errors.New("route must be a literal path starting with '/'")
	// errNegativeRateLimit is returned for negative rate limit settings.
	errNegativeRateLimit = errors.New("rate limit must not be negative")
	// errUnknownLogLevel is returned when the log level cannot be parsed.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns a validated configuration with every field at its default.
func Default() (*Config, error) {
	cfg := new(Config)
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads configuration from the provided path and validates it.
// A missing file at the default path is not an error: defaults are used instead.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultConfigFilename {
			return Default()
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills defaults for empty fields.
//
//nolint:cyclop // A flat list of field checks reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.HealthAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.HealthAddress); err != nil {
			return fmt.Errorf("invalid health address: %w", err)
		}
	}

	if cfg.Route == "" {
		cfg.Route = DefaultRoute
	}

	if err := validateRoute(cfg.Route); err != nil {
		return err
	}

	if cfg.ScriptName == "" {
		cfg.ScriptName = DefaultScriptName
	}

	if cfg.ScriptName != filepath.Base(cfg.ScriptName) || cfg.ScriptName == "." || cfg.ScriptName == ".." {
		return fmt.Errorf("%w: %q", errInvalidScriptName, cfg.ScriptName)
	}

	if cfg.ScriptDir == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return err
		}

		cfg.ScriptDir = dir
	}

	if cfg.RateLimit < 0 || cfg.RateBurst < 0 {
		return errNegativeRateLimit
	}

	if cfg.RateLimit > 0 && cfg.RateBurst == 0 {
		cfg.RateBurst = cfg.RateLimit
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel)
	}

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return nil
}

// validateRoute accepts only literal absolute paths that http.ServeMux can register.
// Wildcards are rejected so that a route never matches more than it names.
func validateRoute(route string) (err error) {
	if !strings.HasPrefix(route, "/") || strings.ContainsAny(route, "{} \t\r\n") {
		return fmt.Errorf("%w: %q", errInvalidRoute, route)
	}

	// ServeMux panics on patterns it cannot parse.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %q: %v", errInvalidRoute, route, r)
		}
	}()

	http.NewServeMux().Handle(route, http.NotFoundHandler())

	return nil
}

// ScriptPath returns the full path of the served script.
func (c *Config) ScriptPath() string {
	return filepath.Join(c.ScriptDir, c.ScriptName)
}

// ExecutableDir returns the directory containing the running binary,
// with symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}

	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	return filepath.Dir(exe), nil
}
