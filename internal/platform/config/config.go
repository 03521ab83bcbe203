package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile       = ".env"
	defaultPort          = "8080"
	defaultReadTimeout   = 15 * time.Second
	defaultWriteTimeout  = 30 * time.Second
	defaultIdleTimeout   = 120 * time.Second
	defaultSectionsFile  = "content/sections.yaml"
	defaultPagesDir      = "content/pages"
	defaultCacheTTL      = 5 * time.Minute
	defaultSelectedClass = "selected"
	defaultNavLabel      = "Main"
	defaultSiteName      = "Storefront"
	defaultLogLevel      = "info"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig
	Content ContentConfig
	Nav     NavConfig
	Site    SiteConfig
	Log     LogConfig
	Trace   TraceConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ContentConfig locates the section list and page bodies.
type ContentConfig struct {
	SectionsFile string
	PagesDir     string
	CacheTTL     time.Duration
}

// NavConfig controls navigation markup.
type NavConfig struct {
	SelectedClass string
	Label         string
}

// SiteConfig holds presentation settings for full pages.
type SiteConfig struct {
	Name string
	Dev  bool
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

// TraceConfig names the Google Cloud project used to build log trace resources.
type TraceConfig struct {
	ProjectID string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration by combining defaults, .env overrides,
// environment variables and explicit maps.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	// Cloud Run injects PORT; the prefixed key still wins.
	port := stringWithDefault(lookup, "PORT", defaultPort)

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "STORENAV_SERVER_PORT", port),
			ReadTimeout:  durationWithDefault(lookup, "STORENAV_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "STORENAV_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "STORENAV_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Content: ContentConfig{
			SectionsFile: stringWithDefault(lookup, "STORENAV_CONTENT_SECTIONS_FILE", defaultSectionsFile),
			PagesDir:     stringWithDefault(lookup, "STORENAV_CONTENT_PAGES_DIR", defaultPagesDir),
			CacheTTL:     durationWithDefault(lookup, "STORENAV_CONTENT_CACHE_TTL", defaultCacheTTL),
		},
		Nav: NavConfig{
			SelectedClass: strings.TrimSpace(stringWithDefault(lookup, "STORENAV_NAV_SELECTED_CLASS", defaultSelectedClass)),
			Label:         stringWithDefault(lookup, "STORENAV_NAV_LABEL", defaultNavLabel),
		},
		Site: SiteConfig{
			Name: stringWithDefault(lookup, "STORENAV_SITE_NAME", defaultSiteName),
			Dev:  boolWithDefault(lookup, "STORENAV_DEV", false),
		},
		Log: LogConfig{
			Level: stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel),
		},
		Trace: TraceConfig{
			ProjectID: strings.TrimSpace(stringWithDefault(lookup, "STORENAV_TRACE_PROJECT_ID",
				stringWithDefault(lookup, "GOOGLE_CLOUD_PROJECT", ""))),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return ":" + c.Port
}

func validateConfig(cfg Config) error {
	var missing []string

	if strings.TrimSpace(cfg.Server.Port) == "" {
		missing = append(missing, "Server.Port")
	} else if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		missing = append(missing, "Server.Port")
	}
	if cfg.Server.ReadTimeout <= 0 {
		missing = append(missing, "Server.ReadTimeout")
	}
	if cfg.Server.WriteTimeout <= 0 {
		missing = append(missing, "Server.WriteTimeout")
	}
	if cfg.Server.IdleTimeout <= 0 {
		missing = append(missing, "Server.IdleTimeout")
	}
	if cfg.Content.CacheTTL < 0 {
		missing = append(missing, "Content.CacheTTL")
	}
	if cfg.Nav.SelectedClass == "" || strings.ContainsAny(cfg.Nav.SelectedClass, " \t\"<>") {
		missing = append(missing, "Nav.SelectedClass")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
