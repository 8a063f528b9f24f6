// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/listenupapp/artfetch/internal/errors"
)

// Provider names.
const (
	Danbooru  = "danbooru"
	Gelbooru  = "gelbooru"
	Safebooru = "safebooru"
)

// KnownProviders lists the built-in providers in default priority order.
var KnownProviders = []string{Danbooru, Gelbooru, Safebooru}

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	HTTP      HTTPConfig
	Providers ProvidersConfig
	Fetch     FetchConfig
	Cache     CacheConfig
	Tables    TablesConfig
	Resolver  ResolverConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 3m, a cold search can take a while)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	SearchRPM    int           // Search requests per client per minute, 0 disables (default: 60)
	SearchBurst  int           // Search burst per client (default: 10)
}

// HTTPConfig holds outbound HTTP configuration.
type HTTPConfig struct {
	UserAgent string
	// Cooldown is applied to a provider after a 429 without Retry-After.
	Cooldown time.Duration
}

// ProviderConfig holds one provider's endpoint settings.
type ProviderConfig struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
	RPS     float64
	Burst   int
	// MaxDenyTerms caps negated terms sent upstream. Zero means the
	// provider default, negative means none.
	MaxDenyTerms int
}

// ProvidersConfig holds every provider plus their priority order.
type ProvidersConfig struct {
	// Order is the merge priority. Earlier providers win duplicates.
	Order     []string
	Danbooru  ProviderConfig
	Gelbooru  ProviderConfig
	Safebooru ProviderConfig
}

// Get returns the settings for a named provider.
func (p ProvidersConfig) Get(name string) (ProviderConfig, bool) {
	switch name {
	case Danbooru:
		return p.Danbooru, true
	case Gelbooru:
		return p.Gelbooru, true
	case Safebooru:
		return p.Safebooru, true
	default:
		return ProviderConfig{}, false
	}
}

// FetchConfig holds page walk settings.
type FetchConfig struct {
	MaxPages   int
	BatchSize  int
	MaxRetries int
	RetryStep  time.Duration
	BatchDelay time.Duration
	PageLimit  int
	EmptyPages int
	RunTimeout time.Duration
}

// CacheConfig holds search cache settings.
type CacheConfig struct {
	MaxEntries int
	TTL        time.Duration
	EmptyTTL   time.Duration
	// Path is the Badger directory. Empty keeps the cache in memory only.
	Path string
}

// TablesConfig holds the block-list and alias table override.
type TablesConfig struct {
	// Path to a YAML override file. Empty uses the built-in tables.
	Path  string
	Watch bool
}

// ResolverConfig holds tag resolution settings.
type ResolverConfig struct {
	DisableProbe bool
	ProbeTimeout time.Duration
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("artfetch", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	userAgent := fs.String("user-agent", "", "Outbound HTTP user agent")
	providerOrder := fs.String("providers", "", "Provider priority order (default: danbooru,gelbooru,safebooru)")
	maxPages := fs.String("max-pages", "", "Max pages walked per provider and tag (default: 20)")
	cachePath := fs.String("cache-path", "", "Badger directory for the search cache (default: memory only)")
	tablesPath := fs.String("tables", "", "YAML file overriding block-list and alias tables")
	watchTables := fs.String("watch-tables", "", "Reload the tables file on change (default: true)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	var p parser

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:         getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			ReadTimeout:  p.duration("", "SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: p.duration("", "SERVER_WRITE_TIMEOUT", "3m"),
			IdleTimeout:  p.duration("", "SERVER_IDLE_TIMEOUT", "60s"),
			SearchRPM:    p.int("", "SERVER_SEARCH_RPM", 60),
			SearchBurst:  p.int("", "SERVER_SEARCH_BURST", 10),
		},
		HTTP: HTTPConfig{
			UserAgent: getConfigValue(*userAgent, "HTTP_USER_AGENT", "artfetch/1.0"),
			Cooldown:  p.duration("", "HTTP_RATE_LIMIT_COOLDOWN", "5s"),
		},
		Providers: ProvidersConfig{
			Order:     splitList(getConfigValue(*providerOrder, "PROVIDER_ORDER", strings.Join(KnownProviders, ","))),
			Danbooru:  p.provider("DANBOORU", "https://danbooru.donmai.us", 2),
			Gelbooru:  p.provider("GELBOORU", "https://gelbooru.com", 2),
			Safebooru: p.provider("SAFEBOORU", "https://safebooru.org", 2),
		},
		Fetch: FetchConfig{
			MaxPages:   p.int(*maxPages, "FETCH_MAX_PAGES", 20),
			BatchSize:  p.int("", "FETCH_BATCH_SIZE", 3),
			MaxRetries: p.int("", "FETCH_MAX_RETRIES", 2),
			RetryStep:  p.duration("", "FETCH_RETRY_STEP", "500ms"),
			BatchDelay: p.duration("", "FETCH_BATCH_DELAY", "250ms"),
			PageLimit:  p.int("", "FETCH_PAGE_LIMIT", 100),
			EmptyPages: p.int("", "FETCH_EMPTY_PAGES", 2),
			RunTimeout: p.duration("", "FETCH_RUN_TIMEOUT", "2m"),
		},
		Cache: CacheConfig{
			MaxEntries: p.int("", "CACHE_MAX_ENTRIES", 1000),
			TTL:        p.duration("", "CACHE_TTL", "1h"),
			EmptyTTL:   p.duration("", "CACHE_EMPTY_TTL", "5m"),
			Path:       getConfigValue(*cachePath, "CACHE_PATH", ""),
		},
		Tables: TablesConfig{
			Path:  getConfigValue(*tablesPath, "TABLES_PATH", ""),
			Watch: getBoolConfigValue(*watchTables, "TABLES_WATCH", true),
		},
		Resolver: ResolverConfig{
			DisableProbe: getBoolConfigValue("", "RESOLVER_DISABLE_PROBE", false),
			ProbeTimeout: p.duration("", "RESOLVER_PROBE_TIMEOUT", "5s"),
		},
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfiguration, "invalid configuration value")
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfiguration, "invalid path")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return apperrors.Configurationf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return apperrors.Configurationf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Server.Port == "" {
		return apperrors.Configuration("server port is required")
	}
	if c.Server.SearchRPM < 0 || c.Server.SearchBurst < 0 {
		return apperrors.Configuration("server search rate limit must not be negative")
	}

	if err := c.Providers.validate(); err != nil {
		return err
	}

	if c.Fetch.MaxPages < 1 || c.Fetch.BatchSize < 1 || c.Fetch.PageLimit < 1 || c.Fetch.EmptyPages < 1 {
		return apperrors.Configuration("fetch max pages, batch size, page limit and empty pages must be positive")
	}

	if c.Cache.MaxEntries < 1 {
		return apperrors.Configuration("cache max entries must be positive")
	}
	if c.Cache.TTL <= 0 {
		return apperrors.Configuration("cache TTL must be positive")
	}
	if c.Cache.EmptyTTL > c.Cache.TTL {
		return apperrors.Configurationf("cache empty TTL %s exceeds TTL %s", c.Cache.EmptyTTL, c.Cache.TTL)
	}

	return nil
}

func (p ProvidersConfig) validate() error {
	enabled := 0
	seen := make(map[string]bool)

	for _, name := range p.Order {
		pc, ok := p.Get(name)
		if !ok {
			return apperrors.Configurationf("unknown provider %q (must be one of %s)", name, strings.Join(KnownProviders, ", "))
		}
		if seen[name] {
			return apperrors.Configurationf("provider %q listed twice", name)
		}
		seen[name] = true

		if !pc.Enabled {
			continue
		}
		enabled++

		if pc.BaseURL == "" {
			return apperrors.Configurationf("%s: base URL is required", name)
		}
		u, err := url.Parse(pc.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperrors.Configurationf("%s: invalid base URL %q", name, pc.BaseURL)
		}
		if pc.RPS <= 0 || pc.Burst < 1 {
			return apperrors.Configurationf("%s: rps and burst must be positive", name)
		}
	}

	if enabled == 0 {
		return apperrors.Configuration("at least one provider must be enabled")
	}
	return nil
}

// EnabledProviders returns the enabled provider names in priority order.
func (c *Config) EnabledProviders() []string {
	var names []string
	for _, name := range c.Providers.Order {
		if pc, ok := c.Providers.Get(name); ok && pc.Enabled {
			names = append(names, name)
		}
	}
	return names
}

func (c *Config) expandPaths() error {
	var err error
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache path: %w", err)
	}
	if c.Tables.Path, err = expandPath(c.Tables.Path); err != nil {
		return fmt.Errorf("tables path: %w", err)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute. Empty stays empty.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// parser collects conversion errors so every bad value is reported at once.
type parser struct {
	errs []error
}

func (p *parser) duration(flagValue, envKey, defaultValue string) time.Duration {
	s := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(s)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", envKey, s))
		return 0
	}
	return d
}

func (p *parser) int(flagValue, envKey string, defaultValue int) int {
	s := getConfigValue(flagValue, envKey, "")
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", envKey, s))
		return defaultValue
	}
	return n
}

func (p *parser) float(envKey string, defaultValue float64) float64 {
	s := getConfigValue("", envKey, "")
	if s == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid number %q", envKey, s))
		return defaultValue
	}
	return f
}

// provider reads PREFIX_ENABLED, PREFIX_BASE_URL, PREFIX_TIMEOUT,
// PREFIX_RPS, PREFIX_BURST and PREFIX_MAX_DENY_TERMS.
func (p *parser) provider(prefix, defaultURL string, defaultRPS float64) ProviderConfig {
	return ProviderConfig{
		Enabled:      getBoolConfigValue("", prefix+"_ENABLED", true),
		BaseURL:      strings.TrimRight(getConfigValue("", prefix+"_BASE_URL", defaultURL), "/"),
		Timeout:      p.duration("", prefix+"_TIMEOUT", "15s"),
		RPS:          p.float(prefix+"_RPS", defaultRPS),
		Burst:        p.int("", prefix+"_BURST", 3),
		MaxDenyTerms: p.int("", prefix+"_MAX_DENY_TERMS", 0),
	}
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// splitList splits a comma-separated list, trimming and lowercasing items.
func splitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" && !slices.Contains(out, item) {
			out = append(out, item)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
