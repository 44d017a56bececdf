// Package common provides shared utilities for putscan
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for putscan
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Logging     LoggingConfig  `toml:"logging"`
	Scan        ScanConfig     `toml:"scan"`
	Risk        RiskConfig     `toml:"risk"`
	Earnings    EarningsConfig `toml:"earnings"`
	Analysis    AnalysisConfig `toml:"analysis"`
	Clients     ClientsConfig  `toml:"clients"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ScanConfig controls the ticker universe, candidate bands and fan-out.
// The raw OTM band filters the chain; the preferred band only affects shortlist ranking.
type ScanConfig struct {
	DefaultTickers  []string `toml:"default_tickers"`
	TargetReturn    float64  `toml:"target_return"` // weekly return % a put must reach to "meet target"
	OTMMin          float64  `toml:"otm_min"`
	OTMMax          float64  `toml:"otm_max"`
	PreferredOTMMin float64  `toml:"preferred_otm_min"`
	PreferredOTMMax float64  `toml:"preferred_otm_max"`
	MaxCandidates   int      `toml:"max_candidates"`
	ShortlistSize   int      `toml:"shortlist_size"`
	Concurrency     int      `toml:"concurrency"`
	Retries         int      `toml:"retries"` // retries for retryable provider errors (0 = none)
	Timeout         string   `toml:"timeout"`
	RefreshInterval string   `toml:"refresh_interval"` // background rescan of the default universe, "" disables
}

// GetRefreshInterval returns the background scan interval, or 0 when disabled
func (c *ScanConfig) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return 0
	}
	if d < time.Minute {
		return time.Minute
	}
	return d
}

// GetTimeout parses and returns the overall scan deadline
func (c *ScanConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 45 * time.Second
	}
	return d
}

// RiskConfig holds the risk classifier thresholds
type RiskConfig struct {
	IVThreshold         float64 `toml:"iv_threshold"`       // average IV % above which volatility is elevated
	MinOpenInterest     int64   `toml:"min_open_interest"`  // best contract OI below this is a liquidity risk
	MaxSpreadPercent    float64 `toml:"max_spread_percent"` // best contract spread % above this is an execution risk
	ThetaDays           int     `toml:"theta_days"`
	EarningsHorizonDays int     `toml:"earnings_horizon_days"`
	LowOTMPercent       float64 `toml:"low_otm_percent"`
}

// EarningsConfig controls the earnings-calendar fallback
type EarningsConfig struct {
	Calendar      bool `toml:"calendar"`
	LookaheadDays int  `toml:"lookahead_days"`
}

// AnalysisConfig controls the narrative layer
type AnalysisConfig struct {
	Enabled          bool   `toml:"enabled"`
	Timeout          string `toml:"timeout"`
	PromptCandidates int    `toml:"prompt_candidates"`
}

// GetTimeout parses and returns the analysis call timeout
func (c *AnalysisConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 20 * time.Second
	}
	return d
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Provider string       `toml:"provider"` // "yahoo" or "eodhd"
	Fallback string       `toml:"fallback"` // optional second provider, "" disables
	Yahoo    YahooConfig  `toml:"yahoo"`
	EODHD    EODHDConfig  `toml:"eodhd"`
	Gemini   GeminiConfig `toml:"gemini"`
}

// YahooConfig holds Yahoo Finance configuration
type YahooConfig struct {
	BaseURL   string `toml:"base_url"`
	UserAgent string `toml:"user_agent"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	Exchange  string `toml:"exchange"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`  // "console" or "json"
	Outputs  []string `toml:"outputs"` // "console", "file"
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/putscan.log",
		},
		Scan: ScanConfig{
			DefaultTickers:  []string{"GOOG", "AAPL", "TSLA", "NVDA", "AMZN", "META", "MSFT", "SPY"},
			TargetReturn:    1.0,
			OTMMin:          3,
			OTMMax:          20,
			PreferredOTMMin: 5,
			PreferredOTMMax: 10,
			MaxCandidates:   10,
			ShortlistSize:   3,
			Concurrency:     4,
			Retries:         0,
			Timeout:         "45s",
		},
		Risk: RiskConfig{
			IVThreshold:         50,
			MinOpenInterest:     100,
			MaxSpreadPercent:    20,
			ThetaDays:           2,
			EarningsHorizonDays: 7,
			LowOTMPercent:       5,
		},
		Earnings: EarningsConfig{
			Calendar:      true,
			LookaheadDays: 14,
		},
		Analysis: AnalysisConfig{
			Enabled:          true,
			Timeout:          "20s",
			PromptCandidates: 3,
		},
		Clients: ClientsConfig{
			Provider: "yahoo",
			Yahoo: YahooConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				UserAgent: "Mozilla/5.0",
				RateLimit: 5,
				Timeout:   "15s",
			},
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				Exchange:  "US",
				RateLimit: 10,
				Timeout:   "30s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	normalize(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PUTSCAN_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("PUTSCAN_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("PUTSCAN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("PUTSCAN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if provider := os.Getenv("PUTSCAN_PROVIDER"); provider != "" {
		config.Clients.Provider = strings.ToLower(provider)
	}
	if fallback := os.Getenv("PUTSCAN_FALLBACK_PROVIDER"); fallback != "" {
		config.Clients.Fallback = strings.ToLower(fallback)
	}

	if tickers := os.Getenv("PUTSCAN_DEFAULT_TICKERS"); tickers != "" {
		var list []string
		for _, t := range strings.Split(tickers, ",") {
			if t = strings.TrimSpace(t); t != "" {
				list = append(list, t)
			}
		}
		config.Scan.DefaultTickers = list
	}

	if target := os.Getenv("PUTSCAN_TARGET_RETURN"); target != "" {
		if v, err := strconv.ParseFloat(target, 64); err == nil {
			config.Scan.TargetReturn = v
		}
	}

	if v := os.Getenv("EODHD_API_KEY"); v != "" {
		config.Clients.EODHD.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Clients.Gemini.APIKey = v
	}
	if v := os.Getenv("PUTSCAN_GEMINI_MODEL"); v != "" {
		config.Clients.Gemini.Model = v
	}
}

// normalize repairs values that would make the scan pipeline misbehave.
func normalize(config *Config) {
	config.Clients.Provider = strings.ToLower(strings.TrimSpace(config.Clients.Provider))
	if config.Clients.Provider == "" {
		config.Clients.Provider = "yahoo"
	}
	config.Clients.Fallback = strings.ToLower(strings.TrimSpace(config.Clients.Fallback))
	if config.Clients.Fallback == config.Clients.Provider {
		config.Clients.Fallback = ""
	}
	if config.Scan.Concurrency <= 0 {
		config.Scan.Concurrency = 1
	}
	if config.Scan.MaxCandidates <= 0 {
		config.Scan.MaxCandidates = 10
	}
	if config.Scan.ShortlistSize <= 0 {
		config.Scan.ShortlistSize = 3
	}
	if config.Scan.Retries < 0 {
		config.Scan.Retries = 0
	}
	if config.Scan.OTMMin > config.Scan.OTMMax {
		config.Scan.OTMMin, config.Scan.OTMMax = config.Scan.OTMMax, config.Scan.OTMMin
	}
	if config.Scan.PreferredOTMMin > config.Scan.PreferredOTMMax {
		config.Scan.PreferredOTMMin, config.Scan.PreferredOTMMax = config.Scan.PreferredOTMMax, config.Scan.PreferredOTMMin
	}
	// Prompt stays bounded to 3-5 candidates
	if config.Analysis.PromptCandidates < 3 {
		config.Analysis.PromptCandidates = 3
	}
	if config.Analysis.PromptCandidates > 5 {
		config.Analysis.PromptCandidates = 5
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ValidateRequired returns the config keys that are missing for the selected
// provider and analysis settings. An empty slice means the config is usable as-is.
func (c *Config) ValidateRequired() []string {
	var missing []string
	switch c.Clients.Provider {
	case "yahoo", "eodhd":
	default:
		missing = append(missing, "clients.provider")
	}
	switch c.Clients.Fallback {
	case "", "yahoo", "eodhd":
	default:
		missing = append(missing, "clients.fallback")
	}
	if (c.Clients.Provider == "eodhd" || c.Clients.Fallback == "eodhd") && c.Clients.EODHD.APIKey == "" {
		missing = append(missing, "clients.eodhd.api_key")
	}
	if c.Analysis.Enabled && c.Clients.Gemini.APIKey == "" {
		missing = append(missing, "clients.gemini.api_key")
	}
	return missing
}

// ResolveAPIKey resolves an API key from environment or fallback
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"eodhd_api_key":  {"EODHD_API_KEY", "PUTSCAN_EODHD_API_KEY"},
		"gemini_api_key": {"GEMINI_API_KEY", "PUTSCAN_GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}
