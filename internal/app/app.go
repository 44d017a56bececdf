// Package app wires configuration, clients and services into one unit
// shared by cmd/putscan-server and cmd/putscan.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bobmcallan/putscan/internal/clients/eodhd"
	"github.com/bobmcallan/putscan/internal/clients/gemini"
	"github.com/bobmcallan/putscan/internal/clients/yahoo"
	"github.com/bobmcallan/putscan/internal/common"
	"github.com/bobmcallan/putscan/internal/interfaces"
	"github.com/bobmcallan/putscan/internal/models"
	"github.com/bobmcallan/putscan/internal/services/marketdata"
	"github.com/bobmcallan/putscan/internal/services/narrative"
	"github.com/bobmcallan/putscan/internal/services/scan"
)

// App holds all initialized clients and services.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Provider         interfaces.MarketDataProvider
	AnalysisClient   interfaces.AnalysisClient
	MarketData       interfaces.QuoteChainService
	NarrativeService interfaces.NarrativeService
	ScanService      interfaces.ScanService
	StartupTime      time.Time

	mu              sync.RWMutex
	latest          *models.ScanReport
	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: the explicit path, then
// PUTSCAN_CONFIG, then putscan.toml beside the binary, then config/putscan.toml.
func ResolveConfigPath(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("PUTSCAN_CONFIG"); env != "" {
		return env
	}
	candidate := filepath.Join(getBinaryDir(), "putscan.toml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return "config/putscan.toml"
}

// NewApp loads configuration and initializes every client and service.
// configPath may be empty, in which case ResolveConfigPath decides.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(getBinaryDir(), config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	return NewAppWithConfig(context.Background(), config, logger)
}

// NewAppWithConfig wires clients and services for an already loaded config.
func NewAppWithConfig(ctx context.Context, config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	for _, key := range config.ValidateRequired() {
		logger.Warn().Str("key", key).Msg("Configuration value missing")
	}

	eodhdKey, err := common.ResolveAPIKey("eodhd_api_key", config.Clients.EODHD.APIKey)
	if err != nil && (config.Clients.Provider == "eodhd" || config.Clients.Fallback == "eodhd") {
		return nil, fmt.Errorf("provider eodhd selected: %w", err)
	}

	var eodhdClient *eodhd.Client
	if eodhdKey != "" {
		eodhdClient = eodhd.NewClient(eodhdKey,
			eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
			eodhd.WithExchange(config.Clients.EODHD.Exchange),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
		)
	}

	newProvider := func(name string) (interfaces.MarketDataProvider, error) {
		switch name {
		case "yahoo":
			return yahoo.NewClient(
				yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
				yahoo.WithUserAgent(config.Clients.Yahoo.UserAgent),
				yahoo.WithLogger(logger),
				yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
				yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
			), nil
		case "eodhd":
			if eodhdClient == nil {
				return nil, fmt.Errorf("eodhd provider requires an API key")
			}
			return eodhdClient, nil
		}
		return nil, fmt.Errorf("unknown market data provider %q", name)
	}

	provider, err := newProvider(config.Clients.Provider)
	if err != nil {
		return nil, err
	}

	var mdOpts []marketdata.Option
	if config.Clients.Fallback != "" {
		fallback, err := newProvider(config.Clients.Fallback)
		if err != nil {
			return nil, fmt.Errorf("fallback provider: %w", err)
		}
		mdOpts = append(mdOpts, marketdata.WithFallback(fallback))
	}
	if config.Earnings.Calendar && eodhdClient != nil {
		lookahead := time.Duration(config.Earnings.LookaheadDays) * 24 * time.Hour
		mdOpts = append(mdOpts, marketdata.WithEarningsCalendar(eodhdClient, lookahead))
	}
	marketData := marketdata.NewService(provider, logger, mdOpts...)

	var analysisClient interfaces.AnalysisClient
	if config.Analysis.Enabled {
		geminiKey, err := common.ResolveAPIKey("gemini_api_key", config.Clients.Gemini.APIKey)
		if err != nil {
			logger.Warn().Msg("Gemini API key not configured - narratives will use the rule-based fallback")
		} else {
			geminiClient, err := gemini.NewClient(ctx, geminiKey,
				gemini.WithLogger(logger),
				gemini.WithModel(config.Clients.Gemini.Model),
			)
			if err != nil {
				logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
			} else {
				analysisClient = geminiClient
			}
		}
	}

	narrativeService := narrative.NewMerger(analysisClient, config.Analysis, logger)
	scanService := scan.NewService(marketData, narrativeService, config, logger)

	a := &App{
		Config:           config,
		Logger:           logger,
		Provider:         provider,
		AnalysisClient:   analysisClient,
		MarketData:       marketData,
		NarrativeService: narrativeService,
		ScanService:      scanService,
		StartupTime:      startupStart,
	}

	logger.Info().
		Str("provider", provider.Name()).
		Str("fallback", config.Clients.Fallback).
		Bool("analysis", analysisClient != nil).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// LatestReport returns the most recent scheduled scan, or nil
func (a *App) LatestReport() *models.ScanReport {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest
}

func (a *App) setLatest(report *models.ScanReport) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latest = report
}

// StartScheduler launches the background scan loop when an interval is configured.
func (a *App) StartScheduler() {
	interval := a.Config.Scan.GetRefreshInterval()
	if interval == 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel
	go startScanScheduler(ctx, a.ScanService, a.setLatest, a.Logger, interval)
	a.Logger.Info().Dur("interval", interval).Msg("Scan scheduler started")
}

// Close stops background work.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
	}
}
