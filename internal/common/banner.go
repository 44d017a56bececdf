package common

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

var bannerArt = []string{
	` ____  _   _ _____ ____   ____    _    _   _`,
	`|  _ \| | | |_   _/ ___| / ___|  / \  | \ | |`,
	`| |_) | | | | | | \___ \| |     / _ \ |  \| |`,
	`|  __/| |_| | | |  ___) | |___ / ___ \| |\  |`,
	`|_|    \___/  |_| |____/ \____/_/   \_\_| \_|`,
}

// bannerRows lists the startup settings worth seeing at a glance: build
// metadata, where quotes come from, and the knobs that shape a scan.
func bannerRows(config *Config) [][2]string {
	provider := config.Clients.Provider
	if config.Clients.Fallback != "" {
		provider += " (fallback " + config.Clients.Fallback + ")"
	}

	analysis := "rule-based only"
	if config.Analysis.Enabled {
		analysis = fmt.Sprintf("%s, %d contracts, %s timeout", config.Clients.Gemini.Model, config.Analysis.PromptCandidates, config.Analysis.GetTimeout())
	}

	refresh := "off"
	if d := config.Scan.GetRefreshInterval(); d > 0 {
		refresh = "every " + d.String()
	}

	return [][2]string{
		{"Version", fmt.Sprintf("%s (build %s, commit %s)", GetVersion(), GetBuild(), GetGitCommit())},
		{"Environment", config.Environment},
		{"Service URL", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)},
		{"Provider", provider},
		{"Universe", fmt.Sprintf("%d default tickers", len(config.Scan.DefaultTickers))},
		{"Target", fmt.Sprintf("%.2f%% weekly", config.Scan.TargetReturn)},
		{"OTM band", fmt.Sprintf("%g-%g%% (preferred %g-%g%%)", config.Scan.OTMMin, config.Scan.OTMMax, config.Scan.PreferredOTMMin, config.Scan.PreferredOTMMax)},
		{"Fan-out", fmt.Sprintf("%d workers, %s deadline, %d retries", config.Scan.Concurrency, config.Scan.GetTimeout(), config.Scan.Retries)},
		{"Analysis", analysis},
		{"Rescan", refresh},
	}
}

func writeBanner(w io.Writer, rows [][2]string) {
	rule := banner.ColorCyan + strings.Repeat("═", 70) + banner.ColorReset
	bold := banner.ColorBold + banner.ColorWhite

	fmt.Fprintf(w, "\n%s\n\n", rule)
	for _, line := range bannerArt {
		fmt.Fprintf(w, "%s%s%s\n", bold, line, banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s  Cash-Secured Put Scanner%s\n\n%s\n\n", bold, banner.ColorReset, rule)
	for _, row := range rows {
		fmt.Fprintf(w, "%s  %-14s %s%s\n", bold, row[0], row[1], banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s\n\n", rule)
}

// PrintBanner writes the startup banner to stderr and logs the same settings.
func PrintBanner(config *Config, logger *Logger) {
	writeBanner(os.Stderr, bannerRows(config))

	logger.Info().
		Str("version", GetVersion()).
		Str("environment", config.Environment).
		Str("provider", config.Clients.Provider).
		Str("fallback", config.Clients.Fallback).
		Int("universe", len(config.Scan.DefaultTickers)).
		Int("concurrency", config.Scan.Concurrency).
		Dur("scan_timeout", config.Scan.GetTimeout()).
		Msg("Application started")
}

// PrintShutdownBanner writes the shutdown banner to stderr.
func PrintShutdownBanner(logger *Logger) {
	rule := banner.ColorCyan + strings.Repeat("═", 42) + banner.ColorReset
	fmt.Fprintf(os.Stderr, "\n%s\n%s  PUTSCAN - SHUTTING DOWN%s\n%s\n\n", rule, banner.ColorBold+banner.ColorWhite, banner.ColorReset, rule)

	logger.Info().Msg("Application shutting down")
}
