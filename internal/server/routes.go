package server

import (
	"net/http"
	"time"

	"github.com/bobmcallan/putscan/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)

	// Scanning
	mux.HandleFunc("/api/scan/latest", s.handleScanLatest)
	mux.HandleFunc("/api/scan", s.handleScan)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}

// handleConfig reports the effective scan settings. API keys are never echoed.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	cfg := s.app.Config

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment":        cfg.Environment,
		"logging_level":      cfg.Logging.Level,
		"provider":           cfg.Clients.Provider,
		"fallback_provider":  cfg.Clients.Fallback,
		"default_tickers":    s.app.ScanService.DefaultTickers(),
		"target_return":      cfg.Scan.TargetReturn,
		"otm_band":           []float64{cfg.Scan.OTMMin, cfg.Scan.OTMMax},
		"preferred_otm_band": []float64{cfg.Scan.PreferredOTMMin, cfg.Scan.PreferredOTMMax},
		"concurrency":        cfg.Scan.Concurrency,
		"scan_timeout":       cfg.Scan.GetTimeout().String(),
		"refresh_interval":   cfg.Scan.GetRefreshInterval().String(),
		"analysis_enabled":   cfg.Analysis.Enabled,
		"gemini_configured":  s.app.AnalysisClient != nil,
		"uptime":             time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}
