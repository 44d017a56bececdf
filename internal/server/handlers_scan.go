package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/bobmcallan/putscan/internal/models"
)

// handleScan handles GET and POST /api/scan.
// POST takes a JSON ScanRequest; GET reads the same fields from the query string.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	var req models.ScanRequest
	if r.Method == http.MethodPost {
		if !DecodeJSON(w, r, &req) {
			return
		}
	} else {
		parsed, err := scanRequestFromQuery(r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		req = parsed
	}

	report, err := s.app.ScanService.Scan(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrEmptyUniverse):
			WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "empty_universe")
		case errors.Is(err, context.Canceled):
			WriteErrorWithCode(w, http.StatusServiceUnavailable, err.Error(), "cancelled")
		default:
			WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// handleScanLatest handles GET /api/scan/latest, the most recent background scan.
func (s *Server) handleScanLatest(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	report := s.app.LatestReport()
	if report == nil {
		WriteErrorWithCode(w, http.StatusNotFound, "No scheduled scan has completed", "no_report")
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

func scanRequestFromQuery(r *http.Request) (models.ScanRequest, error) {
	q := r.URL.Query()
	req := models.ScanRequest{
		Tickers:      splitList(q.Get("tickers")),
		CustomTicker: q.Get("custom"),
		FocusSymbol:  q.Get("focus"),
	}

	if raw := q.Get("target"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return req, errors.New("target must be a non-negative number")
		}
		req.TargetReturnPercent = &v
	}
	if raw := q.Get("skip_defaults"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return req, errors.New("skip_defaults must be a boolean")
		}
		req.SkipDefaults = v
	}
	return req, nil
}
