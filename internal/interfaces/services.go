// Package interfaces defines service contracts for putscan
package interfaces

import (
	"context"

	"github.com/bobmcallan/putscan/internal/models"
)

// QuoteChainService is the Quote/Chain Client used by the per-ticker scanner
type QuoteChainService interface {
	// GetChain fetches a chain snapshot, enriching the earnings date where possible
	GetChain(ctx context.Context, symbol string) (*models.ChainSnapshot, error)
}

// ScanService runs the full scan-and-rank pipeline
type ScanService interface {
	// Scan builds the universe, scans every ticker and ranks the results.
	// The only returned error is models.ErrEmptyUniverse (or a cancelled context).
	Scan(ctx context.Context, req models.ScanRequest) (*models.ScanReport, error)

	// DefaultTickers returns the configured default universe
	DefaultTickers() []string
}

// NarrativeService produces the recommendation block for the focus ticker
type NarrativeService interface {
	// Merge never fails; analysis failures fall back to rule-based output
	Merge(ctx context.Context, focus *models.TickerResult, shortlist []models.ShortlistEntry, targetReturn float64) models.Narrative
}
