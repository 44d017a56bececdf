// Package interfaces defines service contracts for putscan
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/putscan/internal/models"
)

// MarketDataProvider fetches a spot quote plus the nearest-expiration put
// chain for one symbol. Failures are returned as *models.FetchError.
type MarketDataProvider interface {
	// Name identifies the provider in logs and on ChainSnapshot.Provider
	Name() string

	// FetchChain retrieves the quote and puts for the nearest expiration
	FetchChain(ctx context.Context, symbol string) (*models.ChainSnapshot, error)
}

// EarningsCalendar looks up the next scheduled earnings report
type EarningsCalendar interface {
	// GetNextEarnings returns the first report date in [from, to], or nil when none is scheduled
	GetNextEarnings(ctx context.Context, symbol string, from, to time.Time) (*time.Time, error)
}

// AnalysisClient is the external text generation service behind the narrative
type AnalysisClient interface {
	// GenerateContent sends a prompt and returns the raw text response
	GenerateContent(ctx context.Context, prompt string) (string, error)
}
