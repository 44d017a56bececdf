// Package marketdata provides the quote/chain service with earnings enrichment
// and an optional fallback provider
package marketdata

import (
	"context"
	"time"

	"github.com/bobmcallan/putscan/internal/common"
	"github.com/bobmcallan/putscan/internal/interfaces"
	"github.com/bobmcallan/putscan/internal/models"
)

// DefaultLookahead is how far ahead the earnings calendar is searched
const DefaultLookahead = 14 * 24 * time.Hour

// Service implements QuoteChainService on top of a primary provider.
// It performs no retries; the per-ticker scanner owns that policy.
type Service struct {
	primary   interfaces.MarketDataProvider
	fallback  interfaces.MarketDataProvider
	calendar  interfaces.EarningsCalendar
	lookahead time.Duration
	logger    *common.Logger
	now       func() time.Time // injectable clock for testing
}

var _ interfaces.QuoteChainService = (*Service)(nil)

// Option configures the service
type Option func(*Service)

// WithFallback sets a provider consulted when the primary fails
func WithFallback(p interfaces.MarketDataProvider) Option {
	return func(s *Service) {
		s.fallback = p
	}
}

// WithEarningsCalendar sets the calendar used when the provider has no earnings date
func WithEarningsCalendar(cal interfaces.EarningsCalendar, lookahead time.Duration) Option {
	return func(s *Service) {
		s.calendar = cal
		if lookahead > 0 {
			s.lookahead = lookahead
		}
	}
}

// WithClock overrides the clock
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new market data service.
func NewService(primary interfaces.MarketDataProvider, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		primary:   primary,
		lookahead: DefaultLookahead,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetChain fetches the chain from the primary provider, falling back to the
// secondary when configured, then fills a missing earnings date from the calendar.
func (s *Service) GetChain(ctx context.Context, symbol string) (*models.ChainSnapshot, error) {
	snap, err := s.primary.FetchChain(ctx, symbol)
	if err != nil {
		if s.fallback == nil || ctx.Err() != nil {
			return nil, err
		}
		s.logger.Warn().
			Err(err).
			Str("symbol", symbol).
			Str("primary", s.primary.Name()).
			Str("fallback", s.fallback.Name()).
			Msg("Primary provider failed, trying fallback")

		var fbErr error
		snap, fbErr = s.fallback.FetchChain(ctx, symbol)
		if fbErr != nil {
			s.logger.Debug().Err(fbErr).Str("symbol", symbol).Msg("Fallback provider failed")
			// report the primary failure; it is the one the operator configured
			return nil, err
		}
	}

	if snap.Quote.EarningsDate == nil && s.calendar != nil {
		s.enrichEarnings(ctx, symbol, snap)
	}

	return snap, nil
}

// enrichEarnings consults the calendar. Errors are logged and ignored.
func (s *Service) enrichEarnings(ctx context.Context, symbol string, snap *models.ChainSnapshot) {
	from := s.now().UTC()
	to := from.Add(s.lookahead)

	date, err := s.calendar.GetNextEarnings(ctx, symbol, from, to)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Earnings calendar lookup failed")
		return
	}
	if date != nil {
		s.logger.Debug().Str("symbol", symbol).Time("earnings", *date).Msg("Earnings date from calendar")
		snap.Quote.EarningsDate = date
	}
}
