// Package scan provides the multi-ticker cash-secured put scan and ranking pipeline
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/putscan/internal/common"
	"github.com/bobmcallan/putscan/internal/interfaces"
	"github.com/bobmcallan/putscan/internal/models"
)

// Service implements ScanService
type Service struct {
	scanner   *TickerScanner
	narrative interfaces.NarrativeService
	config    *common.Config
	logger    *common.Logger
	now       func() time.Time
}

var _ interfaces.ScanService = (*Service)(nil)

// NewService creates a scan service. narrative may be nil, in which case
// reports carry no narrative block.
func NewService(chains interfaces.QuoteChainService, narrative interfaces.NarrativeService, config *common.Config, logger *common.Logger) *Service {
	return &Service{
		scanner:   NewTickerScanner(chains, config.Scan, config.Risk, logger),
		narrative: narrative,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// DefaultTickers returns the configured default universe
func (s *Service) DefaultTickers() []string {
	out := make([]string, len(s.config.Scan.DefaultTickers))
	copy(out, s.config.Scan.DefaultTickers)
	return out
}

// Scan runs the pipeline for one request. Per-ticker failures are recorded
// in the report; only an empty universe or a cancelled caller context is
// returned as an error.
func (s *Service) Scan(ctx context.Context, req models.ScanRequest) (*models.ScanReport, error) {
	start := s.now()

	var defaults []string
	if !req.SkipDefaults {
		defaults = s.config.Scan.DefaultTickers
	}
	custom := NormalizeSymbol(req.CustomTicker)
	universe, rejected := BuildUniverse(defaults, req.Tickers, []string{req.CustomTicker})
	if len(universe) == 0 {
		return nil, models.ErrEmptyUniverse
	}

	target := s.config.Scan.TargetReturn
	if req.TargetReturnPercent != nil && *req.TargetReturnPercent >= 0 {
		target = *req.TargetReturnPercent
	}

	s.logger.Info().
		Int("tickers", len(universe)).
		Float64("target_return", target).
		Int("concurrency", s.config.Scan.Concurrency).
		Msg("Scan started")

	results := s.scanAll(ctx, universe, target)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan cancelled: %w", err)
	}

	best := SelectBest(results, target)

	focusSymbol := NormalizeSymbol(req.FocusSymbol)
	if focusSymbol == "" {
		focusSymbol = custom
	}
	focus := SelectFocus(results, focusSymbol, best)

	report := &models.ScanReport{
		Results:             results,
		BestOverall:         best,
		Focus:               focus,
		Shortlist:           []models.ShortlistEntry{},
		TargetReturnPercent: target,
		Scanned:             len(universe),
		Summary:             Summary(results, best),
		Errors:              []string{},
		ScannedAt:           s.now().UTC(),
	}

	for _, raw := range rejected {
		report.Errors = append(report.Errors, fmt.Sprintf("%s: invalid symbol", raw))
	}
	for i := range results {
		if results[i].OK() {
			report.Succeeded++
		} else {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", results[i].Symbol, results[i].Error))
		}
	}

	if focus != nil {
		preferred := Band{Min: s.config.Scan.PreferredOTMMin, Max: s.config.Scan.PreferredOTMMax}
		report.Shortlist = Shortlist(focus.Candidates, preferred, s.config.Scan.ShortlistSize)
		if s.narrative != nil {
			n := s.narrative.Merge(ctx, focus, report.Shortlist, target)
			report.Narrative = &n
		}
	}

	event := s.logger.Info().
		Int("scanned", report.Scanned).
		Int("succeeded", report.Succeeded).
		Dur("elapsed", s.now().Sub(start))
	if best != nil {
		event = event.Str("best", best.Symbol)
	}
	event.Msg("Scan complete")

	return report, nil
}

type slot struct {
	index  int
	result models.TickerResult
}

// scanAll fans out one task per symbol behind a semaphore and joins on all
// of them or the scan deadline, whichever comes first. Results land in the
// slot matching the symbol's input position.
func (s *Service) scanAll(ctx context.Context, universe []string, target float64) []models.TickerResult {
	deadline := s.config.Scan.GetTimeout()
	scanCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	results := make([]models.TickerResult, len(universe))
	filled := make([]bool, len(universe))

	// buffered to the universe size so late tasks never block after the deadline
	done := make(chan slot, len(universe))
	semaphore := make(chan struct{}, s.config.Scan.Concurrency)

	for i, symbol := range universe {
		go func(i int, symbol string) {
			select {
			case semaphore <- struct{}{}: // Acquire
			case <-scanCtx.Done():
				return
			}
			defer func() { <-semaphore }() // Release

			defer func() {
				if r := recover(); r != nil {
					s.logger.Error().Str("symbol", symbol).Interface("panic", r).Msg("Ticker scan panicked")
					done <- slot{index: i, result: FailedResult(symbol, fmt.Errorf("internal error: %v", r))}
				}
			}()

			result := s.scanner.Scan(scanCtx, symbol, target)
			if !result.OK() && errors.Is(scanCtx.Err(), context.DeadlineExceeded) {
				result = FailedResult(symbol, &models.TimeoutError{Symbol: symbol, After: deadline})
			}
			done <- slot{index: i, result: result}
		}(i, symbol)
	}

	remaining := len(universe)
wait:
	for remaining > 0 {
		select {
		case sl := <-done:
			results[sl.index] = sl.result
			filled[sl.index] = true
			remaining--
		case <-scanCtx.Done():
			break wait
		}
	}

	// collect anything that finished alongside the deadline
drain:
	for remaining > 0 {
		select {
		case sl := <-done:
			results[sl.index] = sl.result
			filled[sl.index] = true
			remaining--
		default:
			break drain
		}
	}

	for i, symbol := range universe {
		if !filled[i] {
			s.logger.Warn().Str("symbol", symbol).Dur("deadline", deadline).Msg("Ticker timed out")
			results[i] = FailedResult(symbol, &models.TimeoutError{Symbol: symbol, After: deadline})
		}
	}
	return results
}
