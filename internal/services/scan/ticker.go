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

// tickerState tracks a per-ticker scan through its stages
type tickerState int

const (
	statePending tickerState = iota
	stateFetching
	stateDeriving
	stateClassifying
	stateDone
	stateFailed
)

func (s tickerState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateFetching:
		return "fetching"
	case stateDeriving:
		return "deriving"
	case stateClassifying:
		return "classifying"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

// retryBackoff is the base delay between attempts on a retryable fetch error
var retryBackoff = 250 * time.Millisecond

// TickerScanner runs fetch, derive and classify for one symbol. Every
// failure is captured on the returned result; Scan never returns an error.
type TickerScanner struct {
	chains interfaces.QuoteChainService
	scan   common.ScanConfig
	risk   common.RiskConfig
	logger *common.Logger
	now    func() time.Time
}

// NewTickerScanner creates a scanner
func NewTickerScanner(chains interfaces.QuoteChainService, scanCfg common.ScanConfig, riskCfg common.RiskConfig, logger *common.Logger) *TickerScanner {
	return &TickerScanner{
		chains: chains,
		scan:   scanCfg,
		risk:   riskCfg,
		logger: logger,
		now:    time.Now,
	}
}

// Scan produces the terminal result for symbol
func (s *TickerScanner) Scan(ctx context.Context, symbol string, target float64) models.TickerResult {
	state := statePending
	transition := func(next tickerState) {
		s.logger.Debug().
			Str("symbol", symbol).
			Str("from", state.String()).
			Str("to", next.String()).
			Msg("Ticker state")
		state = next
	}
	fail := func(err error) models.TickerResult {
		transition(stateFailed)
		return FailedResult(symbol, err)
	}

	transition(stateFetching)
	snap, err := s.fetch(ctx, symbol)
	if err != nil {
		return fail(err)
	}

	transition(stateDeriving)
	candidates, err := Derive(snap.Quote, snap.Puts, DeriveConfig{
		OTMMin:        s.scan.OTMMin,
		OTMMax:        s.scan.OTMMax,
		MaxCandidates: s.scan.MaxCandidates,
		TargetReturn:  target,
	})
	if err != nil {
		return fail(err)
	}

	transition(stateClassifying)
	now := s.now()
	daysToExpiry := 0
	var expiration *time.Time
	if !snap.Expiration.IsZero() {
		exp := snap.Expiration
		expiration = &exp
		if d := DaysUntil(now, exp); d > 0 {
			daysToExpiry = d
		}
	}

	quote := snap.Quote
	quote.Symbol = symbol
	best := BestContract(candidates)
	avgIV := AverageIV(candidates)
	flags := Classify(RiskInput{
		Now:           now,
		DaysToExpiry:  daysToExpiry,
		ExpiryUnknown: expiration == nil,
		EarningsDate:  quote.EarningsDate,
		AverageIV:     avgIV,
		Best:          best,
	}, s.risk)

	result := models.TickerResult{
		Symbol:          symbol,
		Status:          models.TickerStatusDone,
		Quote:           &quote,
		Expiration:      expiration,
		DaysToExpiry:    daysToExpiry,
		HasEarningsRisk: flags.EarningsImminent,
		AverageIV:       avgIV,
		Candidates:      candidates,
		BestContract:    best,
		Risk:            &flags,
	}
	result.Recommendation, result.Reason = tickerRecommendation(&result)

	transition(stateDone)
	return result
}

// fetch calls the chain service, retrying retryable FetchErrors up to the
// configured count. Zero retries is the default.
func (s *TickerScanner) fetch(ctx context.Context, symbol string) (*models.ChainSnapshot, error) {
	var lastErr error
	for attempt := 0; attempt <= s.scan.Retries; attempt++ {
		if attempt > 0 {
			s.logger.Debug().Str("symbol", symbol).Int("attempt", attempt+1).Err(lastErr).Msg("Retrying fetch")
			select {
			case <-ctx.Done():
				return nil, lastErr
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}

		snap, err := s.chains.GetChain(ctx, symbol)
		if err == nil {
			return snap, nil
		}
		lastErr = err

		var fe *models.FetchError
		if !errors.As(err, &fe) || !fe.Retryable() {
			break
		}
	}
	return nil, lastErr
}

// FailedResult builds the error-only result for symbol
func FailedResult(symbol string, err error) models.TickerResult {
	return models.TickerResult{
		Symbol:         symbol,
		Status:         models.TickerStatusFailed,
		Candidates:     []models.OptionContract{},
		Recommendation: models.RecommendationError,
		Reason:         err.Error(),
		Error:          err.Error(),
		ErrorKind:      models.ErrorKind(err),
	}
}

// tickerRecommendation is the per-row verdict shown alongside each result
func tickerRecommendation(r *models.TickerResult) (string, string) {
	switch {
	case r.HasEarningsRisk:
		date := "soon"
		if r.Quote != nil && r.Quote.EarningsDate != nil {
			date = r.Quote.EarningsDate.Format("2006-01-02")
		}
		return models.RecommendationAvoid, "Earnings " + date
	case r.BestContract != nil && r.BestContract.MeetsTarget:
		return models.RecommendationSell, fmt.Sprintf("%.1f%% cushion", r.BestContract.OTMPercent)
	case r.BestContract == nil:
		return models.RecommendationWait, "No puts in range"
	default:
		return models.RecommendationWait, "Below target"
	}
}
