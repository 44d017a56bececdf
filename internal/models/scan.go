package models

import (
	"time"
)

// Recommendation values shared by per-ticker rows and the narrative.
const (
	RecommendationSell  = "SELL"
	RecommendationWait  = "WAIT"
	RecommendationAvoid = "AVOID"
	RecommendationError = "ERROR"
)

// TickerStatus is the terminal state of a per-ticker scan.
type TickerStatus string

const (
	TickerStatusDone   TickerStatus = "done"
	TickerStatusFailed TickerStatus = "failed"
)

// Quote is the spot snapshot for one underlying, fetched once per scan.
type Quote struct {
	Symbol           string     `json:"symbol"`
	Price            float64    `json:"price"`
	PercentChange    float64    `json:"percent_change"`
	FiftyTwoWeekHigh float64    `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  float64    `json:"fifty_two_week_low,omitempty"`
	EarningsDate     *time.Time `json:"earnings_date,omitempty"`
}

// OptionContract is a single put. Raw fields come from the provider; the
// derived fields are filled by the metric deriver and not modified afterwards.
type OptionContract struct {
	Strike            float64  `json:"strike"`
	Bid               float64  `json:"bid"`
	Ask               float64  `json:"ask"`
	Volume            int64    `json:"volume"`
	OpenInterest      int64    `json:"open_interest"`
	ImpliedVolatility *float64 `json:"implied_volatility,omitempty"` // percent

	Mid                 float64  `json:"mid"`
	OTMPercent          float64  `json:"otm_percent"`
	WeeklyReturnPercent float64  `json:"weekly_return_percent"`
	SpreadPercent       *float64 `json:"spread_percent,omitempty"` // nil when mid is zero
	MeetsTarget         bool     `json:"meets_target"`
}

// ChainSnapshot is what a market data provider returns for one symbol:
// the quote plus the put chain for the nearest expiration.
type ChainSnapshot struct {
	Quote      Quote            `json:"quote"`
	Expiration time.Time        `json:"expiration"`
	Puts       []OptionContract `json:"puts"`
	Provider   string           `json:"provider"`
}

// TickerResult is the outcome of scanning one symbol. A failed result has
// Error set and carries no quote or candidates.
type TickerResult struct {
	Symbol          string           `json:"symbol"`
	Status          TickerStatus     `json:"status"`
	Quote           *Quote           `json:"quote,omitempty"`
	Expiration      *time.Time       `json:"expiration,omitempty"`
	DaysToExpiry    int              `json:"days_to_expiry"`
	HasEarningsRisk bool             `json:"has_earnings_risk"`
	AverageIV       float64          `json:"average_iv"`
	Candidates      []OptionContract `json:"candidates"`
	BestContract    *OptionContract  `json:"best_contract,omitempty"`
	Risk            *RiskFlags       `json:"risk,omitempty"`
	Recommendation  string           `json:"recommendation"`
	Reason          string           `json:"reason"`
	Error           string           `json:"error,omitempty"`
	ErrorKind       string           `json:"error_kind,omitempty"`
}

// OK reports whether the ticker reached the done state.
func (r *TickerResult) OK() bool {
	return r != nil && r.Status == TickerStatusDone && r.Error == ""
}

// BestPick is the single recommended opportunity across the scanned universe.
type BestPick struct {
	Symbol   string         `json:"symbol"`
	Contract OptionContract `json:"contract"`
	Reason   string         `json:"reason"`
}

// ShortlistEntry is one of the focus ticker's top-ranked strikes.
type ShortlistEntry struct {
	Rank            int  `json:"rank"`
	InPreferredBand bool `json:"in_preferred_band"`
	OptionContract
}

// ScanRequest is the single caller-facing entry point into the scan pipeline.
type ScanRequest struct {
	Tickers             []string `json:"tickers,omitempty"`
	CustomTicker        string   `json:"custom_ticker,omitempty"`
	TargetReturnPercent *float64 `json:"target_return,omitempty"`
	FocusSymbol         string   `json:"focus,omitempty"`
	SkipDefaults        bool     `json:"skip_defaults,omitempty"`
}

// ScanReport is built once per scan invocation and never persisted.
type ScanReport struct {
	Results             []TickerResult   `json:"results"`
	BestOverall         *BestPick        `json:"best_overall,omitempty"`
	Focus               *TickerResult    `json:"focus,omitempty"`
	Shortlist           []ShortlistEntry `json:"shortlist"`
	Narrative           *Narrative       `json:"narrative,omitempty"`
	TargetReturnPercent float64          `json:"target_return"`
	Scanned             int              `json:"scanned"`
	Succeeded           int              `json:"succeeded"`
	Summary             string           `json:"summary"`
	Errors              []string         `json:"errors"`
	ScannedAt           time.Time        `json:"scanned_at"`
}
