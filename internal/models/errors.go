package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyUniverse is the only scan-wide error: nothing valid was left to scan.
var ErrEmptyUniverse = errors.New("ticker universe is empty after validation")

// FetchErrorKind distinguishes market data provider failures.
type FetchErrorKind string

const (
	FetchUnreachable FetchErrorKind = "unreachable"
	FetchNotFound    FetchErrorKind = "not_found"
	FetchEmptyChain  FetchErrorKind = "empty_chain"
	FetchRateLimited FetchErrorKind = "rate_limited"
	FetchMalformed   FetchErrorKind = "malformed"
)

// Error kinds recorded on failed ticker results.
const (
	ErrorKindFetch        = "fetch"
	ErrorKindInvalidQuote = "invalid_quote"
	ErrorKindTimeout      = "timeout"
	ErrorKindInternal     = "internal"
)

// FetchError is returned by market data providers.
type FetchError struct {
	Symbol   string
	Provider string
	Kind     FetchErrorKind
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s fetch %s for %s: %v", e.Provider, e.Kind, e.Symbol, e.Err)
	}
	return fmt.Sprintf("%s fetch %s for %s", e.Provider, e.Kind, e.Symbol)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a later attempt could plausibly succeed.
func (e *FetchError) Retryable() bool {
	return e.Kind == FetchUnreachable || e.Kind == FetchRateLimited
}

// NewFetchError builds a FetchError.
func NewFetchError(provider, symbol string, kind FetchErrorKind, err error) *FetchError {
	return &FetchError{Symbol: symbol, Provider: provider, Kind: kind, Err: err}
}

// InvalidQuoteError means the quote has no usable price.
type InvalidQuoteError struct {
	Symbol string
	Price  float64
}

func (e *InvalidQuoteError) Error() string {
	return fmt.Sprintf("invalid quote for %s: price %.4f", e.Symbol, e.Price)
}

// TimeoutError marks a ticker that did not finish before the scan deadline.
type TimeoutError struct {
	Symbol string
	After  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("scan of %s timed out after %s", e.Symbol, e.After)
}

// AnalysisUnavailableError wraps any analysis service failure. It is always
// absorbed by the narrative fallback and never reaches the caller.
type AnalysisUnavailableError struct {
	Reason string
	Err    error
}

func (e *AnalysisUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis unavailable: %s: %v", e.Reason, e.Err)
	}
	return "analysis unavailable: " + e.Reason
}

func (e *AnalysisUnavailableError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies err for TickerResult.ErrorKind.
func ErrorKind(err error) string {
	var fe *FetchError
	var iq *InvalidQuoteError
	var te *TimeoutError
	switch {
	case errors.As(err, &fe):
		return ErrorKindFetch
	case errors.As(err, &iq):
		return ErrorKindInvalidQuote
	case errors.As(err, &te):
		return ErrorKindTimeout
	default:
		return ErrorKindInternal
	}
}
