package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/putscan/internal/models"
)

func okResult(symbol string, otm, ret float64, meets, earnings bool) models.TickerResult {
	best := &models.OptionContract{Strike: 100 - otm, OTMPercent: otm, WeeklyReturnPercent: ret, MeetsTarget: meets}
	return models.TickerResult{
		Symbol:          symbol,
		Status:          models.TickerStatusDone,
		Quote:           &models.Quote{Symbol: symbol, Price: 100},
		HasEarningsRisk: earnings,
		Candidates:      []models.OptionContract{*best},
		BestContract:    best,
	}
}

func failedResult(symbol string) models.TickerResult {
	return FailedResult(symbol, models.NewFetchError("fake", symbol, models.FetchNotFound, nil))
}

func TestSelectBest_PrefersHighestOTMAmongTargetMeeters(t *testing.T) {
	results := []models.TickerResult{
		okResult("AAA", 5, 1.5, true, false),
		okResult("BBB", 9, 1.1, true, false),
		okResult("CCC", 4, 3.0, false, false),
	}

	best := SelectBest(results, 1.0)
	require.NotNil(t, best)
	assert.Equal(t, "BBB", best.Symbol)
	assert.Equal(t, "9.0% OTM, 1.10% weekly return", best.Reason)
}

func TestSelectBest_ClosestMissWhenNoneMeetTarget(t *testing.T) {
	results := []models.TickerResult{
		okResult("AAA", 5, 0.6, false, false),
		okResult("BBB", 9, 0.9, false, false),
		failedResult("CCC"),
	}

	best := SelectBest(results, 1.0)
	require.NotNil(t, best)
	assert.Equal(t, "BBB", best.Symbol)
	assert.Contains(t, best.Reason, "below target")
}

func TestSelectBest_TieBreaks(t *testing.T) {
	results := []models.TickerResult{
		okResult("ZZZ", 8, 1.2, true, false),
		okResult("MMM", 8, 1.4, true, false),
		okResult("AAA", 8, 1.4, true, false),
	}
	best := SelectBest(results, 1.0)
	require.NotNil(t, best)
	assert.Equal(t, "AAA", best.Symbol, "equal OTM and return fall back to symbol order")

	misses := []models.TickerResult{
		okResult("ZZZ", 6, 0.8, false, false),
		okResult("MMM", 7, 0.8, false, false),
	}
	best = SelectBest(misses, 1.0)
	require.NotNil(t, best)
	assert.Equal(t, "MMM", best.Symbol, "equal return falls back to higher OTM")
}

func TestSelectBest_ExcludesEarningsRisk(t *testing.T) {
	results := []models.TickerResult{
		okResult("AAPL", 6, 0.8, false, false),
		okResult("TSLA", 12, 3.0, true, true),
	}

	best := SelectBest(results, 1.0)
	require.NotNil(t, best)
	assert.Equal(t, "AAPL", best.Symbol)
	assert.False(t, best.Contract.MeetsTarget)
	assert.Contains(t, best.Reason, "below target")
}

func TestSelectBest_NilWhenNothingEligible(t *testing.T) {
	results := []models.TickerResult{
		okResult("TSLA", 12, 3.0, true, true),
		failedResult("XXX"),
		{Symbol: "EMPTY", Status: models.TickerStatusDone, Candidates: []models.OptionContract{}},
	}
	assert.Nil(t, SelectBest(results, 1.0))
	assert.Nil(t, SelectBest(nil, 1.0))
}

func TestSelectFocus(t *testing.T) {
	results := []models.TickerResult{
		failedResult("NVDA"),
		okResult("AAPL", 6, 0.8, false, false),
		okResult("MSFT", 9, 1.2, true, false),
	}
	best := &models.BestPick{Symbol: "MSFT"}

	focus := SelectFocus(results, "AAPL", best)
	require.NotNil(t, focus)
	assert.Equal(t, "AAPL", focus.Symbol)

	focus = SelectFocus(results, "NVDA", best)
	require.NotNil(t, focus)
	assert.Equal(t, "MSFT", focus.Symbol, "failed explicit focus falls back to the best pick")

	focus = SelectFocus(results, "", nil)
	require.NotNil(t, focus)
	assert.Equal(t, "AAPL", focus.Symbol, "first successful result")

	assert.Nil(t, SelectFocus([]models.TickerResult{failedResult("NVDA")}, "NVDA", nil))
}

func TestShortlist_PrefersHigherOTMAmongTargetMeeters(t *testing.T) {
	candidates, err := Derive(models.Quote{Symbol: "XYZ", Price: 100}, []models.OptionContract{
		put(95, 1.12, 1.16),  // A: 5% OTM, 1.2% return
		put(91, 0.99, 1.012), // B: 9% OTM, 1.1% return
	}, defaultBands)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, 95.0, candidates[0].Strike, "candidates stay in return order")

	shortlist := Shortlist(candidates, Band{Min: 5, Max: 10}, 3)
	require.Len(t, shortlist, 2)
	assert.Equal(t, 91.0, shortlist[0].Strike)
	assert.Equal(t, 1, shortlist[0].Rank)
	assert.Equal(t, 95.0, shortlist[1].Strike)
	assert.Equal(t, 2, shortlist[1].Rank)
	assert.True(t, shortlist[0].InPreferredBand)
}

func TestShortlist_Ordering(t *testing.T) {
	mk := func(strike, otm, ret float64, meets bool) models.OptionContract {
		return models.OptionContract{Strike: strike, OTMPercent: otm, WeeklyReturnPercent: ret, MeetsTarget: meets}
	}
	candidates := []models.OptionContract{
		mk(97, 3, 2.0, true),    // meets, outside preferred band
		mk(94, 6, 1.3, true),    // meets, in band
		mk(92, 8, 0.9, false),   // misses, in band
		mk(85, 15, 0.95, false), // misses, outside band
		mk(93, 7, 1.3, true),    // meets, in band
	}

	shortlist := Shortlist(candidates, Band{Min: 5, Max: 10}, 4)
	var strikes []float64
	for _, e := range shortlist {
		strikes = append(strikes, e.Strike)
	}
	assert.Equal(t, []float64{93, 94, 97, 92}, strikes)
	assert.Len(t, candidates, 5, "input is not truncated")
	assert.Equal(t, 97.0, candidates[0].Strike, "input order is untouched")
}

func TestShortlist_Empty(t *testing.T) {
	assert.Empty(t, Shortlist(nil, Band{Min: 5, Max: 10}, 3))
}

func TestSummary(t *testing.T) {
	results := []models.TickerResult{
		okResult("AAPL", 6, 0.8, false, false),
		failedResult("XXX"),
	}
	best := &models.BestPick{Symbol: "AAPL", Contract: models.OptionContract{Strike: 92.5, WeeklyReturnPercent: 0.8}}

	assert.Equal(t, "Scanned 1/2 tickers. Best: AAPL $92.5 put (0.80%).", Summary(results, best))
	assert.Equal(t, "Scanned 1/2 tickers. No picks found.", Summary(results, nil))
}
