package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/putscan/internal/models"
)

func TestScanRequestFromFlags(t *testing.T) {
	cmd := newScanCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--tickers", "AAPL,TSLA", "--custom", "xyz", "--target", "1.5", "--skip-defaults"}))

	req, err := scanRequestFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "TSLA"}, req.Tickers)
	assert.Equal(t, "xyz", req.CustomTicker)
	assert.True(t, req.SkipDefaults)
	require.NotNil(t, req.TargetReturnPercent)
	assert.Equal(t, 1.5, *req.TargetReturnPercent)
}

func TestScanRequestFromFlags_TargetUnsetUsesConfig(t *testing.T) {
	cmd := newScanCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	req, err := scanRequestFromFlags(cmd)
	require.NoError(t, err)
	assert.Nil(t, req.TargetReturnPercent)
}

func TestScanRequestFromFlags_NegativeTarget(t *testing.T) {
	cmd := newScanCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--target=-2"}))

	_, err := scanRequestFromFlags(cmd)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "build:")
}

func TestRenderReport(t *testing.T) {
	exp := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	best := models.OptionContract{Strike: 95, Bid: 1.0, Ask: 1.1, Mid: 1.05, OTMPercent: 5, WeeklyReturnPercent: 1.11, MeetsTarget: true}
	report := &models.ScanReport{
		Summary: "Scanned 2/2 tickers. Best: AAPL $95 put (1.11%).",
		Results: []models.TickerResult{
			{
				Symbol: "AAPL", Status: models.TickerStatusDone,
				Quote:      &models.Quote{Symbol: "AAPL", Price: 100},
				Expiration: &exp, DaysToExpiry: 4,
				BestContract: &best, Candidates: []models.OptionContract{best},
				Risk:           &models.RiskFlags{Level: models.RiskLow},
				Recommendation: models.RecommendationSell, Reason: "5.0% cushion",
			},
			{Symbol: "BAD", Status: models.TickerStatusFailed, Recommendation: models.RecommendationError, Error: "yahoo fetch not_found for BAD"},
		},
		BestOverall: &models.BestPick{Symbol: "AAPL", Contract: best, Reason: "5.0% OTM, 1.11% weekly return"},
		Errors:      []string{"BAD: yahoo fetch not_found for BAD"},
	}

	var out bytes.Buffer
	renderReport(&out, report)

	text := out.String()
	assert.Contains(t, text, "Scanned 2/2 tickers")
	assert.Contains(t, text, "2024-06-21")
	assert.Contains(t, text, "Best overall: AAPL $95.00 put")
	assert.Contains(t, text, "not_found")
	assert.Contains(t, text, "Errors:")
}
