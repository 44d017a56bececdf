package scan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/putscan/internal/common"
	"github.com/bobmcallan/putscan/internal/models"
)

func riskConfig() common.RiskConfig {
	return common.NewDefaultConfig().Risk
}

func spread(v float64) *float64 { return &v }

func TestClassify(t *testing.T) {
	inTwoDays := testNow.Add(36 * time.Hour)
	inTenDays := testNow.AddDate(0, 0, 10)
	yesterday := testNow.AddDate(0, 0, -2)

	healthy := &models.OptionContract{Strike: 94, OTMPercent: 6, OpenInterest: 500, SpreadPercent: spread(5)}
	thin := &models.OptionContract{Strike: 97, OTMPercent: 3.5, OpenInterest: 20, SpreadPercent: spread(5)}
	thinFar := &models.OptionContract{Strike: 90, OTMPercent: 10, OpenInterest: 20, SpreadPercent: spread(5)}
	wide := &models.OptionContract{Strike: 94, OTMPercent: 6, OpenInterest: 500, SpreadPercent: spread(25)}
	noSpread := &models.OptionContract{Strike: 94, OTMPercent: 6, OpenInterest: 500}

	tests := []struct {
		name   string
		in     RiskInput
		active []string
		level  models.RiskLevel
	}{
		{
			name:  "clean",
			in:    RiskInput{Now: testNow, DaysToExpiry: 4, AverageIV: 30, Best: healthy},
			level: models.RiskLow,
		},
		{
			name:   "earnings imminent is extreme",
			in:     RiskInput{Now: testNow, DaysToExpiry: 4, EarningsDate: &inTwoDays, AverageIV: 30, Best: healthy},
			active: []string{models.FlagEarningsImminent},
			level:  models.RiskExtreme,
		},
		{
			name:  "earnings outside horizon",
			in:    RiskInput{Now: testNow, DaysToExpiry: 4, EarningsDate: &inTenDays, AverageIV: 30, Best: healthy},
			level: models.RiskLow,
		},
		{
			name:  "earnings already passed",
			in:    RiskInput{Now: testNow, DaysToExpiry: 4, EarningsDate: &yesterday, AverageIV: 30, Best: healthy},
			level: models.RiskLow,
		},
		{
			name:   "high IV close to the money is high",
			in:     RiskInput{Now: testNow, DaysToExpiry: 4, AverageIV: 65, Best: thin},
			active: []string{models.FlagElevatedVolatility, models.FlagLiquidityRisk},
			level:  models.RiskHigh,
		},
		{
			name:   "thin liquidity far from the money is medium",
			in:     RiskInput{Now: testNow, DaysToExpiry: 4, AverageIV: 30, Best: thinFar},
			active: []string{models.FlagLiquidityRisk},
			level:  models.RiskMedium,
		},
		{
			name:   "wide spread",
			in:     RiskInput{Now: testNow, DaysToExpiry: 4, AverageIV: 30, Best: wide},
			active: []string{models.FlagExecutionRisk},
			level:  models.RiskMedium,
		},
		{
			name:  "undefined spread is not an execution risk",
			in:    RiskInput{Now: testNow, DaysToExpiry: 4, AverageIV: 30, Best: noSpread},
			level: models.RiskLow,
		},
		{
			name:   "expiry imminent",
			in:     RiskInput{Now: testNow, DaysToExpiry: 2, AverageIV: 30, Best: healthy},
			active: []string{models.FlagThetaRisk},
			level:  models.RiskMedium,
		},
		{
			name:  "unknown expiry is not theta risk",
			in:    RiskInput{Now: testNow, ExpiryUnknown: true, AverageIV: 30, Best: healthy},
			level: models.RiskLow,
		},
		{
			name:   "no candidates",
			in:     RiskInput{Now: testNow, DaysToExpiry: 4, AverageIV: 0},
			active: nil,
			level:  models.RiskLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := Classify(tt.in, riskConfig())
			assert.Equal(t, tt.active, flags.Active())
			assert.Equal(t, tt.level, flags.Level)
		})
	}
}

func TestClassify_ConfigurableThresholds(t *testing.T) {
	cfg := riskConfig()
	cfg.IVThreshold = 60
	cfg.MaxSpreadPercent = 25

	in := RiskInput{
		Now:          testNow,
		DaysToExpiry: 4,
		AverageIV:    55,
		Best:         &models.OptionContract{OTMPercent: 6, OpenInterest: 500, SpreadPercent: spread(22)},
	}
	flags := Classify(in, cfg)
	assert.False(t, flags.ElevatedVolatility)
	assert.False(t, flags.ExecutionRisk)
	assert.Equal(t, models.RiskLow, flags.Level)
}

func TestEarningsImminent_Boundaries(t *testing.T) {
	sevenDays := testNow.AddDate(0, 0, 7)
	justOverSeven := sevenDays.Add(time.Hour)
	earlierToday := testNow.Add(-2 * time.Hour)

	assert.True(t, EarningsImminent(testNow, &sevenDays, 7))
	assert.False(t, EarningsImminent(testNow, &justOverSeven, 7))
	assert.True(t, EarningsImminent(testNow, &earlierToday, 7), "same-day report still counts")
	assert.False(t, EarningsImminent(testNow, nil, 7))
}
