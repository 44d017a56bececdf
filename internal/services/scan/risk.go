package scan

import (
	"time"

	"github.com/bobmcallan/putscan/internal/common"
	"github.com/bobmcallan/putscan/internal/models"
)

// RiskInput is everything the classifier looks at for one ticker
type RiskInput struct {
	Now           time.Time
	DaysToExpiry  int
	ExpiryUnknown bool // provider gave no expiration; theta risk is not assessed
	EarningsDate  *time.Time
	AverageIV     float64
	Best          *models.OptionContract
}

// EarningsImminent reports whether earnings fall between now and
// horizonDays ahead, counted in ceiling days.
func EarningsImminent(now time.Time, earnings *time.Time, horizonDays int) bool {
	if earnings == nil {
		return false
	}
	days := DaysUntil(now, *earnings)
	return days >= 0 && days <= horizonDays
}

// Classify evaluates each flag independently and derives the coarse level.
func Classify(in RiskInput, cfg common.RiskConfig) models.RiskFlags {
	flags := models.RiskFlags{
		EarningsImminent:   EarningsImminent(in.Now, in.EarningsDate, cfg.EarningsHorizonDays),
		ElevatedVolatility: in.AverageIV > cfg.IVThreshold,
		ThetaRisk:          !in.ExpiryUnknown && in.DaysToExpiry <= cfg.ThetaDays,
	}
	if in.Best != nil {
		flags.LiquidityRisk = in.Best.OpenInterest < cfg.MinOpenInterest
		flags.ExecutionRisk = in.Best.SpreadPercent != nil && *in.Best.SpreadPercent > cfg.MaxSpreadPercent
	}

	switch {
	case flags.EarningsImminent:
		flags.Level = models.RiskExtreme
	case (flags.ElevatedVolatility || flags.LiquidityRisk) && in.Best != nil && in.Best.OTMPercent < cfg.LowOTMPercent:
		flags.Level = models.RiskHigh
	case len(flags.Active()) > 0:
		flags.Level = models.RiskMedium
	default:
		flags.Level = models.RiskLow
	}
	return flags
}
