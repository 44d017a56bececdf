package scan

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/putscan/internal/models"
)

// DeriveConfig bounds the candidate set produced by Derive.
type DeriveConfig struct {
	OTMMin        float64 // raw band, inclusive
	OTMMax        float64
	MaxCandidates int
	TargetReturn  float64 // weekly return % at which MeetsTarget is set
}

// Derive computes mid, OTM %, weekly return % and spread % for each put,
// keeps those with a finite quote, bid > 0 and inside the OTM band, and returns the top
// MaxCandidates by weekly return. The input slice is not modified.
func Derive(quote models.Quote, puts []models.OptionContract, cfg DeriveConfig) ([]models.OptionContract, error) {
	price := quote.Price
	if !finite(price) || price <= 0 {
		return nil, &models.InvalidQuoteError{Symbol: quote.Symbol, Price: price}
	}

	out := make([]models.OptionContract, 0, len(puts))
	for _, p := range puts {
		if !finite(p.Bid) || !finite(p.Ask) || !finite(p.Strike) || p.Bid <= 0 || p.Strike <= 0 {
			continue
		}
		otm := (price - p.Strike) / price * 100
		if otm < cfg.OTMMin || otm > cfg.OTMMax {
			continue
		}

		mid := (p.Bid + p.Ask) / 2
		if p.Ask < p.Bid {
			// crossed quote; price it at the bid
			mid = p.Bid
		}

		c := p
		c.Mid = round(mid, 4)
		c.OTMPercent = round(otm, 2)
		c.WeeklyReturnPercent = round(mid/p.Strike*100, 2)
		c.SpreadPercent = nil
		if mid > 0 && p.Ask >= p.Bid {
			spread := round((p.Ask-p.Bid)/mid*100, 2)
			c.SpreadPercent = &spread
		}
		c.MeetsTarget = c.WeeklyReturnPercent >= cfg.TargetReturn
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.WeeklyReturnPercent != b.WeeklyReturnPercent {
			return a.WeeklyReturnPercent > b.WeeklyReturnPercent
		}
		if a.OTMPercent != b.OTMPercent {
			return a.OTMPercent > b.OTMPercent
		}
		return a.Strike < b.Strike
	})

	if cfg.MaxCandidates > 0 && len(out) > cfg.MaxCandidates {
		out = out[:cfg.MaxCandidates]
	}
	return out, nil
}

// AverageIV is the mean implied volatility of the candidates that report one.
func AverageIV(candidates []models.OptionContract) float64 {
	ivs := make(stats.Float64Data, 0, len(candidates))
	for _, c := range candidates {
		if c.ImpliedVolatility != nil {
			ivs = append(ivs, *c.ImpliedVolatility)
		}
	}
	if len(ivs) == 0 {
		return 0
	}
	mean, err := stats.Mean(ivs)
	if err != nil {
		return 0
	}
	return round(mean, 2)
}

// BestContract returns the first candidate meeting the target, else the
// top-ranked candidate, else nil. Candidates must already be in Derive order.
func BestContract(candidates []models.OptionContract) *models.OptionContract {
	if len(candidates) == 0 {
		return nil
	}
	for i := range candidates {
		if candidates[i].MeetsTarget {
			c := candidates[i]
			return &c
		}
	}
	c := candidates[0]
	return &c
}

// DaysUntil is the ceiling of whole days from now to t. Negative when t is past.
func DaysUntil(now, t time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
