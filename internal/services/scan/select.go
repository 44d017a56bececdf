package scan

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/bobmcallan/putscan/internal/models"
)

// Band is an inclusive OTM percentage range
type Band struct {
	Min float64
	Max float64
}

// Contains reports whether otm lies inside the band
func (b Band) Contains(otm float64) bool {
	return otm >= b.Min && otm <= b.Max
}

// SelectBest picks the single best opportunity. Only successful results
// without earnings risk and with a best contract are eligible. Contracts
// meeting the target win on OTM cushion; otherwise the highest weekly
// return is the closest miss. Ties fall to return or OTM, then symbol.
func SelectBest(results []models.TickerResult, target float64) *models.BestPick {
	var meets, misses []*models.TickerResult
	for i := range results {
		r := &results[i]
		if !r.OK() || r.HasEarningsRisk || r.BestContract == nil {
			continue
		}
		if r.BestContract.MeetsTarget {
			meets = append(meets, r)
		} else {
			misses = append(misses, r)
		}
	}

	if len(meets) > 0 {
		sort.SliceStable(meets, func(i, j int) bool {
			a, b := meets[i].BestContract, meets[j].BestContract
			if a.OTMPercent != b.OTMPercent {
				return a.OTMPercent > b.OTMPercent
			}
			if a.WeeklyReturnPercent != b.WeeklyReturnPercent {
				return a.WeeklyReturnPercent > b.WeeklyReturnPercent
			}
			return meets[i].Symbol < meets[j].Symbol
		})
		w := meets[0]
		return &models.BestPick{
			Symbol:   w.Symbol,
			Contract: *w.BestContract,
			Reason:   fmt.Sprintf("%.1f%% OTM, %.2f%% weekly return", w.BestContract.OTMPercent, w.BestContract.WeeklyReturnPercent),
		}
	}

	if len(misses) > 0 {
		sort.SliceStable(misses, func(i, j int) bool {
			a, b := misses[i].BestContract, misses[j].BestContract
			if a.WeeklyReturnPercent != b.WeeklyReturnPercent {
				return a.WeeklyReturnPercent > b.WeeklyReturnPercent
			}
			if a.OTMPercent != b.OTMPercent {
				return a.OTMPercent > b.OTMPercent
			}
			return misses[i].Symbol < misses[j].Symbol
		})
		w := misses[0]
		return &models.BestPick{
			Symbol:   w.Symbol,
			Contract: *w.BestContract,
			Reason:   fmt.Sprintf("%.2f%% weekly return is below target %.2f%%", w.BestContract.WeeklyReturnPercent, target),
		}
	}

	return nil
}

// SelectFocus chooses the ticker for the deep-dive: the requested symbol
// when it scanned successfully, else the best pick, else the first success.
func SelectFocus(results []models.TickerResult, symbol string, best *models.BestPick) *models.TickerResult {
	find := func(sym string) *models.TickerResult {
		if sym == "" {
			return nil
		}
		for i := range results {
			if results[i].Symbol == sym && results[i].OK() {
				r := results[i]
				return &r
			}
		}
		return nil
	}

	if r := find(symbol); r != nil {
		return r
	}
	if best != nil {
		if r := find(best.Symbol); r != nil {
			return r
		}
	}
	for i := range results {
		if results[i].OK() {
			r := results[i]
			return &r
		}
	}
	return nil
}

// Shortlist ranks candidates for the focus ticker: contracts meeting the
// target first, then those inside the preferred band. Within the meeting
// group higher OTM wins; the rest are ordered by weekly return. Strike
// descending breaks remaining ties.
func Shortlist(candidates []models.OptionContract, preferred Band, n int) []models.ShortlistEntry {
	ranked := make([]models.OptionContract, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.MeetsTarget != b.MeetsTarget {
			return a.MeetsTarget
		}
		ia, ib := preferred.Contains(a.OTMPercent), preferred.Contains(b.OTMPercent)
		if ia != ib {
			return ia
		}
		if a.MeetsTarget {
			if a.OTMPercent != b.OTMPercent {
				return a.OTMPercent > b.OTMPercent
			}
		} else if a.WeeklyReturnPercent != b.WeeklyReturnPercent {
			return a.WeeklyReturnPercent > b.WeeklyReturnPercent
		}
		return a.Strike > b.Strike
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	entries := make([]models.ShortlistEntry, len(ranked))
	for i, c := range ranked {
		entries[i] = models.ShortlistEntry{
			Rank:            i + 1,
			InPreferredBand: preferred.Contains(c.OTMPercent),
			OptionContract:  c,
		}
	}
	return entries
}

// Summary is the one-line market overview
func Summary(results []models.TickerResult, best *models.BestPick) string {
	ok := 0
	for i := range results {
		if results[i].OK() {
			ok++
		}
	}
	line := fmt.Sprintf("Scanned %d/%d tickers.", ok, len(results))
	if best == nil {
		return line + " No picks found."
	}
	return fmt.Sprintf("%s Best: %s $%s put (%.2f%%).", line, best.Symbol, FormatStrike(best.Contract.Strike), best.Contract.WeeklyReturnPercent)
}

// FormatStrike renders a strike without trailing zeros
func FormatStrike(strike float64) string {
	return strconv.FormatFloat(strike, 'f', -1, 64)
}
