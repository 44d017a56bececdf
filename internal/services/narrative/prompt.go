package narrative

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/putscan/internal/models"
)

// promptContracts picks up to n contracts for the prompt: the shortlist in
// rank order, topped up from the remaining candidates.
func promptContracts(focus *models.TickerResult, shortlist []models.ShortlistEntry, n int) []models.OptionContract {
	out := make([]models.OptionContract, 0, n)
	seen := make(map[float64]bool)
	for _, e := range shortlist {
		if len(out) == n {
			return out
		}
		out = append(out, e.OptionContract)
		seen[e.Strike] = true
	}
	for _, c := range focus.Candidates {
		if len(out) == n {
			break
		}
		if !seen[c.Strike] {
			out = append(out, c)
			seen[c.Strike] = true
		}
	}
	return out
}

// BuildPrompt renders the bounded analysis request for the focus ticker
func BuildPrompt(focus *models.TickerResult, shortlist []models.ShortlistEntry, target float64, maxContracts int) string {
	var sb strings.Builder

	sb.WriteString("You are an options risk analyst reviewing a weekly cash-secured put. Analyze this data briefly.\n\n")
	fmt.Fprintf(&sb, "TICKER: %s\n", focus.Symbol)

	if q := focus.Quote; q != nil {
		fmt.Fprintf(&sb, "- Price: $%.2f (%+.2f%% today)\n", q.Price, q.PercentChange)
		if q.FiftyTwoWeekLow > 0 || q.FiftyTwoWeekHigh > 0 {
			fmt.Fprintf(&sb, "- 52-Week: $%.2f - $%.2f\n", q.FiftyTwoWeekLow, q.FiftyTwoWeekHigh)
		}
		earnings := "Not scheduled"
		if q.EarningsDate != nil {
			earnings = q.EarningsDate.Format("2006-01-02")
		}
		if focus.HasEarningsRisk {
			earnings += " (WITHIN THE EARNINGS WINDOW)"
		}
		fmt.Fprintf(&sb, "- Earnings: %s\n", earnings)
	}
	if focus.Expiration != nil {
		fmt.Fprintf(&sb, "- Expiry: %s (%d days)\n", focus.Expiration.Format("2006-01-02"), focus.DaysToExpiry)
	}
	fmt.Fprintf(&sb, "- Avg IV: %.1f%%\n", focus.AverageIV)
	fmt.Fprintf(&sb, "- Target weekly return: %.2f%%\n", target)
	if focus.Risk != nil {
		flags := focus.Risk.Active()
		if len(flags) == 0 {
			flags = []string{"none"}
		}
		fmt.Fprintf(&sb, "- Risk flags: %s (level %s)\n", strings.Join(flags, ", "), focus.Risk.Level)
	}

	sb.WriteString("\nTOP PUTS:\n")
	contracts := promptContracts(focus, shortlist, maxContracts)
	if len(contracts) == 0 {
		sb.WriteString("None\n")
	}
	for _, c := range contracts {
		fmt.Fprintf(&sb, "$%s: Bid $%.2f, Ask $%.2f, OTM %.2f%%, Return %.2f%%, OI %d",
			formatStrike(c.Strike), c.Bid, c.Ask, c.OTMPercent, c.WeeklyReturnPercent, c.OpenInterest)
		if c.ImpliedVolatility != nil {
			fmt.Fprintf(&sb, ", IV %.1f%%", *c.ImpliedVolatility)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`
Return ONLY JSON, no prose and no code fences:
{
  "recommendedStrike": <one of the strikes above>,
  "recommendation": "<SELL|WAIT|AVOID>",
  "recommendationReasoning": "<2 sentences>",
  "warnings": ["<risks>"],
  "riskLevel": "<LOW|MEDIUM|HIGH|EXTREME>",
  "keyFactors": ["<positives>"]
}`)

	return sb.String()
}
