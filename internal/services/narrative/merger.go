// Package narrative merges analysis service output with the deterministic
// scan data into the recommendation block for the focus ticker
package narrative

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/putscan/internal/common"
	"github.com/bobmcallan/putscan/internal/interfaces"
	"github.com/bobmcallan/putscan/internal/models"
)

// Merger implements NarrativeService
type Merger struct {
	client           interfaces.AnalysisClient
	timeout          time.Duration
	promptCandidates int
	logger           *common.Logger
}

var _ interfaces.NarrativeService = (*Merger)(nil)

// NewMerger creates a merger. client may be nil, in which case every
// narrative is the rule-based fallback.
func NewMerger(client interfaces.AnalysisClient, cfg common.AnalysisConfig, logger *common.Logger) *Merger {
	n := cfg.PromptCandidates
	if n < 3 {
		n = 3
	}
	if n > 5 {
		n = 5
	}
	return &Merger{
		client:           client,
		timeout:          cfg.GetTimeout(),
		promptCandidates: n,
		logger:           logger,
	}
}

// Merge never fails. Any analysis problem is logged and the fallback is returned.
func (m *Merger) Merge(ctx context.Context, focus *models.TickerResult, shortlist []models.ShortlistEntry, target float64) models.Narrative {
	fallback := Fallback(focus, shortlist, target)
	if focus == nil || m.client == nil {
		return fallback
	}

	analysis, err := m.analyze(ctx, focus, shortlist, target)
	if err != nil {
		m.logger.Warn().Err(err).Str("symbol", focus.Symbol).Msg("Analysis unavailable, using fallback narrative")
		return fallback
	}

	merged, overlaid := merge(fallback, analysis, focus, shortlist)
	if !overlaid {
		m.logger.Warn().Str("symbol", focus.Symbol).Msg("Analysis response had no usable fields, using fallback narrative")
		return fallback
	}
	return merged
}

func (m *Merger) analyze(ctx context.Context, focus *models.TickerResult, shortlist []models.ShortlistEntry, target float64) (*analysisResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	prompt := BuildPrompt(focus, shortlist, target, m.promptCandidates)
	m.logger.Debug().Str("symbol", focus.Symbol).Int("prompt_len", len(prompt)).Msg("Requesting analysis")

	text, err := m.client.GenerateContent(callCtx, prompt)
	if err != nil {
		return nil, &models.AnalysisUnavailableError{Reason: "request failed", Err: err}
	}

	resp, err := parseAnalysis(text)
	if err != nil {
		return nil, &models.AnalysisUnavailableError{Reason: "unparseable response", Err: err}
	}
	return resp, nil
}

// Fallback builds the rule-based narrative. Recommendation depends only on
// earnings risk and whether the best contract meets the target.
func Fallback(focus *models.TickerResult, shortlist []models.ShortlistEntry, target float64) models.Narrative {
	n := models.Narrative{
		Recommendation: models.RecommendationWait,
		Warnings:       []string{},
		RiskLevel:      models.RiskMedium,
		KeyFactors:     []string{},
		Source:         models.NarrativeSourceFallback,
	}
	if focus == nil {
		n.RecommendationReasoning = "No ticker scanned successfully; nothing to recommend."
		return n
	}

	if focus.Risk != nil {
		n.RiskLevel = focus.Risk.Level
		n.Warnings = focus.Risk.Warnings()
	}

	best := focus.BestContract
	switch {
	case len(shortlist) > 0:
		n.RecommendedStrike = shortlist[0].Strike
	case best != nil:
		n.RecommendedStrike = best.Strike
	}

	switch {
	case focus.HasEarningsRisk:
		n.Recommendation = models.RecommendationAvoid
		date := "this week"
		if focus.Quote != nil && focus.Quote.EarningsDate != nil {
			date = "on " + focus.Quote.EarningsDate.Format("2006-01-02")
		}
		n.RecommendationReasoning = fmt.Sprintf("Earnings %s fall inside the holding window. A gap through the strike outweighs the premium.", date)
	case best != nil && best.MeetsTarget:
		n.Recommendation = models.RecommendationSell
		n.RecommendationReasoning = fmt.Sprintf("The $%s put pays %.2f%% for the week with a %.1f%% cushion, meeting the %.2f%% target. Size the position to the cash you can commit at the strike.",
			formatStrike(best.Strike), best.WeeklyReturnPercent, best.OTMPercent, target)
	case best != nil:
		n.RecommendationReasoning = fmt.Sprintf("No strike in range reaches the %.2f%% weekly target; the best is %.2f%% at $%s. Review strikes based on your risk tolerance.",
			target, best.WeeklyReturnPercent, formatStrike(best.Strike))
	default:
		n.RecommendationReasoning = "No puts in the OTM band had a bid. Wait for a better chain."
	}

	if best != nil {
		n.KeyFactors = append(n.KeyFactors,
			fmt.Sprintf("%.1f%% OTM cushion on the $%s strike", best.OTMPercent, formatStrike(best.Strike)),
			fmt.Sprintf("%.2f%% weekly return against a %.2f%% target", best.WeeklyReturnPercent, target))
	}
	if focus.AverageIV > 0 {
		n.KeyFactors = append(n.KeyFactors, fmt.Sprintf("Average implied volatility %.1f%%", focus.AverageIV))
	}
	if focus.Expiration != nil {
		n.KeyFactors = append(n.KeyFactors, fmt.Sprintf("%d days to expiry", focus.DaysToExpiry))
	}
	return n
}

// merge overlays valid analysis fields onto the fallback. Earnings risk
// still forces AVOID and the risk level never drops below the classifier's.
// The bool is false when the response contributed no valid field.
func merge(fallback models.Narrative, ai *analysisResponse, focus *models.TickerResult, shortlist []models.ShortlistEntry) (models.Narrative, bool) {
	n := fallback
	n.Source = models.NarrativeSourceAnalysis
	overlaid := false

	if rec := strings.ToUpper(strings.TrimSpace(ai.Recommendation)); models.ValidRecommendation(rec) {
		n.Recommendation = rec
		overlaid = true
	}
	if reasoning := strings.TrimSpace(ai.RecommendationReasoning); reasoning != "" {
		n.RecommendationReasoning = reasoning
		overlaid = true
	}
	if ai.RecommendedStrike.Valid && knownStrike(ai.RecommendedStrike.Value, focus, shortlist) {
		n.RecommendedStrike = ai.RecommendedStrike.Value
		overlaid = true
	}
	if level := models.RiskLevel(strings.ToUpper(strings.TrimSpace(ai.RiskLevel))); level.Valid() {
		n.RiskLevel = fallback.RiskLevel.Max(level)
		overlaid = true
	}

	if extra := union(nil, ai.Warnings); len(extra) > 0 {
		n.Warnings = union(fallback.Warnings, extra)
		overlaid = true
	}
	if factors := union(nil, ai.KeyFactors); len(factors) > 0 {
		n.KeyFactors = factors
		overlaid = true
	}

	if focus.HasEarningsRisk {
		n.Recommendation = models.RecommendationAvoid
	}
	return n, overlaid
}

// knownStrike reports whether strike is one of the focus ticker's candidates
func knownStrike(strike float64, focus *models.TickerResult, shortlist []models.ShortlistEntry) bool {
	for _, e := range shortlist {
		if e.Strike == strike {
			return true
		}
	}
	for _, c := range focus.Candidates {
		if c.Strike == strike {
			return true
		}
	}
	return false
}

// union appends b to a, dropping blanks and case-insensitive duplicates
func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool)
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			key := strings.ToLower(s)
			if s == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}

func formatStrike(strike float64) string {
	return strconv.FormatFloat(strike, 'f', -1, 64)
}
