package models

// Narrative sources
const (
	NarrativeSourceAnalysis = "analysis"
	NarrativeSourceFallback = "fallback"
)

// Narrative is the qualitative recommendation block for the focus ticker.
// Every field is populated, whether it came from the analysis service or
// from the rule-based fallback.
type Narrative struct {
	RecommendedStrike       float64   `json:"recommended_strike"`
	Recommendation          string    `json:"recommendation"`
	RecommendationReasoning string    `json:"recommendation_reasoning"`
	Warnings                []string  `json:"warnings"`
	RiskLevel               RiskLevel `json:"risk_level"`
	KeyFactors              []string  `json:"key_factors"`
	Source                  string    `json:"source"`
}

// ValidRecommendation reports whether r is SELL, WAIT or AVOID.
func ValidRecommendation(r string) bool {
	switch r {
	case RecommendationSell, RecommendationWait, RecommendationAvoid:
		return true
	}
	return false
}
