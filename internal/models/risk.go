package models

// RiskLevel is the coarse risk bucket assigned by the classifier.
type RiskLevel string

const (
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskExtreme RiskLevel = "EXTREME"
)

var riskRank = map[RiskLevel]int{
	RiskLow:     1,
	RiskMedium:  2,
	RiskHigh:    3,
	RiskExtreme: 4,
}

// Valid reports whether l is one of the four known levels.
func (l RiskLevel) Valid() bool {
	_, ok := riskRank[l]
	return ok
}

// Max returns the more severe of two levels. Unknown levels lose.
func (l RiskLevel) Max(other RiskLevel) RiskLevel {
	if riskRank[other] > riskRank[l] {
		return other
	}
	return l
}

// Flag names as reported in RiskFlags.Active.
const (
	FlagEarningsImminent   = "earnings_imminent"
	FlagElevatedVolatility = "elevated_volatility"
	FlagLiquidityRisk      = "liquidity_risk"
	FlagExecutionRisk      = "execution_risk"
	FlagThetaRisk          = "theta_risk"
)

// RiskFlags are evaluated independently; any subset may be set.
type RiskFlags struct {
	EarningsImminent   bool      `json:"earnings_imminent"`
	ElevatedVolatility bool      `json:"elevated_volatility"`
	LiquidityRisk      bool      `json:"liquidity_risk"`
	ExecutionRisk      bool      `json:"execution_risk"`
	ThetaRisk          bool      `json:"theta_risk"`
	Level              RiskLevel `json:"level"`
}

// Active lists the names of the flags that fired, in a fixed order.
func (f RiskFlags) Active() []string {
	var active []string
	if f.EarningsImminent {
		active = append(active, FlagEarningsImminent)
	}
	if f.ElevatedVolatility {
		active = append(active, FlagElevatedVolatility)
	}
	if f.LiquidityRisk {
		active = append(active, FlagLiquidityRisk)
	}
	if f.ExecutionRisk {
		active = append(active, FlagExecutionRisk)
	}
	if f.ThetaRisk {
		active = append(active, FlagThetaRisk)
	}
	return active
}

// Warnings turns the active flags into human-readable warnings.
func (f RiskFlags) Warnings() []string {
	warnings := make([]string, 0, 5)
	if f.EarningsImminent {
		warnings = append(warnings, "Earnings imminent - high risk of a gap through the strike")
	}
	if f.ElevatedVolatility {
		warnings = append(warnings, "Elevated implied volatility - premium reflects a larger expected move")
	}
	if f.LiquidityRisk {
		warnings = append(warnings, "Thin open interest on the best strike - fills may be poor")
	}
	if f.ExecutionRisk {
		warnings = append(warnings, "Wide bid/ask spread - use limit orders near the mid")
	}
	if f.ThetaRisk {
		warnings = append(warnings, "Expiry imminent - little time premium left to collect")
	}
	return warnings
}
