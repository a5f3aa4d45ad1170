package models

import "time"

// Loss severity buckets, stepped on the loss magnitude.
const (
	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"
)

// Recommended actions for an underwater position.
const (
	ActionHold = "hold"
	ActionWait = "wait"
	ActionDCA  = "dca"
	ActionSell = "sell"
)

// Position is a holding being assessed.
type Position struct {
	Asset         string
	Amount        float64
	PurchasePrice float64
	PurchaseDate  time.Time
}

// CurrentValue returns the position value at the given price.
func (p Position) CurrentValue(price float64) float64 {
	return p.Amount * price
}

// LossFraction returns (current-purchase)/purchase; negative when under water.
func (p Position) LossFraction(price float64) float64 {
	if p.PurchasePrice <= 0 {
		return 0
	}
	return (price - p.PurchasePrice) / p.PurchasePrice
}

// RecoveryStrategy is the concrete plan attached to an assessment.
type RecoveryStrategy struct {
	Action      string
	Description string
	Tranches    int     // DCA purchases over the recovery window, 0 otherwise
	StopLoss    float64 // exit level for sell, 0 otherwise
	ReviewDays  int     // when to re-assess
}

// RecoveryAssessment is the scoring engine output for one position.
type RecoveryAssessment struct {
	Asset               string
	Severity            string
	LossFraction        float64
	RecoveryProbability float64 // strictly in (0,1)
	EstimatedDays       int     // days to breakeven, clamped [7,365]
	Confidence          float64 // [0.3, 0.95]
	RiskScore           float64 // [0.1, 0.9]
	Action              string
	Factors             []string
	Strategy            RecoveryStrategy
	ModelType           string // "scored" or ModelFallback
	GeneratedAt         time.Time
}
