package models

// Risk tolerance levels for the weight optimizer.
const (
	ToleranceLow    = "low"
	ToleranceMedium = "medium"
	ToleranceHigh   = "high"
)

// RiskMetrics are portfolio-level measures over the overlapping return window.
// All values are finite; degenerate inputs produce zeros.
type RiskMetrics struct {
	VaR95       float64 // 95% one-day value at risk, reported positive
	CVaR95      float64 // expected shortfall beyond VaR95, reported positive
	Volatility  float64 // annualized
	Sharpe      float64 // annualized, 0 when volatility is 0
	MaxDrawdown float64 // fraction of peak value, reported positive
	TotalValue  float64
	Window      int // number of overlapping return observations used
}

// AssetWeight pairs an asset with its optimized portfolio weight.
type AssetWeight struct {
	Asset  string
	Weight float64
}
