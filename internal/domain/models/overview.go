package models

import "time"

// PortfolioOverview is a consolidated view of the portfolio analyses.
// Note: no transport (json/http) concerns here.
type PortfolioOverview struct {
	Timestamp time.Time
	Risk      *RiskMetrics
	Weights   []AssetWeight
	Forecasts map[string]*Forecast
	Errors    map[string]string
}
