package models

// FeatureSnapshot bundles the technical indicators computed over a history
// window. Consumed by the recovery scorer and the forecast engine.
type FeatureSnapshot struct {
	SMA7          float64
	SMA30         float64
	RSI14         float64
	Volatility30  float64 // std-dev of daily returns over the last 30
	TrendSlope    float64 // scale-free OLS slope
	Momentum10    float64
	VolumeRatio   float64 // last volume / average volume
	Sentiment     float64 // [0,1], caller supplied or derived from trend
	CapStability  float64 // [0,1], proxy from volatility
	DataPoints    int
}
