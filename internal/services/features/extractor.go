package features

import (
	"math"

	"CoinSight/internal/domain/models"
)

// Returns computes simple percentage returns r_t = (P_t - P_{t-1}) / P_{t-1}.
// It returns a slice of length len(prices)-1, or nil if insufficient data.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		cur := prices[i]
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (cur-prev)/prev)
	}
	return out
}

// SMA computes the sliding-window simple moving average. The result has
// length len(values)-window+1; a series shorter than the window yields nil.
func SMA(values []float64, window int) []float64 {
	if window <= 0 || len(values) < window {
		return nil
	}
	out := make([]float64, 0, len(values)-window+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out = append(out, sum/float64(window))
		}
	}
	return out
}

// trailingMean averages the last window values. A series shorter than the
// window averages what exists.
func trailingMean(values []float64, window int) float64 {
	if len(values) == 0 || window <= 0 {
		return 0
	}
	if window > len(values) {
		window = len(values)
	}
	sum := 0.0
	for i := len(values) - window; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(window)
}

// RSI computes the relative strength index over the given period using
// Wilder-style averaged gains and losses. Short input yields neutral 50;
// an all-loss window yields 0 and a window with no losses yields 100.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}
	gains := 0.0
	losses := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gains += d
		} else {
			losses -= d
		}
	}
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := (gains / float64(period)) / avgLoss
	return 100 - 100/(1+rs)
}

// defaultVolatility stands in when a series is too short to measure.
const defaultVolatility = 0.02

// Volatility computes the population standard deviation of the returns.
// An empty series yields the small default rather than 0.
func Volatility(returns []float64) float64 {
	if len(returns) == 0 {
		return defaultVolatility
	}
	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))
	sum2 := 0.0
	for _, r := range returns {
		d := r - mean
		sum2 += d * d
	}
	v := sum2 / float64(len(returns))
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

// TrendSlope fits an OLS line over index -> price and normalizes the slope
// by the mean price, making it comparable across assets.
func TrendSlope(prices []float64) float64 {
	n := len(prices)
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, p := range prices {
		x := float64(i)
		sumX += x
		sumY += p
		sumXY += x * p
		sumXX += x * x
	}
	fn := float64(n)
	den := fn*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}
	slope := (fn*sumXY - sumX*sumY) / den
	mean := sumY / fn
	if mean == 0 {
		return 0
	}
	return slope / mean
}

// Momentum computes (last-first)/first over the trailing lookback window.
func Momentum(prices []float64, lookback int) float64 {
	if len(prices) < 2 || lookback < 1 {
		return 0
	}
	if lookback >= len(prices) {
		lookback = len(prices) - 1
	}
	first := prices[len(prices)-1-lookback]
	last := prices[len(prices)-1]
	if first <= 0 {
		return 0
	}
	return (last - first) / first
}

// tail returns the last n elements, or the whole slice when shorter.
func tail(values []float64, n int) []float64 {
	if n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}

// Snapshot bundles the indicators the recovery scorer and forecaster consume.
// Sentiment defaults from the trend direction when the caller has none.
func Snapshot(h *models.History, sentiment float64) *models.FeatureSnapshot {
	prices := h.Prices()
	volumes := h.Volumes()
	rets := Returns(prices)
	vol30 := Volatility(tail(rets, 30))

	volumeRatio := 1.0
	if avg := trailingMean(volumes, 30); avg > 0 && len(volumes) > 0 {
		volumeRatio = volumes[len(volumes)-1] / avg
	}

	trend := TrendSlope(tail(prices, 30))
	if sentiment < 0 || sentiment > 1 {
		sentiment = 0.5
	}
	if sentiment == 0.5 && trend != 0 {
		// nudge neutral sentiment toward the observed trend
		sentiment = clamp01(0.5 + trend*10)
	}

	// stability proxy: calm series score high, jumpy ones low
	stability := clamp01(1 - vol30*10)

	return &models.FeatureSnapshot{
		SMA7:         trailingMean(prices, 7),
		SMA30:        trailingMean(prices, 30),
		RSI14:        RSI(prices, 14),
		Volatility30: vol30,
		TrendSlope:   trend,
		Momentum10:   Momentum(prices, 10),
		VolumeRatio:  volumeRatio,
		Sentiment:    sentiment,
		CapStability: stability,
		DataPoints:   len(prices),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
