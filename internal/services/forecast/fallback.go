package forecast

import (
	"math/rand"
)

// fallbackAccuracy is the documented label for the bounded random-walk
// path: it is an estimate, not a measured backtest result.
const fallbackAccuracy = 65.0

// priceFloor keeps degraded predictions strictly positive.
const priceFloor = 0.001

// randomWalk produces a bounded random-walk projection anchored at the
// current price. Step size scales with the observed volatility and is
// capped so a degraded forecast never explodes.
func randomWalk(current, volatility float64, steps int, rng *rand.Rand) []float64 {
	if volatility <= 0 || volatility > 0.2 {
		volatility = 0.02
	}
	out := make([]float64, steps)
	price := current
	for i := 0; i < steps; i++ {
		price *= 1 + (rng.Float64()-0.5)*2*volatility
		if price < priceFloor {
			price = priceFloor
		}
		out[i] = price
	}
	return out
}
