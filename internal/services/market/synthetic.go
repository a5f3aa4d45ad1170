package market

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"CoinSight/internal/domain/models"
)

// syntheticFloor keeps generated prices strictly positive.
const syntheticFloor = 0.001

// syntheticSeed derives a deterministic seed from (asset, days) and the
// current UTC day, so repeated fallbacks within a day agree with each
// other but the series still drifts over time.
func syntheticSeed(asset string, days int, now time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(CanonicalAsset(asset)))
	return int64(h.Sum64()) ^ int64(days)<<32 ^ now.UTC().Unix()/86400
}

// Synthetic generates a plausible daily series for an asset: two seasonal
// cycles plus seeded noise scaled by the asset's volatility profile, walked
// forward from the base price.
func Synthetic(asset string, days int, now time.Time) *models.History {
	if days < 1 {
		days = 1
	}
	p := profileFor(asset)
	rng := rand.New(rand.NewSource(syntheticSeed(asset, days, now)))

	h := &models.History{
		Asset:  CanonicalAsset(asset),
		Days:   days,
		Source: models.SourceSynthetic,
		Points: make([]models.PricePoint, 0, days),
	}

	price := p.BasePrice
	prev := 0.0
	start := now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		cyclical := math.Sin(float64(i)/30)*0.02 + math.Sin(float64(i)/7)*0.01
		noise := (rng.Float64() - 0.5) * p.Volatility
		price *= 1 + cyclical + noise
		if price < syntheticFloor {
			price = syntheticFloor
		}

		change := 0.0
		if i > 0 && prev > 0 {
			change = (price - prev) / prev * 100
		}
		h.Points = append(h.Points, models.PricePoint{
			Date:      start.AddDate(0, 0, i),
			Price:     price,
			Volume:    p.BasePrice * 1e6 * (0.5 + rng.Float64()),
			Change24h: change,
		})
		prev = price
	}
	return h
}
