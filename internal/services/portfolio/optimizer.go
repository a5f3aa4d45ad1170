package portfolio

import (
	"context"
	"math"
	"sort"

	"CoinSight/internal/domain/models"
	"CoinSight/internal/services/features"
)

// maxPicks caps how many assets receive weight; the rest score out.
const maxPicks = 5

// volBias returns the volatility penalty exponent for a risk tolerance.
func volBias(tolerance string) float64 {
	switch tolerance {
	case models.ToleranceLow:
		return 1.5
	case models.ToleranceHigh:
		return 0.7
	default:
		return 1.0
	}
}

// Optimize scores each asset by max(0, sharpe) / max(1e-6, vol^bias),
// keeps the top picks by Sharpe and normalizes their scores into weights
// that sum to 1. When every score is zero the picks are weighted equally,
// so the weights always form a distribution.
func (a *Analyzer) Optimize(ctx context.Context, positions []models.Position, tolerance string, days int) ([]models.AssetWeight, error) {
	if len(positions) == 0 {
		return nil, nil
	}
	if days < 2 {
		days = 90
	}

	histories, err := a.fetchHistories(ctx, positions, days)
	if err != nil {
		return nil, err
	}

	type score struct {
		asset  string
		sharpe float64
		vol    float64
	}
	scores := make([]score, 0, len(histories))
	for asset, h := range histories {
		rets := features.Returns(h.Prices())
		vol := AnnualizedVolatility(rets)
		if vol == 0 {
			vol = 0.0001
		}
		scores = append(scores, score{asset: asset, sharpe: Sharpe(rets), vol: vol})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].sharpe != scores[j].sharpe {
			return scores[i].sharpe > scores[j].sharpe
		}
		return scores[i].asset < scores[j].asset
	})
	if len(scores) > maxPicks {
		scores = scores[:maxPicks]
	}

	bias := volBias(tolerance)
	raw := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		raw[i] = math.Max(0, s.sharpe) / math.Max(1e-6, math.Pow(s.vol, bias))
		sum += raw[i]
	}

	out := make([]models.AssetWeight, len(scores))
	for i, s := range scores {
		w := 0.0
		if sum > 0 {
			w = raw[i] / sum
		} else {
			w = 1 / float64(len(scores))
		}
		out[i] = models.AssetWeight{Asset: s.asset, Weight: w}
	}
	return out, nil
}
