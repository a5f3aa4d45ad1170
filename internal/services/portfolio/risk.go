package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"

	"CoinSight/internal/domain/models"
	domsvc "CoinSight/internal/domain/service"
	"CoinSight/internal/services/features"
)

// periodsPerYear annualizes daily crypto series. Crypto trades every day;
// traditional assets would use 252.
const periodsPerYear = 365

// Analyzer computes portfolio risk metrics and optimized weights from
// per-asset histories.
type Analyzer struct {
	provider domsvc.HistoryProvider
}

var _ domsvc.RiskAnalyzer = (*Analyzer)(nil)

func NewAnalyzer(provider domsvc.HistoryProvider) *Analyzer {
	return &Analyzer{provider: provider}
}

// Percentile returns the p-quantile (0..1) of values by sorted index.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	arr := append([]float64(nil), values...)
	sort.Float64s(arr)
	idx := int(math.Floor(p * float64(len(arr)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx > len(arr)-1 {
		idx = len(arr) - 1
	}
	return arr[idx]
}

// VaR computes value at risk at the given level as the loss-tail quantile,
// reported non-negative.
func VaR(returns []float64, alpha float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	loss := make([]float64, len(returns))
	for i, r := range returns {
		loss[i] = -r
	}
	return math.Max(0, Percentile(loss, alpha))
}

// CVaR computes the expected shortfall: mean loss at or beyond the VaR
// cutoff.
func CVaR(returns []float64, alpha float64) float64 {
	q := VaR(returns, alpha)
	sum := 0.0
	n := 0
	for _, r := range returns {
		if -r >= q {
			sum += -r
			n++
		}
	}
	if n == 0 {
		return q
	}
	return sum / float64(n)
}

// AnnualizedVolatility is the sample std-dev of daily returns scaled by
// sqrt(periods per year).
func AnnualizedVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	return math.Sqrt(variance) * math.Sqrt(periodsPerYear)
}

// Sharpe is the annualized mean return over annualized volatility, 0 when
// the volatility is 0.
func Sharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	vol := AnnualizedVolatility(returns)
	if vol == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	return mean * periodsPerYear / vol
}

// MaxDrawdown returns the largest peak-to-trough decline of the series as a
// positive fraction.
func MaxDrawdown(series []float64) float64 {
	peak := math.Inf(-1)
	maxDD := 0.0
	for _, v := range series {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (v - peak) / peak
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	return -maxDD
}

// Analyze builds the value-weighted portfolio series over the overlapping
// window and computes its risk metrics. Degenerate inputs produce zeros,
// never NaN or Inf.
func (a *Analyzer) Analyze(ctx context.Context, positions []models.Position, days int) (*models.RiskMetrics, error) {
	if len(positions) == 0 {
		return &models.RiskMetrics{}, nil
	}
	if days < 2 {
		days = 90
	}

	histories, err := a.fetchHistories(ctx, positions, days)
	if err != nil {
		return nil, err
	}

	totalValue := 0.0
	weights := make(map[string]float64, len(positions))
	for _, pos := range positions {
		price := lastPrice(histories[pos.Asset])
		v := pos.CurrentValue(price)
		weights[pos.Asset] += v
		totalValue += v
	}
	if totalValue > 0 {
		for asset := range weights {
			weights[asset] /= totalValue
		}
	}

	series := portfolioSeries(histories, weights)
	returns := features.Returns(series)

	m := &models.RiskMetrics{
		VaR95:       VaR(returns, 0.95),
		CVaR95:      CVaR(returns, 0.95),
		Volatility:  AnnualizedVolatility(returns),
		Sharpe:      Sharpe(returns),
		MaxDrawdown: MaxDrawdown(series),
		TotalValue:  totalValue,
		Window:      len(returns),
	}
	sanitize(m)
	return m, nil
}

func (a *Analyzer) fetchHistories(ctx context.Context, positions []models.Position, days int) (map[string]*models.History, error) {
	histories := make(map[string]*models.History, len(positions))
	for _, pos := range positions {
		if _, ok := histories[pos.Asset]; ok {
			continue
		}
		h, err := a.provider.GetHistory(ctx, pos.Asset, days)
		if err != nil {
			return nil, fmt.Errorf("history for %s: %w", pos.Asset, err)
		}
		histories[pos.Asset] = h
	}
	return histories, nil
}

// portfolioSeries builds the weighted value path over the window shared by
// every asset. Histories are daily, so alignment is by trailing offset.
func portfolioSeries(histories map[string]*models.History, weights map[string]float64) []float64 {
	minLen := math.MaxInt
	for _, h := range histories {
		if len(h.Points) < minLen {
			minLen = len(h.Points)
		}
	}
	if minLen == math.MaxInt || minLen == 0 {
		return nil
	}

	series := make([]float64, minLen)
	for asset, h := range histories {
		w := weights[asset]
		if w == 0 {
			continue
		}
		offset := len(h.Points) - minLen
		for i := 0; i < minLen; i++ {
			series[i] += w * h.Points[offset+i].Price
		}
	}
	return series
}

func lastPrice(h *models.History) float64 {
	if h == nil {
		return 0
	}
	return h.Last().Price
}

func sanitize(m *models.RiskMetrics) {
	fix := func(v *float64) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			*v = 0
		}
	}
	fix(&m.VaR95)
	fix(&m.CVaR95)
	fix(&m.Volatility)
	fix(&m.Sharpe)
	fix(&m.MaxDrawdown)
	fix(&m.TotalValue)
}
