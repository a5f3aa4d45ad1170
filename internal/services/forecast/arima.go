package forecast

import (
	"fmt"

	domsvc "CoinSight/internal/domain/service"
)

// ARIMA is the statistical predictor: autoregressive with differencing and a
// moving-average correction. AR coefficients come from the Yule-Walker
// relations on the differenced series, MA coefficients from the residual
// autocovariances.
type ARIMA struct {
	p, d, q  int
	arCoeffs []float64
	maCoeffs []float64

	series    []float64 // original series kept for integration
	diff      []float64
	residuals []float64
	fitted    bool
}

var _ domsvc.PricePredictor = (*ARIMA)(nil)

// NewARIMA builds a predictor with the given orders. Zero or negative
// values fall back to the defaults p=2, d=1, q=2.
func NewARIMA(p, d, q int) *ARIMA {
	if p <= 0 {
		p = 2
	}
	if d < 0 {
		d = 1
	}
	if q <= 0 {
		q = 2
	}
	return &ARIMA{p: p, d: d, q: q}
}

func (a *ARIMA) Name() string { return "ARIMA" }

// Fit estimates AR and MA coefficients on the chronological price series.
func (a *ARIMA) Fit(prices []float64) error {
	if len(prices) < a.p+a.d+2 {
		return fmt.Errorf("arima: series too short: %d points", len(prices))
	}
	a.series = append([]float64(nil), prices...)
	a.diff = difference(a.series, a.d)

	// Yule-Walker: phi_i ~ gamma[i+1]/gamma[0]
	gamma0 := autocovariance(a.diff, 0)
	a.arCoeffs = make([]float64, a.p)
	if gamma0 != 0 {
		for i := 0; i < a.p; i++ {
			a.arCoeffs[i] = autocovariance(a.diff, i+1) / gamma0
		}
	}

	// Residuals of the AR fit.
	a.residuals = a.residuals[:0]
	for i := a.p; i < len(a.diff); i++ {
		pred := 0.0
		for j := 0; j < a.p; j++ {
			pred += a.arCoeffs[j] * a.diff[i-j-1]
		}
		a.residuals = append(a.residuals, a.diff[i]-pred)
	}

	// MA coefficients from residual autocovariances.
	a.maCoeffs = make([]float64, a.q)
	if len(a.residuals) > 1 {
		r0 := autocovariance(a.residuals, 0)
		if r0 != 0 {
			for i := 0; i < a.q; i++ {
				if i < len(a.residuals)-1 {
					a.maCoeffs[i] = autocovariance(a.residuals, i+1) / r0
				}
			}
		}
	}

	a.fitted = true
	return nil
}

// Predict forecasts the differenced series recursively and integrates back
// onto the price level.
func (a *ARIMA) Predict(steps int) ([]float64, error) {
	if !a.fitted {
		return nil, fmt.Errorf("arima: predict before fit")
	}
	if steps <= 0 {
		return nil, fmt.Errorf("arima: steps must be positive, got %d", steps)
	}

	diff := append([]float64(nil), a.diff...)
	preds := make([]float64, 0, steps)
	for step := 0; step < steps; step++ {
		p := 0.0
		for i := 0; i < a.p; i++ {
			idx := len(diff) - 1 - i
			if idx >= 0 {
				p += a.arCoeffs[i] * diff[idx]
			}
		}
		for i := 0; i < a.q; i++ {
			idx := len(a.residuals) - 1 - i - step
			if idx >= 0 {
				p += a.maCoeffs[i] * a.residuals[idx]
			}
		}
		preds = append(preds, p)
		diff = append(diff, p)
	}

	// Integrate: cumulative sum anchored at the last observed price.
	out := make([]float64, steps)
	last := a.series[len(a.series)-1]
	for i, dp := range preds {
		if i == 0 {
			out[i] = last + dp
		} else {
			out[i] = out[i-1] + dp
		}
	}
	return out, nil
}

func difference(data []float64, order int) []float64 {
	result := append([]float64(nil), data...)
	for o := 0; o < order; o++ {
		next := make([]float64, 0, len(result)-1)
		for i := 1; i < len(result); i++ {
			next = append(next, result[i]-result[i-1])
		}
		result = next
	}
	return result
}

func autocovariance(data []float64, lag int) float64 {
	if len(data) <= lag {
		return 0
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	sum := 0.0
	for i := lag; i < len(data); i++ {
		sum += (data[i] - mean) * (data[i-lag] - mean)
	}
	return sum / float64(len(data)-lag)
}
