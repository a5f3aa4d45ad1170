package recovery

import (
	"context"
	"fmt"
	"math"
	"time"

	"CoinSight/internal/domain/models"
	domsvc "CoinSight/internal/domain/service"
)

// Model weights and biases. These came out of offline calibration against
// labeled recovery outcomes and are fixed at build time.
var weights = struct {
	loss, days, volatility, sentiment, rsi, volumeRatio, capStability float64
}{
	loss:         -0.3,
	days:         0.1,
	volatility:   -0.2,
	sentiment:    0.4,
	rsi:          0.2,
	volumeRatio:  0.15,
	capStability: 0.25,
}

var biases = struct {
	recovery, breakevenDays, confidence, risk float64
}{
	recovery:      0.5,
	breakevenDays: 30,
	confidence:    0.7,
	risk:          0.4,
}

// Scorer assesses underwater positions with a logistic model over the
// technical feature snapshot.
type Scorer struct{}

var _ domsvc.RecoveryScorer = (*Scorer)(nil)

func NewScorer() *Scorer { return &Scorer{} }

// normalized holds the scorer's feature vector. Loss is positive when the
// position is under water; sentiment is bipolar in [-1,1].
type normalized struct {
	loss         float64
	days         float64
	volatility   float64
	sentiment    float64
	rsi          float64
	volumeRatio  float64
	capStability float64
}

// Assess scores the position. A nil snapshot switches to the simplified
// fallback path; its output is labeled accordingly.
func (s *Scorer) Assess(ctx context.Context, pos models.Position, currentPrice float64, snap *models.FeatureSnapshot) (*models.RecoveryAssessment, error) {
	if pos.PurchasePrice <= 0 || currentPrice <= 0 {
		return nil, fmt.Errorf("recovery: purchase price and current price must be positive")
	}
	loss := pos.LossFraction(currentPrice)
	if snap == nil {
		return s.fallback(pos, currentPrice, loss), nil
	}

	f := normalizeFeatures(pos, loss, snap)

	z := f.loss*weights.loss +
		f.days*weights.days +
		f.volatility*weights.volatility +
		f.sentiment*weights.sentiment +
		f.rsi*weights.rsi +
		f.volumeRatio*weights.volumeRatio +
		f.capStability*weights.capStability +
		biases.recovery
	probability := sigmoid(z)

	days := breakevenDays(loss, snap.Sentiment, f.volatility)
	action := determineAction(loss, probability)

	a := &models.RecoveryAssessment{
		Asset:               pos.Asset,
		Severity:            Severity(loss),
		LossFraction:        loss,
		RecoveryProbability: probability,
		EstimatedDays:       days,
		Confidence:          confidence(f),
		RiskScore:           riskScore(f, loss),
		Action:              action,
		Factors:             factors(f, loss, probability),
		Strategy:            buildStrategy(action, currentPrice, days),
		ModelType:           "scored",
		GeneratedAt:         time.Now().UTC(),
	}
	return a, nil
}

func normalizeFeatures(pos models.Position, loss float64, snap *models.FeatureSnapshot) normalized {
	daysHeld := 0.0
	if !pos.PurchaseDate.IsZero() {
		daysHeld = time.Since(pos.PurchaseDate).Hours() / 24
	}
	return normalized{
		loss:         clamp(-loss, -1, 1), // positive when under water
		days:         math.Min(1, daysHeld/365),
		volatility:   clamp(snap.Volatility30*10, 0, 1),
		sentiment:    clamp(snap.Sentiment*2-1, -1, 1),
		rsi:          clamp(snap.RSI14/100, 0, 1),
		volumeRatio:  clamp(snap.VolumeRatio/2, 0, 1),
		capStability: clamp(snap.CapStability, 0, 1),
	}
}

// Severity steps the loss magnitude into a bucket. The boundaries land on
// the more severe side: a position down exactly 10% is Medium, not Low.
func Severity(loss float64) string {
	lossPct := math.Max(0, -loss) * 100
	switch {
	case lossPct < 10:
		return models.SeverityLow
	case lossPct < 25:
		return models.SeverityMedium
	case lossPct < 50:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

// breakevenDays estimates days to recover, clamped to [7, 365].
func breakevenDays(loss, sentiment, volatility float64) int {
	d := biases.breakevenDays +
		math.Abs(loss)*100 +
		(1-sentiment)*50 +
		volatility*30
	return int(clamp(d, 7, 365))
}

// determineAction maps (loss, probability) to a recommendation. The loss
// cutoffs are inclusive: exactly -50% takes the deep-loss row.
func determineAction(loss, probability float64) string {
	switch {
	case loss <= -0.5:
		if probability > 0.3 {
			return models.ActionDCA
		}
		return models.ActionSell
	case loss <= -0.2:
		if probability > 0.5 {
			return models.ActionDCA
		}
		return models.ActionWait
	case loss <= -0.1:
		if probability > 0.6 {
			return models.ActionHold
		}
		return models.ActionWait
	default:
		return models.ActionHold
	}
}

func confidence(f normalized) float64 {
	stability := f.capStability*0.3 +
		(1-f.volatility)*0.3 +
		math.Abs(f.sentiment)*0.2 +
		f.rsi*0.2
	return clamp(biases.confidence+stability*0.3, 0.3, 0.95)
}

func riskScore(f normalized, loss float64) float64 {
	r := math.Abs(loss)*0.4 +
		f.volatility*0.3 +
		(1-f.capStability)*0.2 +
		math.Max(0, -f.sentiment)*0.1
	return clamp(r, 0.1, 0.9)
}

func factors(f normalized, loss, probability float64) []string {
	var out []string
	if math.Abs(loss) > 0.3 {
		out = append(out, "Significant loss position requires careful strategy")
	}
	if f.sentiment > 0.3 {
		out = append(out, "Positive market sentiment supports recovery")
	} else if f.sentiment < -0.3 {
		out = append(out, "Negative market sentiment may delay recovery")
	}
	if f.volatility > 0.5 {
		out = append(out, "High volatility increases both risk and opportunity")
	}
	if f.rsi < 0.3 {
		out = append(out, "Oversold conditions suggest potential bounce")
	} else if f.rsi > 0.7 {
		out = append(out, "Overbought conditions suggest caution")
	}
	if f.capStability > 0.7 {
		out = append(out, "Stable market structure supports the position")
	}
	if f.days > 0.5 {
		out = append(out, "Long holding period - consider tax implications")
	}
	if probability > 0.7 {
		out = append(out, "High probability of recovery based on historical patterns")
	} else if probability < 0.3 {
		out = append(out, "Low probability of recovery - consider exit strategy")
	}
	if len(out) == 0 {
		out = append(out, "Standard market conditions apply")
	}
	return out
}

// buildStrategy turns the recommendation into a concrete plan.
func buildStrategy(action string, currentPrice float64, estimatedDays int) models.RecoveryStrategy {
	switch action {
	case models.ActionDCA:
		tranches := estimatedDays / 30
		if tranches < 2 {
			tranches = 2
		}
		if tranches > 6 {
			tranches = 6
		}
		return models.RecoveryStrategy{
			Action:      action,
			Description: fmt.Sprintf("Average down in %d equal tranches across the recovery window", tranches),
			Tranches:    tranches,
			ReviewDays:  estimatedDays / 2,
		}
	case models.ActionSell:
		return models.RecoveryStrategy{
			Action:      action,
			Description: "Exit the position; place a stop to cap further downside while unwinding",
			StopLoss:    currentPrice * 0.95,
			ReviewDays:  7,
		}
	case models.ActionWait:
		return models.RecoveryStrategy{
			Action:      action,
			Description: "Stay out of the position until conditions improve, then re-assess",
			ReviewDays:  reviewDays(estimatedDays),
		}
	default:
		return models.RecoveryStrategy{
			Action:      models.ActionHold,
			Description: "Maintain the position and re-assess at the review point",
			ReviewDays:  reviewDays(estimatedDays),
		}
	}
}

func reviewDays(estimatedDays int) int {
	d := estimatedDays / 2
	if d < 7 {
		d = 7
	}
	if d > 30 {
		d = 30
	}
	return d
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
