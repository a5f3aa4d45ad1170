package usecase

import (
	"context"
	"fmt"
	"time"

	"CoinSight/internal/domain/models"
	domsvc "CoinSight/internal/domain/service"
	"CoinSight/internal/services/features"
	"CoinSight/internal/services/market"
	"CoinSight/pkg/util"
)

// AnalysisUseCase orchestrates the provider, the forecaster, the recovery
// scorer and the risk analyzer behind the HTTP surface.
type AnalysisUseCase struct {
	provider   domsvc.HistoryProvider
	forecaster domsvc.Forecaster
	scorer     domsvc.RecoveryScorer
	risk       domsvc.RiskAnalyzer
}

func NewAnalysisUseCase(
	provider domsvc.HistoryProvider,
	forecaster domsvc.Forecaster,
	scorer domsvc.RecoveryScorer,
	risk domsvc.RiskAnalyzer,
) *AnalysisUseCase {
	return &AnalysisUseCase{provider: provider, forecaster: forecaster, scorer: scorer, risk: risk}
}

// History serves the daily series for an asset.
func (uc *AnalysisUseCase) History(ctx context.Context, req *models.HistoryRequest) (*models.History, error) {
	return uc.provider.GetHistory(ctx, req.Asset, req.Days)
}

// Forecast runs the requested model over the asset's history.
func (uc *AnalysisUseCase) Forecast(ctx context.Context, req *models.ForecastRequest) (*models.Forecast, error) {
	return uc.forecaster.Forecast(ctx, req.Asset, req.Days, req.Model)
}

// Recovery assesses an underwater position. When the history is too thin
// to compute indicators the scorer runs its simplified fallback path.
func (uc *AnalysisUseCase) Recovery(ctx context.Context, req *models.RecoveryRequest) (*models.RecoveryAssessment, error) {
	purchaseDate := util.ParseDateDefault(req.PurchaseDate, time.Time{})
	if purchaseDate.IsZero() {
		return nil, fmt.Errorf("invalid purchaseDate %q", req.PurchaseDate)
	}

	pos := models.Position{
		Asset:         market.CanonicalAsset(req.Asset),
		Amount:        req.Amount,
		PurchasePrice: req.PurchasePrice,
		PurchaseDate:  purchaseDate,
	}

	current, _, err := uc.provider.CurrentPrice(ctx, pos.Asset)
	if err != nil {
		return nil, fmt.Errorf("current price for %s: %w", pos.Asset, err)
	}

	var snap *models.FeatureSnapshot
	if hist, err := uc.provider.GetHistory(ctx, pos.Asset, 90); err == nil && len(hist.Points) >= 30 {
		snap = features.Snapshot(hist, req.Sentiment)
	}
	return uc.scorer.Assess(ctx, pos, current, snap)
}

// Risk computes portfolio risk metrics over the shared history window.
func (uc *AnalysisUseCase) Risk(ctx context.Context, req *models.RiskRequest) (*models.RiskMetrics, error) {
	return uc.risk.Analyze(ctx, toPositions(req.Positions), req.Days)
}

// Optimize computes risk-tolerance-scaled portfolio weights.
func (uc *AnalysisUseCase) Optimize(ctx context.Context, req *models.OptimizeRequest) ([]models.AssetWeight, error) {
	return uc.risk.Optimize(ctx, toPositions(req.Positions), req.Tolerance, req.Days)
}

func toPositions(reqs []models.PositionRequest) []models.Position {
	out := make([]models.Position, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, models.Position{
			Asset:         market.CanonicalAsset(r.Asset),
			Amount:        r.Amount,
			PurchasePrice: r.PurchasePrice,
		})
	}
	return out
}
