package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"CoinSight/internal/domain/models"
	icache "CoinSight/internal/service/cache"
	"CoinSight/internal/service/metrics"
	"CoinSight/internal/service/ratelimit"
	"CoinSight/internal/usecase"
	xhttp "CoinSight/pkg/http"
	xlogger "CoinSight/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CacheTTLs controls the per-endpoint response cache lifetimes.
type CacheTTLs struct {
	History  time.Duration
	Forecast time.Duration
}

func defaultCacheTTLs() CacheTTLs {
	return CacheTTLs{
		History:  5 * time.Minute,
		Forecast: 10 * time.Minute,
	}
}

// AnalysisHandler implements Echo-based HTTP handlers following Clean Architecture.
type AnalysisHandler struct {
	logger *xlogger.Logger
	uc     *usecase.AnalysisUseCase
	cache  icache.BytesCache
	ttls   CacheTTLs
	rl     *ratelimit.Limiter
	health func(c echo.Context) error
}

func NewAnalysisHandler(logger *xlogger.Logger, uc *usecase.AnalysisUseCase) *AnalysisHandler {
	metrics.Register()
	return &AnalysisHandler{
		logger: logger,
		uc:     uc,
		ttls:   defaultCacheTTLs(),
		rl:     ratelimit.New(),
	}
}

// SetCache enables response caching for the read-heavy endpoints.
func (h *AnalysisHandler) SetCache(c icache.BytesCache, ttls CacheTTLs) {
	h.cache = c
	if ttls.History > 0 {
		h.ttls.History = ttls.History
	}
	if ttls.Forecast > 0 {
		h.ttls.Forecast = ttls.Forecast
	}
}

// SetHealthCheck registers an extra readiness probe for /api/health.
func (h *AnalysisHandler) SetHealthCheck(fn func(c echo.Context) error) { h.health = fn }

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/history", h.History)
	g.POST("/forecast", h.Forecast)
	g.POST("/recovery", h.Recovery)
	g.POST("/risk", h.Risk)
	g.POST("/optimize", h.Optimize)
	g.POST("/overview", h.Overview)
}

func (h *AnalysisHandler) Health(c echo.Context) error {
	if h.health != nil {
		if err := h.health(c); err != nil {
			return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *AnalysisHandler) History(c echo.Context) error {
	start := time.Now()
	endpoint := "history"
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":history", 10, 5) {
		return h.rateLimited(c, endpoint)
	}

	cacheKey := "history:" + req.Asset + ":" + strconv.Itoa(req.Days)
	if b, ok := h.cached(endpoint, cacheKey); ok {
		return h.writeCached(c, b)
	}

	res, err := h.uc.History(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	h.store(endpoint, cacheKey, res, h.ttls.History)
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisHandler) Forecast(c echo.Context) error {
	start := time.Now()
	endpoint := "forecast"
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	// Model training is the most expensive call in the API; keep the
	// bucket small.
	if !h.rl.Allow(c.RealIP()+":forecast", 3, 1) {
		return h.rateLimited(c, endpoint)
	}

	cacheKey := "forecast:" + req.Asset + ":" + strconv.Itoa(req.Days) + ":" + req.Model
	if b, ok := h.cached(endpoint, cacheKey); ok {
		return h.writeCached(c, b)
	}

	res, err := h.uc.Forecast(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	h.store(endpoint, cacheKey, res, h.ttls.Forecast)
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisHandler) Recovery(c echo.Context) error {
	start := time.Now()
	endpoint := "recovery"
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.RecoveryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":recovery", 5, 2) {
		return h.rateLimited(c, endpoint)
	}

	res, err := h.uc.Recovery(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisHandler) Risk(c echo.Context) error {
	start := time.Now()
	endpoint := "risk"
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.RiskRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":risk", 5, 2) {
		return h.rateLimited(c, endpoint)
	}

	res, err := h.uc.Risk(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisHandler) Optimize(c echo.Context) error {
	start := time.Now()
	endpoint := "optimize"
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.OptimizeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":optimize", 5, 2) {
		return h.rateLimited(c, endpoint)
	}

	res, err := h.uc.Optimize(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisHandler) Overview(c echo.Context) error {
	start := time.Now()
	endpoint := "overview"
	defer func() { metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.RiskRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	// Overview fans out into several model runs per call.
	if !h.rl.Allow(c.RealIP()+":overview", 2, 0.5) {
		return h.rateLimited(c, endpoint)
	}

	res, err := h.uc.Overview(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisHandler) rateLimited(c echo.Context, endpoint string) error {
	if h.logger != nil {
		h.logger.Warn(endpoint+" rate_limited", xlogger.String("remote", c.RealIP()))
	}
	return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
}

// fail maps domain errors to responses. A thin history is the caller's
// problem (422 with the point counts); everything else is internal.
func (h *AnalysisHandler) fail(c echo.Context, endpoint string, err error) error {
	metrics.AnalyticsErrors.WithLabelValues(endpoint).Inc()
	if ide, ok := models.AsInsufficientData(err); ok {
		if h.logger != nil {
			h.logger.Warn(endpoint+" insufficient data",
				xlogger.String("asset", ide.Asset),
				xlogger.Int("required", ide.Required),
				xlogger.Int("actual", ide.Actual),
			)
		}
		appErr := xhttp.NewAppError("ERR_INSUFFICIENT_DATA", "asset", ide.Error(), http.StatusUnprocessableEntity).
			WithParam("required", ide.Required).
			WithParam("actual", ide.Actual)
		return xhttp.AppErrorResponse(c, appErr)
	}
	if h.logger != nil {
		h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, err)
}

func (h *AnalysisHandler) cached(endpoint, key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn(endpoint+" cache_get_error", xlogger.Error(err))
		}
		return nil, false
	}
	if ok && h.logger != nil {
		h.logger.Debug(endpoint+" cache_hit", xlogger.String("key", key))
	}
	return b, ok
}

func (h *AnalysisHandler) store(endpoint, key string, v interface{}, ttl time.Duration) {
	if h.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := h.cache.SetBytes(key, b, ttl); err != nil && h.logger != nil {
		h.logger.Warn(endpoint+" cache_set_error", xlogger.Error(err))
	}
}

func (h *AnalysisHandler) writeCached(c echo.Context, b []byte) error {
	var v json.RawMessage = b
	return xhttp.SuccessResponse(c, v)
}
