package market

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"CoinSight/internal/domain/models"
	"CoinSight/internal/domain/repository"
	domsvc "CoinSight/internal/domain/service"
	"CoinSight/pkg/cache"
	xhttp "CoinSight/pkg/http"
	applogger "CoinSight/pkg/logger"
)

const (
	defaultCacheTTL = 5 * time.Minute
	defaultTimeout  = 20 * time.Second

	// after this many consecutive upstream failures the provider stops
	// calling out and serves synthetic series until the cooldown elapses
	defaultMaxFailures     = 3
	defaultFailureCooldown = 10 * time.Minute
)

// Provider serves daily price series from a CoinGecko-style market API,
// falling back to the deterministic synthetic generator whenever the
// upstream misbehaves. Upstream failure never reaches the caller.
type Provider struct {
	baseURL  string
	apiKey   string
	currency string
	client   *xhttp.Client

	cache    cache.Service
	cacheTTL time.Duration

	maxFailures int
	cooldown    time.Duration

	mu          sync.Mutex
	failures    int
	suspendedTo time.Time

	livePrice func(asset string) (float64, bool)
	log       *applogger.Logger
	metrics   repository.Metrics

	now func() time.Time
}

var _ domsvc.HistoryProvider = (*Provider)(nil)

type ProviderOption func(*Provider)

func WithAPIKey(key string) ProviderOption {
	return func(p *Provider) { p.apiKey = key }
}

func WithCurrency(currency string) ProviderOption {
	return func(p *Provider) {
		if currency != "" {
			p.currency = currency
		}
	}
}

func WithTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) {
		if d > 0 {
			p.client = xhttp.NewClient(xhttp.WithTimeout(d))
		}
	}
}

// WithCache caches fetched series per (asset, days).
func WithCache(c cache.Service, ttl time.Duration) ProviderOption {
	return func(p *Provider) {
		p.cache = c
		if ttl > 0 {
			p.cacheTTL = ttl
		}
	}
}

// WithFailureBreaker tunes the consecutive-failure short circuit.
func WithFailureBreaker(maxFailures int, cooldown time.Duration) ProviderOption {
	return func(p *Provider) {
		if maxFailures > 0 {
			p.maxFailures = maxFailures
		}
		if cooldown > 0 {
			p.cooldown = cooldown
		}
	}
}

// WithLivePrices consults the realtime tick table before anything else
// when answering CurrentPrice.
func WithLivePrices(fn func(asset string) (float64, bool)) ProviderOption {
	return func(p *Provider) { p.livePrice = fn }
}

func WithLogger(l *applogger.Logger) ProviderOption {
	return func(p *Provider) { p.log = l }
}

func WithMetrics(m repository.Metrics) ProviderOption {
	return func(p *Provider) { p.metrics = m }
}

func NewProvider(baseURL string, opts ...ProviderOption) *Provider {
	p := &Provider{
		baseURL:     baseURL,
		currency:    "usd",
		client:      xhttp.NewClient(xhttp.WithTimeout(defaultTimeout)),
		cacheTTL:    defaultCacheTTL,
		maxFailures: defaultMaxFailures,
		cooldown:    defaultFailureCooldown,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// marketChart is the upstream response shape: [timestamp_ms, value] pairs.
type marketChart struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// GetHistory returns the daily series for an asset. Cache first, then the
// remote API, then the synthetic fallback. The only errors returned are
// broken requests.
func (p *Provider) GetHistory(ctx context.Context, asset string, days int) (*models.History, error) {
	if asset == "" {
		return nil, fmt.Errorf("market: asset is required")
	}
	if days < 1 {
		return nil, fmt.Errorf("market: days must be >= 1, got %d", days)
	}
	id := CanonicalAsset(asset)
	key := fmt.Sprintf("history:%s:%d", id, days)

	if p.cache != nil {
		var cached models.History
		if err := p.cache.Get(ctx, key, &cached); err == nil && len(cached.Points) > 0 {
			return &cached, nil
		}
	}

	h, err := p.fetchRemote(ctx, id, days)
	if err != nil {
		if p.log != nil {
			p.log.Warn("remote history fetch failed, serving synthetic",
				applogger.String("asset", id),
				applogger.Int("days", days),
				applogger.Error(err))
		}
		if p.metrics != nil {
			p.metrics.RecordError("market_fetch")
		}
		return Synthetic(id, days, p.now()), nil
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, h, p.cacheTTL); err != nil && p.log != nil {
			p.log.Warn("history cache write failed", applogger.Error(err))
		}
	}
	return h, nil
}

// CurrentPrice answers from the live tick table, then the freshest history
// point. The returned source tag tells the caller which path answered.
func (p *Provider) CurrentPrice(ctx context.Context, asset string) (float64, string, error) {
	id := CanonicalAsset(asset)
	if p.livePrice != nil {
		if price, ok := p.livePrice(id); ok && price > 0 {
			return price, models.SourceRemote, nil
		}
	}
	h, err := p.GetHistory(ctx, id, 2)
	if err != nil {
		return 0, "", err
	}
	return h.Last().Price, h.Source, nil
}

func (p *Provider) fetchRemote(ctx context.Context, id string, days int) (*models.History, error) {
	if p.suspended() {
		return nil, fmt.Errorf("%w: breaker open after %d failures", models.ErrUpstreamUnavailable, p.maxFailures)
	}

	start := time.Now()
	headers := map[string]string{"Accept": "application/json"}
	if p.apiKey != "" {
		headers["x-cg-demo-api-key"] = p.apiKey
	}

	var chart marketChart
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/coins/%s/market_chart", p.baseURL, id),
		QueryParams: map[string][]string{
			"vs_currency": {p.currency},
			"days":        {strconv.Itoa(days)},
			"interval":    {"daily"},
		},
		Headers: headers,
	}, &chart)
	if p.metrics != nil {
		p.metrics.RecordLatency("market_fetch", time.Since(start).Seconds())
	}
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}
	if len(chart.Prices) == 0 {
		p.recordFailure()
		return nil, fmt.Errorf("%w: empty price series", models.ErrUpstreamUnavailable)
	}
	p.recordSuccess()

	return chartToHistory(id, days, &chart), nil
}

func chartToHistory(id string, days int, chart *marketChart) *models.History {
	volumes := make(map[int64]float64, len(chart.TotalVolumes))
	for _, v := range chart.TotalVolumes {
		volumes[int64(v[0])/1000] = v[1]
	}

	h := &models.History{
		Asset:  id,
		Days:   days,
		Source: models.SourceRemote,
		Points: make([]models.PricePoint, 0, len(chart.Prices)),
	}
	prev := 0.0
	for i, pt := range chart.Prices {
		ts := int64(pt[0]) / 1000
		price := pt[1]
		change := 0.0
		if i > 0 && prev > 0 {
			change = (price - prev) / prev * 100
		}
		h.Points = append(h.Points, models.PricePoint{
			Date:      time.Unix(ts, 0).UTC(),
			Price:     price,
			Volume:    volumes[ts],
			Change24h: change,
		})
		prev = price
	}
	return h
}

func (p *Provider) suspended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures >= p.maxFailures && p.now().Before(p.suspendedTo)
}

func (p *Provider) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures++
	if p.failures >= p.maxFailures {
		p.suspendedTo = p.now().Add(p.cooldown)
	}
}

func (p *Provider) recordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = 0
	p.suspendedTo = time.Time{}
}
