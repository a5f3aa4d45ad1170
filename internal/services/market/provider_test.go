package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CoinSight/internal/domain/models"
)

func chartResponse(n int) marketChart {
	var c marketChart
	base := time.Now().Add(-time.Duration(n) * 24 * time.Hour)
	price := 40000.0
	for i := 0; i < n; i++ {
		ms := float64(base.Add(time.Duration(i)*24*time.Hour).UnixMilli())
		price *= 1.001
		c.Prices = append(c.Prices, [2]float64{ms, price})
		c.TotalVolumes = append(c.TotalVolumes, [2]float64{ms, 1e9})
	}
	return c
}

func TestGetHistoryRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/bitcoin/market_chart" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("vs_currency"); got != "usd" {
			t.Fatalf("vs_currency = %q", got)
		}
		_ = json.NewEncoder(w).Encode(chartResponse(30))
	}))
	defer srv.Close()

	p := NewProvider(srv.URL)
	h, err := p.GetHistory(context.Background(), "BTC", 30)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if h.Source != models.SourceRemote {
		t.Fatalf("source = %q, want remote", h.Source)
	}
	if h.Asset != "bitcoin" {
		t.Fatalf("asset = %q, want alias resolved to bitcoin", h.Asset)
	}
	if len(h.Points) != 30 {
		t.Fatalf("points = %d, want 30", len(h.Points))
	}
	if h.Points[0].Change24h != 0 {
		t.Fatalf("first point change = %v, want 0", h.Points[0].Change24h)
	}
	if h.Points[1].Change24h == 0 {
		t.Fatalf("second point should have a derived change")
	}
}

func TestGetHistoryFallsBackToSynthetic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL)
	h, err := p.GetHistory(context.Background(), "bitcoin", 90)
	if err != nil {
		t.Fatalf("upstream failure must be absorbed, got %v", err)
	}
	if h.Source != models.SourceSynthetic {
		t.Fatalf("source = %q, want synthetic", h.Source)
	}
	if len(h.Points) != 90 {
		t.Fatalf("points = %d, want 90", len(h.Points))
	}
	for i, pt := range h.Points {
		if pt.Price < 0.001 {
			t.Fatalf("point %d price %v below floor", i, pt.Price)
		}
	}
}

func TestFailureBreakerShortCircuits(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, WithFailureBreaker(3, time.Hour))
	for i := 0; i < 6; i++ {
		if _, err := p.GetHistory(context.Background(), "ethereum", 30); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	// after three failures the breaker keeps the provider off the wire
	if calls != 3 {
		t.Fatalf("upstream called %d times, want 3", calls)
	}
}

func TestGetHistoryRejectsBadRequests(t *testing.T) {
	p := NewProvider("http://example.invalid")
	if _, err := p.GetHistory(context.Background(), "", 30); err == nil {
		t.Fatalf("expected error for empty asset")
	}
	if _, err := p.GetHistory(context.Background(), "bitcoin", 0); err == nil {
		t.Fatalf("expected error for zero days")
	}
}

func TestSyntheticDeterministicWithinDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	a := Synthetic("bitcoin", 90, now)
	b := Synthetic("bitcoin", 90, now.Add(3*time.Hour))
	if len(a.Points) != len(b.Points) {
		t.Fatalf("lengths differ: %d vs %d", len(a.Points), len(b.Points))
	}
	for i := range a.Points {
		if a.Points[i].Price != b.Points[i].Price {
			t.Fatalf("same-day synthetic diverged at %d: %v vs %v",
				i, a.Points[i].Price, b.Points[i].Price)
		}
	}
	// different asset, different walk
	c := Synthetic("ethereum", 90, now)
	same := true
	for i := range a.Points {
		if a.Points[i].Price != c.Points[i].Price {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different assets should not share a walk")
	}
}

func TestSyntheticUnknownAssetUsesDefaultProfile(t *testing.T) {
	h := Synthetic("somecoin", 30, time.Now())
	if len(h.Points) != 30 {
		t.Fatalf("points = %d, want 30", len(h.Points))
	}
	for _, pt := range h.Points {
		if pt.Price <= 0 || pt.Volume <= 0 {
			t.Fatalf("synthetic point must be positive: %+v", pt)
		}
	}
}

func TestCurrentPricePrefersLiveTable(t *testing.T) {
	p := NewProvider("http://example.invalid", WithLivePrices(func(asset string) (float64, bool) {
		if asset == "bitcoin" {
			return 47123.5, true
		}
		return 0, false
	}))
	price, source, err := p.CurrentPrice(context.Background(), "btc")
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	if price != 47123.5 {
		t.Fatalf("price = %v, want live 47123.5", price)
	}
	if source != models.SourceRemote {
		t.Fatalf("source = %q, want remote", source)
	}
}
