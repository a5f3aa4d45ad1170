package models

import "time"

// Series sources. Remote means the upstream market API answered; synthetic
// means the deterministic fallback generator produced the series.
const (
	SourceRemote    = "remote"
	SourceSynthetic = "synthetic"
)

// PricePoint is one daily observation of an asset.
type PricePoint struct {
	Date      time.Time
	Price     float64
	Volume    float64
	Change24h float64 // percent change vs previous point, 0 for the first
}

// History is a chronological (ascending) daily series for one asset.
type History struct {
	Asset  string
	Days   int
	Source string // SourceRemote | SourceSynthetic
	Points []PricePoint
}

// Prices returns the close prices in chronological order.
func (h *History) Prices() []float64 {
	out := make([]float64, len(h.Points))
	for i, p := range h.Points {
		out[i] = p.Price
	}
	return out
}

// Volumes returns the volumes in chronological order.
func (h *History) Volumes() []float64 {
	out := make([]float64, len(h.Points))
	for i, p := range h.Points {
		out[i] = p.Volume
	}
	return out
}

// Last returns the most recent point, or a zero value for an empty series.
func (h *History) Last() PricePoint {
	if len(h.Points) == 0 {
		return PricePoint{}
	}
	return h.Points[len(h.Points)-1]
}

// Tick is a realtime price update from the exchange stream.
type Tick struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp int64 // unix ms
}
