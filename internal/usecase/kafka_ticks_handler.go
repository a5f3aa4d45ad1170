package usecase

import (
	"context"
	"encoding/json"
	"time"

	"CoinSight/internal/domain/models"
	domrepo "CoinSight/internal/domain/repository"
	pkgkafka "CoinSight/pkg/kafka"
)

// KafkaTicksHandler consumes Kafka tick messages and writes them to
// storage. It is the archiving half of the kafka backend: the collector
// publishes, this consumer lands the ticks in ClickHouse.
type KafkaTicksHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewKafkaTicksHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, t, c, v}
func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		T      int64   `json:"t"`
		C      float64 `json:"c"`
		V      float64 `json:"v"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	ms := m.T
	if ms < 1e11 { // seconds precision
		ms *= 1000
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.UnixMilli(ms)).Seconds())

	start := time.Now()
	err := h.storage.Store(ctx, &models.Tick{
		Symbol:    m.Symbol,
		Timestamp: ms,
		Price:     m.C,
		Volume:    m.V,
	})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse", m.Symbol)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
