package usecase

import (
	"context"

	applogger "CoinSight/pkg/logger"
	"CoinSight/pkg/queue"
)

// AggregatedLogsType is the queue message type for aggregated error logs.
const AggregatedLogsType = "logs.aggregated"

// AggregatedLogsJob drains the log collector's aggregated error batches
// from the queue and emits one deduplicated line per distinct error.
type AggregatedLogsJob struct {
	log *applogger.Logger
}

var _ queue.Job = (*AggregatedLogsJob)(nil)

func NewAggregatedLogsJob(log *applogger.Logger) *AggregatedLogsJob {
	return &AggregatedLogsJob{log: log}
}

func (j *AggregatedLogsJob) Name() string { return "aggregated-logs" }
func (j *AggregatedLogsJob) Type() string { return AggregatedLogsType }

func (j *AggregatedLogsJob) Handle(ctx context.Context, payload interface{}) error {
	entries, err := queue.ParsePayload[[]applogger.AggregatedLogEntry](payload)
	if err != nil {
		return err
	}
	for _, e := range *entries {
		j.log.Warn("aggregated "+e.Level,
			applogger.String("message", e.Message),
			applogger.String("caller", e.Caller),
			applogger.Int("count", e.Count),
			applogger.String("first_seen", e.FirstSeen.Format("15:04:05")),
			applogger.String("last_seen", e.LastSeen.Format("15:04:05")),
		)
	}
	return nil
}
