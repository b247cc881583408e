package jobs

import (
	"context"
	"fmt"

	"github.com/minjae-dev/stockpulse/internal/event"
	"github.com/minjae-dev/stockpulse/internal/marketdata"
	"github.com/minjae-dev/stockpulse/pkg/logger"
)

// SentimentScanJob publishes analysis requests for the symbols currently
// trending on the sentiment source. Requests carry normal priority so user
// commands always jump ahead of them.
type SentimentScanJob struct {
	sentiment *marketdata.SentimentClient
	broker    *event.Broker
	topN      int
	schedule  string
	logger    *logger.Logger
}

// NewSentimentScanJob creates the scan job. schedule is a six-field cron
// expression.
func NewSentimentScanJob(sentiment *marketdata.SentimentClient, broker *event.Broker, topN int, schedule string, log *logger.Logger) *SentimentScanJob {
	return &SentimentScanJob{
		sentiment: sentiment,
		broker:    broker,
		topN:      topN,
		schedule:  schedule,
		logger:    log.WithComponent("sentiment-scan"),
	}
}

// Name returns the job name.
func (j *SentimentScanJob) Name() string {
	return "sentiment_scan"
}

// Schedule returns the cron schedule.
func (j *SentimentScanJob) Schedule() string {
	return j.schedule
}

// Run fetches the trending list and publishes one request per symbol.
func (j *SentimentScanJob) Run(ctx context.Context) error {
	trending, err := j.sentiment.Trending(ctx, j.topN)
	if err != nil {
		return fmt.Errorf("fetch trending symbols: %w", err)
	}

	if len(trending) == 0 {
		j.logger.Warn("Sentiment scan found no trending symbols")
		return nil
	}

	for _, scored := range trending {
		j.broker.Publish(event.TypeAnalysisRequest, event.AnalysisRequestPayload{
			Symbol:      scored.Symbol,
			RequestedBy: "scheduler",
		})
	}

	j.logger.WithField("count", len(trending)).Info("Sentiment scan published requests")
	return nil
}
