package pipeline

import (
	"context"
	"time"

	"github.com/minjae-dev/stockpulse/internal/contracts"
	"github.com/minjae-dev/stockpulse/internal/event"
	"github.com/minjae-dev/stockpulse/internal/notify"
	"github.com/minjae-dev/stockpulse/internal/store"
	"github.com/minjae-dev/stockpulse/pkg/config"
	"github.com/minjae-dev/stockpulse/pkg/logger"
)

// notifyTimeout bounds one outbound Telegram call.
const notifyTimeout = 15 * time.Second

// QualityGate decides which completed results are worth acting on.
type QualityGate struct {
	MinRating     float64
	MinConfidence int
}

// GateFromConfig builds the gate from pipeline configuration.
func GateFromConfig(cfg *config.Config) QualityGate {
	return QualityGate{
		MinRating:     cfg.Pipeline.MinRating,
		MinConfidence: cfg.Pipeline.MinConfidence,
	}
}

// Passes reports whether the result clears both thresholds.
func (g QualityGate) Passes(result contracts.ConsultationResult) bool {
	return result.Rating >= g.MinRating && result.Confidence >= g.MinConfidence
}

// RegisterNotifier subscribes an outbound notification handler to completion
// events. Direct user requests are always answered; scheduled work is only
// reported when it clears the quality gate.
func RegisterNotifier(broker *event.Broker, bot *notify.Telegram, gate QualityGate, log *logger.Logger) *event.Subscription {
	l := log.WithComponent("notify-gate")

	return broker.Subscribe(event.TypeCompletion, func(evt event.Event) {
		payload, ok := evt.Payload.(event.CompletionPayload)
		if !ok {
			return
		}
		result := payload.Result

		direct := result.RequestedBy != "" && result.RequestedBy != "scheduler"
		if !direct && (result.Failed() || !gate.Passes(result)) {
			l.WithFields(map[string]interface{}{
				"symbol": result.Symbol,
				"rating": result.Rating,
			}).Debug("Result below notification threshold")
			return
		}

		if bot == nil {
			l.Debug("Notifier disabled, skipping message")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := bot.Send(ctx, notify.FormatResult(result)); err != nil {
			l.WithError(err).WithField("symbol", result.Symbol).Warn("Notification failed")
		}
	})
}

// RegisterPersistence subscribes the recommendation writer to completion
// events. Only gate-passing buy-mode results are written; hold-mode answers
// a question about an existing position and is never a new recommendation.
func RegisterPersistence(broker *event.Broker, repo *store.RecommendationRepository, gate QualityGate, log *logger.Logger) *event.Subscription {
	l := log.WithComponent("persist-gate")

	return broker.Subscribe(event.TypeCompletion, func(evt event.Event) {
		payload, ok := evt.Payload.(event.CompletionPayload)
		if !ok {
			return
		}
		result := payload.Result

		if result.Failed() || result.Mode == contracts.ModeHold || !gate.Passes(result) {
			return
		}
		if repo == nil {
			l.Debug("Database disabled, recommendation not persisted")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		inserted, err := repo.InsertIfAbsent(ctx, store.FromResult(result, result.CompletedAt))
		if err != nil {
			l.WithError(err).WithField("symbol", result.Symbol).Error("Recommendation persist failed")
			return
		}
		if inserted {
			l.WithFields(map[string]interface{}{
				"symbol": result.Symbol,
				"rating": result.Rating,
			}).Info("Recommendation recorded")
		}
	})
}
