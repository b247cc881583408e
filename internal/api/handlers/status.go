package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/minjae-dev/stockpulse/internal/event"
	"github.com/minjae-dev/stockpulse/internal/pipeline"
	"github.com/minjae-dev/stockpulse/internal/scheduler"
	"github.com/minjae-dev/stockpulse/pkg/logger"
)

// StatusHandler exposes pipeline and scheduler health.
type StatusHandler struct {
	broker       *event.Broker
	orchestrator *pipeline.Orchestrator
	sched        *scheduler.Scheduler
	startedAt    time.Time
	logger       *logger.Logger
}

// NewStatusHandler wires the status endpoint. sched may be nil when running
// without background jobs.
func NewStatusHandler(broker *event.Broker, orchestrator *pipeline.Orchestrator, sched *scheduler.Scheduler, log *logger.Logger) *StatusHandler {
	return &StatusHandler{
		broker:       broker,
		orchestrator: orchestrator,
		sched:        sched,
		startedAt:    time.Now(),
		logger:       log.WithComponent("api"),
	}
}

// GetStatus reports queue depths, event backlog and job statistics.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"event_queues":   h.broker.QueueDepths(),
		"pipeline":       h.orchestrator.Depths(),
		"inflight":       h.orchestrator.InflightStates(),
	}
	if h.sched != nil {
		resp["jobs"] = h.sched.GetJobStats()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.WithError(err).Error("Status encode failed")
	}
}
