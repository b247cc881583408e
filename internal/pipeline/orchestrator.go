package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minjae-dev/stockpulse/internal/contracts"
	"github.com/minjae-dev/stockpulse/internal/event"
	"github.com/minjae-dev/stockpulse/internal/report"
	"github.com/minjae-dev/stockpulse/internal/store"
	"github.com/minjae-dev/stockpulse/pkg/config"
	"github.com/minjae-dev/stockpulse/pkg/logger"
)

// generationRetryDelay spaces out rebuild attempts after a report failure so
// a flapping data provider is not hammered.
const generationRetryDelay = 2 * time.Second

// ReportGenerator produces the report artifact for one request.
type ReportGenerator interface {
	Generate(ctx context.Context, req contracts.WorkRequest) (contracts.ReportArtifact, error)
}

// Consultant scores one report artifact through the reasoning backend.
type Consultant interface {
	Consult(ctx context.Context, artifact contracts.ReportArtifact, reportText string) (contracts.ConsultationResult, error)
}

// Orchestrator runs the three-stage analysis pipeline: report generation,
// reasoning consultation and completion publishing. Each stage owns a queue
// and a loop; consultation fans out so a slow backend call never blocks the
// stage from accepting more work.
type Orchestrator struct {
	broker     *event.Broker
	builder    ReportGenerator
	consultant Consultant
	resultLog  *store.ResultLog
	logger     *logger.Logger

	pollTimeout time.Duration

	requests *queue[contracts.WorkRequest]
	reports  *queue[contracts.ReportArtifact]
	results  *queue[contracts.ConsultationResult]

	mu       sync.Mutex
	inflight map[string]contracts.RequestState

	subs      []*event.Subscription
	stopCh    chan struct{}
	wg        sync.WaitGroup
	consultWG sync.WaitGroup
}

// NewOrchestrator wires the pipeline. resultLog may be nil to skip the raw
// result journal.
func NewOrchestrator(cfg *config.Config, broker *event.Broker, builder ReportGenerator, consultant Consultant, resultLog *store.ResultLog, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		broker:      broker,
		builder:     builder,
		consultant:  consultant,
		resultLog:   resultLog,
		logger:      log.WithComponent("pipeline"),
		pollTimeout: cfg.Pipeline.PollTimeout,
		requests:    newQueue[contracts.WorkRequest](),
		reports:     newQueue[contracts.ReportArtifact](),
		results:     newQueue[contracts.ConsultationResult](),
		inflight:    make(map[string]contracts.RequestState),
		stopCh:      make(chan struct{}),
	}
}

// Start subscribes to request and command events and launches the stage
// loops. The broker must be started separately.
func (o *Orchestrator) Start(ctx context.Context) {
	o.subs = append(o.subs,
		o.broker.Subscribe(event.TypeAnalysisRequest, o.onAnalysisRequest),
		o.broker.Subscribe(event.TypeCommand, o.onCommand),
	)

	o.wg.Add(3)
	go o.generationLoop(ctx)
	go o.consultationLoop(ctx)
	go o.completionLoop(ctx)

	o.logger.Info("Pipeline orchestrator started")
}

// Stop halts the stage loops and waits for detached consultations to finish.
func (o *Orchestrator) Stop() {
	for _, sub := range o.subs {
		o.broker.Unsubscribe(sub)
	}
	close(o.stopCh)
	o.consultWG.Wait()
	o.wg.Wait()
	o.logger.Info("Pipeline orchestrator stopped")
}

// Depths reports queued work per stage plus in-flight symbols, for the
// status endpoint.
func (o *Orchestrator) Depths() map[string]int {
	o.mu.Lock()
	inflight := len(o.inflight)
	o.mu.Unlock()

	return map[string]int{
		"requests": o.requests.Len(),
		"reports":  o.reports.Len(),
		"results":  o.results.Len(),
		"inflight": inflight,
	}
}

// Enqueue admits a request directly, bypassing the broker. Used by the
// one-shot CLI path. Returns false when the symbol is already in flight.
func (o *Orchestrator) Enqueue(req contracts.WorkRequest) bool {
	return o.admit(req)
}

// onAnalysisRequest admits scheduler-originated requests at normal priority.
func (o *Orchestrator) onAnalysisRequest(evt event.Event) {
	payload, ok := evt.Payload.(event.AnalysisRequestPayload)
	if !ok {
		o.logger.WithField("event_id", evt.ID).Warn("Unexpected analysis request payload type")
		return
	}

	o.admit(contracts.WorkRequest{
		Symbol:        strings.ToUpper(payload.Symbol),
		RequestID:     uuid.New().String(),
		RequestedBy:   payload.RequestedBy,
		Priority:      payload.Priority,
		PurchasePrice: payload.PurchasePrice,
		State:         contracts.StateQueued,
		CreatedAt:     evt.Timestamp,
	})
}

// onCommand admits user commands ahead of scheduled work.
func (o *Orchestrator) onCommand(evt event.Event) {
	payload, ok := evt.Payload.(event.CommandPayload)
	if !ok {
		o.logger.WithField("event_id", evt.ID).Warn("Unexpected command payload type")
		return
	}

	if payload.Action != "analyze" && payload.Action != "analyze_hold" {
		o.logger.WithField("action", payload.Action).Warn("Ignoring unknown command action")
		return
	}

	o.admit(contracts.WorkRequest{
		Symbol:        strings.ToUpper(payload.Symbol),
		RequestID:     uuid.New().String(),
		RequestedBy:   payload.IssuedBy,
		Priority:      true,
		PurchasePrice: payload.PurchasePrice,
		State:         contracts.StateQueued,
		CreatedAt:     evt.Timestamp,
	})
}

// admit applies the in-flight guard and queues the request, front-inserting
// priority work. Returns false when the symbol is already being processed.
func (o *Orchestrator) admit(req contracts.WorkRequest) bool {
	o.mu.Lock()
	if _, busy := o.inflight[req.Symbol]; busy {
		o.mu.Unlock()
		o.logger.WithField("symbol", req.Symbol).Debug("Symbol already in flight, request dropped")
		return false
	}
	o.inflight[req.Symbol] = contracts.StateQueued
	o.mu.Unlock()

	if req.Priority {
		o.requests.PushFront(req)
	} else {
		o.requests.Push(req)
	}

	o.logger.WithFields(map[string]interface{}{
		"symbol":     req.Symbol,
		"request_id": req.RequestID,
		"priority":   req.Priority,
		"mode":       string(req.Mode()),
	}).Info("Request queued")

	return true
}

func (o *Orchestrator) release(symbol string) {
	o.mu.Lock()
	delete(o.inflight, symbol)
	o.mu.Unlock()
}

// setState advances the per-symbol lifecycle marker, exposed via
// InflightStates.
func (o *Orchestrator) setState(symbol string, state contracts.RequestState) {
	o.mu.Lock()
	if _, busy := o.inflight[symbol]; busy {
		o.inflight[symbol] = state
	}
	o.mu.Unlock()
}

// InflightStates snapshots the lifecycle state of every symbol currently in
// the pipeline, for the status endpoint.
func (o *Orchestrator) InflightStates() map[string]contracts.RequestState {
	o.mu.Lock()
	defer o.mu.Unlock()

	states := make(map[string]contracts.RequestState, len(o.inflight))
	for symbol, state := range o.inflight {
		states[symbol] = state
	}
	return states
}

// generationLoop turns queued requests into report artifacts. A failed build
// becomes an error result; the request is never silently dropped.
func (o *Orchestrator) generationLoop(ctx context.Context) {
	defer o.wg.Done()

	for {
		select {
		case <-o.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		req, ok := o.requests.Poll(o.pollTimeout)
		if !ok {
			continue
		}

		req.State = contracts.StateGenerating
		o.setState(req.Symbol, contracts.StateGenerating)

		artifact, err := o.builder.Generate(ctx, req)
		if err != nil {
			o.logger.WithError(err).WithField("symbol", req.Symbol).Error("Report generation failed")
			o.results.Push(failureResult(req, fmt.Errorf("report generation: %w", err)))

			select {
			case <-time.After(generationRetryDelay):
			case <-o.stopCh:
				return
			case <-ctx.Done():
				return
			}
			continue
		}

		req.State = contracts.StateGenerated
		o.setState(req.Symbol, contracts.StateGenerated)
		o.reports.Push(artifact)
	}
}

// consultationLoop hands artifacts to the reasoning backend. Each
// consultation runs detached so the loop keeps draining while a call is in
// progress.
func (o *Orchestrator) consultationLoop(ctx context.Context) {
	defer o.wg.Done()

	for {
		select {
		case <-o.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		artifact, ok := o.reports.Poll(o.pollTimeout)
		if !ok {
			continue
		}

		o.consultWG.Add(1)
		go func(artifact contracts.ReportArtifact) {
			defer o.consultWG.Done()
			o.consultOne(ctx, artifact)
		}(artifact)
	}
}

func (o *Orchestrator) consultOne(ctx context.Context, artifact contracts.ReportArtifact) {
	o.setState(artifact.Symbol, contracts.StateConsulting)

	text, err := report.Read(artifact.ReportPath)
	if err != nil {
		o.results.Push(failureArtifact(artifact, fmt.Errorf("read report: %w", err)))
		return
	}

	result, err := o.consultant.Consult(ctx, artifact, text)
	if err != nil {
		o.results.Push(failureArtifact(artifact, err))
		return
	}

	if o.resultLog != nil {
		if logErr := o.resultLog.Append(result); logErr != nil {
			o.logger.WithError(logErr).Warn("Result log append failed")
		}
	}

	o.results.Push(result)
}

// completionLoop publishes terminal results and releases the in-flight guard.
func (o *Orchestrator) completionLoop(ctx context.Context) {
	defer o.wg.Done()

	for {
		select {
		case <-o.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		result, ok := o.results.Poll(o.pollTimeout)
		if !ok {
			continue
		}

		o.release(result.Symbol)

		if result.Failed() {
			o.logger.WithFields(map[string]interface{}{
				"symbol": result.Symbol,
				"state":  string(contracts.StateFailed),
				"error":  result.Err,
			}).Error("Analysis failed")
		} else {
			o.logger.WithFields(map[string]interface{}{
				"symbol":     result.Symbol,
				"state":      string(contracts.StateCompleted),
				"rating":     result.Rating,
				"confidence": result.Confidence,
			}).Info("Analysis completed")
		}

		o.broker.Publish(event.TypeCompletion, event.CompletionPayload{Result: result})
	}
}

func failureResult(req contracts.WorkRequest, err error) contracts.ConsultationResult {
	return contracts.ConsultationResult{
		Symbol:      req.Symbol,
		Mode:        req.Mode(),
		RequestID:   req.RequestID,
		RequestedBy: req.RequestedBy,
		CompletedAt: time.Now(),
		Err:         err.Error(),
	}
}

func failureArtifact(artifact contracts.ReportArtifact, err error) contracts.ConsultationResult {
	return contracts.ConsultationResult{
		Symbol:      artifact.Symbol,
		Mode:        artifact.Mode(),
		RequestID:   artifact.RequestID,
		RequestedBy: artifact.RequestedBy,
		CompletedAt: time.Now(),
		Err:         err.Error(),
	}
}
