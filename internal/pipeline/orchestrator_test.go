package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjae-dev/stockpulse/internal/contracts"
	"github.com/minjae-dev/stockpulse/internal/event"
	"github.com/minjae-dev/stockpulse/pkg/config"
	"github.com/minjae-dev/stockpulse/pkg/logger"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	cfg := &config.Config{
		Pipeline: config.PipelineConfig{PollTimeout: 10 * time.Millisecond},
	}
	broker := event.NewBroker(logger.Nop(), nil)
	t.Cleanup(broker.Stop)
	return NewOrchestrator(cfg, broker, nil, nil, nil, logger.Nop())
}

// stubBuilder writes a minimal artifact file, or fails every request.
type stubBuilder struct {
	dir string
	err error
}

func (s *stubBuilder) Generate(_ context.Context, req contracts.WorkRequest) (contracts.ReportArtifact, error) {
	artifact := contracts.ReportArtifact{
		Symbol:        req.Symbol,
		RequestID:     req.RequestID,
		RequestedBy:   req.RequestedBy,
		PurchasePrice: req.PurchasePrice,
		GeneratedAt:   time.Now(),
	}
	if s.err != nil {
		return artifact, s.err
	}

	path := filepath.Join(s.dir, req.Symbol+".md")
	if err := os.WriteFile(path, []byte("# Report"), 0o644); err != nil {
		return artifact, err
	}
	artifact.ReportPath = path
	return artifact, nil
}

// stubConsultant returns a fixed rating, or fails every artifact.
type stubConsultant struct {
	rating float64
	err    error
}

func (s *stubConsultant) Consult(_ context.Context, artifact contracts.ReportArtifact, _ string) (contracts.ConsultationResult, error) {
	if s.err != nil {
		return contracts.ConsultationResult{}, s.err
	}
	return contracts.ConsultationResult{
		Symbol:      artifact.Symbol,
		Rating:      s.rating,
		Confidence:  9,
		Mode:        artifact.Mode(),
		RequestID:   artifact.RequestID,
		RequestedBy: artifact.RequestedBy,
		CompletedAt: time.Now(),
	}, nil
}

// completionCollector gathers published completion payloads.
type completionCollector struct {
	mu      sync.Mutex
	results []contracts.ConsultationResult
}

func (c *completionCollector) handle(evt event.Event) {
	payload, ok := evt.Payload.(event.CompletionPayload)
	if !ok {
		return
	}
	c.mu.Lock()
	c.results = append(c.results, payload.Result)
	c.mu.Unlock()
}

func (c *completionCollector) snapshot() []contracts.ConsultationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]contracts.ConsultationResult, len(c.results))
	copy(out, c.results)
	return out
}

func startPipeline(t *testing.T, builder ReportGenerator, consultant Consultant) (*Orchestrator, *completionCollector, context.CancelFunc) {
	t.Helper()

	cfg := &config.Config{
		Pipeline: config.PipelineConfig{PollTimeout: 10 * time.Millisecond},
	}
	broker := event.NewBroker(logger.Nop(), nil)
	t.Cleanup(broker.Stop)

	collector := &completionCollector{}
	broker.Subscribe(event.TypeCompletion, collector.handle)
	broker.Start()

	orch := NewOrchestrator(cfg, broker, builder, consultant, nil, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	orch.Start(ctx)
	t.Cleanup(func() {
		cancel()
		orch.Stop()
	})

	return orch, collector, cancel
}

func TestPipelineCompletesSuccessfulRequest(t *testing.T) {
	builder := &stubBuilder{dir: t.TempDir()}
	orch, collector, _ := startPipeline(t, builder, &stubConsultant{rating: 82})

	require.True(t, orch.Enqueue(contracts.WorkRequest{Symbol: "AAPL", RequestID: "r1", RequestedBy: "cli"}))

	require.Eventually(t, func() bool {
		return len(collector.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	result := collector.snapshot()[0]
	assert.False(t, result.Failed())
	assert.Equal(t, "AAPL", result.Symbol)
	assert.Equal(t, 82.0, result.Rating)
	assert.Equal(t, "r1", result.RequestID)
	assert.Equal(t, contracts.ModeBuy, result.Mode)

	// The in-flight guard is released: the symbol can be requeued.
	require.Eventually(t, func() bool {
		return orch.Depths()["inflight"] == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, orch.Enqueue(contracts.WorkRequest{Symbol: "AAPL", RequestID: "r2"}))
}

func TestPipelineFailedGenerationYieldsErrorResult(t *testing.T) {
	builder := &stubBuilder{err: errors.New("quote unavailable")}
	price := 150.0
	orch, collector, _ := startPipeline(t, builder, &stubConsultant{rating: 82})

	require.True(t, orch.Enqueue(contracts.WorkRequest{Symbol: "MSFT", RequestID: "r1", PurchasePrice: &price}))

	require.Eventually(t, func() bool {
		return len(collector.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	result := collector.snapshot()[0]
	assert.True(t, result.Failed())
	assert.Contains(t, result.Err, "report generation")
	assert.Contains(t, result.Err, "quote unavailable")
	assert.Equal(t, "MSFT", result.Symbol)
	assert.Equal(t, contracts.ModeHold, result.Mode)

	require.Eventually(t, func() bool {
		return orch.Depths()["inflight"] == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPipelineFailedConsultationYieldsErrorResult(t *testing.T) {
	builder := &stubBuilder{dir: t.TempDir()}
	orch, collector, _ := startPipeline(t, builder, &stubConsultant{err: errors.New("backend down")})

	require.True(t, orch.Enqueue(contracts.WorkRequest{Symbol: "NVDA", RequestID: "r1"}))

	require.Eventually(t, func() bool {
		return len(collector.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	result := collector.snapshot()[0]
	assert.True(t, result.Failed())
	assert.Contains(t, result.Err, "backend down")
}

func TestGenerationBackoffHonorsContextCancel(t *testing.T) {
	builder := &stubBuilder{err: errors.New("provider down")}
	orch, collector, cancel := startPipeline(t, builder, &stubConsultant{rating: 50})

	require.True(t, orch.Enqueue(contracts.WorkRequest{Symbol: "AAPL", RequestID: "r1"}))

	// Wait until the failure surfaced; the generation loop is now sleeping
	// in its post-failure backoff.
	require.Eventually(t, func() bool {
		return len(collector.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	done := make(chan struct{})
	go func() {
		orch.consultWG.Wait()
		orch.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stage loops did not exit promptly after context cancel")
	}
}

func TestInflightStatesTrackAdmission(t *testing.T) {
	o := newTestOrchestrator(t)

	require.True(t, o.Enqueue(contracts.WorkRequest{Symbol: "AAPL", RequestID: "r1"}))

	states := o.InflightStates()
	assert.Equal(t, contracts.StateQueued, states["AAPL"])

	o.setState("AAPL", contracts.StateConsulting)
	assert.Equal(t, contracts.StateConsulting, o.InflightStates()["AAPL"])

	// setState on a released symbol does not resurrect it.
	o.release("AAPL")
	o.setState("AAPL", contracts.StateGenerating)
	assert.Empty(t, o.InflightStates())
}

func TestAdmitRejectsInFlightSymbol(t *testing.T) {
	o := newTestOrchestrator(t)

	assert.True(t, o.Enqueue(contracts.WorkRequest{Symbol: "AAPL", RequestID: "r1"}))
	assert.False(t, o.Enqueue(contracts.WorkRequest{Symbol: "AAPL", RequestID: "r2"}))

	// A different symbol is unaffected.
	assert.True(t, o.Enqueue(contracts.WorkRequest{Symbol: "MSFT", RequestID: "r3"}))
}

func TestAdmitReleasedSymbolCanRequeue(t *testing.T) {
	o := newTestOrchestrator(t)

	require.True(t, o.Enqueue(contracts.WorkRequest{Symbol: "AAPL", RequestID: "r1"}))
	o.release("AAPL")
	assert.True(t, o.Enqueue(contracts.WorkRequest{Symbol: "AAPL", RequestID: "r2"}))
}

func TestPriorityRequestJumpsQueue(t *testing.T) {
	o := newTestOrchestrator(t)

	require.True(t, o.Enqueue(contracts.WorkRequest{Symbol: "AAA", RequestID: "r1"}))
	require.True(t, o.Enqueue(contracts.WorkRequest{Symbol: "BBB", RequestID: "r2"}))
	require.True(t, o.Enqueue(contracts.WorkRequest{Symbol: "CCC", RequestID: "r3", Priority: true}))

	first, ok := o.requests.Poll(time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, "CCC", first.Symbol)
}

func TestDepthsCountsQueuesAndInflight(t *testing.T) {
	o := newTestOrchestrator(t)

	o.Enqueue(contracts.WorkRequest{Symbol: "AAPL", RequestID: "r1"})
	o.Enqueue(contracts.WorkRequest{Symbol: "MSFT", RequestID: "r2"})

	depths := o.Depths()
	assert.Equal(t, 2, depths["requests"])
	assert.Equal(t, 2, depths["inflight"])
	assert.Equal(t, 0, depths["reports"])
	assert.Equal(t, 0, depths["results"])
}
