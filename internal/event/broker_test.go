package event

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjae-dev/stockpulse/pkg/logger"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	b := NewBroker(logger.Nop(), nil)
	t.Cleanup(b.Stop)
	return b
}

func TestPublishDeliversInOrder(t *testing.T) {
	b := newTestBroker(t)

	var mu sync.Mutex
	var got []string
	b.Subscribe(TypeAnalysisRequest, func(evt Event) {
		mu.Lock()
		got = append(got, evt.Payload.(AnalysisRequestPayload).Symbol)
		mu.Unlock()
	})

	b.Start()

	want := []string{"AAPL", "MSFT", "NVDA", "TSLA", "AMZN"}
	for _, s := range want {
		b.Publish(TypeAnalysisRequest, AnalysisRequestPayload{Symbol: s})
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == len(want)
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, got)
}

func TestPublishEnrichesEvent(t *testing.T) {
	b := newTestBroker(t)

	evt := b.Publish(TypeCommand, CommandPayload{Action: "analyze", Symbol: "AAPL"})

	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, TypeCommand, evt.Type)
	assert.False(t, evt.Timestamp.IsZero())
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	b := newTestBroker(t)

	var mu sync.Mutex
	var delivered int

	b.Subscribe(TypeCompletion, func(Event) {
		panic("handler exploded")
	})
	b.Subscribe(TypeCompletion, func(Event) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	b.Start()

	for i := 0; i < 3; i++ {
		b.Publish(TypeCompletion, CompletionPayload{})
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := newTestBroker(t)

	var mu sync.Mutex
	var count int
	sub := b.Subscribe(TypeCommand, func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	b.Start()

	b.Publish(TypeCommand, CommandPayload{Action: "analyze", Symbol: "AAPL"})
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, 2*time.Second, 10*time.Millisecond)

	b.Unsubscribe(sub)
	b.Publish(TypeCommand, CommandPayload{Action: "analyze", Symbol: "MSFT"})

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestQueueDepthsBeforeStart(t *testing.T) {
	b := newTestBroker(t)

	for i := 0; i < 3; i++ {
		b.Publish(TypeAnalysisRequest, AnalysisRequestPayload{Symbol: "AAPL"})
	}

	depths := b.QueueDepths()
	assert.Equal(t, 3, depths[string(TypeAnalysisRequest)])
}

func TestJournalRecordsPublishedEvents(t *testing.T) {
	dir := t.TempDir()
	journal, err := NewJournal(dir)
	require.NoError(t, err)

	b := NewBroker(logger.Nop(), journal)
	b.Publish(TypeCommand, CommandPayload{Action: "analyze", Symbol: "AAPL"})
	b.Publish(TypeCommand, CommandPayload{Action: "analyze_hold", Symbol: "MSFT"})
	b.Stop()

	matches, err := filepath.Glob(filepath.Join(dir, "events_*.jsonl"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)

	lines := splitLines(data)
	require.Len(t, lines, 2)

	var evt Event
	require.NoError(t, json.Unmarshal(lines[0], &evt))
	assert.Equal(t, TypeCommand, evt.Type)
	assert.NotEmpty(t, evt.ID)
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
