package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjae-dev/stockpulse/internal/contracts"
	"github.com/minjae-dev/stockpulse/internal/event"
	"github.com/minjae-dev/stockpulse/pkg/logger"
)

func completionEvent(symbol string) event.Event {
	return event.Event{
		ID:   "evt-1",
		Type: event.TypeCompletion,
		Payload: event.CompletionPayload{
			Result: contracts.ConsultationResult{Symbol: symbol, Rating: 75},
		},
	}
}

func TestCompletionHubBroadcasts(t *testing.T) {
	hub := NewCompletionHub(nil, logger.Nop())

	client := &wsClient{send: make(chan []byte, clientBacklog)}
	hub.clients[client] = struct{}{}

	hub.onCompletion(completionEvent("AAPL"))

	var msg []byte
	select {
	case msg = <-client.send:
	default:
		t.Fatal("expected a broadcast message")
	}

	var decoded struct {
		Type   string                       `json:"type"`
		Result contracts.ConsultationResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(msg, &decoded))
	assert.Equal(t, "completion", decoded.Type)
	assert.Equal(t, "AAPL", decoded.Result.Symbol)
	assert.Equal(t, 75.0, decoded.Result.Rating)
}

func TestCompletionHubDropsSlowClient(t *testing.T) {
	hub := NewCompletionHub(nil, logger.Nop())

	fast := &wsClient{send: make(chan []byte, clientBacklog)}
	slow := &wsClient{send: make(chan []byte)} // no reader, no buffer
	hub.clients[fast] = struct{}{}
	hub.clients[slow] = struct{}{}

	hub.onCompletion(completionEvent("MSFT"))

	hub.mu.Lock()
	_, fastKept := hub.clients[fast]
	_, slowKept := hub.clients[slow]
	hub.mu.Unlock()

	assert.True(t, fastKept)
	assert.False(t, slowKept)

	// The fast client still received the broadcast.
	assert.Len(t, fast.send, 1)

	// The dropped client's channel is closed so its write pump exits.
	_, open := <-slow.send
	assert.False(t, open)
}

func TestCompletionHubIgnoresUnexpectedPayload(t *testing.T) {
	hub := NewCompletionHub(nil, logger.Nop())

	client := &wsClient{send: make(chan []byte, clientBacklog)}
	hub.clients[client] = struct{}{}

	hub.onCompletion(event.Event{ID: "evt-2", Type: event.TypeCompletion, Payload: "bogus"})

	assert.Len(t, client.send, 0)
}
