package event

import (
	"time"

	"github.com/minjae-dev/stockpulse/internal/contracts"
)

// Type identifies an event stream. Each type owns its own queue so a slow
// consumer of one type cannot starve another.
type Type string

const (
	// TypeAnalysisRequest asks the pipeline to analyze a symbol.
	TypeAnalysisRequest Type = "analysis.request"
	// TypeCommand carries a user command from the chat-bot surface.
	TypeCommand Type = "command"
	// TypeCompletion announces a finished (or failed) analysis.
	TypeCompletion Type = "analysis.completion"
)

// Event is the immutable unit published on the broker. ID and Timestamp are
// filled in by Publish.
type Event struct {
	ID        string      `json:"id"`
	Type      Type        `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Handler consumes one delivered event.
type Handler func(Event)

// AnalysisRequestPayload is published by schedulers or programmatic callers.
type AnalysisRequestPayload struct {
	Symbol        string   `json:"symbol"`
	RequestedBy   string   `json:"requested_by"`
	Priority      bool     `json:"priority"`
	PurchasePrice *float64 `json:"purchase_price,omitempty"`
}

// CommandPayload is published by the chat-bot command poller.
type CommandPayload struct {
	Action        string   `json:"action"` // analyze | analyze_hold
	Symbol        string   `json:"symbol"`
	PurchasePrice *float64 `json:"purchase_price,omitempty"`
	IssuedBy      string   `json:"issued_by"`
}

// CompletionPayload wraps the terminal pipeline artifact.
type CompletionPayload struct {
	Result contracts.ConsultationResult `json:"result"`
}
