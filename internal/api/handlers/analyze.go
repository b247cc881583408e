package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/minjae-dev/stockpulse/internal/event"
	"github.com/minjae-dev/stockpulse/pkg/logger"
)

// AnalyzeHandler accepts programmatic analysis requests.
type AnalyzeHandler struct {
	broker *event.Broker
	logger *logger.Logger
}

// NewAnalyzeHandler wires the handler.
func NewAnalyzeHandler(broker *event.Broker, log *logger.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		broker: broker,
		logger: log.WithComponent("api"),
	}
}

type analyzeRequest struct {
	Symbol        string   `json:"symbol"`
	PurchasePrice *float64 `json:"purchase_price,omitempty"`
}

// Submit publishes an analysis request event and returns its id. The caller
// watches the websocket stream for the completion.
func (h *AnalyzeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid JSON body"})
		return
	}

	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "symbol is required"})
		return
	}
	if req.PurchasePrice != nil && *req.PurchasePrice <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "purchase_price must be positive"})
		return
	}

	evt := h.broker.Publish(event.TypeAnalysisRequest, event.AnalysisRequestPayload{
		Symbol:        req.Symbol,
		RequestedBy:   "api",
		Priority:      true,
		PurchasePrice: req.PurchasePrice,
	})

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"event_id": evt.ID,
		"symbol":   req.Symbol,
		"status":   "queued",
	})
}
