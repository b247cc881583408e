package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/minjae-dev/stockpulse/internal/contracts"
)

func TestQualityGatePasses(t *testing.T) {
	gate := QualityGate{MinRating: 70, MinConfidence: 8}

	tests := []struct {
		name       string
		rating     float64
		confidence int
		want       bool
	}{
		{"both at threshold", 70, 8, true},
		{"both above", 92, 10, true},
		{"rating below", 69.9, 10, false},
		{"confidence below", 95, 7, false},
		{"both below", 10, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := contracts.ConsultationResult{Rating: tt.rating, Confidence: tt.confidence}
			assert.Equal(t, tt.want, gate.Passes(result))
		})
	}
}

func TestFailureResultCarriesRequestIdentity(t *testing.T) {
	price := 150.0
	req := contracts.WorkRequest{
		Symbol:        "AAPL",
		RequestID:     "req-1",
		RequestedBy:   "tester",
		PurchasePrice: &price,
	}

	result := failureResult(req, errors.New("quote unavailable"))

	assert.True(t, result.Failed())
	assert.Equal(t, "AAPL", result.Symbol)
	assert.Equal(t, "req-1", result.RequestID)
	assert.Equal(t, "tester", result.RequestedBy)
	assert.Equal(t, contracts.ModeHold, result.Mode)
	assert.Contains(t, result.Err, "quote unavailable")
}

func TestFailureArtifactPreservesMode(t *testing.T) {
	artifact := contracts.ReportArtifact{Symbol: "MSFT", RequestID: "req-2"}

	result := failureArtifact(artifact, errors.New("backend down"))

	assert.True(t, result.Failed())
	assert.Equal(t, contracts.ModeBuy, result.Mode)
	assert.Equal(t, "req-2", result.RequestID)
}
