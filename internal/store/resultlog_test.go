package store

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjae-dev/stockpulse/internal/contracts"
)

func TestResultLogAppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	log, err := NewResultLog(dir)
	require.NoError(t, err)

	first := contracts.ConsultationResult{Symbol: "AAPL", Rating: 82, Confidence: 8}
	second := contracts.ConsultationResult{Symbol: "MSFT", Err: "backend down"}

	require.NoError(t, log.Append(first))
	require.NoError(t, log.Append(second))

	path := filepath.Join(dir, "results_"+time.Now().Format("20060102")+".jsonl")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var results []contracts.ConsultationResult
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r contracts.ConsultationResult
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		results = append(results, r)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, results, 2)
	assert.Equal(t, "AAPL", results[0].Symbol)
	assert.Equal(t, 82.0, results[0].Rating)
	assert.True(t, results[1].Failed())
}

func TestFromResultProjection(t *testing.T) {
	date := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	result := contracts.ConsultationResult{
		Symbol:     "NVDA",
		Rating:     91,
		Confidence: 9,
		Reasoning:  "strong momentum",
		Entry:      contracts.EntryStrategy{Price: "around 120", Timing: "on pullback"},
		Exit:       contracts.ExitStrategy{ProfitTarget: "135", StopLoss: "112", TimeHorizon: "1-3 months"},
	}

	rec := FromResult(result, date)

	assert.Equal(t, "NVDA", rec.Symbol)
	assert.Equal(t, date, rec.RecommendDate)
	assert.Equal(t, 91.0, rec.Rating)
	assert.Equal(t, "around 120", rec.EntryPrice)
	assert.Equal(t, "135", rec.ProfitTarget)
	assert.Equal(t, "112", rec.StopLoss)
	assert.Equal(t, "strong momentum", rec.Reasoning)
}
