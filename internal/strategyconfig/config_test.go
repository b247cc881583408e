package strategyconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `meta:
  strategy_id: momentum_scan_v1
  version: "1.0"
quality:
  min_rating: 70
  min_confidence: 8
scan:
  top_n: 5
  schedule: "0 0 */6 * * *"
rating:
  tech_ceiling: 70
  fund_ceiling: 30
exits:
  profit_target_pct: 8
  stop_loss_pct: 5
`

func writeSample(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeSample(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "momentum_scan_v1", cfg.Meta.StrategyID)
	assert.Equal(t, 70.0, cfg.Quality.MinRating)
	assert.Equal(t, 8, cfg.Quality.MinConfidence)
	assert.Equal(t, 5, cfg.Scan.TopN)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	_, err := Load(writeSample(t, sampleYAML+"bogus_section:\n  x: 1\n"))
	assert.Error(t, err)
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cfg, err := Load(writeSample(t, sampleYAML))
	require.NoError(t, err)

	cfg.Quality.MinConfidence = 11
	assert.Error(t, Validate(cfg))

	cfg.Quality.MinConfidence = 8
	cfg.Rating.TechCeiling = 80
	cfg.Rating.FundCeiling = 30
	assert.Error(t, Validate(cfg))
}

func TestHashDeterministic(t *testing.T) {
	cfg, err := Load(writeSample(t, sampleYAML))
	require.NoError(t, err)

	h1, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	h2, err := Hash(cfg)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
