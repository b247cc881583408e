package consult

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minjae-dev/stockpulse/internal/contracts"
	"github.com/minjae-dev/stockpulse/pkg/config"
	"github.com/minjae-dev/stockpulse/pkg/logger"
)

// Client submits report artifacts to the reasoning backend (an
// OpenAI-compatible chat-completions API) and decodes the scored result.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	retry      RetryConfig
	sink       *DebugSink
	logger     *logger.Logger
}

// NewClient builds the reasoning client. A missing API key is the one
// startup error that must abort the process rather than run degraded.
func NewClient(cfg *config.Config, sink *DebugSink, log *logger.Logger) (*Client, error) {
	if cfg.Reasoning.APIKey == "" {
		return nil, fmt.Errorf("reasoning backend API key is not configured")
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Reasoning.Timeout},
		baseURL:    strings.TrimRight(cfg.Reasoning.BaseURL, "/"),
		model:      cfg.Reasoning.Model,
		apiKey:     cfg.Reasoning.APIKey,
		retry: RetryConfig{
			MaxRetries: cfg.Reasoning.MaxRetries,
			BaseDelay:  cfg.Reasoning.BaseDelay,
			MaxDelay:   cfg.Reasoning.MaxDelay,
		},
		sink:   sink,
		logger: log.WithComponent("consult"),
	}, nil
}

// rawResult is the JSON schema the backend is instructed to emit.
type rawResult struct {
	Action     string  `json:"action"`
	Rating     float64 `json:"rating"`
	Confidence int     `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Entry      struct {
		Price  string `json:"price"`
		Timing string `json:"timing"`
	} `json:"entry_strategy"`
	Exit struct {
		ProfitTarget string `json:"profit_target"`
		StopLoss     string `json:"stop_loss"`
		TimeHorizon  string `json:"time_horizon"`
	} `json:"exit_strategy"`
}

// Consult submits the report under the retry policy and returns the decoded
// result. On terminal failure the failing prompt/response pair is dumped to
// the debug sink and an error is returned; the caller turns that into an
// error payload, never a dropped item.
func (c *Client) Consult(ctx context.Context, artifact contracts.ReportArtifact, reportText string) (contracts.ConsultationResult, error) {
	mode := artifact.Mode()
	prompt := buildUserPrompt(mode, artifact.Symbol, reportText)

	var decoded rawResult
	var lastResponse string

	err := withRetry(ctx, c.retry, c.logger.WithField("symbol", artifact.Symbol), func() error {
		content, err := c.complete(ctx, prompt)
		if err != nil {
			return err
		}
		lastResponse = content

		// Malformed content is terminal: the backend answered, it just
		// answered wrong. Retrying burns quota without changing the odds.
		obj, err := extractJSON(content)
		if err != nil {
			return fmt.Errorf("locate JSON: %w", err)
		}

		var r rawResult
		if err := json.Unmarshal([]byte(obj), &r); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}

		if err := validate(mode, r); err != nil {
			return err
		}

		decoded = r
		return nil
	})

	if err != nil {
		if c.sink != nil {
			if dumpErr := c.sink.Dump(artifact.Symbol, artifact.RequestID, prompt, lastResponse, err); dumpErr != nil {
				c.logger.WithError(dumpErr).Warn("Debug dump failed")
			}
		}
		return contracts.ConsultationResult{}, fmt.Errorf("consult %s: %w", artifact.Symbol, err)
	}

	result := contracts.ConsultationResult{
		Symbol:      artifact.Symbol,
		Rating:      clampRating(decoded.Rating),
		Confidence:  clampConfidence(decoded.Confidence),
		Reasoning:   decoded.Reasoning,
		Action:      decoded.Action,
		Mode:        mode,
		RequestID:   artifact.RequestID,
		RequestedBy: artifact.RequestedBy,
		CompletedAt: time.Now(),
	}
	result.Entry = contracts.EntryStrategy{Price: decoded.Entry.Price, Timing: decoded.Entry.Timing}
	result.Exit = contracts.ExitStrategy{
		ProfitTarget: decoded.Exit.ProfitTarget,
		StopLoss:     decoded.Exit.StopLoss,
		TimeHorizon:  decoded.Exit.TimeHorizon,
	}

	return result, nil
}

// complete performs one chat-completions call.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", Transient(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", Transient(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", Transient(fmt.Errorf("backend status %d: %s", resp.StatusCode, truncate(string(raw), 200)))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("backend status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &completion); err != nil {
		return "", Transient(fmt.Errorf("decode completion envelope: %w", err))
	}
	if len(completion.Choices) == 0 {
		return "", Transient(fmt.Errorf("completion has no choices"))
	}

	return completion.Choices[0].Message.Content, nil
}

func validate(mode contracts.AnalysisMode, r rawResult) error {
	if r.Reasoning == "" {
		return fmt.Errorf("result missing reasoning")
	}
	if mode == contracts.ModeHold {
		if r.Action != "hold" && r.Action != "sell" {
			return fmt.Errorf("hold-mode result has invalid action %q", r.Action)
		}
	}
	return nil
}

func clampRating(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}

func clampConfidence(c int) int {
	if c < 1 {
		return 1
	}
	if c > 10 {
		return 10
	}
	return c
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
