package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/minjae-dev/stockpulse/internal/contracts"
	"github.com/minjae-dev/stockpulse/internal/marketdata"
	"github.com/minjae-dev/stockpulse/internal/rating"
	"github.com/minjae-dev/stockpulse/pkg/logger"
)

// Builder assembles the full analysis report for one symbol and writes it as
// a single artifact file per (symbol, date).
type Builder struct {
	market    *marketdata.Client
	sentiment *marketdata.SentimentClient
	dir       string
	logger    *logger.Logger
}

// NewBuilder creates a report builder writing under dir.
func NewBuilder(market *marketdata.Client, sentiment *marketdata.SentimentClient, dir string, log *logger.Logger) (*Builder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}

	return &Builder{
		market:    market,
		sentiment: sentiment,
		dir:       dir,
		logger:    log.WithComponent("report"),
	}, nil
}

// Generate fetches all signal sources, scores them, renders the report and
// writes the artifact file. An existing file for the same (symbol, date) is
// reused rather than rebuilt.
func (b *Builder) Generate(ctx context.Context, req contracts.WorkRequest) (contracts.ReportArtifact, error) {
	artifact := contracts.ReportArtifact{
		Symbol:        req.Symbol,
		RequestID:     req.RequestID,
		RequestedBy:   req.RequestedBy,
		PurchasePrice: req.PurchasePrice,
		GeneratedAt:   time.Now(),
	}

	path := b.artifactPath(req.Symbol, time.Now())
	if _, err := os.Stat(path); err == nil {
		b.logger.WithFields(map[string]interface{}{
			"symbol": req.Symbol,
			"path":   path,
		}).Debug("Reusing existing report artifact")
		artifact.ReportPath = path
		return artifact, nil
	}

	quote, err := b.market.Quote(ctx, req.Symbol)
	if err != nil {
		return artifact, fmt.Errorf("quote for %s: %w", req.Symbol, err)
	}

	indicators, err := b.market.Indicators(ctx, req.Symbol)
	if err != nil {
		return artifact, fmt.Errorf("indicators for %s: %w", req.Symbol, err)
	}

	// Fundamentals and sentiment are enriching signals; a miss degrades the
	// report instead of failing the request.
	signals := buildSignals(quote.Price, indicators)

	if fund, err := b.market.Fundamentals(ctx, req.Symbol); err == nil {
		signals.InsiderNetBuys = &fund.InsiderNetBuys
		signals.InstitutionalPct = &fund.InstitutionalPct
		signals.HasRevenue = fund.Revenue > 0
	} else {
		b.logger.WithError(err).WithField("symbol", req.Symbol).Warn("Fundamentals unavailable")
	}

	if score, err := b.sentiment.Score(ctx, req.Symbol); err == nil {
		signals.SentimentScore = score
	} else {
		b.logger.WithError(err).WithField("symbol", req.Symbol).Warn("Sentiment unavailable")
	}

	prelim := rating.GeneratePreliminaryRating(signals)
	entry, exit := rating.GenerateEntryExitStrategy(signals)

	content := render(req, quote, signals, prelim, entry, exit)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return artifact, fmt.Errorf("write report %s: %w", path, err)
	}

	b.logger.WithFields(map[string]interface{}{
		"symbol":     req.Symbol,
		"path":       path,
		"prelim":     prelim.Score,
		"confidence": prelim.Confidence,
		"note_count": len(prelim.Notes),
	}).Info("Report artifact generated")

	artifact.ReportPath = path
	return artifact, nil
}

// PreliminaryFor recomputes the deterministic rating for a symbol without
// touching disk. Used by the one-shot CLI path.
func (b *Builder) PreliminaryFor(ctx context.Context, symbol string) (rating.PreliminaryRating, error) {
	quote, err := b.market.Quote(ctx, symbol)
	if err != nil {
		return rating.PreliminaryRating{}, err
	}
	indicators, err := b.market.Indicators(ctx, symbol)
	if err != nil {
		return rating.PreliminaryRating{}, err
	}
	return rating.GeneratePreliminaryRating(buildSignals(quote.Price, indicators)), nil
}

func (b *Builder) artifactPath(symbol string, date time.Time) string {
	name := fmt.Sprintf("%s_%s.md", strings.ToUpper(symbol), date.Format("2006-01-02"))
	return filepath.Join(b.dir, name)
}

func buildSignals(price float64, ind marketdata.IndicatorSet) rating.Signals {
	return rating.Signals{
		Price:       price,
		RSI:         ind.RSI,
		MACD:        ind.MACD,
		MACDSignal:  ind.MACDSignal,
		MA20:        ind.MA20,
		MA50:        ind.MA50,
		MA200:       ind.MA200,
		BollUpper:   ind.BollUpper,
		BollMiddle:  ind.BollMiddle,
		BollLower:   ind.BollLower,
		ADX:         ind.ADX,
		PlusDI:      ind.PlusDI,
		MinusDI:     ind.MinusDI,
		StochasticK: ind.StochasticK,
		StochasticD: ind.StochasticD,
		CCI:         ind.CCI,
		Supports:    ind.Supports,
		Resistances: ind.Resistances,
	}
}

// render produces the markdown artifact handed to the reasoning backend.
func render(req contracts.WorkRequest, quote marketdata.Quote, signals rating.Signals, prelim rating.PreliminaryRating, entry contracts.EntryStrategy, exit contracts.ExitStrategy) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Analysis Report: %s (%s)\n\n", quote.Name, strings.ToUpper(req.Symbol))
	fmt.Fprintf(&sb, "Generated: %s\n\n", time.Now().Format(time.RFC3339))

	fmt.Fprintf(&sb, "## Snapshot\n\n")
	fmt.Fprintf(&sb, "- Price: %.2f (%+.2f%%)\n", quote.Price, quote.ChangePct)
	fmt.Fprintf(&sb, "- Volume: %d\n", quote.Volume)
	if quote.MarketCap > 0 {
		fmt.Fprintf(&sb, "- Market cap: %d\n", quote.MarketCap)
	}
	if req.PurchasePrice != nil {
		fmt.Fprintf(&sb, "- Holder purchase price: %.2f\n", *req.PurchasePrice)
	}

	fmt.Fprintf(&sb, "\n## Signal Interpretations\n\n")
	names := make([]string, 0, len(prelim.Assessments))
	for name := range prelim.Assessments {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a := prelim.Assessments[name]
		fmt.Fprintf(&sb, "- %s: %s (strength %d): %s\n", name, a.Status, a.Strength, a.Description)
	}

	fmt.Fprintf(&sb, "\n## Preliminary Rating\n\n")
	fmt.Fprintf(&sb, "- Score: %.1f / 100 (technical %.1f, fundamental %.1f)\n", prelim.Score, prelim.TechScore, prelim.FundScore)
	fmt.Fprintf(&sb, "- Confidence: %d / 10\n", prelim.Confidence)

	fmt.Fprintf(&sb, "\n## Suggested Strategy\n\n")
	fmt.Fprintf(&sb, "- Entry: %s, %s\n", entry.Price, entry.Timing)
	fmt.Fprintf(&sb, "- Profit target: %s\n", exit.ProfitTarget)
	fmt.Fprintf(&sb, "- Stop loss: %s\n", exit.StopLoss)
	fmt.Fprintf(&sb, "- Time horizon: %s\n", exit.TimeHorizon)

	if len(signals.Supports) > 0 || len(signals.Resistances) > 0 {
		fmt.Fprintf(&sb, "\n## Key Levels\n\n")
		fmt.Fprintf(&sb, "- Supports: %s\n", formatLevels(signals.Supports))
		fmt.Fprintf(&sb, "- Resistances: %s\n", formatLevels(signals.Resistances))
	}

	return sb.String()
}

func formatLevels(levels []float64) string {
	if len(levels) == 0 {
		return "none detected"
	}
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprintf("%.2f", l)
	}
	return strings.Join(parts, ", ")
}
