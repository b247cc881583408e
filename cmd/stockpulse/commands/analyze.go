package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/minjae-dev/stockpulse/internal/consult"
	"github.com/minjae-dev/stockpulse/internal/contracts"
	"github.com/minjae-dev/stockpulse/internal/marketdata"
	"github.com/minjae-dev/stockpulse/internal/report"
	"github.com/minjae-dev/stockpulse/pkg/config"
	"github.com/minjae-dev/stockpulse/pkg/httputil"
	"github.com/minjae-dev/stockpulse/pkg/logger"
	"github.com/minjae-dev/stockpulse/pkg/redis"
)

// analyzeCmd runs the full pipeline for one symbol and prints the result,
// without starting the service.
var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL",
	Short: "Analyze one symbol and print the result",
	Long: `Runs report generation and reasoning consultation for a single
symbol synchronously, printing the result to stdout.

With --purchase-price the analysis evaluates an existing position (hold or
sell) instead of a new entry.

Example:
  go run ./cmd/stockpulse analyze AAPL
  go run ./cmd/stockpulse analyze AAPL --purchase-price 172.40`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var purchasePrice float64

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Float64Var(&purchasePrice, "purchase-price", 0, "evaluate an existing position bought at this price")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	symbol := strings.ToUpper(args[0])

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	httpClient := httputil.New(log)
	cache := redis.NewCache(redisClient, "stockpulse")
	limiter := redis.NewRateLimiter(redisClient, "stockpulse")

	market := marketdata.NewClient(cfg, httpClient, cache, limiter, log)
	sentiment := marketdata.NewSentimentClient(cfg, httpClient, cache, limiter, log)

	builder, err := report.NewBuilder(market, sentiment, cfg.Pipeline.ReportsDir, log)
	if err != nil {
		return fmt.Errorf("create report builder: %w", err)
	}

	sink, err := consult.NewDebugSink(cfg.Reasoning.DebugDir)
	if err != nil {
		return fmt.Errorf("create debug sink: %w", err)
	}
	consultant, err := consult.NewClient(cfg, sink, log)
	if err != nil {
		return fmt.Errorf("create reasoning client: %w", err)
	}

	req := contracts.WorkRequest{
		Symbol:      symbol,
		RequestID:   uuid.New().String(),
		RequestedBy: "cli",
		State:       contracts.StateQueued,
		CreatedAt:   time.Now(),
	}
	if purchasePrice > 0 {
		req.PurchasePrice = &purchasePrice
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Printf("Generating report for %s...\n", symbol)
	artifact, err := builder.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	fmt.Printf("Report written to %s\n", artifact.ReportPath)

	text, err := report.Read(artifact.ReportPath)
	if err != nil {
		return err
	}

	fmt.Println("Consulting reasoning backend...")
	result, err := consultant.Consult(ctx, artifact, text)
	if err != nil {
		return fmt.Errorf("consultation: %w", err)
	}

	printResult(result)
	return nil
}

func printResult(result contracts.ConsultationResult) {
	fmt.Printf("\n=== %s ===\n", result.Symbol)
	fmt.Printf("Rating:     %.0f / 100\n", result.Rating)
	fmt.Printf("Confidence: %d / 10\n", result.Confidence)
	if result.Mode == contracts.ModeHold && result.Action != "" {
		fmt.Printf("Action:     %s\n", strings.ToUpper(result.Action))
	}
	fmt.Printf("\n%s\n", result.Reasoning)
	if result.Entry.Price != "" {
		fmt.Printf("\nEntry:  %s (%s)\n", result.Entry.Price, result.Entry.Timing)
	}
	if result.Exit.ProfitTarget != "" {
		fmt.Printf("Target: %s\n", result.Exit.ProfitTarget)
	}
	if result.Exit.StopLoss != "" {
		fmt.Printf("Stop:   %s\n", result.Exit.StopLoss)
	}
	if result.Exit.TimeHorizon != "" {
		fmt.Printf("Horizon: %s\n", result.Exit.TimeHorizon)
	}
}
