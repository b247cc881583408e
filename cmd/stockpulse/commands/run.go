package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/minjae-dev/stockpulse/internal/api"
	"github.com/minjae-dev/stockpulse/internal/api/handlers"
	"github.com/minjae-dev/stockpulse/internal/consult"
	"github.com/minjae-dev/stockpulse/internal/event"
	"github.com/minjae-dev/stockpulse/internal/marketdata"
	"github.com/minjae-dev/stockpulse/internal/notify"
	"github.com/minjae-dev/stockpulse/internal/pipeline"
	"github.com/minjae-dev/stockpulse/internal/rating"
	"github.com/minjae-dev/stockpulse/internal/report"
	"github.com/minjae-dev/stockpulse/internal/scheduler"
	"github.com/minjae-dev/stockpulse/internal/scheduler/jobs"
	"github.com/minjae-dev/stockpulse/internal/store"
	"github.com/minjae-dev/stockpulse/internal/strategyconfig"
	"github.com/minjae-dev/stockpulse/pkg/config"
	"github.com/minjae-dev/stockpulse/pkg/database"
	"github.com/minjae-dev/stockpulse/pkg/httputil"
	"github.com/minjae-dev/stockpulse/pkg/logger"
	"github.com/minjae-dev/stockpulse/pkg/redis"
)

// runCmd starts the full service: broker, pipeline, scheduler, bot and API.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the full analysis service",
	Long: `Starts the event broker, pipeline orchestrator, sentiment scan
scheduler, Telegram command poller and the status API, then blocks until
interrupted.

Example:
  go run ./cmd/stockpulse run
  go run ./cmd/stockpulse run --port 9000`,
	RunE: runService,
}

var runPort string

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runPort, "port", "", "override API server port")
}

func runService(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runPort != "" {
		cfg.Port = runPort
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing service")

	// 3. Load strategy file and fold it into the runtime config
	scanSchedule := fmt.Sprintf("@every %s", cfg.Pipeline.ScanInterval)
	if strat, err := strategyconfig.Load(cfg.Pipeline.StrategyFile); err == nil {
		applyStrategy(cfg, strat, &scanSchedule, log)
	} else if os.IsNotExist(err) {
		log.WithField("path", cfg.Pipeline.StrategyFile).Warn("Strategy file not found, using environment defaults")
	} else {
		return fmt.Errorf("load strategy file: %w", err)
	}

	// 4. Connect Redis (degrades to pass-through when disabled)
	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	cache := redis.NewCache(redisClient, "stockpulse")
	limiter := redis.NewRateLimiter(redisClient, "stockpulse")

	// 5. Connect database (optional; persistence is skipped without it)
	var repo *store.RecommendationRepository
	if cfg.Database.URL != "" {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		repo = store.NewRecommendationRepository(db.Pool, log)
		log.Info("Connected to database")
	} else {
		log.Warn("DATABASE_URL not set, recommendations will not be persisted")
	}

	// 6. Event broker with journal
	var journal *event.Journal
	if cfg.Pipeline.JournalEvents {
		journal, err = event.NewJournal(cfg.Pipeline.EventLogDir)
		if err != nil {
			return fmt.Errorf("open event journal: %w", err)
		}
	}
	broker := event.NewBroker(log, journal)

	// 7. Market data and sentiment clients
	httpClient := httputil.New(log)
	market := marketdata.NewClient(cfg, httpClient, cache, limiter, log)
	sentiment := marketdata.NewSentimentClient(cfg, httpClient, cache, limiter, log)

	// 8. Report builder
	builder, err := report.NewBuilder(market, sentiment, cfg.Pipeline.ReportsDir, log)
	if err != nil {
		return fmt.Errorf("create report builder: %w", err)
	}

	// 9. Reasoning client with debug sink
	sink, err := consult.NewDebugSink(cfg.Reasoning.DebugDir)
	if err != nil {
		return fmt.Errorf("create debug sink: %w", err)
	}
	consultant, err := consult.NewClient(cfg, sink, log)
	if err != nil {
		return fmt.Errorf("create reasoning client: %w", err)
	}

	// 10. Result log
	resultLog, err := store.NewResultLog(cfg.Pipeline.ResultLogDir)
	if err != nil {
		return fmt.Errorf("create result log: %w", err)
	}

	// 11. Pipeline orchestrator and completion subscribers
	orch := pipeline.NewOrchestrator(cfg, broker, builder, consultant, resultLog, log)
	gate := pipeline.GateFromConfig(cfg)

	bot := notify.NewTelegram(cfg, broker, log)
	pipeline.RegisterNotifier(broker, bot, gate, log)
	pipeline.RegisterPersistence(broker, repo, gate, log)

	hub := api.NewCompletionHub(broker, log)
	hub.Start()

	// 12. Start broker and pipeline
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker.Start()
	orch.Start(ctx)

	// 13. Scheduler jobs
	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewSentimentScanJob(sentiment, broker, cfg.Pipeline.ScanTopN, scanSchedule, log)); err != nil {
		return fmt.Errorf("register sentiment scan: %w", err)
	}
	pruneDirs := []string{cfg.Pipeline.ReportsDir, cfg.Reasoning.DebugDir}
	if err := sched.AddJob(jobs.NewMaintenanceJob(pruneDirs, 14*24*time.Hour, log)); err != nil {
		return fmt.Errorf("register maintenance: %w", err)
	}
	sched.Start()

	// 14. Telegram command poller
	if bot != nil {
		go bot.StartPolling(ctx)
	} else {
		log.Warn("Telegram bot not configured, command surface disabled")
	}

	// 15. API server
	statusHandler := handlers.NewStatusHandler(broker, orch, sched, log)
	recsHandler := handlers.NewRecommendationsHandler(repo, log)
	analyzeHandler := handlers.NewAnalyzeHandler(broker, log)
	router := api.NewRouter(statusHandler, recsHandler, analyzeHandler, hub, log)
	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("API server failed")
		}
	}()

	log.Info("Service started")
	fmt.Printf("\nService running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	// 16. Wait for interrupt, then shut down in dependency order
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("API shutdown failed")
	}
	if bot != nil {
		bot.Stop()
	}
	sched.Stop()
	hub.Stop()
	orch.Stop()
	broker.Stop()

	log.Info("Service stopped")
	return nil
}

// applyStrategy folds the YAML strategy into the runtime config. Engine
// scoring constants are compiled in; a mismatching file is a warning, not an
// override.
func applyStrategy(cfg *config.Config, strat *strategyconfig.Config, scanSchedule *string, log *logger.Logger) {
	cfg.Pipeline.MinRating = strat.Quality.MinRating
	cfg.Pipeline.MinConfidence = strat.Quality.MinConfidence
	cfg.Pipeline.ScanTopN = strat.Scan.TopN
	*scanSchedule = strat.Scan.Schedule

	if strat.Rating.TechCeiling != rating.TechCeiling || strat.Rating.FundCeiling != rating.FundCeiling {
		log.WithFields(map[string]interface{}{
			"file_tech":   strat.Rating.TechCeiling,
			"file_fund":   strat.Rating.FundCeiling,
			"engine_tech": rating.TechCeiling,
			"engine_fund": rating.FundCeiling,
		}).Warn("Strategy rating ceilings differ from engine constants, engine values apply")
	}
	if strat.Exits.ProfitTargetPct != rating.DefaultProfitTargetPct || strat.Exits.StopLossPct != rating.DefaultStopLossPct {
		log.Warn("Strategy exit percentages differ from engine defaults, engine values apply")
	}

	hash, err := strategyconfig.Hash(strat)
	if err == nil {
		log.WithFields(map[string]interface{}{
			"strategy_id": strat.Meta.StrategyID,
			"version":     strat.Meta.Version,
			"hash":        hash[:12],
		}).Info("Strategy loaded")
	}
}
