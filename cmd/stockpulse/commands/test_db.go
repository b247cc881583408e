package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/minjae-dev/stockpulse/pkg/config"
	"github.com/minjae-dev/stockpulse/pkg/database"
	"github.com/minjae-dev/stockpulse/pkg/logger"
)

// testDBCmd verifies database connectivity and prints pool statistics.
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Verify database connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is not set")
		}

		log := logger.New(cfg)

		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("ping: %w", err)
		}

		stats := db.Stats()
		log.WithFields(map[string]interface{}{
			"total_conns": stats.TotalConns,
			"idle_conns":  stats.IdleConns,
			"max_conns":   stats.MaxConns,
		}).Info("Database connection OK")

		fmt.Println("Database connection OK")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}
