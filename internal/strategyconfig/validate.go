package strategyconfig

import "fmt"

// ValidationError aborts startup; a wrong threshold is worse than no run.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every constraint the rest of the system assumes.
func Validate(cfg *Config) error {
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	if cfg.Quality.MinRating < 0 || cfg.Quality.MinRating > 100 {
		return ValidationError{"quality.min_rating", "must be in [0, 100]"}
	}
	if cfg.Quality.MinConfidence < 1 || cfg.Quality.MinConfidence > 10 {
		return ValidationError{"quality.min_confidence", "must be in [1, 10]"}
	}

	if cfg.Scan.TopN <= 0 {
		return ValidationError{"scan.top_n", "must be > 0"}
	}
	if cfg.Scan.Schedule == "" {
		return ValidationError{"scan.schedule", "required"}
	}

	if cfg.Rating.TechCeiling <= 0 || cfg.Rating.TechCeiling > 100 {
		return ValidationError{"rating.tech_ceiling", "must be in (0, 100]"}
	}
	if cfg.Rating.FundCeiling < 0 || cfg.Rating.FundCeiling > 100 {
		return ValidationError{"rating.fund_ceiling", "must be in [0, 100]"}
	}
	if cfg.Rating.TechCeiling+cfg.Rating.FundCeiling > 100 {
		return ValidationError{"rating", "tech_ceiling + fund_ceiling must not exceed 100"}
	}

	if cfg.Exits.ProfitTargetPct <= 0 {
		return ValidationError{"exits.profit_target_pct", "must be > 0"}
	}
	if cfg.Exits.StopLossPct <= 0 {
		return ValidationError{"exits.stop_loss_pct", "must be > 0"}
	}

	return nil
}
