package strategyconfig

// Config holds the tunable analysis strategy: quality thresholds, scan
// settings and the deterministic rating weights. It lives in a YAML file so
// thresholds can change without a rebuild.
type Config struct {
	Meta    Meta    `yaml:"meta" json:"meta"`
	Quality Quality `yaml:"quality" json:"quality"`
	Scan    Scan    `yaml:"scan" json:"scan"`
	Rating  Rating  `yaml:"rating" json:"rating"`
	Exits   Exits   `yaml:"exits" json:"exits"`
}

// Meta identifies the strategy revision.
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Quality sets the gate a result must clear before notification or
// persistence.
type Quality struct {
	MinRating     float64 `yaml:"min_rating" json:"min_rating"`
	MinConfidence int     `yaml:"min_confidence" json:"min_confidence"`
}

// Scan configures the scheduled sentiment sweep.
type Scan struct {
	TopN     int    `yaml:"top_n" json:"top_n"`
	Schedule string `yaml:"schedule" json:"schedule"` // six-field cron
}

// Rating caps the contribution of each signal family to the preliminary
// score.
type Rating struct {
	TechCeiling float64 `yaml:"tech_ceiling" json:"tech_ceiling"`
	FundCeiling float64 `yaml:"fund_ceiling" json:"fund_ceiling"`
}

// Exits sets the fallback percentages used when no chart level is available.
type Exits struct {
	ProfitTargetPct float64 `yaml:"profit_target_pct" json:"profit_target_pct"`
	StopLossPct     float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`
}
