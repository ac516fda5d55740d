package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Logger   Logger   `mapstructure:"logger"`
	Database Database `mapstructure:"database"`
	Server   Server   `mapstructure:"server"`
	Results  Results  `mapstructure:"results"`
	Notify   Notify   `mapstructure:"notify"`
	Ratings  Ratings  `mapstructure:"ratings"`
	Signals  Signals  `mapstructure:"signals"`
	Strategy Strategy `mapstructure:"strategy"`
	Bankroll Bankroll `mapstructure:"bankroll"`

	// Sports maps a lowercase sport tag (nfl, nba, nhl) to its constants.
	Sports map[string]Sport `mapstructure:"sports"`

	// PassBudgetSeconds is the wall-clock budget for one batch pass.
	PassBudgetSeconds int `mapstructure:"pass_budget_seconds"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Server holds the configuration for the read-only web API.
type Server struct {
	Port int `mapstructure:"port"`
}

// Results holds the configuration for the results-provider API.
type Results struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	LookbackDays   int     `mapstructure:"lookback_days"`
}

// Notify holds the Slack webhook settings for high-edge signal alerts.
type Notify struct {
	SlackWebhookURL string  `mapstructure:"slack_webhook_url"`
	MinEdgePct      float64 `mapstructure:"min_edge_pct"`
}

// Ratings holds the ELO constants for the team strength engine.
type Ratings struct {
	KFactor         float64 `mapstructure:"k_factor"`
	HomeAdvantage   float64 `mapstructure:"home_advantage"`
	ScoringAlpha    float64 `mapstructure:"scoring_alpha"`
	PointsPerRating float64 `mapstructure:"points_per_rating"`
}

// Signals holds the thresholds and sizing constants for signal assembly.
// Stake percentages are fractions of bankroll (0.01 = 1%).
type Signals struct {
	MinEdgeSidesPct  float64 `mapstructure:"min_edge_sides_pct"`
	MinEdgeTotalsPct float64 `mapstructure:"min_edge_totals_pct"`
	MinEdgePropsPct  float64 `mapstructure:"min_edge_props_pct"`
	MaxEdgePct       float64 `mapstructure:"max_edge_pct"`
	KellyMultiplier  float64 `mapstructure:"kelly_multiplier"`
	MaxStakePct      float64 `mapstructure:"max_stake_pct"`
	LookaheadHours   int     `mapstructure:"lookahead_hours"`
}

// Strategy holds the decision agent's risk constraints. Exposure caps are
// fractions of the current bankroll balance.
type Strategy struct {
	Name               string  `mapstructure:"name"`
	MinEdgePct         float64 `mapstructure:"min_edge_pct"`
	MinConfidence      string  `mapstructure:"min_confidence"`
	KellyMultiplier    float64 `mapstructure:"kelly_multiplier"`
	MaxStakePct        float64 `mapstructure:"max_stake_pct"`
	MaxGameExposurePct float64 `mapstructure:"max_game_exposure_pct"`
	MaxOpenExposurePct float64 `mapstructure:"max_open_exposure_pct"`
	MinStake           float64 `mapstructure:"min_stake"`
	MaxWagersPerRun    int     `mapstructure:"max_wagers_per_run"`
}

// Bankroll holds the paper account's starting state.
type Bankroll struct {
	Starting float64 `mapstructure:"starting"`
}

// Sport holds per-sport model constants.
type Sport struct {
	TotalStdDev    float64 `mapstructure:"total_std_dev"`
	SpreadStdDev   float64 `mapstructure:"spread_std_dev"`
	BaselinePoints float64 `mapstructure:"baseline_points"`
	HomeScoringAdj float64 `mapstructure:"home_scoring_adj"`
	ExpiryHours    int     `mapstructure:"expiry_hours"`
}

// PassBudget returns the wall-clock budget for one batch pass.
func (c *Config) PassBudget() time.Duration {
	return time.Duration(c.PassBudgetSeconds) * time.Second
}

// SportParams returns the constants for a sport tag, and whether it is known.
func (c *Config) SportParams(sport string) (Sport, bool) {
	s, ok := c.Sports[strings.ToLower(sport)]
	return s, ok
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	err = config.Validate()
	return
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "json")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("pass_budget_seconds", 120)

	viper.SetDefault("results.rate_limit", 5) // requests per second
	viper.SetDefault("results.rate_limit_burst", 2)
	viper.SetDefault("results.lookback_days", 2)

	viper.SetDefault("notify.min_edge_pct", 3.0)

	viper.SetDefault("ratings.k_factor", 20.0)
	viper.SetDefault("ratings.home_advantage", 25.0)
	viper.SetDefault("ratings.scoring_alpha", 0.15)
	viper.SetDefault("ratings.points_per_rating", 25.0)

	viper.SetDefault("signals.min_edge_sides_pct", 2.0)
	viper.SetDefault("signals.min_edge_totals_pct", 2.5)
	viper.SetDefault("signals.min_edge_props_pct", 3.0)
	viper.SetDefault("signals.max_edge_pct", 20.0)
	viper.SetDefault("signals.kelly_multiplier", 0.25)
	viper.SetDefault("signals.max_stake_pct", 0.01)
	viper.SetDefault("signals.lookahead_hours", 48)

	viper.SetDefault("strategy.name", "conservative")
	viper.SetDefault("strategy.min_edge_pct", 2.0)
	viper.SetDefault("strategy.min_confidence", "medium")
	viper.SetDefault("strategy.kelly_multiplier", 0.25)
	viper.SetDefault("strategy.max_stake_pct", 0.01)
	viper.SetDefault("strategy.max_game_exposure_pct", 0.03)
	viper.SetDefault("strategy.max_open_exposure_pct", 0.30)
	viper.SetDefault("strategy.min_stake", 1.0)
	viper.SetDefault("strategy.max_wagers_per_run", 10)

	viper.SetDefault("bankroll.starting", 1000.0)

	viper.SetDefault("sports", map[string]any{
		"nfl": map[string]any{
			"total_std_dev":    10.0,
			"spread_std_dev":   14.0,
			"baseline_points":  22.5,
			"home_scoring_adj": 2.5,
			"expiry_hours":     48,
		},
		"nba": map[string]any{
			"total_std_dev":    12.0,
			"spread_std_dev":   14.0,
			"baseline_points":  112.0,
			"home_scoring_adj": 3.0,
			"expiry_hours":     24,
		},
		"nhl": map[string]any{
			"total_std_dev":    2.5,
			"spread_std_dev":   14.0,
			"baseline_points":  3.0,
			"home_scoring_adj": 0.3,
			"expiry_hours":     36,
		},
	})
}

// Validate fails fast on missing or nonsensical constants so a batch pass
// never starts writing with a broken configuration.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("config: database.dsn is required")
	}
	if c.Ratings.KFactor <= 0 {
		return fmt.Errorf("config: ratings.k_factor must be positive, got %v", c.Ratings.KFactor)
	}
	if c.Ratings.ScoringAlpha <= 0 || c.Ratings.ScoringAlpha >= 1 {
		return fmt.Errorf("config: ratings.scoring_alpha must be in (0,1), got %v", c.Ratings.ScoringAlpha)
	}
	if c.Ratings.PointsPerRating <= 0 {
		return fmt.Errorf("config: ratings.points_per_rating must be positive, got %v", c.Ratings.PointsPerRating)
	}
	if c.Signals.KellyMultiplier <= 0 || c.Signals.KellyMultiplier > 1 {
		return fmt.Errorf("config: signals.kelly_multiplier must be in (0,1], got %v", c.Signals.KellyMultiplier)
	}
	if c.Signals.MaxStakePct <= 0 || c.Signals.MaxStakePct > 1 {
		return fmt.Errorf("config: signals.max_stake_pct must be in (0,1], got %v", c.Signals.MaxStakePct)
	}
	switch c.Strategy.MinConfidence {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("config: strategy.min_confidence must be low, medium or high, got %q", c.Strategy.MinConfidence)
	}
	if c.Strategy.MaxGameExposurePct <= 0 || c.Strategy.MaxGameExposurePct > 1 {
		return fmt.Errorf("config: strategy.max_game_exposure_pct must be in (0,1], got %v", c.Strategy.MaxGameExposurePct)
	}
	if c.Strategy.MaxOpenExposurePct <= 0 || c.Strategy.MaxOpenExposurePct > 1 {
		return fmt.Errorf("config: strategy.max_open_exposure_pct must be in (0,1], got %v", c.Strategy.MaxOpenExposurePct)
	}
	if c.Bankroll.Starting <= 0 {
		return fmt.Errorf("config: bankroll.starting must be positive, got %v", c.Bankroll.Starting)
	}
	if len(c.Sports) == 0 {
		return fmt.Errorf("config: at least one sport must be configured")
	}
	for tag, s := range c.Sports {
		if s.TotalStdDev <= 0 || s.SpreadStdDev <= 0 {
			return fmt.Errorf("config: sport %q needs positive volatility constants", tag)
		}
		if s.ExpiryHours <= 0 {
			return fmt.Errorf("config: sport %q needs a positive expiry_hours", tag)
		}
	}
	return nil
}
