package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SignalStatusActive  = "active"
	SignalStatusExpired = "expired"
	SignalStatusSettled = "settled"
)

// Signal is a derived, time-bounded betting recommendation produced by the
// assembler from one line-shopped quote. At most one active signal may exist
// per (game, market, selection, venue, price).
type Signal struct {
	gorm.Model
	GameID                uint           `json:"game_id" gorm:"index"`
	Market                MarketCategory `json:"market"`
	Selection             string         `json:"selection"`
	LineValue             *float64       `json:"line_value,omitempty"`
	Venue                 string         `json:"venue"`
	AmericanOdds          int            `json:"american_odds"`
	DecimalOdds           float64        `json:"decimal_odds"`
	FairProbability       float64        `json:"fair_probability"`
	ImpliedProbability    float64        `json:"implied_probability"`     // vig removed where pairable
	RawImpliedProbability float64        `json:"raw_implied_probability"` // straight from the quote
	EdgePercent           float64        `json:"edge_percent"`
	KellyFraction         float64        `json:"kelly_fraction"` // full Kelly, before multiplier and cap
	RecommendedStakePct   float64        `json:"recommended_stake_pct"`
	Confidence            Confidence     `json:"confidence"`
	Outlier               bool           `json:"outlier"` // edge above the sanity ceiling, held for review
	OddsImprovementPct    float64        `json:"odds_improvement_pct"`
	GeneratedAt           time.Time      `json:"generated_at"`
	ExpiresAt             time.Time      `json:"expires_at"`
	Status                string         `json:"status" gorm:"default:active;index"`
	ClosingDecimalOdds    *float64       `json:"closing_decimal_odds,omitempty"`
	ClosingLineValuePct   *float64       `json:"closing_line_value_pct,omitempty"`
}
