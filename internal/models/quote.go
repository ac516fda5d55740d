package models

import (
	"time"

	"gorm.io/gorm"
)

// Quote is one immutable price observation for a single selection at one
// venue. Quotes are append-only: a fresh observation is always a new row, and
// readers must pick "latest" by ObservedAt, never by insertion order.
type Quote struct {
	gorm.Model
	GameID             uint           `json:"game_id" gorm:"index:idx_quote_lookup"`
	Market             MarketCategory `json:"market" gorm:"index:idx_quote_lookup"`
	Selection          string         `json:"selection" gorm:"index:idx_quote_lookup"`
	Venue              string         `json:"venue" gorm:"index:idx_quote_lookup"`
	LineValue          *float64       `json:"line_value,omitempty"`
	AmericanOdds       int            `json:"american_odds"`
	DecimalOdds        float64        `json:"decimal_odds"`
	ImpliedProbability float64        `json:"implied_probability"`
	ObservedAt         time.Time      `json:"observed_at" gorm:"index:idx_quote_lookup"`
}
