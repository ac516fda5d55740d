package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	WagerStatusPending = "pending"
	WagerStatusWon     = "won"
	WagerStatusLost    = "lost"
	WagerStatusPush    = "push"
	WagerStatusVoid    = "void"
)

// PaperWager is a simulated stake against one signal. The decision agent
// never opens a second wager for a signal that already has a pending one.
type PaperWager struct {
	gorm.Model
	SignalID     uint            `json:"signal_id" gorm:"index"`
	GameID       uint            `json:"game_id" gorm:"index"`
	Market       MarketCategory  `json:"market"`
	Selection    string          `json:"selection"`
	LineValue    *float64        `json:"line_value,omitempty"`
	Stake        decimal.Decimal `json:"stake" gorm:"type:numeric"`
	AmericanOdds int             `json:"american_odds"`
	DecimalOdds  float64         `json:"decimal_odds"`
	Status       string          `json:"status" gorm:"default:pending;index"`
	ProfitLoss   decimal.Decimal `json:"profit_loss" gorm:"type:numeric"`
	PlacedAt     time.Time       `json:"placed_at"`
	SettledAt    *time.Time      `json:"settled_at,omitempty"`
}
