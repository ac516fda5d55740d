package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bankroll is the single running-total record for the paper account. It is
// mutated only by wager settlement, and only through a versioned
// compare-and-set update so overlapping settlement passes cannot lose writes.
type Bankroll struct {
	gorm.Model
	Balance         decimal.Decimal `json:"balance" gorm:"type:numeric"`
	StartingBalance decimal.Decimal `json:"starting_balance" gorm:"type:numeric"`
	TotalStaked     decimal.Decimal `json:"total_staked" gorm:"type:numeric"`
	TotalProfitLoss decimal.Decimal `json:"total_profit_loss" gorm:"type:numeric"`
	Wins            int             `json:"wins"`
	Losses          int             `json:"losses"`
	Pushes          int             `json:"pushes"`
	Version         int             `json:"version"`
}

// ROI is cumulative profit over cumulative stake, as a fraction.
func (b *Bankroll) ROI() float64 {
	if b.TotalStaked.IsZero() {
		return 0
	}
	roi, _ := b.TotalProfitLoss.Div(b.TotalStaked).Float64()
	return roi
}

// WinRate excludes pushes from the denominator.
func (b *Bankroll) WinRate() float64 {
	decided := b.Wins + b.Losses
	if decided == 0 {
		return 0
	}
	return float64(b.Wins) / float64(decided)
}
