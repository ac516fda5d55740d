package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DecisionPlace = "place"
	DecisionSkip  = "skip"
)

const (
	CorrelationLow    = "low"
	CorrelationMedium = "medium"
	CorrelationHigh   = "high"
)

// PaperDecision is the append-only audit record for every signal the agent
// evaluates. Reasoning names the specific gate that failed on a skip; this is
// the primary surface for understanding why the agent did or did not act.
type PaperDecision struct {
	gorm.Model
	SignalID           uint             `json:"signal_id" gorm:"index"`
	Decision           string           `json:"decision"`
	Reasoning          string           `json:"reasoning"`
	ConfidenceScore    float64          `json:"confidence_score"`
	KellyStake         decimal.Decimal  `json:"kelly_stake" gorm:"type:numeric"`
	ActualStake        *decimal.Decimal `json:"actual_stake,omitempty" gorm:"type:numeric"`
	BankrollAtDecision decimal.Decimal  `json:"bankroll_at_decision" gorm:"type:numeric"`
	ExposurePct        float64          `json:"exposure_pct"`
	CorrelationRisk    string           `json:"correlation_risk"`
}
