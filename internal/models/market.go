package models

// MarketCategory identifies the pricing math a market needs.
type MarketCategory string

const (
	MarketMoneyline MarketCategory = "moneyline"
	MarketSpread    MarketCategory = "spread"
	MarketTotal     MarketCategory = "total"
	MarketProp      MarketCategory = "prop"
)

// Confidence is the tier assigned to a signal at generation time.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Rank orders tiers so strategies can express a minimum.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	default:
		return 1
	}
}

// Downgrade drops the tier one level; low stays low.
func (c Confidence) Downgrade() Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	case ConfidenceMedium:
		return ConfidenceLow
	default:
		return ConfidenceLow
	}
}
