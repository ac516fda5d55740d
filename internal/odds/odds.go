// Package odds holds the shared betting algebra: price conversions, vig
// removal, Kelly sizing and closing-line value.
package odds

import (
	"fmt"
	"math"
)

// AmericanToDecimal converts American odds (e.g. -110, +150) to decimal odds.
func AmericanToDecimal(american int) float64 {
	if american > 0 {
		return 1 + float64(american)/100
	}
	return 1 + 100/math.Abs(float64(american))
}

// DecimalToAmerican converts decimal odds to American odds. The result is
// rounded, not truncated: 1.9090..., the decimal form of -110, divides back
// to -109.999... and must not come out as -109.
func DecimalToAmerican(decimal float64) int {
	if decimal >= 2.0 {
		return int(math.Round((decimal - 1) * 100))
	}
	return int(math.Round(-100 / (decimal - 1)))
}

// ImpliedProbability returns the probability implied by American odds,
// bookmaker margin included.
func ImpliedProbability(american int) float64 {
	return 1 / AmericanToDecimal(american)
}

// RemoveVigMultiplicative normalizes two complementary implied probabilities
// so they sum to exactly 1. This is the preferred method for two-way markets.
func RemoveVigMultiplicative(probA, probB float64) (fairA, fairB float64) {
	total := probA + probB
	return probA / total, probB / total
}

// RemoveVigAdditive splits the overround evenly between the two sides.
func RemoveVigAdditive(probA, probB float64) (fairA, fairB float64) {
	vig := probA + probB - 1.0
	return probA - vig/2, probB - vig/2
}

// EdgePercent is fair probability minus market-implied probability, in
// percentage points.
func EdgePercent(fairProb, impliedProb float64) float64 {
	return (fairProb - impliedProb) * 100
}

// FullKelly returns the full Kelly fraction for a bet at the given decimal
// odds, floored at zero for negative-edge inputs.
func FullKelly(fairProb, decimalOdds float64) float64 {
	b := decimalOdds - 1
	if b <= 0 {
		return 0
	}
	kelly := (b*fairProb - (1 - fairProb)) / b
	return math.Max(0, kelly)
}

// RecommendedStakePct returns the risk-capped stake as a fraction of
// bankroll: fractional Kelly, but never more than maxStakePct. The absolute
// ceiling always wins, no matter how large the Kelly fraction is.
func RecommendedStakePct(fairProb, decimalOdds, kellyMultiplier, maxStakePct float64) float64 {
	return math.Min(FullKelly(fairProb, decimalOdds)*kellyMultiplier, maxStakePct)
}

// ProfitMultiplier returns the per-unit profit for a settled wager: the stake
// is multiplied by this to get profit/loss. Pushes return zero.
func ProfitMultiplier(decimalOdds float64, won bool, push bool) float64 {
	if push {
		return 0
	}
	if won {
		return decimalOdds - 1
	}
	return -1
}

// ClosingLineValue measures how much better the entry price was than the
// closing price: (closing / entry) - 1. Positive means the line moved in the
// bettor's favor after entry, independent of the wager's outcome.
func ClosingLineValue(entryDecimal, closingDecimal float64) (float64, error) {
	if entryDecimal <= 1 || closingDecimal <= 1 {
		return 0, fmt.Errorf("decimal odds must exceed 1: entry=%v closing=%v", entryDecimal, closingDecimal)
	}
	return closingDecimal/entryDecimal - 1, nil
}

// ValidProbability reports whether p is a usable probability strictly inside
// (0,1). Values outside that interval indicate a model bug, not bad input.
func ValidProbability(p float64) bool {
	return !math.IsNaN(p) && p > 0 && p < 1
}
