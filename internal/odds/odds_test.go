package odds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmericanToDecimal(t *testing.T) {
	assert.InDelta(t, 1.909, AmericanToDecimal(-110), 0.001)
	assert.InDelta(t, 2.50, AmericanToDecimal(150), 0.001)
	assert.InDelta(t, 1.286, AmericanToDecimal(-350), 0.001)
	assert.InDelta(t, 3.00, AmericanToDecimal(200), 0.001)
}

func TestDecimalToAmerican_RoundsExactly(t *testing.T) {
	// The decimal form of -110 divides back to -109.999...; truncation
	// toward zero would yield -109.
	assert.Equal(t, -110, DecimalToAmerican(1.9090909090909092))
	assert.Equal(t, -350, DecimalToAmerican(1.2857142857142858))
	assert.Equal(t, 150, DecimalToAmerican(2.5))
}

func TestConversionRoundTrip(t *testing.T) {
	// american -> decimal -> implied and back must agree within float
	// tolerance for a representative odds set.
	for _, american := range []int{-110, 150, -350, 200} {
		dec := AmericanToDecimal(american)
		implied := ImpliedProbability(american)

		assert.InDelta(t, 1/dec, implied, 1e-9, "american=%d", american)
		assert.Equal(t, american, DecimalToAmerican(dec), "american=%d", american)
	}
}

func TestRemoveVigMultiplicative_SumsToOne(t *testing.T) {
	fairA, fairB := RemoveVigMultiplicative(0.56, 0.50)

	assert.InDelta(t, 1.0, fairA+fairB, 1e-12)
	assert.InDelta(t, 0.5283, fairA, 0.0001)
	assert.Greater(t, fairA, fairB)
}

func TestRemoveVigAdditive_SumsToOne(t *testing.T) {
	fairA, fairB := RemoveVigAdditive(0.55, 0.50)
	assert.InDelta(t, 1.0, fairA+fairB, 1e-12)
}

func TestEdgePercent(t *testing.T) {
	assert.InDelta(t, 3.5, EdgePercent(0.555, 0.520), 1e-9)
	assert.Negative(t, EdgePercent(0.48, 0.52))
}

func TestFullKelly(t *testing.T) {
	// p=0.55 at even money: kelly = (1*0.55 - 0.45)/1 = 0.10
	assert.InDelta(t, 0.10, FullKelly(0.55, 2.0), 1e-9)

	// Negative edge floors at zero, never a negative stake.
	assert.Zero(t, FullKelly(0.40, 2.0))
	assert.Zero(t, FullKelly(0.55, 1.0))
}

func TestRecommendedStakePct_CapAlwaysWins(t *testing.T) {
	// Extreme odds: p=0.9 at decimal 10 gives full Kelly ~0.889; the 1%
	// ceiling still binds after the 0.25 multiplier.
	stake := RecommendedStakePct(0.9, 10.0, 0.25, 0.01)
	assert.Equal(t, 0.01, stake)

	// A small edge stays below the cap: p=0.51 at even money is full Kelly
	// 0.02, quarter-Kelly 0.005.
	stake = RecommendedStakePct(0.51, 2.0, 0.25, 0.01)
	assert.InDelta(t, 0.005, stake, 1e-9)
}

func TestProfitMultiplier(t *testing.T) {
	assert.InDelta(t, 1.10, ProfitMultiplier(2.10, true, false), 1e-9)
	assert.Equal(t, -1.0, ProfitMultiplier(2.10, false, false))
	assert.Zero(t, ProfitMultiplier(2.10, false, true))
}

func TestClosingLineValue(t *testing.T) {
	clv, err := ClosingLineValue(2.0, 2.1)
	assert.NoError(t, err)
	assert.InDelta(t, 0.05, clv, 1e-9)

	clv, err = ClosingLineValue(2.0, 1.9)
	assert.NoError(t, err)
	assert.InDelta(t, -0.05, clv, 1e-9)

	_, err = ClosingLineValue(1.0, 2.0)
	assert.Error(t, err)
}

func TestValidProbability(t *testing.T) {
	assert.True(t, ValidProbability(0.5))
	assert.False(t, ValidProbability(0))
	assert.False(t, ValidProbability(1))
	assert.False(t, ValidProbability(-0.2))
	assert.False(t, ValidProbability(1.7))
}
