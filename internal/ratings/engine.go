// Package ratings implements the team strength engine: an ELO rating per
// team plus exponentially-weighted offensive/defensive scoring tendencies.
package ratings

import (
	"math"

	"sports-edge-engine/internal/config"
)

// DefaultRating is the neutral rating assigned to unseen teams.
const DefaultRating = 1500.0

// Engine holds the rating-update constants.
type Engine struct {
	k             float64
	homeAdvantage float64
	scoringAlpha  float64
}

// NewEngine creates an engine from the validated configuration.
func NewEngine(cfg config.Ratings) *Engine {
	return &Engine{
		k:             cfg.KFactor,
		homeAdvantage: cfg.HomeAdvantage,
		scoringAlpha:  cfg.ScoringAlpha,
	}
}

// HomeAdvantage is the additive rating bonus applied to the home side.
func (e *Engine) HomeAdvantage() float64 {
	return e.homeAdvantage
}

// ExpectedScore returns the probability that side A beats side B given their
// effective ratings. Home advantage must already be folded into ratingA or
// ratingB by the caller.
func (e *Engine) ExpectedScore(ratingA, ratingB float64) float64 {
	return 1 / (1 + math.Pow(10, (ratingB-ratingA)/400))
}

// ExpectedHomeWin applies the home-advantage bonus to the home side and
// returns its win probability.
func (e *Engine) ExpectedHomeWin(homeRating, awayRating float64) float64 {
	return e.ExpectedScore(homeRating+e.homeAdvantage, awayRating)
}

// UpdateAfterGame computes the rating deltas for both sides of a finished
// game. Each side's expected score is taken from its own perspective
// (expectedAway = 1 - expectedHome), so the signed transfer is symmetric:
// deltaHome == -deltaAway always holds by construction.
func (e *Engine) UpdateAfterGame(homeRating, awayRating float64, homeScore, awayScore int) (deltaHome, deltaAway float64) {
	actualHome, actualAway := actualScores(homeScore, awayScore)

	expectedHome := e.ExpectedHomeWin(homeRating, awayRating)
	expectedAway := 1 - expectedHome

	deltaHome = e.k * (actualHome - expectedHome)
	deltaAway = e.k * (actualAway - expectedAway)
	return deltaHome, deltaAway
}

// SmoothScoring folds one observed scoring deviation into an
// exponentially-weighted tendency: new = old + alpha*(observed - old).
func (e *Engine) SmoothScoring(old, observed float64) float64 {
	return old + e.scoringAlpha*(observed-old)
}

func actualScores(homeScore, awayScore int) (home, away float64) {
	switch {
	case homeScore > awayScore:
		return 1, 0
	case homeScore < awayScore:
		return 0, 1
	default:
		return 0.5, 0.5
	}
}
