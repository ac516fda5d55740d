// Package prob estimates fair win probabilities for a selection from team
// ratings, independent of any market price.
package prob

import (
	"fmt"
	"math"

	"sports-edge-engine/internal/config"
	"sports-edge-engine/internal/models"
	"sports-edge-engine/internal/odds"
	"sports-edge-engine/internal/ratings"

	"go.uber.org/zap"
)

// Model derives fair probabilities from the rating engine's view of both
// teams plus per-sport scoring constants.
type Model struct {
	engine *ratings.Engine
	cfg    *config.Config
	logger *zap.Logger
}

// NewModel creates a probability model.
func NewModel(engine *ratings.Engine, cfg *config.Config, logger *zap.Logger) *Model {
	return &Model{engine: engine, cfg: cfg, logger: logger}
}

// Estimate is a fair probability plus the sample-size caveat that feeds the
// confidence tier.
type Estimate struct {
	Probability float64
	LowSample   bool
}

// FairProbability estimates the chance the given selection wins. Unrated
// teams (zero games played) fall back to the neutral default rating rather
// than failing; the estimate is flagged low-sample instead.
func (m *Model) FairProbability(game *models.Game, home, away *models.Team, market models.MarketCategory, selection string, line *float64) (Estimate, error) {
	sport, ok := m.cfg.SportParams(game.Sport)
	if !ok {
		return Estimate{}, fmt.Errorf("no model constants for sport %q", game.Sport)
	}

	h := m.effectiveTeam(home)
	a := m.effectiveTeam(away)
	lowSample := home.LowSample() || away.LowSample()

	var p float64
	switch market {
	case models.MarketMoneyline:
		p = m.moneyline(h, a, selection)
	case models.MarketSpread:
		if line == nil {
			return Estimate{}, fmt.Errorf("spread market needs a line value")
		}
		p = m.spread(h, a, sport, selection, *line)
	case models.MarketTotal:
		if line == nil {
			return Estimate{}, fmt.Errorf("total market needs a line value")
		}
		p = m.total(h, a, sport, selection, *line)
	default:
		return Estimate{}, fmt.Errorf("no fair-probability model for market %q", market)
	}

	if !odds.ValidProbability(p) {
		return Estimate{}, fmt.Errorf("model produced probability %v outside (0,1) for game %d %s/%s", p, game.ID, market, selection)
	}
	return Estimate{Probability: p, LowSample: lowSample}, nil
}

// teamView is the rating snapshot the model actually consumes. Teams with no
// sample are replaced by a neutral view.
type teamView struct {
	rating  float64
	offense float64
	defense float64
}

func (m *Model) effectiveTeam(team *models.Team) teamView {
	if team.GamesPlayed == 0 {
		m.logger.Debug("Unrated team, using neutral view",
			zap.String("team", team.Name),
			zap.String("sport", team.Sport))
		return teamView{rating: ratings.DefaultRating}
	}
	return teamView{
		rating:  team.Rating,
		offense: team.OffensiveRating,
		defense: team.DefensiveRating,
	}
}

func (m *Model) moneyline(h, a teamView, selection string) float64 {
	pHome := m.engine.ExpectedHomeWin(h.rating, a.rating)
	if selection == models.SelectionAway {
		return 1 - pHome
	}
	return pHome
}

// spread converts the rating gap into an expected victory margin and asks how
// often that margin covers the posted line. The line is quoted from the
// selection's perspective (favorites negative), so covering means
// margin + line > 0 for the home side.
func (m *Model) spread(h, a teamView, sport config.Sport, selection string, line float64) float64 {
	margin := (h.rating - a.rating + m.engine.HomeAdvantage()) / m.cfg.Ratings.PointsPerRating
	if selection == models.SelectionAway {
		margin = -margin
	}
	return normalCDF((margin + line) / sport.SpreadStdDev)
}

// total builds an expected combined score from the league baseline and both
// teams' scoring tendencies, then measures the line against it.
func (m *Model) total(h, a teamView, sport config.Sport, selection string, line float64) float64 {
	expectedHome := sport.BaselinePoints + h.offense + a.defense + sport.HomeScoringAdj
	expectedAway := sport.BaselinePoints + a.offense + h.defense
	expected := expectedHome + expectedAway

	pOver := 1 - normalCDF((line-expected)/sport.TotalStdDev)
	if selection == models.SelectionUnder {
		return 1 - pOver
	}
	return pOver
}

// normalCDF is the standard normal CDF via the error function.
func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}
