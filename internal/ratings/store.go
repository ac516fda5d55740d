package ratings

import (
	"fmt"

	"sports-edge-engine/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store persists rating state and the per-game rating history that makes
// settlement idempotent. All methods run through the caller's transaction so
// rating movement commits or rolls back with the rest of a settlement.
type Store struct {
	engine *Engine
	logger *zap.Logger
}

// NewStore creates a rating store.
func NewStore(engine *Engine, logger *zap.Logger) *Store {
	return &Store{engine: engine, logger: logger}
}

// GameUpdate describes the rating movement a finished game produced.
type GameUpdate struct {
	HomeBefore float64
	HomeAfter  float64
	AwayBefore float64
	AwayAfter  float64
}

// AlreadyApplied reports whether a game's result has already moved ratings.
// History rows are written in the same transaction as the rating update, so
// their presence is the idempotency marker.
func (s *Store) AlreadyApplied(tx *gorm.DB, gameID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.RatingHistory{}).Where("game_id = ?", gameID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check rating history for game %d: %w", gameID, err)
	}
	return count > 0, nil
}

// ApplyGameResult moves both teams' ratings for a finished game and records
// one history row per team, all through the caller's transaction. The
// baseline is the sport's league-average points per side; scoring tendencies
// are smoothed deviations from it.
func (s *Store) ApplyGameResult(tx *gorm.DB, game *models.Game, baseline float64) (GameUpdate, error) {
	if !game.Final() {
		return GameUpdate{}, fmt.Errorf("game %d is not final", game.ID)
	}

	var home, away models.Team
	if err := tx.First(&home, game.HomeTeamID).Error; err != nil {
		return GameUpdate{}, fmt.Errorf("failed to load home team %d: %w", game.HomeTeamID, err)
	}
	if err := tx.First(&away, game.AwayTeamID).Error; err != nil {
		return GameUpdate{}, fmt.Errorf("failed to load away team %d: %w", game.AwayTeamID, err)
	}

	homeScore, awayScore := *game.HomeScore, *game.AwayScore
	deltaHome, deltaAway := s.engine.UpdateAfterGame(home.Rating, away.Rating, homeScore, awayScore)

	update := GameUpdate{
		HomeBefore: home.Rating,
		HomeAfter:  home.Rating + deltaHome,
		AwayBefore: away.Rating,
		AwayAfter:  away.Rating + deltaAway,
	}

	home.Rating = update.HomeAfter
	home.OffensiveRating = s.engine.SmoothScoring(home.OffensiveRating, float64(homeScore)-baseline)
	home.DefensiveRating = s.engine.SmoothScoring(home.DefensiveRating, float64(awayScore)-baseline)
	home.GamesPlayed++

	away.Rating = update.AwayAfter
	away.OffensiveRating = s.engine.SmoothScoring(away.OffensiveRating, float64(awayScore)-baseline)
	away.DefensiveRating = s.engine.SmoothScoring(away.DefensiveRating, float64(homeScore)-baseline)
	away.GamesPlayed++

	if err := tx.Save(&home).Error; err != nil {
		return GameUpdate{}, fmt.Errorf("failed to save home team %d: %w", home.ID, err)
	}
	if err := tx.Save(&away).Error; err != nil {
		return GameUpdate{}, fmt.Errorf("failed to save away team %d: %w", away.ID, err)
	}

	history := []models.RatingHistory{
		{GameID: game.ID, TeamID: home.ID, RatingBefore: update.HomeBefore, RatingAfter: update.HomeAfter},
		{GameID: game.ID, TeamID: away.ID, RatingBefore: update.AwayBefore, RatingAfter: update.AwayAfter},
	}
	if err := tx.Create(&history).Error; err != nil {
		return GameUpdate{}, fmt.Errorf("failed to record rating history for game %d: %w", game.ID, err)
	}

	s.logger.Info("Applied game result to ratings",
		zap.Uint("game_id", game.ID),
		zap.Float64("home_delta", deltaHome),
		zap.Float64("away_delta", deltaAway))
	return update, nil
}
