// Package settlement closes the loop: it finalizes games, feeds results back
// into team ratings, resolves paper wagers and updates the bankroll.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sports-edge-engine/internal/config"
	"sports-edge-engine/internal/models"
	"sports-edge-engine/internal/odds"
	"sports-edge-engine/internal/ratings"
	"sports-edge-engine/internal/results"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxBankrollRetries bounds the compare-and-set loop on the bankroll row.
const maxBankrollRetries = 3

// matchWindow is how far a provider start time may drift from the scheduled
// time and still refer to the same game.
const matchWindow = 24 * time.Hour

// Settler finalizes games and applies all downstream effects in one
// transaction per game.
type Settler struct {
	db      *gorm.DB
	cfg     *config.Config
	ratings *ratings.Store
	logger  *zap.Logger
	now     func() time.Time
}

// NewSettler creates a settler.
func NewSettler(db *gorm.DB, cfg *config.Config, store *ratings.Store, logger *zap.Logger) *Settler {
	return &Settler{db: db, cfg: cfg, ratings: store, logger: logger, now: time.Now}
}

// SettleFromResults fetches finals from the provider for every configured
// sport and settles the matching local games. Unmatched results are logged
// and skipped; a single game's settlement failure fails the pass.
func (s *Settler) SettleFromResults(ctx context.Context, client results.Interface) (int, error) {
	settled := 0
	for sport := range s.cfg.Sports {
		finals, err := client.FetchResults(ctx, sport, s.cfg.Results.LookbackDays)
		if err != nil {
			return settled, fmt.Errorf("results fetch failed for %s: %w", sport, err)
		}

		for _, r := range finals {
			game, err := s.matchGame(ctx, r)
			if err != nil {
				return settled, err
			}
			if game == nil {
				s.logger.Warn("No local game matches result",
					zap.String("sport", r.Sport),
					zap.String("home", r.HomeTeam),
					zap.String("away", r.AwayTeam),
					zap.Time("started_at", r.StartedAt))
				continue
			}
			if err := s.SettleGame(ctx, game.ID, r.HomeScore, r.AwayScore); err != nil {
				return settled, err
			}
			settled++
		}
	}
	return settled, nil
}

// matchGame resolves a provider result to a local game row by team names and
// start time. Returns nil when no unambiguous match exists.
func (s *Settler) matchGame(ctx context.Context, r results.GameResult) (*models.Game, error) {
	var home, away models.Team
	err := s.db.WithContext(ctx).Where("name = ? AND sport = ?", r.HomeTeam, r.Sport).First(&home).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up team %q: %w", r.HomeTeam, err)
	}
	err = s.db.WithContext(ctx).Where("name = ? AND sport = ?", r.AwayTeam, r.Sport).First(&away).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up team %q: %w", r.AwayTeam, err)
	}

	var game models.Game
	err = s.db.WithContext(ctx).
		Where("home_team_id = ? AND away_team_id = ? AND scheduled_at BETWEEN ? AND ?",
			home.ID, away.ID, r.StartedAt.Add(-matchWindow), r.StartedAt.Add(matchWindow)).
		Order("scheduled_at").
		First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to match game for %s at %s: %w", r.HomeTeam, r.StartedAt, err)
	}
	return &game, nil
}

// SettleGame finalizes one game: scores and status, rating feedback, wager
// resolution and the bankroll update, all in a single transaction. Calling it
// again for an already-settled game is a no-op.
func (s *Settler) SettleGame(ctx context.Context, gameID uint, homeScore, awayScore int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var game models.Game
		if err := tx.First(&game, gameID).Error; err != nil {
			return fmt.Errorf("failed to load game %d: %w", gameID, err)
		}

		applied, err := s.ratings.AlreadyApplied(tx, game.ID)
		if err != nil {
			return err
		}
		if game.Final() && applied {
			s.logger.Debug("Game already settled", zap.Uint("game_id", game.ID))
			return nil
		}

		if !game.Final() {
			game.HomeScore = &homeScore
			game.AwayScore = &awayScore
			game.Status = models.GameStatusFinal
			if err := tx.Save(&game).Error; err != nil {
				return fmt.Errorf("failed to finalize game %d: %w", game.ID, err)
			}
		}

		if !applied {
			sport, ok := s.cfg.SportParams(game.Sport)
			if !ok {
				return fmt.Errorf("no constants for sport %q on game %d", game.Sport, game.ID)
			}
			if _, err := s.ratings.ApplyGameResult(tx, &game, sport.BaselinePoints); err != nil {
				return err
			}
		}

		outcome, err := s.resolveWagers(tx, &game, homeScore, awayScore)
		if err != nil {
			return err
		}

		err = tx.Model(&models.Signal{}).
			Where("game_id = ? AND status = ?", game.ID, models.SignalStatusActive).
			Update("status", models.SignalStatusSettled).Error
		if err != nil {
			return fmt.Errorf("failed to settle signals for game %d: %w", game.ID, err)
		}

		if outcome.resolved > 0 {
			if err := s.updateBankroll(tx, outcome); err != nil {
				return err
			}
		}

		s.logger.Info("Settled game",
			zap.Uint("game_id", game.ID),
			zap.Int("home_score", homeScore),
			zap.Int("away_score", awayScore),
			zap.Int("wagers_resolved", outcome.resolved),
			zap.String("profit_loss", outcome.profitLoss.String()))
		return nil
	})
}

// VoidPostponedGames releases positions on games the ETL has marked
// postponed: pending wagers are voided with the stake returned (no bankroll
// movement, since stakes are only accounted at settlement) and active signals
// are expired. Returns how many wagers were voided.
func (s *Settler) VoidPostponedGames(ctx context.Context) (int, error) {
	var games []models.Game
	err := s.db.WithContext(ctx).Where("status = ?", models.GameStatusPostponed).Find(&games).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load postponed games: %w", err)
	}

	voided := 0
	settledAt := s.now()
	for i := range games {
		game := &games[i]
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.PaperWager{}).
				Where("game_id = ? AND status = ?", game.ID, models.WagerStatusPending).
				Updates(map[string]any{
					"status":      models.WagerStatusVoid,
					"profit_loss": decimal.Zero,
					"settled_at":  settledAt,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to void wagers for game %d: %w", game.ID, res.Error)
			}
			voided += int(res.RowsAffected)

			err := tx.Model(&models.Signal{}).
				Where("game_id = ? AND status = ?", game.ID, models.SignalStatusActive).
				Update("status", models.SignalStatusExpired).Error
			if err != nil {
				return fmt.Errorf("failed to expire signals for game %d: %w", game.ID, err)
			}
			return nil
		})
		if err != nil {
			return voided, err
		}
		s.logger.Info("Voided positions on postponed game", zap.Uint("game_id", game.ID))
	}
	return voided, nil
}

// wagerOutcome aggregates one game's wager resolutions for the single
// bankroll update.
type wagerOutcome struct {
	resolved   int
	staked     decimal.Decimal
	profitLoss decimal.Decimal
	wins       int
	losses     int
	pushes     int
}

func (s *Settler) resolveWagers(tx *gorm.DB, game *models.Game, homeScore, awayScore int) (wagerOutcome, error) {
	outcome := wagerOutcome{staked: decimal.Zero, profitLoss: decimal.Zero}

	var wagers []models.PaperWager
	err := tx.Where("game_id = ? AND status = ?", game.ID, models.WagerStatusPending).Find(&wagers).Error
	if err != nil {
		return outcome, fmt.Errorf("failed to load pending wagers for game %d: %w", game.ID, err)
	}

	settledAt := s.now()
	for i := range wagers {
		w := &wagers[i]
		status := resolveWager(w, homeScore, awayScore)

		switch status {
		case models.WagerStatusWon:
			w.ProfitLoss = w.Stake.Mul(decimal.NewFromFloat(odds.ProfitMultiplier(w.DecimalOdds, true, false))).Round(2)
			outcome.wins++
		case models.WagerStatusLost:
			w.ProfitLoss = w.Stake.Neg()
			outcome.losses++
		case models.WagerStatusPush:
			w.ProfitLoss = decimal.Zero
			outcome.pushes++
		case models.WagerStatusVoid:
			w.ProfitLoss = decimal.Zero
		}
		w.Status = status
		w.SettledAt = &settledAt

		if err := tx.Save(w).Error; err != nil {
			return outcome, fmt.Errorf("failed to settle wager %d: %w", w.ID, err)
		}

		outcome.resolved++
		if status != models.WagerStatusVoid {
			outcome.staked = outcome.staked.Add(w.Stake)
			outcome.profitLoss = outcome.profitLoss.Add(w.ProfitLoss)
		}

		s.logger.Info("Resolved wager",
			zap.Uint("wager_id", w.ID),
			zap.String("status", status),
			zap.String("profit_loss", w.ProfitLoss.String()))
	}
	return outcome, nil
}

// resolveWager grades one wager against the final score. Lines are quoted
// from the selection's perspective, so a spread covers when the selection's
// margin plus the line is positive.
func resolveWager(w *models.PaperWager, homeScore, awayScore int) string {
	switch w.Market {
	case models.MarketMoneyline:
		if homeScore == awayScore {
			return models.WagerStatusPush
		}
		homeWon := homeScore > awayScore
		if (w.Selection == models.SelectionHome) == homeWon {
			return models.WagerStatusWon
		}
		return models.WagerStatusLost

	case models.MarketSpread:
		if w.LineValue == nil {
			return models.WagerStatusVoid
		}
		margin := float64(homeScore - awayScore)
		if w.Selection == models.SelectionAway {
			margin = -margin
		}
		adjusted := margin + *w.LineValue
		switch {
		case adjusted > 0:
			return models.WagerStatusWon
		case adjusted < 0:
			return models.WagerStatusLost
		default:
			return models.WagerStatusPush
		}

	case models.MarketTotal:
		if w.LineValue == nil {
			return models.WagerStatusVoid
		}
		total := float64(homeScore + awayScore)
		switch {
		case total == *w.LineValue:
			return models.WagerStatusPush
		case (total > *w.LineValue) == (w.Selection == models.SelectionOver):
			return models.WagerStatusWon
		default:
			return models.WagerStatusLost
		}
	}

	// Props have no local grading semantics; money back.
	return models.WagerStatusVoid
}

// updateBankroll applies the game's aggregate outcome to the single bankroll
// row through a versioned compare-and-set, retried a bounded number of times.
func (s *Settler) updateBankroll(tx *gorm.DB, outcome wagerOutcome) error {
	for attempt := 0; attempt < maxBankrollRetries; attempt++ {
		var bankroll models.Bankroll
		if err := tx.First(&bankroll).Error; err != nil {
			return fmt.Errorf("failed to load bankroll: %w", err)
		}

		res := tx.Model(&models.Bankroll{}).
			Where("id = ? AND version = ?", bankroll.ID, bankroll.Version).
			Updates(map[string]any{
				"balance":           bankroll.Balance.Add(outcome.profitLoss),
				"total_staked":      bankroll.TotalStaked.Add(outcome.staked),
				"total_profit_loss": bankroll.TotalProfitLoss.Add(outcome.profitLoss),
				"wins":              bankroll.Wins + outcome.wins,
				"losses":            bankroll.Losses + outcome.losses,
				"pushes":            bankroll.Pushes + outcome.pushes,
				"version":           bankroll.Version + 1,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update bankroll: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return nil
		}

		s.logger.Warn("Bankroll version conflict, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("version", bankroll.Version))
	}
	return fmt.Errorf("bankroll update lost the version race %d times", maxBankrollRetries)
}
