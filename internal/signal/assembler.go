// Package signal assembles betting signals: for every priced selection on an
// upcoming game, it compares the model's fair probability to the best market
// price and emits sized, tiered recommendations.
package signal

import (
	"context"
	"fmt"
	"time"

	"sports-edge-engine/internal/config"
	"sports-edge-engine/internal/models"
	"sports-edge-engine/internal/odds"
	"sports-edge-engine/internal/pricing"
	"sports-edge-engine/internal/prob"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// minTimeToExpiry keeps a freshly generated signal alive at least briefly
// even when the game is about to start.
const minTimeToExpiry = 5 * time.Minute

// Assembler generates signals for games inside the lookahead window.
type Assembler struct {
	db         *gorm.DB
	cfg        *config.Config
	model      *prob.Model
	normalizer *pricing.Normalizer
	logger     *zap.Logger
	now        func() time.Time
}

// NewAssembler creates a signal assembler.
func NewAssembler(db *gorm.DB, cfg *config.Config, model *prob.Model, normalizer *pricing.Normalizer, logger *zap.Logger) *Assembler {
	return &Assembler{
		db:         db,
		cfg:        cfg,
		model:      model,
		normalizer: normalizer,
		logger:     logger,
		now:        time.Now,
	}
}

// Run scans every scheduled game in the lookahead window and returns the
// signals generated this pass. Per-selection problems are logged and skipped;
// only storage-level failures abort the pass.
func (a *Assembler) Run(ctx context.Context) ([]models.Signal, error) {
	now := a.now()
	horizon := now.Add(time.Duration(a.cfg.Signals.LookaheadHours) * time.Hour)

	var games []models.Game
	err := a.db.WithContext(ctx).
		Where("status = ? AND scheduled_at > ? AND scheduled_at <= ?", models.GameStatusScheduled, now, horizon).
		Order("scheduled_at").
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming games: %w", err)
	}

	var generated []models.Signal
	for i := range games {
		signals, err := a.assembleGame(ctx, &games[i], now)
		if err != nil {
			return generated, err
		}
		generated = append(generated, signals...)
	}

	a.logger.Info("Signal pass complete",
		zap.Int("games_scanned", len(games)),
		zap.Int("signals_generated", len(generated)))
	return generated, nil
}

type selectionKey struct {
	market    models.MarketCategory
	selection string
}

func (a *Assembler) assembleGame(ctx context.Context, game *models.Game, now time.Time) ([]models.Signal, error) {
	var home, away models.Team
	if err := a.db.WithContext(ctx).First(&home, game.HomeTeamID).Error; err != nil {
		return nil, fmt.Errorf("failed to load home team for game %d: %w", game.ID, err)
	}
	if err := a.db.WithContext(ctx).First(&away, game.AwayTeamID).Error; err != nil {
		return nil, fmt.Errorf("failed to load away team for game %d: %w", game.ID, err)
	}

	var quotes []models.Quote
	if err := a.db.WithContext(ctx).Where("game_id = ?", game.ID).Find(&quotes).Error; err != nil {
		return nil, fmt.Errorf("failed to load quotes for game %d: %w", game.ID, err)
	}

	grouped := make(map[selectionKey][]models.Quote)
	for _, q := range quotes {
		key := selectionKey{market: q.Market, selection: q.Selection}
		grouped[key] = append(grouped[key], q)
	}

	var generated []models.Signal
	for key, group := range grouped {
		opposing := grouped[selectionKey{market: key.market, selection: models.OpposingSelection(key.selection)}]

		sig, err := a.assembleSelection(ctx, game, &home, &away, key, group, opposing, now)
		if err != nil {
			return generated, err
		}
		if sig != nil {
			generated = append(generated, *sig)
		}
	}
	return generated, nil
}

// assembleSelection evaluates one (market, selection) and persists a signal
// when the edge clears the category threshold. A nil signal with nil error
// means the selection produced nothing this pass.
func (a *Assembler) assembleSelection(ctx context.Context, game *models.Game, home, away *models.Team, key selectionKey, quotes, opposing []models.Quote, now time.Time) (*models.Signal, error) {
	best, err := a.normalizer.Normalize(quotes, opposing)
	if err != nil || best == nil {
		return nil, err
	}

	est, err := a.model.FairProbability(game, home, away, key.market, key.selection, best.Quote.LineValue)
	if err != nil {
		a.logger.Warn("Skipping selection without a fair-probability estimate",
			zap.Uint("game_id", game.ID),
			zap.String("market", string(key.market)),
			zap.String("selection", key.selection),
			zap.Error(err))
		return nil, nil
	}

	edge := odds.EdgePercent(est.Probability, best.ImpliedProbability)
	if edge < a.minEdge(key.market) {
		return nil, nil
	}

	outlier := edge > a.cfg.Signals.MaxEdgePct
	if outlier {
		a.logger.Warn("Edge above sanity ceiling, emitting for review",
			zap.Uint("game_id", game.ID),
			zap.String("market", string(key.market)),
			zap.String("selection", key.selection),
			zap.Float64("edge_pct", edge))
	}

	exists, err := a.activeSignalExists(ctx, game.ID, key, best.Quote.Venue, best.Quote.AmericanOdds)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	confidence := tierForEdge(edge)
	if est.LowSample {
		confidence = confidence.Downgrade()
	}

	sig := models.Signal{
		GameID:                game.ID,
		Market:                key.market,
		Selection:             key.selection,
		LineValue:             best.Quote.LineValue,
		Venue:                 best.Quote.Venue,
		AmericanOdds:          best.Quote.AmericanOdds,
		DecimalOdds:           best.Quote.DecimalOdds,
		FairProbability:       est.Probability,
		ImpliedProbability:    best.ImpliedProbability,
		RawImpliedProbability: best.RawImplied,
		EdgePercent:           edge,
		KellyFraction:         odds.FullKelly(est.Probability, best.Quote.DecimalOdds),
		RecommendedStakePct:   odds.RecommendedStakePct(est.Probability, best.Quote.DecimalOdds, a.cfg.Signals.KellyMultiplier, a.cfg.Signals.MaxStakePct),
		Confidence:            confidence,
		Outlier:               outlier,
		OddsImprovementPct:    best.OddsImprovementPct,
		GeneratedAt:           now,
		ExpiresAt:             a.expiry(game, now),
		Status:                models.SignalStatusActive,
	}
	if err := a.db.WithContext(ctx).Create(&sig).Error; err != nil {
		return nil, fmt.Errorf("failed to persist signal for game %d: %w", game.ID, err)
	}

	a.logger.Info("Generated signal",
		zap.Uint("signal_id", sig.ID),
		zap.Uint("game_id", game.ID),
		zap.String("market", string(key.market)),
		zap.String("selection", key.selection),
		zap.String("venue", sig.Venue),
		zap.Float64("edge_pct", edge),
		zap.String("confidence", string(confidence)))
	return &sig, nil
}

// activeSignalExists is the duplicate guard: one active signal per
// (game, market, selection, venue, price).
func (a *Assembler) activeSignalExists(ctx context.Context, gameID uint, key selectionKey, venue string, americanOdds int) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&models.Signal{}).
		Where("game_id = ? AND market = ? AND selection = ? AND venue = ? AND american_odds = ? AND status = ?",
			gameID, key.market, key.selection, venue, americanOdds, models.SignalStatusActive).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate signal: %w", err)
	}
	return count > 0, nil
}

func (a *Assembler) minEdge(market models.MarketCategory) float64 {
	switch market {
	case models.MarketTotal:
		return a.cfg.Signals.MinEdgeTotalsPct
	case models.MarketProp:
		return a.cfg.Signals.MinEdgePropsPct
	default:
		return a.cfg.Signals.MinEdgeSidesPct
	}
}

func tierForEdge(edge float64) models.Confidence {
	switch {
	case edge >= 5.0:
		return models.ConfidenceHigh
	case edge >= 3.5:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// expiry schedules the signal to lapse a sport-specific offset before start.
// The 5-minute floor always wins: a signal gets a minimum viable window to
// act on even when the game starts inside that window.
func (a *Assembler) expiry(game *models.Game, now time.Time) time.Time {
	offset := 24 * time.Hour
	if sport, ok := a.cfg.SportParams(game.Sport); ok {
		offset = time.Duration(sport.ExpiryHours) * time.Hour
	}

	expires := game.ScheduledAt.Add(-offset)
	if floor := now.Add(minTimeToExpiry); expires.Before(floor) {
		expires = floor
	}
	return expires
}
