package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sports-edge-engine/internal/models"
	"sports-edge-engine/internal/odds"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// closingLeadTime is how close to the start a game must be before its
// signals' closing prices are captured.
const closingLeadTime = 30 * time.Minute

// CaptureClosingLines records the closing price for signals whose games are
// about to start or have started, computes closing-line value against the
// entry price, and expires signals past their deadline. Returns how many
// closing prices were captured.
func (s *Settler) CaptureClosingLines(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := now.Add(closingLeadTime)

	var signals []models.Signal
	err := s.db.WithContext(ctx).
		Joins("JOIN games ON games.id = signals.game_id").
		Where("signals.status = ? AND signals.closing_decimal_odds IS NULL AND games.scheduled_at <= ?",
			models.SignalStatusActive, cutoff).
		Find(&signals).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load signals near start: %w", err)
	}

	captured := 0
	for i := range signals {
		sig := &signals[i]
		ok, err := s.captureOne(ctx, sig)
		if err != nil {
			return captured, err
		}
		if ok {
			captured++
		}
	}

	res := s.db.WithContext(ctx).Model(&models.Signal{}).
		Where("status = ? AND expires_at <= ?", models.SignalStatusActive, now).
		Update("status", models.SignalStatusExpired)
	if res.Error != nil {
		return captured, fmt.Errorf("failed to expire signals: %w", res.Error)
	}

	s.logger.Info("Closing pass complete",
		zap.Int("closing_prices_captured", captured),
		zap.Int64("signals_expired", res.RowsAffected))
	return captured, nil
}

// captureOne stamps a signal with the venue's last pre-start quote for the
// same selection. Signals with no such quote are left for a later pass.
func (s *Settler) captureOne(ctx context.Context, sig *models.Signal) (bool, error) {
	var game models.Game
	if err := s.db.WithContext(ctx).First(&game, sig.GameID).Error; err != nil {
		return false, fmt.Errorf("failed to load game %d for closing capture: %w", sig.GameID, err)
	}

	var closing models.Quote
	err := s.db.WithContext(ctx).
		Where("game_id = ? AND market = ? AND selection = ? AND venue = ? AND observed_at <= ?",
			sig.GameID, sig.Market, sig.Selection, sig.Venue, game.ScheduledAt).
		Order("observed_at DESC").
		First(&closing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load closing quote for signal %d: %w", sig.ID, err)
	}

	clv, err := odds.ClosingLineValue(sig.DecimalOdds, closing.DecimalOdds)
	if err != nil {
		s.logger.Warn("Unusable closing quote",
			zap.Uint("signal_id", sig.ID),
			zap.Error(err))
		return false, nil
	}

	clvPct := clv * 100
	sig.ClosingDecimalOdds = &closing.DecimalOdds
	sig.ClosingLineValuePct = &clvPct
	if err := s.db.WithContext(ctx).Save(sig).Error; err != nil {
		return false, fmt.Errorf("failed to save closing price for signal %d: %w", sig.ID, err)
	}

	s.logger.Info("Captured closing line",
		zap.Uint("signal_id", sig.ID),
		zap.Float64("entry_decimal", sig.DecimalOdds),
		zap.Float64("closing_decimal", closing.DecimalOdds),
		zap.Float64("clv_pct", clvPct))
	return true, nil
}
