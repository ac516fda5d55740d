// Package agent decides autonomously which active signals become paper
// wagers. Every evaluation leaves an audit decision; hard risk gates are
// checked before any stake is committed.
package agent

import (
	"context"
	"fmt"
	"time"

	"sports-edge-engine/internal/config"
	"sports-edge-engine/internal/models"
	"sports-edge-engine/internal/odds"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Agent runs one paper-betting decision pass.
type Agent struct {
	db     *gorm.DB
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewAgent creates a decision agent with the configured strategy.
func NewAgent(db *gorm.DB, cfg *config.Config, logger *zap.Logger) *Agent {
	return &Agent{db: db, cfg: cfg, logger: logger, now: time.Now}
}

// exposure tracks pending stake against the run's opening bankroll. Placing
// a paper wager never moves the balance (settlement does), so the tracker is
// the only in-run state.
type exposure struct {
	balance decimal.Decimal
	total   decimal.Decimal
	perGame map[uint]decimal.Decimal
	markets map[string]bool // "gameID/market" with a pending wager
}

func marketKey(gameID uint, market models.MarketCategory) string {
	return fmt.Sprintf("%d/%s", gameID, market)
}

// Run evaluates all active unexpired signals in descending edge order and
// returns how many wagers were placed.
func (a *Agent) Run(ctx context.Context) (int, error) {
	now := a.now()

	var bankroll models.Bankroll
	if err := a.db.WithContext(ctx).First(&bankroll).Error; err != nil {
		return 0, fmt.Errorf("failed to load bankroll: %w", err)
	}

	exp, err := a.openExposure(ctx, bankroll.Balance)
	if err != nil {
		return 0, err
	}

	var signals []models.Signal
	err = a.db.WithContext(ctx).
		Where("status = ? AND expires_at > ?", models.SignalStatusActive, now).
		Where("id NOT IN (?)", a.db.Model(&models.PaperWager{}).Select("signal_id")).
		Order("edge_percent DESC").
		Find(&signals).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load candidate signals: %w", err)
	}

	starts, err := a.gameStarts(ctx, signals)
	if err != nil {
		return 0, err
	}

	placed := 0
	for i := range signals {
		if placed >= a.cfg.Strategy.MaxWagersPerRun {
			break
		}
		didPlace, err := a.evaluate(ctx, &signals[i], exp, starts[signals[i].GameID], now)
		if err != nil {
			return placed, err
		}
		if didPlace {
			placed++
		}
	}

	a.logger.Info("Decision pass complete",
		zap.Int("signals_evaluated", len(signals)),
		zap.Int("wagers_placed", placed),
		zap.String("strategy", a.cfg.Strategy.Name))
	return placed, nil
}

// openExposure sums the pending stake globally and per game, and records
// which (game, market) pairs already carry a wager.
func (a *Agent) openExposure(ctx context.Context, balance decimal.Decimal) (*exposure, error) {
	var pending []models.PaperWager
	err := a.db.WithContext(ctx).Where("status = ?", models.WagerStatusPending).Find(&pending).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load pending wagers: %w", err)
	}

	exp := &exposure{
		balance: balance,
		total:   decimal.Zero,
		perGame: make(map[uint]decimal.Decimal),
		markets: make(map[string]bool),
	}
	for _, w := range pending {
		exp.total = exp.total.Add(w.Stake)
		exp.perGame[w.GameID] = exp.perGame[w.GameID].Add(w.Stake)
		exp.markets[marketKey(w.GameID, w.Market)] = true
	}
	return exp, nil
}

// gameStarts loads the start times of every candidate signal's game so the
// time-to-start score factor reads the event, not the signal's expiry.
func (a *Agent) gameStarts(ctx context.Context, signals []models.Signal) (map[uint]time.Time, error) {
	ids := make([]uint, 0, len(signals))
	seen := make(map[uint]bool)
	for _, s := range signals {
		if !seen[s.GameID] {
			seen[s.GameID] = true
			ids = append(ids, s.GameID)
		}
	}
	starts := make(map[uint]time.Time, len(ids))
	if len(ids) == 0 {
		return starts, nil
	}

	var games []models.Game
	if err := a.db.WithContext(ctx).Where("id IN ?", ids).Find(&games).Error; err != nil {
		return nil, fmt.Errorf("failed to load games for candidate signals: %w", err)
	}
	for _, g := range games {
		starts[g.ID] = g.ScheduledAt
	}
	return starts, nil
}

// evaluate runs one signal through the score and the hard gates, records the
// decision (and wager, on a place) in a single transaction, and reports
// whether a wager was placed.
func (a *Agent) evaluate(ctx context.Context, sig *models.Signal, exp *exposure, startAt time.Time, now time.Time) (bool, error) {
	strategy := a.cfg.Strategy
	score := a.confidenceScore(ctx, sig, startAt, now)

	kellyPct := odds.RecommendedStakePct(sig.FairProbability, sig.DecimalOdds, strategy.KellyMultiplier, strategy.MaxStakePct)
	kellyStake := exp.balance.Mul(decimal.NewFromFloat(kellyPct)).Round(2)

	correlation := models.CorrelationLow
	if exp.perGame[sig.GameID].IsPositive() {
		correlation = models.CorrelationMedium
	}
	if exp.markets[marketKey(sig.GameID, sig.Market)] {
		correlation = models.CorrelationHigh
	}

	decisionRow := models.PaperDecision{
		SignalID:           sig.ID,
		ConfidenceScore:    score,
		KellyStake:         kellyStake,
		BankrollAtDecision: exp.balance,
		CorrelationRisk:    correlation,
	}

	gameAfter := exp.perGame[sig.GameID].Add(kellyStake)
	totalAfter := exp.total.Add(kellyStake)
	decisionRow.ExposurePct = pctOf(totalAfter, exp.balance)

	reason := ""
	switch {
	case sig.Outlier:
		reason = "outlier signal held for review"
	case sig.Confidence.Rank() < models.Confidence(strategy.MinConfidence).Rank():
		reason = fmt.Sprintf("confidence %s below strategy minimum %s", sig.Confidence, strategy.MinConfidence)
	case sig.EdgePercent < strategy.MinEdgePct:
		reason = fmt.Sprintf("edge %.2f%% below strategy minimum %.2f%%", sig.EdgePercent, strategy.MinEdgePct)
	case correlation == models.CorrelationHigh:
		reason = fmt.Sprintf("correlated pending wager on game %d market %s", sig.GameID, sig.Market)
	case pctOf(gameAfter, exp.balance) > strategy.MaxGameExposurePct:
		reason = fmt.Sprintf("per-game exposure cap %.1f%% exceeded", strategy.MaxGameExposurePct*100)
	case pctOf(totalAfter, exp.balance) > strategy.MaxOpenExposurePct:
		reason = fmt.Sprintf("aggregate exposure cap %.1f%% exceeded", strategy.MaxOpenExposurePct*100)
	case kellyStake.LessThan(decimal.NewFromFloat(strategy.MinStake)):
		reason = fmt.Sprintf("stake %s below minimum %.2f", kellyStake, strategy.MinStake)
	}

	if reason != "" {
		decisionRow.Decision = models.DecisionSkip
		decisionRow.Reasoning = reason
		if err := a.db.WithContext(ctx).Create(&decisionRow).Error; err != nil {
			return false, fmt.Errorf("failed to record skip decision for signal %d: %w", sig.ID, err)
		}
		a.logger.Info("Skipped signal",
			zap.Uint("signal_id", sig.ID),
			zap.String("reason", reason))
		return false, nil
	}

	decisionRow.Decision = models.DecisionPlace
	decisionRow.Reasoning = fmt.Sprintf("edge %.2f%%, confidence %s, score %.2f", sig.EdgePercent, sig.Confidence, score)
	decisionRow.ActualStake = &kellyStake

	wager := models.PaperWager{
		SignalID:     sig.ID,
		GameID:       sig.GameID,
		Market:       sig.Market,
		Selection:    sig.Selection,
		LineValue:    sig.LineValue,
		Stake:        kellyStake,
		AmericanOdds: sig.AmericanOdds,
		DecimalOdds:  sig.DecimalOdds,
		Status:       models.WagerStatusPending,
		ProfitLoss:   decimal.Zero,
		PlacedAt:     now,
	}

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&decisionRow).Error; err != nil {
			return fmt.Errorf("failed to record place decision for signal %d: %w", sig.ID, err)
		}
		if err := tx.Create(&wager).Error; err != nil {
			return fmt.Errorf("failed to place wager for signal %d: %w", sig.ID, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	exp.total = totalAfter
	exp.perGame[sig.GameID] = gameAfter
	exp.markets[marketKey(sig.GameID, sig.Market)] = true

	a.logger.Info("Placed paper wager",
		zap.Uint("signal_id", sig.ID),
		zap.Uint("wager_id", wager.ID),
		zap.String("stake", kellyStake.String()),
		zap.Float64("score", score))
	return true, nil
}

// confidenceScore blends the signal's quality factors into [0,1]. The
// weights favor realized edge and tier; CLV history, lead time and market
// type refine the tail.
func (a *Agent) confidenceScore(ctx context.Context, sig *models.Signal, startAt time.Time, now time.Time) float64 {
	score := 0.0

	// Edge magnitude, saturating at 10 points.
	edge := sig.EdgePercent
	if edge > 10 {
		edge = 10
	}
	if edge < 0 {
		edge = 0
	}
	score += 0.30 * edge / 10

	switch sig.Confidence {
	case models.ConfidenceHigh:
		score += 0.30
	case models.ConfidenceMedium:
		score += 0.20
	default:
		score += 0.10
	}

	score += a.clvFactor(ctx, sig.Venue, sig.Market)

	// Closer starts mean fresher prices and less time for the line to move
	// against the position. An unknown start time scores like a distant one.
	switch untilStart := startAt.Sub(now); {
	case startAt.IsZero():
		score += 0.05
	case untilStart <= 24*time.Hour:
		score += 0.10
	case untilStart <= 48*time.Hour:
		score += 0.08
	default:
		score += 0.05
	}

	switch sig.Market {
	case models.MarketMoneyline:
		score += 0.10
	case models.MarketSpread:
		score += 0.07
	default:
		score += 0.05
	}
	return score
}

// clvFactor rewards venues and markets whose past signals beat the closing
// line. No history is scored neutrally.
func (a *Agent) clvFactor(ctx context.Context, venue string, market models.MarketCategory) float64 {
	var avg *float64
	err := a.db.WithContext(ctx).Model(&models.Signal{}).
		Where("venue = ? AND market = ? AND closing_line_value_pct IS NOT NULL", venue, market).
		Select("AVG(closing_line_value_pct)").
		Scan(&avg).Error
	if err != nil {
		a.logger.Warn("Failed to load CLV history, scoring neutrally",
			zap.String("venue", venue),
			zap.Error(err))
		return 0.10
	}
	if avg == nil {
		return 0.10
	}
	switch {
	case *avg >= 0.02:
		return 0.20
	case *avg >= 0:
		return 0.15
	default:
		return 0.05
	}
}

func pctOf(amount, balance decimal.Decimal) float64 {
	if balance.IsZero() {
		return 0
	}
	pct, _ := amount.Div(balance).Float64()
	return pct
}
