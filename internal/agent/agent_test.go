package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"sports-edge-engine/internal/config"
	"sports-edge-engine/internal/database"
	"sports-edge-engine/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Strategy: config.Strategy{
			Name:               "conservative",
			MinEdgePct:         2.0,
			MinConfidence:      "medium",
			KellyMultiplier:    0.25,
			MaxStakePct:        0.01,
			MaxGameExposurePct: 0.03,
			MaxOpenExposurePct: 0.30,
			MinStake:           1.0,
			MaxWagersPerRun:    10,
		},
	}
}

func testAgent(t *testing.T, cfg *config.Config) (*Agent, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedBankroll(db, 1000))

	a := NewAgent(db, cfg, zap.NewNop())
	a.now = func() time.Time { return testNow }
	return a, db
}

// strongSignal has a fat enough edge that the 1% stake cap binds: stake is
// always 10.00 against the 1000 starting bankroll.
func strongSignal(t *testing.T, db *gorm.DB, gameID uint, market models.MarketCategory, edge float64) models.Signal {
	t.Helper()
	sig := models.Signal{
		GameID:              gameID,
		Market:              market,
		Selection:           models.SelectionHome,
		Venue:               "alpha",
		AmericanOdds:        100,
		DecimalOdds:         2.0,
		FairProbability:     0.60,
		ImpliedProbability:  0.50,
		EdgePercent:         edge,
		KellyFraction:       0.20,
		RecommendedStakePct: 0.01,
		Confidence:          models.ConfidenceHigh,
		GeneratedAt:         testNow.Add(-time.Hour),
		ExpiresAt:           testNow.Add(12 * time.Hour),
		Status:              models.SignalStatusActive,
	}
	require.NoError(t, db.Create(&sig).Error)
	return sig
}

func decisionFor(t *testing.T, db *gorm.DB, signalID uint) models.PaperDecision {
	t.Helper()
	var d models.PaperDecision
	require.NoError(t, db.Where("signal_id = ?", signalID).First(&d).Error)
	return d
}

func TestRun_PlacesWagerAndRecordsDecision(t *testing.T) {
	a, db := testAgent(t, testConfig())
	sig := strongSignal(t, db, 1, models.MarketMoneyline, 10.0)

	placed, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, placed)

	var wager models.PaperWager
	require.NoError(t, db.Where("signal_id = ?", sig.ID).First(&wager).Error)
	assert.Equal(t, models.WagerStatusPending, wager.Status)
	assert.True(t, wager.Stake.Equal(decimal.NewFromInt(10)), "stake=%s", wager.Stake)

	d := decisionFor(t, db, sig.ID)
	assert.Equal(t, models.DecisionPlace, d.Decision)
	require.NotNil(t, d.ActualStake)
	assert.True(t, d.ActualStake.Equal(wager.Stake))
	assert.Equal(t, models.CorrelationLow, d.CorrelationRisk)
}

func TestRun_NeverDoublePlaces(t *testing.T) {
	a, db := testAgent(t, testConfig())
	sig := strongSignal(t, db, 1, models.MarketMoneyline, 10.0)

	placed, err := a.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, placed)

	placed, err = a.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, placed)

	var count int64
	require.NoError(t, db.Model(&models.PaperWager{}).Where("signal_id = ?", sig.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRun_PerGameExposureCap(t *testing.T) {
	a, db := testAgent(t, testConfig())

	// Four distinct markets on one game, each worth a 10.00 stake. The 3%
	// cap (30.00) admits the three best edges and refuses the fourth.
	markets := []models.MarketCategory{models.MarketMoneyline, models.MarketSpread, models.MarketTotal, models.MarketProp}
	var last models.Signal
	for i, market := range markets {
		last = strongSignal(t, db, 7, market, 12.0-float64(i))
	}

	placed, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, placed)

	d := decisionFor(t, db, last.ID)
	assert.Equal(t, models.DecisionSkip, d.Decision)
	assert.Contains(t, d.Reasoning, "per-game exposure cap")
	assert.Equal(t, models.CorrelationMedium, d.CorrelationRisk)
}

func TestRun_CorrelatedMarketIsHighRiskSkip(t *testing.T) {
	a, db := testAgent(t, testConfig())

	best := strongSignal(t, db, 3, models.MarketMoneyline, 10.0)
	worse := strongSignal(t, db, 3, models.MarketMoneyline, 8.0)
	worse.Venue = "bravo"
	require.NoError(t, db.Save(&worse).Error)

	placed, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, placed)

	assert.Equal(t, models.DecisionPlace, decisionFor(t, db, best.ID).Decision)

	d := decisionFor(t, db, worse.ID)
	assert.Equal(t, models.DecisionSkip, d.Decision)
	assert.Contains(t, d.Reasoning, "correlated pending wager")
	assert.Equal(t, models.CorrelationHigh, d.CorrelationRisk)
}

func TestRun_AggregateExposureCap(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy.MaxOpenExposurePct = 0.015
	a, db := testAgent(t, cfg)

	strongSignal(t, db, 1, models.MarketMoneyline, 10.0)
	second := strongSignal(t, db, 2, models.MarketMoneyline, 8.0)

	placed, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, placed)

	d := decisionFor(t, db, second.ID)
	assert.Contains(t, d.Reasoning, "aggregate exposure cap")
}

func TestRun_GateSkips(t *testing.T) {
	a, db := testAgent(t, testConfig())

	outlier := strongSignal(t, db, 1, models.MarketMoneyline, 25.0)
	outlier.Outlier = true
	require.NoError(t, db.Save(&outlier).Error)

	lowTier := strongSignal(t, db, 2, models.MarketMoneyline, 10.0)
	lowTier.Confidence = models.ConfidenceLow
	require.NoError(t, db.Save(&lowTier).Error)

	thinEdge := strongSignal(t, db, 3, models.MarketMoneyline, 1.0)

	placed, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, placed)

	assert.Contains(t, decisionFor(t, db, outlier.ID).Reasoning, "outlier")
	assert.Contains(t, decisionFor(t, db, lowTier.ID).Reasoning, "below strategy minimum")
	assert.Contains(t, decisionFor(t, db, thinEdge.ID).Reasoning, "below strategy minimum")
}

func TestRun_SubMinimumStakeSkipped(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy.MinStake = 25.0
	a, db := testAgent(t, cfg)

	sig := strongSignal(t, db, 1, models.MarketMoneyline, 10.0)

	placed, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, placed)
	assert.Contains(t, decisionFor(t, db, sig.ID).Reasoning, "below minimum")
}

func TestRun_IgnoresExpiredSignals(t *testing.T) {
	a, db := testAgent(t, testConfig())

	expired := strongSignal(t, db, 1, models.MarketMoneyline, 10.0)
	expired.ExpiresAt = testNow.Add(-time.Minute)
	require.NoError(t, db.Save(&expired).Error)

	placed, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, placed)

	var count int64
	require.NoError(t, db.Model(&models.PaperDecision{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConfidenceScore_Bounded(t *testing.T) {
	a, _ := testAgent(t, testConfig())

	sig := models.Signal{
		Market:      models.MarketMoneyline,
		Venue:       "alpha",
		EdgePercent: 50,
		Confidence:  models.ConfidenceHigh,
		ExpiresAt:   testNow.Add(6 * time.Hour),
	}
	score := a.confidenceScore(context.Background(), &sig, testNow.Add(6*time.Hour), testNow)
	assert.LessOrEqual(t, score, 1.0)
	assert.GreaterOrEqual(t, score, 0.0)

	// Full marks on every factor except CLV history, which has none.
	assert.InDelta(t, 0.30+0.30+0.10+0.10+0.10, score, 1e-9)
}

func TestConfidenceScore_TimeFactorUsesGameStart(t *testing.T) {
	a, _ := testAgent(t, testConfig())

	// Identical signals with identical expiries: only the event start time
	// differs, and the nearer start scores higher.
	sig := models.Signal{
		Market:      models.MarketMoneyline,
		Venue:       "alpha",
		EdgePercent: 10,
		Confidence:  models.ConfidenceHigh,
		ExpiresAt:   testNow.Add(2 * time.Hour),
	}
	near := a.confidenceScore(context.Background(), &sig, testNow.Add(6*time.Hour), testNow)
	far := a.confidenceScore(context.Background(), &sig, testNow.Add(72*time.Hour), testNow)

	assert.InDelta(t, 0.05, near-far, 1e-9)
	assert.Greater(t, near, far)
}
