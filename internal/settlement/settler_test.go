package settlement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"sports-edge-engine/internal/config"
	"sports-edge-engine/internal/database"
	"sports-edge-engine/internal/models"
	"sports-edge-engine/internal/ratings"
	"sports-edge-engine/internal/results"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 1, 10, 23, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Ratings: config.Ratings{
			KFactor:         20,
			HomeAdvantage:   25,
			ScoringAlpha:    0.15,
			PointsPerRating: 25,
		},
		Results: config.Results{LookbackDays: 2},
		Sports: map[string]config.Sport{
			"nfl": {
				TotalStdDev:    10,
				SpreadStdDev:   14,
				BaselinePoints: 22.5,
				HomeScoringAdj: 2.5,
				ExpiryHours:    48,
			},
		},
	}
}

func testSettler(t *testing.T) (*Settler, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedBankroll(db, 1000))

	cfg := testConfig()
	engine := ratings.NewEngine(cfg.Ratings)
	store := ratings.NewStore(engine, zap.NewNop())

	s := NewSettler(db, cfg, store, zap.NewNop())
	s.now = func() time.Time { return testNow }
	return s, db
}

func seedGame(t *testing.T, db *gorm.DB, scheduledAt time.Time) (*models.Game, *models.Team, *models.Team) {
	t.Helper()
	home := models.Team{Name: "Home " + t.Name(), Sport: "nfl", Rating: 1520, GamesPlayed: 5}
	away := models.Team{Name: "Away " + t.Name(), Sport: "nfl", Rating: 1480, GamesPlayed: 5}
	require.NoError(t, db.Create(&home).Error)
	require.NoError(t, db.Create(&away).Error)

	game := models.Game{
		Sport:       "nfl",
		HomeTeamID:  home.ID,
		AwayTeamID:  away.ID,
		ScheduledAt: scheduledAt,
		Status:      models.GameStatusScheduled,
	}
	require.NoError(t, db.Create(&game).Error)
	return &game, &home, &away
}

func seedWager(t *testing.T, db *gorm.DB, gameID uint, market models.MarketCategory, selection string, line *float64, stake float64, decimalOdds float64) *models.PaperWager {
	t.Helper()
	sig := models.Signal{
		GameID:      gameID,
		Market:      market,
		Selection:   selection,
		LineValue:   line,
		Venue:       "alpha",
		DecimalOdds: decimalOdds,
		GeneratedAt: testNow.Add(-24 * time.Hour),
		ExpiresAt:   testNow.Add(-time.Hour),
		Status:      models.SignalStatusActive,
	}
	require.NoError(t, db.Create(&sig).Error)

	w := models.PaperWager{
		SignalID:    sig.ID,
		GameID:      gameID,
		Market:      market,
		Selection:   selection,
		LineValue:   line,
		Stake:       decimal.NewFromFloat(stake),
		DecimalOdds: decimalOdds,
		Status:      models.WagerStatusPending,
		PlacedAt:    testNow.Add(-24 * time.Hour),
	}
	require.NoError(t, db.Create(&w).Error)
	return &w
}

func TestSettleGame_ResolvesWagersAndBankroll(t *testing.T) {
	s, db := testSettler(t)
	game, _, _ := seedGame(t, db, testNow.Add(-4*time.Hour))

	line := -3.0
	totalLine := 44.0
	// Final 24-21: the home moneyline wins, laying 3 lands exactly on the
	// number (push), and the under 44 loses to a 45-point total.
	mlWin := seedWager(t, db, game.ID, models.MarketMoneyline, models.SelectionHome, nil, 10, 2.10)
	spreadPush := seedWager(t, db, game.ID, models.MarketSpread, models.SelectionHome, &line, 10, 1.909)
	totalLoss := seedWager(t, db, game.ID, models.MarketTotal, models.SelectionUnder, &totalLine, 10, 1.909)

	require.NoError(t, s.SettleGame(context.Background(), game.ID, 24, 21))

	// Fresh destination structs per lookup: reusing one would leak the
	// previous primary key into the next query's conditions.
	var won, pushed, lost models.PaperWager
	require.NoError(t, db.First(&won, mlWin.ID).Error)
	assert.Equal(t, models.WagerStatusWon, won.Status)
	assert.True(t, won.ProfitLoss.Equal(decimal.NewFromFloat(11)), "pl=%s", won.ProfitLoss)
	require.NotNil(t, won.SettledAt)

	require.NoError(t, db.First(&pushed, spreadPush.ID).Error)
	assert.Equal(t, models.WagerStatusPush, pushed.Status)
	assert.True(t, pushed.ProfitLoss.IsZero())

	require.NoError(t, db.First(&lost, totalLoss.ID).Error)
	assert.Equal(t, models.WagerStatusLost, lost.Status)
	assert.True(t, lost.ProfitLoss.Equal(decimal.NewFromInt(-10)))

	var bankroll models.Bankroll
	require.NoError(t, db.First(&bankroll).Error)
	assert.True(t, bankroll.Balance.Equal(decimal.NewFromInt(1001)), "balance=%s", bankroll.Balance)
	assert.True(t, bankroll.TotalStaked.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 1, bankroll.Wins)
	assert.Equal(t, 1, bankroll.Losses)
	assert.Equal(t, 1, bankroll.Pushes)
	assert.Equal(t, 2, bankroll.Version)

	// Signals on the game are no longer active.
	var active int64
	require.NoError(t, db.Model(&models.Signal{}).
		Where("game_id = ? AND status = ?", game.ID, models.SignalStatusActive).
		Count(&active).Error)
	assert.Zero(t, active)
}

func TestSettleGame_MovesRatingsOnce(t *testing.T) {
	s, db := testSettler(t)
	game, home, away := seedGame(t, db, testNow.Add(-4*time.Hour))

	require.NoError(t, s.SettleGame(context.Background(), game.ID, 27, 17))

	var homeAfter, awayAfter models.Team
	require.NoError(t, db.First(&homeAfter, home.ID).Error)
	require.NoError(t, db.First(&awayAfter, away.ID).Error)

	assert.Greater(t, homeAfter.Rating, home.Rating)
	assert.Less(t, awayAfter.Rating, away.Rating)
	assert.Equal(t, 6, homeAfter.GamesPlayed)
	assert.InDelta(t, 0, (homeAfter.Rating-home.Rating)+(awayAfter.Rating-away.Rating), 1e-9)

	// The winner scored above baseline, so its offense trends up.
	assert.Positive(t, homeAfter.OffensiveRating)

	var historyCount int64
	require.NoError(t, db.Model(&models.RatingHistory{}).Where("game_id = ?", game.ID).Count(&historyCount).Error)
	assert.EqualValues(t, 2, historyCount)
}

func TestSettleGame_DoubleSettlementIsNoOp(t *testing.T) {
	s, db := testSettler(t)
	game, home, _ := seedGame(t, db, testNow.Add(-4*time.Hour))
	seedWager(t, db, game.ID, models.MarketMoneyline, models.SelectionHome, nil, 10, 2.0)

	require.NoError(t, s.SettleGame(context.Background(), game.ID, 24, 21))

	var ratingAfterFirst float64
	var bankrollAfterFirst models.Bankroll
	var teamRow models.Team
	require.NoError(t, db.First(&teamRow, home.ID).Error)
	ratingAfterFirst = teamRow.Rating
	require.NoError(t, db.First(&bankrollAfterFirst).Error)

	require.NoError(t, s.SettleGame(context.Background(), game.ID, 24, 21))

	require.NoError(t, db.First(&teamRow, home.ID).Error)
	assert.Equal(t, ratingAfterFirst, teamRow.Rating)
	assert.Equal(t, 6, teamRow.GamesPlayed)

	var bankrollAfterSecond models.Bankroll
	require.NoError(t, db.First(&bankrollAfterSecond).Error)
	assert.Equal(t, bankrollAfterFirst.Version, bankrollAfterSecond.Version)
	assert.True(t, bankrollAfterFirst.Balance.Equal(bankrollAfterSecond.Balance))
}

func TestSettleFromResults_MatchesAndSkips(t *testing.T) {
	s, db := testSettler(t)
	game, home, away := seedGame(t, db, testNow.Add(-4*time.Hour))

	client := new(results.MockClient)
	client.On("FetchResults", mock.Anything, "nfl", 2).Return([]results.GameResult{
		{
			Sport:     "nfl",
			HomeTeam:  home.Name,
			AwayTeam:  away.Name,
			HomeScore: 30,
			AwayScore: 20,
			StartedAt: game.ScheduledAt,
			Completed: true,
		},
		{
			Sport:     "nfl",
			HomeTeam:  "Nowhere FC",
			AwayTeam:  "Nobody United",
			HomeScore: 10,
			AwayScore: 7,
			StartedAt: game.ScheduledAt,
			Completed: true,
		},
	}, nil)

	settled, err := s.SettleFromResults(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)
	client.AssertExpectations(t)

	var settledGame models.Game
	require.NoError(t, db.First(&settledGame, game.ID).Error)
	assert.True(t, settledGame.Final())
	assert.Equal(t, 30, *settledGame.HomeScore)
}

func TestVoidPostponedGames(t *testing.T) {
	s, db := testSettler(t)
	game, _, _ := seedGame(t, db, testNow.Add(24*time.Hour))
	w := seedWager(t, db, game.ID, models.MarketMoneyline, models.SelectionHome, nil, 10, 2.0)

	require.NoError(t, db.Model(game).Update("status", models.GameStatusPostponed).Error)

	voided, err := s.VoidPostponedGames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, voided)

	var got models.PaperWager
	require.NoError(t, db.First(&got, w.ID).Error)
	assert.Equal(t, models.WagerStatusVoid, got.Status)
	assert.True(t, got.ProfitLoss.IsZero())

	// No money moved: the bankroll row is untouched.
	var bankroll models.Bankroll
	require.NoError(t, db.First(&bankroll).Error)
	assert.Equal(t, 1, bankroll.Version)
	assert.True(t, bankroll.Balance.Equal(decimal.NewFromInt(1000)))
}

func TestCaptureClosingLines(t *testing.T) {
	s, db := testSettler(t)
	game, _, _ := seedGame(t, db, testNow.Add(-time.Hour))

	sig := models.Signal{
		GameID:      game.ID,
		Market:      models.MarketMoneyline,
		Selection:   models.SelectionHome,
		Venue:       "alpha",
		DecimalOdds: 2.0,
		GeneratedAt: testNow.Add(-24 * time.Hour),
		ExpiresAt:   testNow.Add(-2 * time.Hour),
		Status:      models.SignalStatusActive,
	}
	require.NoError(t, db.Create(&sig).Error)

	// Two quotes: the later pre-start one is the closing price.
	quotes := []models.Quote{
		{
			GameID: game.ID, Market: models.MarketMoneyline, Selection: models.SelectionHome,
			Venue: "alpha", DecimalOdds: 2.05, ImpliedProbability: 1 / 2.05,
			ObservedAt: game.ScheduledAt.Add(-3 * time.Hour),
		},
		{
			GameID: game.ID, Market: models.MarketMoneyline, Selection: models.SelectionHome,
			Venue: "alpha", DecimalOdds: 2.10, ImpliedProbability: 1 / 2.10,
			ObservedAt: game.ScheduledAt.Add(-10 * time.Minute),
		},
	}
	require.NoError(t, db.Create(&quotes).Error)

	captured, err := s.CaptureClosingLines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, captured)

	var got models.Signal
	require.NoError(t, db.First(&got, sig.ID).Error)
	require.NotNil(t, got.ClosingDecimalOdds)
	assert.InDelta(t, 2.10, *got.ClosingDecimalOdds, 1e-9)
	require.NotNil(t, got.ClosingLineValuePct)
	assert.InDelta(t, 5.0, *got.ClosingLineValuePct, 1e-9)

	// Past its deadline, the signal is expired rather than left active.
	assert.Equal(t, models.SignalStatusExpired, got.Status)
}
