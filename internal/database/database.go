package database

import (
	"fmt"

	"sports-edge-engine/internal/config"
	"sports-edge-engine/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the database without migrating or seeding anything.
// Read-side consumers use this; the schema is owned by the batch passes.
func Open(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := SeedBankroll(db, cfg.Bankroll.Starting); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates tables for the current models. Existing rows are
// never dropped; quotes and decisions are append-only and must survive
// restarts.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Team{},
		&models.Game{},
		&models.Quote{},
		&models.Signal{},
		&models.PaperWager{},
		&models.PaperDecision{},
		&models.Bankroll{},
		&models.RatingHistory{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// SeedBankroll creates the single bankroll row if none exists yet.
func SeedBankroll(db *gorm.DB, starting float64) error {
	var count int64
	if err := db.Model(&models.Bankroll{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check bankroll: %w", err)
	}
	if count > 0 {
		return nil
	}

	balance := decimal.NewFromFloat(starting)
	bankroll := models.Bankroll{
		Balance:         balance,
		StartingBalance: balance,
		TotalStaked:     decimal.Zero,
		TotalProfitLoss: decimal.Zero,
		Version:         1,
	}
	if err := db.Create(&bankroll).Error; err != nil {
		return fmt.Errorf("failed to seed bankroll: %w", err)
	}
	return nil
}
