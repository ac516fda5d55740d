package main

import (
	"context"
	"fmt"
	"os"

	"sports-edge-engine/internal/config"
	"sports-edge-engine/internal/database"
	"sports-edge-engine/internal/logger"
	"sports-edge-engine/internal/ratings"
	"sports-edge-engine/internal/settlement"

	"go.uber.org/zap"
)

// One-shot closing-line capture pass, run shortly before game starts.
func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PassBudget())
	defer cancel()

	engine := ratings.NewEngine(cfg.Ratings)
	store := ratings.NewStore(engine, log)
	settler := settlement.NewSettler(db, &cfg, store, log)

	captured, err := settler.CaptureClosingLines(ctx)
	if err != nil {
		log.Error("Closing pass failed", zap.Error(err), zap.Int("captured_before_failure", captured))
		os.Exit(1)
	}
}
