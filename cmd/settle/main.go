package main

import (
	"context"
	"fmt"
	"os"

	"sports-edge-engine/internal/config"
	"sports-edge-engine/internal/database"
	"sports-edge-engine/internal/logger"
	"sports-edge-engine/internal/ratings"
	"sports-edge-engine/internal/results"
	"sports-edge-engine/internal/settlement"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// One-shot settlement pass: fetch finals, settle games, feed ratings.
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

	// Every log line of one settlement run shares a run ID so overlapping
	// scheduled runs can be told apart.
	log = log.With(zap.String("run_id", uuid.NewString()))

	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PassBudget())
	defer cancel()

	engine := ratings.NewEngine(cfg.Ratings)
	store := ratings.NewStore(engine, log)
	client := results.NewClient(&cfg.Results, log)
	settler := settlement.NewSettler(db, &cfg, store, log)

	settled, err := settler.SettleFromResults(ctx, client)
	if err != nil {
		log.Error("Settlement pass failed", zap.Error(err), zap.Int("settled_before_failure", settled))
		os.Exit(1)
	}

	voided, err := settler.VoidPostponedGames(ctx)
	if err != nil {
		log.Error("Voiding postponed games failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Settlement pass finished",
		zap.Int("games_settled", settled),
		zap.Int("wagers_voided", voided))
}
