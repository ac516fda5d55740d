package main

import (
	"context"
	"fmt"
	"os"

	"sports-edge-engine/internal/agent"
	"sports-edge-engine/internal/config"
	"sports-edge-engine/internal/database"
	"sports-edge-engine/internal/logger"

	"go.uber.org/zap"
)

// One-shot paper-betting decision pass.
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

	placed, err := agent.NewAgent(db, &cfg, log).Run(ctx)
	if err != nil {
		log.Error("Decision pass failed", zap.Error(err), zap.Int("placed_before_failure", placed))
		os.Exit(1)
	}
}
