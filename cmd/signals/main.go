package main

import (
	"context"
	"fmt"
	"os"

	"sports-edge-engine/internal/config"
	"sports-edge-engine/internal/database"
	"sports-edge-engine/internal/logger"
	"sports-edge-engine/internal/notify"
	"sports-edge-engine/internal/pricing"
	"sports-edge-engine/internal/prob"
	"sports-edge-engine/internal/ratings"
	"sports-edge-engine/internal/signal"

	"go.uber.org/zap"
)

// One-shot signal generation pass, run by the external scheduler.
func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
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
	model := prob.NewModel(engine, &cfg, log)
	assembler := signal.NewAssembler(db, &cfg, model, pricing.NewNormalizer(log), log)

	signals, err := assembler.Run(ctx)
	if err != nil {
		log.Error("Signal pass failed", zap.Error(err))
		os.Exit(1)
	}

	notify.NewNotifier(&cfg.Notify, log).NotifySignals(ctx, signals)
}
