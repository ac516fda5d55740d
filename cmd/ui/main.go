package main

import (
	"fmt"
	"net/http"
	"os"

	"sports-edge-engine/internal/config"
	"sports-edge-engine/internal/database"
	"sports-edge-engine/internal/logger"

	"go.uber.org/zap"
)

// Read-only JSON API for the dashboard collaborator. All business logic
// lives in the batch passes; this server only serves rows and aggregates.
func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Read-only: connect without migrating or seeding; the batch passes own
	// the schema.
	db, err := database.Open(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	mux := http.NewServeMux()

	apiHandler := NewAPIHandler(log, db)

	mux.HandleFunc("/api/signals", apiHandler.SignalsHandler)
	mux.HandleFunc("/api/wagers", apiHandler.WagersHandler)
	mux.HandleFunc("/api/decisions", apiHandler.DecisionsHandler)
	mux.HandleFunc("/api/bankroll", apiHandler.BankrollHandler)
	mux.HandleFunc("/api/ratings/history", apiHandler.RatingHistoryHandler)
	mux.HandleFunc("/api/statistics", apiHandler.StatisticsHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting web server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}
}
