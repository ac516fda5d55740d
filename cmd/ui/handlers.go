package main

import (
	"encoding/json"
	"net/http"

	"sports-edge-engine/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log *zap.Logger
	db  *gorm.DB
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, db *gorm.DB) *APIHandler {
	return &APIHandler{log: log, db: db}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// SignalsHandler returns signals, newest first. ?status=active filters.
func (h *APIHandler) SignalsHandler(w http.ResponseWriter, r *http.Request) {
	query := h.db.Order("generated_at desc").Limit(500)
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var signals []models.Signal
	if err := query.Find(&signals).Error; err != nil {
		h.log.Error("Failed to get signals from database", zap.Error(err))
		http.Error(w, "Failed to get signals", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, signals)
}

// WagersHandler returns paper wagers, newest first.
func (h *APIHandler) WagersHandler(w http.ResponseWriter, r *http.Request) {
	query := h.db.Order("placed_at desc").Limit(500)
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var wagers []models.PaperWager
	if err := query.Find(&wagers).Error; err != nil {
		h.log.Error("Failed to get wagers from database", zap.Error(err))
		http.Error(w, "Failed to get wagers", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, wagers)
}

// DecisionsHandler returns the agent's audit trail, newest first.
func (h *APIHandler) DecisionsHandler(w http.ResponseWriter, r *http.Request) {
	var decisions []models.PaperDecision
	if err := h.db.Order("created_at desc").Limit(500).Find(&decisions).Error; err != nil {
		h.log.Error("Failed to get decisions from database", zap.Error(err))
		http.Error(w, "Failed to get decisions", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, decisions)
}

// BankrollHandler returns the single bankroll row with derived figures.
func (h *APIHandler) BankrollHandler(w http.ResponseWriter, r *http.Request) {
	var bankroll models.Bankroll
	if err := h.db.First(&bankroll).Error; err != nil {
		h.log.Error("Failed to get bankroll from database", zap.Error(err))
		http.Error(w, "Failed to get bankroll", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]any{
		"bankroll": bankroll,
		"roi":      bankroll.ROI(),
		"win_rate": bankroll.WinRate(),
	})
}

// RatingHistoryHandler returns rating movements, newest first. ?team_id=N
// narrows to one team.
func (h *APIHandler) RatingHistoryHandler(w http.ResponseWriter, r *http.Request) {
	query := h.db.Order("created_at desc").Limit(1000)
	if teamID := r.URL.Query().Get("team_id"); teamID != "" {
		query = query.Where("team_id = ?", teamID)
	}

	var history []models.RatingHistory
	if err := query.Find(&history).Error; err != nil {
		h.log.Error("Failed to get rating history from database", zap.Error(err))
		http.Error(w, "Failed to get rating history", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, history)
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	TotalWagers   int64    `json:"total_wagers"`
	PendingWagers int64    `json:"pending_wagers"`
	Wins          int      `json:"wins"`
	Losses        int      `json:"losses"`
	Pushes        int      `json:"pushes"`
	WinRate       float64  `json:"win_rate"`
	ROI           float64  `json:"roi"`
	AvgCLVPct     *float64 `json:"avg_clv_pct,omitempty"`
}

// StatisticsHandler aggregates paper-betting performance.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	var bankroll models.Bankroll
	if err := h.db.First(&bankroll).Error; err != nil {
		h.log.Error("Failed to get bankroll for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	resp := StatisticsResponse{
		Wins:    bankroll.Wins,
		Losses:  bankroll.Losses,
		Pushes:  bankroll.Pushes,
		WinRate: bankroll.WinRate(),
		ROI:     bankroll.ROI(),
	}

	if err := h.db.Model(&models.PaperWager{}).Count(&resp.TotalWagers).Error; err != nil {
		h.log.Error("Failed to count wagers", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}
	if err := h.db.Model(&models.PaperWager{}).
		Where("status = ?", models.WagerStatusPending).
		Count(&resp.PendingWagers).Error; err != nil {
		h.log.Error("Failed to count pending wagers", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	var avgCLV *float64
	err := h.db.Model(&models.Signal{}).
		Where("closing_line_value_pct IS NOT NULL").
		Select("AVG(closing_line_value_pct)").
		Scan(&avgCLV).Error
	if err != nil {
		h.log.Error("Failed to average closing line value", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}
	resp.AvgCLVPct = avgCLV

	h.writeJSON(w, resp)
}
