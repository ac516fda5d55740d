package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	GameStatusScheduled = "scheduled"
	GameStatusFinal     = "final"
	GameStatusPostponed = "postponed"
)

// Game is a scheduled or finished matchup. Rows are created by the external
// ETL; settlement transitions status and fills scores exactly once.
type Game struct {
	gorm.Model
	Sport       string    `json:"sport" gorm:"index"`
	HomeTeamID  uint      `json:"home_team_id"`
	AwayTeamID  uint      `json:"away_team_id"`
	ScheduledAt time.Time `json:"scheduled_at" gorm:"index"`
	Status      string    `json:"status" gorm:"default:scheduled;index"`
	HomeScore   *int      `json:"home_score,omitempty"`
	AwayScore   *int      `json:"away_score,omitempty"`
}

// Final reports whether the game has been settled with scores.
func (g *Game) Final() bool {
	return g.Status == GameStatusFinal && g.HomeScore != nil && g.AwayScore != nil
}
