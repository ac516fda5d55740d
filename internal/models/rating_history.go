package models

import "gorm.io/gorm"

// RatingHistory records one rating transition per (game, team). The unique
// key doubles as the settlement idempotency guard: a game whose history rows
// already exist must not have its rating adjustment applied again.
type RatingHistory struct {
	gorm.Model
	GameID       uint    `json:"game_id" gorm:"uniqueIndex:idx_rating_once"`
	TeamID       uint    `json:"team_id" gorm:"uniqueIndex:idx_rating_once"`
	RatingBefore float64 `json:"rating_before"`
	RatingAfter  float64 `json:"rating_after"`
}
