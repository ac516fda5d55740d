package models

import "gorm.io/gorm"

// minSampleGames is the number of finished games below which a team's
// ratings are treated as low-confidence downstream.
const minSampleGames = 3

// Team holds the strength rating state for one team. Rows are created by the
// external ETL and mutated only during settlement.
type Team struct {
	gorm.Model
	Name            string  `json:"name" gorm:"uniqueIndex:idx_team_name_sport"`
	Sport           string  `json:"sport" gorm:"uniqueIndex:idx_team_name_sport"`
	Rating          float64 `json:"rating" gorm:"default:1500"`
	OffensiveRating float64 `json:"offensive_rating"`
	DefensiveRating float64 `json:"defensive_rating"`
	GamesPlayed     int     `json:"games_played"`
}

// LowSample reports whether the team has too few games for its ratings to be
// trusted at full confidence.
func (t *Team) LowSample() bool {
	return t.GamesPlayed < minSampleGames
}
