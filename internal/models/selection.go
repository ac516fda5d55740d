package models

// Canonical selection tags. Moneyline and spread markets carry a side,
// totals carry a direction. Prop selections are free-form vendor strings.
const (
	SelectionHome  = "home"
	SelectionAway  = "away"
	SelectionOver  = "over"
	SelectionUnder = "under"
)

// OpposingSelection returns the other side of a two-way market, or "" when
// the selection has no well-known complement.
func OpposingSelection(selection string) string {
	switch selection {
	case SelectionHome:
		return SelectionAway
	case SelectionAway:
		return SelectionHome
	case SelectionOver:
		return SelectionUnder
	case SelectionUnder:
		return SelectionOver
	}
	return ""
}
