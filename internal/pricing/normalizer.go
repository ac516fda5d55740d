// Package pricing turns raw quote observations into a single best price per
// selection: latest per venue, line-shopped, and devigged where possible.
package pricing

import (
	"fmt"
	"math"
	"sort"

	"sports-edge-engine/internal/models"
	"sports-edge-engine/internal/odds"

	"go.uber.org/zap"
)

// Normalizer prepares market prices for signal assembly.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a price normalizer.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// BestPrice is the line-shopped price for one (game, market, selection).
type BestPrice struct {
	Quote models.Quote

	// OddsImprovementPct measures the best decimal price against the mean
	// across venues, in percent. Zero when only one venue quoted.
	OddsImprovementPct float64

	// ImpliedProbability is devigged when an opposing quote from the same
	// venue and line exists; otherwise it is the raw implied probability.
	ImpliedProbability float64
	RawImplied         float64
	Devigged           bool
}

// Normalize picks the best current price among quotes for one selection.
// opposing holds the other side's quotes for the same game and market, used
// for vig removal. Returns nil when no usable quote survives filtering.
//
// Spread prices are never devigged: the two sides of a spread are quoted at
// different lines, so a same-line pairing rarely exists and a naive pairing
// would corrupt the implied probability. The raw price passes through and the
// edge threshold absorbs the vig.
func (n *Normalizer) Normalize(quotes, opposing []models.Quote) (*BestPrice, error) {
	latest := n.latestPerVenue(quotes)
	if len(latest) == 0 {
		return nil, nil
	}

	best := pickBest(latest)

	mean := 0.0
	for _, q := range latest {
		mean += q.DecimalOdds
	}
	mean /= float64(len(latest))

	improvement := 0.0
	if len(latest) > 1 && mean > 0 {
		improvement = (best.DecimalOdds - mean) / mean * 100
	}

	price := &BestPrice{
		Quote:              best,
		OddsImprovementPct: improvement,
		RawImplied:         best.ImpliedProbability,
		ImpliedProbability: best.ImpliedProbability,
	}

	if best.Market == models.MarketSpread {
		return price, nil
	}
	if pair, ok := n.opposingAt(opposing, best.Venue, best.LineValue); ok {
		fair, _ := odds.RemoveVigMultiplicative(best.ImpliedProbability, pair.ImpliedProbability)
		price.ImpliedProbability = fair
		price.Devigged = true
	}
	return price, nil
}

// latestPerVenue keeps each venue's most recent usable observation. Quotes
// arrive append-only and possibly out of order, so recency is decided by
// ObservedAt alone.
func (n *Normalizer) latestPerVenue(quotes []models.Quote) []models.Quote {
	byVenue := make(map[string]models.Quote)
	for _, q := range quotes {
		if err := validateQuote(q); err != nil {
			n.logger.Warn("Skipping malformed quote",
				zap.Uint("game_id", q.GameID),
				zap.String("market", string(q.Market)),
				zap.String("selection", q.Selection),
				zap.String("venue", q.Venue),
				zap.Error(err))
			continue
		}
		held, seen := byVenue[q.Venue]
		if !seen || q.ObservedAt.After(held.ObservedAt) {
			byVenue[q.Venue] = q
		}
	}

	latest := make([]models.Quote, 0, len(byVenue))
	for _, q := range byVenue {
		latest = append(latest, q)
	}
	return latest
}

// pickBest line-shops: highest decimal price, ties broken by the fresher
// observation, then by venue name for a deterministic result.
func pickBest(latest []models.Quote) models.Quote {
	sort.Slice(latest, func(i, j int) bool {
		a, b := latest[i], latest[j]
		if a.DecimalOdds != b.DecimalOdds {
			return a.DecimalOdds > b.DecimalOdds
		}
		if !a.ObservedAt.Equal(b.ObservedAt) {
			return a.ObservedAt.After(b.ObservedAt)
		}
		return a.Venue < b.Venue
	})
	return latest[0]
}

// opposingAt finds the venue's latest usable quote for the other side at the
// same line.
func (n *Normalizer) opposingAt(opposing []models.Quote, venue string, line *float64) (models.Quote, bool) {
	var match models.Quote
	found := false
	for _, q := range opposing {
		if q.Venue != venue || !sameLine(q.LineValue, line) {
			continue
		}
		if validateQuote(q) != nil {
			continue
		}
		if !found || q.ObservedAt.After(match.ObservedAt) {
			match = q
			found = true
		}
	}
	return match, found
}

func sameLine(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func validateQuote(q models.Quote) error {
	if math.IsNaN(q.DecimalOdds) || math.IsInf(q.DecimalOdds, 0) || q.DecimalOdds <= 1 {
		return fmt.Errorf("decimal odds %v not usable", q.DecimalOdds)
	}
	if !odds.ValidProbability(q.ImpliedProbability) {
		return fmt.Errorf("implied probability %v outside (0,1)", q.ImpliedProbability)
	}
	if (q.Market == models.MarketSpread || q.Market == models.MarketTotal) && q.LineValue == nil {
		return fmt.Errorf("%s quote missing line value", q.Market)
	}
	return nil
}
