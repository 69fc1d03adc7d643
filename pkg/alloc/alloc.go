package alloc

import (
	"math"
	"sort"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/discovery"
)

// Transfer moves one unit from a source location to the requesting hospital.
type Transfer struct {
	From       string              `json:"from"`
	To         string              `json:"to"`
	UnitID     string              `json:"unit_id"`
	BloodType  bloodtype.BloodType `json:"blood_type"`
	DistanceKM float64             `json:"distance_km"`
	ExpiryDays int                 `json:"expiry_days"`
	Score      float64             `json:"score"`
}

// Greedy selects up to unitsNeeded transfers: closest source first and,
// within a source, soonest expiry first. Ties keep their input order. The
// score of each transfer is 1/(distance+1) and does not affect selection.
func Greedy(hospitalID string, sources []discovery.Source, unitsNeeded int) []Transfer {
	if unitsNeeded <= 0 {
		return nil
	}

	ordered := make([]discovery.Source, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DistanceKM < ordered[j].DistanceKM
	})

	transfers := make([]Transfer, 0, unitsNeeded)
	for _, src := range ordered {
		units := make([]discovery.UnitRef, len(src.AvailableUnits))
		copy(units, src.AvailableUnits)
		sort.SliceStable(units, func(i, j int) bool {
			return units[i].ExpiryDays < units[j].ExpiryDays
		})

		for _, u := range units {
			if len(transfers) >= unitsNeeded {
				return transfers
			}
			transfers = append(transfers, Transfer{
				From:       src.LocationID,
				To:         hospitalID,
				UnitID:     u.UnitID,
				BloodType:  u.BloodType,
				DistanceKM: src.DistanceKM,
				ExpiryDays: u.ExpiryDays,
				Score:      1.0 / (src.DistanceKM + 1),
			})
		}
	}
	return transfers
}

// Weights balances the terms of WeightedScore.
type Weights struct {
	Expiry   float64 `json:"expiry"`
	Distance float64 `json:"distance"`
	Learned  float64 `json:"learned"`
}

// DefaultWeights favours soon-to-expire units, then proximity and the
// learned desirability equally.
func DefaultWeights() Weights {
	return Weights{Expiry: 0.4, Distance: 0.3, Learned: 0.3}
}

// DefaultLearnedScore stands in for the learned term when no model score is
// available.
const DefaultLearnedScore = 0.8

// DistancePenalty decays with distance: 1 at 0 km, about 0.37 at 10 km.
func DistancePenalty(distanceKM float64) float64 {
	return math.Exp(-distanceKM / 10.0)
}

// ExpiryUrgency is higher for units closer to expiry.
func ExpiryUrgency(expiryDays int) float64 {
	return 1.0 / (float64(expiryDays) + 1)
}

// WeightedScore combines expiry urgency, distance penalty and a learned
// score in [0,1].
func WeightedScore(w Weights, expiryDays int, distanceKM, learned float64) float64 {
	return w.Expiry*ExpiryUrgency(expiryDays) +
		w.Distance*DistancePenalty(distanceKM) +
		w.Learned*learned
}

// LearnedFunc returns a desirability in [0,1] for a unit at a source.
type LearnedFunc func(src discovery.Source, unit discovery.UnitRef) float64

// Rank scores every candidate unit with WeightedScore and returns them best
// first, cut to limit when limit > 0. A nil learned func uses
// DefaultLearnedScore.
func Rank(hospitalID string, sources []discovery.Source, w Weights, learned LearnedFunc, limit int) []Transfer {
	var ranked []Transfer
	for _, src := range sources {
		for _, u := range src.AvailableUnits {
			l := DefaultLearnedScore
			if learned != nil {
				l = clamp01(learned(src, u))
			}
			ranked = append(ranked, Transfer{
				From:       src.LocationID,
				To:         hospitalID,
				UnitID:     u.UnitID,
				BloodType:  u.BloodType,
				DistanceKM: src.DistanceKM,
				ExpiryDays: u.ExpiryDays,
				Score:      WeightedScore(w, u.ExpiryDays, src.DistanceKM, l),
			})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
