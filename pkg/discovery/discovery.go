package discovery

import (
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/graph"
)

// DefaultFallbackRadiusKM bounds the geodesic scan used when a hospital has
// no proximity edges.
const DefaultFallbackRadiusKM = 20.0

// UnitRef is a compatible, unreserved unit held by a Source.
type UnitRef struct {
	UnitID     string              `json:"unit_id"`
	BloodType  bloodtype.BloodType `json:"blood_type"`
	ExpiryDays int                 `json:"expiry_days"`
}

// Source is a location able to supply units to the requesting hospital.
type Source struct {
	LocationID     string     `json:"source_id"`
	Kind           graph.Kind `json:"kind"`
	DistanceKM     float64    `json:"distance_km"`
	AvailableUnits []UnitRef  `json:"available_units"`
}

// Path reports which discovery strategy produced a result.
type Path string

const (
	PathNone     Path = "none"
	PathNearby   Path = "nearby"
	PathFallback Path = "fallback"
)

// ReservationChecker reports whether a unit is already committed.
type ReservationChecker interface {
	IsReserved(unitID string) bool
}

// Finder locates candidate sources in the entity graph.
type Finder struct {
	Graph            *graph.Graph
	Reservations     ReservationChecker
	FallbackRadiusKM float64
}

// FindCompatibleSources returns locations holding compatible, eligible and
// unreserved units for hospitalID. The hospital's NEARBY neighbours are used
// when it has any; only a hospital without hospital or blood bank neighbours
// falls back to scanning every location within the fallback radius. Sources
// without available units are omitted and the result is not sorted.
func (f *Finder) FindCompatibleSources(hospitalID string, bt bloodtype.BloodType, unitsNeeded int) ([]Source, Path) {
	if unitsNeeded <= 0 {
		return nil, PathNone
	}
	hospital, ok := graph.Lookup[*graph.Hospital](f.Graph, hospitalID)
	if !ok {
		return nil, PathNone
	}

	neighbours := 0
	var sources []Source
	for _, e := range f.Graph.OutEdges(hospitalID, graph.Nearby) {
		n, ok := f.Graph.Node(e.To)
		if !ok || !n.Kind().IsLocation() || n.ID() == hospitalID {
			continue
		}
		neighbours++
		if src, ok := f.source(n, e.DistanceKM, bt); ok {
			sources = append(sources, src)
		}
	}
	if neighbours > 0 {
		return sources, PathNearby
	}

	radius := f.FallbackRadiusKM
	if radius <= 0 {
		radius = DefaultFallbackRadiusKM
	}
	for _, n := range f.Graph.Nodes("") {
		if !n.Kind().IsLocation() || n.ID() == hospitalID {
			continue
		}
		d, ok := graph.Distance(hospital, n)
		if !ok || d > radius {
			continue
		}
		if src, ok := f.source(n, d, bt); ok {
			sources = append(sources, src)
		}
	}
	return sources, PathFallback
}

func (f *Finder) source(n graph.Node, distanceKM float64, bt bloodtype.BloodType) (Source, bool) {
	units := f.AvailableUnits(n.ID(), bt)
	if len(units) == 0 {
		return Source{}, false
	}
	return Source{
		LocationID:     n.ID(),
		Kind:           n.Kind(),
		DistanceKM:     distanceKM,
		AvailableUnits: units,
	}, true
}

// AvailableUnits lists units at locationID that can be given to a recipient
// of type bt, have not expired and are not reserved, in inventory order.
func (f *Finder) AvailableUnits(locationID string, bt bloodtype.BloodType) []UnitRef {
	var out []UnitRef
	for _, u := range f.Graph.UnitsAt(locationID) {
		if !u.Eligible() || !bloodtype.CanDonate(u.BloodType, bt) {
			continue
		}
		if f.Reservations != nil && f.Reservations.IsReserved(u.ID()) {
			continue
		}
		out = append(out, UnitRef{
			UnitID:     u.ID(),
			BloodType:  u.BloodType,
			ExpiryDays: u.ExpiryDaysRemaining,
		})
	}
	return out
}
