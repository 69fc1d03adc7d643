package graph

import (
	"fmt"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/loader"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/logger"
)

// DefaultNearbyKM is the proximity threshold for NEARBY edges.
const DefaultNearbyKM = 3.0

// BuildOptions configures Build.
type BuildOptions struct {
	NearbyKM float64
}

// Build creates the entity graph from a seed dataset: one node per record,
// LOCATED_AT/HAS_BLOOD_UNIT per unit, NEARBY between hospitals and banks (both
// ways) and from banks to donors within NearbyKM, AT_HOSPITAL per emergency
// and CAN_DONATE_TO from donors to the seeded emergencies. Explicit edge rows
// are applied before the derived ones; rows of unknown kind or with unknown
// endpoints are skipped.
func Build(ds *loader.Dataset, opts BuildOptions) (*Graph, error) {
	if opts.NearbyKM <= 0 {
		opts.NearbyKM = DefaultNearbyKM
	}

	g := New()

	for _, h := range ds.Hospitals {
		if err := g.AddNode(&Hospital{Base: facilityBase(h), Area: h.Area}); err != nil {
			return nil, fmt.Errorf("hospital %s: %w", h.ID, err)
		}
	}
	for _, b := range ds.BloodBanks {
		if err := g.AddNode(&BloodBank{Base: facilityBase(b), Area: b.Area}); err != nil {
			return nil, fmt.Errorf("bloodbank %s: %w", b.ID, err)
		}
	}
	for _, d := range ds.Donors {
		n := &Donor{
			Base:      Base{NodeID: d.ID, NodeLabel: "Donor " + d.ID, Position: coords(d.Lat, d.Lon)},
			BloodType: bloodtype.BloodType(d.BloodType),
		}
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("donor %s: %w", d.ID, err)
		}
	}
	for _, u := range ds.Units {
		n := &BloodUnit{
			Base:                Base{NodeID: u.ID, NodeLabel: fmt.Sprintf("Unit %s (%s)", u.ID, u.BloodType)},
			BloodType:           bloodtype.BloodType(u.BloodType),
			ExpiryDaysRemaining: u.ExpiryDaysRemaining,
		}
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("unit %s: %w", u.ID, err)
		}
	}
	for _, e := range ds.Emergencies {
		n := &Emergency{
			Base:              Base{NodeID: e.ID, NodeLabel: "Emergency " + e.ID},
			HospitalID:        e.HospitalID,
			RequiredBloodType: bloodtype.BloodType(e.RequiredBloodType),
			UnitsRequired:     e.UnitsRequired,
		}
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("emergency %s: %w", e.ID, err)
		}
	}

	applyExplicitEdges(g, ds.Edges)

	for _, e := range ds.Emergencies {
		if _, ok := Lookup[*Hospital](g, e.HospitalID); !ok {
			continue
		}
		if err := g.AddEdge(Edge{From: e.ID, To: e.HospitalID, Kind: AtHospital}); err != nil {
			return nil, err
		}
	}

	for _, u := range ds.Units {
		if u.LocationID == "" {
			continue
		}
		if _, ok := g.Node(u.LocationID); !ok {
			if err := addBareLocation(g, u.LocationID, u.LocationType); err != nil {
				logger.Warn("[Graph] Skipping unit with unusable location", "unit_id", u.ID, "location_id", u.LocationID, "err", err)
				continue
			}
		}
		if err := g.AddEdge(Edge{From: u.ID, To: u.LocationID, Kind: LocatedAt}); err != nil {
			logger.Warn("[Graph] Skipping unit location", "unit_id", u.ID, "location_id", u.LocationID, "err", err)
		}
	}

	hospitals := g.Nodes(KindHospital)
	banks := g.Nodes(KindBloodBank)
	donors := g.Nodes(KindDonor)

	for _, h := range hospitals {
		for _, b := range banks {
			d, ok := Distance(h, b)
			if !ok || d > opts.NearbyKM {
				continue
			}
			d = roundKM(d)
			if err := g.AddEdge(Edge{From: h.ID(), To: b.ID(), Kind: Nearby, DistanceKM: d}); err != nil {
				return nil, err
			}
			if err := g.AddEdge(Edge{From: b.ID(), To: h.ID(), Kind: Nearby, DistanceKM: d}); err != nil {
				return nil, err
			}
		}
	}

	for _, dn := range donors {
		for _, b := range banks {
			d, ok := Distance(dn, b)
			if !ok || d > opts.NearbyKM {
				continue
			}
			if err := g.AddEdge(Edge{From: b.ID(), To: dn.ID(), Kind: Nearby, DistanceKM: roundKM(d)}); err != nil {
				return nil, err
			}
		}
	}

	for _, dn := range donors {
		donor := dn.(*Donor)
		for _, e := range ds.Emergencies {
			if !bloodtype.CanDonate(donor.BloodType, bloodtype.BloodType(e.RequiredBloodType)) {
				continue
			}
			if err := g.AddEdge(Edge{From: donor.ID(), To: e.ID, Kind: CanDonateTo}); err != nil {
				return nil, err
			}
		}
	}

	stats := g.Stats()
	logger.Info(
		"[Graph] Built entity graph",
		"hospitals", stats.Nodes[KindHospital],
		"bloodbanks", stats.Nodes[KindBloodBank],
		"donors", stats.Nodes[KindDonor],
		"units", stats.Nodes[KindBloodUnit],
		"nearby_edges", stats.Edges[Nearby],
	)

	return g, nil
}

func applyExplicitEdges(g *Graph, rows []loader.EdgeRecord) {
	for _, r := range rows {
		kind, ok := ParseEdgeKind(r.EdgeType)
		if !ok {
			logger.Debug("[Graph] Ignoring edge of unknown kind", "source", r.Source, "target", r.Target, "edge_type", r.EdgeType)
			continue
		}

		e := Edge{From: r.Source, To: r.Target, Kind: kind}
		if kind == Nearby {
			if r.DistanceKM != nil {
				e.DistanceKM = *r.DistanceKM
			} else {
				from, fok := g.Node(r.Source)
				to, tok := g.Node(r.Target)
				if !fok || !tok {
					logger.Debug("[Graph] Ignoring edge with unknown endpoint", "source", r.Source, "target", r.Target)
					continue
				}
				d, ok := Distance(from, to)
				if !ok {
					logger.Debug("[Graph] Ignoring proximity edge without distance", "source", r.Source, "target", r.Target)
					continue
				}
				e.DistanceKM = roundKM(d)
			}
		}

		if err := g.AddEdge(e); err != nil {
			logger.Debug("[Graph] Ignoring explicit edge", "source", r.Source, "target", r.Target, "err", err)
		}
	}
}

func addBareLocation(g *Graph, id, locationType string) error {
	base := Base{NodeID: id}
	switch Kind(locationType) {
	case KindHospital:
		return g.AddNode(&Hospital{Base: base})
	case KindBloodBank:
		return g.AddNode(&BloodBank{Base: base})
	}
	return fmt.Errorf("unknown location type %q", locationType)
}

func facilityBase(f loader.Facility) Base {
	label := f.Name
	if label == "" {
		label = f.ID
	}
	return Base{NodeID: f.ID, NodeLabel: label, Position: coords(f.Lat, f.Lon)}
}

func coords(lat, lon *float64) *Coordinates {
	if lat == nil || lon == nil {
		return nil
	}
	return At(*lat, *lon)
}
