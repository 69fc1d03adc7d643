package discovery

import (
	"testing"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/graph"
)

type reservedSet map[string]bool

func (r reservedSet) IsReserved(unitID string) bool { return r[unitID] }

// 0.009 degrees of latitude is roughly 1 km.
func fixture(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	nodes := []graph.Node{
		&graph.Hospital{Base: graph.Base{NodeID: "h1", Position: graph.At(40.700, -74)}},
		&graph.Hospital{Base: graph.Base{NodeID: "h2", Position: graph.At(40.800, -74)}},
		&graph.Hospital{Base: graph.Base{NodeID: "h3"}},
		&graph.BloodBank{Base: graph.Base{NodeID: "b1", Position: graph.At(40.709, -74)}},
		&graph.BloodBank{Base: graph.Base{NodeID: "b2", Position: graph.At(40.845, -74)}},
		&graph.BloodBank{Base: graph.Base{NodeID: "b3", Position: graph.At(41.100, -74)}},
		&graph.BloodBank{Base: graph.Base{NodeID: "b4"}},
		&graph.BloodUnit{Base: graph.Base{NodeID: "u1"}, BloodType: bloodtype.ONeg, ExpiryDaysRemaining: 5},
		&graph.BloodUnit{Base: graph.Base{NodeID: "u2"}, BloodType: bloodtype.APos, ExpiryDaysRemaining: 5},
		&graph.BloodUnit{Base: graph.Base{NodeID: "u3"}, BloodType: bloodtype.ANeg, ExpiryDaysRemaining: 0},
		&graph.BloodUnit{Base: graph.Base{NodeID: "u4"}, BloodType: bloodtype.ANeg, ExpiryDaysRemaining: 7},
		&graph.BloodUnit{Base: graph.Base{NodeID: "u5"}, BloodType: bloodtype.ONeg, ExpiryDaysRemaining: 7},
		&graph.BloodUnit{Base: graph.Base{NodeID: "u6"}, BloodType: bloodtype.ONeg, ExpiryDaysRemaining: 7},
		&graph.BloodUnit{Base: graph.Base{NodeID: "u7"}, BloodType: bloodtype.ONeg, ExpiryDaysRemaining: 7},
	}
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode: %v", err)
		}
	}
	placements := map[string]string{"u1": "b1", "u2": "b1", "u3": "b1", "u4": "b1", "u5": "b2", "u6": "b3", "u7": "b4"}
	for u, loc := range placements {
		if err := g.MoveUnit(u, loc); err != nil {
			t.Fatalf("MoveUnit: %v", err)
		}
	}
	for _, e := range []graph.Edge{
		{From: "h1", To: "b1", Kind: graph.Nearby, DistanceKM: 1.001},
		{From: "b1", To: "h1", Kind: graph.Nearby, DistanceKM: 1.001},
	} {
		if err := g.AddEdge(e); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	return g
}

func TestFastPath(t *testing.T) {
	g := fixture(t)
	f := &Finder{Graph: g, Reservations: reservedSet{}}

	sources, path := f.FindCompatibleSources("h1", bloodtype.APos, 3)

	if path != PathNearby {
		t.Fatalf("got path %q, want nearby", path)
	}
	if len(sources) != 1 || sources[0].LocationID != "b1" {
		t.Fatalf("got %+v, want only b1", sources)
	}
	if sources[0].DistanceKM != 1.001 {
		t.Fatalf("got distance %f, want edge distance 1.001", sources[0].DistanceKM)
	}
	var ids []string
	for _, u := range sources[0].AvailableUnits {
		ids = append(ids, u.UnitID)
	}
	if len(ids) != 3 {
		t.Fatalf("got units %v, want u1,u2,u4 (u3 is expired)", ids)
	}
}

func TestFastPathExcludesReserved(t *testing.T) {
	g := fixture(t)
	f := &Finder{Graph: g, Reservations: reservedSet{"u1": true, "u2": true, "u4": true}}

	sources, path := f.FindCompatibleSources("h1", bloodtype.APos, 1)

	if path != PathNearby {
		t.Fatalf("got path %q, want nearby even without stock", path)
	}
	if len(sources) != 0 {
		t.Fatalf("got %+v, want no sources", sources)
	}
}

func TestFallbackPath(t *testing.T) {
	g := fixture(t)
	f := &Finder{Graph: g, Reservations: reservedSet{}}

	sources, path := f.FindCompatibleSources("h2", bloodtype.ONeg, 2)

	if path != PathFallback {
		t.Fatalf("got path %q, want fallback", path)
	}
	got := map[string]float64{}
	for _, s := range sources {
		got[s.LocationID] = s.DistanceKM
	}
	// b1 is ~10 km away, b2 ~5 km, b3 ~33 km is out of range and b4 has no coordinates.
	if len(got) != 2 {
		t.Fatalf("got %v, want b1 and b2", got)
	}
	if _, ok := got["b3"]; ok {
		t.Fatal("b3 is outside the fallback radius")
	}
	if d := got["b2"]; d < 4.9 || d > 5.1 {
		t.Fatalf("got b2 distance %f, want about 5", d)
	}
}

func TestFallbackRadiusOption(t *testing.T) {
	g := fixture(t)
	f := &Finder{Graph: g, FallbackRadiusKM: 6}

	sources, _ := f.FindCompatibleSources("h2", bloodtype.ONeg, 2)
	if len(sources) != 1 || sources[0].LocationID != "b2" {
		t.Fatalf("got %+v, want only b2", sources)
	}
}

func TestNotFoundAndMissingCoordinates(t *testing.T) {
	g := fixture(t)
	f := &Finder{Graph: g}

	tests := []struct {
		name     string
		hospital string
		needed   int
	}{
		{name: "unknown hospital", hospital: "nope", needed: 1},
		{name: "not a hospital", hospital: "b1", needed: 1},
		{name: "hospital without coordinates", hospital: "h3", needed: 1},
		{name: "nothing needed", hospital: "h1", needed: 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			sources, _ := f.FindCompatibleSources(tc.hospital, bloodtype.ONeg, tc.needed)
			if len(sources) != 0 {
				t.Fatalf("got %+v, want none", sources)
			}
		})
	}
}
