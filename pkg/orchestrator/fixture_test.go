package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/alloc"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/graph"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	t     *testing.T
	g     *graph.Graph
	units int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{t: t, g: graph.New()}
}

func (f *fixture) hospital(id string, lat, lon float64) *fixture {
	f.t.Helper()
	require.NoError(f.t, f.g.AddNode(&graph.Hospital{Base: graph.Base{NodeID: id, Position: graph.At(lat, lon)}}))
	return f
}

func (f *fixture) bank(id string, lat, lon float64) *fixture {
	f.t.Helper()
	require.NoError(f.t, f.g.AddNode(&graph.BloodBank{Base: graph.Base{NodeID: id, Position: graph.At(lat, lon)}}))
	return f
}

func (f *fixture) donor(id string, bt bloodtype.BloodType) *fixture {
	f.t.Helper()
	require.NoError(f.t, f.g.AddNode(&graph.Donor{Base: graph.Base{NodeID: id}, BloodType: bt}))
	return f
}

// nearby links two nodes in both directions.
func (f *fixture) nearby(a, b string, km float64) *fixture {
	f.t.Helper()
	require.NoError(f.t, f.g.AddEdge(graph.Edge{From: a, To: b, Kind: graph.Nearby, DistanceKM: km}))
	require.NoError(f.t, f.g.AddEdge(graph.Edge{From: b, To: a, Kind: graph.Nearby, DistanceKM: km}))
	return f
}

// stock places one unit per expiry value at loc and returns the unit ids.
func (f *fixture) stock(loc string, bt bloodtype.BloodType, expiries ...int) []string {
	f.t.Helper()
	ids := make([]string, 0, len(expiries))
	for _, exp := range expiries {
		f.units++
		id := fmt.Sprintf("%s-u%d", loc, f.units)
		require.NoError(f.t, f.g.AddNode(&graph.BloodUnit{
			Base:                graph.Base{NodeID: id},
			BloodType:           bt,
			ExpiryDaysRemaining: exp,
		}))
		require.NoError(f.t, f.g.MoveUnit(id, loc))
		ids = append(ids, id)
	}
	return ids
}

func (f *fixture) service(opts Options) *Service {
	return New(f.g, opts)
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func unitIDs(ts []alloc.Transfer) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.UnitID
	}
	return out
}

type failingScorer struct{ calls int }

func (s *failingScorer) Name() string { return "failing" }

func (s *failingScorer) Rank(ctx context.Context, req alloc.Request) alloc.Result {
	s.calls++
	return alloc.Failed(fmt.Errorf("model unavailable"))
}

type panickingScorer struct{}

func (panickingScorer) Name() string { return "panicking" }

func (panickingScorer) Rank(ctx context.Context, req alloc.Request) alloc.Result {
	panic("boom")
}

// reverseScorer prefers the candidates greedy would pick last.
type reverseScorer struct{}

func (reverseScorer) Name() string { return "reverse" }

func (reverseScorer) Rank(ctx context.Context, req alloc.Request) alloc.Result {
	all := alloc.Greedy(req.HospitalID, req.Sources, 1<<20)
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return alloc.Ranked(all)
}
