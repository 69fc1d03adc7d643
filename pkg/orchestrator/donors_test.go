package orchestrator

import (
	"fmt"
	"testing"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallDonors(t *testing.T) {
	f := newFixture(t).
		bank("b1", 40.70, -74.00).
		bank("b2", 40.75, -74.00).
		hospital("h1", 40.72, -74.00).
		donor("d-universal", bloodtype.ONeg).
		donor("d-far", bloodtype.APos).
		donor("d-near", bloodtype.APos).
		donor("d-other", bloodtype.BPos).
		donor("d-unlinked", bloodtype.APos)

	require.NoError(t, f.g.AddEdge(graph.Edge{From: "b1", To: "d-universal", Kind: graph.Nearby, DistanceKM: 0.5}))
	require.NoError(t, f.g.AddEdge(graph.Edge{From: "b1", To: "d-far", Kind: graph.Nearby, DistanceKM: 2.9}))
	require.NoError(t, f.g.AddEdge(graph.Edge{From: "b2", To: "d-far", Kind: graph.Nearby, DistanceKM: 2.4}))
	require.NoError(t, f.g.AddEdge(graph.Edge{From: "d-near", To: "b2", Kind: graph.Nearby, DistanceKM: 0.8}))
	require.NoError(t, f.g.AddEdge(graph.Edge{From: "b1", To: "d-other", Kind: graph.Nearby, DistanceKM: 0.1}))

	donors, err := f.service(Options{}).CallDonors(bloodtype.APos, "")
	require.NoError(t, err)

	got := make([]string, len(donors))
	for i, d := range donors {
		got[i] = d.DonorID
	}
	assert.Equal(t, []string{"d-near", "d-far", "d-unlinked", "d-universal"}, got)

	assert.Equal(t, "b2", donors[0].NearestCenterID)
	require.NotNil(t, donors[0].DistanceKM)
	assert.Equal(t, 0.8, *donors[0].DistanceKM)
	assert.Equal(t, "b2", donors[1].NearestCenterID)
	assert.Equal(t, 2.4, *donors[1].DistanceKM)
	assert.Empty(t, donors[2].NearestCenterID)
	assert.Nil(t, donors[2].DistanceKM)
	assert.Equal(t, bloodtype.ONeg, donors[3].BloodType)
	assert.Contains(t, donors[0].Message, "high urgency")
}

func TestCallDonors_TopFifty(t *testing.T) {
	f := newFixture(t).bank("b1", 40.70, -74.00)
	for i := range 60 {
		id := fmt.Sprintf("d%02d", i)
		f.donor(id, bloodtype.ONeg)
		require.NoError(t, f.g.AddEdge(graph.Edge{From: "b1", To: id, Kind: graph.Nearby, DistanceKM: float64(60 - i)}))
	}

	donors, err := f.service(Options{}).CallDonors(bloodtype.ONeg, "critical")
	require.NoError(t, err)
	require.Len(t, donors, MaxDonorCalls)
	assert.Equal(t, "d59", donors[0].DonorID)
	assert.Equal(t, "d10", donors[49].DonorID)
	assert.Contains(t, donors[0].Message, "critical urgency")
}

func TestCallDonors_InvalidType(t *testing.T) {
	_, err := newFixture(t).service(Options{}).CallDonors("", "high")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
