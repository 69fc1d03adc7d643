package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/graph"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/orchestrator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulate(t *testing.T) {
	g := graph.New()
	require.NoError(t, g.AddNode(&graph.Hospital{Base: graph.Base{NodeID: "h1", Position: graph.At(40.70, -74.00)}}))
	require.NoError(t, g.AddNode(&graph.BloodBank{Base: graph.Base{NodeID: "b1", Position: graph.At(40.71, -74.00)}}))
	require.NoError(t, g.AddEdge(graph.Edge{From: "h1", To: "b1", Kind: graph.Nearby, DistanceKM: 1.1}))
	require.NoError(t, g.AddEdge(graph.Edge{From: "b1", To: "h1", Kind: graph.Nearby, DistanceKM: 1.1}))
	require.NoError(t, g.AddNode(&graph.Emergency{
		Base: graph.Base{NodeID: "e1"}, HospitalID: "h1", RequiredBloodType: bloodtype.APos, UnitsRequired: 2,
	}))

	svc := orchestrator.New(g, orchestrator.Options{})
	for _, u := range []orchestrator.UnitRequest{
		{ID: "u1", BloodType: bloodtype.APos, ExpiryDays: 1, LocationID: "b1"},
		{ID: "u2", BloodType: bloodtype.OPos, ExpiryDays: 2, LocationID: "b1"},
		{ID: "u3", BloodType: bloodtype.APos, ExpiryDays: 3, LocationID: "b1"},
	} {
		require.NoError(t, svc.AddUnit(u))
	}

	reports := simulate(context.Background(), svc, 4, 1)
	require.Len(t, reports, 4)

	// Units age by a day per round and drop out once expired.
	assert.Equal(t, RoundReport{Round: 1, Success: 1, UnitsSecured: 2}, reports[0])
	assert.Equal(t, RoundReport{Round: 2, Success: 1, UnitsSecured: 2}, reports[1])
	assert.Equal(t, RoundReport{Round: 3, Partial: 1, UnitsSecured: 1}, reports[2])
	assert.Equal(t, RoundReport{Round: 4, Failed: 1}, reports[3])
	assert.Empty(t, svc.Reservations())

	var buf bytes.Buffer
	printReports(&buf, reports)
	assert.Contains(t, buf.String(), "round")
	assert.Equal(t, 5, bytes.Count(buf.Bytes(), []byte("\n")))
}
