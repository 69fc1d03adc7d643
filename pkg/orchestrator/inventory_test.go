package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeInventory(t *testing.T) {
	f := newFixture(t).
		hospital("h1", 40.70, -74.00).
		bank("b1", 40.71, -74.00).
		bank("lonely", 45.00, -70.00).
		nearby("b1", "h1", 1.1)
	soon := f.stock("b1", bloodtype.APos, 1)
	f.stock("b1", bloodtype.APos, 5)
	f.stock("b1", bloodtype.APos, 0)
	f.stock("lonely", bloodtype.BNeg, 1)
	svc := f.service(Options{})

	actions := svc.OptimizeInventory()
	require.Len(t, actions, 1)
	assert.Equal(t, soon[0], actions[0].UnitID)
	assert.Equal(t, "b1", actions[0].From)
	assert.Equal(t, "h1", actions[0].To)
	assert.Equal(t, bloodtype.APos, actions[0].BloodType)
	assert.Contains(t, actions[0].Reason, "Expires in 1 days")
}

func TestOptimizeInventory_HorizonAndReservations(t *testing.T) {
	f := newFixture(t).hospital("h1", 40.70, -74.00).bank("b1", 40.71, -74.00).nearby("h1", "b1", 1)
	ids := f.stock("b1", bloodtype.OPos, 2, 2, 3)
	svc := f.service(Options{})

	assert.Len(t, svc.OptimizeInventory(), 2)

	_, err := svc.HandleEmergency(context.Background(), EmergencyRequest{
		HospitalID: "h1", RequiredBloodType: bloodtype.OPos, UnitsRequired: 1,
	})
	require.NoError(t, err)

	actions := svc.OptimizeInventory()
	require.Len(t, actions, 1)
	assert.Equal(t, ids[1], actions[0].UnitID)
}

func TestOptimizeInventory_UnitAtHospitalMovesToNeighbour(t *testing.T) {
	f := newFixture(t).hospital("h1", 40.70, -74.00).hospital("h2", 40.71, -74.00).nearby("h1", "h2", 1)
	ids := f.stock("h1", bloodtype.ABNeg, 2)

	actions := f.service(Options{}).OptimizeInventory()
	require.Len(t, actions, 1)
	assert.Equal(t, ids[0], actions[0].UnitID)
	assert.Equal(t, "h2", actions[0].To)
}

func TestPredictShortages(t *testing.T) {
	f := newFixture(t).hospital("h1", 40.70, -74.00)
	f.stock("h1", bloodtype.APos, repeat(7, 4)...)
	f.stock("h1", bloodtype.BPos, 7)
	f.stock("h1", bloodtype.OPos, repeat(7, 5)...)
	f.stock("h1", bloodtype.ABNeg, 0, -1)
	svc := f.service(Options{})

	warnings := svc.PredictShortages(24)
	require.Len(t, warnings, 2)

	byType := map[bloodtype.BloodType]ShortageWarning{}
	for _, w := range warnings {
		byType[w.BloodType] = w
	}

	assert.Equal(t, ShortageWarning{
		HospitalID:        "h1",
		BloodType:         bloodtype.APos,
		CurrentUnits:      4,
		RiskLevel:         RiskMedium,
		RecommendedAction: "Request 6 units of A+ within 24h",
	}, byType[bloodtype.APos])
	assert.Equal(t, RiskHigh, byType[bloodtype.BPos].RiskLevel)
	assert.Equal(t, 1, byType[bloodtype.BPos].CurrentUnits)
	assert.Contains(t, byType[bloodtype.BPos].RecommendedAction, "Request 9 units")

	_, flagged := byType[bloodtype.OPos]
	assert.False(t, flagged)
}

func TestPredictShortages_OrderAndDefaults(t *testing.T) {
	f := newFixture(t).hospital("h1", 40.70, -74.00).hospital("h2", 40.80, -74.00).bank("b1", 40.75, -74.00)
	f.stock("h2", bloodtype.ABPos, 1)
	f.stock("h1", bloodtype.ONeg, 3)
	f.stock("h1", bloodtype.APos, 1)
	f.stock("b1", bloodtype.APos, 1)
	svc := f.service(Options{})

	warnings := svc.PredictShortages(0)
	require.Len(t, warnings, 3)
	got := make([]string, len(warnings))
	for i, w := range warnings {
		got[i] = fmt.Sprintf("%s/%s", w.HospitalID, w.BloodType)
	}
	assert.Equal(t, []string{"h1/O-", "h1/A+", "h2/AB+"}, got)
	assert.Contains(t, warnings[0].RecommendedAction, "within 24h")
}

func TestRankCandidates(t *testing.T) {
	f, _, b2 := twoBanks(t)
	svc := f.service(Options{})

	ranked, err := svc.RankCandidates("h1", bloodtype.APos, 3)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, b2[0], ranked[0].UnitID)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
	assert.Empty(t, svc.Reservations())

	all, err := svc.RankCandidates("h1", bloodtype.APos, 0)
	require.NoError(t, err)
	assert.Len(t, all, 7)

	_, err = svc.RankCandidates("h1", "", 3)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestAddUnitAndLocations(t *testing.T) {
	svc := newFixture(t).service(Options{})
	lat, lon := 40.7, -74.0

	require.NoError(t, svc.AddBloodBank(LocationRequest{ID: "b9", Name: "Depot", Lat: &lat, Lon: &lon}))
	require.NoError(t, svc.AddUnit(UnitRequest{ID: "x1", BloodType: bloodtype.ONeg, ExpiryDays: 12, LocationID: "b9"}))

	loc, ok := svc.Graph().UnitLocation("x1")
	require.True(t, ok)
	assert.Equal(t, "b9", loc)

	assert.ErrorIs(t, svc.AddUnit(UnitRequest{ID: "x2", BloodType: bloodtype.ONeg, LocationID: "missing"}), graph.ErrNodeNotFound)
	assert.ErrorIs(t, svc.AddUnit(UnitRequest{ID: "x3", BloodType: "Q", LocationID: "b9"}), ErrInvalidRequest)
	assert.ErrorIs(t, svc.AddHospital(LocationRequest{ID: "h9"}), ErrInvalidRequest)

	bad := 200.0
	assert.ErrorIs(t, svc.AddHospital(LocationRequest{ID: "h9", Lat: &bad, Lon: &lon}), ErrInvalidRequest)
	assert.ErrorIs(t, svc.AddHospital(LocationRequest{ID: "b9", Lat: &lat, Lon: &lon}), graph.ErrKindMismatch)
}

func TestRemoveLocation(t *testing.T) {
	f := newFixture(t).
		hospital("h1", 40.70, -74.00).
		bank("b1", 40.71, -74.00).
		bank("b2", 40.75, -74.00).
		nearby("h1", "b1", 1.1)
	f.stock("b2", bloodtype.ONeg, 4)
	svc := f.service(Options{})

	assert.ErrorIs(t, svc.RemoveLocation("b2"), ErrInvalidRequest)
	assert.ErrorIs(t, svc.RemoveLocation("nowhere"), graph.ErrNodeNotFound)

	// With its only neighbour gone the hospital reaches b2 through the radius scan.
	require.NoError(t, svc.RemoveLocation("b1"))
	_, ok := svc.Graph().Node("b1")
	assert.False(t, ok)
	assert.Empty(t, svc.Graph().OutEdges("h1", graph.Nearby))

	res, err := svc.HandleEmergency(context.Background(), EmergencyRequest{
		HospitalID: "h1", RequiredBloodType: bloodtype.ONeg, UnitsRequired: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	require.Len(t, res.Transfers, 1)
	assert.Equal(t, "b2", res.Transfers[0].From)
}

func TestMapDataAndReservations(t *testing.T) {
	f, _, _ := twoBanks(t)
	f.donor("d1", bloodtype.ONeg)
	svc := f.service(Options{})

	_, err := svc.HandleEmergency(context.Background(), EmergencyRequest{
		HospitalID: "h1", RequiredBloodType: bloodtype.ONeg, UnitsRequired: 2,
	})
	require.NoError(t, err)

	data := svc.MapData()
	require.Len(t, data.Nodes, 4)
	assert.Equal(t, "h1", data.Nodes[0].ID)
	require.NotNil(t, data.Nodes[0].Lat)
	assert.Equal(t, 40.70, *data.Nodes[0].Lat)
	assert.Nil(t, data.Nodes[3].Lat)
	assert.Equal(t, "d1", data.Nodes[3].Label)
	assert.Len(t, data.Transfers, 2)

	svc.ClearReservations()
	assert.Empty(t, svc.Reservations())
	assert.False(t, svc.Release("unknown"))
}

func TestAdvanceDays(t *testing.T) {
	f := newFixture(t).hospital("h1", 40.70, -74.00).bank("b1", 40.71, -74.00).nearby("h1", "b1", 1)
	f.stock("b1", bloodtype.APos, 4)
	svc := f.service(Options{})

	assert.Empty(t, svc.OptimizeInventory())
	svc.AdvanceDays(2)
	assert.Len(t, svc.OptimizeInventory(), 1)
	svc.AdvanceDays(2)
	assert.Empty(t, svc.OptimizeInventory())
}
