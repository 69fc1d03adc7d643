package scorer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/ai"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/alloc"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/discovery"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (f *fakeClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return f.reply(prompt)
}

func (f *fakeClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	raw, err := f.reply(prompt)
	if err != nil {
		return err
	}
	return ai.UnmarshalFlexible(raw, out)
}

func (f *fakeClient) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error { return nil }
func (f *fakeClient) ResetMetrics()                                                 {}
func (f *fakeClient) GetMetrics() ai.ModelMetrics                                    { return ai.ModelMetrics{} }

func request() alloc.Request {
	return alloc.Request{
		EmergencyID: "e1",
		HospitalID:  "h1",
		BloodType:   bloodtype.APos,
		UnitsNeeded: 2,
		Sources: []discovery.Source{
			{LocationID: "b1", DistanceKM: 1, AvailableUnits: []discovery.UnitRef{
				{UnitID: "u1", BloodType: bloodtype.APos, ExpiryDays: 10},
				{UnitID: "u2", BloodType: bloodtype.ONeg, ExpiryDays: 10},
			}},
			{LocationID: "b2", DistanceKM: 5, AvailableUnits: []discovery.UnitRef{
				{UnitID: "u3", BloodType: bloodtype.APos, ExpiryDays: 1},
			}},
		},
	}
}

func ids(ts []alloc.Transfer) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.UnitID
	}
	return out
}

func TestWeighted_RanksByScore(t *testing.T) {
	res := NewWeighted().Rank(context.Background(), request())
	require.True(t, res.OK())
	require.Len(t, res.Transfers, 2)

	// u3 expires in a day, which outweighs the extra distance
	assert.Equal(t, "u3", res.Transfers[0].UnitID)
	assert.Equal(t, "u1", res.Transfers[1].UnitID)
	assert.GreaterOrEqual(t, res.Transfers[0].Score, res.Transfers[1].Score)
}

func TestWeighted_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, NewWeighted().Rank(ctx, request()).OK())
}

func TestAI_UsesModelScores(t *testing.T) {
	client := &fakeClient{reply: func(string) (string, error) {
		return `{"scores":[{"unit_id":"u1","score":0.5},{"unit_id":"u2","score":1},{"unit_id":"u3","score":0}]}`, nil
	}}
	s := NewAI(client)

	res := s.Rank(context.Background(), request())
	require.True(t, res.OK())
	assert.Equal(t, []string{"u2", "u1"}, ids(res.Transfers))

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "u3 | b2")
	assert.Contains(t, client.prompts[0], "Units needed: 2")
}

func TestAI_MissingScoresUseDefault(t *testing.T) {
	client := &fakeClient{reply: func(string) (string, error) {
		return `{"scores":[{"unit_id":"u1","score":0}]}`, nil
	}}
	res := NewAI(client).Rank(context.Background(), request())
	require.True(t, res.OK())

	want := alloc.WeightedScore(alloc.DefaultWeights(), 1, 5, alloc.DefaultLearnedScore)
	assert.Equal(t, "u3", res.Transfers[0].UnitID)
	assert.InDelta(t, want, res.Transfers[0].Score, 1e-9)
}

func TestAI_BatchesCandidates(t *testing.T) {
	client := &fakeClient{reply: func(p string) (string, error) {
		var parts []string
		for _, id := range []string{"u1", "u2", "u3"} {
			if strings.Contains(p, id+" |") {
				parts = append(parts, `{"unit_id":"`+id+`","score":0.5}`)
			}
		}
		return `{"scores":[` + strings.Join(parts, ",") + `]}`, nil
	}}
	s := NewAI(client)
	s.BatchSize = 1

	res := s.Rank(context.Background(), request())
	require.True(t, res.OK())
	assert.Len(t, client.prompts, 3)
	assert.Len(t, res.Transfers, 2)
}

func TestAI_FailurePropagatesAsResult(t *testing.T) {
	boom := errors.New("model offline")
	client := &fakeClient{reply: func(string) (string, error) { return "", boom }}

	res := NewAI(client).Rank(context.Background(), request())
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, boom)
}

func TestAI_NoCandidates(t *testing.T) {
	client := &fakeClient{reply: func(string) (string, error) { return "", errors.New("unexpected call") }}
	res := NewAI(client).Rank(context.Background(), alloc.Request{HospitalID: "h1", UnitsNeeded: 1})
	assert.True(t, res.OK())
	assert.Empty(t, res.Transfers)
}

func TestAI_FallsBackInsideAllocator(t *testing.T) {
	client := &fakeClient{reply: func(string) (string, error) { return "hello", nil }}
	a := &alloc.Allocator{Scorer: NewAI(client)}

	req := request()
	plan := a.Allocate(context.Background(), req)
	assert.Equal(t, alloc.StrategyGreedy, plan.Strategy)
	assert.Error(t, plan.Fallback)
	assert.Equal(t, alloc.Greedy(req.HospitalID, req.Sources, req.UnitsNeeded), plan.Transfers)
}
