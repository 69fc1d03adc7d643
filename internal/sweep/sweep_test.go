package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/graph"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/orchestrator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type topicPublisher struct {
	topics []string
	err    error
}

func (p *topicPublisher) PublishFIFO(string, []byte) error { return errors.New("unexpected") }

func (p *topicPublisher) PublishTopic(topic string, _ []byte) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	return nil
}

type stubLock struct {
	busy bool
	opts leaselock.Options
	key  string
}

func (l *stubLock) TryRun(ctx context.Context, key string, opts leaselock.Options, fn func(context.Context) error) (bool, error) {
	l.key, l.opts = key, opts
	if l.busy {
		return false, nil
	}
	return true, fn(ctx)
}

func service(t *testing.T) *orchestrator.Service {
	t.Helper()
	g := graph.New()
	require.NoError(t, g.AddNode(&graph.Hospital{Base: graph.Base{NodeID: "h1", Position: graph.At(40.70, -74.00)}}))
	require.NoError(t, g.AddNode(&graph.BloodBank{Base: graph.Base{NodeID: "b1", Position: graph.At(40.71, -74.00)}}))
	require.NoError(t, g.AddEdge(graph.Edge{From: "b1", To: "h1", Kind: graph.Nearby, DistanceKM: 1.1}))

	svc := orchestrator.New(g, orchestrator.Options{})
	require.NoError(t, svc.AddUnit(orchestrator.UnitRequest{ID: "u1", BloodType: bloodtype.APos, ExpiryDays: 1, LocationID: "b1"}))
	require.NoError(t, svc.AddUnit(orchestrator.UnitRequest{ID: "u2", BloodType: bloodtype.APos, ExpiryDays: 9, LocationID: "h1"}))
	return svc
}

func TestRunOncePublishesAlerts(t *testing.T) {
	pub := &topicPublisher{}
	s := &Sweeper{Service: service(t), Publisher: pub, HoursAhead: 12}

	rep, skipped, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, skipped)
	require.Len(t, rep.Expiring, 1)
	assert.Equal(t, "u1", rep.Expiring[0].UnitID)
	require.Len(t, rep.Shortages, 1)
	assert.Equal(t, orchestrator.RiskHigh, rep.Shortages[0].RiskLevel)
	assert.Contains(t, rep.Shortages[0].RecommendedAction, "within 12h")
	assert.Equal(t, []string{"alerts.expiry", "alerts.shortage"}, pub.topics)
}

func TestRunOnceUnderLease(t *testing.T) {
	lock := &stubLock{}
	s := &Sweeper{Service: service(t), Lock: lock, Interval: 5 * time.Minute, Holder: "replica-a"}

	_, skipped, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.Equal(t, LeaseKey, lock.key)
	assert.Equal(t, 10*time.Minute, lock.opts.TTL)
	assert.Equal(t, "replica-a", lock.opts.Holder)

	lock.busy = true
	rep, skipped, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.Empty(t, rep.Expiring)
}

func TestRunOncePublishError(t *testing.T) {
	pub := &topicPublisher{err: errors.New("broker down")}
	s := &Sweeper{Service: service(t), Publisher: pub}

	rep, _, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, pub.err)
	assert.Len(t, rep.Expiring, 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		(&Sweeper{Service: service(t), Interval: time.Millisecond}).Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
