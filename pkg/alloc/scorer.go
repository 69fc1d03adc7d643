package alloc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/discovery"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/graph"
)

// DefaultScorerTimeout bounds a single learned scorer call.
const DefaultScorerTimeout = 2 * time.Second

var ErrNoUsableRanking = errors.New("scorer returned no usable transfers")

// Request is the input of a learned scorer.
type Request struct {
	Graph       *graph.Graph
	EmergencyID string
	HospitalID  string
	BloodType   bloodtype.BloodType
	UnitsNeeded int
	Sources     []discovery.Source
}

// Result is either a ranked transfer list or a failure.
type Result struct {
	Transfers []Transfer
	Err       error
}

// Ranked wraps a successful ranking.
func Ranked(transfers []Transfer) Result {
	return Result{Transfers: transfers}
}

// Failed wraps a scorer failure.
func Failed(err error) Result {
	return Result{Err: err}
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Scorer ranks candidate transfers for an emergency. It owns its full ranking
// policy and may fail; failures never abort an allocation.
type Scorer interface {
	Name() string
	Rank(ctx context.Context, req Request) Result
}

// Strategy names the allocator that produced a plan.
type Strategy string

const (
	StrategyLearned Strategy = "learned"
	StrategyGreedy  Strategy = "greedy"
)

// Plan is the outcome of Allocate. Fallback holds the scorer failure that
// caused a greedy fallback, if any.
type Plan struct {
	Transfers []Transfer
	Strategy  Strategy
	Fallback  error
}

// Allocator picks transfers with an optional learned scorer and falls back
// to Greedy when the scorer is absent, fails or times out.
type Allocator struct {
	Scorer  Scorer
	Timeout time.Duration
}

// Allocate returns at most req.UnitsNeeded transfers. The returned plan never
// carries an error for the caller to handle; Fallback is informational.
func (a *Allocator) Allocate(ctx context.Context, req Request) Plan {
	if a == nil || a.Scorer == nil {
		return Plan{
			Transfers: Greedy(req.HospitalID, req.Sources, req.UnitsNeeded),
			Strategy:  StrategyGreedy,
		}
	}

	res := a.rank(ctx, req)
	if res.OK() {
		transfers := sanitize(res.Transfers, req)
		if len(transfers) > 0 || len(req.Sources) == 0 {
			return Plan{Transfers: transfers, Strategy: StrategyLearned}
		}
		res = Failed(ErrNoUsableRanking)
	}

	return Plan{
		Transfers: Greedy(req.HospitalID, req.Sources, req.UnitsNeeded),
		Strategy:  StrategyGreedy,
		Fallback:  fmt.Errorf("%s: %w", a.Scorer.Name(), res.Err),
	}
}

func (a *Allocator) rank(ctx context.Context, req Request) (res Result) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultScorerTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Failed(fmt.Errorf("scorer panic: %v", r))
			}
		}()
		done <- a.Scorer.Rank(ctx, req)
	}()

	select {
	case res = <-done:
		return res
	case <-ctx.Done():
		return Failed(ctx.Err())
	}
}

type candidate struct {
	src  discovery.Source
	unit discovery.UnitRef
}

// sanitize keeps only transfers of candidate units, drops duplicates, fills
// in the destination and cuts the list to the units needed.
func sanitize(transfers []Transfer, req Request) []Transfer {
	candidates := make(map[string]candidate)
	for _, src := range req.Sources {
		for _, u := range src.AvailableUnits {
			candidates[u.UnitID] = candidate{src: src, unit: u}
		}
	}

	seen := make(map[string]struct{}, len(transfers))
	out := make([]Transfer, 0, len(transfers))
	for _, t := range transfers {
		if len(out) >= req.UnitsNeeded {
			break
		}
		c, ok := candidates[t.UnitID]
		if !ok {
			continue
		}
		if _, dup := seen[t.UnitID]; dup {
			continue
		}
		seen[t.UnitID] = struct{}{}
		t.From = c.src.LocationID
		t.To = req.HospitalID
		t.BloodType = c.unit.BloodType
		t.DistanceKM = c.src.DistanceKM
		t.ExpiryDays = c.unit.ExpiryDays
		out = append(out, t)
	}
	return out
}
