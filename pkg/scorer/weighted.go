package scorer

import (
	"context"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/alloc"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/discovery"
)

// Weighted ranks candidates with alloc.WeightedScore and a constant
// learned term. It never fails and needs no model.
type Weighted struct {
	Weights alloc.Weights
	Learned float64
}

// NewWeighted returns a Weighted scorer with the default weights.
func NewWeighted() *Weighted {
	return &Weighted{
		Weights: alloc.DefaultWeights(),
		Learned: alloc.DefaultLearnedScore,
	}
}

func (w *Weighted) Name() string { return "weighted" }

func (w *Weighted) Rank(ctx context.Context, req alloc.Request) alloc.Result {
	if err := ctx.Err(); err != nil {
		return alloc.Failed(err)
	}
	learned := w.Learned
	transfers := alloc.Rank(
		req.HospitalID,
		req.Sources,
		w.Weights,
		func(discovery.Source, discovery.UnitRef) float64 { return learned },
		req.UnitsNeeded,
	)
	return alloc.Ranked(transfers)
}
