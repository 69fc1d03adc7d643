package scorer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/ai"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/alloc"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/discovery"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize = 25
	defaultParallel  = 4
)

type unitScore struct {
	UnitID string  `json:"unit_id" jsonschema:"description=Id of the scored unit"`
	Score  float64 `json:"score" jsonschema:"minimum=0,maximum=1"`
}

type rankingResponse struct {
	Scores []unitScore `json:"scores"`
}

// AI asks a language model for a desirability score per candidate unit and
// combines it with expiry and distance through alloc.WeightedScore.
// Candidates are sent in batches scored concurrently; any failed batch fails
// the whole ranking.
type AI struct {
	Client    ai.Client
	Weights   alloc.Weights
	BatchSize int
	Parallel  int
	Options   []ai.GenerateOption
}

// NewAI returns an AI scorer with default weights and batching.
func NewAI(client ai.Client, opts ...ai.GenerateOption) *AI {
	return &AI{
		Client:    client,
		Weights:   alloc.DefaultWeights(),
		BatchSize: defaultBatchSize,
		Parallel:  defaultParallel,
		Options:   opts,
	}
}

func (s *AI) Name() string { return "ai" }

type candidateLine struct {
	src  discovery.Source
	unit discovery.UnitRef
}

func (s *AI) Rank(ctx context.Context, req alloc.Request) alloc.Result {
	if s.Client == nil {
		return alloc.Failed(fmt.Errorf("ai scorer has no client"))
	}

	var lines []candidateLine
	for _, src := range req.Sources {
		for _, u := range src.AvailableUnits {
			lines = append(lines, candidateLine{src: src, unit: u})
		}
	}
	if len(lines) == 0 {
		return alloc.Ranked(nil)
	}

	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	parallel := s.Parallel
	if parallel <= 0 {
		parallel = defaultParallel
	}

	var (
		mu     sync.Mutex
		scores = make(map[string]float64, len(lines))
	)

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(parallel)
	for start := 0; start < len(lines); start += batchSize {
		batch := lines[start:min(start+batchSize, len(lines))]
		eg.Go(func() error {
			res, err := s.scoreBatch(ectx, req, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, sc := range res.Scores {
				scores[sc.UnitID] = sc.Score
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return alloc.Failed(err)
	}

	missing := 0
	learned := func(_ discovery.Source, u discovery.UnitRef) float64 {
		if v, ok := scores[u.UnitID]; ok {
			return v
		}
		missing++
		return alloc.DefaultLearnedScore
	}
	transfers := alloc.Rank(req.HospitalID, req.Sources, s.Weights, learned, req.UnitsNeeded)
	if missing > 0 {
		logger.Debug("AI scorer left units unscored", "emergency", req.EmergencyID, "missing", missing)
	}
	return alloc.Ranked(transfers)
}

func (s *AI) scoreBatch(ctx context.Context, req alloc.Request, batch []candidateLine) (*rankingResponse, error) {
	var b strings.Builder
	for _, c := range batch {
		fmt.Fprintf(&b, "%s | %s | %s | %.3f | %s | %d\n",
			c.unit.UnitID, c.src.LocationID, c.src.Kind, c.src.DistanceKM, c.unit.BloodType, c.unit.ExpiryDays)
	}
	prompt := fmt.Sprintf(rankingPrompt, req.HospitalID, req.BloodType, req.UnitsNeeded, b.String())

	opts := append([]ai.GenerateOption{ai.WithSystemPrompts(rankingSystemPrompt)}, s.Options...)

	var res rankingResponse
	if err := s.Client.GenerateCompletionWithFormat(
		ctx,
		"unit_ranking",
		"Desirability score per candidate blood unit",
		prompt,
		&res,
		opts...,
	); err != nil {
		return nil, fmt.Errorf("score batch: %w", err)
	}
	return &res, nil
}
