package bootstrap

import (
	"fmt"
	"time"

	"github.com/OFFIS-RIT/bloodnet/backend/internal/util"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/ai"
	oai "github.com/OFFIS-RIT/bloodnet/backend/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/bloodnet/backend/pkg/ai/openai"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/alloc"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/graph"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/orchestrator"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/scorer"
)

const (
	ScorerNone     = "none"
	ScorerWeighted = "weighted"
	ScorerAI       = "ai"
)

// NewAIClient selects the AI adapter from AI_ADAPTER.
func NewAIClient() (ai.Client, error) {
	model := util.GetEnv("AI_CHAT_MODEL")
	switch adapter := util.GetEnvString("AI_ADAPTER", "openai"); adapter {
	case "ollama":
		return oai.NewClient(oai.NewClientParams{
			Model:                 model,
			BaseURL:               util.GetEnv("AI_CHAT_URL"),
			ApiKey:                util.GetEnv("AI_CHAT_KEY"),
			MaxConcurrentRequests: int64(util.GetEnvInt("AI_PARALLEL_REQ", 15)),
		})
	case "openai":
		return gai.NewClient(gai.NewClientParams{
			Model:   model,
			ChatURL: util.GetEnv("AI_CHAT_URL"),
			ChatKey: util.GetEnv("AI_CHAT_KEY"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown AI adapter %q", adapter)
	}
}

// NewScorer builds the learned scorer named by kind. "none" and the empty
// string yield nil, which keeps allocation on the greedy strategy.
func NewScorer(kind string) (alloc.Scorer, error) {
	switch kind {
	case ScorerNone, "":
		return nil, nil
	case ScorerWeighted:
		return scorer.NewWeighted(), nil
	case ScorerAI:
		client, err := NewAIClient()
		if err != nil {
			return nil, err
		}
		s := scorer.NewAI(client)
		s.Parallel = min(s.Parallel, util.GetEnvInt("AI_PARALLEL_REQ", 15))
		return s, nil
	}
	return nil, fmt.Errorf("unknown scorer %q", kind)
}

// NewService wires an orchestrator around g from the environment.
func NewService(g *graph.Graph) (*orchestrator.Service, error) {
	sc, err := NewScorer(util.GetEnvString("SCORER", ScorerNone))
	if err != nil {
		return nil, err
	}
	return orchestrator.New(g, orchestrator.Options{
		FallbackRadiusKM: util.GetEnvNumeric("FALLBACK_RADIUS_KM", 20),
		Scorer:           sc,
		ScorerTimeout:    time.Duration(util.GetEnvInt("SCORER_TIMEOUT_MS", 2000)) * time.Millisecond,
	}), nil
}
