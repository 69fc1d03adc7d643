package bootstrap

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/bloodnet/backend/internal/storage"
	"github.com/OFFIS-RIT/bloodnet/backend/internal/util"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/graph"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/loader"
	csvloader "github.com/OFFIS-RIT/bloodnet/backend/pkg/loader/csv"
	ioloader "github.com/OFFIS-RIT/bloodnet/backend/pkg/loader/io"
	pgxloader "github.com/OFFIS-RIT/bloodnet/backend/pkg/loader/pgx"
	s3loader "github.com/OFFIS-RIT/bloodnet/backend/pkg/loader/s3"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/logger"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	SeedIO       = "io"
	SeedS3       = "s3"
	SeedPostgres = "postgres"
)

// SeedConfig selects where the seed dataset comes from.
type SeedConfig struct {
	Source   string
	Dir      string
	Prefix   string
	NearbyKM float64
}

func SeedConfigFromEnv() SeedConfig {
	return SeedConfig{
		Source:   util.GetEnvString("SEED_SOURCE", SeedIO),
		Dir:      util.GetEnvString("SEED_DIR", "./data"),
		Prefix:   util.GetEnvString("SEED_PREFIX", "seed/"),
		NearbyKM: util.GetEnvNumeric("NEARBY_KM", graph.DefaultNearbyKM),
	}
}

// NewSource returns the dataset source for cfg. The pool is only needed for
// the postgres source.
func NewSource(ctx context.Context, cfg SeedConfig, pool *pgxpool.Pool) (loader.Source, error) {
	switch cfg.Source {
	case SeedIO, "":
		return csvloader.NewCSVSource(ioloader.NewIOFileLoader(cfg.Dir), loader.DefaultFileNames()), nil

	case SeedS3:
		client, err := storage.NewS3Client(ctx)
		if err != nil {
			return nil, err
		}
		keys, err := storage.ListFilesWithPrefix(ctx, client, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		logger.Debug("[Seed] Found seed objects", "prefix", cfg.Prefix, "count", len(keys))
		files := s3loader.NewS3FileLoaderWithClient(storage.Bucket(), cfg.Prefix, client)
		return csvloader.NewCSVSource(files, loader.DefaultFileNames()), nil

	case SeedPostgres:
		if pool == nil {
			return nil, fmt.Errorf("seed source %q needs DATABASE_URL", cfg.Source)
		}
		return pgxloader.NewPgxSource(pool), nil
	}
	return nil, fmt.Errorf("unknown seed source %q", cfg.Source)
}

// LoadGraph loads the dataset from src and builds the entity graph.
func LoadGraph(ctx context.Context, src loader.Source, nearbyKM float64) (*graph.Graph, error) {
	ds, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}
	g, err := graph.Build(ds, graph.BuildOptions{NearbyKM: nearbyKM})
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	metrics.UpdateGraphMetrics(g)

	stats := g.Stats()
	logger.Info("[Seed] Graph built", "nodes", stats.Nodes, "edges", stats.Edges)
	return g, nil
}
