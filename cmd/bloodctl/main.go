package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/OFFIS-RIT/bloodnet/backend/internal/bootstrap"
	"github.com/OFFIS-RIT/bloodnet/backend/internal/util"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/logger"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/logger/console"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/orchestrator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
)

func main() {
	util.LoadEnv()

	app := &cli.App{
		Name:  "bloodctl",
		Usage: "Run blood network operations against a seed dataset",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "seed-source",
				Value:   bootstrap.SeedIO,
				EnvVars: []string{"SEED_SOURCE"},
				Usage:   "seed source: io, s3 or postgres",
			},
			&cli.StringFlag{
				Name:    "seed-dir",
				Value:   "./data",
				EnvVars: []string{"SEED_DIR"},
				Usage:   "directory holding the seed CSV files",
			},
			&cli.BoolFlag{
				Name:    "debug",
				EnvVars: []string{"DEBUG"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
				Debug: c.Bool("debug"),
			}))
			return nil
		},
		Commands: []*cli.Command{
			emergencyCmd,
			optimizeCmd,
			shortagesCmd,
			donorsCmd,
			simulateCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var emergencyCmd = &cli.Command{
	Name:    "emergency",
	Usage:   "Handle one emergency request",
	Aliases: []string{"e"},
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "hospital", Required: true, Usage: "requesting hospital id"},
		&cli.StringFlag{Name: "type", Required: true, Usage: "required blood type, e.g. O-"},
		&cli.IntFlag{Name: "units", Value: 1, Usage: "units required"},
	},
	Action: func(c *cli.Context) error {
		svc, err := loadService(c)
		if err != nil {
			return err
		}
		res, err := svc.HandleEmergency(c.Context, orchestrator.EmergencyRequest{
			HospitalID:        c.String("hospital"),
			RequiredBloodType: bloodtype.BloodType(c.String("type")),
			UnitsRequired:     c.Int("units"),
		})
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, res)
	},
}

var optimizeCmd = &cli.Command{
	Name:  "optimize",
	Usage: "List units to move before they expire",
	Action: func(c *cli.Context) error {
		svc, err := loadService(c)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, svc.OptimizeInventory())
	},
}

var shortagesCmd = &cli.Command{
	Name:  "shortages",
	Usage: "Predict stock shortages per hospital",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "hours", Value: 24, Usage: "planning horizon in hours"},
	},
	Action: func(c *cli.Context) error {
		svc, err := loadService(c)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, svc.PredictShortages(c.Int("hours")))
	},
}

var donorsCmd = &cli.Command{
	Name:  "donors",
	Usage: "List donors to call for a blood type",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "type", Required: true, Usage: "needed blood type"},
		&cli.StringFlag{Name: "urgency", Value: orchestrator.PriorityHigh, Usage: "urgency included in the message"},
	},
	Action: func(c *cli.Context) error {
		svc, err := loadService(c)
		if err != nil {
			return err
		}
		donors, err := svc.CallDonors(bloodtype.BloodType(c.String("type")), c.String("urgency"))
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, donors)
	},
}

func loadService(c *cli.Context) (*orchestrator.Service, error) {
	cfg := bootstrap.SeedConfigFromEnv()
	cfg.Source = c.String("seed-source")
	cfg.Dir = c.String("seed-dir")

	var pool *pgxpool.Pool
	if cfg.Source == bootstrap.SeedPostgres {
		p, err := pgxpool.New(c.Context, util.GetEnv("DATABASE_URL"))
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		// The pool lives until the process exits.
		pool = p
	}

	src, err := bootstrap.NewSource(c.Context, cfg, pool)
	if err != nil {
		return nil, err
	}
	g, err := bootstrap.LoadGraph(c.Context, src, cfg.NearbyKM)
	if err != nil {
		return nil, err
	}
	return bootstrap.NewService(g)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

