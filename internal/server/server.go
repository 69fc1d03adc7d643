package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/bloodnet/backend/internal/bootstrap"
	"github.com/OFFIS-RIT/bloodnet/backend/internal/history"
	"github.com/OFFIS-RIT/bloodnet/backend/internal/queue"
	mid "github.com/OFFIS-RIT/bloodnet/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/bloodnet/backend/internal/sweep"
	"github.com/OFFIS-RIT/bloodnet/backend/internal/util"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/logger"

	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New returns an echo instance with middleware and routes bound to app.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	RegisterRoutes(e)
	return e
}

// Init loads the graph, connects the optional backends and serves until
// SIGINT or SIGTERM.
func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &mid.App{}

	var pool *pgxpool.Pool
	if dbURL := util.GetEnv("DATABASE_URL"); dbURL != "" {
		if err := history.Migrate(util.GetEnvString("MIGRATIONS_PATH", "file://migrations"), dbURL); err != nil {
			logger.Fatal("Failed to migrate database", "err", err)
		}
		conn, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "err", err)
		}
		defer conn.Close()
		pool = conn
		app.History = history.NewRepository(pool)
	}

	seedCfg := bootstrap.SeedConfigFromEnv()
	src, err := bootstrap.NewSource(ctx, seedCfg, pool)
	if err != nil {
		logger.Fatal("Failed to open seed source", "err", err)
	}
	g, err := bootstrap.LoadGraph(ctx, src, seedCfg.NearbyKM)
	if err != nil {
		logger.Fatal("Failed to load graph", "err", err)
	}
	app.Service, err = bootstrap.NewService(g)
	if err != nil {
		logger.Fatal("Failed to create orchestrator", "err", err)
	}
	logger.Info("Orchestrator ready", "scorer", app.Service.ScorerName())

	if util.GetEnv("RABBITMQ_HOST") != "" {
		conn, err := util.RetryWithContext(ctx, 5, time.Second, func(context.Context) (*amqp.Connection, error) {
			return queue.Init()
		})
		if err != nil {
			logger.Fatal("Failed to connect to rabbitmq", "err", err)
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, queue.Queues); err != nil {
			logger.Fatal("Failed to declare queues", "err", err)
		}
		app.Publisher = queue.NewChannelPublisher(ch)
	}

	if pool != nil {
		hostname, _ := os.Hostname()
		sweeper := &sweep.Sweeper{
			Service:    app.Service,
			Publisher:  app.Publisher,
			Lock:       leaselock.New(pool),
			Interval:   util.GetEnvDuration("SWEEP_INTERVAL", 15*time.Minute),
			HoursAhead: 24,
			Holder:     hostname,
		}
		go sweeper.Run(ctx)
	}

	e := New(app)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
