package middleware

import (
	"context"

	"github.com/OFFIS-RIT/bloodnet/backend/internal/history"
	"github.com/OFFIS-RIT/bloodnet/backend/internal/queue"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/orchestrator"

	"github.com/labstack/echo/v4"
)

// History is the part of the history repository the routes use.
type History interface {
	RecordOutcome(ctx context.Context, res orchestrator.EmergencyResult) error
	ListOutcomes(ctx context.Context, limit int) ([]history.Outcome, error)
}

// App holds the process-wide dependencies of the handlers. Publisher and
// History are nil when RabbitMQ or Postgres are not configured.
type App struct {
	Service   *orchestrator.Service
	Publisher queue.Publisher
	History   History
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app})
		}
	}
}

// GetApp returns the dependencies attached by AppContextMiddleware.
func GetApp(c echo.Context) *App {
	return c.(*AppContext).App
}
