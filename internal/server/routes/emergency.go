package routes

import (
	"net/http"
	"strconv"

	"github.com/OFFIS-RIT/bloodnet/backend/internal/queue"
	"github.com/OFFIS-RIT/bloodnet/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/logger"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/orchestrator"

	"github.com/labstack/echo/v4"
)

// PostEmergencyHandler runs the emergency workflow. Notifications are
// queued and the outcome recorded when those backends are configured;
// failures there are logged and do not change the response.
func PostEmergencyHandler(c echo.Context) error {
	data := new(orchestrator.EmergencyRequest)
	if ok, err := bindAndValidate(c, data); !ok {
		return err
	}

	app := middleware.GetApp(c)
	ctx := c.Request().Context()

	res, err := app.Service.HandleEmergency(ctx, *data)
	if err != nil {
		return serviceError(c, err)
	}

	if app.Publisher != nil && len(res.Notifications) > 0 {
		if err := queue.PublishEmergency(app.Publisher, res); err != nil {
			logger.Warn("[Server] Publishing notifications failed", "emergency_id", res.EmergencyID, "err", err)
		}
	}
	if app.History != nil {
		if err := app.History.RecordOutcome(ctx, res); err != nil {
			logger.Warn("[Server] Recording outcome failed", "emergency_id", res.EmergencyID, "err", err)
		}
	}

	return c.JSON(http.StatusOK, res)
}

func GetEmergenciesHandler(c echo.Context) error {
	app := middleware.GetApp(c)
	if app.History == nil {
		return message(c, http.StatusServiceUnavailable, "Emergency history requires DATABASE_URL")
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return message(c, http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}

	outcomes, err := app.History.ListOutcomes(c.Request().Context(), limit)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, outcomes)
}
