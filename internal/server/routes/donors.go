package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/bloodnet/backend/internal/queue"
	"github.com/OFFIS-RIT/bloodnet/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/logger"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/orchestrator"

	"github.com/labstack/echo/v4"
)

func PostCallDonorsHandler(c echo.Context) error {
	type callDonorsBody struct {
		BloodType string `json:"blood_type" validate:"required"`
		Urgency   string `json:"urgency"`
	}

	data := new(callDonorsBody)
	if ok, err := bindAndValidate(c, data); !ok {
		return err
	}
	if data.Urgency == "" {
		data.Urgency = orchestrator.PriorityHigh
	}

	app := middleware.GetApp(c)
	bt := bloodtype.BloodType(data.BloodType)
	donors, err := app.Service.CallDonors(bt, data.Urgency)
	if err != nil {
		return serviceError(c, err)
	}

	if app.Publisher != nil && len(donors) > 0 {
		if err := queue.PublishDonorCalls(app.Publisher, bt, data.Urgency, donors); err != nil {
			logger.Warn("[Server] Publishing donor calls failed", "blood_type", bt, "err", err)
		}
	}
	return c.JSON(http.StatusOK, donors)
}
