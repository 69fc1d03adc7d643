package routes

import (
	"net/http"
	"strconv"

	"github.com/OFFIS-RIT/bloodnet/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/bloodtype"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/orchestrator"

	"github.com/labstack/echo/v4"
)

func GetOptimizeInventoryHandler(c echo.Context) error {
	actions := middleware.GetApp(c).Service.OptimizeInventory()
	return c.JSON(http.StatusOK, actions)
}

func GetPredictShortagesHandler(c echo.Context) error {
	hours := 24
	if raw := c.QueryParam("hours_ahead"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return message(c, http.StatusBadRequest, "hours_ahead must be a positive integer")
		}
		hours = n
	}
	warnings := middleware.GetApp(c).Service.PredictShortages(hours)
	return c.JSON(http.StatusOK, warnings)
}

func GetCandidatesHandler(c echo.Context) error {
	type candidatesParams struct {
		HospitalID string `query:"hospital_id" validate:"required"`
		BloodType  string `query:"blood_type" validate:"required"`
		Limit      int    `query:"limit" validate:"gte=0"`
	}

	params := new(candidatesParams)
	if ok, err := bindAndValidate(c, params); !ok {
		return err
	}
	if params.Limit == 0 {
		params.Limit = orchestrator.DefaultCandidateLimit
	}

	ranked, err := middleware.GetApp(c).Service.RankCandidates(
		params.HospitalID,
		bloodtype.BloodType(params.BloodType),
		params.Limit,
	)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, ranked)
}
