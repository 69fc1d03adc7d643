package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/bloodnet/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/orchestrator"

	"github.com/labstack/echo/v4"
)

func GetMapDataHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.GetApp(c).Service.MapData())
}

func PostHospitalHandler(c echo.Context) error {
	data := new(orchestrator.LocationRequest)
	if ok, err := bindAndValidate(c, data); !ok {
		return err
	}
	if err := middleware.GetApp(c).Service.AddHospital(*data); err != nil {
		return serviceError(c, err)
	}
	return message(c, http.StatusCreated, "Hospital "+data.ID+" added")
}

func PostBloodBankHandler(c echo.Context) error {
	data := new(orchestrator.LocationRequest)
	if ok, err := bindAndValidate(c, data); !ok {
		return err
	}
	if err := middleware.GetApp(c).Service.AddBloodBank(*data); err != nil {
		return serviceError(c, err)
	}
	return message(c, http.StatusCreated, "Blood bank "+data.ID+" added")
}

func PostUnitHandler(c echo.Context) error {
	data := new(orchestrator.UnitRequest)
	if ok, err := bindAndValidate(c, data); !ok {
		return err
	}
	if err := middleware.GetApp(c).Service.AddUnit(*data); err != nil {
		return serviceError(c, err)
	}
	return message(c, http.StatusCreated, "Unit "+data.ID+" stocked at "+data.LocationID)
}

func DeleteLocationHandler(c echo.Context) error {
	id := c.Param("id")
	if err := middleware.GetApp(c).Service.RemoveLocation(id); err != nil {
		return serviceError(c, err)
	}
	return message(c, http.StatusOK, "Location "+id+" removed")
}
