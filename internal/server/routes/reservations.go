package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/bloodnet/backend/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

func GetReservationsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.GetApp(c).Service.Reservations())
}

func DeleteReservationsHandler(c echo.Context) error {
	middleware.GetApp(c).Service.ClearReservations()
	return message(c, http.StatusOK, "All reservations released")
}

func DeleteReservationHandler(c echo.Context) error {
	unitID := c.Param("unit_id")
	if !middleware.GetApp(c).Service.Release(unitID) {
		return message(c, http.StatusNotFound, "No active reservation for unit "+unitID)
	}
	return message(c, http.StatusOK, "Reservation released")
}
