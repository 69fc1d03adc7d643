package server

import (
	"net/http"

	"github.com/OFFIS-RIT/bloodnet/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiRoutes := e.Group("/api")

	apiRoutes.GET("/map_data", routes.GetMapDataHandler)

	// Emergency routes
	apiRoutes.POST("/emergency", routes.PostEmergencyHandler)
	apiRoutes.GET("/emergencies", routes.GetEmergenciesHandler)

	// Inventory routes
	apiRoutes.GET("/optimize_inventory", routes.GetOptimizeInventoryHandler)
	apiRoutes.GET("/predict_shortages", routes.GetPredictShortagesHandler)
	apiRoutes.GET("/candidates", routes.GetCandidatesHandler)
	apiRoutes.POST("/call_donors", routes.PostCallDonorsHandler)

	// Reservation routes
	apiRoutes.GET("/reservations", routes.GetReservationsHandler)
	apiRoutes.DELETE("/reservations", routes.DeleteReservationsHandler)
	apiRoutes.DELETE("/reservations/:unit_id", routes.DeleteReservationHandler)

	// Network routes
	apiRoutes.POST("/hospitals", routes.PostHospitalHandler)
	apiRoutes.POST("/bloodbanks", routes.PostBloodBankHandler)
	apiRoutes.POST("/units", routes.PostUnitHandler)
	apiRoutes.DELETE("/locations/:id", routes.DeleteLocationHandler)
}
