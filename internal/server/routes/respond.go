package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/bloodnet/backend/pkg/graph"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/logger"
	"github.com/OFFIS-RIT/bloodnet/backend/pkg/orchestrator"

	"github.com/labstack/echo/v4"
)

type messageResponse struct {
	Message string `json:"message"`
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, messageResponse{Message: msg})
}

// bindAndValidate decodes the request into data and runs the struct
// validator. It reports false after writing a 400 response.
func bindAndValidate(c echo.Context, data any) (bool, error) {
	if err := c.Bind(data); err != nil {
		return false, message(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return false, message(c, http.StatusBadRequest, err.Error())
	}
	return true, nil
}

// serviceError maps orchestrator and graph errors onto HTTP statuses.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidRequest):
		return message(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, graph.ErrNodeNotFound):
		return message(c, http.StatusNotFound, err.Error())
	case errors.Is(err, graph.ErrKindMismatch):
		return message(c, http.StatusConflict, err.Error())
	}
	logger.Error("[Server] Request failed", "path", c.Path(), "err", err)
	return message(c, http.StatusInternalServerError, "Internal server error")
}
