package handler

import (
	"net/http"
	"time"

	"ledger-service/pkg/database"
	"ledger-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HealthCheck reports service liveness. With ?check=db it also pings
// the store database.
func HealthCheck(c echo.Context) error {
	response := echo.Map{
		"service": "ledger-service",
		"status":  "up",
		"time":    time.Now().UTC().Format(time.RFC3339),
	}

	if c.QueryParam("check") == "db" {
		sqlDB, err := database.GetDB().DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			logger.FromContext(c).Error("Store database unreachable", zap.Error(err))
			response["status"] = "degraded"
			response["store"] = "unreachable"
			return c.JSON(http.StatusServiceUnavailable, response)
		}
		response["store"] = "up"
	}

	return c.JSON(http.StatusOK, response)
}

// Hello returns a simple welcome message
func Hello(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Welcome to Ledger Service API",
		"version": "1.0.0",
	})
}
