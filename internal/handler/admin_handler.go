package handler

import (
	"net/http"

	"ledger-service/internal/model"
	"ledger-service/pkg/logger"
	"ledger-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListTenants returns the tenant directory for the super admin panel.
// Records are stripped of every secret before leaving the service.
func (h *Handler) ListTenants(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Listing tenant directory")

	tenants, err := h.directory.List(c.Request().Context())
	if err != nil {
		log.Error("Failed to load tenant directory", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load tenants"})
	}

	sanitized := make([]model.Tenant, 0, len(tenants))
	for _, t := range tenants {
		sanitized = append(sanitized, t.Sanitized())
	}

	prometheus.RegisteredTenantsGauge.Set(float64(len(sanitized)))

	return c.JSON(http.StatusOK, echo.Map{
		"tenants": sanitized,
		"total":   len(sanitized),
	})
}
