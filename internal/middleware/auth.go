package middleware

import (
	"net/http"
	"strings"

	"ledger-service/internal/model"
	"ledger-service/pkg/jwtutil"
	"ledger-service/pkg/logger"
	"ledger-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware verifies the JWT token and extracts session claims
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Track authentication attempts
		prometheus.AuthAttemptsCounter.Inc()

		// Extract the token from the Authorization header
		tokenString := c.Request().Header.Get("Authorization")
		if tokenString == "" {
			log.Warn("Missing authorization token")
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}

		// Remove "Bearer " prefix if present
		if len(tokenString) > 7 && strings.ToUpper(tokenString[0:7]) == "BEARER " {
			tokenString = tokenString[7:]
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Warn("Invalid token", zap.Error(err))
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}

		prometheus.AuthSuccessCounter.Inc()

		// Store session information in the context
		c.Set("role", claims.Role)
		if claims.TenantID != "" {
			c.Set("tenant_id", claims.TenantID)
			c.Set("tenant_name", claims.TenantName)

			log = log.With(
				zap.String("tenant_id", claims.TenantID),
				zap.String("tenant_name", claims.TenantName),
			)
		}

		log = log.With(zap.String("role", claims.Role))
		c.Set("logger", log)

		return next(c)
	}
}

// RequireTenantContext ensures the session belongs to a tenant. Admin
// and guest sessions pass; super admin sessions are rejected because
// they carry no tenant of their own.
func RequireTenantContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		role, _ := c.Get("role").(string)
		if !model.Role(role).CanReadTenantData() {
			log.Warn("Session role has no tenant data access", zap.String("role", role))
			return c.JSON(http.StatusForbidden, echo.Map{"error": "tenant context required"})
		}

		tenantID, ok := c.Get("tenant_id").(string)
		if !ok || tenantID == "" {
			log.Warn("Missing tenant context")
			prometheus.TenantContextMissingCounter.Inc()
			return c.JSON(http.StatusForbidden, echo.Map{"error": "tenant context required"})
		}

		return next(c)
	}
}

// RequireAdmin restricts a route to the tenant-owning admin role.
// Guests read tenant data but never write it.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		role, _ := c.Get("role").(string)
		if !model.Role(role).CanWrite() {
			log.Warn("Write attempted by non-admin role", zap.String("role", role))
			prometheus.PermissionDeniedCounter.Inc()
			return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
		}

		return next(c)
	}
}

// RequireSuperAdmin restricts a route to the platform super admin
func RequireSuperAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		role, _ := c.Get("role").(string)
		if model.Role(role) != model.RoleSuper {
			log.Warn("Super admin route denied", zap.String("role", role))
			prometheus.PermissionDeniedCounter.Inc()
			return c.JSON(http.StatusForbidden, echo.Map{"error": "super admin role required"})
		}

		return next(c)
	}
}
