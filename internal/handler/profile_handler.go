package handler

import (
	"errors"
	"net/http"

	"ledger-service/internal/model"
	"ledger-service/internal/store"
	"ledger-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// GetProfile returns the session tenant's directory record. Guests get
// a copy without the secret code.
func (h *Handler) GetProfile(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)

	tenant, err := h.directory.FindByID(c.Request().Context(), sess.TenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("Session tenant missing from directory", zap.String("tenant_id", sess.TenantID))
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Tenant not found"})
		}
		log.Error("Failed to load tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load profile"})
	}

	if sess.Role == model.RoleGuest {
		return c.JSON(http.StatusOK, tenant.Sanitized())
	}
	return c.JSON(http.StatusOK, tenant.Public())
}

// ProfileRequest defines the structure for profile update requests
type ProfileRequest struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	SecretCode string `json:"secret_code"`
	Password   string `json:"password"`
}

// UpdateProfile updates the session tenant's directory record. Email is
// the directory's identity key and cannot change here. An empty field
// leaves the current value in place.
func (h *Handler) UpdateProfile(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)

	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	tenant, err := h.directory.FindByID(c.Request().Context(), sess.TenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Tenant not found"})
		}
		log.Error("Failed to load tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update profile"})
	}

	if req.Name != "" {
		tenant.Name = req.Name
	}
	if req.Phone != "" {
		tenant.Phone = req.Phone
	}
	if req.Address != "" {
		tenant.Address = req.Address
	}

	if req.SecretCode != "" && req.SecretCode != tenant.SecretCode {
		others, err := h.directory.List(c.Request().Context())
		if err != nil {
			log.Error("Failed to load directory", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update profile"})
		}
		for _, other := range others {
			if other.ID != tenant.ID && other.SecretCode == req.SecretCode {
				log.Warn("Profile update with existing secret code", zap.String("tenant_id", tenant.ID))
				return c.JSON(http.StatusConflict, echo.Map{"error": "This guest code is already in use"})
			}
		}
		tenant.SecretCode = req.SecretCode
	}

	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("Failed to hash password", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update profile"})
		}
		tenant.Password = string(hashed)
	}

	if err := h.directory.UpdateProfile(c.Request().Context(), tenant); err != nil {
		log.Error("Failed to update tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update profile"})
	}

	log.Info("Profile updated", zap.String("tenant_id", tenant.ID))
	return c.JSON(http.StatusOK, tenant.Public())
}
