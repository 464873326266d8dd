package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"ledger-service/internal/model"
	"ledger-service/internal/store"
	"ledger-service/pkg/jwtutil"
	"ledger-service/pkg/logger"
	"ledger-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest defines the structure for tenant registration requests
type RegisterRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required"`
	Phone      string `json:"phone"`
	Password   string `json:"password" validate:"required"`
	SecretCode string `json:"secret_code" validate:"required"`
	Address    string `json:"address"`
}

// Register creates a new tenant and returns an admin session token
func (h *Handler) Register(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Registering new tenant")

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if req.Name == "" || req.Email == "" || req.Password == "" || req.SecretCode == "" {
		log.Warn("Missing required registration fields")
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "name, email, password and secret_code are required",
		})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to register tenant"})
	}

	tenant, err := h.directory.Register(c.Request().Context(), model.Tenant{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Password:   string(hashed),
		SecretCode: req.SecretCode,
		Address:    req.Address,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateIdentity):
			log.Warn("Registration with existing email or phone", zap.String("email", req.Email))
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "An account with this email or phone already exists",
			})
		case errors.Is(err, store.ErrDuplicateSecretCode):
			log.Warn("Registration with existing secret code")
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "This guest code is already in use",
			})
		default:
			log.Error("Failed to register tenant", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to register tenant"})
		}
	}

	prometheus.TenantRegistrationCounter.Inc()

	// The registration response already opens an admin session, so any
	// legacy single-tenant data is inherited here, not only on login.
	seeded, err := h.migrator.EnsureScoped(c.Request().Context(), store.AdminSession(tenant.ID))
	if err != nil {
		log.Error("Legacy seed check failed", zap.String("tenant_id", tenant.ID), zap.Error(err))
	} else if seeded {
		prometheus.LegacySeedCounter.Inc()
	}

	token, err := jwtutil.GenerateToken(tenant.ID, tenant.Name, string(model.RoleAdmin))
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to generate token"})
	}

	log.Info("Tenant registered successfully",
		zap.String("tenant_id", tenant.ID),
		zap.String("name", tenant.Name))
	return c.JSON(http.StatusCreated, echo.Map{
		"token":  token,
		"tenant": tenant.Public(),
	})
}

// LoginRequest defines the structure for password login requests
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// Login authenticates a tenant admin by email or phone and password
func (h *Handler) Login(c echo.Context) error {
	log := logger.FromContext(c)

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	tenant, err := h.directory.Authenticate(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			log.Warn("Invalid login credentials", zap.String("identifier", req.Identifier))
			prometheus.RecordLogin("password", "failure")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid email/phone or password"})
		}
		log.Error("Failed to authenticate tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to authenticate"})
	}

	prometheus.RecordLogin("password", "success")

	// First admin session after a fresh install inherits any legacy
	// single-tenant data.
	seeded, err := h.migrator.EnsureScoped(c.Request().Context(), store.AdminSession(tenant.ID))
	if err != nil {
		log.Error("Legacy seed check failed", zap.String("tenant_id", tenant.ID), zap.Error(err))
	} else if seeded {
		prometheus.LegacySeedCounter.Inc()
	}

	token, err := jwtutil.GenerateToken(tenant.ID, tenant.Name, string(model.RoleAdmin))
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to generate token"})
	}

	log.Info("Tenant logged in", zap.String("tenant_id", tenant.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"token":  token,
		"tenant": tenant.Public(),
	})
}

// GuestLoginRequest defines the structure for guest login requests
type GuestLoginRequest struct {
	SecretCode string `json:"secret_code" validate:"required"`
}

// GuestLogin authenticates a read-only guest by a tenant's secret code
func (h *Handler) GuestLogin(c echo.Context) error {
	log := logger.FromContext(c)

	var req GuestLoginRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	tenant, err := h.directory.AuthenticateGuest(c.Request().Context(), req.SecretCode)
	if err != nil {
		if errors.Is(err, store.ErrInvalidGuestCode) {
			log.Warn("Invalid guest code")
			prometheus.RecordLogin("guest", "failure")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid guest code"})
		}
		log.Error("Failed to authenticate guest", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to authenticate"})
	}

	prometheus.RecordLogin("guest", "success")

	token, err := jwtutil.GenerateToken(tenant.ID, tenant.Name, string(model.RoleGuest))
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to generate token"})
	}

	log.Info("Guest logged in", zap.String("tenant_id", tenant.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"token":  token,
		"tenant": tenant.Sanitized(),
	})
}

// SuperLoginRequest defines the structure for super admin login requests
type SuperLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SuperLogin authenticates the platform super admin against the fixed
// credentials from configuration.
func (h *Handler) SuperLogin(c echo.Context) error {
	log := logger.FromContext(c)

	var req SuperLoginRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.cfg.SuperAdmin.Username)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.SuperAdmin.Password)) == 1
	if !usernameOK || !passwordOK {
		log.Warn("Invalid super admin credentials", zap.String("username", req.Username))
		prometheus.RecordLogin("super", "failure")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid credentials"})
	}

	prometheus.RecordLogin("super", "success")

	token, err := jwtutil.GenerateToken("", "", string(model.RoleSuper))
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to generate token"})
	}

	log.Info("Super admin logged in")
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

// ResetRequestRequest defines the structure for password reset requests
type ResetRequestRequest struct {
	Identifier string `json:"identifier" validate:"required"`
}

// RequestPasswordReset issues a short-lived 4-digit reset code for a
// registered email or phone. There is no mail transport; the code is
// returned in the response the way the reference deployment surfaced it.
func (h *Handler) RequestPasswordReset(c echo.Context) error {
	log := logger.FromContext(c)

	var req ResetRequestRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if _, err := h.directory.FindByIdentifier(c.Request().Context(), req.Identifier); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("Reset requested for unknown identifier", zap.String("identifier", req.Identifier))
			return c.JSON(http.StatusNotFound, echo.Map{"error": "No account found for this email or phone"})
		}
		log.Error("Failed to look up account", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to request reset"})
	}

	code, err := h.resets.Issue(req.Identifier)
	if err != nil {
		log.Error("Failed to issue reset code", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to request reset"})
	}

	log.Info("Password reset code issued", zap.String("identifier", req.Identifier))
	return c.JSON(http.StatusOK, echo.Map{"code": code})
}

// ResetConfirmRequest defines the structure for password reset confirmations
type ResetConfirmRequest struct {
	Identifier  string `json:"identifier" validate:"required"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// ConfirmPasswordReset verifies the reset code and replaces the password
func (h *Handler) ConfirmPasswordReset(c echo.Context) error {
	log := logger.FromContext(c)

	var req ResetConfirmRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new_password is required"})
	}

	if !h.resets.Verify(req.Identifier, req.Code) {
		log.Warn("Invalid or expired reset code", zap.String("identifier", req.Identifier))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired reset code"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to reset password"})
	}

	if err := h.directory.ResetPassword(c.Request().Context(), req.Identifier, string(hashed)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "No account found for this email or phone"})
		}
		log.Error("Failed to reset password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to reset password"})
	}

	log.Info("Password reset completed", zap.String("identifier", req.Identifier))
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated successfully"})
}
