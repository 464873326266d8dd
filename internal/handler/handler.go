package handler

import (
	"ledger-service/internal/model"
	"ledger-service/internal/store"
	"ledger-service/pkg/config"

	"github.com/labstack/echo/v4"
)

// Handler serves the ledger API. All persistence goes through the
// injected directory, ledger and migrator so tests can swap the backing
// store for an in-memory one.
type Handler struct {
	cfg       *config.Config
	directory *store.Directory
	ledger    *store.Ledger
	migrator  *store.Migrator
	resets    *resetStore
}

// New creates a handler over the given stores
func New(cfg *config.Config, directory *store.Directory, ledger *store.Ledger, migrator *store.Migrator) *Handler {
	return &Handler{
		cfg:       cfg,
		directory: directory,
		ledger:    ledger,
		migrator:  migrator,
		resets:    newResetStore(),
	}
}

// sessionFromContext rebuilds the acting session from the values the
// auth middleware stored on the request context.
func sessionFromContext(c echo.Context) store.Session {
	role, _ := c.Get("role").(string)
	tenantID, _ := c.Get("tenant_id").(string)
	return store.Session{TenantID: tenantID, Role: model.Role(role)}
}
