package handler

import (
	"context"
	"net/http"
	"time"

	"ledger-service/internal/model"
	"ledger-service/internal/stats"
	"ledger-service/internal/store"
	"ledger-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// loadSnapshot reads the tenant's five collections into memory. Each
// collection degrades to empty independently, so a corrupt one never
// hides the others.
func (h *Handler) loadSnapshot(ctx context.Context, tenantID string) (stats.Snapshot, error) {
	var snap stats.Snapshot
	var err error

	if snap.Members, err = store.Load[*model.Member](ctx, h.ledger, tenantID, store.RecordMembers); err != nil {
		return snap, err
	}
	if snap.Dues, err = store.Load[*model.Payment](ctx, h.ledger, tenantID, store.RecordDues); err != nil {
		return snap, err
	}
	if snap.Salaries, err = store.Load[*model.Payment](ctx, h.ledger, tenantID, store.RecordSalary); err != nil {
		return snap, err
	}
	if snap.Income, err = store.Load[*model.IncomeEntry](ctx, h.ledger, tenantID, store.RecordIncome); err != nil {
		return snap, err
	}
	if snap.Expenses, err = store.Load[*model.ExpenseEntry](ctx, h.ledger, tenantID, store.RecordExpenses); err != nil {
		return snap, err
	}
	return snap, nil
}

// Dashboard returns the aggregate figures for the current month
func (h *Handler) Dashboard(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)

	snap, err := h.loadSnapshot(c.Request().Context(), sess.TenantID)
	if err != nil {
		log.Error("Failed to load ledger snapshot", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load dashboard"})
	}

	return c.JSON(http.StatusOK, stats.ComputeDashboard(snap, time.Now().UTC()))
}

// DashboardSeries returns the trailing 12-month income/expense series
func (h *Handler) DashboardSeries(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)

	snap, err := h.loadSnapshot(c.Request().Context(), sess.TenantID)
	if err != nil {
		log.Error("Failed to load ledger snapshot", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load series"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"series": stats.ComputeTrailingSeries(snap, time.Now().UTC()),
	})
}
