package handler

import (
	"errors"
	"net/http"
	"time"

	"ledger-service/internal/model"
	"ledger-service/internal/stats"
	"ledger-service/internal/store"
	"ledger-service/pkg/logger"
	"ledger-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// mutationError maps a failed ledger mutation to a response. The store
// rejects writes from non-admin sessions even when a route is wired
// without the admin middleware.
func (h *Handler) mutationError(c echo.Context, err error, msg string) error {
	if errors.Is(err, store.ErrPermissionDenied) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}
	logger.FromContext(c).Error(msg, zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

// MemberRequest defines the structure for member creation/update requests
type MemberRequest struct {
	Name          string       `json:"name" validate:"required"`
	Phone         string       `json:"phone"`
	Email         string       `json:"email"`
	Address       string       `json:"address"`
	MonthlyAmount model.Amount `json:"monthly_amount"`
}

// ListMembers returns all members of the session tenant
func (h *Handler) ListMembers(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)
	prometheus.RecordLedgerOperation("members", "list")

	members, err := store.Load[*model.Member](c.Request().Context(), h.ledger, sess.TenantID, store.RecordMembers)
	if err != nil {
		log.Error("Failed to load members", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load members"})
	}
	return c.JSON(http.StatusOK, echo.Map{"members": members})
}

// CreateMember adds a member to the session tenant's roster
func (h *Handler) CreateMember(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)
	prometheus.RecordLedgerOperation("members", "create")

	var req MemberRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	member, err := store.Append(c.Request().Context(), h.ledger, sess, store.RecordMembers, &model.Member{
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		MonthlyAmount: req.MonthlyAmount,
	})
	if err != nil {
		return h.mutationError(c, err, "Failed to create member")
	}

	log.Info("Member created",
		zap.String("member_id", member.ID),
		zap.String("name", member.Name))
	return c.JSON(http.StatusCreated, member)
}

// UpdateMember updates an existing member
func (h *Handler) UpdateMember(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)
	prometheus.RecordLedgerOperation("members", "update")

	id := c.Param("id")

	var req MemberRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	members, err := store.Load[*model.Member](c.Request().Context(), h.ledger, sess.TenantID, store.RecordMembers)
	if err != nil {
		log.Error("Failed to load members", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update member"})
	}

	var member *model.Member
	for _, m := range members {
		if m.ID == id {
			member = m
			break
		}
	}
	if member == nil {
		log.Warn("Member not found", zap.String("member_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Member not found"})
	}

	updated := *member
	updated.Name = req.Name
	updated.Phone = req.Phone
	updated.Email = req.Email
	updated.Address = req.Address
	updated.MonthlyAmount = req.MonthlyAmount

	if err := store.Update(c.Request().Context(), h.ledger, sess, store.RecordMembers, &updated); err != nil {
		return h.mutationError(c, err, "Failed to update member")
	}

	log.Info("Member updated", zap.String("member_id", id))
	return c.JSON(http.StatusOK, &updated)
}

// DeleteMember removes a member and that member's dues payments
func (h *Handler) DeleteMember(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)
	prometheus.RecordLedgerOperation("members", "delete")

	id := c.Param("id")
	if err := h.ledger.Remove(c.Request().Context(), sess, store.RecordMembers, id); err != nil {
		return h.mutationError(c, err, "Failed to delete member")
	}

	log.Info("Member deleted", zap.String("member_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Member deleted successfully"})
}

// PaymentRequest defines the structure for dues and salary payment requests
type PaymentRequest struct {
	MemberID    string       `json:"member_id" validate:"required"`
	Month       string       `json:"month" validate:"required"`
	Amount      model.Amount `json:"amount"`
	PaymentDate string       `json:"payment_date"`
	Notes       string       `json:"notes"`
}

func validMonth(month string) bool {
	_, err := time.Parse("2006-01", month)
	return err == nil
}

// ListDues returns all dues payments of the session tenant
func (h *Handler) ListDues(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)
	prometheus.RecordLedgerOperation("dues", "list")

	dues, err := store.Load[*model.Payment](c.Request().Context(), h.ledger, sess.TenantID, store.RecordDues)
	if err != nil {
		log.Error("Failed to load dues payments", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load dues payments"})
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": dues})
}

// CreateDues records a dues payment. A member can have at most one dues
// payment per month bucket.
func (h *Handler) CreateDues(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)
	prometheus.RecordLedgerOperation("dues", "create")

	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.MemberID == "" || !validMonth(req.Month) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "member_id and a valid month (YYYY-MM) are required"})
	}

	dues, err := store.Load[*model.Payment](c.Request().Context(), h.ledger, sess.TenantID, store.RecordDues)
	if err != nil {
		log.Error("Failed to load dues payments", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to record payment"})
	}
	for _, p := range dues {
		if p.MemberID == req.MemberID && p.Month == req.Month {
			log.Warn("Duplicate dues payment",
				zap.String("member_id", req.MemberID),
				zap.String("month", req.Month))
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "A payment for this member and month is already recorded",
			})
		}
	}

	payment, err := store.Append(c.Request().Context(), h.ledger, sess, store.RecordDues, &model.Payment{
		MemberID:    req.MemberID,
		Month:       req.Month,
		Amount:      req.Amount,
		PaymentDate: req.PaymentDate,
		Notes:       req.Notes,
	})
	if err != nil {
		return h.mutationError(c, err, "Failed to record payment")
	}

	log.Info("Dues payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("member_id", payment.MemberID),
		zap.String("month", payment.Month))
	return c.JSON(http.StatusCreated, payment)
}

// DeleteDues removes a dues payment by id
func (h *Handler) DeleteDues(c echo.Context) error {
	return h.deleteRecord(c, store.RecordDues, "dues")
}

// ListSalaries returns all salary payments of the session tenant
func (h *Handler) ListSalaries(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)
	prometheus.RecordLedgerOperation("salary", "list")

	salaries, err := store.Load[*model.Payment](c.Request().Context(), h.ledger, sess.TenantID, store.RecordSalary)
	if err != nil {
		log.Error("Failed to load salary payments", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load salary payments"})
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": salaries})
}

// CreateSalary records a salary contribution
func (h *Handler) CreateSalary(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)
	prometheus.RecordLedgerOperation("salary", "create")

	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.MemberID == "" || !validMonth(req.Month) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "member_id and a valid month (YYYY-MM) are required"})
	}

	payment, err := store.Append(c.Request().Context(), h.ledger, sess, store.RecordSalary, &model.Payment{
		MemberID:    req.MemberID,
		Month:       req.Month,
		Amount:      req.Amount,
		PaymentDate: req.PaymentDate,
		Notes:       req.Notes,
	})
	if err != nil {
		return h.mutationError(c, err, "Failed to record payment")
	}

	log.Info("Salary payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("member_id", payment.MemberID),
		zap.String("month", payment.Month))
	return c.JSON(http.StatusCreated, payment)
}

// DeleteSalary removes a salary payment by id
func (h *Handler) DeleteSalary(c echo.Context) error {
	return h.deleteRecord(c, store.RecordSalary, "salary")
}

// SalaryOverview returns the ranked salary contributors of the tenant
func (h *Handler) SalaryOverview(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)
	prometheus.RecordLedgerOperation("salary", "overview")

	ctx := c.Request().Context()
	members, err := store.Load[*model.Member](ctx, h.ledger, sess.TenantID, store.RecordMembers)
	if err != nil {
		log.Error("Failed to load members", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load salary overview"})
	}
	salaries, err := store.Load[*model.Payment](ctx, h.ledger, sess.TenantID, store.RecordSalary)
	if err != nil {
		log.Error("Failed to load salary payments", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load salary overview"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"contributors": stats.TopContributors(members, salaries, 10),
	})
}

// IncomeRequest defines the structure for income entry requests
type IncomeRequest struct {
	Source        string       `json:"source" validate:"required"`
	Amount        model.Amount `json:"amount"`
	Date          string       `json:"date" validate:"required"`
	Payer         string       `json:"payer"`
	PaymentMethod string       `json:"payment_method"`
	Notes         string       `json:"notes"`
}

// ListIncome returns all income entries of the session tenant
func (h *Handler) ListIncome(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)
	prometheus.RecordLedgerOperation("income", "list")

	entries, err := store.Load[*model.IncomeEntry](c.Request().Context(), h.ledger, sess.TenantID, store.RecordIncome)
	if err != nil {
		log.Error("Failed to load income entries", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load income entries"})
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": entries})
}

// CreateIncome records an income entry
func (h *Handler) CreateIncome(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)
	prometheus.RecordLedgerOperation("income", "create")

	var req IncomeRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Source == "" || req.Date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "source and date are required"})
	}

	entry, err := store.Append(c.Request().Context(), h.ledger, sess, store.RecordIncome, &model.IncomeEntry{
		Source:        req.Source,
		Amount:        req.Amount,
		Date:          req.Date,
		Payer:         req.Payer,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		return h.mutationError(c, err, "Failed to record income")
	}

	log.Info("Income entry recorded",
		zap.String("entry_id", entry.ID),
		zap.String("source", entry.Source))
	return c.JSON(http.StatusCreated, entry)
}

// DeleteIncome removes an income entry by id
func (h *Handler) DeleteIncome(c echo.Context) error {
	return h.deleteRecord(c, store.RecordIncome, "income")
}

// ExpenseRequest defines the structure for expense entry requests
type ExpenseRequest struct {
	Purpose       string       `json:"purpose" validate:"required"`
	Category      string       `json:"category"`
	Amount        model.Amount `json:"amount"`
	Date          string       `json:"date" validate:"required"`
	PaidTo        string       `json:"paid_to"`
	PaymentMethod string       `json:"payment_method"`
	Notes         string       `json:"notes"`
}

// ListExpenses returns all expense entries of the session tenant
func (h *Handler) ListExpenses(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)
	prometheus.RecordLedgerOperation("expenses", "list")

	entries, err := store.Load[*model.ExpenseEntry](c.Request().Context(), h.ledger, sess.TenantID, store.RecordExpenses)
	if err != nil {
		log.Error("Failed to load expense entries", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load expense entries"})
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": entries})
}

// CreateExpense records an expense entry
func (h *Handler) CreateExpense(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)
	prometheus.RecordLedgerOperation("expenses", "create")

	var req ExpenseRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Purpose == "" || req.Date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "purpose and date are required"})
	}

	entry, err := store.Append(c.Request().Context(), h.ledger, sess, store.RecordExpenses, &model.ExpenseEntry{
		Purpose:       req.Purpose,
		Category:      req.Category,
		Amount:        req.Amount,
		Date:          req.Date,
		PaidTo:        req.PaidTo,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		return h.mutationError(c, err, "Failed to record expense")
	}

	log.Info("Expense entry recorded",
		zap.String("entry_id", entry.ID),
		zap.String("purpose", entry.Purpose))
	return c.JSON(http.StatusCreated, entry)
}

// DeleteExpense removes an expense entry by id
func (h *Handler) DeleteExpense(c echo.Context) error {
	return h.deleteRecord(c, store.RecordExpenses, "expenses")
}

// ExpenseBreakdown returns expense totals grouped by category
func (h *Handler) ExpenseBreakdown(c echo.Context) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)
	prometheus.RecordLedgerOperation("expenses", "breakdown")

	entries, err := store.Load[*model.ExpenseEntry](c.Request().Context(), h.ledger, sess.TenantID, store.RecordExpenses)
	if err != nil {
		log.Error("Failed to load expense entries", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load expense breakdown"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"categories": stats.CategoryBreakdown(entries),
	})
}

func (h *Handler) deleteRecord(c echo.Context, rt store.RecordType, label string) error {
	log := logger.FromContext(c)
	sess := sessionFromContext(c)
	prometheus.RecordLedgerOperation(label, "delete")

	id := c.Param("id")
	if err := h.ledger.Remove(c.Request().Context(), sess, rt, id); err != nil {
		return h.mutationError(c, err, "Failed to delete record")
	}

	log.Info("Record deleted",
		zap.String("record_type", label),
		zap.String("record_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Record deleted successfully"})
}
