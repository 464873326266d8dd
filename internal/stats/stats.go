package stats

import (
	"sort"
	"time"

	"ledger-service/internal/model"

	"github.com/shopspring/decimal"
)

// salaryEpoch is the first month bucket counted towards salary totals.
// Records bucketed before it predate the fund and are excluded.
var salaryEpoch = time.Date(2020, time.September, 1, 0, 0, 0, 0, time.UTC)

// Snapshot is an in-memory copy of one tenant's five ledger collections.
// Every function in this package reads it without mutation.
type Snapshot struct {
	Members  []*model.Member
	Dues     []*model.Payment
	Salaries []*model.Payment
	Income   []*model.IncomeEntry
	Expenses []*model.ExpenseEntry
}

// Dashboard holds the aggregate figures shown on the tenant dashboard.
type Dashboard struct {
	ExpectedDues    decimal.Decimal `json:"expected_dues"`
	CollectedDues   decimal.Decimal `json:"collected_dues"`
	TotalSalary     decimal.Decimal `json:"total_salary"`
	MonthlySalary   decimal.Decimal `json:"monthly_salary"`
	PaidCount       int             `json:"paid_count"`
	PendingMembers  []*model.Member `json:"pending_members"`
	PendingAmount   decimal.Decimal `json:"pending_amount"`
	CompletionRate  decimal.Decimal `json:"completion_rate"`
	MonthlyIncome   decimal.Decimal `json:"monthly_income"`
	MonthlyExpenses decimal.Decimal `json:"monthly_expenses"`
	TotalIncome     decimal.Decimal `json:"total_income"`
	TotalExpenses   decimal.Decimal `json:"total_expenses"`
	Balance         decimal.Decimal `json:"balance"`
}

// MonthBucket formats a time as the "YYYY-MM" bucket used by payment
// records.
func MonthBucket(t time.Time) string {
	return t.Format("2006-01")
}

// entryMonth reduces a "YYYY-MM-DD" date to its month bucket. Malformed
// dates yield an empty bucket that matches nothing.
func entryMonth(date string) string {
	if len(date) < 7 {
		return ""
	}
	return date[:7]
}

// eligible reports whether a salary month bucket falls on or after the
// epoch. Malformed buckets are never eligible.
func eligible(month string) bool {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return false
	}
	return !t.Before(salaryEpoch)
}

// ComputeDashboard derives the dashboard figures for the month of now.
func ComputeDashboard(snap Snapshot, now time.Time) Dashboard {
	current := MonthBucket(now)

	var d Dashboard
	paid := make(map[string]bool)

	for _, m := range snap.Members {
		d.ExpectedDues = d.ExpectedDues.Add(m.MonthlyAmount.Decimal())
	}

	for _, p := range snap.Dues {
		amount := p.Amount.Decimal()
		d.TotalIncome = d.TotalIncome.Add(amount)
		if p.Month == current {
			d.CollectedDues = d.CollectedDues.Add(amount)
			paid[p.MemberID] = true
		}
	}

	for _, p := range snap.Salaries {
		if !eligible(p.Month) {
			continue
		}
		amount := p.Amount.Decimal()
		d.TotalSalary = d.TotalSalary.Add(amount)
		if p.Month == current {
			d.MonthlySalary = d.MonthlySalary.Add(amount)
			paid[p.MemberID] = true
		}
	}

	for _, e := range snap.Income {
		amount := e.Amount.Decimal()
		d.TotalIncome = d.TotalIncome.Add(amount)
		if entryMonth(e.Date) == current {
			d.MonthlyIncome = d.MonthlyIncome.Add(amount)
		}
	}

	for _, e := range snap.Expenses {
		amount := e.Amount.Decimal()
		d.TotalExpenses = d.TotalExpenses.Add(amount)
		if entryMonth(e.Date) == current {
			d.MonthlyExpenses = d.MonthlyExpenses.Add(amount)
		}
	}

	d.PendingMembers = make([]*model.Member, 0, len(snap.Members))
	for _, m := range snap.Members {
		if !paid[m.ID] {
			d.PendingMembers = append(d.PendingMembers, m)
		}
	}
	d.PaidCount = len(paid)

	collected := d.CollectedDues.Add(d.MonthlySalary)
	d.PendingAmount = d.ExpectedDues.Sub(collected)
	if d.ExpectedDues.IsPositive() {
		d.CompletionRate = collected.
			Div(d.ExpectedDues).
			Mul(decimal.NewFromInt(100)).
			Round(1)
	}

	d.TotalIncome = d.TotalIncome.Add(d.TotalSalary)
	d.Balance = d.TotalIncome.Sub(d.TotalExpenses)
	return d
}

// CategorySummary is one expense category's totals.
type CategorySummary struct {
	Category    string          `json:"category"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Count       int             `json:"count"`
}

// CategoryBreakdown groups expenses by category, largest total first.
// Entries without a category are grouped under "Other".
func CategoryBreakdown(expenses []*model.ExpenseEntry) []CategorySummary {
	totals := make(map[string]*CategorySummary)
	order := make([]string, 0)

	for _, e := range expenses {
		category := e.Category
		if category == "" {
			category = "Other"
		}
		summary, ok := totals[category]
		if !ok {
			summary = &CategorySummary{Category: category}
			totals[category] = summary
			order = append(order, category)
		}
		summary.TotalAmount = summary.TotalAmount.Add(e.Amount.Decimal())
		summary.Count++
	}

	out := make([]CategorySummary, 0, len(order))
	for _, category := range order {
		out = append(out, *totals[category])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalAmount.GreaterThan(out[j].TotalAmount)
	})
	return out
}

// Contributor is one member's eligible salary contribution total.
type Contributor struct {
	MemberID   string          `json:"member_id"`
	MemberName string          `json:"member_name"`
	Total      decimal.Decimal `json:"total"`
	Payments   int             `json:"payments"`
}

// TopContributors ranks members by their eligible salary contributions,
// largest first, truncated to n. Payments referencing a member id that
// no longer resolves are kept and attributed to "Unknown".
func TopContributors(members []*model.Member, salaries []*model.Payment, n int) []Contributor {
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}

	totals := make(map[string]*Contributor)
	order := make([]string, 0)
	for _, p := range salaries {
		if !eligible(p.Month) {
			continue
		}
		c, ok := totals[p.MemberID]
		if !ok {
			name, resolved := names[p.MemberID]
			if !resolved {
				name = "Unknown"
			}
			c = &Contributor{MemberID: p.MemberID, MemberName: name}
			totals[p.MemberID] = c
			order = append(order, p.MemberID)
		}
		c.Total = c.Total.Add(p.Amount.Decimal())
		c.Payments++
	}

	out := make([]Contributor, 0, len(order))
	for _, id := range order {
		out = append(out, *totals[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.GreaterThan(out[j].Total)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// SeriesPoint is one month of the trailing income/expense series.
type SeriesPoint struct {
	Label   string          `json:"label"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// ComputeTrailingSeries builds the trailing 12-month income and expense
// series ending at the month of now, oldest point first. Months with no
// records still appear with zero values, so the result always has
// exactly 12 points.
func ComputeTrailingSeries(snap Snapshot, now time.Time) []SeriesPoint {
	points := make([]SeriesPoint, 0, 12)

	for i := 11; i >= 0; i-- {
		month := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		bucket := MonthBucket(month)
		point := SeriesPoint{Label: month.Format("Jan 2006")}

		for _, p := range snap.Dues {
			if p.Month == bucket {
				point.Income = point.Income.Add(p.Amount.Decimal())
			}
		}
		for _, p := range snap.Salaries {
			if p.Month == bucket && eligible(p.Month) {
				point.Income = point.Income.Add(p.Amount.Decimal())
			}
		}
		for _, e := range snap.Income {
			if entryMonth(e.Date) == bucket {
				point.Income = point.Income.Add(e.Amount.Decimal())
			}
		}
		for _, e := range snap.Expenses {
			if entryMonth(e.Date) == bucket {
				point.Expense = point.Expense.Add(e.Amount.Decimal())
			}
		}
		points = append(points, point)
	}
	return points
}
