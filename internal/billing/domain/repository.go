package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fckfck97/cie-corpoindustrial/internal/billing/period"
	"gorm.io/gorm"
)

// ReportFilter narrows the admin payment report.
type ReportFilter struct {
	EnterpriseID snowflake.ID
	Year         int
	Month        int
}

type Repository interface {
	// InsertIfAbsent writes the payment unless a row for its
	// (enterprise, year, month) already exists, and returns the row that
	// ended up in the ledger. A duplicate-key race loser receives the
	// winner's row.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, payment *MonthlyPayment) (*MonthlyPayment, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MonthlyPayment, error)
	FindByPeriod(ctx context.Context, db *gorm.DB, enterpriseID snowflake.ID, year, month int) (*MonthlyPayment, error)
	// PromoteOverdue flips pending rows whose grace date has passed.
	// Zero enterpriseID means all enterprises.
	PromoteOverdue(ctx context.Context, db *gorm.DB, enterpriseID snowflake.ID, today time.Time) (int64, error)
	// HasBlockingDebt reports whether any non-paid row fell out of grace.
	HasBlockingDebt(ctx context.Context, db *gorm.DB, enterpriseID snowflake.ID, today time.Time) (bool, error)
	// ListCycle returns the enterprise's rows for the given periods plus
	// any older unpaid rows that fell out of grace, newest period first.
	ListCycle(ctx context.Context, db *gorm.DB, enterpriseID snowflake.ID, months []period.YearMonth, today time.Time) ([]*MonthlyPayment, error)
	// ListCycleByStatus returns the enterprise's rows for the given
	// periods ordered paid, pending, overdue, then chronologically.
	ListCycleByStatus(ctx context.Context, db *gorm.DB, enterpriseID snowflake.ID, months []period.YearMonth) ([]*MonthlyPayment, error)
	// ListUnpaid returns every non-paid row, ordered by due date. Zero
	// enterpriseID means all enterprises.
	ListUnpaid(ctx context.Context, db *gorm.DB, enterpriseID snowflake.ID) ([]*MonthlyPayment, error)
	ListReport(ctx context.Context, db *gorm.DB, filter ReportFilter) ([]*MonthlyPayment, error)
	MarkPaid(ctx context.Context, db *gorm.DB, payment *MonthlyPayment) error
}
