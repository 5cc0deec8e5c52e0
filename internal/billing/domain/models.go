package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusOverdue = "overdue"
)

const (
	MethodTransfer = "transfer"
	MethodCash     = "cash"
	MethodCard     = "card"
	MethodPSE      = "pse"
)

// ValidMethod reports whether a payment method belongs to the fixed enum.
func ValidMethod(method string) bool {
	switch method {
	case MethodTransfer, MethodCash, MethodCard, MethodPSE:
		return true
	default:
		return false
	}
}

// MonthlyPayment is one billing period owed by an enterprise. Rows are
// created lazily by the ensure pass and are unique per
// (enterprise_id, year, month). The grace date is always due date + 2 days,
// and paid is a terminal status.
type MonthlyPayment struct {
	ID               snowflake.ID     `gorm:"primaryKey" json:"id"`
	EnterpriseID     snowflake.ID     `gorm:"not null;index;uniqueIndex:ux_payment_period,priority:1" json:"enterprise_id"`
	Year             int              `gorm:"not null;uniqueIndex:ux_payment_period,priority:2" json:"year"`
	Month            int              `gorm:"not null;uniqueIndex:ux_payment_period,priority:3" json:"month"`
	Amount           decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"amount"`
	DueDate          time.Time        `gorm:"not null" json:"due_date"`
	GraceDate        time.Time        `gorm:"not null" json:"grace_date"`
	Status           string           `gorm:"not null;default:pending;index" json:"status"`
	PaymentMethod    string           `json:"payment_method,omitempty"`
	PaymentReference string           `json:"payment_reference,omitempty"`
	PaidAmount       *decimal.Decimal `gorm:"type:numeric(12,2)" json:"paid_amount,omitempty"`
	PaymentProof     string           `json:"payment_proof,omitempty"`
	PaidReportedBy   *snowflake.ID    `json:"paid_reported_by,omitempty"`
	PaidAt           *time.Time       `json:"paid_at,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	CreatedAt        time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (MonthlyPayment) TableName() string { return "monthly_payments" }

// PeriodLabel renders the period the way notifications show it: MM/YYYY.
func (p MonthlyPayment) PeriodLabel() string {
	return formatPeriod(p.Month, p.Year)
}

// StatusSummary aggregates ledger rows by status.
type StatusSummary struct {
	Total   int64 `json:"total"`
	Paid    int64 `json:"paid"`
	Pending int64 `json:"pending"`
	Overdue int64 `json:"overdue"`
}
