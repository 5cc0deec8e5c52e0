package domain

import (
	"context"
	"errors"
	"fmt"

	accountdomain "github.com/fckfck97/cie-corpoindustrial/internal/account/domain"
	"github.com/bwmarrin/snowflake"
)

const (
	ModeNext    = "next"
	ModeCurrent = "current"
	ModeMonth   = "month"
)

// PaymentView is a ledger row plus the registration-window flag the admin
// and self-service screens need.
type PaymentView struct {
	MonthlyPayment
	CanRegister bool `json:"can_register"`
}

type EnterpriseBilling struct {
	Enterprise      *accountdomain.Account `json:"enterprise"`
	CurrentPayment  *PaymentView           `json:"current_payment"`
	PreviousPayment *PaymentView           `json:"previous_payment"`
	Payments        []PaymentView          `json:"payments"`
	IsBlocked       bool                   `json:"is_blocked"`
}

type DashboardResponse struct {
	Enterprises []EnterpriseBilling `json:"enterprises"`
}

type GenerateRequest struct {
	Year  int
	Month int
}

type GenerateResponse struct {
	Detail    string `json:"detail"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Processed int    `json:"processed"`
}

type ActivateRequest struct {
	Mode         string
	Year         string
	Month        string
	EnterpriseID string
	DryRun       bool
	AuthSource   string
}

type ActivateResponse struct {
	Detail        string   `json:"detail"`
	Mode          string   `json:"mode"`
	Year          int      `json:"year"`
	Month         int      `json:"month"`
	DryRun        bool     `json:"dry_run"`
	Processed     int      `json:"processed"`
	EnterpriseIDs []string `json:"enterprise_ids"`
	AuthSource    string   `json:"auth_source"`
}

type MarkPaidRequest struct {
	PaymentID        string
	PaymentMethod    string
	PaidAmount       string
	PaymentReference string
	Notes            string
	ProofPath        string
	ReportedBy       snowflake.ID
}

type ReportRequest struct {
	EnterpriseID string
	Year         string
	Month        string
}

type ReportResponse struct {
	Summary  StatusSummary     `json:"summary"`
	Filters  map[string]string `json:"filters"`
	Payments []*MonthlyPayment `json:"payments"`
}

type MyPaymentsResponse struct {
	Summary  StatusSummary `json:"summary"`
	Payments []PaymentView `json:"payments"`
}

// Service is the billing orchestration layer: cycle generation, manual
// payment registration, reporting, and the payment-state access gate.
type Service interface {
	EnsureForMonth(ctx context.Context, enterpriseID snowflake.ID, year, month int) (*MonthlyPayment, error)
	Dashboard(ctx context.Context) (DashboardResponse, error)
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	Activate(ctx context.Context, req ActivateRequest) (ActivateResponse, error)
	MarkPaid(ctx context.Context, req MarkPaidRequest) (*MonthlyPayment, error)
	Report(ctx context.Context, req ReportRequest) (ReportResponse, error)
	MyPayments(ctx context.Context, account *accountdomain.Account) (MyPaymentsResponse, error)

	// Access gate. IsEnterpriseBlocked promotes expired pending rows to
	// overdue as a side effect of the read.
	IsEnterpriseBlocked(ctx context.Context, enterprise *accountdomain.Account) (bool, error)
	UserAccessBlocked(ctx context.Context, account *accountdomain.Account) (bool, error)
	// EmployeeLoginContext verifies an employee resolves to an active
	// enterprise; the reason string is user-facing when ok is false.
	EmployeeLoginContext(ctx context.Context, account *accountdomain.Account) (ok bool, reason string, err error)
}

// ValidationError carries a user-facing detail for a bad request response.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

var (
	ErrPaymentNotFound      = errors.New("payment_not_found")
	ErrInvalidPaymentMethod = errors.New("invalid_payment_method")
	ErrInvalidPaidAmount    = errors.New("invalid_paid_amount")
	ErrPaymentWindowLocked  = errors.New("payment_window_locked")
	ErrInvalidMode          = errors.New("invalid_mode")
	ErrInvalidPeriod        = errors.New("invalid_period")
	ErrAdminSelfService     = errors.New("admin_self_service")
	ErrNoEnterprise         = errors.New("no_enterprise")
	ErrInvalidEnterpriseID  = errors.New("invalid_enterprise_id")
)

// Summarize aggregates rows by status.
func Summarize(payments []*MonthlyPayment) StatusSummary {
	summary := StatusSummary{Total: int64(len(payments))}
	for _, p := range payments {
		switch p.Status {
		case StatusPaid:
			summary.Paid++
		case StatusPending:
			summary.Pending++
		case StatusOverdue:
			summary.Overdue++
		}
	}
	return summary
}

func formatPeriod(month, year int) string {
	return fmt.Sprintf("%02d/%d", month, year)
}
