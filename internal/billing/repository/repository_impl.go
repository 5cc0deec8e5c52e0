package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fckfck97/cie-corpoindustrial/internal/billing/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/billing/period"
	"github.com/fckfck97/cie-corpoindustrial/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, conn *gorm.DB, payment *domain.MonthlyPayment) (*domain.MonthlyPayment, error) {
	err := conn.WithContext(ctx).Exec(
		`INSERT INTO monthly_payments (id, enterprise_id, year, month, amount, due_date, grace_date, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.EnterpriseID,
		payment.Year,
		payment.Month,
		payment.Amount,
		payment.DueDate,
		payment.GraceDate,
		payment.Status,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
	if err == nil {
		return payment, nil
	}
	if !db.IsDuplicateKeyErr(err) {
		return nil, err
	}

	// Unique-key race or pre-existing period: hand back the winner's row.
	existing, ferr := r.FindByPeriod(ctx, conn, payment.EnterpriseID, payment.Year, payment.Month)
	if ferr != nil {
		return nil, ferr
	}
	if existing == nil {
		return nil, err
	}
	return existing, nil
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.MonthlyPayment, error) {
	var payment domain.MonthlyPayment
	err := conn.WithContext(ctx).
		Model(&domain.MonthlyPayment{}).
		Where("id = ?", id).
		Limit(1).
		Find(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) FindByPeriod(ctx context.Context, conn *gorm.DB, enterpriseID snowflake.ID, year, month int) (*domain.MonthlyPayment, error) {
	var payment domain.MonthlyPayment
	err := conn.WithContext(ctx).
		Model(&domain.MonthlyPayment{}).
		Where("enterprise_id = ? AND year = ? AND month = ?", enterpriseID, year, month).
		Limit(1).
		Find(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) PromoteOverdue(ctx context.Context, conn *gorm.DB, enterpriseID snowflake.ID, today time.Time) (int64, error) {
	stmt := conn.WithContext(ctx).
		Model(&domain.MonthlyPayment{}).
		Where("status = ? AND grace_date < ?", domain.StatusPending, today)
	if enterpriseID != 0 {
		stmt = stmt.Where("enterprise_id = ?", enterpriseID)
	}
	result := stmt.Updates(map[string]interface{}{
		"status":     domain.StatusOverdue,
		"updated_at": today,
	})
	return result.RowsAffected, result.Error
}

func (r *repo) HasBlockingDebt(ctx context.Context, conn *gorm.DB, enterpriseID snowflake.ID, today time.Time) (bool, error) {
	var count int64
	err := conn.WithContext(ctx).
		Model(&domain.MonthlyPayment{}).
		Where("enterprise_id = ? AND grace_date < ? AND status <> ?", enterpriseID, today, domain.StatusPaid).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListCycle(ctx context.Context, conn *gorm.DB, enterpriseID snowflake.ID, months []period.YearMonth, today time.Time) ([]*domain.MonthlyPayment, error) {
	scope := conn.WithContext(ctx)
	cycle := monthsCondition(scope, months)
	// Cycle periods plus any older unpaid debt, so admins can normalize
	// enterprises with legacy arrears.
	legacy := scope.Where("grace_date < ? AND status <> ?", today, domain.StatusPaid)

	var payments []*domain.MonthlyPayment
	err := scope.
		Model(&domain.MonthlyPayment{}).
		Where("enterprise_id = ?", enterpriseID).
		Where(cycle.Or(legacy)).
		Order("year desc, month desc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) ListCycleByStatus(ctx context.Context, conn *gorm.DB, enterpriseID snowflake.ID, months []period.YearMonth) ([]*domain.MonthlyPayment, error) {
	scope := conn.WithContext(ctx)

	var payments []*domain.MonthlyPayment
	err := scope.
		Model(&domain.MonthlyPayment{}).
		Where("enterprise_id = ?", enterpriseID).
		Where(monthsCondition(scope, months)).
		// paid first, then pending, then overdue; chronological within
		// each group
		Order("CASE status WHEN 'paid' THEN 0 WHEN 'pending' THEN 1 WHEN 'overdue' THEN 2 ELSE 3 END, year, month").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) ListUnpaid(ctx context.Context, conn *gorm.DB, enterpriseID snowflake.ID) ([]*domain.MonthlyPayment, error) {
	stmt := conn.WithContext(ctx).
		Model(&domain.MonthlyPayment{}).
		Where("status <> ?", domain.StatusPaid)
	if enterpriseID != 0 {
		stmt = stmt.Where("enterprise_id = ?", enterpriseID)
	}

	var payments []*domain.MonthlyPayment
	err := stmt.Order("due_date, enterprise_id").Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) ListReport(ctx context.Context, conn *gorm.DB, filter domain.ReportFilter) ([]*domain.MonthlyPayment, error) {
	stmt := conn.WithContext(ctx).Model(&domain.MonthlyPayment{})
	if filter.EnterpriseID != 0 {
		stmt = stmt.Where("enterprise_id = ?", filter.EnterpriseID)
	}
	if filter.Year != 0 {
		stmt = stmt.Where("year = ?", filter.Year)
	}
	if filter.Month != 0 {
		stmt = stmt.Where("month = ?", filter.Month)
	}

	var payments []*domain.MonthlyPayment
	err := stmt.Order("year desc, month desc, enterprise_id").Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) MarkPaid(ctx context.Context, conn *gorm.DB, payment *domain.MonthlyPayment) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE monthly_payments
		 SET status = ?, payment_method = ?, payment_reference = ?, paid_amount = ?,
		     payment_proof = ?, paid_reported_by = ?, paid_at = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		payment.Status,
		payment.PaymentMethod,
		payment.PaymentReference,
		payment.PaidAmount,
		payment.PaymentProof,
		payment.PaidReportedBy,
		payment.PaidAt,
		payment.Notes,
		payment.UpdatedAt,
		payment.ID,
	).Error
}

func monthsCondition(scope *gorm.DB, months []period.YearMonth) *gorm.DB {
	cond := scope.Where("1 = 0")
	for _, ym := range months {
		cond = cond.Or("year = ? AND month = ?", ym.Year, ym.Month)
	}
	return cond
}
