package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/fckfck97/cie-corpoindustrial/internal/account/domain"
	accountrepo "github.com/fckfck97/cie-corpoindustrial/internal/account/repository"
	accountservice "github.com/fckfck97/cie-corpoindustrial/internal/account/service"
	"github.com/fckfck97/cie-corpoindustrial/internal/billing/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/billing/repository"
	"github.com/fckfck97/cie-corpoindustrial/internal/clock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	db.Exec(`CREATE TABLE IF NOT EXISTS accounts (
		id BIGINT PRIMARY KEY,
		email TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		enterprise TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		document_type TEXT NOT NULL DEFAULT '',
		document_number TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	db.Exec(`CREATE TABLE IF NOT EXISTS monthly_payments (
		id BIGINT PRIMARY KEY,
		enterprise_id BIGINT NOT NULL,
		year INT NOT NULL,
		month INT NOT NULL,
		amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		due_date TIMESTAMP NOT NULL,
		grace_date TIMESTAMP NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_method TEXT,
		payment_reference TEXT,
		paid_amount NUMERIC(12,2),
		payment_proof TEXT,
		paid_reported_by BIGINT,
		paid_at TIMESTAMP,
		notes TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT ux_payment_period UNIQUE (enterprise_id, year, month)
	)`)
	return db
}

func newTestService(t *testing.T, db *gorm.DB, clk clock.Clock) *Service {
	log := zaptest.NewLogger(t)
	accounts := accountservice.New(accountservice.Params{
		DB:   db,
		Log:  log,
		Repo: accountrepo.Provide(),
	})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return &Service{
		db:       db,
		log:      log,
		genID:    node,
		clock:    clk,
		repo:     repository.Provide(),
		accounts: accounts,
	}
}

func seedAccount(t *testing.T, db *gorm.DB, node *snowflake.Node, role, email, enterpriseRef string) *accountdomain.Account {
	account := &accountdomain.Account{
		ID:         node.Generate(),
		Email:      email,
		Username:   strings.Split(email, "@")[0],
		Role:       role,
		Enterprise: enterpriseRef,
		IsActive:   true,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func TestEnsureForMonthIdempotent(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	ctx := context.Background()

	enterprise := seedAccount(t, db, svc.genID, accountdomain.RoleEnterprise, "acme@example.com", "Acme SAS")

	first, err := svc.EnsureForMonth(ctx, enterprise.ID, 2025, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, first.Status)
	assert.Equal(t, time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC), first.DueDate)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), first.GraceDate)
	assert.True(t, first.Amount.IsZero())
	assert.Equal(t, time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC), first.CreatedAt)
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	second, err := svc.EnsureForMonth(ctx, enterprise.ID, 2025, 5)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&domain.MonthlyPayment{}).Where("enterprise_id = ?", enterprise.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestIsEnterpriseBlockedPromotesOverdue(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	ctx := context.Background()

	enterprise := seedAccount(t, db, svc.genID, accountdomain.RoleEnterprise, "acme@example.com", "Acme SAS")

	// May's grace ran out on June 2.
	payment, err := svc.EnsureForMonth(ctx, enterprise.ID, 2025, 5)
	require.NoError(t, err)

	blocked, err := svc.IsEnterpriseBlocked(ctx, enterprise)
	require.NoError(t, err)
	assert.True(t, blocked)

	var promoted domain.MonthlyPayment
	require.NoError(t, db.First(&promoted, "id = ?", payment.ID).Error)
	assert.Equal(t, domain.StatusOverdue, promoted.Status)
	assert.True(t, promoted.UpdatedAt.Equal(time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)))
}

func TestIsEnterpriseBlockedWithinGrace(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	ctx := context.Background()

	enterprise := seedAccount(t, db, svc.genID, accountdomain.RoleEnterprise, "acme@example.com", "Acme SAS")
	_, err := svc.EnsureForMonth(ctx, enterprise.ID, 2025, 5)
	require.NoError(t, err)

	blocked, err := svc.IsEnterpriseBlocked(ctx, enterprise)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestIsEnterpriseBlockedIgnoresNonEnterpriseRoles(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	employee := seedAccount(t, db, svc.genID, accountdomain.RoleEmployee, "worker@example.com", "Acme SAS")
	blocked, err := svc.IsEnterpriseBlocked(context.Background(), employee)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestDashboardIncludesLegacyArrears(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	ctx := context.Background()

	enterprise := seedAccount(t, db, svc.genID, accountdomain.RoleEnterprise, "acme@example.com", "Acme SAS")

	// Unpaid debt from the previous year sits outside the cycle window.
	legacyDue := time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC)
	legacy := &domain.MonthlyPayment{
		ID:           svc.genID.Generate(),
		EnterpriseID: enterprise.ID,
		Year:         2024,
		Month:        11,
		DueDate:      legacyDue,
		GraceDate:    legacyDue.AddDate(0, 0, 2),
		Status:       domain.StatusPending,
	}
	require.NoError(t, db.Create(legacy).Error)

	settledDue := time.Date(2024, 10, 31, 0, 0, 0, 0, time.UTC)
	settled := &domain.MonthlyPayment{
		ID:           svc.genID.Generate(),
		EnterpriseID: enterprise.ID,
		Year:         2024,
		Month:        10,
		DueDate:      settledDue,
		GraceDate:    settledDue.AddDate(0, 0, 2),
		Status:       domain.StatusPaid,
	}
	require.NoError(t, db.Create(settled).Error)

	resp, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Len(t, resp.Enterprises, 1)

	entry := resp.Enterprises[0]
	assert.True(t, entry.IsBlocked)
	// May through December 2025 plus the unpaid 2024 row.
	assert.Len(t, entry.Payments, 9)

	var sawLegacy, sawSettled bool
	for _, view := range entry.Payments {
		if view.Year == 2024 && view.Month == 11 {
			sawLegacy = true
			assert.Equal(t, domain.StatusOverdue, view.Status)
			assert.True(t, view.CanRegister)
		}
		if view.Year == 2024 && view.Month == 10 {
			sawSettled = true
		}
	}
	assert.True(t, sawLegacy, "unpaid legacy row must appear in the dashboard")
	assert.False(t, sawSettled, "paid legacy rows stay out of the dashboard")
}

func TestUserAccessBlocked(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	ctx := context.Background()

	enterprise := seedAccount(t, db, svc.genID, accountdomain.RoleEnterprise, "acme@example.com", "Acme SAS")
	_, err := svc.EnsureForMonth(ctx, enterprise.ID, 2025, 5)
	require.NoError(t, err)

	admin := seedAccount(t, db, svc.genID, accountdomain.RoleAdmin, "admin@example.com", "")
	blocked, err := svc.UserAccessBlocked(ctx, admin)
	require.NoError(t, err)
	assert.False(t, blocked, "admins are never blocked")

	employee := seedAccount(t, db, svc.genID, accountdomain.RoleEmployee, "worker@example.com", "Acme SAS")
	blocked, err = svc.UserAccessBlocked(ctx, employee)
	require.NoError(t, err)
	assert.True(t, blocked, "employee inherits the enterprise block")

	orphan := seedAccount(t, db, svc.genID, accountdomain.RoleEmployee, "lost@example.com", "No Such Company")
	blocked, err = svc.UserAccessBlocked(ctx, orphan)
	require.NoError(t, err)
	assert.False(t, blocked, "unresolvable reference fails open")
}

func TestEmployeeLoginContext(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	ctx := context.Background()

	admin := seedAccount(t, db, svc.genID, accountdomain.RoleAdmin, "admin@example.com", "")
	ok, reason, err := svc.EmployeeLoginContext(ctx, admin)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, reason)

	orphan := seedAccount(t, db, svc.genID, accountdomain.RoleEmployee, "lost@example.com", "No Such Company")
	ok, reason, err = svc.EmployeeLoginContext(ctx, orphan)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "Tu cuenta de empleado no tiene empresa asociada. Contacta al administrador.", reason)

	inactive := seedAccount(t, db, svc.genID, accountdomain.RoleEnterprise, "gone@example.com", "Gone SAS")
	require.NoError(t, db.Model(&accountdomain.Account{}).Where("id = ?", inactive.ID).Update("is_active", false).Error)
	employee := seedAccount(t, db, svc.genID, accountdomain.RoleEmployee, "worker@example.com", "Gone SAS")
	ok, reason, err = svc.EmployeeLoginContext(ctx, employee)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "Tu empresa está inactiva. Contacta al administrador.", reason)
}

func TestMarkPaidValidations(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	ctx := context.Background()

	enterprise := seedAccount(t, db, svc.genID, accountdomain.RoleEnterprise, "acme@example.com", "Acme SAS")
	admin := seedAccount(t, db, svc.genID, accountdomain.RoleAdmin, "admin@example.com", "")

	current, err := svc.EnsureForMonth(ctx, enterprise.ID, 2025, 5)
	require.NoError(t, err)
	future, err := svc.EnsureForMonth(ctx, enterprise.ID, 2025, 7)
	require.NoError(t, err)

	base := domain.MarkPaidRequest{
		PaymentID:     current.ID.String(),
		PaymentMethod: domain.MethodTransfer,
		PaidAmount:    "150000",
		ReportedBy:    admin.ID,
	}

	t.Run("unknown payment", func(t *testing.T) {
		req := base
		req.PaymentID = "999999999"
		_, err := svc.MarkPaid(ctx, req)
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})

	t.Run("future period locked", func(t *testing.T) {
		req := base
		req.PaymentID = future.ID.String()
		_, err := svc.MarkPaid(ctx, req)
		assert.ErrorIs(t, err, domain.ErrPaymentWindowLocked)
	})

	t.Run("invalid method", func(t *testing.T) {
		req := base
		req.PaymentMethod = "bitcoin"
		_, err := svc.MarkPaid(ctx, req)
		assert.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)
	})

	t.Run("missing amount", func(t *testing.T) {
		for _, raw := range []string{"", "undefined"} {
			req := base
			req.PaidAmount = raw
			_, err := svc.MarkPaid(ctx, req)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "El valor pagado es obligatorio.", verr.Detail)
		}
	})

	t.Run("malformed amount", func(t *testing.T) {
		req := base
		req.PaidAmount = "abc"
		_, err := svc.MarkPaid(ctx, req)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "El valor pagado no es válido.", verr.Detail)
	})

	t.Run("non positive amount", func(t *testing.T) {
		req := base
		req.PaidAmount = "-10"
		_, err := svc.MarkPaid(ctx, req)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "El valor pagado debe ser mayor a cero.", verr.Detail)
	})

	t.Run("success", func(t *testing.T) {
		req := base
		req.PaymentReference = "TRX-001"
		req.Notes = "pagado en banco"
		paid, err := svc.MarkPaid(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPaid, paid.Status)
		assert.Equal(t, domain.MethodTransfer, paid.PaymentMethod)
		assert.Equal(t, "TRX-001", paid.PaymentReference)
		require.NotNil(t, paid.PaidAmount)
		assert.Equal(t, "150000", paid.PaidAmount.String())
		require.NotNil(t, paid.PaidAt)
		assert.Equal(t, time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC), *paid.PaidAt)
		require.NotNil(t, paid.PaidReportedBy)
		assert.Equal(t, admin.ID, *paid.PaidReportedBy)

		stored, err := svc.repo.FindByID(ctx, db, paid.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, domain.StatusPaid, stored.Status)
		assert.True(t, stored.UpdatedAt.Equal(time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)))
	})
}

func TestMarkPaidUnlocksOnLastDayOfPreviousMonth(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 5, 31, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	ctx := context.Background()

	enterprise := seedAccount(t, db, svc.genID, accountdomain.RoleEnterprise, "acme@example.com", "Acme SAS")
	admin := seedAccount(t, db, svc.genID, accountdomain.RoleAdmin, "admin@example.com", "")
	june, err := svc.EnsureForMonth(ctx, enterprise.ID, 2025, 6)
	require.NoError(t, err)

	paid, err := svc.MarkPaid(ctx, domain.MarkPaidRequest{
		PaymentID:     june.ID.String(),
		PaymentMethod: domain.MethodCash,
		PaidAmount:    "99000.50",
		ReportedBy:    admin.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
}

func TestActivateModes(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 5, 15, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	ctx := context.Background()

	first := seedAccount(t, db, svc.genID, accountdomain.RoleEnterprise, "acme@example.com", "Acme SAS")
	second := seedAccount(t, db, svc.genID, accountdomain.RoleEnterprise, "globex@example.com", "Globex")

	t.Run("dry run writes nothing", func(t *testing.T) {
		resp, err := svc.Activate(ctx, domain.ActivateRequest{Mode: "next", DryRun: true, AuthSource: "admin_jwt"})
		require.NoError(t, err)
		assert.Equal(t, "Simulacion de activacion completada.", resp.Detail)
		assert.Equal(t, 2025, resp.Year)
		assert.Equal(t, 6, resp.Month)
		assert.Len(t, resp.EnterpriseIDs, 2)

		var count int64
		db.Model(&domain.MonthlyPayment{}).Count(&count)
		assert.EqualValues(t, 0, count)
	})

	t.Run("live run creates the period", func(t *testing.T) {
		resp, err := svc.Activate(ctx, domain.ActivateRequest{Mode: "next", AuthSource: "cron_token"})
		require.NoError(t, err)
		assert.Equal(t, "Mensualidades activadas correctamente.", resp.Detail)
		assert.Equal(t, 2, resp.Processed)

		var count int64
		db.Model(&domain.MonthlyPayment{}).Where("year = ? AND month = ?", 2025, 6).Count(&count)
		assert.EqualValues(t, 2, count)
	})

	t.Run("single enterprise filter", func(t *testing.T) {
		resp, err := svc.Activate(ctx, domain.ActivateRequest{
			Mode:         "month",
			Year:         "2025",
			Month:        "9",
			EnterpriseID: first.ID.String(),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Processed)
		assert.Equal(t, []string{first.ID.String()}, resp.EnterpriseIDs)

		var count int64
		db.Model(&domain.MonthlyPayment{}).Where("year = ? AND month = ? AND enterprise_id = ?", 2025, 9, second.ID).Count(&count)
		assert.EqualValues(t, 0, count)
	})

	t.Run("december wraps to january", func(t *testing.T) {
		clk.Set(time.Date(2025, 12, 10, 9, 0, 0, 0, time.UTC))
		resp, err := svc.Activate(ctx, domain.ActivateRequest{Mode: "next", DryRun: true})
		require.NoError(t, err)
		assert.Equal(t, 2026, resp.Year)
		assert.Equal(t, 1, resp.Month)
	})
}

func TestActivateValidation(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 5, 15, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	ctx := context.Background()

	cases := []struct {
		name   string
		req    domain.ActivateRequest
		detail string
	}{
		{"bad mode", domain.ActivateRequest{Mode: "yearly"}, "Parametro mode invalido. Usa: next, current o month."},
		{"month without period", domain.ActivateRequest{Mode: "month"}, "Para mode=month debes enviar year y month."},
		{"non numeric period", domain.ActivateRequest{Mode: "month", Year: "x", Month: "y"}, "year/month deben ser numericos."},
		{"month out of range", domain.ActivateRequest{Mode: "month", Year: "2025", Month: "13"}, "month fuera de rango. Usa 1..12."},
		{"year out of range", domain.ActivateRequest{Mode: "month", Year: "1999", Month: "5"}, "year fuera de rango permitido."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Activate(ctx, tc.req)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.detail, verr.Detail)
		})
	}

	_, err := svc.Activate(ctx, domain.ActivateRequest{Mode: "current", EnterpriseID: "not-an-id"})
	assert.ErrorIs(t, err, domain.ErrInvalidEnterpriseID)
}

func TestGenerateDefaultsAndValidation(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 5, 15, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	ctx := context.Background()

	seedAccount(t, db, svc.genID, accountdomain.RoleEnterprise, "acme@example.com", "Acme SAS")

	resp, err := svc.Generate(ctx, domain.GenerateRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Mensualidades generadas.", resp.Detail)
	assert.Equal(t, 2025, resp.Year)
	assert.Equal(t, 5, resp.Month)
	assert.Equal(t, 1, resp.Processed)

	_, err = svc.Generate(ctx, domain.GenerateRequest{Year: 2025, Month: 13})
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestMyPayments(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 5, 15, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	ctx := context.Background()

	seedAccount(t, db, svc.genID, accountdomain.RoleEnterprise, "acme@example.com", "Acme SAS")
	admin := seedAccount(t, db, svc.genID, accountdomain.RoleAdmin, "admin@example.com", "")
	employee := seedAccount(t, db, svc.genID, accountdomain.RoleEmployee, "worker@example.com", "Acme SAS")
	orphan := seedAccount(t, db, svc.genID, accountdomain.RoleEmployee, "lost@example.com", "No Such Company")

	_, err := svc.MyPayments(ctx, admin)
	assert.ErrorIs(t, err, domain.ErrAdminSelfService)

	_, err = svc.MyPayments(ctx, orphan)
	assert.ErrorIs(t, err, domain.ErrNoEnterprise)

	resp, err := svc.MyPayments(ctx, employee)
	require.NoError(t, err)
	// April (previous) plus May through December, created by the ensure pass.
	assert.EqualValues(t, 9, resp.Summary.Total)
	assert.EqualValues(t, 9, resp.Summary.Pending)
	require.NotEmpty(t, resp.Payments)
	for _, view := range resp.Payments {
		if view.Year == 2025 && view.Month <= 5 {
			assert.True(t, view.CanRegister, "month %d should be open", view.Month)
		}
		if view.Year == 2025 && view.Month >= 7 {
			assert.False(t, view.CanRegister, "month %d should be locked", view.Month)
		}
	}
}
