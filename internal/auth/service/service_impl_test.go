package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/fckfck97/cie-corpoindustrial/internal/account/domain"
	accountrepo "github.com/fckfck97/cie-corpoindustrial/internal/account/repository"
	accountservice "github.com/fckfck97/cie-corpoindustrial/internal/account/service"
	"github.com/fckfck97/cie-corpoindustrial/internal/auth/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/auth/repository"
	billingrepo "github.com/fckfck97/cie-corpoindustrial/internal/billing/repository"
	billingservice "github.com/fckfck97/cie-corpoindustrial/internal/billing/service"
	"github.com/fckfck97/cie-corpoindustrial/internal/clock"
	"github.com/fckfck97/cie-corpoindustrial/internal/config"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fakeEmail struct {
	sentTo   []string
	lastBody string
	err      error
}

func (f *fakeEmail) Send(ctx context.Context, to []string, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sentTo = append(f.sentTo, to...)
	f.lastBody = body
	return nil
}

func openTestDB(t *testing.T) *gorm.DB {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:auth_"+name+"?mode=memory&cache=shared"), &gorm.Config{})
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
	db.Exec(`CREATE TABLE IF NOT EXISTS otp_codes (
		id BIGINT PRIMARY KEY,
		account_id BIGINT NOT NULL,
		code VARCHAR(6) NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		is_used BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	return db
}

type authHarness struct {
	svc   *Service
	db    *gorm.DB
	node  *snowflake.Node
	clk   *clock.FakeClock
	email *fakeEmail
}

func newAuthHarness(t *testing.T, environment string) *authHarness {
	db := openTestDB(t)
	log := zaptest.NewLogger(t)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 5, 15, 10, 0, 0, 0, time.UTC))
	emailProv := &fakeEmail{}
	cfg := config.Config{Environment: environment, AuthJWTSecret: "test-secret"}

	accounts := accountservice.New(accountservice.Params{
		DB:   db,
		Log:  log,
		Repo: accountrepo.Provide(),
	})
	billing := billingservice.New(billingservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    clk,
		Repo:     billingrepo.Provide(),
		Accounts: accounts,
	})

	svc := &Service{
		db:       db,
		log:      log,
		cfg:      cfg,
		genID:    node,
		clock:    clk,
		repo:     repository.Provide(),
		accounts: accounts,
		billing:  billing,
		email:    emailProv,
		tokens:   NewTokenManager(cfg, clk),
	}
	return &authHarness{svc: svc, db: db, node: node, clk: clk, email: emailProv}
}

func (h *authHarness) seedAccount(t *testing.T, role, email, enterpriseRef string, active bool) *accountdomain.Account {
	account := &accountdomain.Account{
		ID:         h.node.Generate(),
		Email:      email,
		Username:   strings.Split(email, "@")[0],
		Role:       role,
		Enterprise: enterpriseRef,
		IsActive:   active,
	}
	require.NoError(t, h.db.Create(account).Error)
	return account
}

func (h *authHarness) lastCode(t *testing.T, accountID snowflake.ID) string {
	var code string
	err := h.db.Model(&domain.OneTimePassword{}).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(1).
		Pluck("code", &code).Error
	require.NoError(t, err)
	require.NotEmpty(t, code)
	return code
}

func TestRequestOTPGates(t *testing.T) {
	h := newAuthHarness(t, "development")
	ctx := context.Background()

	t.Run("unknown email", func(t *testing.T) {
		_, err := h.svc.RequestOTP(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, domain.ErrUnauthorizedEmail)
	})

	t.Run("inactive account", func(t *testing.T) {
		h.seedAccount(t, accountdomain.RoleAdmin, "off@example.com", "", false)
		_, err := h.svc.RequestOTP(ctx, "off@example.com")
		assert.ErrorIs(t, err, domain.ErrUnauthorizedEmail)
	})

	t.Run("employee without enterprise", func(t *testing.T) {
		h.seedAccount(t, accountdomain.RoleEmployee, "lost@example.com", "No Such Company", true)
		_, err := h.svc.RequestOTP(ctx, "lost@example.com")
		var cerr *domain.ContextError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "Tu cuenta de empleado no tiene empresa asociada. Contacta al administrador.", cerr.Reason)
	})

	t.Run("blocked enterprise", func(t *testing.T) {
		enterprise := h.seedAccount(t, accountdomain.RoleEnterprise, "acme@example.com", "Acme SAS", true)
		// Unpaid April, grace long gone by mid May.
		_, err := h.svc.billing.EnsureForMonth(ctx, enterprise.ID, 2025, 4)
		require.NoError(t, err)

		_, err = h.svc.RequestOTP(ctx, "acme@example.com")
		assert.ErrorIs(t, err, domain.ErrAccessBlocked)

		// The employee inherits the block.
		h.seedAccount(t, accountdomain.RoleEmployee, "worker@example.com", "Acme SAS", true)
		_, err = h.svc.RequestOTP(ctx, "worker@example.com")
		assert.ErrorIs(t, err, domain.ErrAccessBlocked)
	})

	t.Run("broken context beats payment block", func(t *testing.T) {
		inactive := h.seedAccount(t, accountdomain.RoleEnterprise, "gone@example.com", "Gone SAS", true)
		require.NoError(t, h.db.Model(&accountdomain.Account{}).Where("id = ?", inactive.ID).Update("is_active", false).Error)
		_, err := h.svc.billing.EnsureForMonth(ctx, inactive.ID, 2025, 4)
		require.NoError(t, err)

		h.seedAccount(t, accountdomain.RoleEmployee, "stuck@example.com", "Gone SAS", true)
		_, err = h.svc.RequestOTP(ctx, "stuck@example.com")
		var cerr *domain.ContextError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "Tu empresa está inactiva. Contacta al administrador.", cerr.Reason)
	})
}

func TestRequestOTPDelivery(t *testing.T) {
	h := newAuthHarness(t, "development")
	ctx := context.Background()
	admin := h.seedAccount(t, accountdomain.RoleAdmin, "admin@example.com", "", true)

	result, err := h.svc.RequestOTP(ctx, " Admin@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "OTP enviado.", result.Detail)
	assert.Empty(t, result.DebugCode)

	code := h.lastCode(t, admin.ID)
	assert.Len(t, code, 6)
	require.Len(t, h.email.sentTo, 1)
	assert.Equal(t, "admin@example.com", h.email.sentTo[0])
	assert.Contains(t, h.email.lastBody, code)
}

func TestRequestOTPEmailFailure(t *testing.T) {
	t.Run("development returns debug code", func(t *testing.T) {
		h := newAuthHarness(t, "development")
		h.seedAccount(t, accountdomain.RoleAdmin, "admin@example.com", "", true)
		h.email.err = errors.New("smtp down")

		result, err := h.svc.RequestOTP(context.Background(), "admin@example.com")
		require.NoError(t, err)
		assert.Equal(t, "No se pudo enviar email en entorno local.", result.Detail)
		assert.Len(t, result.DebugCode, 6)
	})

	t.Run("production fails closed", func(t *testing.T) {
		h := newAuthHarness(t, "production")
		h.seedAccount(t, accountdomain.RoleAdmin, "admin@example.com", "", true)
		h.email.err = errors.New("smtp down")

		_, err := h.svc.RequestOTP(context.Background(), "admin@example.com")
		assert.ErrorIs(t, err, domain.ErrEmailDelivery)
	})
}

func TestVerifyOTP(t *testing.T) {
	h := newAuthHarness(t, "development")
	ctx := context.Background()
	admin := h.seedAccount(t, accountdomain.RoleAdmin, "admin@example.com", "", true)

	_, err := h.svc.RequestOTP(ctx, "admin@example.com")
	require.NoError(t, err)
	code := h.lastCode(t, admin.ID)

	t.Run("unknown identifier", func(t *testing.T) {
		_, err := h.svc.VerifyOTP(ctx, "nobody@example.com", code)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("wrong code", func(t *testing.T) {
		_, err := h.svc.VerifyOTP(ctx, "admin@example.com", "000000")
		assert.ErrorIs(t, err, domain.ErrInvalidOTP)
	})

	t.Run("success and replay", func(t *testing.T) {
		login, err := h.svc.VerifyOTP(ctx, "admin@example.com", code)
		require.NoError(t, err)
		assert.NotEmpty(t, login.Access)
		assert.NotEmpty(t, login.Refresh)
		require.NotNil(t, login.User)
		assert.Equal(t, admin.ID, login.User.ID)

		claims, err := h.svc.tokens.ParseAccess(login.Access)
		require.NoError(t, err)
		assert.Equal(t, admin.ID, claims.AccountID)
		assert.Equal(t, accountdomain.RoleAdmin, claims.Role)

		// The code is single use.
		_, err = h.svc.VerifyOTP(ctx, "admin@example.com", code)
		assert.ErrorIs(t, err, domain.ErrInvalidOTP)
	})
}

func TestVerifyOTPExpiry(t *testing.T) {
	h := newAuthHarness(t, "development")
	ctx := context.Background()
	admin := h.seedAccount(t, accountdomain.RoleAdmin, "admin@example.com", "", true)

	_, err := h.svc.RequestOTP(ctx, "admin@example.com")
	require.NoError(t, err)
	code := h.lastCode(t, admin.ID)

	h.clk.Advance(11 * time.Minute)
	_, err = h.svc.VerifyOTP(ctx, "admin@example.com", code)
	assert.ErrorIs(t, err, domain.ErrInvalidOTP)
}

func TestTokenManager(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 5, 15, 10, 0, 0, 0, time.UTC))
	manager := NewTokenManager(config.Config{AuthJWTSecret: "test-secret"}, clk)
	node, _ := snowflake.NewNode(3)
	account := &accountdomain.Account{ID: node.Generate(), Email: "admin@example.com", Role: accountdomain.RoleAdmin}

	access, refresh, err := manager.IssuePair(account)
	require.NoError(t, err)

	t.Run("access round trip", func(t *testing.T) {
		claims, err := manager.ParseAccess(access)
		require.NoError(t, err)
		assert.Equal(t, account.ID, claims.AccountID)
		assert.Equal(t, "admin@example.com", claims.Email)
	})

	t.Run("refresh rejected as access", func(t *testing.T) {
		_, err := manager.ParseAccess(refresh)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager(config.Config{AuthJWTSecret: "other-secret"}, clk)
		_, err := other.ParseAccess(access)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		clk.Advance(2 * time.Hour)
		_, err := manager.ParseAccess(access)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := manager.ParseAccess("not-a-token")
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})
}
