package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/fckfck97/cie-corpoindustrial/internal/account/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/auth/domain"
	billingdomain "github.com/fckfck97/cie-corpoindustrial/internal/billing/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/clock"
	"github.com/fckfck97/cie-corpoindustrial/internal/config"
	"github.com/fckfck97/cie-corpoindustrial/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const otpTTL = 10 * time.Minute

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Config   config.Config
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Accounts accountdomain.Service
	Billing  billingdomain.Service
	Email    email.Provider
	Tokens   domain.TokenIssuer
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      config.Config
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	accounts accountdomain.Service
	billing  billingdomain.Service
	email    email.Provider
	tokens   domain.TokenIssuer
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("auth.service"),
		cfg:      p.Config,
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		accounts: p.Accounts,
		billing:  p.Billing,
		email:    p.Email,
		tokens:   p.Tokens,
	}
}

// RequestOTP issues a login code only when the account exists, is active,
// resolves to a valid enterprise context, and is not payment blocked. The
// gate order matters: a broken enterprise reference beats a payment block.
func (s *Service) RequestOTP(ctx context.Context, rawEmail string) (domain.RequestResult, error) {
	address := normalizeEmail(rawEmail)

	account, err := s.accounts.GetByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, accountdomain.ErrNotFound) {
			return domain.RequestResult{}, domain.ErrUnauthorizedEmail
		}
		return domain.RequestResult{}, err
	}
	if !account.IsActive {
		return domain.RequestResult{}, domain.ErrUnauthorizedEmail
	}

	if err := s.checkAccess(ctx, account); err != nil {
		return domain.RequestResult{}, err
	}

	code, err := generateCode()
	if err != nil {
		return domain.RequestResult{}, err
	}
	now := s.clock.Now().UTC()
	otp := &domain.OneTimePassword{
		ID:        s.genID.Generate(),
		AccountID: account.ID,
		Code:      code,
		ExpiresAt: now.Add(otpTTL),
		CreatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, otp); err != nil {
		return domain.RequestResult{}, err
	}

	body := fmt.Sprintf("Tu codigo es: %s", code)
	if err := s.email.Send(ctx, []string{address}, "Codigo de acceso", body); err != nil {
		s.log.Warn("otp email delivery failed", zap.String("email", address), zap.Error(err))
		if s.cfg.Environment != "production" {
			return domain.RequestResult{
				Detail:    "No se pudo enviar email en entorno local.",
				DebugCode: code,
			}, nil
		}
		return domain.RequestResult{}, domain.ErrEmailDelivery
	}

	return domain.RequestResult{Detail: "OTP enviado."}, nil
}

func (s *Service) VerifyOTP(ctx context.Context, identifier, code string) (domain.LoginResponse, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(identifier))
	if err != nil {
		if errors.Is(err, accountdomain.ErrNotFound) {
			return domain.LoginResponse{}, domain.ErrUserNotFound
		}
		return domain.LoginResponse{}, err
	}

	if err := s.checkAccess(ctx, account); err != nil {
		return domain.LoginResponse{}, err
	}

	otp, err := s.repo.FindValid(ctx, s.db, account.ID, strings.TrimSpace(code), s.clock.Now().UTC())
	if err != nil {
		return domain.LoginResponse{}, err
	}
	if otp == nil {
		return domain.LoginResponse{}, domain.ErrInvalidOTP
	}
	if err := s.repo.MarkUsed(ctx, s.db, otp.ID); err != nil {
		return domain.LoginResponse{}, err
	}

	access, refresh, err := s.tokens.IssuePair(account)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	s.log.Info("otp login", zap.String("account_id", account.ID.String()), zap.String("role", account.Role))
	return domain.LoginResponse{Refresh: refresh, Access: access, User: account}, nil
}

func (s *Service) checkAccess(ctx context.Context, account *accountdomain.Account) error {
	ok, reason, err := s.billing.EmployeeLoginContext(ctx, account)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.ContextError{Reason: reason}
	}

	blocked, err := s.billing.UserAccessBlocked(ctx, account)
	if err != nil {
		return err
	}
	if blocked {
		return domain.ErrAccessBlocked
	}
	return nil
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
