package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/fckfck97/cie-corpoindustrial/internal/account/domain"
	billingdomain "github.com/fckfck97/cie-corpoindustrial/internal/billing/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/clock"
	"github.com/fckfck97/cie-corpoindustrial/internal/config"
	"github.com/fckfck97/cie-corpoindustrial/internal/notifier/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/observability/metrics"
	"github.com/fckfck97/cie-corpoindustrial/internal/providers/email"
	"github.com/fckfck97/cie-corpoindustrial/internal/providers/sms"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	BillingRepo billingdomain.Repository
	Accounts    accountdomain.Service
	Email       email.Provider
	SMS         sms.Provider
	Holder      *config.BillingConfigHolder
	Metrics     *metrics.Metrics
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	billingRepo billingdomain.Repository
	accounts    accountdomain.Service
	email       email.Provider
	sms         sms.Provider
	holder      *config.BillingConfigHolder
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("notifier.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		billingRepo: p.BillingRepo,
		accounts:    p.Accounts,
		email:       p.Email,
		sms:         p.SMS,
		holder:      p.Holder,
		metrics:     p.Metrics,
	}
}

// Run executes one pass over every unpaid payment. A live run writes one log
// row per (payment, stage) and skips stages already logged; a dry run reports
// what would be sent without touching the log, so it can be replayed.
func (s *Service) Run(ctx context.Context, req domain.RunRequest) (domain.RunResponse, error) {
	today := clock.Today(s.clock)

	stageFilter := 0
	if raw := strings.TrimSpace(req.Stage); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return domain.RunResponse{}, domain.ErrInvalidStage
		}
		if parsed < 1 || parsed > 5 {
			return domain.RunResponse{}, domain.ErrStageOutOfRange
		}
		stageFilter = parsed
	}

	var enterpriseID snowflake.ID
	if raw := strings.TrimSpace(req.EnterpriseID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.RunResponse{}, domain.ErrInvalidEnterpriseID
		}
		enterpriseID = parsed
	}

	// Keep statuses honest before evaluating stages.
	overdueMoved, err := s.billingRepo.PromoteOverdue(ctx, s.db, enterpriseID, today)
	if err != nil {
		return domain.RunResponse{}, err
	}
	s.metrics.AddOverduePromotions(overdueMoved)

	payments, err := s.billingRepo.ListUnpaid(ctx, s.db, enterpriseID)
	if err != nil {
		return domain.RunResponse{}, err
	}

	cfg := s.holder.Get()
	results := make([]domain.Result, 0, len(payments))
	sentCount := 0
	skippedCount := 0
	enterprises := map[snowflake.ID]*accountdomain.Account{}

	for _, payment := range payments {
		stage := domain.StageFor(payment, today)
		if stage == 0 {
			continue
		}
		if stageFilter != 0 && stage != stageFilter {
			continue
		}

		enterprise, ok := enterprises[payment.EnterpriseID]
		if !ok {
			enterprise, err = s.accounts.GetByID(ctx, payment.EnterpriseID.String())
			if err != nil && !errors.Is(err, accountdomain.ErrNotFound) {
				return domain.RunResponse{}, err
			}
			enterprises[payment.EnterpriseID] = enterprise
		}
		if enterprise == nil {
			continue
		}

		enterpriseName := enterprise.DisplayName()
		template := domain.MessagesFor(payment, enterpriseName, stage, today)
		if template == nil {
			continue
		}

		existing, err := s.repo.FindLog(ctx, s.db, payment.ID, stage)
		if err != nil {
			return domain.RunResponse{}, err
		}
		if existing != nil && !req.DryRun {
			skippedCount++
			s.metrics.IncNotificationSkipped(stage)
			results = append(results, domain.Result{
				PaymentID:       payment.ID.String(),
				EnterpriseID:    payment.EnterpriseID.String(),
				EnterpriseName:  enterpriseName,
				EnterpriseEmail: enterprise.Email,
				EnterprisePhone: existing.SentToPhone,
				Stage:           stage,
				StageLabel:      template.Label,
				Status:          "skipped_already_notified",
				Errors:          []string{},
			})
			continue
		}

		phone := domain.NormalizePhone(enterprise.Phone)
		address := strings.TrimSpace(strings.ToLower(enterprise.Email))
		affectedUsers, err := s.accounts.CountEmployees(ctx, enterprise)
		if err != nil {
			return domain.RunResponse{}, err
		}

		emailSent := false
		smsSent := false
		errs := []string{}

		if !req.DryRun {
			switch {
			case address == "":
				errs = append(errs, "email_missing")
			case !cfg.EmailEnabled:
				errs = append(errs, "email_channel_disabled")
			default:
				if serr := s.email.Send(ctx, []string{address}, template.Subject, template.Email); serr != nil {
					errs = append(errs, fmt.Sprintf("email_error: %v", serr))
				} else {
					emailSent = true
					s.metrics.IncNotificationSent(stage, "email")
				}
			}

			switch {
			case phone == "":
				errs = append(errs, "phone_missing_or_invalid")
			case !cfg.SMSEnabled:
				errs = append(errs, "sms_channel_disabled")
			default:
				if serr := s.sms.Send(ctx, phone, template.SMS); serr != nil {
					errs = append(errs, fmt.Sprintf("sms_error: %v", serr))
				} else {
					smsSent = true
					s.metrics.IncNotificationSent(stage, "sms")
				}
			}

			now := s.clock.Now().UTC()
			logRow := &domain.NotificationLog{
				ID:           s.genID.Generate(),
				PaymentID:    payment.ID,
				EnterpriseID: payment.EnterpriseID,
				Stage:        stage,
				StageLabel:   template.Label,
				EmailSent:    emailSent,
				SMSSent:      smsSent,
				SentToEmail:  address,
				SentToPhone:  phone,
				Metadata: datatypes.JSONMap{
					"auth_source":    req.AuthSource,
					"today":          today.Format("2006-01-02"),
					"errors":         errs,
					"affected_users": affectedUsers,
				},
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.UpsertLog(ctx, s.db, logRow); err != nil {
				return domain.RunResponse{}, err
			}
			sentCount++
		}

		result := domain.Result{
			PaymentID:       payment.ID.String(),
			EnterpriseID:    payment.EnterpriseID.String(),
			EnterpriseName:  enterpriseName,
			EnterpriseEmail: address,
			EnterprisePhone: phone,
			AffectedUsers:   affectedUsers,
			Stage:           stage,
			StageLabel:      template.Label,
			DryRun:          req.DryRun,
			Status:          resultStatus(req.DryRun, emailSent, smsSent),
			Errors:          errs,
		}
		if !req.DryRun {
			result.EmailSent = &emailSent
			result.SMSSent = &smsSent
		}
		results = append(results, result)
	}

	s.log.Info("delinquency notification run",
		zap.Bool("dry_run", req.DryRun),
		zap.String("auth_source", req.AuthSource),
		zap.Int64("overdue_updated", overdueMoved),
		zap.Int("sent", sentCount),
		zap.Int("skipped", skippedCount),
		zap.Int("results", len(results)),
	)

	return domain.RunResponse{
		Detail: "Notificaciones de mora procesadas.",
		Meta: domain.RunMeta{
			Today:        today.Format("2006-01-02"),
			DryRun:       req.DryRun,
			AuthSource:   req.AuthSource,
			OverdueMoved: overdueMoved,
			SentCount:    sentCount,
			SkippedCount: skippedCount,
			TotalResults: len(results),
		},
		Results: results,
	}, nil
}

func resultStatus(dryRun, emailSent, smsSent bool) string {
	if dryRun {
		return "dry_run"
	}
	if emailSent || smsSent {
		return "sent"
	}
	return "no_channel_sent"
}
