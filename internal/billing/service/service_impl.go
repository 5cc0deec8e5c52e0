package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/fckfck97/cie-corpoindustrial/internal/account/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/billing/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/billing/period"
	"github.com/fckfck97/cie-corpoindustrial/internal/clock"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Accounts accountdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	accounts accountdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("billing.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		accounts: p.Accounts,
	}
}

// EnsureForMonth upserts the ledger row for a period. The first write sets a
// zero amount and the computed due/grace dates; an existing row is returned
// untouched.
func (s *Service) EnsureForMonth(ctx context.Context, enterpriseID snowflake.ID, year, month int) (*domain.MonthlyPayment, error) {
	dueDate := period.MonthEnd(year, month)
	now := s.clock.Now().UTC()

	payment := &domain.MonthlyPayment{
		ID:           s.genID.Generate(),
		EnterpriseID: enterpriseID,
		Year:         year,
		Month:        month,
		Amount:       decimal.Zero,
		DueDate:      dueDate,
		GraceDate:    dueDate.AddDate(0, 0, period.GraceDays),
		Status:       domain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return s.repo.InsertIfAbsent(ctx, s.db, payment)
}

func (s *Service) ensureCycle(ctx context.Context, enterpriseID snowflake.ID, months []period.YearMonth) error {
	for _, ym := range months {
		if _, err := s.EnsureForMonth(ctx, enterpriseID, ym.Year, ym.Month); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) Dashboard(ctx context.Context) (domain.DashboardResponse, error) {
	today := clock.Today(s.clock)
	cycle := period.CycleMonths(today)

	enterprises, err := s.accounts.ListEnterprises(ctx)
	if err != nil {
		return domain.DashboardResponse{}, err
	}

	results := make([]domain.EnterpriseBilling, 0, len(enterprises))
	for _, enterprise := range enterprises {
		if err := s.ensureCycle(ctx, enterprise.ID, cycle); err != nil {
			return domain.DashboardResponse{}, err
		}

		blocked, err := s.IsEnterpriseBlocked(ctx, enterprise)
		if err != nil {
			return domain.DashboardResponse{}, err
		}

		rows, err := s.repo.ListCycle(ctx, s.db, enterprise.ID, cycle, today)
		if err != nil {
			return domain.DashboardResponse{}, err
		}

		views := make([]domain.PaymentView, 0, len(rows))
		for _, row := range rows {
			views = append(views, domain.PaymentView{
				MonthlyPayment: *row,
				CanRegister:    period.CanRegister(row.Year, row.Month, today),
			})
		}

		prevYear, prevMonth := period.Previous(today.Year(), int(today.Month()))
		entry := domain.EnterpriseBilling{
			Enterprise: enterprise,
			Payments:   views,
			IsBlocked:  blocked,
		}
		for i := range views {
			if views[i].Year == today.Year() && views[i].Month == int(today.Month()) {
				entry.CurrentPayment = &views[i]
			}
			if views[i].Year == prevYear && views[i].Month == prevMonth {
				entry.PreviousPayment = &views[i]
			}
		}
		results = append(results, entry)
	}

	return domain.DashboardResponse{Enterprises: results}, nil
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResponse, error) {
	today := clock.Today(s.clock)
	year := req.Year
	month := req.Month
	if year == 0 {
		year = today.Year()
	}
	if month == 0 {
		month = int(today.Month())
	}
	if month < 1 || month > 12 || year < 2000 || year > 2100 {
		return domain.GenerateResponse{}, domain.ErrInvalidPeriod
	}

	enterprises, err := s.accounts.ListEnterprises(ctx)
	if err != nil {
		return domain.GenerateResponse{}, err
	}
	for _, enterprise := range enterprises {
		if _, err := s.EnsureForMonth(ctx, enterprise.ID, year, month); err != nil {
			return domain.GenerateResponse{}, err
		}
	}

	s.log.Info("monthly payments generated",
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Int("enterprises", len(enterprises)),
	)
	return domain.GenerateResponse{
		Detail:    "Mensualidades generadas.",
		Year:      year,
		Month:     month,
		Processed: len(enterprises),
	}, nil
}

func (s *Service) Activate(ctx context.Context, req domain.ActivateRequest) (domain.ActivateResponse, error) {
	today := clock.Today(s.clock)
	year, month, mode, err := resolveActivationPeriod(req, today)
	if err != nil {
		return domain.ActivateResponse{}, err
	}

	enterprises, err := s.accounts.ListEnterprises(ctx)
	if err != nil {
		return domain.ActivateResponse{}, err
	}
	if target := strings.TrimSpace(req.EnterpriseID); target != "" {
		id, perr := snowflake.ParseString(target)
		if perr != nil {
			return domain.ActivateResponse{}, domain.ErrInvalidEnterpriseID
		}
		filtered := enterprises[:0]
		for _, enterprise := range enterprises {
			if enterprise.ID == id {
				filtered = append(filtered, enterprise)
			}
		}
		enterprises = filtered
	}

	ids := make([]string, 0, len(enterprises))
	for _, enterprise := range enterprises {
		ids = append(ids, enterprise.ID.String())
	}

	if !req.DryRun {
		for _, enterprise := range enterprises {
			if _, err := s.EnsureForMonth(ctx, enterprise.ID, year, month); err != nil {
				return domain.ActivateResponse{}, err
			}
		}
	}

	s.log.Info("billing activation run",
		zap.String("mode", mode),
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Bool("dry_run", req.DryRun),
		zap.Int("processed", len(ids)),
		zap.String("auth_source", req.AuthSource),
	)
	detail := "Mensualidades activadas correctamente."
	if req.DryRun {
		detail = "Simulacion de activacion completada."
	}
	return domain.ActivateResponse{
		Detail:        detail,
		Mode:          mode,
		Year:          year,
		Month:         month,
		DryRun:        req.DryRun,
		Processed:     len(ids),
		EnterpriseIDs: ids,
		AuthSource:    req.AuthSource,
	}, nil
}

func (s *Service) MarkPaid(ctx context.Context, req domain.MarkPaidRequest) (*domain.MonthlyPayment, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.PaymentID))
	if err != nil || id == 0 {
		return nil, domain.ErrPaymentNotFound
	}
	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}

	today := clock.Today(s.clock)
	if !period.CanRegister(payment.Year, payment.Month, today) {
		return nil, domain.ErrPaymentWindowLocked
	}

	if !domain.ValidMethod(req.PaymentMethod) {
		return nil, domain.ErrInvalidPaymentMethod
	}
	amountRaw := strings.TrimSpace(req.PaidAmount)
	if amountRaw == "" || amountRaw == "undefined" {
		return nil, &domain.ValidationError{Detail: "El valor pagado es obligatorio."}
	}
	paidAmount, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return nil, &domain.ValidationError{Detail: "El valor pagado no es válido."}
	}
	if !paidAmount.IsPositive() {
		return nil, &domain.ValidationError{Detail: "El valor pagado debe ser mayor a cero."}
	}

	now := s.clock.Now().UTC()
	payment.Status = domain.StatusPaid
	payment.PaymentMethod = req.PaymentMethod
	payment.PaymentReference = cleanOptional(req.PaymentReference)
	payment.PaidAmount = &paidAmount
	if req.ProofPath != "" {
		payment.PaymentProof = req.ProofPath
	}
	reportedBy := req.ReportedBy
	payment.PaidReportedBy = &reportedBy
	payment.PaidAt = &now
	payment.UpdatedAt = now
	if notes := cleanOptional(req.Notes); notes != "" {
		payment.Notes = notes
	}

	if err := s.repo.MarkPaid(ctx, s.db, payment); err != nil {
		return nil, err
	}

	s.log.Info("payment marked paid",
		zap.String("payment_id", payment.ID.String()),
		zap.String("enterprise_id", payment.EnterpriseID.String()),
		zap.String("period", payment.PeriodLabel()),
		zap.String("method", payment.PaymentMethod),
	)
	return payment, nil
}

func (s *Service) Report(ctx context.Context, req domain.ReportRequest) (domain.ReportResponse, error) {
	filter := domain.ReportFilter{}
	if raw := strings.TrimSpace(req.EnterpriseID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ReportResponse{}, domain.ErrInvalidEnterpriseID
		}
		filter.EnterpriseID = id
	}
	if raw := strings.TrimSpace(req.Year); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return domain.ReportResponse{}, domain.ErrInvalidPeriod
		}
		filter.Year = year
	}
	if raw := strings.TrimSpace(req.Month); raw != "" {
		month, err := strconv.Atoi(raw)
		if err != nil {
			return domain.ReportResponse{}, domain.ErrInvalidPeriod
		}
		filter.Month = month
	}

	payments, err := s.repo.ListReport(ctx, s.db, filter)
	if err != nil {
		return domain.ReportResponse{}, err
	}

	return domain.ReportResponse{
		Summary: domain.Summarize(payments),
		Filters: map[string]string{
			"enterprise_id": req.EnterpriseID,
			"year":          req.Year,
			"month":         req.Month,
		},
		Payments: payments,
	}, nil
}

func (s *Service) MyPayments(ctx context.Context, account *accountdomain.Account) (domain.MyPaymentsResponse, error) {
	if account == nil || account.IsAdmin() {
		return domain.MyPaymentsResponse{}, domain.ErrAdminSelfService
	}

	enterprise, err := s.accounts.ResolveEnterprise(ctx, account)
	if err != nil {
		return domain.MyPaymentsResponse{}, err
	}
	if enterprise == nil {
		return domain.MyPaymentsResponse{}, domain.ErrNoEnterprise
	}

	today := clock.Today(s.clock)
	cycle := period.CycleMonths(today)
	if err := s.ensureCycle(ctx, enterprise.ID, cycle); err != nil {
		return domain.MyPaymentsResponse{}, err
	}

	rows, err := s.repo.ListCycleByStatus(ctx, s.db, enterprise.ID, cycle)
	if err != nil {
		return domain.MyPaymentsResponse{}, err
	}

	views := make([]domain.PaymentView, 0, len(rows))
	for _, row := range rows {
		views = append(views, domain.PaymentView{
			MonthlyPayment: *row,
			CanRegister:    period.CanRegister(row.Year, row.Month, today),
		})
	}

	return domain.MyPaymentsResponse{
		Summary:  domain.Summarize(rows),
		Payments: views,
	}, nil
}

func resolveActivationPeriod(req domain.ActivateRequest, today time.Time) (int, int, string, error) {
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = domain.ModeNext
	}

	switch mode {
	case domain.ModeCurrent:
		return today.Year(), int(today.Month()), mode, nil
	case domain.ModeNext:
		if today.Month() == time.December {
			return today.Year() + 1, 1, mode, nil
		}
		return today.Year(), int(today.Month()) + 1, mode, nil
	case domain.ModeMonth:
		yearRaw := strings.TrimSpace(req.Year)
		monthRaw := strings.TrimSpace(req.Month)
		if yearRaw == "" || monthRaw == "" {
			return 0, 0, "", &domain.ValidationError{Detail: "Para mode=month debes enviar year y month."}
		}
		year, yerr := strconv.Atoi(yearRaw)
		month, merr := strconv.Atoi(monthRaw)
		if yerr != nil || merr != nil {
			return 0, 0, "", &domain.ValidationError{Detail: "year/month deben ser numericos."}
		}
		if month < 1 || month > 12 {
			return 0, 0, "", &domain.ValidationError{Detail: "month fuera de rango. Usa 1..12."}
		}
		if year < 2000 || year > 2100 {
			return 0, 0, "", &domain.ValidationError{Detail: "year fuera de rango permitido."}
		}
		return year, month, mode, nil
	default:
		return 0, 0, "", &domain.ValidationError{Detail: "Parametro mode invalido. Usa: next, current o month."}
	}
}

func cleanOptional(value string) string {
	value = strings.TrimSpace(value)
	if value == "undefined" {
		return ""
	}
	return value
}
