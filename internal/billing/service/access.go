package service

import (
	"context"

	accountdomain "github.com/fckfck97/cie-corpoindustrial/internal/account/domain"
	"github.com/fckfck97/cie-corpoindustrial/internal/clock"
	"go.uber.org/zap"
)

// IsEnterpriseBlocked reports whether the enterprise has debt past its grace
// date. Expired pending rows are promoted to overdue first, so reading the
// gate keeps the ledger statuses honest.
func (s *Service) IsEnterpriseBlocked(ctx context.Context, enterprise *accountdomain.Account) (bool, error) {
	if enterprise == nil || !enterprise.IsEnterprise() {
		return false, nil
	}
	today := clock.Today(s.clock)

	if _, err := s.repo.PromoteOverdue(ctx, s.db, enterprise.ID, today); err != nil {
		return false, err
	}
	return s.repo.HasBlockingDebt(ctx, s.db, enterprise.ID, today)
}

// UserAccessBlocked decides whether the account may use the portal. Admins
// are never blocked. An employee whose enterprise cannot be resolved is let
// through; blocking on a broken reference would lock people out over a data
// entry problem.
func (s *Service) UserAccessBlocked(ctx context.Context, account *accountdomain.Account) (bool, error) {
	if account == nil || account.IsAdmin() {
		return false, nil
	}

	enterprise, err := s.accounts.ResolveEnterprise(ctx, account)
	if err != nil {
		return false, err
	}
	if enterprise == nil {
		if account.IsEmployee() {
			s.log.Warn("employee enterprise unresolved, access allowed",
				zap.String("account_id", account.ID.String()),
				zap.String("enterprise_ref", account.Enterprise),
			)
		}
		return false, nil
	}
	return s.IsEnterpriseBlocked(ctx, enterprise)
}

// EmployeeLoginContext validates that an employee points at a resolvable,
// active enterprise. The payment block is a separate check on purpose; it
// maps to a different HTTP status at the edge.
func (s *Service) EmployeeLoginContext(ctx context.Context, account *accountdomain.Account) (bool, string, error) {
	if account == nil || !account.IsEmployee() {
		return true, "", nil
	}

	enterprise, err := s.accounts.ResolveEnterprise(ctx, account)
	if err != nil {
		return false, "", err
	}
	if enterprise == nil {
		return false, "Tu cuenta de empleado no tiene empresa asociada. Contacta al administrador.", nil
	}
	if !enterprise.IsActive {
		return false, "Tu empresa está inactiva. Contacta al administrador.", nil
	}
	return true, "", nil
}
