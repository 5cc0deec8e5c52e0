package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fckfck97/cie-corpoindustrial/internal/account/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("account.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return nil, domain.ErrInvalidID
	}
	account, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.repo.FindByEmail(ctx, s.db, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

func (s *Service) ListEnterprises(ctx context.Context) ([]*domain.Account, error) {
	return s.repo.ListEnterprises(ctx, s.db)
}

// ResolveEnterprise maps an account to its owning enterprise. Enterprise
// accounts resolve to themselves. For employees the free-text reference is
// tried against five strategies in strict order; the first match wins.
func (s *Service) ResolveEnterprise(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if account == nil {
		return nil, nil
	}
	if account.IsEnterprise() {
		return account, nil
	}
	if !account.IsEmployee() {
		return nil, nil
	}

	ref := strings.TrimSpace(account.Enterprise)
	if ref == "" {
		return nil, nil
	}

	// 1) Reference holds the enterprise id. A malformed id is not an
	// error, it just falls through to the name strategies.
	if id, err := snowflake.ParseString(ref); err == nil && id != 0 {
		match, err := s.repo.FindEnterpriseByID(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return match, nil
		}
	}

	// 2) Exact display-name match.
	match, err := s.repo.FindEnterpriseByName(ctx, s.db, ref)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return match, nil
	}

	// 3) Fallback on the enterprise account's username.
	match, err = s.repo.FindEnterpriseByUsername(ctx, s.db, ref)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return match, nil
	}

	// 4) Fallback on the enterprise account's email.
	match, err = s.repo.FindEnterpriseByEmail(ctx, s.db, ref)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return match, nil
	}

	// 5) Tolerant fallback: compare normalized names over all enterprises.
	normalizedRef := normalizeName(ref)
	if normalizedRef == "" {
		return nil, nil
	}
	candidates, err := s.repo.ListEnterprises(ctx, s.db)
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		if normalizeName(candidate.Enterprise) == normalizedRef {
			return candidate, nil
		}
		if normalizeName(candidate.Username) == normalizedRef {
			return candidate, nil
		}
	}

	return nil, nil
}

// CountEmployees counts employee accounts whose reference points at the
// enterprise through any of its identifying values.
func (s *Service) CountEmployees(ctx context.Context, enterprise *domain.Account) (int64, error) {
	if enterprise == nil {
		return 0, nil
	}
	refs := make([]string, 0, 4)
	for _, value := range []string{enterprise.ID.String(), enterprise.Enterprise, enterprise.Username, enterprise.Email} {
		if value != "" {
			refs = append(refs, value)
		}
	}
	return s.repo.CountEmployeesByReferences(ctx, s.db, refs)
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]`)

func normalizeName(value string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "")
}
