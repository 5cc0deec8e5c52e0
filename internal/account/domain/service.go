package domain

import (
	"context"
	"errors"
)

// Service resolves enterprise affiliation for portal users.
//
// ResolveEnterprise returns nil, nil when no strategy matches: callers must
// treat that as "no determinable affiliation", not as an error.
type Service interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	ListEnterprises(ctx context.Context) ([]*Account, error)
	ResolveEnterprise(ctx context.Context, account *Account) (*Account, error)
	CountEmployees(ctx context.Context, enterprise *Account) (int64, error)
}

var (
	ErrNotFound  = errors.New("not_found")
	ErrInvalidID = errors.New("invalid_id")
)
