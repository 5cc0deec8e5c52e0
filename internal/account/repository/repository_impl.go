package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fckfck97/cie-corpoindustrial/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO accounts (id, email, username, role, enterprise, phone, is_active, verified, document_type, document_number, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.Username,
		account.Role,
		account.Enterprise,
		account.Phone,
		account.IsActive,
		account.Verified,
		account.DocumentType,
		account.DocumentNumber,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Account, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Account, error) {
	return r.findOne(ctx, db, "LOWER(email) = LOWER(?)", email)
}

func (r *repo) FindEnterpriseByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Account, error) {
	return r.findOne(ctx, db, "role = ? AND id = ?", domain.RoleEnterprise, id)
}

func (r *repo) FindEnterpriseByName(ctx context.Context, db *gorm.DB, name string) (*domain.Account, error) {
	return r.findOne(ctx, db, "role = ? AND LOWER(enterprise) = LOWER(?)", domain.RoleEnterprise, name)
}

func (r *repo) FindEnterpriseByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.Account, error) {
	return r.findOne(ctx, db, "role = ? AND LOWER(username) = LOWER(?)", domain.RoleEnterprise, username)
}

func (r *repo) FindEnterpriseByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Account, error) {
	return r.findOne(ctx, db, "role = ? AND LOWER(email) = LOWER(?)", domain.RoleEnterprise, email)
}

func (r *repo) ListEnterprises(ctx context.Context, db *gorm.DB) ([]*domain.Account, error) {
	var accounts []*domain.Account
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("role = ?", domain.RoleEnterprise).
		Order("enterprise, username").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) CountEmployeesByReferences(ctx context.Context, db *gorm.DB, refs []string) (int64, error) {
	if len(refs) == 0 {
		return 0, nil
	}
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("role = ? AND enterprise IN ?", domain.RoleEmployee, refs).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...interface{}) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where(query, args...).
		Limit(1).
		Find(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}
