package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Account, error)
	FindEnterpriseByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)
	FindEnterpriseByName(ctx context.Context, db *gorm.DB, name string) (*Account, error)
	FindEnterpriseByUsername(ctx context.Context, db *gorm.DB, username string) (*Account, error)
	FindEnterpriseByEmail(ctx context.Context, db *gorm.DB, email string) (*Account, error)
	ListEnterprises(ctx context.Context, db *gorm.DB) ([]*Account, error)
	CountEmployeesByReferences(ctx context.Context, db *gorm.DB, refs []string) (int64, error)
}
