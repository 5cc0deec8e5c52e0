package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/fckfck97/cie-corpoindustrial/internal/account/domain"
	"gorm.io/gorm"
)

// EnsureAdmin creates the bootstrap admin account when no admin exists yet.
// Login happens over OTP, so no password is stored.
func EnsureAdmin(db *gorm.DB, email string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&accountdomain.Account{}).
			Where("role = ?", accountdomain.RoleAdmin).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		admin := accountdomain.Account{
			ID:        node.Generate(),
			Email:     email,
			Username:  "admin",
			Role:      accountdomain.RoleAdmin,
			IsActive:  true,
			Verified:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Create(&admin).Error
	})
}
