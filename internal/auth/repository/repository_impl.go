package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fckfck97/cie-corpoindustrial/internal/auth/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, otp *domain.OneTimePassword) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO otp_codes (id, account_id, code, expires_at, is_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		otp.ID, otp.AccountID, otp.Code, otp.ExpiresAt, otp.IsUsed, otp.CreatedAt,
	).Error
}

func (r *repo) FindValid(ctx context.Context, db *gorm.DB, accountID snowflake.ID, code string, now time.Time) (*domain.OneTimePassword, error) {
	var otp domain.OneTimePassword
	err := db.WithContext(ctx).
		Where("account_id = ? AND code = ? AND is_used = ? AND expires_at > ?", accountID, code, false, now).
		Order("created_at DESC").
		Limit(1).
		Find(&otp).Error
	if err != nil {
		return nil, err
	}
	if otp.ID == 0 {
		return nil, nil
	}
	return &otp, nil
}

func (r *repo) MarkUsed(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`UPDATE otp_codes SET is_used = ? WHERE id = ?`, true, id).Error
}
