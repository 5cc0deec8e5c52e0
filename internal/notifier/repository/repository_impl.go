package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fckfck97/cie-corpoindustrial/internal/notifier/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindLog(ctx context.Context, db *gorm.DB, paymentID snowflake.ID, stage int) (*domain.NotificationLog, error) {
	var log domain.NotificationLog
	err := db.WithContext(ctx).
		Where("payment_id = ? AND stage = ?", paymentID, stage).
		Limit(1).
		Find(&log).Error
	if err != nil {
		return nil, err
	}
	if log.ID == 0 {
		return nil, nil
	}
	return &log, nil
}

func (r *repo) UpsertLog(ctx context.Context, db *gorm.DB, log *domain.NotificationLog) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "payment_id"}, {Name: "stage"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"enterprise_id", "stage_label", "email_sent", "sms_sent",
				"sent_to_email", "sent_to_phone", "metadata", "updated_at",
			}),
		}).
		Create(log).Error
}

func (r *repo) ListByEnterprise(ctx context.Context, db *gorm.DB, enterpriseID snowflake.ID) ([]*domain.NotificationLog, error) {
	var logs []*domain.NotificationLog
	err := db.WithContext(ctx).
		Where("enterprise_id = ?", enterpriseID).
		Order("created_at DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
