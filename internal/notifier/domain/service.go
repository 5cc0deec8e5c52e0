package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindLog(ctx context.Context, db *gorm.DB, paymentID snowflake.ID, stage int) (*NotificationLog, error)
	// UpsertLog writes the log row for (payment, stage), replacing the
	// delivery fields if a row already exists.
	UpsertLog(ctx context.Context, db *gorm.DB, log *NotificationLog) error
	ListByEnterprise(ctx context.Context, db *gorm.DB, enterpriseID snowflake.ID) ([]*NotificationLog, error)
}

type RunRequest struct {
	DryRun       bool
	EnterpriseID string
	Stage        string
	AuthSource   string
}

type RunMeta struct {
	Today        string `json:"today"`
	DryRun       bool   `json:"dry_run"`
	AuthSource   string `json:"auth_source"`
	OverdueMoved int64  `json:"overdue_updated"`
	SentCount    int    `json:"sent_count"`
	SkippedCount int    `json:"skipped_count"`
	TotalResults int    `json:"total_results"`
}

type Result struct {
	PaymentID       string   `json:"payment_id"`
	EnterpriseID    string   `json:"enterprise_id"`
	EnterpriseName  string   `json:"enterprise_name"`
	EnterpriseEmail string   `json:"enterprise_email"`
	EnterprisePhone string   `json:"enterprise_phone"`
	AffectedUsers   int64    `json:"affected_users"`
	Stage           int      `json:"stage"`
	StageLabel      string   `json:"stage_label"`
	DryRun          bool     `json:"dry_run"`
	EmailSent       *bool    `json:"email_sent"`
	SMSSent         *bool    `json:"sms_sent"`
	Status          string   `json:"status"`
	Errors          []string `json:"errors"`
}

type RunResponse struct {
	Detail  string   `json:"detail"`
	Meta    RunMeta  `json:"meta"`
	Results []Result `json:"results"`
}

// Service walks every unpaid payment, figures out which reminder stage it is
// in today, and sends the stage message once per payment and stage.
type Service interface {
	Run(ctx context.Context, req RunRequest) (RunResponse, error)
}

var (
	ErrInvalidStage        = errors.New("invalid_stage")
	ErrStageOutOfRange     = errors.New("stage_out_of_range")
	ErrInvalidEnterpriseID = errors.New("invalid_enterprise_id")
)
