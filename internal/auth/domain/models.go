package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/fckfck97/cie-corpoindustrial/internal/account/domain"
	"gorm.io/gorm"
)

// OneTimePassword is a short-lived login code delivered over email. A code
// is single use; verification marks it used.
type OneTimePassword struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id,string"`
	AccountID snowflake.ID `gorm:"index" json:"account_id,string"`
	Code      string       `gorm:"size:6" json:"-"`
	ExpiresAt time.Time    `json:"expires_at"`
	IsUsed    bool         `json:"is_used"`
	CreatedAt time.Time    `json:"created_at"`
}

func (OneTimePassword) TableName() string {
	return "otp_codes"
}

type Claims struct {
	AccountID snowflake.ID
	Email     string
	Role      string
}

type RequestResult struct {
	Detail    string `json:"detail"`
	DebugCode string `json:"otp_debug_code,omitempty"`
}

type LoginResponse struct {
	Refresh string                 `json:"refresh"`
	Access  string                 `json:"access"`
	User    *accountdomain.Account `json:"user"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, otp *OneTimePassword) error
	// FindValid returns the newest unused, unexpired code match, or nil.
	FindValid(ctx context.Context, db *gorm.DB, accountID snowflake.ID, code string, now time.Time) (*OneTimePassword, error)
	MarkUsed(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}

type Service interface {
	RequestOTP(ctx context.Context, email string) (RequestResult, error)
	VerifyOTP(ctx context.Context, identifier, code string) (LoginResponse, error)
}

// TokenIssuer signs and validates the JWT pair handed out after OTP
// verification.
type TokenIssuer interface {
	IssuePair(account *accountdomain.Account) (access string, refresh string, err error)
	ParseAccess(token string) (*Claims, error)
}

// ContextError carries the user-facing reason an employee login context is
// invalid.
type ContextError struct {
	Reason string
}

func (e *ContextError) Error() string {
	return e.Reason
}

var (
	ErrUnauthorizedEmail = errors.New("unauthorized_email")
	ErrUserNotFound      = errors.New("user_not_found")
	ErrAccessBlocked     = errors.New("access_blocked")
	ErrInvalidOTP        = errors.New("invalid_otp")
	ErrEmailDelivery     = errors.New("email_delivery_failed")
	ErrInvalidToken      = errors.New("invalid_token")
)
