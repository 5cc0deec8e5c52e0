package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleAdmin      = "admin"
	RoleEnterprise = "enterprise"
	RoleEmployee   = "employees"
)

// Account is a portal user. Enterprises store their display name in the
// Enterprise column; employees store a free-text reference to the company
// they belong to, which the resolver interprets at read time.
type Account struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Email          string       `gorm:"not null;uniqueIndex" json:"email"`
	Username       string       `gorm:"not null" json:"username"`
	Role           string       `gorm:"not null;index" json:"role"`
	Enterprise     string       `gorm:"column:enterprise" json:"enterprise,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	IsActive       bool         `gorm:"not null;default:true" json:"is_active"`
	Verified       bool         `gorm:"not null;default:false" json:"verified"`
	DocumentType   string       `json:"document_type,omitempty"`
	DocumentNumber string       `json:"document_number,omitempty"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }

// DisplayName is the label used in notifications: display name, then
// username, then email.
func (a Account) DisplayName() string {
	if a.Enterprise != "" {
		return a.Enterprise
	}
	if a.Username != "" {
		return a.Username
	}
	return a.Email
}

func (a Account) IsAdmin() bool      { return a.Role == RoleAdmin }
func (a Account) IsEnterprise() bool { return a.Role == RoleEnterprise }
func (a Account) IsEmployee() bool   { return a.Role == RoleEmployee }
