package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table. PostgreSQL generates UUIDs via uuid_generate_v7().
// It is an exported type so it can be used by the GORM Gen tool from other packages.
type UserModel struct {
	ID                  uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Email               string    `gorm:"type:varchar(255);unique;not null"`
	Name                string    `gorm:"type:varchar(100)"`
	PasswordHash        string    `gorm:"type:varchar(255);not null"`
	Role                string    `gorm:"type:varchar(30);not null;index"`
	IsEmailVerified     bool      `gorm:"not null;default:false"`
	TwoFactorEnabled    bool      `gorm:"not null;default:false"`
	FailedLoginAttempts int       `gorm:"not null;default:0"`
	LastLogin           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time

	RefreshTokens []RefreshTokenModel `gorm:"foreignKey:UserID"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
