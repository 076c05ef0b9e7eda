package account

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User maps an identity-provider account onto an internal record.
type User struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ExternalID string    `gorm:"size:255;uniqueIndex:idx_users_external_id;not null" json:"-"`
	Name       string    `gorm:"size:255" json:"name"`
	Email      string    `gorm:"size:320" json:"email"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName defines the table name for the User model.
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a random identifier when none was set.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if strings.TrimSpace(u.ID) == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
