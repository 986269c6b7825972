package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Username       string    `gorm:"uniqueIndex;size:20;not null" json:"username"`
	Email          string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash   string    `gorm:"size:72;not null" json:"-"`
	IsAdmin        bool      `gorm:"not null;default:false" json:"isAdmin"`
	ProfilePicture string    `gorm:"size:2048" json:"profilePicture,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Changes holds a partial profile update. Nil fields are left untouched.
type Changes struct {
	Username       *string
	Email          *string
	PasswordHash   *string
	ProfilePicture *string
	IsAdmin        *bool
}

func (c Changes) Empty() bool {
	return c.Username == nil && c.Email == nil && c.PasswordHash == nil &&
		c.ProfilePicture == nil && c.IsAdmin == nil
}

// Columns returns the column/value map for a gorm Updates call.
func (c Changes) Columns() map[string]any {
	cols := make(map[string]any)
	if c.Username != nil {
		cols["username"] = *c.Username
	}
	if c.Email != nil {
		cols["email"] = *c.Email
	}
	if c.PasswordHash != nil {
		cols["password_hash"] = *c.PasswordHash
	}
	if c.ProfilePicture != nil {
		cols["profile_picture"] = *c.ProfilePicture
	}
	if c.IsAdmin != nil {
		cols["is_admin"] = *c.IsAdmin
	}
	return cols
}

// BootstrapID is the only primary key a Bootstrap row may have, so at most one
// first-admin setup can commit.
const BootstrapID = 1

// Bootstrap records which account the first-admin setup created.
type Bootstrap struct {
	ID        int    `gorm:"primaryKey;autoIncrement:false"`
	UserID    string `gorm:"size:36;not null"`
	CreatedAt time.Time
}

func (Bootstrap) TableName() string {
	return "bootstrap"
}
