package users

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of account roles
type Role string

const (
	RoleUser       Role = "user"        // Unprivileged account, the default
	RoleAdmin      Role = "admin"       // May delete accounts
	RoleSuperAdmin Role = "super_admin" // May list and patch accounts
)

// Profile defaults applied to every new account
const (
	DefaultDisplayPicture = "https://styles.redditmedia.com/t5_2c83sr/styles/profileIcon_4dwzf4syg0w51.png"
	DefaultTitle          = "I am new here :)"
	DefaultAbout          = "Edit your profile to add more information about yourself"
	DefaultLanguage       = "english"
	DefaultCountry        = "india"
)

// User is a persisted account
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FullName  string    `gorm:"not null" json:"full_name"`
	DP        string    `json:"dp"`
	Title     string    `json:"title"`
	About     string    `json:"about"`
	Phone     string    `gorm:"uniqueIndex;not null" json:"phone"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"` // bcrypt hash, never serialized
	Language  string    `json:"language"`
	Country   string    `json:"country"`
	Role      Role      `gorm:"not null;default:'user'" json:"role"`
	CreatedBy *string   `gorm:"type:varchar(36);index" json:"created_by,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// BeforeCreate assigns the id and fills the role default
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// EffectiveRole treats an absent role as the lowest privilege
func (u *User) EffectiveRole() Role {
	if u == nil || u.Role == "" {
		return RoleUser
	}
	return u.Role
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the Role is one of the closed set
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// UniqueField names a column that must be unique across all users
type UniqueField string

const (
	FieldEmail    UniqueField = "email"
	FieldUsername UniqueField = "username"
	FieldPhone    UniqueField = "phone"
)

// patchableColumns maps accepted patch keys to columns. Anything else is ignored.
var patchableColumns = map[string]string{
	"full_name":  "full_name",
	"dp":         "dp",
	"title":      "title",
	"about":      "about",
	"phone":      "phone",
	"email":      "email",
	"username":   "username",
	"password":   "password",
	"language":   "language",
	"country":    "country",
	"role":       "role",
	"created_by": "created_by",
}
