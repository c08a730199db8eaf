// File: internal/user/model.go
package user

import (
	"time"

	"authflow_backend/internal/common"

	"github.com/google/uuid"
)

// User is the local mirror of a provider principal. The identity provider is
// the source of truth; this row exists so the API can serve authenticated
// requests without a provider round trip.
type User struct {
	common.BaseModel
	FirebaseUID *string `gorm:"type:varchar(128);uniqueIndex"`
	Email       *string `gorm:"type:varchar(255);uniqueIndex"` // Pointer to allow NULL (phone-only accounts)
	Phone       *string `gorm:"type:varchar(32);index"`
	Username    *string `gorm:"type:varchar(100)"`
	AuthMethod  string  `gorm:"type:varchar(20);not null;default:'password'"` // "password", "phone", "id_token"
	Role        string  `gorm:"type:varchar(50);not null;default:'user'"`
	LastLoginAt *time.Time
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// UserResponse defines the structure for user data sent in API responses.
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	FirebaseUID *string    `json:"firebase_uid,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Username    *string    `json:"username,omitempty"`
	AuthMethod  string     `json:"auth_method"`
	Role        string     `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// ToUserResponse converts a User model to a UserResponse DTO.
func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		FirebaseUID: u.FirebaseUID,
		Email:       u.Email,
		Phone:       u.Phone,
		Username:    u.Username,
		AuthMethod:  u.AuthMethod,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

func (u *User) GetID() uuid.UUID {
	return u.ID
}

func (u *User) GetEmail() *string {
	return u.Email
}

func (u *User) GetRole() string {
	return u.Role
}
