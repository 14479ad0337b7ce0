package dto

import (
	"time"

	"github.com/pixelvault/marketplace/internal/domain"
)

// SignupRequest payload for new password accounts.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload for password changes.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UpdateProfileRequest payload for profile changes. Absent fields are left unchanged.
type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	AvatarURL        string     `json:"avatarUrl,omitempty"`
	Role             string     `json:"role"`
	Provider         string     `json:"provider"`
	IsPremium        bool       `json:"isPremium"`
	PremiumExpiresAt *time.Time `json:"premiumExpiresAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// NewUserResponse maps a user. It never exposes the password hash.
func NewUserResponse(user *domain.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:               user.ID,
		Name:             user.Name,
		Email:            user.Email,
		AvatarURL:        user.AvatarURL,
		Role:             string(user.Role),
		Provider:         string(user.Provider),
		IsPremium:        user.IsPremium,
		PremiumExpiresAt: user.PremiumExpiresAt,
		CreatedAt:        user.CreatedAt,
	}
}

// NewUserResponses maps a slice of users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, *NewUserResponse(&users[i]))
	}
	return out
}

// SetRoleRequest payload for admin role changes.
type SetRoleRequest struct {
	Role string `json:"role"`
}
