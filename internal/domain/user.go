package domain

import "time"

// AuthProvider records how an account signs in.
type AuthProvider string

const (
	ProviderPassword AuthProvider = "password"
	ProviderOIDC     AuthProvider = "oidc"
)

// User is a marketplace account.
type User struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	AvatarURL        string
	Role             Role
	Provider         AuthProvider
	IsPremium        bool
	PremiumExpiresAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasActivePremium reports whether the premium window is still open at now.
func (u *User) HasActivePremium(now time.Time) bool {
	if u == nil || !u.IsPremium {
		return false
	}
	return u.PremiumExpiresAt == nil || now.Before(*u.PremiumExpiresAt)
}
