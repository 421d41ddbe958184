package models

import (
	"strings"
	"time"
)

// UserStatus represents the status of a user account
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// AuthProvider represents an identity provider
type AuthProvider string

const (
	AuthProviderEmail  AuthProvider = "email"
	AuthProviderGoogle AuthProvider = "google"
)

// UserRole mirrors the storefront's user_roles table
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

// User represents a shopper account
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	DisplayName  string     `json:"displayName"`
	AvatarURL    string     `json:"avatarUrl,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Role         UserRole   `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// EffectiveDisplayName falls back to the email's local part
func (u *User) EffectiveDisplayName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

// UserIdentity represents a linked identity provider
type UserIdentity struct {
	ID              string       `json:"id"`
	UserID          string       `json:"userId"`
	Provider        AuthProvider `json:"provider"`
	ProviderSubject string       `json:"providerSubject"`
	ProviderEmail   string       `json:"providerEmail"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// AuthTokens represents the tokens returned after authentication
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	User      *User       `json:"user"`
	Tokens    *AuthTokens `json:"tokens"`
	IsNewUser bool        `json:"isNewUser,omitempty"`
	IsLinked  bool        `json:"isLinked,omitempty"`
}

// SignupParams represents email signup input
type SignupParams struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone,omitempty"`
}

// LoginParams represents email login input
type LoginParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleLoginParams carries a Google Identity Services ID token or an auth code
type GoogleLoginParams struct {
	IDToken     string `json:"idToken,omitempty"`
	Code        string `json:"code,omitempty"`
	RedirectURI string `json:"redirectUri,omitempty"`
}

// GoogleClaims represents the claims from a Google ID token
type GoogleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// CreateUserParams represents parameters for creating a user.
// Password is already hashed; the store seals Phone before writing it.
type CreateUserParams struct {
	Email       string
	Password    string
	DisplayName string
	AvatarURL   string
	Phone       string
	Status      UserStatus
}

// UpdateProfileParams represents a partial profile update
type UpdateProfileParams struct {
	DisplayName *string `json:"displayName,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}

// RefreshToken represents a stored refresh token
type RefreshToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expiresAt"`
	CreatedAt time.Time  `json:"createdAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}
