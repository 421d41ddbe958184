package auth

import (
	"context"
	"time"

	"github.com/johnrirwin/devicedeck/internal/models"
)

// UserStore is the persistence the auth service needs. It is satisfied by
// database.UserStore and by MemoryStore.
type UserStore interface {
	Create(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, params models.UpdateProfileParams) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error

	CreateIdentity(ctx context.Context, userID string, provider models.AuthProvider, subject, email string) (*models.UserIdentity, error)
	GetIdentityByProvider(ctx context.Context, provider models.AuthProvider, subject string) (*models.UserIdentity, error)

	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.RefreshToken, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID string) error
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error
}
