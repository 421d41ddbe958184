package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnrirwin/devicedeck/internal/database"
	"github.com/johnrirwin/devicedeck/internal/models"
)

// MemoryStore keeps accounts in process memory. It backs the service when
// no database is configured, so accounts do not survive a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]*models.User
	identities map[string]*models.UserIdentity
	tokens     map[string]*models.RefreshToken
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory user store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*models.User),
		identities: make(map[string]*models.UserIdentity),
		tokens:     make(map[string]*models.RefreshToken),
		now:        time.Now,
	}
}

func (m *MemoryStore) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(params.Email))
	for _, u := range m.users {
		if u.Email == email {
			return nil, database.ErrEmailTaken
		}
	}

	status := params.Status
	if status == "" {
		status = models.UserStatusActive
	}
	now := m.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: params.Password,
		DisplayName:  params.DisplayName,
		AvatarURL:    params.AvatarURL,
		Phone:        params.Phone,
		Role:         models.UserRoleCustomer,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[user.ID] = user
	return copyUser(user), nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyUser(m.users[id]), nil
}

func (m *MemoryStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) UpdateProfile(ctx context.Context, id string, params models.UpdateProfileParams) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	if params.DisplayName != nil {
		user.DisplayName = *params.DisplayName
	}
	if params.AvatarURL != nil {
		user.AvatarURL = *params.AvatarURL
	}
	if params.Phone != nil {
		user.Phone = *params.Phone
	}
	user.UpdatedAt = m.now().UTC()
	return copyUser(user), nil
}

func (m *MemoryStore) UpdateLastLogin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, ok := m.users[id]; ok {
		now := m.now().UTC()
		user.LastLoginAt = &now
	}
	return nil
}

func (m *MemoryStore) CreateIdentity(ctx context.Context, userID string, provider models.AuthProvider, subject, email string) (*models.UserIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity := &models.UserIdentity{
		ID:              uuid.NewString(),
		UserID:          userID,
		Provider:        provider,
		ProviderSubject: subject,
		ProviderEmail:   email,
		CreatedAt:       m.now().UTC(),
	}
	m.identities[string(provider)+":"+subject] = identity
	c := *identity
	return &c, nil
}

func (m *MemoryStore) GetIdentityByProvider(ctx context.Context, provider models.AuthProvider, subject string) (*models.UserIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	identity, ok := m.identities[string(provider)+":"+subject]
	if !ok {
		return nil, nil
	}
	c := *identity
	return &c, nil
}

func (m *MemoryStore) CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: m.now().UTC(),
	}
	m.tokens[tokenHash] = token
	c := *token
	return &c, nil
}

// GetRefreshTokenByHash returns nil for unknown, revoked or expired tokens
func (m *MemoryStore) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.tokens[tokenHash]
	if !ok || token.RevokedAt != nil || !token.ExpiresAt.After(m.now()) {
		return nil, nil
	}
	c := *token
	return &c, nil
}

func (m *MemoryStore) RevokeRefreshToken(ctx context.Context, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	for _, token := range m.tokens {
		if token.ID == tokenID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (m *MemoryStore) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	for _, token := range m.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
