package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/johnrirwin/devicedeck/internal/crypto"
	"github.com/johnrirwin/devicedeck/internal/models"
)

// ErrEmailTaken is returned when an email is already registered
var ErrEmailTaken = errors.New("email already registered")

const userColumns = `id, email, password_hash, display_name, avatar_url, phone, role, status, created_at, updated_at, last_login_at`

// UserStore handles user, identity and refresh token rows. Phone numbers
// are sealed when a sealer is configured.
type UserStore struct {
	db     *DB
	sealer *crypto.Sealer
}

// NewUserStore creates a new user store; sealer may be nil
func NewUserStore(db *DB, sealer *crypto.Sealer) *UserStore {
	return &UserStore{db: db, sealer: sealer}
}

// Create inserts a user
func (s *UserStore) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	status := params.Status
	if status == "" {
		status = models.UserStatusActive
	}

	phone, err := s.sealPhone(params.Phone)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO users (email, password_hash, display_name, avatar_url, phone, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	user, err := s.scanUser(s.db.QueryRowContext(ctx, query,
		strings.ToLower(strings.TrimSpace(params.Email)), nullString(params.Password),
		params.DisplayName, nullString(params.AvatarURL), nullString(phone), status,
	))
	if isDuplicateKey(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetByID returns nil when no user matches
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.getUser(ctx, query, id)
}

// GetByEmail matches case-insensitively and returns nil when no user matches
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = $1`
	return s.getUser(ctx, query, strings.ToLower(strings.TrimSpace(email)))
}

// UpdateProfile applies the non-nil fields of params
func (s *UserStore) UpdateProfile(ctx context.Context, id string, params models.UpdateProfileParams) (*models.User, error) {
	var sets []string
	var args []interface{}
	argIdx := 1

	if params.DisplayName != nil {
		sets = append(sets, fmt.Sprintf("display_name = $%d", argIdx))
		args = append(args, strings.TrimSpace(*params.DisplayName))
		argIdx++
	}
	if params.AvatarURL != nil {
		sets = append(sets, fmt.Sprintf("avatar_url = $%d", argIdx))
		args = append(args, nullString(strings.TrimSpace(*params.AvatarURL)))
		argIdx++
	}
	if params.Phone != nil {
		phone, err := s.sealPhone(strings.TrimSpace(*params.Phone))
		if err != nil {
			return nil, err
		}
		sets = append(sets, fmt.Sprintf("phone = $%d", argIdx))
		args = append(args, nullString(phone))
		argIdx++
	}

	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), argIdx, userColumns)
	return s.getUser(ctx, query, args...)
}

// UpdateLastLogin stamps the login time
func (s *UserStore) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (s *UserStore) getUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	user, err := s.scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return user, err
}

func (s *UserStore) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var passwordHash, avatarURL, phone sql.NullString
	var lastLoginAt sql.NullTime

	err := row.Scan(
		&user.ID, &user.Email, &passwordHash, &user.DisplayName, &avatarURL, &phone,
		&user.Role, &user.Status, &user.CreatedAt, &user.UpdatedAt, &lastLoginAt,
	)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = passwordHash.String
	user.AvatarURL = avatarURL.String
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}
	if user.Phone, err = s.openPhone(phone.String); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserStore) sealPhone(phone string) (string, error) {
	if s.sealer == nil || phone == "" {
		return phone, nil
	}
	sealed, err := s.sealer.Seal(phone)
	if err != nil {
		return "", fmt.Errorf("failed to seal phone: %w", err)
	}
	return sealed, nil
}

func (s *UserStore) openPhone(stored string) (string, error) {
	if !crypto.IsSealed(stored) {
		return stored, nil
	}
	if s.sealer == nil {
		// sealed under a key this process was not given
		return "", nil
	}
	phone, err := s.sealer.Open(stored)
	if err != nil {
		return "", fmt.Errorf("failed to open phone: %w", err)
	}
	return phone, nil
}

// CreateIdentity links an external identity to a user
func (s *UserStore) CreateIdentity(ctx context.Context, userID string, provider models.AuthProvider, subject, email string) (*models.UserIdentity, error) {
	query := `
		INSERT INTO user_identities (user_id, provider, provider_subject, provider_email)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, provider, provider_subject, provider_email, created_at
	`

	identity := &models.UserIdentity{}
	var providerEmail sql.NullString

	err := s.db.QueryRowContext(ctx, query, userID, provider, subject, nullString(email)).Scan(
		&identity.ID, &identity.UserID, &identity.Provider, &identity.ProviderSubject,
		&providerEmail, &identity.CreatedAt,
	)
	if isDuplicateKey(err) {
		return nil, fmt.Errorf("identity already linked to another account")
	}
	if err != nil {
		return nil, err
	}

	identity.ProviderEmail = providerEmail.String
	return identity, nil
}

// GetIdentityByProvider returns nil when the identity is not linked
func (s *UserStore) GetIdentityByProvider(ctx context.Context, provider models.AuthProvider, subject string) (*models.UserIdentity, error) {
	query := `
		SELECT id, user_id, provider, provider_subject, provider_email, created_at
		FROM user_identities
		WHERE provider = $1 AND provider_subject = $2
	`

	identity := &models.UserIdentity{}
	var providerEmail sql.NullString

	err := s.db.QueryRowContext(ctx, query, provider, subject).Scan(
		&identity.ID, &identity.UserID, &identity.Provider, &identity.ProviderSubject,
		&providerEmail, &identity.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	identity.ProviderEmail = providerEmail.String
	return identity, nil
}

// CreateRefreshToken stores the hash of a new refresh token
func (s *UserStore) CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.RefreshToken, error) {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, token_hash, expires_at, created_at
	`

	token := &models.RefreshToken{}
	err := s.db.QueryRowContext(ctx, query, userID, tokenHash, expiresAt).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// GetRefreshTokenByHash returns nil for unknown, revoked or expired tokens
func (s *UserStore) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > NOW()
	`

	token := &models.RefreshToken{}
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// RevokeRefreshToken revokes one refresh token
func (s *UserStore) RevokeRefreshToken(ctx context.Context, tokenID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = $1`, tokenID)
	return err
}

// RevokeAllUserRefreshTokens revokes every live refresh token for a user
func (s *UserStore) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	return err
}
