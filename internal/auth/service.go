package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/johnrirwin/devicedeck/internal/cache"
	"github.com/johnrirwin/devicedeck/internal/config"
	"github.com/johnrirwin/devicedeck/internal/database"
	"github.com/johnrirwin/devicedeck/internal/logging"
	"github.com/johnrirwin/devicedeck/internal/models"
)

const (
	googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	googleTokenURL     = "https://oauth2.googleapis.com/token"

	minPasswordLength  = 8
	maxDisplayNameSize = 80
)

// Service handles authentication operations
type Service struct {
	config     config.AuthConfig
	userStore  UserStore
	sessions   sessionRegistry
	logger     *logging.Logger
	httpClient *http.Client
	tokenInfo  string
	tokenURL   string
	now        func() time.Time
}

// NewService creates a new auth service. sessions holds logged-out session
// ids; it may be nil, in which case access tokens stay valid until expiry.
func NewService(userStore UserStore, sessions cache.Cache, cfg config.AuthConfig, logger *logging.Logger) *Service {
	return &Service{
		config:     cfg,
		userStore:  userStore,
		sessions:   sessionRegistry{cache: sessions},
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tokenInfo:  googleTokenInfoURL,
		tokenURL:   googleTokenURL,
		now:        time.Now,
	}
}

// SignupWithEmail creates a new user with email/password
func (s *Service) SignupWithEmail(ctx context.Context, params models.SignupParams) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))

	if email == "" {
		return nil, &AuthError{Code: "invalid_input", Message: "email is required"}
	}
	if !strings.Contains(email, "@") {
		return nil, &AuthError{Code: "invalid_input", Message: "email is invalid"}
	}
	if params.Password == "" {
		return nil, &AuthError{Code: "invalid_input", Message: "password is required"}
	}
	if len(params.Password) < minPasswordLength {
		return nil, &AuthError{Code: "invalid_input", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}

	existing, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, errUserExists
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userStore.Create(ctx, models.CreateUserParams{
		Email:       email,
		Password:    string(passwordHash),
		DisplayName: strings.TrimSpace(params.DisplayName),
		Phone:       strings.TrimSpace(params.Phone),
		Status:      models.UserStatusActive,
	})
	if errors.Is(err, database.ErrEmailTaken) {
		return nil, errUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokens, err := s.generateTokens(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.logger.Info("User signed up with email", logging.WithFields(map[string]interface{}{
		"userId": user.ID,
		"email":  user.Email,
	}))

	return &models.AuthResponse{
		User:      user,
		Tokens:    tokens,
		IsNewUser: true,
	}, nil
}

// LoginWithEmail authenticates a user with email/password
func (s *Service) LoginWithEmail(ctx context.Context, params models.LoginParams) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))

	if email == "" || params.Password == "" {
		return nil, &AuthError{Code: "invalid_input", Message: "email and password are required"}
	}

	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, errInvalidCredentials
	}

	if user.Status != models.UserStatusActive {
		return nil, errAccountDisabled
	}

	if user.PasswordHash == "" {
		return nil, &AuthError{Code: "invalid_credentials", Message: "this account uses Google sign-in"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(params.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	s.touchLogin(ctx, user.ID)

	tokens, err := s.generateTokens(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.logger.Info("User logged in with email", logging.WithFields(map[string]interface{}{
		"userId": user.ID,
		"email":  user.Email,
	}))

	return &models.AuthResponse{
		User:   user,
		Tokens: tokens,
	}, nil
}

// LoginWithGoogle authenticates with a Google ID token or authorization
// code. A Google account whose email matches an existing user is linked to
// that user.
func (s *Service) LoginWithGoogle(ctx context.Context, params models.GoogleLoginParams) (*models.AuthResponse, error) {
	if s.config.GoogleClientID == "" {
		return nil, &AuthError{Code: "provider_disabled", Message: "Google sign-in is not configured"}
	}

	var claims *models.GoogleClaims
	var err error

	switch {
	case params.IDToken != "":
		claims, err = s.validateGoogleIDToken(ctx, params.IDToken)
	case params.Code != "":
		claims, err = s.exchangeGoogleCode(ctx, params.Code, params.RedirectURI)
	default:
		return nil, &AuthError{Code: "invalid_input", Message: "idToken or code is required"}
	}
	if err != nil {
		s.logger.Warn("Google credential rejected", logging.WithField("error", err.Error()))
		return nil, &AuthError{Code: "invalid_token", Message: "Google credentials could not be verified"}
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	isNewUser := false
	isLinked := false

	identity, err := s.userStore.GetIdentityByProvider(ctx, models.AuthProviderGoogle, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to check identity: %w", err)
	}

	var user *models.User

	if identity != nil {
		user, err = s.userStore.GetByID(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if user == nil {
			return nil, &AuthError{Code: "user_not_found", Message: "user not found"}
		}
	} else {
		user, err = s.userStore.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to check user: %w", err)
		}

		if user != nil {
			if !claims.EmailVerified {
				return nil, &AuthError{Code: "unverified_email", Message: "verify your Google email before linking it"}
			}
			if _, err := s.userStore.CreateIdentity(ctx, user.ID, models.AuthProviderGoogle, claims.Subject, email); err != nil {
				return nil, fmt.Errorf("failed to link identity: %w", err)
			}
			isLinked = true
			s.logger.Info("Linked Google identity to existing user", logging.WithFields(map[string]interface{}{
				"userId":    user.ID,
				"googleSub": claims.Subject,
			}))
		} else {
			user, err = s.userStore.Create(ctx, models.CreateUserParams{
				Email:       email,
				DisplayName: strings.TrimSpace(claims.Name),
				AvatarURL:   claims.Picture,
				Status:      models.UserStatusActive,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create user: %w", err)
			}

			if _, err := s.userStore.CreateIdentity(ctx, user.ID, models.AuthProviderGoogle, claims.Subject, email); err != nil {
				return nil, fmt.Errorf("failed to create identity: %w", err)
			}

			isNewUser = true
			s.logger.Info("Created new user via Google", logging.WithFields(map[string]interface{}{
				"userId":    user.ID,
				"googleSub": claims.Subject,
			}))
		}
	}

	if user.Status != models.UserStatusActive {
		return nil, errAccountDisabled
	}

	s.touchLogin(ctx, user.ID)

	tokens, err := s.generateTokens(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return &models.AuthResponse{
		User:      user,
		Tokens:    tokens,
		IsNewUser: isNewUser,
		IsLinked:  isLinked,
	}, nil
}

// RefreshTokens rotates a refresh token: the presented token is revoked and
// a new pair is issued
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	if refreshToken == "" {
		return nil, &AuthError{Code: "invalid_input", Message: "refreshToken is required"}
	}

	storedToken, err := s.userStore.GetRefreshTokenByHash(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if storedToken == nil {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid or expired refresh token"}
	}

	user, err := s.userStore.GetByID(ctx, storedToken.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.Status != models.UserStatusActive {
		return nil, &AuthError{Code: "invalid_token", Message: "user not found or disabled"}
	}

	if err := s.userStore.RevokeRefreshToken(ctx, storedToken.ID); err != nil {
		s.logger.Warn("Failed to revoke old refresh token", logging.WithField("error", err.Error()))
	}

	return s.generateTokens(ctx, user)
}

// Logout ends session and revokes every refresh token of its user
func (s *Service) Logout(ctx context.Context, session *Session) error {
	if session == nil {
		return nil
	}
	s.sessions.revoke(session, s.now())
	if err := s.userStore.RevokeAllUserRefreshTokens(ctx, session.UserID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	s.logger.Info("User logged out", logging.WithField("userId", session.UserID))
	return nil
}

// ValidateAccessToken checks signature, issuer, audience and expiry and
// returns the session the token belongs to
func (s *Service) ValidateAccessToken(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid token claims"}
	}

	if iss, _ := claims["iss"].(string); iss != s.config.JWTIssuer {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid token issuer"}
	}
	if aud, _ := claims["aud"].(string); aud != s.config.JWTAudience {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid token audience"}
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid token subject"}
	}

	session := &Session{UserID: userID}
	session.ID, _ = claims["sid"].(string)
	session.Email, _ = claims["email"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}

	if s.sessions.revoked(session.ID) {
		return nil, &AuthError{Code: "invalid_token", Message: "session has ended"}
	}
	return session, nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.userStore.GetByID(ctx, userID)
}

// UpdateProfile changes the display name, avatar or phone of a user
func (s *Service) UpdateProfile(ctx context.Context, userID string, params models.UpdateProfileParams) (*models.User, error) {
	if params.DisplayName != nil {
		name := strings.TrimSpace(*params.DisplayName)
		if len(name) > maxDisplayNameSize {
			return nil, &AuthError{Code: "invalid_input", Message: fmt.Sprintf("display name must be at most %d characters", maxDisplayNameSize)}
		}
		params.DisplayName = &name
	}
	if params.Phone != nil {
		phone := strings.TrimSpace(*params.Phone)
		if !validPhone(phone) {
			return nil, &AuthError{Code: "invalid_input", Message: "phone may only contain digits, spaces, dashes and a leading +"}
		}
		params.Phone = &phone
	}

	user, err := s.userStore.UpdateProfile(ctx, userID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if user == nil {
		return nil, &AuthError{Code: "user_not_found", Message: "user not found"}
	}
	return user, nil
}

func (s *Service) touchLogin(ctx context.Context, userID string) {
	if err := s.userStore.UpdateLastLogin(ctx, userID); err != nil {
		s.logger.Warn("Failed to update last login", logging.WithField("error", err.Error()))
	}
}

// generateTokens issues an access token for a new session and stores the
// hash of a fresh refresh token
func (s *Service) generateTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	now := s.now()

	accessClaims := jwt.MapClaims{
		"sub":   user.ID,
		"sid":   uuid.NewString(),
		"email": user.Email,
		"name":  user.EffectiveDisplayName(),
		"iss":   s.config.JWTIssuer,
		"aud":   s.config.JWTAudience,
		"iat":   now.Unix(),
		"exp":   now.Add(s.config.AccessTokenTTL).Unix(),
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshTokenBytes := make([]byte, 32)
	if _, err := rand.Read(refreshTokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	refreshTokenString := base64.URLEncoding.EncodeToString(refreshTokenBytes)

	expiresAt := now.Add(s.config.RefreshTokenTTL)
	if _, err := s.userStore.CreateRefreshToken(ctx, user.ID, hashToken(refreshTokenString), expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken:  accessTokenString,
		RefreshToken: refreshTokenString,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.config.AccessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) validateGoogleIDToken(ctx context.Context, idToken string) (*models.GoogleClaims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.tokenInfo+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("token validation failed: %s", string(body))
	}

	var tokenInfo struct {
		Aud           string `json:"aud"`
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return nil, fmt.Errorf("failed to decode token info: %w", err)
	}

	if tokenInfo.Aud != s.config.GoogleClientID {
		return nil, errors.New("invalid token audience")
	}
	if tokenInfo.Sub == "" || tokenInfo.Email == "" {
		return nil, errors.New("token is missing subject or email")
	}

	return &models.GoogleClaims{
		Subject:       tokenInfo.Sub,
		Email:         tokenInfo.Email,
		EmailVerified: tokenInfo.EmailVerified == "true",
		Name:          tokenInfo.Name,
		Picture:       tokenInfo.Picture,
	}, nil
}

func (s *Service) exchangeGoogleCode(ctx context.Context, code, redirectURI string) (*models.GoogleClaims, error) {
	if s.config.GoogleClientSecret == "" {
		return nil, errors.New("google client secret not configured")
	}

	if redirectURI == "" {
		redirectURI = s.config.GoogleRedirectURI
	}

	data := url.Values{}
	data.Set("code", code)
	data.Set("client_id", s.config.GoogleClientID)
	data.Set("client_secret", s.config.GoogleClientSecret)
	data.Set("redirect_uri", redirectURI)
	data.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("code exchange failed: %s", string(body))
	}

	var tokenResp struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return s.validateGoogleIDToken(ctx, tokenResp.IDToken)
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func validPhone(phone string) bool {
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9', r == ' ', r == '-':
		case r == '+' && i == 0:
		default:
			return false
		}
	}
	return true
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *AuthError) Error() string {
	return e.Message
}

var (
	errUserExists         = &AuthError{Code: "user_exists", Message: "a user with this email already exists"}
	errInvalidCredentials = &AuthError{Code: "invalid_credentials", Message: "invalid email or password"}
	errAccountDisabled    = &AuthError{Code: "account_disabled", Message: "account is disabled"}
)
