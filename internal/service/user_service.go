package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"zen-storefront/internal/codestore"
	"zen-storefront/internal/domain"
	"zen-storefront/internal/notification"
	"zen-storefront/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	twoFactorDigits      = 6
	twoFactorKeyPrefix   = "2fa:"
	twoFactorTriesPrefix = "2fa-tries:"

	// MaxTwoFactorAttempts wrong codes burn the pending code.
	MaxTwoFactorAttempts = 5
)

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token has expired")
	ErrTwoFactorExpired     = errors.New("sign-in code expired, request a new one")
	ErrInvalidTwoFactorCode = errors.New("invalid sign-in code")
)

// AuthSettings carries token lifetimes and the signing secret.
type AuthSettings struct {
	JWTSecret    string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	TwoFactorTTL time.Duration
	// NotifyTimeout bounds the delivery of sign-in codes.
	NotifyTimeout time.Duration
}

// LoginResult is what a password login produces. Admin accounts get no
// tokens until the emailed code is verified.
type LoginResult struct {
	AccessToken       string       `json:"access_token,omitempty"`
	RefreshToken      string       `json:"refresh_token,omitempty"`
	User              *domain.User `json:"user,omitempty"`
	TwoFactorRequired bool         `json:"two_factor_required"`
}

// UserService defines the interface for user business logic
type UserService interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	VerifyTwoFactor(ctx context.Context, email, code string) (*LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (newAccessToken string, err error)
	ValidateToken(tokenString string) (*Claims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// Claims represents the JWT claims
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

type userService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	codes            codestore.Store
	dispatcher       notification.Dispatcher
	settings         AuthSettings
	logger           *zap.Logger
	now              func() time.Time
}

// NewUserService creates a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	codes codestore.Store,
	dispatcher notification.Dispatcher,
	settings AuthSettings,
	logger *zap.Logger,
) UserService {
	return &userService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		codes:            codes,
		dispatcher:       dispatcher,
		settings:         settings,
		logger:           logger,
		now:              time.Now,
	}
}

// Register creates a new customer account with hashed password
func (s *userService) Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, error) {
	email = normalizeEmail(email)

	existingUser, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, domain.ErrUserAlreadyExists
	}

	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Login authenticates a user. Customers receive tokens straight away; admins
// receive a sign-in code by email and must call VerifyTwoFactor.
func (s *userService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Role == domain.RoleAdmin {
		if err := s.sendTwoFactorCode(ctx, user); err != nil {
			return nil, err
		}
		return &LoginResult{TwoFactorRequired: true}, nil
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) sendTwoFactorCode(ctx context.Context, user *domain.User) error {
	code, err := generateCode(twoFactorDigits)
	if err != nil {
		return fmt.Errorf("failed to generate sign-in code: %w", err)
	}

	if err := s.codes.Put(ctx, twoFactorKeyPrefix+user.Email, code, s.settings.TwoFactorTTL); err != nil {
		return domain.DependencyError("store sign-in code", err)
	}
	if err := s.codes.Delete(ctx, twoFactorTriesPrefix+user.Email); err != nil {
		return domain.DependencyError("reset sign-in attempts", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.settings.NotifyTimeout)
	defer cancel()

	event := notification.TwoFactorCode(user.Email, code, s.settings.TwoFactorTTL, s.now())
	if err := s.dispatcher.Dispatch(sendCtx, event); err != nil {
		s.logger.Error("Failed to send sign-in code", zap.String("user_id", user.ID.String()), zap.Error(err))
		return domain.DependencyError("send sign-in code", err)
	}
	return nil
}

// VerifyTwoFactor exchanges a valid sign-in code for tokens. Codes are
// single use and are burned after MaxTwoFactorAttempts wrong guesses.
func (s *userService) VerifyTwoFactor(ctx context.Context, email, code string) (*LoginResult, error) {
	email = normalizeEmail(email)
	key := twoFactorKeyPrefix + email
	triesKey := twoFactorTriesPrefix + email
	code = strings.TrimSpace(code)

	stored, err := s.codes.Get(ctx, key)
	if err != nil {
		return nil, s.codeLookupError(err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return nil, s.recordWrongCode(ctx, key, triesKey)
	}

	// Another request may have consumed or replaced the code since Get.
	taken, err := s.codes.Take(ctx, key)
	if err != nil {
		return nil, s.codeLookupError(err)
	}
	if subtle.ConstantTimeCompare([]byte(taken), []byte(code)) != 1 {
		return nil, ErrTwoFactorExpired
	}
	if err := s.codes.Delete(ctx, triesKey); err != nil {
		s.logger.Warn("Failed to clear sign-in attempts", zap.Error(err))
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return s.issueTokens(ctx, user)
}

func (s *userService) codeLookupError(err error) error {
	if errors.Is(err, codestore.ErrNotFound) {
		return ErrTwoFactorExpired
	}
	return domain.DependencyError("read sign-in code", err)
}

func (s *userService) recordWrongCode(ctx context.Context, key, triesKey string) error {
	tries, err := s.codes.Incr(ctx, triesKey, s.settings.TwoFactorTTL)
	if err != nil {
		return domain.DependencyError("count sign-in attempts", err)
	}
	if tries < MaxTwoFactorAttempts {
		return ErrInvalidTwoFactorCode
	}

	s.logger.Warn("Sign-in code burned after repeated wrong guesses", zap.String("key", triesKey))
	if err := s.codes.Delete(ctx, key); err != nil {
		return domain.DependencyError("delete sign-in code", err)
	}
	if err := s.codes.Delete(ctx, triesKey); err != nil {
		return domain.DependencyError("reset sign-in attempts", err)
	}
	return ErrTwoFactorExpired
}

func (s *userService) issueTokens(ctx context.Context, user *domain.User) (*LoginResult, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.generateRefreshToken(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &LoginResult{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}

// Logout invalidates the refresh token
func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenRepo.Revoke(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			// Token doesn't exist, consider it already logged out
			return nil
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RefreshToken generates a new access token using a valid refresh token
func (s *userService) RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken string, err error) {
	refreshToken, err := s.refreshTokenRepo.FindByToken(ctx, refreshTokenString)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) || errors.Is(err, repository.ErrRefreshTokenRevoked) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find refresh token: %w", err)
	}

	if s.now().After(refreshToken.ExpiresAt) {
		return "", ErrTokenExpired
	}

	user, err := s.userRepo.FindByID(ctx, refreshToken.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	newAccessToken, err = s.generateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}

	return newAccessToken, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.settings.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *userService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// generateAccessToken generates a JWT access token with user ID and role claims
func (s *userService) generateAccessToken(user *domain.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.settings.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.settings.JWTSecret))
}

// generateRefreshToken generates a refresh token and stores it in the database
func (s *userService) generateRefreshToken(ctx context.Context, user *domain.User) (string, error) {
	tokenString := uuid.New().String()
	now := s.now()

	refreshToken := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     tokenString,
		ExpiresAt: now.Add(s.settings.RefreshTTL),
		CreatedAt: now,
	}

	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		return "", err
	}

	return tokenString, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateCode returns a zero padded random numeric code.
func generateCode(digits int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
