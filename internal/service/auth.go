package service

import (
	"context"
	"time"

	"github.com/constitutionhub/platform/internal/auth"
	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/guard"
	"github.com/constitutionhub/platform/internal/infra"
	"github.com/constitutionhub/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles learner registration and login.
type AuthService struct {
	pool     *pgxpool.Pool
	users    repository.AuthUserRepository
	profiles repository.ProfileRepository
	jwtMgr   *auth.JWTManager
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	pool *pgxpool.Pool,
	users repository.AuthUserRepository,
	profiles repository.ProfileRepository,
	jwtMgr *auth.JWTManager,
) *AuthService {
	return &AuthService{
		pool:     pool,
		users:    users,
		profiles: profiles,
		jwtMgr:   jwtMgr,
	}
}

// RegisterInput holds the registration request fields.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned on successful registration or login.
type AuthResult struct {
	Token  string    `json:"token"`
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Level  int       `json:"level"`
	Coins  int       `json:"coins"`
}

// Register creates a new learner account within a single transaction.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if err := domain.ValidateEmail(input.Email); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if len(input.Password) < 8 {
		return nil, domain.ErrValidation("password must be at least 8 characters")
	}

	// Check for existing user
	existing, err := s.users.FindByEmail(ctx, s.pool, input.Email)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if existing != nil {
		return nil, domain.ErrConflict("email already registered")
	}

	// Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.ErrInternal("hash password", err)
	}

	// Run in transaction: create auth_user + user_profile
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	userID := uuid.New()

	authUser := &domain.AuthUser{
		ID:           userID,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         "learner",
	}
	if err := s.users.Create(ctx, tx, authUser); err != nil {
		return nil, domain.ErrInternal("create auth user", err)
	}

	profile := domain.NewUserProfile(userID, infra.UTCDateString(time.Now().UTC()))
	if err := s.profiles.Create(ctx, tx, profile); err != nil {
		return nil, domain.ErrInternal("create profile", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	// Generate JWT
	token, err := s.jwtMgr.GenerateToken(auth.RealmLearner, userID, input.Email, "")
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}

	return &AuthResult{
		Token:  token,
		UserID: userID,
		Email:  input.Email,
	}, nil
}

// LoginInput holds the login request fields.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a learner and returns a JWT. Failed attempts count
// toward the lockout window keyed by email and realm.
func (s *AuthService) Login(ctx context.Context, input LoginInput, clientIP string) (*AuthResult, error) {
	realm := string(auth.RealmLearner)
	if err := guard.CheckLocked(ctx, s.pool, input.Email, realm); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, s.pool, input.Email)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		guard.RecordAttempt(ctx, s.pool, input.Email, realm, clientIP, false)
		return nil, domain.ErrUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		guard.RecordAttempt(ctx, s.pool, input.Email, realm, clientIP, false)
		return nil, domain.ErrUnauthorized("invalid credentials")
	}

	guard.RecordAttempt(ctx, s.pool, input.Email, realm, clientIP, true)

	// Fetch profile for the response summary
	profile, err := s.profiles.FindByUserID(ctx, s.pool, user.ID)
	if err != nil {
		return nil, domain.ErrInternal("find profile", err)
	}

	token, err := s.jwtMgr.GenerateToken(auth.RealmLearner, user.ID, user.Email, user.Role)
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}

	result := &AuthResult{
		Token:  token,
		UserID: user.ID,
		Email:  user.Email,
	}
	if profile != nil {
		result.Level = profile.Level
		result.Coins = profile.Coins
	}
	return result, nil
}
