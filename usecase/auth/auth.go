package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/taskboard/domain"
	appLogger "github.com/fastygo/taskboard/pkg/logger"
	"github.com/fastygo/taskboard/pkg/token"
	"github.com/fastygo/taskboard/repository"
)

const minPasswordLength = 8

// Tokens is the result of a successful login or refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         *domain.User
}

type UseCase struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	tokens     *token.Manager
	sessionTTL time.Duration
	logger     *zap.Logger
}

func New(users repository.UserRepository, sessions repository.SessionRepository, tokens *token.Manager, sessionTTL time.Duration, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &UseCase{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Register creates an account. The returned user carries no password hash.
func (uc *UseCase) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrEmailRequired
	}
	if len(password) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "password cannot be hashed", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}

	uc.log(ctx).Info("user registered", zap.String("user_id", user.ID))
	return user.Public(), nil
}

// Login checks credentials and opens a refresh session.
func (uc *UseCase) Login(ctx context.Context, email, password string) (*Tokens, error) {
	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		uc.log(ctx).Warn("login rejected", zap.String("user_id", user.ID))
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.sessionTTL),
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	access, expiresAt, err := uc.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	uc.log(ctx).Info("user logged in", zap.String("user_id", user.ID))
	return &Tokens{
		AccessToken:  access,
		RefreshToken: session.ID,
		ExpiresAt:    expiresAt,
		User:         user.Public(),
	}, nil
}

// Refresh mints a new access token from a live session and extends the session.
func (uc *UseCase) Refresh(ctx context.Context, sessionID string) (*Tokens, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrUnauthorized
	}
	if err := uc.sessions.Extend(ctx, sessionID, uc.sessionTTL); err != nil {
		return nil, err
	}

	access, expiresAt, err := uc.tokens.Issue(session.UserID)
	if err != nil {
		return nil, err
	}
	return &Tokens{
		AccessToken:  access,
		RefreshToken: session.ID,
		ExpiresAt:    expiresAt,
	}, nil
}

// Logout drops the refresh session. Unknown sessions are not an error.
func (uc *UseCase) Logout(ctx context.Context, sessionID string) error {
	return uc.sessions.Delete(ctx, sessionID)
}

// Authenticate resolves an access token to the acting user id.
func (uc *UseCase) Authenticate(accessToken string) (string, error) {
	return uc.tokens.Parse(accessToken)
}

func (uc *UseCase) log(ctx context.Context) *zap.Logger {
	return appLogger.WithRequestID(ctx, uc.logger)
}
