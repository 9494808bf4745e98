package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/jwt"
	"go-stock-ledger/pkg/logger"
)

var (
	ErrInvalidCredentials = apperror.Unauthorized("invalid username or password")
	ErrUserInactive       = apperror.Forbidden("user account is inactive")
	ErrWrongPassword      = apperror.Validation("current password is incorrect")
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (*Actor, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	// EnsureAdmin creates the first admin account when no user exists yet.
	EnsureAdmin(ctx context.Context, username, password string) (bool, error)
}

type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type authService struct {
	users  repository.UserRepository
	tokens *jwt.Issuer
	log    *logger.Logger
}

func NewAuthService(users repository.UserRepository, tokens *jwt.Issuer, log *logger.Logger) AuthService {
	if log == nil {
		log = logger.L()
	}
	return &authService{users: users, tokens: tokens, log: log.WithComponent("auth")}
}

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	// 1. Find user by username
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if apperror.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	// 2. Check if user is active
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 3. Verify password
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// 4. Generate JWT token
	token, expires, err := s.tokens.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, apperror.Storage("sign token", err)
	}

	s.log.Infow("user logged in", "user", user.Username, "role", user.Role)
	return &LoginResponse{Token: token, ExpiresAt: expires, User: user}, nil
}

func (s *authService) ValidateToken(ctx context.Context, token string) (*Actor, error) {
	// 1. Validate JWT token
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, apperror.Unauthorized(err.Error())
	}

	// 2. User must still exist and be active
	user, err := s.users.FindByID(ctx, claims.UserID)
	if apperror.IsNotFound(err) {
		return nil, apperror.Unauthorized("user no longer exists")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return &Actor{Username: user.Username, Role: user.Role}, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return apperror.Validation("new password must have at least 6 characters")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	if err := user.SetPassword(newPassword); err != nil {
		return apperror.Storage("hash password", err)
	}
	return s.users.UpdatePassword(ctx, user.ID, user.Password)
}

func (s *authService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	n, err := s.users.Count(ctx)
	if err != nil || n > 0 {
		return false, err
	}
	if password == "" {
		return false, apperror.Validation("ADMIN_PASSWORD is required to seed the first admin")
	}
	admin := &model.User{Username: username, Role: model.RoleAdmin, IsActive: true}
	if err := admin.SetPassword(password); err != nil {
		return false, apperror.Storage("hash password", err)
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return false, err
	}
	s.log.Infow("seeded admin account", "user", username)
	return true, nil
}
