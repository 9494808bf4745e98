package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/logger"
	"go-stock-ledger/pkg/validator"
)

// UserService manages operator accounts. Every method is admin-only.
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest, actor Actor) (*model.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest, actor Actor) (*model.User, error)
	GetAllUsers(ctx context.Context, actor Actor) ([]model.User, error)
}

type CreateUserRequest struct {
	Username string     `json:"username" validate:"required,alphanum,min=3,max=100"`
	Password string     `json:"password" validate:"required,min=6"`
	Role     model.Role `json:"role" validate:"required,oneof=Admin User"`
}

type UpdateUserRequest struct {
	Role     model.Role `json:"role" validate:"omitempty,oneof=Admin User"`
	IsActive *bool      `json:"is_active"`
	Password *string    `json:"password,omitempty" validate:"omitempty,min=6"` // Optional
}

type userService struct {
	userRepo repository.UserRepository
	log      *logger.Logger
}

func NewUserService(userRepo repository.UserRepository, log *logger.Logger) UserService {
	if log == nil {
		log = logger.L()
	}
	return &userService{userRepo: userRepo, log: log.WithComponent("users")}
}

func requireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return apperror.Forbidden("only an admin can manage users")
	}
	return nil
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest, actor Actor) (*model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	// 1. Validate request
	req.Username = strings.TrimSpace(req.Username)
	if err := validator.Check(&req); err != nil {
		return nil, err
	}

	// 2. Check if username already exists
	if _, err := s.userRepo.FindByUsername(ctx, req.Username); err == nil {
		return nil, apperror.Conflict("username %s already exists", req.Username)
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}

	// 3. Create user with hashed password
	user := &model.User{Username: req.Username, Role: req.Role, IsActive: true}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperror.Storage("hash password", err)
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infow("user created", "username", user.Username, "role", user.Role, "by", actor.Username)
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest, actor Actor) (*model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	// 1. Validate request
	if err := validator.Check(&req); err != nil {
		return nil, err
	}

	// 2. Find existing user
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// 3. An admin cannot lock themselves out
	if user.Username == actor.Username && ((req.Role != "" && req.Role != model.RoleAdmin) || (req.IsActive != nil && !*req.IsActive)) {
		return nil, apperror.Validation("you cannot demote or deactivate your own account")
	}

	// 4. Update user fields
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	// 5. Update password if provided
	if req.Password != nil && *req.Password != "" {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, apperror.Storage("hash password", err)
		}
		if err := s.userRepo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
			return nil, err
		}
	}

	s.log.Infow("user updated", "username", user.Username, "role", user.Role, "active", user.IsActive, "by", actor.Username)
	return s.userRepo.FindByID(ctx, id)
}

func (s *userService) GetAllUsers(ctx context.Context, actor Actor) ([]model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}
