package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/middleware"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/service"
)

type AuthHandler struct {
	authService service.AuthService
	users       repository.UserRepository
}

func NewAuthHandler(authService service.AuthService, users repository.UserRepository) *AuthHandler {
	return &AuthHandler{authService: authService, users: users}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest represents the change password request body
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Login handles user authentication
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.Username == "" || req.Password == "" {
		return respondError(c, apperror.Validation("Username and password are required"))
	}

	response, err := h.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(response)
}

// Me returns the authenticated account
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor := middleware.ActorFrom(c)
	user, err := h.users.FindByUsername(c.UserContext(), actor.Username)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// ChangePassword handles password change of the authenticated user
// POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return respondError(c, apperror.Validation("old_password and new_password are required"))
	}

	actor := middleware.ActorFrom(c)
	user, err := h.users.FindByUsername(c.UserContext(), actor.Username)
	if err != nil {
		return respondError(c, err)
	}
	if user.ID == uuid.Nil {
		return respondError(c, apperror.Unauthorized("Unauthorized"))
	}
	if err := h.authService.ChangePassword(c.UserContext(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}
