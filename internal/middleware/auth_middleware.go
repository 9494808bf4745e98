package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/service"
)

const actorKey = "actor"

// RequireAuth is middleware that validates JWT token and sets user info in context.
// The WebSocket endpoint cannot send headers, so a ?token= query is accepted too.
func RequireAuth(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get token from "Bearer <token>" or query
		token := c.Query("token")
		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return deny(c, apperror.Unauthorized("Invalid authorization format. Use: Bearer <token>"))
			}
			token = parts[1]
		}
		if token == "" {
			return deny(c, apperror.Unauthorized("Missing authorization token"))
		}

		// Validate token, user must still be active
		actor, err := auth.ValidateToken(c.UserContext(), token)
		if err != nil {
			return deny(c, err)
		}

		// Set user info in context for downstream handlers
		c.Locals(actorKey, *actor)
		c.Locals("user_name", actor.Username)
		c.Locals("user_role", string(actor.Role))
		return c.Next()
	}
}

// RequireRole checks if the authenticated user has one of the given roles.
func RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := c.Locals(actorKey).(service.Actor)
		if !ok {
			return deny(c, apperror.Unauthorized("Unauthorized"))
		}
		for _, r := range roles {
			if actor.Role == r {
				return c.Next()
			}
		}
		names := make([]string, 0, len(roles))
		for _, r := range roles {
			names = append(names, string(r))
		}
		return deny(c, apperror.Forbidden("Forbidden: requires role "+strings.Join(names, " or ")))
	}
}

// ActorFrom returns the user set by RequireAuth.
func ActorFrom(c *fiber.Ctx) service.Actor {
	if actor, ok := c.Locals(actorKey).(service.Actor); ok {
		return actor
	}
	return service.Actor{Username: "system"}
}

func deny(c *fiber.Ctx, err error) error {
	body := fiber.Map{"error": err.Error(), "code": apperror.KindOf(err)}
	if appErr, ok := apperror.As(err); ok {
		body["error"] = appErr.Message
	}
	return c.Status(apperror.HTTPStatus(err)).JSON(body)
}
