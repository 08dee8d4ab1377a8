package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"programhub/internal/logging"
	"programhub/internal/model"
)

// ActorLocalKey is the key under which Authenticate stores the model.Actor.
const ActorLocalKey = "actor"

// TokenVerifier turns a bearer token into an actor.
type TokenVerifier interface {
	Verify(token string) (model.Actor, error)
}

// Authenticate resolves the optional bearer token. Requests without one
// continue as anonymous; a token that fails verification is rejected with 401.
func Authenticate(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			c.Locals(ActorLocalKey, model.Actor{})
			return c.Next()
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return unauthenticated(c, "authorization header must be a bearer token")
		}

		actor, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			logging.FromContext(c.UserContext()).Debug("token rejected", "error", err)
			return unauthenticated(c, "invalid or expired token")
		}
		c.Locals(ActorLocalKey, actor)
		return c.Next()
	}
}

// RequireActor rejects anonymous requests with 401.
func RequireActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ActorFrom(c).Anonymous() {
			return unauthenticated(c, "authentication required")
		}
		return c.Next()
	}
}

// ActorFrom returns the authenticated actor, or the anonymous actor.
func ActorFrom(c *fiber.Ctx) model.Actor {
	actor, _ := c.Locals(ActorLocalKey).(model.Actor)
	return actor
}

func unauthenticated(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"request_id": RequestIDFrom(c),
		"error": fiber.Map{
			"code":    "UNAUTHENTICATED",
			"message": message,
		},
	})
}
