package middleware

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"viral-search-service/internal/auth"
)

const userIDKey = "user_id"

// IdentityVerifier resolves a bearer token to a user id.
type IdentityVerifier interface {
	UserID(token string) (string, error)
}

// OptionalIdentity stores the caller's user id in the request locals when a
// valid bearer token is present. Missing or invalid tokens leave the caller
// anonymous; the request is never rejected here.
func OptionalIdentity(verifier IdentityVerifier, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if verifier == nil {
			return c.Next()
		}

		token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return c.Next()
		}

		userID, err := verifier.UserID(token)
		if err != nil {
			logger.Debug("ignoring invalid bearer token", zap.Error(err))

			return c.Next()
		}

		c.Locals(userIDKey, userID)

		return c.Next()
	}
}

// UserID returns the id stored by OptionalIdentity, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)

	return id
}
