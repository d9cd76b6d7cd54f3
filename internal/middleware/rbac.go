package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noor-academy/manhaj-api/internal/utils"
)

// RequireRole ensures the authenticated user carries one of the allowed
// roles. It must run after JWTProtected so the role local is populated.
func RequireRole(allowed ...string) fiber.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			allowedSet[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role := normalizeRoleValue(c.Locals("user_role"))
		if role == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		if _, ok := allowedSet[role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}

		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	role, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(role))
}
