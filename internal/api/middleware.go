package api

import (
	"strings"

	keycloakauth "github.com/JorgeSaicoski/keycloak-auth"
	"github.com/JorgeSaicoski/microservice-commons/responses"
	"github.com/gin-gonic/gin"
)

func AuthMiddleware() gin.HandlerFunc {
	config := keycloakauth.DefaultConfig()
	config.LoadFromEnv() // Loads KEYCLOAK_URL and KEYCLOAK_REALM

	config.SkipPaths = []string{"/health"}
	config.RequiredClaims = []string{"sub", "preferred_username"}

	tokenAuth := keycloakauth.SimpleAuthMiddleware(config)

	return func(c *gin.Context) {
		// If the upstream gateway already authenticated the user and
		// provided the ID, trust that header and skip JWT validation.
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("userID", userID)
			c.Next()
			return
		}

		// Fallback to standard JWT based authentication.
		tokenAuth(c)
	}
}

// RequireAdmin gates admin routes on the role list the gateway forwards
// in X-User-Roles (same trust model as the X-User-ID shortcut above).
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAdmin(c) {
			c.Next()
			return
		}
		responses.Unauthorized(c, "Admin role required")
		c.Abort()
	}
}

// IsAdmin reports whether the request carries the admin role.
func IsAdmin(c *gin.Context) bool {
	for _, role := range strings.Split(c.GetHeader("X-User-Roles"), ",") {
		if strings.TrimSpace(role) == "admin" {
			return true
		}
	}
	return false
}
