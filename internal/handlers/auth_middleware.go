package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusconnect/event-service/internal/models"
	"github.com/campusconnect/event-service/internal/services"
)

const (
	principalKey   = "principal"
	accessTokenKey = "access_token"
)

// AuthMiddleware resolves bearer tokens to principals through the identity service
type AuthMiddleware struct {
	BaseHandler
	identity services.IdentityService
}

func NewAuthMiddleware(base BaseHandler, identity services.IdentityService) *AuthMiddleware {
	return &AuthMiddleware{BaseHandler: base, identity: identity}
}

// Authenticate rejects requests without a valid bearer token
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			am.respondError(c, http.StatusUnauthorized, "unauthenticated", nil, "authorization header missing or malformed")
			return
		}

		principal, err := am.identity.GetSession(c.Request.Context(), token)
		if err != nil {
			am.handleServiceError(c, err)
			return
		}

		setPrincipal(c, principal, token)
		c.Next()
	}
}

// OptionalAuth attaches a principal when a valid token is present and continues
// as anonymous otherwise.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		principal, err := am.identity.GetSession(c.Request.Context(), token)
		if err == nil {
			setPrincipal(c, principal, token)
		}
		c.Next()
	}
}

// RequireRole checks the role set by Authenticate. Executives pass every check.
func (am *AuthMiddleware) RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := principalFrom(c)
		if !principal.IsAuthenticated() {
			am.respondError(c, http.StatusUnauthorized, "unauthenticated", nil, nil)
			return
		}
		if principal.IsExecutive() {
			c.Next()
			return
		}
		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		am.respondError(c, http.StatusForbidden, "forbidden", nil, map[string]interface{}{
			"required_roles": roles,
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func setPrincipal(c *gin.Context, principal models.Principal, token string) {
	c.Set(principalKey, principal)
	c.Set(accessTokenKey, token)
	c.Set("user_id", principal.ID)
	c.Set("user_role", principal.Role)
}

// principalFrom returns the caller of the request, Anonymous when none was resolved.
func principalFrom(c *gin.Context) models.Principal {
	if value, ok := c.Get(principalKey); ok {
		if p, ok := value.(models.Principal); ok {
			return p
		}
	}
	return models.Anonymous
}
