package mw

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ContextRoleKey holds the caller's role in the gin context.
	ContextRoleKey = "auth.role"
	// ContextSubjectKey holds the caller's occupant id (dormers) or user id.
	ContextSubjectKey = "auth.subject"

	RoleAdmin  = "admin"
	RoleDormer = "dormer"
)

// Claims are the bearer token claims issued by the identity provider. For
// dormers the subject is their occupant id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 token and returns its claims.
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("auth: empty token")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	claims := &Claims{}
	if _, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}); err != nil {
		return nil, err
	}
	if claims.Role != RoleAdmin && claims.Role != RoleDormer {
		return nil, errors.New("auth: invalid role")
	}
	if claims.Subject == "" {
		return nil, errors.New("auth: missing subject")
	}
	return claims, nil
}

// Auth verifies the bearer token and stores role and subject in the context.
// With an empty secret every caller is treated as an administrator.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		if secret == "" {
			c.Set(ContextRoleKey, RoleAdmin)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := ParseToken(strings.TrimSpace(token), key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ContextRoleKey, claims.Role)
		c.Set(ContextSubjectKey, claims.Subject)
		c.Next()
	}
}

// RequireAdmin rejects callers that are not administrators.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRoleKey) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator role required"})
			return
		}
		c.Next()
	}
}

// RequireSelfOrAdmin lets dormers through only for their own occupant id,
// taken from the named route parameter.
func RequireSelfOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRoleKey) == RoleAdmin {
			c.Next()
			return
		}
		if c.GetString(ContextRoleKey) == RoleDormer && c.GetString(ContextSubjectKey) == c.Param(param) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access to this occupant is not allowed"})
	}
}
