package middleware

import (
	"context"
	"net/http"
	"strings"

	"homestay/internal/domain"
	"homestay/internal/pkg/apikey"
	"homestay/internal/pkg/jwt"
	"homestay/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxTenantID = "tenant_id"
	ctxUserID   = "user_id"
	ctxRole     = "role"
	ctxActor    = "actor"

	headerAPIKey   = "X-Api-Key"
	headerTenantID = "X-Tenant-Id"
)

// APIKeyStore resolves a tenant API key by its public id.
type APIKeyStore interface {
	GetByID(ctx context.Context, id string) (*domain.TenantAPIKey, error)
}

// TenantID returns the tenant established by the auth middleware.
func TenantID(c *gin.Context) string {
	return c.GetString(ctxTenantID)
}

// Actor names who made the request, for audit records.
func Actor(c *gin.Context) string {
	return c.GetString(ctxActor)
}

// Authenticate accepts either a tenant API key or a bearer JWT. The key wins
// when both are sent.
func Authenticate(j *jwt.Service, keys APIKeyStore) gin.HandlerFunc {
	byToken := JWTAuth(j)
	byKey := APIKeyAuth(keys)
	return func(c *gin.Context) {
		if keys != nil && c.GetHeader(headerAPIKey) != "" {
			byKey(c)
			return
		}
		byToken(c)
	}
}

// JWTAuth validates the bearer token and puts tenant, user and role on the
// context. Browsers opening a websocket cannot set headers, so the token may
// also arrive as the access_token query parameter.
func JWTAuth(j *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""
		if h := c.GetHeader("Authorization"); h != "" {
			if !strings.HasPrefix(h, "Bearer ") {
				abortUnauthorized(c, "INVALID_TOKEN", "Invalid Authorization header")
				return
			}
			tokenStr = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		} else {
			tokenStr = strings.TrimSpace(c.Query("access_token"))
		}

		if tokenStr == "" {
			abortUnauthorized(c, "UNAUTHORIZED", "Missing bearer token")
			return
		}

		claims, err := j.ValidateToken(tokenStr)
		if err != nil {
			abortUnauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		if !tenantHeaderMatches(c, claims.TenantID) {
			return
		}

		c.Set(ctxTenantID, claims.TenantID)
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxActor, "user:"+claims.UserID)
		c.Request = c.Request.WithContext(domain.WithActor(c.Request.Context(), "user:"+claims.UserID))
		c.Next()
	}
}

// APIKeyAuth authenticates machine clients by X-Api-Key "<id>.<secret>".
func APIKeyAuth(keys APIKeyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, secret, err := apikey.Split(c.GetHeader(headerAPIKey))
		if err != nil {
			abortUnauthorized(c, "INVALID_API_KEY", "Malformed API key")
			return
		}

		key, err := keys.GetByID(c.Request.Context(), id)
		if err != nil || key.Disabled || !apikey.Matches(key.KeyHash, secret) {
			abortUnauthorized(c, "INVALID_API_KEY", "Invalid API key")
			return
		}

		if !tenantHeaderMatches(c, key.TenantID) {
			return
		}

		c.Set(ctxTenantID, key.TenantID)
		c.Set(ctxRole, "api_key")
		c.Set(ctxActor, "api_key:"+key.ID)
		c.Request = c.Request.WithContext(domain.WithActor(c.Request.Context(), "api_key:"+key.ID))
		c.Next()
	}
}

func tenantHeaderMatches(c *gin.Context, tenantID string) bool {
	if h := strings.TrimSpace(c.GetHeader(headerTenantID)); h != "" && h != tenantID {
		response.Error(c, http.StatusForbidden, "TENANT_MISMATCH", "X-Tenant-Id does not match credentials")
		c.Abort()
		return false
	}
	return true
}

func abortUnauthorized(c *gin.Context, code, message string) {
	response.Error(c, http.StatusUnauthorized, code, message)
	c.Abort()
}
