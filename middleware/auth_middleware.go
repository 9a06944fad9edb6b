package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/models"
	"github.com/princinho/storefront/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	CtxUserID = "userID"
	CtxEmail  = "email"
	CtxRole   = "role"
	CtxUser   = "user"
)

// IDTokenVerifier checks an ID token issued by the hosted auth provider.
type IDTokenVerifier interface {
	Verify(ctx context.Context, raw string) (*utils.ExternalIdentity, error)
}

type ExternalResolver interface {
	ResolveExternal(ctx context.Context, ident *utils.ExternalIdentity) (*models.User, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, userID bson.ObjectID, roles ...models.Role) (*models.User, error)
}

// AuthConfig wires the two accepted identities. OIDC and Users may both be nil,
// in which case only our own access tokens are accepted.
type AuthConfig struct {
	Tokens *utils.TokenManager
	OIDC   IDTokenVerifier
	Users  ExternalResolver
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func AuthMiddleware(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		if claims, err := cfg.Tokens.ValidateAccessToken(tokenStr); err == nil {
			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRole, claims.Role)
			c.Next()
			return
		}

		if cfg.OIDC == nil || cfg.Users == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		ident, err := cfg.OIDC.Verify(c.Request.Context(), tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		user, err := cfg.Users.ResolveExternal(c.Request.Context(), ident)
		if err != nil {
			log.Println("[auth.oidc] resolve profile:", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
			return
		}

		c.Set(CtxUserID, user.ID.Hex())
		c.Set(CtxEmail, user.Email)
		c.Set(CtxRole, string(user.Role))
		c.Next()
	}
}

// RequireRole re-reads the profile so a revoked role or a disabled account
// takes effect before the access token expires. The loaded profile is stored
// under CtxUser.
func RequireRole(authz Authorizer, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
			return
		}

		user, err := authz.Authorize(c.Request.Context(), userID, roles...)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrForbidden):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		case errors.Is(err, apperrors.ErrUnauthorized):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		default:
			log.Println("[auth.role] authorize:", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
			return
		}

		c.Set(CtxRole, string(user.Role))
		c.Set(CtxUser, user)
		c.Next()
	}
}

// UserID returns the authenticated caller's id.
func UserID(c *gin.Context) (bson.ObjectID, bool) {
	raw := c.GetString(CtxUserID)
	if raw == "" {
		return bson.ObjectID{}, false
	}
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return bson.ObjectID{}, false
	}
	return id, true
}
