package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bookkeeper/backend/internal/infrastructure/auth"
	"github.com/bookkeeper/backend/internal/infrastructure/logger"
	"github.com/bookkeeper/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	OwnerIDKey    = logger.GinOwnerIDKey
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTMiddlewareConfig holds configuration for the owner auth middleware
type JWTMiddlewareConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// TokenBlacklist is optional; revoked token IDs are rejected
	TokenBlacklist auth.TokenBlacklist
	// SkipPaths are exact paths that don't require authentication
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultJWTConfig returns the default owner auth configuration
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/health", "/api/v1/health"},
	}
}

// OwnerAuth authenticates the bearer token and binds its owner to the request
func OwnerAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return OwnerAuthWithConfig(DefaultJWTConfig(jwtService))
}

// OwnerAuthWithConfig authenticates the bearer token. The owner ID is stored
// in the gin context and the request context logger.
func OwnerAuthWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		tokenString, ok := bearerToken(c.GetHeader(AuthHeaderKey))
		if !ok {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "missing or malformed authorization header")
			return
		}

		claims, err := cfg.JWTService.ValidateToken(tokenString)
		if err != nil {
			abortUnauthorized(c, log, err, "token validation failed")
			return
		}

		if cfg.TokenBlacklist != nil && claims.ID != "" {
			revoked, err := cfg.TokenBlacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			switch {
			case err != nil:
				// fail open; the token itself is valid
				log.Error("Failed to check token blacklist", zap.String("jti", claims.ID), zap.Error(err))
			case revoked:
				abortUnauthorized(c, log, auth.ErrTokenRevoked, "token revoked")
				return
			}
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(OwnerIDKey, claims.OwnerID)

		ctx := c.Request.Context()
		ctx, _ = logger.WithOwnerID(ctx, logger.FromContext(ctx), claims.OwnerID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	token, found := strings.CutPrefix(header, BearerPrefix)
	if !found {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error, reason string) {
	log.Warn("Authentication failed",
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)

	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, message = dto.ErrCodeTokenRevoked, "Token has been revoked"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message, GetRequestID(c)))
}

// GetJWTClaims retrieves the validated claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetOwnerID returns the authenticated owner, or uuid.Nil when the request
// was not authenticated
func GetOwnerID(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(c.GetString(OwnerIDKey))
	if err != nil {
		return uuid.Nil
	}
	return id
}
