package auth

import (
	"errors"
	"time"

	"github.com/bookkeeper/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingOwnerID   = errors.New("missing owner_id in claims")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// Claims represents the owner token claims
type Claims struct {
	jwt.RegisteredClaims
	OwnerID string `json:"owner_id"`
}

// OwnerUUID parses the owner ID from claims
func (c *Claims) OwnerUUID() (uuid.UUID, error) {
	return uuid.Parse(c.OwnerID)
}

// RemainingTTL returns the time until the token expires
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := time.Until(c.ExpiresAt.Time)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// JWTService validates HS256 owner tokens. Tokens are minted by the identity
// service; GenerateToken exists for tooling and tests.
type JWTService struct {
	secret    []byte
	issuer    string
	clockSkew time.Duration
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.AuthConfig) *JWTService {
	return &JWTService{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		clockSkew: cfg.ClockSkew,
	}
}

// GenerateToken signs a token for ownerID valid for ttl
func (s *JWTService) GenerateToken(ownerID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   ownerID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OwnerID: ownerID.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses and verifies a token and returns its claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.clockSkew),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.OwnerID == "" {
		return nil, ErrMissingOwnerID
	}
	ownerID, err := claims.OwnerUUID()
	if err != nil || ownerID == uuid.Nil {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}
