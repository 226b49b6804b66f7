package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"investtrack/internal/config"
	apperrors "investtrack/internal/errors"
	"investtrack/internal/logger"
	"investtrack/internal/models"
	"investtrack/internal/tokenstore"
	"investtrack/internal/uuid"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID      = "userID"
	ContextEmail       = "email"
	ContextRole        = "role"
	ContextTokenID     = "tokenID"
	ContextTokenExpiry = "tokenExpiry"
)

const issuer = "investtrack-api"

// getJWTKey returns the JWT key from configuration
func getJWTKey() []byte {
	return []byte(config.Get().JWTSecret)
}

// JWTClaims represents the claims in the JWT
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs a bearer token for user. The token carries a unique id
// so that logout can revoke it before it expires.
func GenerateToken(user *models.User) (string, *JWTClaims, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New(),
			ExpiresAt: jwt.NewNumericDate(now.Add(config.Get().JWTExpirationDur)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(getJWTKey())
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseToken validates the signature and expiry of tokenString.
func ParseToken(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return getJWTKey(), nil
	}, jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// AuthMiddleware verifies the bearer token, rejects revoked tokens and sets
// the caller's identity in the context.
func AuthMiddleware(revoker tokenstore.Revoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			RenderError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Authorization header is required"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			RenderError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid authorization header format"))
			c.Abort()
			return
		}

		claims, err := ParseToken(parts[1])
		if err != nil {
			RenderError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Token is invalid or expired"))
			c.Abort()
			return
		}

		if revoker != nil && claims.ID != "" {
			revoked, err := revoker.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				logger.FromContext(c.Request.Context()).Errorw("revocation lookup failed", "error", err)
				RenderError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
				c.Abort()
				return
			}
			if revoked {
				RenderError(c, apperrors.ErrTokenRevoked)
				c.Abort()
				return
			}
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextTokenID, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(ContextTokenExpiry, claims.ExpiresAt.Time)
		}
		c.Next()
	}
}

// RequireAdmin rejects callers whose token does not carry the admin role.
// It must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != string(models.RoleAdmin) {
			RenderError(c, apperrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
