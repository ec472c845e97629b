package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/packlane/packlane-backend/config"
	apperrors "github.com/packlane/packlane-backend/errors"
	"github.com/packlane/packlane-backend/logger"
)

// AuthMiddleware validates the Bearer token and stores the authenticated
// user's ID in the gin context under UserIDKey.
func AuthMiddleware(cfg *config.ServerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger()

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			_ = c.Error(apperrors.AuthenticationFailed("Missing or malformed Authorization header"))
			c.Abort()
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		userID, err := ValidateToken(tokenString, cfg.JwtSecretKey)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				_ = c.Error(apperrors.AuthenticationFailed("Your session has expired"))
			} else {
				log.Debugw("Token validation failed", "error", err)
				_ = c.Error(apperrors.AuthenticationFailed("Invalid token"))
			}
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// ValidateToken parses and validates an HS256 JWT and returns its subject.
func ValidateToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

// GetUserID retrieves the authenticated user's ID from the gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
