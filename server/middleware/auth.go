package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/skillsenselab/expflow/errors"
)

// AuthConfig configures the JWT authentication middleware.
type AuthConfig struct {
	// Enabled toggles authentication off entirely when false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// JWTSecret is the HMAC key tokens are signed with.
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

// Auth returns a Gin middleware that validates Bearer tokens. Validated
// claims are stored in the Gin context under their claim names.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	validate := jwtValidator(cfg.JWTSecret)

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "Authorization header required")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := validate(parts[1])
		if err != nil {
			abortUnauthorized(c, "Invalid token")
			return
		}
		for key, value := range claims {
			c.Set(key, value)
		}
		c.Next()
	}
}

// jwtValidator builds a validator that parses HMAC-signed tokens and returns
// their claims.
func jwtValidator(secret string) func(token string) (jwt.MapClaims, error) {
	key := []byte(secret)
	return func(tokenString string) (jwt.MapClaims, error) {
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return key, nil
		})
		if err != nil {
			return nil, err
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			return nil, fmt.Errorf("invalid token claims")
		}
		return claims, nil
	}
}

func abortUnauthorized(c *gin.Context, reason string) {
	appErr := apperrors.Unauthorized(reason)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}
