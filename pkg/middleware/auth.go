package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ecotrail/trail-booking/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "role"

	RoleAdmin = "admin"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// JWTConfig configures token verification
type JWTConfig struct {
	Secret string
	// Issuer is checked when non-empty
	Issuer string
}

// Claims carried by admin access tokens
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HS256 token and returns its claims
func ParseToken(cfg *JWTConfig, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// JWTAuth rejects requests without a valid bearer token and stores the
// user id and role in the gin context.
func JWTAuth(cfg *JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Fail("UNAUTHORIZED", ErrMissingToken.Error()))
			return
		}

		claims, err := ParseToken(cfg, tokenString)
		if err != nil {
			code := "INVALID_TOKEN"
			if errors.Is(err, jwt.ErrTokenExpired) {
				code = "TOKEN_EXPIRED"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Fail(code, "invalid or expired token"))
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyRole, claims.Role)
		c.Next()
	}
}

// RequireRole must run after JWTAuth
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if r, _ := getString(c, ContextKeyRole); r != role {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Fail("FORBIDDEN", "insufficient role"))
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user id, if any
func GetUserID(c *gin.Context) (string, bool) {
	return getString(c, ContextKeyUserID)
}

func getString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
