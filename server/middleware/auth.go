package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/kbukum/audiolens/errors"
)

// ContextKeySubject holds the authenticated token subject on the gin context.
const ContextKeySubject = "auth_subject"

// JWTConfig configures bearer token checks. Tokens are HMAC signed with Secret.
type JWTConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Secret   string `yaml:"secret" mapstructure:"secret"`
	Issuer   string `yaml:"issuer" mapstructure:"issuer"`
	Audience string `yaml:"audience" mapstructure:"audience"`
}

func (c *JWTConfig) Validate() error {
	if c.Enabled && len(c.Secret) < 32 {
		return fmt.Errorf("auth.secret must be at least 32 bytes when auth is enabled")
	}
	return nil
}

// BearerAuth rejects requests without a valid "Authorization: Bearer <jwt>"
// header. The token subject is stored under ContextKeySubject.
func BearerAuth(cfg JWTConfig) gin.HandlerFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(cfg.Secret)

	return func(c *gin.Context) {
		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}
		claims := &jwt.RegisteredClaims{}
		_, err = parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return key, nil })
		if err != nil {
			reason := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				reason = "token expired"
			}
			abortUnauthorized(c, reason)
			return
		}
		c.Set(ContextKeySubject, claims.Subject)
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header required")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimSpace(token), nil
}

func abortUnauthorized(c *gin.Context, reason string) {
	err := apperrors.Unauthorized(reason)
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
}
