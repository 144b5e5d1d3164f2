package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/elskow/authguard/internal/config"
)

// Define a custom type for context keys
type contextKey string

const (
	// AdminContextKey is the key used to store the admin subject in the context
	AdminContextKey contextKey = "admin"

	adminRole = "admin"
)

var ErrInvalidAdminToken = errors.New("invalid admin token")

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminMiddleware gates /admin routes behind an HS256 bearer token carrying
// role "admin". With no secret configured every admin request is refused.
type AdminMiddleware struct {
	config *config.AuthConfig
}

func NewAdminMiddleware(config *config.AuthConfig) *AdminMiddleware {
	return &AdminMiddleware{
		config: config,
	}
}

func (m *AdminMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.config.AdminJWTSecret == "" {
			writeError(w, http.StatusUnauthorized, "admin API not configured")
			return
		}

		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			writeError(w, http.StatusUnauthorized, "missing admin token")
			return
		}

		claims, err := validateAdminToken(token, m.config.AdminJWTSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}

		ctx := context.WithValue(r.Context(), AdminContextKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Helper function to get the admin subject from context
func GetAdminFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(AdminContextKey).(string)
	if !ok {
		return "", errors.New("admin not found in context")
	}
	return subject, nil
}

// SignAdminToken issues an operator token for the admin endpoints.
func SignAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &AdminClaims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func validateAdminToken(tokenString string, secretKey string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, err
	}

	if !token.Valid || claims.Role != adminRole {
		return nil, ErrInvalidAdminToken
	}

	return claims, nil
}
