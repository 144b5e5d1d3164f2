package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminMiddleware(t *testing.T) {
	expired, err := SignAdminToken(testSecret, "ops", -time.Minute)
	require.NoError(t, err)

	otherSecret, err := SignAdminToken("another-secret", "ops", time.Hour)
	require.NoError(t, err)

	wrongRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &AdminClaims{
		Role: "viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name     string
		secret   string
		token    string
		wantCode int
		wantText string
	}{
		{
			name:     "valid token",
			secret:   testSecret,
			token:    newTestAdminToken(t),
			wantCode: http.StatusOK,
		},
		{
			name:     "missing token",
			secret:   testSecret,
			wantCode: http.StatusUnauthorized,
			wantText: "missing admin token",
		},
		{
			name:     "expired token",
			secret:   testSecret,
			token:    expired,
			wantCode: http.StatusUnauthorized,
			wantText: "invalid admin token",
		},
		{
			name:     "wrong signing secret",
			secret:   testSecret,
			token:    otherSecret,
			wantCode: http.StatusUnauthorized,
			wantText: "invalid admin token",
		},
		{
			name:     "wrong role",
			secret:   testSecret,
			token:    wrongRole,
			wantCode: http.StatusUnauthorized,
			wantText: "invalid admin token",
		},
		{
			name:     "admin api not configured",
			secret:   "",
			token:    newTestAdminToken(t),
			wantCode: http.StatusUnauthorized,
			wantText: "admin API not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig()
			cfg.AdminJWTSecret = tt.secret
			router := newTestRouter(t, cfg)

			rec := doRequest(t, router, http.MethodPost, "/admin/unlock/admin", nil, tt.token)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, decodeBody(t, rec)["error"])
			}
		})
	}
}

func TestValidateAdminToken(t *testing.T) {
	token, err := SignAdminToken(testSecret, "ops", time.Hour)
	require.NoError(t, err)

	claims, err := validateAdminToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, adminRole, claims.Role)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &AdminClaims{Role: adminRole}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = validateAdminToken(none, testSecret)
	assert.Error(t, err)
}
