package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elskow/authguard/internal/accounts"
	"github.com/elskow/authguard/internal/config"
	"github.com/elskow/authguard/internal/credential"
	"github.com/elskow/authguard/internal/lockout"
)

const testSecret = "test-secret-key"

func newTestLogger(t *testing.T) *zap.Logger {
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	return logger
}

func newTestConfig() *config.AuthConfig {
	return &config.AuthConfig{
		MaxFailed:           3,
		LockoutDuration:     time.Minute,
		AdminJWTSecret:      testSecret,
		AllowPolicyOverride: true,
	}
}

func newTestEngine(t *testing.T, cfg *config.AuthConfig) *lockout.Engine {
	log := newTestLogger(t)
	verifier := credential.NewVerifier(1000)

	list, err := accounts.FromSeed([]config.SeedUser{
		{Username: "admin", Password: "123456"},
		{Username: "user", Password: "password"},
	}, verifier)
	require.NoError(t, err)
	registry, err := accounts.NewRegistry(list)
	require.NoError(t, err)

	engine, err := lockout.NewEngine(
		lockout.NewMemoryStore(),
		registry,
		verifier,
		lockout.Policy{MaxFailed: cfg.MaxFailed, LockoutDuration: cfg.LockoutDuration},
		lockout.NewEventRecorder(log),
		log,
	)
	require.NoError(t, err)
	return engine
}

func newTestRouter(t *testing.T, cfg *config.AuthConfig) http.Handler {
	log := newTestLogger(t)
	h := NewHandler(newTestEngine(t, cfg), log, cfg.AllowPolicyOverride)
	return NewRouter(h, NewAdminMiddleware(cfg), log)
}

func newTestAdminToken(t *testing.T) string {
	token, err := SignAdminToken(testSecret, "ops", time.Hour)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
