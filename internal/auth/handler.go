package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/elskow/authguard/internal/lockout"
)

const healthTimeout = 3 * time.Second

type Handler struct {
	engine              *lockout.Engine
	log                 *zap.Logger
	allowPolicyOverride bool
}

func NewHandler(engine *lockout.Engine, log *zap.Logger, allowPolicyOverride bool) *Handler {
	return &Handler{
		engine:              engine,
		log:                 log,
		allowPolicyOverride: allowPolicyOverride,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type accountResponse struct {
	Username     string `json:"username"`
	Salt         []byte `json:"salt"`
	PasswordHash []byte `json:"password_hash"`
}

type policyRequest struct {
	MaxFailed       int    `json:"max_failed"`
	LockoutDuration string `json:"lockout_duration"`
}

type lockStatusResponse struct {
	Username    string     `json:"username"`
	FailedCount int        `json:"failed_count"`
	Locked      bool       `json:"locked"`
	LockUntil   *time.Time `json:"lock_until,omitempty"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Backend string            `json:"backend"`
	Checks  map[string]string `json:"checks"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := validateLoginRequest(&req); err != nil {
		h.log.Warn("invalid login request", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.engine.AttemptLogin(r.Context(), req.Username, req.Password)
	if !result.OK {
		writeError(w, http.StatusUnauthorized, "access denied or account locked")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Message: "access granted"})
}

func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	if err := h.engine.AdminUnlock(r.Context(), username); err != nil {
		h.log.Error("unlock failed", zap.String("username", username), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "unlock failed")
		return
	}

	admin, _ := GetAdminFromContext(r.Context())
	h.log.Info("account unlocked by admin",
		zap.String("username", username),
		zap.String("admin", admin))

	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Message: "user '" + username + "' unlocked"})
}

func (h *Handler) ListAccounts(w http.ResponseWriter, _ *http.Request) {
	list := h.engine.ListAccounts()
	resp := make([]accountResponse, 0, len(list))
	for _, a := range list {
		resp = append(resp, accountResponse{
			Username:     a.Username,
			Salt:         a.Salt,
			PasswordHash: a.PasswordHash,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) LockStatus(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	status, locked, err := h.engine.Status(r.Context(), username)
	if err != nil {
		h.log.Error("status lookup failed", zap.String("username", username), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}

	resp := lockStatusResponse{
		Username:    username,
		FailedCount: status.FailedCount,
		Locked:      locked,
	}
	if !status.LockUntil.IsZero() {
		until := status.LockUntil.UTC()
		resp.LockUntil = &until
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	if !h.allowPolicyOverride {
		writeError(w, http.StatusForbidden, "policy override disabled")
		return
	}

	var req policyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	duration, err := time.ParseDuration(req.LockoutDuration)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lockout_duration")
		return
	}

	if err := h.engine.ConfigurePolicy(req.MaxFailed, duration); err != nil {
		if errors.Is(err, lockout.ErrInvalidPolicy) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "policy update failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	checks := map[string]string{"backend": "ok"}
	if err := h.engine.Ping(ctx); err != nil {
		checks["backend"] = "down: " + err.Error()
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "running",
		Backend: h.engine.Backend(),
		Checks:  checks,
	})
}

func validateLoginRequest(req *loginRequest) error {
	if req.Username == "" {
		return errors.New("username is required")
	}
	if req.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
