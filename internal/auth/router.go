package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/elskow/authguard/internal/api"
)

func NewRouter(h *Handler, admin *AdminMiddleware, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(requestLogger(log))
	r.Use(chimid.Recoverer)

	r.Get(api.Health, h.Health)
	r.Post(api.Login, h.Login)

	r.Route(api.AdminPrefix, func(r chi.Router) {
		r.Use(admin.Handler)
		r.Post(api.AdminUnlock, h.Unlock)
		r.Get(api.AdminList, h.ListAccounts)
		r.Get(api.AdminStatus, h.LockStatus)
		r.Put(api.AdminPolicy, h.UpdatePolicy)
	})

	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimid.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimid.GetReqID(r.Context())))
		})
	}
}
