package engine

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/joeydtaylor/steeze-edge/pkg/transport/httpx"
	"go.uber.org/zap"
)

// NewAdminRouter serves the operational surface: prometheus metrics and a
// liveness probe.
func NewAdminRouter(metrics http.Handler, log *zap.Logger) http.Handler {
	r := httpx.NewChi()
	r.Use(middleware.RequestID)
	r.Use(accessLog(log))
	r.Get("/healthz", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	r.Get("/metrics", metrics)
	return r.Mux()
}

func accessLog(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("admin request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Duration("took", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
