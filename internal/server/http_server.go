package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/oggyb/catmatch/internal/app"
	"github.com/oggyb/catmatch/internal/auth"
)

// NewRouter builds the HTTP surface.
//
// Layout:
//   - /health and /metrics are public.
//   - /api/test is public.
//   - every other /api route goes through the bearer-token middleware and is
//     contributed by a RouteRegistrar.
func NewRouter(appCtx *app.AppContext, verifier auth.Verifier, registrars ...RouteRegistrar) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(appCtx.Logger, appCtx.Metrics))

	r.HandleFunc("/health", healthHandler(appCtx)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(appCtx.Metrics.Registry, promhttp.HandlerOpts{})).
		Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/test", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"message": "API is working!"})
	}).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(auth.Middleware(verifier, appCtx.Logger))
	for _, reg := range registrars {
		reg.RegisterRoutes(protected)
	}
	return r
}

// NewHTTPServer wraps the router with CORS and returns a ready-to-run server.
func NewHTTPServer(appCtx *app.AppContext, verifier auth.Verifier, registrars ...RouteRegistrar) *http.Server {
	router := NewRouter(appCtx, verifier, registrars...)

	handler := cors.New(cors.Options{
		AllowedOrigins:   appCtx.Config.HTTP.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	return &http.Server{
		Addr:              net.JoinHostPort(appCtx.Config.HTTP.Host, appCtx.Config.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func healthHandler(appCtx *app.AppContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "healthy", "db": "ok", "redis": "ok"}
		code := http.StatusOK

		if sqlDB, err := appCtx.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["db"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
		if appCtx.RedisCache == nil || appCtx.RedisCache.Ping(ctx) != nil {
			status["redis"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
		if code != http.StatusOK {
			status["status"] = "degraded"
		}
		WriteJSON(w, code, status)
	}
}
