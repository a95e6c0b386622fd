package folio

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/sync/errgroup"
)

// Handler returns the HTTP API.
//
//	GET  /health, /api/health                  service status
//	GET  /metrics                              Prometheus metrics
//	GET  /api/users/{slug}/backup?format=      user snapshot download
//	POST /api/users/{slug}/restore             destructive user restore
//	GET  /api/admin/backup?format=             system snapshot download
//	POST /api/admin/restore                    destructive system restore
//	GET  /api/admin/mode                       maintenance mode
//	POST /api/admin/mode                       {"read_only": true}
//
// Restore bodies are envelopes; a Content-Type of application/cbor or a
// format query parameter selects the decoder, otherwise it is detected.
//
// There is no authentication layer: deploy behind something that provides
// it before exposing the admin routes.
func (a *App) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(
		hlog.NewHandler(a.log),
		hlog.RequestIDHandler("req_id", "X-Request-Id"),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("request")
		}),
	)

	router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/users/{slug}/backup", a.handleUserBackup).Methods(http.MethodGet)
	api.HandleFunc("/users/{slug}/restore", a.handleUserRestore).Methods(http.MethodPost)

	api.HandleFunc("/admin/backup", a.handleSystemBackup).Methods(http.MethodGet)
	api.HandleFunc("/admin/restore", a.handleSystemRestore).Methods(http.MethodPost)
	api.HandleFunc("/admin/mode", a.handleGetMode).Methods(http.MethodGet)
	api.HandleFunc("/admin/mode", a.handleSetMode).Methods(http.MethodPost)

	return router
}

// Run serves the HTTP API until ctx is cancelled, then drains in-flight
// requests for up to the configured shutdown timeout.
func (a *App) Run(ctx context.Context, _ *RunCommand) error {
	server := &http.Server{
		Addr:              a.config.Server.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().
			Str("addr", server.Addr).
			Bool("read_only", a.IsReadOnly()).
			Msg("starting folio server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
