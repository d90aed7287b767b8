// Package healthcheck runs the tiny liveness server hosting platforms
// probe while the bot itself talks to Telegram over long polling.
package healthcheck

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NormalizeListen turns a bare port like "8000" into ":8000" and trims
// whitespace; empty input stays empty (health server disabled).
func NormalizeListen(listen string) string {
	listen = strings.TrimSpace(listen)
	if listen == "" {
		return ""
	}
	if !strings.Contains(listen, ":") {
		return ":" + listen
	}
	return listen
}

// StartServer serves GET /healthz until ctx is cancelled. An empty
// listen address disables the server and returns (nil, nil). The
// returned server is already listening; callers shut it down on exit.
func StartServer(ctx context.Context, logger *slog.Logger, listen, component string) (*http.Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(listen) == "" {
		logger.Info("health_server_disabled", "component", component)
		return nil, nil
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","component":"` + component + `"}`))
	})

	srv := &http.Server{
		Addr:              listen,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("health_server_error", "addr", listen, "error", err.Error())
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	logger.Info("health_server_start", "addr", listen, "component", component)
	return srv, nil
}
