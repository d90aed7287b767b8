package telegram

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxWebhookBody = 1 << 20

// NewWebhookRouter builds the push-mode HTTP surface: Telegram posts
// updates to /webhook/{secret}, and /healthz answers liveness probes.
// The secret path segment is the only authentication Telegram offers
// for webhooks, so a mismatch is a hard 404.
func NewWebhookRouter(secret string, logger *slog.Logger, handle func(Update)) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/webhook/{secret}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "secret") != secret {
			http.NotFound(w, req)
			return
		}
		raw, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "read error", http.StatusBadRequest)
			return
		}
		var update Update
		if err := json.Unmarshal(raw, &update); err != nil {
			logger.Warn("webhook_decode_error", "error", err.Error())
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		// Ack immediately; processing happens on the bot's workers.
		w.WriteHeader(http.StatusOK)
		handle(update)
	})

	return r
}
