package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mrovchinnikov95/ai-idea-lab-bot/conversation"
	"github.com/mrovchinnikov95/ai-idea-lab-bot/internal/adminnotify"
	"github.com/mrovchinnikov95/ai-idea-lab-bot/internal/healthcheck"
	"github.com/mrovchinnikov95/ai-idea-lab-bot/internal/identhash"
	"github.com/mrovchinnikov95/ai-idea-lab-bot/internal/logutil"
	"github.com/mrovchinnikov95/ai-idea-lab-bot/internal/ratelimit"
	"github.com/mrovchinnikov95/ai-idea-lab-bot/internal/telegram"
	"github.com/mrovchinnikov95/ai-idea-lab-bot/llm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type chatWorker struct {
	Jobs chan conversation.Event
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			logger = logger.With("run_id", uuid.NewString())
			slog.SetDefault(logger)

			token := strings.TrimSpace(viper.GetString("telegram.bot_token"))
			if token == "" {
				return fmt.Errorf("missing telegram.bot_token (set via config or %s_TELEGRAM_BOT_TOKEN)", envPrefix)
			}
			hasher, err := identhash.New(viper.GetString("hash.salt"))
			if err != nil {
				return fmt.Errorf("missing hash.salt (set via config or %s_HASH_SALT)", envPrefix)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, closer, err := leadStoreFromViper(logger)
			if err != nil {
				return err
			}
			if closer != nil {
				defer func() { _ = closer.Close() }()
			}
			if err := store.EnsureSchema(); err != nil {
				return fmt.Errorf("prepare lead store: %w", err)
			}

			proStore, proCloser, err := proStoreFromViper(logger)
			if err != nil {
				return err
			}
			if proCloser != nil {
				defer func() { _ = proCloser.Close() }()
			}
			if err := proStore.EnsureSchema(); err != nil {
				return fmt.Errorf("prepare pro store: %w", err)
			}

			retentionDays := viper.GetInt("retention.days")
			if retentionDays > 0 {
				removed, err := store.PruneOlderThan(time.Duration(retentionDays)*24*time.Hour, time.Now())
				if err != nil {
					return fmt.Errorf("startup prune: %w", err)
				}
				if removed > 0 {
					logger.Info("startup_prune", "removed", removed, "retention_days", retentionDays)
				}
			}

			texts := conversation.DefaultTexts()
			if p := strings.TrimSpace(viper.GetString("texts.path")); p != "" {
				texts, err = conversation.LoadTexts(p)
				if err != nil {
					return fmt.Errorf("load texts: %w", err)
				}
			}

			client, err := llm.NewClient(ctx, llm.ClientConfig{
				Provider: viper.GetString("llm.provider"),
				APIKey:   viper.GetString("llm.api_key"),
				Model:    viper.GetString("llm.model"),
			})
			if err != nil {
				return err
			}
			if client == nil {
				logger.Warn("llm_disabled", "reason", "missing llm.api_key", "mode", "fallback_only")
			}
			gen := llm.NewGenerator(client, viper.GetString("llm.model"), viper.GetDuration("llm.request_timeout"), logger)

			api := telegram.NewClient(nil, viper.GetString("telegram.base_url"), token)
			notifier := adminnotify.New(viper.GetInt64("admin.chat_id"), api.Send, logger)

			engine, err := conversation.NewEngine(conversation.Options{
				Config: conversation.Config{
					ConsentToken:  viper.GetString("consent.token"),
					AdminChatID:   viper.GetInt64("admin.chat_id"),
					RetentionDays: retentionDays,
				},
				Texts:    texts,
				Sessions: conversation.NewMemorySessionStore(),
				Leads:    store,
				Pro:      proStore,
				Gen:      gen,
				Hasher:   hasher,
				Notifier: notifier,
				Sender:   api,
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			limiter := ratelimit.New(viper.GetDuration("rate_limit.window"))
			go func() {
				ticker := time.NewTicker(10 * time.Minute)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						limiter.Evict(time.Now(), viper.GetDuration("rate_limit.max_idle"))
					}
				}
			}()

			maxConc := viper.GetInt("telegram.max_concurrency")
			if maxConc <= 0 {
				maxConc = 4
			}
			sem := make(chan struct{}, maxConc)

			var (
				mu      sync.Mutex
				workers = make(map[int64]*chatWorker)
			)

			getOrStartWorkerLocked := func(chatID int64) *chatWorker {
				if w, ok := workers[chatID]; ok && w != nil {
					return w
				}
				w := &chatWorker{Jobs: make(chan conversation.Event, 16)}
				workers[chatID] = w

				go func(chatID int64, w *chatWorker) {
					for ev := range w.Jobs {
						// Global concurrency limit.
						sem <- struct{}{}
						func() {
							defer func() { <-sem }()
							typingStop := startTypingTicker(ctx, api, chatID, 4*time.Second)
							defer typingStop()
							engine.HandleEvent(ctx, ev)
						}()
					}
				}(chatID, w)

				return w
			}

			dispatch := func(u telegram.Update) {
				ev, ok := eventFromUpdate(u)
				if !ok {
					return
				}
				if !limiter.Allow(ev.ChatID, time.Now()) {
					logger.Debug("rate_limited", "chat_id", ev.ChatID)
					return
				}
				mu.Lock()
				w := getOrStartWorkerLocked(ev.ChatID)
				select {
				case w.Jobs <- ev:
				default:
					logger.Warn("chat_queue_full", "chat_id", ev.ChatID)
				}
				mu.Unlock()
			}

			mode := strings.ToLower(strings.TrimSpace(viper.GetString("telegram.mode")))
			switch mode {
			case "", "polling":
				if _, err := healthcheck.StartServer(ctx, logger, healthcheck.NormalizeListen(viper.GetString("health.listen")), "idealab"); err != nil {
					return err
				}
				return runPolling(ctx, logger, api, dispatch)
			case "webhook":
				return runWebhook(ctx, logger, dispatch)
			default:
				return fmt.Errorf("unknown telegram.mode: %s", mode)
			}
		},
	}
	return cmd
}

func runPolling(ctx context.Context, logger *slog.Logger, api *telegram.Client, dispatch func(telegram.Update)) error {
	me, err := api.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}

	pollTimeout := viper.GetDuration("telegram.poll_timeout")
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}

	logger.Info("bot_start",
		"mode", "polling",
		"bot_username", me.Username,
		"bot_id", me.ID,
		"poll_timeout", pollTimeout.String(),
	)

	var offset int64
	for {
		if ctx.Err() != nil {
			logger.Info("bot_stop", "reason", "signal")
			return nil
		}
		updates, nextOffset, err := api.GetUpdates(ctx, offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("bot_stop", "reason", "signal")
				return nil
			}
			if !telegram.IsPollTimeoutError(err) {
				logger.Warn("get_updates_error", "error", err.Error())
				time.Sleep(1 * time.Second)
			}
			continue
		}
		offset = nextOffset
		for _, u := range updates {
			dispatch(u)
		}
	}
}

func runWebhook(ctx context.Context, logger *slog.Logger, dispatch func(telegram.Update)) error {
	secret := strings.TrimSpace(viper.GetString("telegram.webhook_secret"))
	if secret == "" {
		return fmt.Errorf("missing telegram.webhook_secret (required for telegram.mode=webhook)")
	}

	listen := healthcheck.NormalizeListen(viper.GetString("telegram.webhook_listen"))
	srv := &http.Server{
		Addr:              listen,
		Handler:           telegram.NewWebhookRouter(secret, logger, dispatch),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("bot_start", "mode", "webhook", "listen", listen)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		logger.Info("bot_stop", "reason", "signal")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// eventFromUpdate maps a Telegram update onto a conversation event.
// Edited messages count as fresh input; messages from bots are dropped.
func eventFromUpdate(u telegram.Update) (conversation.Event, bool) {
	msg := u.Message
	if msg == nil {
		msg = u.EditedMessage
	}
	if msg == nil || msg.Chat == nil {
		return conversation.Event{}, false
	}
	if msg.From != nil && msg.From.IsBot {
		return conversation.Event{}, false
	}

	ev := conversation.Event{ChatID: msg.Chat.ID}
	if !msg.IsText() {
		ev.Kind = conversation.EventNonText
		return ev, true
	}
	text := strings.TrimSpace(msg.Text)
	if name := conversation.ParseCommand(text); name != "" {
		ev.Kind = conversation.EventCommand
		ev.Command = name
		return ev, true
	}
	ev.Kind = conversation.EventText
	ev.Text = text
	return ev, true
}

func startTypingTicker(ctx context.Context, api *telegram.Client, chatID int64, interval time.Duration) func() {
	if api == nil || chatID == 0 {
		return func() {}
	}
	if interval <= 0 {
		interval = 4 * time.Second
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		_ = api.SendTyping(ctx, chatID)
		for {
			select {
			case <-ticker.C:
				_ = api.SendTyping(ctx, chatID)
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
