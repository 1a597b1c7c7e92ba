// Command bot runs the anonymous feedback relay: a Telegram long-polling
// loop that forwards private messages into a shared admin chat and routes
// admin replies back, plus a small read-only ops HTTP API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-feedback-bot/internal/config"
	httpapi "github.com/tbourn/go-feedback-bot/internal/http"
	"github.com/tbourn/go-feedback-bot/internal/observability"
	"github.com/tbourn/go-feedback-bot/internal/repo"
	"github.com/tbourn/go-feedback-bot/internal/services"
	"github.com/tbourn/go-feedback-bot/internal/sysutil"
	"github.com/tbourn/go-feedback-bot/internal/telegram"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is a dev convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger := log.With().Str("component", "bot").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing (no-op unless enabled).
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shCtx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	// Redis.
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	client := redis.NewClient(opts)
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("redis unreachable")
	}
	kv := repo.NewRedisKV(client)

	// Stores and policies.
	bans, err := repo.NewBanStore(ctx, kv, cfg.KeyPrefix, log.With().Str("component", "bans").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("ban store load failed")
	}
	spam := &services.AntiSpam{
		KV:     kv,
		Prefix: cfg.KeyPrefix,
		Policy: &services.AntiSpamPolicy{
			ThrottleAfter:  cfg.AntiSpam.ThrottleAfter,
			ThrottleWindow: cfg.AntiSpam.ThrottleWindow,
			SoftBanAfter:   cfg.AntiSpam.SoftBanAfter,
			SoftBanFor:     cfg.AntiSpam.SoftBanFor,
		},
	}

	relay := &services.Relay{
		KV:                     kv,
		Prefix:                 cfg.KeyPrefix,
		Bans:                   bans,
		Spam:                   spam,
		AdminChatID:            cfg.AdminChatID,
		ForceCategorySelection: cfg.ForceCategorySelection,
		LogToAdminChat:         cfg.LogToAdminChat,
		Retention:              cfg.RetentionTTL,
		Msgs:                   services.DefaultMessages(),
		Log:                    log.With().Str("component", "relay").Logger(),
	}
	if len(cfg.Categories) > 0 {
		relay.Categories = &services.Categories{
			KV:     kv,
			Prefix: cfg.KeyPrefix,
			List:   cfg.Categories,
			TTL:    cfg.CategoryTTL,
		}
	}
	if len(cfg.Languages) > 1 {
		langs, err := services.NewLanguages(kv, cfg.KeyPrefix, cfg.Languages, cfg.DefaultLanguage)
		if err != nil {
			logger.Fatal().Err(err).Msg("language setup failed")
		}
		relay.Languages = langs
	}

	// Telegram transport; the relay needs it before the tracker can post.
	bot, err := telegram.New(cfg.BotToken, relay, cfg.AdminChatID, log.With().Str("component", "telegram").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram setup failed")
	}
	bot.Greeting = cfg.Greeting
	relay.Transport = bot

	if cfg.TicketsEnabled {
		relay.Tickets = &services.TicketTracker{
			KV:            kv,
			Prefix:        cfg.KeyPrefix,
			Transport:     bot,
			AdminChatID:   cfg.AdminChatID,
			UnansweredTag: cfg.UnansweredTag,
			GroupWindow:   cfg.TicketGroupWindow,
			Retention:     cfg.RetentionTTL,
			Log:           log.With().Str("component", "tickets").Logger(),
		}
	}

	// Ops HTTP API.
	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, kv, bans, cfg)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("ops API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("ops API server failed")
			stop()
		}
	}()

	logger.Info().Str("version", version).Int64("admin_chat", cfg.AdminChatID).Msg("relay started")
	bot.Run(ctx) // blocks until signal

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn().Err(err).Msg("ops API shutdown failed")
	}
	logger.Info().Msg("relay stopped")
}
