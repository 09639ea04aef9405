// Command anitrack is the main entrypoint for the AniList stats bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Loads the account-link document (file or Postgres backed), migrating
//     legacy entries.
//   - Connects to Twitch chat and routes !link/!unlink/stats commands.
//   - Polls AniList for new media-list activity on every linked account and
//     announces it to the configured channel.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/anitrack/accounts"
	"github.com/onnwee/anitrack/activity"
	"github.com/onnwee/anitrack/anilist"
	"github.com/onnwee/anitrack/bot"
	"github.com/onnwee/anitrack/config"
	"github.com/onnwee/anitrack/db"
	"github.com/onnwee/anitrack/server"
	"github.com/onnwee/anitrack/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("chat config incomplete", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdownTracing, err := telemetry.InitTracing("anitrack", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Account document store: Postgres when DB_DSN is set, file otherwise.
	var docStore accounts.DocStore
	deps := &server.Deps{StartedAt: time.Now().UTC()}
	if cfg.DBDsn != "" {
		database, err := db.Connect()
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		if err := db.Migrate(ctx, database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
		docStore = &accounts.PGDocStore{DB: database}
		deps.DB = database
		slog.Info("account store backend: postgres")
	} else {
		docStore = &accounts.FileDocStore{Path: cfg.AccountsFile}
		slog.Info("account store backend: file", slog.String("path", cfg.AccountsFile))
	}

	client := anilist.New(cfg.AniListURL)
	store := accounts.NewStore(docStore, client)
	if err := store.Load(ctx); err != nil {
		slog.Error("account store load failed", slog.Any("err", err))
		os.Exit(1)
	}

	ledger := activity.NewLedger()
	store.SetLedger(ledger)

	router := bot.NewRouter(store, client)
	chatBot := bot.New(cfg, router)
	go chatBot.Run(ctx)

	poller := activity.NewPoller(store, client, ledger, chatBot, cfg.PollInterval)
	go poller.Run(ctx)

	deps.Store = store
	deps.Poller = poller
	go func() {
		if err := server.Start(ctx, deps, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
