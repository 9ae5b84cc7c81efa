package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishShare/internal/api"
	"github.com/Kerhoff/WishShare/internal/auth"
	"github.com/Kerhoff/WishShare/internal/config"
	"github.com/Kerhoff/WishShare/internal/handlers"
	"github.com/Kerhoff/WishShare/internal/metrics"
	"github.com/Kerhoff/WishShare/internal/realtime"
	"github.com/Kerhoff/WishShare/internal/repository/memory"
	"github.com/Kerhoff/WishShare/internal/repository/postgres"
	"github.com/Kerhoff/WishShare/internal/service"
	"github.com/Kerhoff/WishShare/internal/telegram"
	"github.com/Kerhoff/WishShare/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting WishShare...")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Repositories
	var closers []func() error
	repos, err := openStore(ctx, cfg, l)
	if err != nil {
		l.Fatalf("Failed to open store: %v", err)
	}
	closers = append(closers, repos.close)

	// Realtime fan-out
	hub := realtime.NewHub(l, m)
	var relay realtime.Relay
	if cfg.RedisURL != "" {
		client, err := realtime.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			l.Fatalf("Failed to connect to Redis: %v", err)
		}
		closers = append(closers, client.Close)
		relay = realtime.NewRedisRelay(client, cfg.RedisChannel, l)
		l.WithField("channel", cfg.RedisChannel).Info("Relaying events through Redis")
	}
	dispatcher := realtime.NewDispatcher(hub, relay, l, m)
	go func() {
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			l.WithError(err).Error("Event relay stopped")
		}
	}()

	// Service layer
	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		l.Fatalf("Failed to configure tokens: %v", err)
	}
	svc := service.New(repos.Repositories, tokens, dispatcher, l, m)

	// Telegram bot
	if cfg.TelegramToken != "" {
		startTelegram(ctx, cfg, dispatcher, repos.Wishlists, l)
	}

	// HTTP servers
	wsServer := realtime.NewServer(hub, dispatcher, svc, cfg.AllowedOrigins, l, m)
	apiServer := api.NewServer(svc, wsServer, cfg.AllowedOrigins, l, m)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", m.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.PrometheusPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	for name, srv := range map[string]*http.Server{"HTTP": httpServer, "Metrics": metricsServer} {
		go func() {
			l.Infof("%s server listening on %s", name, srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				l.Errorf("%s server error: %v", name, err)
				stop()
			}
		}()
	}

	l.Info("WishShare started successfully")

	<-ctx.Done()
	l.Info("Received shutdown signal...")

	if err := shutdown(httpServer, metricsServer, hub, closers); err != nil {
		l.WithError(err).Error("Shutdown finished with errors")
	}

	l.Info("WishShare stopped")
}

// store bundles the repositories with the function releasing them
type store struct {
	service.Repositories
	close func() error
}

func openStore(ctx context.Context, cfg *config.Config, l *logrus.Logger) (*store, error) {
	if cfg.Store == config.StoreMemory {
		l.Warn("Using in-memory store, data is lost on restart")
		mem := memory.New()
		return &store{
			Repositories: service.Repositories{
				Users:     mem.Users(),
				Wishlists: mem.Wishlists(),
				Items:     mem.Items(),
				Comments:  mem.Comments(),
				Reactions: mem.Reactions(),
			},
			close: func() error { return nil },
		}, nil
	}

	db, err := config.NewDatabase(ctx, cfg.DatabaseURL, l)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := db.Migrate(cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, err
	}

	return &store{
		Repositories: service.Repositories{
			Users:     postgres.NewUserRepository(db.DB),
			Wishlists: postgres.NewWishlistRepository(db.DB),
			Items:     postgres.NewItemRepository(db.DB),
			Comments:  postgres.NewCommentRepository(db.DB),
			Reactions: postgres.NewReactionRepository(db.DB),
		},
		close: db.Close,
	}, nil
}

func startTelegram(ctx context.Context, cfg *config.Config, dispatcher *realtime.Dispatcher, lists telegram.WishlistLookup, l *logrus.Logger) {
	bot, err := telegram.NewBot(cfg.TelegramToken, l)
	if err != nil {
		l.WithError(err).Error("Failed to create Telegram bot, notifications disabled")
		return
	}

	// Register command handlers
	bot.RegisterCommand("start", "Welcome message", handlers.NewStartHandler(cfg.AppURL, l))
	bot.RegisterCommand("help", "List commands", handlers.NewHelpHandler(bot.Commands, l))
	bot.RegisterCommand("chatid", "Show the id of this chat", handlers.NewChatIDHandler())

	if cfg.TelegramChatID != 0 {
		notifier := telegram.NewNotifier(bot, cfg.TelegramChatID, lists, l)
		dispatcher.Observe(notifier.Notify)
		go notifier.Run(ctx)
		l.WithField("chat_id", cfg.TelegramChatID).Info("Posting public wishlist activity to Telegram")
	} else {
		l.Info("TELEGRAM_CHAT_ID not set, bot only answers commands")
	}

	// Start Telegram bot polling
	go func() {
		if err := bot.Start(ctx); err != nil {
			l.Errorf("Bot error: %v", err)
		}
	}()
}

func shutdown(httpServer, metricsServer *http.Server, hub *realtime.Hub, closers []func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var result *multierror.Error

	// Hijacked websocket connections are not tracked by Shutdown
	hub.CloseAll()
	if err := httpServer.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
