package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/watchroom/server/internal/controller"
	conninmemory "github.com/watchroom/server/internal/repository/connection/inmemory"
	messagepostgres "github.com/watchroom/server/internal/repository/message/postgres"
	messageredis "github.com/watchroom/server/internal/repository/message/redis"
	"github.com/watchroom/server/internal/repository/wssender"
	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/ctxlogger"
	"github.com/watchroom/server/pkg/redisclient"
	"github.com/watchroom/server/pkg/ytsearch"
)

const (
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

type AppConfig struct {
	Secret               string        `json:"-"`
	Host                 string        `json:"host"`
	Port                 int           `json:"port"`
	LogLevel             string        `json:"log_level"`
	Storage              string        `json:"storage"`
	RoomIdleTimeout      time.Duration `json:"room_idle_timeout"`
	ChatHistorySize      int           `json:"chat_history_size"`
	ChatMessageMaxLength int           `json:"chat_message_max_length"`
	RedisHost            string        `json:"redis_host"`
	RedisPort            int           `json:"redis_port"`
	RedisPassword        string        `json:"-"`
	PostgresDSN          string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Storage != StorageRedis && cfg.Storage != StoragePostgres {
		return fmt.Errorf("storage must be %q or %q", StorageRedis, StoragePostgres)
	}
	if cfg.RoomIdleTimeout <= 0 {
		return fmt.Errorf("room idle timeout must be greater than 0")
	}
	if cfg.ChatHistorySize < 1 {
		return fmt.Errorf("chat history size must be greater than 0")
	}
	if cfg.ChatMessageMaxLength < 1 {
		return fmt.Errorf("chat message max length must be greater than 0")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		}),
	}
	logger := slog.New(&h)

	connRepo := conninmemory.NewRepo(logger)
	sender := wssender.NewRepo(connRepo, logger)

	registryCfg := room.Config{
		IdleTimeout:      cfg.RoomIdleTimeout,
		HistoryLimit:     cfg.ChatHistorySize,
		MaxMessageLength: cfg.ChatMessageMaxLength,
	}

	var registry *room.Registry
	switch cfg.Storage {
	case StoragePostgres:
		repo, err := messagepostgres.NewRepo(cfg.PostgresDSN, logger)
		if err != nil {
			return fmt.Errorf("failed to create postgres repo: %w", err)
		}
		defer repo.Close()
		registry = room.NewRegistry(repo, sender, &registryCfg, logger)
	default:
		rc, err := redisclient.NewRedisClient(&redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()
		registry = room.NewRegistry(messageredis.NewRepo(rc, 24*14*time.Hour, logger), sender, &registryCfg, logger)
	}
	defer registry.Shutdown()

	tokens := room.NewTokenManager(cfg.Secret)
	searcher := ytsearch.NewClient()
	ctrl := controller.NewController(registry, tokens, searcher, connRepo, sender, logger)

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: ctrl.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
