package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/watchroom/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	secret = configVar[string]{
		envKey:       "SERVER_SECRET",
		flagKey:      "secret",
		defaultValue: "",
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	storage = configVar[string]{
		envKey:       "SERVER_STORAGE",
		flagKey:      "storage",
		defaultValue: app.StorageRedis,
	}
	roomIdleTimeout = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_IDLE_TIMEOUT",
		flagKey:      "room-idle-timeout",
		defaultValue: time.Minute,
	}
	chatHistorySize = configVar[int]{
		envKey:       "SERVER_CHAT_HISTORY_SIZE",
		flagKey:      "chat-history-size",
		defaultValue: 50,
	}
	chatMessageMaxLength = configVar[int]{
		envKey:       "SERVER_CHAT_MESSAGE_MAX_LENGTH",
		flagKey:      "chat-message-max-length",
		defaultValue: 500,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
	postgresDSN = configVar[string]{
		envKey:       "POSTGRES_DSN",
		flagKey:      "postgres-dsn",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(secret.flagKey, secret.defaultValue, "Server secret")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.String(storage.flagKey, storage.defaultValue, "Message storage backend (redis or postgres)")
	pflag.Duration(roomIdleTimeout.flagKey, roomIdleTimeout.defaultValue, "How long an empty room survives before eviction")
	pflag.Int(chatHistorySize.flagKey, chatHistorySize.defaultValue, "Number of chat messages replayed to a joining member")
	pflag.Int(chatMessageMaxLength.flagKey, chatMessageMaxLength.defaultValue, "Maximum chat message length")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.String(postgresDSN.flagKey, postgresDSN.defaultValue, "Postgres connection string")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(secret.flagKey, secret.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(storage.flagKey, storage.envKey)
	viper.BindEnv(roomIdleTimeout.flagKey, roomIdleTimeout.envKey)
	viper.BindEnv(chatHistorySize.flagKey, chatHistorySize.envKey)
	viper.BindEnv(chatMessageMaxLength.flagKey, chatMessageMaxLength.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)
	viper.BindEnv(postgresDSN.flagKey, postgresDSN.envKey)

	viper.SetDefault(secret.flagKey, secret.defaultValue)
	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(storage.flagKey, storage.defaultValue)
	viper.SetDefault(roomIdleTimeout.flagKey, roomIdleTimeout.defaultValue)
	viper.SetDefault(chatHistorySize.flagKey, chatHistorySize.defaultValue)
	viper.SetDefault(chatMessageMaxLength.flagKey, chatMessageMaxLength.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)
	viper.SetDefault(postgresDSN.flagKey, postgresDSN.defaultValue)

	return &app.AppConfig{
		Secret:               viper.GetString(secret.flagKey),
		Host:                 viper.GetString(host.flagKey),
		Port:                 viper.GetInt(port.flagKey),
		LogLevel:             viper.GetString(logLevel.flagKey),
		Storage:              viper.GetString(storage.flagKey),
		RoomIdleTimeout:      viper.GetDuration(roomIdleTimeout.flagKey),
		ChatHistorySize:      viper.GetInt(chatHistorySize.flagKey),
		ChatMessageMaxLength: viper.GetInt(chatMessageMaxLength.flagKey),
		RedisHost:            viper.GetString(redisHost.flagKey),
		RedisPort:            viper.GetInt(redisPort.flagKey),
		RedisPassword:        viper.GetString(redisPassword.flagKey),
		PostgresDSN:          viper.GetString(postgresDSN.flagKey),
	}
}

func main() {
	ctx := context.Background()

	// .env is optional
	godotenv.Load()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
