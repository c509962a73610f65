// Package main is the entrypoint for the Flowbot integration gateway.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowbot/flowbot/internal/auth"
	"github.com/flowbot/flowbot/internal/cache"
	"github.com/flowbot/flowbot/internal/config"
	"github.com/flowbot/flowbot/internal/handler"
	"github.com/flowbot/flowbot/internal/metrics"
	"github.com/flowbot/flowbot/internal/repository"
	"github.com/flowbot/flowbot/internal/secret"
	"github.com/flowbot/flowbot/internal/server"
	"github.com/flowbot/flowbot/internal/service"
	"github.com/flowbot/flowbot/internal/storage"
	"github.com/flowbot/flowbot/internal/ticketing"
	"github.com/flowbot/flowbot/internal/trudesk"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if cfg.RunMigrations {
		if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Error("failed to run migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	repo, err := repository.NewWithOptions(ctx, cfg.DatabaseURL, repository.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	cipher, err := secret.NewCipher(cfg.EncryptionSecret)
	if err != nil {
		logger.Error("failed to initialize credential cipher", "error", err)
		os.Exit(1)
	}

	sessions, err := auth.NewSessionManager(cfg.SessionSecret, auth.DefaultSessionTTL)
	switch {
	case errors.Is(err, auth.ErrSessionsDisabled):
		sessions = nil
		logger.Info("session tokens disabled; API keys only")
	case err != nil:
		logger.Error("failed to initialize sessions", "error", err)
		os.Exit(1)
	}

	signer, err := storage.NewSigner(cfg.Storage())
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		signer = nil
		logger.Warn("no storage provider configured; upload URLs disabled")
	case err != nil:
		logger.Error("failed to initialize storage signer", "error", err)
		os.Exit(1)
	default:
		logger.Info("storage provider ready", "provider", signer.Provider())
	}

	recorder := metrics.NewPrometheus()

	httpClient := trudesk.NewHTTPClient(cfg.TrudeskTimeout, cfg.TrudeskAllowPrivateHosts)
	newClient := func(baseURL string) (ticketing.API, error) {
		c, err := trudesk.New(baseURL, httpClient, cfg.TrudeskAllowPrivateHosts)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	ticketService := ticketing.NewService(repo, cipher, newClient, recorder, logger)
	credentialService := service.NewCredentialService(repo, cipher, cfg.TrudeskAllowPrivateHosts, recorder)
	resultService := service.NewResultService(repo)

	handlers := routes{
		index:     handler.New(),
		health:    handler.NewHealthHandler(repo, cacheClient).WithLogger(logger),
		ticketing: handler.NewTicketingHandler(ticketService, logger),
		creds:     handler.NewCredentialHandler(credentialService, logger),
		upload:    handler.NewUploadHandler(signer, recorder, logger),
		results:   handler.NewResultHandler(resultService, logger),
		embed:     handler.NewEmbedHandler(cfg.EmbedScriptURL, cfg.EmbedAPIHost(), logger),
		apiKeys:   handler.NewAPIKeyHandler(logger, repo, cacheClient),
		admin:     handler.NewAdminHandler(repo, repo, logger),
		metrics:   promhttp.HandlerFor(recorder.Registry(), promhttp.HandlerOpts{}),
	}

	r := setupRouter(handlers, repo, cacheClient, sessions, cfg, logger)

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "flowbot")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
