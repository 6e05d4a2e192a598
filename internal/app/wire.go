package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/avelsher/paperbot/internal/blob/s3"
	"github.com/avelsher/paperbot/internal/cache/redis"
	"github.com/avelsher/paperbot/internal/config"
	"github.com/avelsher/paperbot/internal/notify"
	"github.com/avelsher/paperbot/internal/platform/bybit"
	"github.com/avelsher/paperbot/internal/platform/simmer"
	"github.com/avelsher/paperbot/internal/store/postgres"
)

// Dependencies bundles the shared clients the application modes operate on.
// Optional members stay nil when the mode or configuration does not call for
// them.
type Dependencies struct {
	// Market data and settlement.
	Bybit  *bybit.Client
	Simmer *simmer.Client

	// Resolution mirror.
	Resolutions *postgres.ResolutionStore

	// Distributed run lock.
	Locks *redis.LockManager

	// Snapshot archiver.
	Archiver *s3blob.Archiver

	Notifier *notify.Notifier
}

// needsSimmer reports whether the run will look up binary-market settlement.
func needsSimmer(cfg *config.Config) bool {
	return strings.ToLower(cfg.Mode) == "resolve" && cfg.BinaryEnabled()
}

// needsPostgres reports whether the run mirrors resolutions to PostgreSQL.
func needsPostgres(cfg *config.Config) bool {
	return cfg.Postgres.Enabled && strings.ToLower(cfg.Mode) == "resolve"
}

// needsRedis reports whether the run serialises through the distributed lock.
func needsRedis(cfg *config.Config) bool {
	return cfg.Redis.Enabled && strings.ToLower(cfg.Mode) == "resolve"
}

// needsS3 reports whether the run uploads snapshots.
func needsS3(cfg *config.Config) bool {
	return strings.ToLower(cfg.Mode) == "archive"
}

// Wire constructs the concrete dependencies for cfg and returns them with a
// cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	deps.Bybit = bybit.NewClient(
		cfg.Bybit.BaseURL,
		cfg.Bybit.Category,
		cfg.Bybit.RequestTimeout.Duration,
	)

	if needsSimmer(cfg) {
		deps.Simmer = simmer.NewClient(
			cfg.Simmer.BaseURL,
			cfg.Simmer.ApiKey,
			cfg.Simmer.RequestTimeout.Duration,
		)
	}

	if needsPostgres(cfg) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.Resolutions = postgres.NewResolutionStore(pgClient.Pool())
	}

	if needsRedis(cfg) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Locks = redis.NewLockManager(redisClient)
	}

	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), logger)
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
