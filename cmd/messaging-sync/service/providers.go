// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log"
	"log/slog"
	"sync"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/infrastructure/mock"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/infrastructure/nats"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/infrastructure/sqlstore"
	internalService "github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/utils"
)

// RecordRepository is what every record store source provides
type RecordRepository interface {
	port.MessageStore
	port.ConnectedAccountReader
	port.MessageChannelReader
}

var (
	cfg       Config
	cfgDoOnce sync.Once

	natsClient *nats.NATSClient
	natsDoOnce sync.Once

	repository     RecordRepository
	sqlStore       *sqlstore.Store
	repositoryOnce sync.Once
)

// GetConfig loads the configuration once
func GetConfig(ctx context.Context) Config {
	cfgDoOnce.Do(func() {
		loaded, err := LoadConfig()
		if err != nil {
			log.Fatalf("invalid configuration: %v", err)
		}
		slog.InfoContext(ctx, "configuration loaded",
			"repository_source", loaded.Repository.Source,
			"job_payload_encoding", loaded.Jobs.PayloadEncoding,
			"import_max_attempts", loaded.Import.MaxAttempts,
		)
		cfg = loaded
	})
	return cfg
}

func natsInit(ctx context.Context) {
	natsDoOnce.Do(func() {
		c := GetConfig(ctx).NATS

		client, err := nats.NewClient(ctx, nats.Config{
			URL:           c.URL,
			Timeout:       c.Timeout,
			MaxReconnect:  c.MaxReconnect,
			ReconnectWait: c.ReconnectWait,
		})
		if err != nil {
			log.Fatalf("failed to create NATS client: %v", err)
		}
		natsClient = client
	})
}

// GetNATSClient returns the shared NATS client
func GetNATSClient(ctx context.Context) *nats.NATSClient {
	natsInit(ctx)
	return natsClient
}

func repositoryInit(ctx context.Context) {
	repositoryOnce.Do(func() {
		c := GetConfig(ctx).Repository

		switch c.Source {
		case constants.RepositorySourceMock:
			slog.WarnContext(ctx, "initializing in-memory mock repository, data is not persisted")
			repository = mock.NewMockRepository()

		case constants.RepositorySourcePostgres, constants.RepositorySourceSQLite:
			dialect, err := sqlstore.ParseDialect(c.Source)
			if err != nil {
				log.Fatalf("invalid repository source: %v", err)
			}
			slog.InfoContext(ctx, "initializing SQL repository", "dialect", dialect)

			store, err := sqlstore.Open(ctx, dialect, c.DatabaseURL)
			if err != nil {
				log.Fatalf("failed to open %s repository: %v", dialect, err)
			}
			if err := store.Migrate(ctx); err != nil {
				log.Fatalf("failed to migrate %s repository: %v", dialect, err)
			}
			sqlStore = store
			repository = store

		default:
			log.Fatalf("unsupported repository implementation: %s", c.Source)
		}
	})
}

// Repository returns the record store and account readers for REPOSITORY_SOURCE
func Repository(ctx context.Context) RecordRepository {
	repositoryInit(ctx)
	return repository
}

// MessagePublisher returns the NATS publisher for service events
func MessagePublisher(ctx context.Context) port.MessagePublisher {
	return nats.NewMessagePublisher(GetNATSClient(ctx))
}

// JobQueue returns the JetStream job queue
func JobQueue(ctx context.Context) port.JobQueue {
	queue, err := nats.NewJobQueue(GetNATSClient(ctx), GetConfig(ctx).Jobs.PayloadEncoding)
	if err != nil {
		log.Fatalf("failed to create job queue: %v", err)
	}
	return queue
}

// ChannelSyncStatusService returns the KV backed channel sync status service
func ChannelSyncStatusService(ctx context.Context) port.ChannelSyncStatusService {
	syncStatus, err := nats.NewChannelSyncStatusService(GetNATSClient(ctx), MessagePublisher(ctx))
	if err != nil {
		log.Fatalf("failed to create channel sync status service: %v", err)
	}
	return syncStatus
}

// MessageImportService builds the import service over the configured repository
func MessageImportService(ctx context.Context) *internalService.MessageImportService {
	repo := Repository(ctx)
	c := GetConfig(ctx).Import

	return internalService.NewMessageImportService(
		internalService.NewMessageImportEngine(repo),
		repo,
		MessagePublisher(ctx),
		utils.NewRetryConfig(c.MaxAttempts, c.RetryBaseDelay, c.RetryMaxDelay),
	)
}

// BlocklistSyncService builds the blocklist reconciliation service
func BlocklistSyncService(ctx context.Context) *internalService.BlocklistSyncService {
	repo := Repository(ctx)
	return internalService.NewBlocklistSyncService(
		repo,
		repo,
		JobQueue(ctx),
		ChannelSyncStatusService(ctx),
	)
}

// ReadinessChecks returns the checks backing /readyz
func ReadinessChecks(ctx context.Context) map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"nats": GetNATSClient(ctx).IsReady,
	}
	repositoryInit(ctx)
	if sqlStore != nil {
		checks["database"] = sqlStore.Ping
	}
	return checks
}

// Close releases the repository and NATS connection
func Close(ctx context.Context) {
	if sqlStore != nil {
		if err := sqlStore.Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close database", "error", err)
		}
	}
	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close NATS client", "error", err)
		}
	}
}
