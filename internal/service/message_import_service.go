// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/log"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/utils"
)

// MessageImportService receives import batches from the fetch layer, runs the
// import engine inside one unit-of-work per attempt and announces what was created.
type MessageImportService struct {
	engine     *MessageImportEngine
	uowManager port.UnitOfWorkManager
	publisher  port.MessagePublisher
	retry      utils.RetryConfig
	now        func() time.Time
}

// NewMessageImportService creates a new import service. Only errors accepted by
// errors.IsRetryable are retried unless retry.Retryable is already set.
func NewMessageImportService(
	engine *MessageImportEngine,
	uowManager port.UnitOfWorkManager,
	publisher port.MessagePublisher,
	retry utils.RetryConfig,
) *MessageImportService {
	if retry.Retryable == nil {
		retry.Retryable = errors.IsRetryable
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &MessageImportService{
		engine:     engine,
		uowManager: uowManager,
		publisher:  publisher,
		retry:      retry,
		now:        time.Now,
	}
}

// HandleMessage decodes an import batch from msg and imports it
func (s *MessageImportService) HandleMessage(ctx context.Context, msg *nats.Msg) error {
	if msg.Subject != constants.ImportBatchSubject {
		slog.WarnContext(ctx, "unexpected import subject", "subject", msg.Subject)
		return fmt.Errorf("unknown import subject: %s", msg.Subject)
	}

	var request model.ImportBatchRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		slog.ErrorContext(ctx, "failed to unmarshal import batch", "error", err)
		return fmt.Errorf("failed to unmarshal import batch: %w", err)
	}

	_, err := s.Import(ctx, request)
	return err
}

// Import runs the batch to completion, retrying the whole unit-of-work on
// lost races and aborted commits. It returns the messages created by the
// attempt that committed.
func (s *MessageImportService) Import(ctx context.Context, request model.ImportBatchRequest) (map[string]string, error) {
	ctx = log.AppendCtx(ctx, slog.String("workspace_id", request.WorkspaceID))
	ctx = log.AppendCtx(ctx, slog.String("message_channel_id", request.MessageChannelID))

	if err := request.Validate(); err != nil {
		slog.ErrorContext(ctx, "invalid import batch", "error", err)
		return nil, err
	}
	if len(request.Messages) == 0 {
		slog.DebugContext(ctx, "empty import batch, nothing to do")
		return map[string]string{}, nil
	}

	var created map[string]string
	err := utils.RetryWithExponentialBackoff(ctx, s.retry, func() error {
		return s.uowManager.WithinUnitOfWork(ctx, func(ctx context.Context, uow port.UnitOfWork) error {
			result, err := s.engine.ImportBatch(ctx, uow, request.Messages, request.Account, request.MessageChannelID)
			if err != nil {
				return err
			}
			created = result
			return nil
		})
	})
	if err != nil {
		slog.ErrorContext(ctx, "import batch failed", "error", err, "batch_size", len(request.Messages), log.PriorityCritical())
		return nil, err
	}

	if len(created) == 0 {
		return created, nil
	}

	event := model.MessagesImportedEvent{
		WorkspaceID:      request.WorkspaceID,
		MessageChannelID: request.MessageChannelID,
		MessageIDs:       created,
		ImportedAt:       s.now().UTC(),
	}
	// The records are committed; a lost notification must not trigger a re-import.
	if err := s.publisher.Publish(ctx, constants.MessagesImportedSubject, event); err != nil {
		slog.WarnContext(ctx, "failed to publish messages imported event",
			"error", err,
			"created", len(created),
		)
	}

	return created, nil
}
