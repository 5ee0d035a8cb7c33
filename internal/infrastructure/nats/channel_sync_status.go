// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/utils"
)

// keyValue is the part of jetstream.KeyValue the sync status store needs
type keyValue interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Update(ctx context.Context, key string, value []byte, revision uint64) (uint64, error)
}

// channelSyncStatusStore keeps channel sync status in the
// messaging-channel-sync-status bucket, keyed by message channel id.
type channelSyncStatusStore struct {
	kv        keyValue
	publisher port.MessagePublisher
	retry     utils.RetryConfig
	now       func() time.Time
}

// GetChannelSyncStatus implements port.ChannelSyncStatusService
func (s *channelSyncStatusStore) GetChannelSyncStatus(ctx context.Context, messageChannelID string) (*model.ChannelSyncStatus, uint64, error) {
	if messageChannelID == "" {
		return nil, 0, errs.NewValidation("message channel id cannot be empty")
	}

	entry, err := s.kv.Get(ctx, messageChannelID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, 0, errs.NewNotFound("channel sync status not found")
		}
		slog.ErrorContext(ctx, "failed to get channel sync status",
			"error", err,
			"message_channel_id", messageChannelID,
		)
		return nil, 0, errs.NewServiceUnavailable("failed to get channel sync status", err)
	}

	status := &model.ChannelSyncStatus{}
	if err := json.Unmarshal(entry.Value(), status); err != nil {
		return nil, 0, errs.NewUnexpected("malformed channel sync status", err)
	}

	return status, entry.Revision(), nil
}

// ResetAndScheduleFullMessageListFetch implements port.ChannelSyncStatusService.
// The status update is a compare-and-swap on the entry revision and is retried
// when another writer got there first.
func (s *channelSyncStatusStore) ResetAndScheduleFullMessageListFetch(ctx context.Context, messageChannelID, workspaceID string) error {
	if messageChannelID == "" {
		return errs.NewValidation("message channel id cannot be empty")
	}

	err := utils.RetryWithExponentialBackoff(ctx, s.retry, func() error {
		return s.reset(ctx, messageChannelID, workspaceID)
	})
	if err != nil {
		return err
	}

	request := model.FullMessageListFetchRequest{
		MessageChannelID: messageChannelID,
		WorkspaceID:      workspaceID,
	}
	if err := s.publisher.Publish(ctx, constants.FullMessageListFetchSubject, request); err != nil {
		return err
	}

	slog.InfoContext(ctx, "full message list fetch scheduled",
		"message_channel_id", messageChannelID,
		"workspace_id", workspaceID,
	)
	return nil
}

func (s *channelSyncStatusStore) reset(ctx context.Context, messageChannelID, workspaceID string) error {
	status, revision, err := s.GetChannelSyncStatus(ctx, messageChannelID)
	if err != nil {
		var notFound errs.NotFound
		if !errors.As(err, &notFound) {
			return err
		}
		status = &model.ChannelSyncStatus{MessageChannelID: messageChannelID}
	}
	if status.WorkspaceID == "" {
		status.WorkspaceID = workspaceID
	}
	if status.SyncStage != "" {
		previousStartedAt := ""
		if started := utils.FormatTimePtr(status.SyncStageStartedAt); started != nil {
			previousStartedAt = *started
		}
		slog.DebugContext(ctx, "resetting channel sync status",
			"message_channel_id", messageChannelID,
			"previous_stage", status.SyncStage,
			"previous_stage_started_at", previousStartedAt,
		)
	}
	status.ResetForFullMessageListFetch(s.now())

	data, err := json.Marshal(status)
	if err != nil {
		return errs.NewUnexpected("failed to encode channel sync status", err)
	}

	if revision == 0 {
		_, err = s.kv.Put(ctx, messageChannelID, data)
	} else {
		_, err = s.kv.Update(ctx, messageChannelID, data, revision)
	}
	if err != nil {
		if isWrongLastSequence(err) {
			return errs.NewConflict("channel sync status changed concurrently", err)
		}
		slog.ErrorContext(ctx, "failed to store channel sync status",
			"error", err,
			"message_channel_id", messageChannelID,
			"revision", revision,
		)
		return errs.NewServiceUnavailable("failed to store channel sync status", err)
	}

	return nil
}

func isWrongLastSequence(err error) bool {
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

// NewChannelSyncStatusService creates a KV backed channel sync status service.
// Scheduled fetches are announced through publisher.
func NewChannelSyncStatusService(client *NATSClient, publisher port.MessagePublisher) (port.ChannelSyncStatusService, error) {
	kv, ok := client.kvStore[constants.KVBucketNameChannelSyncStatus]
	if !ok || kv == nil {
		return nil, errs.NewServiceUnavailable("KV bucket not available")
	}
	return newChannelSyncStatusStore(kv, publisher), nil
}

func newChannelSyncStatusStore(kv keyValue, publisher port.MessagePublisher) *channelSyncStatusStore {
	retry := utils.NewRetryConfig(3, 50*time.Millisecond, 500*time.Millisecond)
	retry.Retryable = errs.IsRetryable
	return &channelSyncStatusStore{
		kv:        kv,
		publisher: publisher,
		retry:     retry,
		now:       time.Now,
	}
}
