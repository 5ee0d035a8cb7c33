// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/log"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/redaction"
)

type blocklistEventHandler func(ctx context.Context, data []byte) error

// BlocklistSyncService keeps imported messages consistent with blocklist changes.
// Creating an entry purges the blocked sender's messages; deleting one forces a
// full resync of the member's channel; updating one does both.
type BlocklistSyncService struct {
	accountReader port.ConnectedAccountReader
	channelReader port.MessageChannelReader
	jobQueue      port.JobQueue
	syncStatus    port.ChannelSyncStatusService
	handlers      map[string]blocklistEventHandler
	tracer        trace.Tracer
}

// NewBlocklistSyncService creates a new blocklist sync service
func NewBlocklistSyncService(
	accountReader port.ConnectedAccountReader,
	channelReader port.MessageChannelReader,
	jobQueue port.JobQueue,
	syncStatus port.ChannelSyncStatusService,
) *BlocklistSyncService {
	s := &BlocklistSyncService{
		accountReader: accountReader,
		channelReader: channelReader,
		jobQueue:      jobQueue,
		syncStatus:    syncStatus,
		tracer:        otel.Tracer(instrumentationName),
	}
	s.handlers = map[string]blocklistEventHandler{
		constants.BlocklistCreatedSubject: s.handleCreated,
		constants.BlocklistDeletedSubject: s.handleDeleted,
		constants.BlocklistUpdatedSubject: s.handleUpdated,
	}
	return s
}

// Subjects lists the event subjects the service handles
func (s *BlocklistSyncService) Subjects() []string {
	return []string{
		constants.BlocklistCreatedSubject,
		constants.BlocklistDeletedSubject,
		constants.BlocklistUpdatedSubject,
	}
}

// HandleMessage routes NATS messages to the handler registered for their subject
func (s *BlocklistSyncService) HandleMessage(ctx context.Context, msg *nats.Msg) error {
	subject := msg.Subject

	ctx, span := s.tracer.Start(ctx, "BlocklistSyncService.HandleMessage",
		trace.WithAttributes(attribute.String("messaging.subject", subject)))
	defer span.End()

	slog.DebugContext(ctx, "received blocklist event", "subject", subject)

	handler, ok := s.handlers[subject]
	if !ok {
		slog.WarnContext(ctx, "unknown blocklist event subject", "subject", subject)
		return fmt.Errorf("unknown blocklist event subject: %s", subject)
	}

	if err := handler(ctx, msg.Data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "blocklist event failed")
		slog.ErrorContext(ctx, "error processing blocklist event",
			"error", err,
			"subject", subject)
		return err
	}

	return nil
}

// handleCreated purges messages from the newly blocked sender. No resync: the
// messages to drop are already here.
func (s *BlocklistSyncService) handleCreated(ctx context.Context, data []byte) error {
	var event model.BlocklistCreatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.ErrorContext(ctx, "failed to unmarshal blocklist created event", "error", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	ctx = log.AppendCtx(ctx, slog.String("workspace_id", event.WorkspaceID))
	slog.InfoContext(ctx, "processing blocklist created event", "blocklist_item_id", event.RecordID)

	return s.enqueueDeleteMessages(ctx, event.WorkspaceID, event.RecordID)
}

// handleDeleted recovers the messages the entry was hiding with a full resync.
func (s *BlocklistSyncService) handleDeleted(ctx context.Context, data []byte) error {
	var event model.BlocklistDeletedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.ErrorContext(ctx, "failed to unmarshal blocklist deleted event", "error", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	ctx = log.AppendCtx(ctx, slog.String("workspace_id", event.WorkspaceID))
	slog.InfoContext(ctx, "processing blocklist deleted event",
		"blocklist_item_id", event.RecordID,
		"workspace_member_id", event.Before.WorkspaceMember.ID)

	return s.resyncMemberChannel(ctx, event.WorkspaceID, event.Before.WorkspaceMember.ID)
}

// handleUpdated covers both sides of the change: the new handle is purged and
// the old one is recovered.
func (s *BlocklistSyncService) handleUpdated(ctx context.Context, data []byte) error {
	var event model.BlocklistUpdatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.ErrorContext(ctx, "failed to unmarshal blocklist updated event", "error", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	ctx = log.AppendCtx(ctx, slog.String("workspace_id", event.WorkspaceID))
	slog.InfoContext(ctx, "processing blocklist updated event",
		"blocklist_item_id", event.RecordID,
		"workspace_member_id", event.Before.WorkspaceMember.ID,
		"handles", redaction.RedactEmails([]string{event.Before.Handle, event.After.Handle}))

	if event.Before.WorkspaceMember.ID == "" {
		return errors.NewValidation("blocklist updated event is missing before.workspace_member.id")
	}

	if err := s.enqueueDeleteMessages(ctx, event.WorkspaceID, event.RecordID); err != nil {
		return err
	}

	return s.resyncMemberChannel(ctx, event.WorkspaceID, event.Before.WorkspaceMember.ID)
}

func (s *BlocklistSyncService) enqueueDeleteMessages(ctx context.Context, workspaceID, blocklistItemID string) error {
	payload := model.BlocklistItemDeleteMessagesJobData{
		WorkspaceID:     workspaceID,
		BlocklistItemID: blocklistItemID,
	}

	if err := s.jobQueue.Enqueue(ctx, constants.BlocklistItemDeleteMessagesJob, payload); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue blocklist delete messages job",
			"error", err,
			"blocklist_item_id", blocklistItemID)
		return fmt.Errorf("failed to enqueue %s: %w", constants.BlocklistItemDeleteMessagesJob, err)
	}

	slog.InfoContext(ctx, "blocklist delete messages job enqueued", "blocklist_item_id", blocklistItemID)
	return nil
}

// resyncMemberChannel schedules a full fetch for the channel of the member's
// oldest connected account. A member without accounts has nothing to resync;
// an account without a channel is a data integrity error.
func (s *BlocklistSyncService) resyncMemberChannel(ctx context.Context, workspaceID, workspaceMemberID string) error {
	if workspaceMemberID == "" {
		return errors.NewValidation("blocklist event is missing before.workspace_member.id")
	}

	accounts, err := s.accountReader.GetAllByWorkspaceMemberID(ctx, workspaceMemberID, workspaceID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get connected accounts",
			"error", err,
			"workspace_member_id", workspaceMemberID)
		return fmt.Errorf("failed to get connected accounts: %w", err)
	}

	if len(accounts) == 0 {
		slog.InfoContext(ctx, "no connected accounts for workspace member (nothing to resync)",
			"workspace_member_id", workspaceMemberID)
		return nil
	}

	account := accounts[0]
	if len(accounts) > 1 {
		slog.DebugContext(ctx, "workspace member has several connected accounts, using the oldest",
			"workspace_member_id", workspaceMemberID,
			"connected_account_id", account.ID,
			"account_count", len(accounts))
	}

	channel, err := s.channelReader.GetByConnectedAccountID(ctx, account.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get message channel for connected account",
			"error", err,
			"connected_account_id", account.ID)
		return fmt.Errorf("failed to get message channel for connected account %s: %w", account.ID, err)
	}

	if err := s.syncStatus.ResetAndScheduleFullMessageListFetch(ctx, channel.ID, workspaceID); err != nil {
		slog.ErrorContext(ctx, "failed to schedule full message list fetch",
			"error", err,
			"message_channel_id", channel.ID)
		return fmt.Errorf("failed to reset channel %s sync status: %w", channel.ID, err)
	}

	slog.InfoContext(ctx, "full message list fetch scheduled",
		"message_channel_id", channel.ID,
		"connected_account_id", account.ID)
	return nil
}
