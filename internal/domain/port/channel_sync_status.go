// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/model"
)

// ChannelSyncStatusService controls the sync cycle of message channels
type ChannelSyncStatusService interface {
	// GetChannelSyncStatus returns the current status and its revision.
	// Returns errors.NotFound if the channel has never been synced.
	GetChannelSyncStatus(ctx context.Context, messageChannelID string) (*model.ChannelSyncStatus, uint64, error)

	// ResetAndScheduleFullMessageListFetch moves the channel back to a pending full
	// fetch and schedules it. Safe to call repeatedly.
	ResetAndScheduleFullMessageListFetch(ctx context.Context, messageChannelID, workspaceID string) error
}
