// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import "time"

// SyncStage is the position of a message channel in the sync cycle.
type SyncStage string

// SyncStage constants
const (
	SyncStageFullMessageListFetchPending    SyncStage = "FULL_MESSAGE_LIST_FETCH_PENDING"
	SyncStagePartialMessageListFetchPending SyncStage = "PARTIAL_MESSAGE_LIST_FETCH_PENDING"
	SyncStageMessageListFetchOngoing        SyncStage = "MESSAGE_LIST_FETCH_ONGOING"
	SyncStageMessagesImportPending          SyncStage = "MESSAGES_IMPORT_PENDING"
	SyncStageMessagesImportOngoing          SyncStage = "MESSAGES_IMPORT_ONGOING"
	SyncStageFailed                         SyncStage = "FAILED"
)

// ChannelSyncStatus tracks the sync cycle of one message channel.
type ChannelSyncStatus struct {
	MessageChannelID     string     `json:"message_channel_id"`
	WorkspaceID          string     `json:"workspace_id"`
	SyncStage            SyncStage  `json:"sync_stage"`
	SyncCursor           string     `json:"sync_cursor,omitempty"`
	SyncStageStartedAt   *time.Time `json:"sync_stage_started_at,omitempty"`
	ThrottleFailureCount int        `json:"throttle_failure_count"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// ResetForFullMessageListFetch moves the channel back to the start of a full
// sync. The cursor is dropped so the next fetch lists every message again.
func (s *ChannelSyncStatus) ResetForFullMessageListFetch(now time.Time) {
	s.SyncStage = SyncStageFullMessageListFetchPending
	s.SyncCursor = ""
	s.SyncStageStartedAt = nil
	s.ThrottleFailureCount = 0
	s.UpdatedAt = now.UTC()
}

// FullMessageListFetchRequest asks the scheduler to run a full fetch for a channel.
type FullMessageListFetchRequest struct {
	MessageChannelID string `json:"message_channel_id"`
	WorkspaceID      string `json:"workspace_id"`
}
