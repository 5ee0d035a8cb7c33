// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/errors"
)

// MockChannelSyncStatusService keeps channel sync statuses in memory and
// records every full fetch it schedules.
type MockChannelSyncStatusService struct {
	statuses  map[string]*model.ChannelSyncStatus
	revisions map[string]uint64
	scheduled []model.FullMessageListFetchRequest
	err       error
	mu        sync.Mutex
}

var _ port.ChannelSyncStatusService = (*MockChannelSyncStatusService)(nil)

// NewMockChannelSyncStatusService creates an empty sync status service
func NewMockChannelSyncStatusService() *MockChannelSyncStatusService {
	return &MockChannelSyncStatusService{
		statuses:  make(map[string]*model.ChannelSyncStatus),
		revisions: make(map[string]uint64),
	}
}

// GetChannelSyncStatus implements port.ChannelSyncStatusService
func (s *MockChannelSyncStatusService) GetChannelSyncStatus(ctx context.Context, messageChannelID string) (*model.ChannelSyncStatus, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[messageChannelID]
	if !ok {
		return nil, 0, errors.NewNotFound(fmt.Sprintf("sync status for channel %s not found", messageChannelID))
	}
	statusCopy := *status
	return &statusCopy, s.revisions[messageChannelID], nil
}

// ResetAndScheduleFullMessageListFetch implements port.ChannelSyncStatusService
func (s *MockChannelSyncStatusService) ResetAndScheduleFullMessageListFetch(ctx context.Context, messageChannelID, workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	status, ok := s.statuses[messageChannelID]
	if !ok {
		status = &model.ChannelSyncStatus{MessageChannelID: messageChannelID, WorkspaceID: workspaceID}
		s.statuses[messageChannelID] = status
	}
	status.ResetForFullMessageListFetch(time.Now())
	s.revisions[messageChannelID]++

	s.scheduled = append(s.scheduled, model.FullMessageListFetchRequest{
		MessageChannelID: messageChannelID,
		WorkspaceID:      workspaceID,
	})

	slog.DebugContext(ctx, "mock full message list fetch scheduled", "message_channel_id", messageChannelID)
	return nil
}

// SetStatus seeds the status of a channel
func (s *MockChannelSyncStatusService) SetStatus(status *model.ChannelSyncStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[status.MessageChannelID] = status
	s.revisions[status.MessageChannelID]++
}

// SetError makes every following reset fail with err
func (s *MockChannelSyncStatusService) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Scheduled returns the full fetches scheduled so far
func (s *MockChannelSyncStatusService) Scheduled() []model.FullMessageListFetchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.FullMessageListFetchRequest(nil), s.scheduled...)
}
