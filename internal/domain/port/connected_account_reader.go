// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/model"
)

// ConnectedAccountReader looks up connected accounts
type ConnectedAccountReader interface {
	// GetAllByWorkspaceMemberID returns the member's accounts in the workspace,
	// oldest first (created_at, then id). Returns an empty slice when there are none.
	GetAllByWorkspaceMemberID(ctx context.Context, workspaceMemberID, workspaceID string) ([]*model.ConnectedAccount, error)
}

// MessageChannelReader looks up message channels
type MessageChannelReader interface {
	// GetByConnectedAccountID returns the channel bound to the account.
	// Returns errors.NotFound when the account has no channel.
	GetByConnectedAccountID(ctx context.Context, connectedAccountID string) (*model.MessageChannel, error)
}
