// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/errors"
)

// GetAllByWorkspaceMemberID implements port.ConnectedAccountReader
func (s *Store) GetAllByWorkspaceMemberID(ctx context.Context, workspaceMemberID, workspaceID string) ([]*model.ConnectedAccount, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT id, workspace_id, workspace_member_id, handle, handle_aliases, provider, created_at
		FROM connected_account
		WHERE workspace_member_id = ? AND workspace_id = ?
		ORDER BY created_at ASC, id ASC`),
		workspaceMemberID, workspaceID)
	if err != nil {
		return nil, errors.NewServiceUnavailable("failed to query connected accounts", err)
	}
	defer rows.Close()

	accounts := make([]*model.ConnectedAccount, 0)
	for rows.Next() {
		var (
			account model.ConnectedAccount
			aliases string
		)
		if err := rows.Scan(&account.ID, &account.WorkspaceID, &account.WorkspaceMemberID,
			&account.Handle, &aliases, &account.Provider, &account.CreatedAt); err != nil {
			return nil, errors.NewUnexpected("failed to scan connected account", err)
		}
		if aliases != "" {
			if err := json.Unmarshal([]byte(aliases), &account.HandleAliases); err != nil {
				return nil, errors.NewUnexpected(fmt.Sprintf("connected account %s has malformed handle aliases", account.ID), err)
			}
		}
		account.CreatedAt = account.CreatedAt.UTC()
		accounts = append(accounts, &account)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewUnexpected("failed to read connected accounts", err)
	}

	return accounts, nil
}

// GetByConnectedAccountID implements port.MessageChannelReader
func (s *Store) GetByConnectedAccountID(ctx context.Context, connectedAccountID string) (*model.MessageChannel, error) {
	var channel model.MessageChannel
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT id, connected_account_id, handle, created_at
		FROM message_channel
		WHERE connected_account_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1`),
		connectedAccountID).Scan(&channel.ID, &channel.ConnectedAccountID, &channel.Handle, &channel.CreatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFound(fmt.Sprintf("no message channel for connected account %s", connectedAccountID))
		}
		return nil, errors.NewServiceUnavailable("failed to query message channel", err)
	}
	channel.CreatedAt = channel.CreatedAt.UTC()

	return &channel, nil
}

// SaveConnectedAccount inserts or replaces a connected account.
func (s *Store) SaveConnectedAccount(ctx context.Context, account *model.ConnectedAccount) error {
	if account == nil || account.ID == "" {
		return errors.NewValidation("connected account id is required")
	}

	aliases := account.HandleAliases
	if aliases == nil {
		aliases = []string{}
	}
	encoded, err := json.Marshal(aliases)
	if err != nil {
		return errors.NewUnexpected("failed to encode handle aliases", err)
	}

	_, err = s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO connected_account (id, workspace_id, workspace_member_id, handle, handle_aliases, provider, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			workspace_member_id = excluded.workspace_member_id,
			handle = excluded.handle,
			handle_aliases = excluded.handle_aliases,
			provider = excluded.provider,
			created_at = excluded.created_at`),
		account.ID, account.WorkspaceID, account.WorkspaceMemberID, account.Handle,
		string(encoded), account.Provider, account.CreatedAt.UTC())
	if err != nil {
		return errors.NewUnexpected("failed to save connected account", err)
	}
	return nil
}

// SaveMessageChannel inserts or replaces a message channel.
func (s *Store) SaveMessageChannel(ctx context.Context, channel *model.MessageChannel) error {
	if channel == nil || channel.ID == "" || channel.ConnectedAccountID == "" {
		return errors.NewValidation("message channel id and connected account id are required")
	}

	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO message_channel (id, connected_account_id, handle, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			connected_account_id = excluded.connected_account_id,
			handle = excluded.handle,
			created_at = excluded.created_at`),
		channel.ID, channel.ConnectedAccountID, channel.Handle, channel.CreatedAt.UTC())
	if err != nil {
		return errors.NewUnexpected("failed to save message channel", err)
	}
	return nil
}
