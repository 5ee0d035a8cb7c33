// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import "time"

// ConnectedAccount is a provider account a workspace member has connected for syncing.
type ConnectedAccount struct {
	ID                string    `json:"id"`
	WorkspaceID       string    `json:"workspace_id"`
	WorkspaceMemberID string    `json:"workspace_member_id"`
	Handle            string    `json:"handle"`
	HandleAliases     []string  `json:"handle_aliases"`
	Provider          string    `json:"provider"` // google, microsoft
	CreatedAt         time.Time `json:"created_at"`
}

// Identity returns the handles used to classify message direction.
func (a ConnectedAccount) Identity() AccountIdentity {
	return AccountIdentity{Handle: a.Handle, HandleAliases: a.HandleAliases}
}

// IsSelf reports whether handle is the account handle or one of its aliases.
func (a ConnectedAccount) IsSelf(handle string) bool {
	return a.Identity().IsSelf(handle)
}

// MessageChannel is the channel a connected account syncs messages through.
type MessageChannel struct {
	ID                 string    `json:"id"`
	ConnectedAccountID string    `json:"connected_account_id"`
	Handle             string    `json:"handle"`
	CreatedAt          time.Time `json:"created_at"`
}
