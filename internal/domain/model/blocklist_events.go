// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

// BlocklistCreatedEvent is emitted when a member blocks a sender.
type BlocklistCreatedEvent struct {
	WorkspaceID string `json:"workspace_id"`
	RecordID    string `json:"record_id"`
}

// BlocklistDeletedEvent is emitted when a blocklist entry is removed.
type BlocklistDeletedEvent struct {
	WorkspaceID string             `json:"workspace_id"`
	RecordID    string             `json:"record_id"`
	Before      BlocklistEntryData `json:"before"`
}

// BlocklistUpdatedEvent is emitted when a blocklist entry changes.
type BlocklistUpdatedEvent struct {
	WorkspaceID string             `json:"workspace_id"`
	RecordID    string             `json:"record_id"`
	Before      BlocklistEntryData `json:"before"`
	After       BlocklistEntryData `json:"after"`
}

// BlocklistEntryData is the state of a blocklist entry carried by events.
type BlocklistEntryData struct {
	ID              string              `json:"id,omitempty"`
	Handle          string              `json:"handle,omitempty"`
	WorkspaceMember WorkspaceMemberData `json:"workspace_member"`
}

// WorkspaceMemberData identifies the member owning a blocklist entry.
type WorkspaceMemberData struct {
	ID string `json:"id"`
}

// BlocklistItemDeleteMessagesJobData is the payload of the BlocklistItemDeleteMessages job.
type BlocklistItemDeleteMessagesJobData struct {
	WorkspaceID     string `json:"workspace_id" msgpack:"workspace_id"`
	BlocklistItemID string `json:"blocklist_item_id" msgpack:"blocklist_item_id"`
}
