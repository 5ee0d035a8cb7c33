// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import "time"

// EntityKind tags the records held by the record store.
type EntityKind string

// EntityKind constants
const (
	EntityKindMessage                   EntityKind = "message"
	EntityKindMessageThread             EntityKind = "message_thread"
	EntityKindChannelMessageAssociation EntityKind = "message_channel_message_association"
)

// Record is implemented by every entity the record store persists.
type Record interface {
	Kind() EntityKind
}

// MessageDirection classifies a message relative to the connected account.
type MessageDirection string

// MessageDirection constants
const (
	MessageDirectionIncoming MessageDirection = "incoming"
	MessageDirectionOutgoing MessageDirection = "outgoing"
)

// Message is the workspace-wide record of one email, keyed by its header Message-ID.
type Message struct {
	ID              string           `json:"id"`
	HeaderMessageID string           `json:"header_message_id"` // unique in the workspace
	Subject         string           `json:"subject"`
	ReceivedAt      time.Time        `json:"received_at"`
	Direction       MessageDirection `json:"direction"`
	Text            string           `json:"text"`
	MessageThreadID string           `json:"message_thread_id"`
}

// Kind implements Record.
func (Message) Kind() EntityKind { return EntityKindMessage }

// MessageThread groups the messages of one conversation.
type MessageThread struct {
	ID string `json:"id"`
}

// Kind implements Record.
func (MessageThread) Kind() EntityKind { return EntityKindMessageThread }

// ChannelMessageAssociation is a channel's view of a message.
// (MessageChannelID, MessageExternalID) is unique.
type ChannelMessageAssociation struct {
	MessageChannelID        string `json:"message_channel_id"`
	MessageID               string `json:"message_id"`
	MessageExternalID       string `json:"message_external_id"`
	MessageThreadExternalID string `json:"message_thread_external_id"`
}

// Kind implements Record.
func (ChannelMessageAssociation) Kind() EntityKind { return EntityKindChannelMessageAssociation }
