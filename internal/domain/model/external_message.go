// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package model defines the domain models and entities for the messaging sync service.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/utils"
)

// EpochMillis is a provider timestamp in milliseconds since the Unix epoch.
// It decodes from either a JSON number or a decimal string, since some
// providers (Gmail's internalDate) send it quoted.
type EpochMillis int64

// Time returns the timestamp as a UTC time.
func (e EpochMillis) Time() time.Time {
	return utils.EpochMillisToTime(int64(e))
}

// MarshalJSON encodes the timestamp as a JSON number.
func (e EpochMillis) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(e), 10)), nil
}

// UnmarshalJSON accepts 1000, "1000" and RFC 3339 strings.
func (e *EpochMillis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*e = 0
		return nil
	}

	raw := string(data)
	quoted := strings.HasPrefix(raw, `"`)
	if quoted {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}

	millis, err := utils.ParseEpochMillis(raw)
	if err != nil {
		// Microsoft Graph reports dates as RFC 3339 strings.
		if quoted {
			if t, rfcErr := utils.ValidateRFC3339(raw); rfcErr == nil && t.UnixMilli() >= 0 {
				*e = EpochMillis(t.UnixMilli())
				return nil
			}
		}
		return err
	}
	*e = EpochMillis(millis)
	return nil
}

// ExternalMessage is a message as normalized by the provider fetch layer.
// It is read-only for the duration of an import batch.
type ExternalMessage struct {
	ExternalID       string      `json:"external_id"`        // provider-unique within a channel
	HeaderMessageID  string      `json:"header_message_id"`  // RFC 5322 Message-ID
	ThreadExternalID string      `json:"thread_external_id"` // provider thread id
	Subject          string      `json:"subject"`
	Text             string      `json:"text"`
	SentAt           EpochMillis `json:"sent_at"`
	FromHandle       string      `json:"from_handle"`
}

// Validate checks the identifiers the dedup steps rely on.
func (m ExternalMessage) Validate() error {
	if strings.TrimSpace(m.ExternalID) == "" {
		return errors.NewValidation("external message is missing external_id")
	}
	if strings.TrimSpace(m.HeaderMessageID) == "" {
		return errors.NewValidation(fmt.Sprintf("external message %s is missing header_message_id", m.ExternalID))
	}
	return nil
}

// AccountIdentity is the part of a connected account used for direction classification.
type AccountIdentity struct {
	Handle        string   `json:"handle"`
	HandleAliases []string `json:"handle_aliases,omitempty"`
}

// IsSelf reports whether handle belongs to the account owner.
func (a AccountIdentity) IsSelf(handle string) bool {
	if handle == "" {
		return false
	}
	if handle == a.Handle {
		return true
	}
	for _, alias := range a.HandleAliases {
		if handle == alias {
			return true
		}
	}
	return false
}

// ImportBatchRequest is the envelope the fetch layer publishes for one batch of one channel.
type ImportBatchRequest struct {
	WorkspaceID      string            `json:"workspace_id"`
	MessageChannelID string            `json:"message_channel_id"`
	Account          AccountIdentity   `json:"account"`
	Messages         []ExternalMessage `json:"messages"`
}

// Validate checks the envelope and every message in it.
func (r ImportBatchRequest) Validate() error {
	if r.MessageChannelID == "" {
		return errors.NewValidation("import batch is missing message_channel_id")
	}
	if r.Account.Handle == "" {
		return errors.NewValidation("import batch is missing account handle")
	}
	for _, m := range r.Messages {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MessagesImportedEvent is published after a batch commits with new messages.
type MessagesImportedEvent struct {
	WorkspaceID      string            `json:"workspace_id"`
	MessageChannelID string            `json:"message_channel_id"`
	MessageIDs       map[string]string `json:"message_ids"` // external id -> message id
	ImportedAt       time.Time         `json:"imported_at"`
}
