// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Kind(t *testing.T) {
	tests := []struct {
		record Record
		want   EntityKind
	}{
		{Message{}, EntityKindMessage},
		{MessageThread{}, EntityKindMessageThread},
		{ChannelMessageAssociation{}, EntityKindChannelMessageAssociation},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.Kind())
		})
	}
}

func TestMessage_JSON(t *testing.T) {
	msg := Message{
		ID:              "m-1",
		HeaderMessageID: "<h1@x.com>",
		Direction:       MessageDirectionOutgoing,
		MessageThreadID: "t-1",
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "outgoing", fields["direction"])
	assert.Equal(t, "t-1", fields["message_thread_id"])
	assert.Equal(t, "<h1@x.com>", fields["header_message_id"])
}
