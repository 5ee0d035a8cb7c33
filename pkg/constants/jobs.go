// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// Job names understood by the messaging job consumers
const (
	// BlocklistItemDeleteMessagesJob purges already imported messages from a blocked sender
	BlocklistItemDeleteMessagesJob = "BlocklistItemDeleteMessages"
)

// Job payload encodings
const (
	JobEncodingJSON    = "json"
	JobEncodingMsgpack = "msgpack"
)

// Job message headers
const (
	JobNameHeader     = "Job-Name"
	ContentTypeHeader = "Content-Type"

	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
)
