// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// NATS subjects for blocklist record lifecycle events
const (
	BlocklistCreatedSubject = "lfx.messaging.blocklist.created"
	BlocklistUpdatedSubject = "lfx.messaging.blocklist.updated"
	BlocklistDeletedSubject = "lfx.messaging.blocklist.deleted"
)

// NATS subjects for message import
const (
	// ImportBatchSubject carries batches of normalized messages from the fetch layer
	ImportBatchSubject = "lfx.messaging.import_batch"
	// MessagesImportedSubject announces messages created by a committed import batch
	MessagesImportedSubject = "lfx.messaging.messages_imported"
)

// NATS subjects for channel sync scheduling
const (
	// FullMessageListFetchSubject asks the sync scheduler to run a full fetch for a channel
	FullMessageListFetchSubject = "lfx.messaging.channel.full_message_list_fetch"
)

// JobSubjectPrefix is prepended to the job name to build the JetStream subject
const JobSubjectPrefix = "lfx.messaging.jobs."

// MessagingSyncQueue is the NATS queue group for messaging sync subscriptions
const MessagingSyncQueue = "lfx-v2-messaging-sync"
