// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

const (
	// KVBucketNameChannelSyncStatus is the name of the KV bucket holding per-channel sync status.
	KVBucketNameChannelSyncStatus = "messaging-channel-sync-status"

	// JobsStreamName is the JetStream stream backing the messaging job queue.
	JobsStreamName = "MESSAGING_JOBS"
)
