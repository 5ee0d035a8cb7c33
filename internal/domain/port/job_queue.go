// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import "context"

// JobQueue hands work to asynchronous job consumers with at-least-once delivery.
type JobQueue interface {
	Enqueue(ctx context.Context, jobName string, payload any) error
}
