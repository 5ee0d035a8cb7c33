// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import "context"

// MessagePublisher publishes service events for downstream consumers
type MessagePublisher interface {
	// Publish sends message, JSON encoded, on subject
	Publish(ctx context.Context, subject string, message any) error
}
