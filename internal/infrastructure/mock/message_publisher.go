// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/port"
)

// PublishedMessage is a message captured by MockMessagePublisher
type PublishedMessage struct {
	Subject string
	Message any
}

// MockMessagePublisher records published messages instead of sending them
type MockMessagePublisher struct {
	published []PublishedMessage
	err       error
	mu        sync.Mutex
}

// Ensure MockMessagePublisher implements the MessagePublisher interface
var _ port.MessagePublisher = (*MockMessagePublisher)(nil)

// NewMockMessagePublisher creates a new mock publisher for testing
func NewMockMessagePublisher() *MockMessagePublisher {
	return &MockMessagePublisher{}
}

// Publish records the message, or fails with the configured error
func (m *MockMessagePublisher) Publish(ctx context.Context, subject string, message any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.published = append(m.published, PublishedMessage{Subject: subject, Message: message})
	slog.DebugContext(ctx, "mock message published", "subject", subject)
	return nil
}

// SetError makes every following Publish fail with err
func (m *MockMessagePublisher) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Published returns the recorded messages
func (m *MockMessagePublisher) Published() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedMessage(nil), m.published...)
}
