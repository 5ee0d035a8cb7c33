// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/errors"
)

// msgPublisher is the part of *nats.Conn the publisher needs
type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// messagingPublisher implements the MessagePublisher interface using core NATS
type messagingPublisher struct {
	ready func(ctx context.Context) error
	conn  msgPublisher
}

// Publish sends message as JSON on subject
func (m *messagingPublisher) Publish(ctx context.Context, subject string, message any) error {
	if err := m.ready(ctx); err != nil {
		slog.ErrorContext(ctx, "NATS client is not ready for publishing",
			"error", err,
			"subject", subject,
		)
		return errors.NewServiceUnavailable("NATS client is not ready", err)
	}

	data, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal message to JSON",
			"error", err,
			"subject", subject,
		)
		return errors.NewUnexpected("failed to marshal message", err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(constants.ContentTypeHeader, constants.ContentTypeJSON)

	if err := m.conn.PublishMsg(msg); err != nil {
		slog.ErrorContext(ctx, "failed to publish message to NATS",
			"error", err,
			"subject", subject,
		)
		return errors.NewServiceUnavailable("failed to publish message", err)
	}

	slog.DebugContext(ctx, "message published successfully",
		"subject", subject,
		"message_size", len(data),
	)

	return nil
}

// NewMessagePublisher creates a new MessagePublisher using NATS
func NewMessagePublisher(client *NATSClient) port.MessagePublisher {
	return &messagingPublisher{
		ready: client.IsReady,
		conn:  client.conn,
	}
}
