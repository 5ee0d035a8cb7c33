// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/log"
)

// messageTimeout bounds the processing of a single NATS message
const messageTimeout = 30 * time.Second

// queueSubscriber is the part of the NATS client the subscriptions need
type queueSubscriber interface {
	QueueSubscribe(subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// messageHandler processes one NATS message
type messageHandler interface {
	HandleMessage(ctx context.Context, msg *nats.Msg) error
}

// subscribe joins the messaging sync queue group on every subject. Messages
// that fail are Nak'ed for redelivery, the rest are Ack'ed.
func subscribe(ctx context.Context, wg *sync.WaitGroup, client queueSubscriber, name string, subjects []string, handler messageHandler) error {
	for _, subject := range subjects {
		_, subErr := client.QueueSubscribe(subject, constants.MessagingSyncQueue, func(msg *nats.Msg) {
			select {
			case <-ctx.Done():
				slog.InfoContext(ctx, "rejecting message - service shutting down",
					"subject", msg.Subject)
				nak(ctx, msg)
				return
			default:
			}

			// Not derived from the shutdown context so in-flight work can finish.
			msgCtx, cancel := context.WithTimeout(messageContext(msg), messageTimeout)
			defer cancel()

			if handleErr := handler.HandleMessage(msgCtx, msg); handleErr != nil {
				slog.ErrorContext(msgCtx, "failed to process message, will retry",
					"error", handleErr,
					"subject", msg.Subject,
					"handler", name)
				nak(msgCtx, msg)
				return
			}
			ack(msgCtx, msg)
		})
		if subErr != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, subErr)
		}
		slog.InfoContext(ctx, "subscribed to subject",
			"subject", subject,
			"queue", constants.MessagingSyncQueue,
			"handler", name)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		slog.InfoContext(ctx, "shutting down subscriptions", "handler", name)
		// Subscriptions are drained by the NATS client Close in main.
	}()

	return nil
}

// messageContext carries the request id of msg, taken from its header or generated.
func messageContext(msg *nats.Msg) context.Context {
	requestID := ""
	if msg.Header != nil {
		requestID = msg.Header.Get(constants.RequestIDHeader)
	}
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx := context.WithValue(context.Background(), constants.RequestIDContextKey, requestID)
	return log.AppendCtx(ctx, slog.String("request_id", requestID))
}

func ack(ctx context.Context, msg *nats.Msg) {
	if msg.Reply == "" {
		return
	}
	if err := msg.Ack(); err != nil {
		slog.ErrorContext(ctx, "failed to ack message", "error", err)
	}
}

func nak(ctx context.Context, msg *nats.Msg) {
	if msg.Reply == "" {
		return
	}
	if err := msg.Nak(); err != nil {
		slog.ErrorContext(ctx, "failed to nak message", "error", err)
	}
}
