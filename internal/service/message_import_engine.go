// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/redaction"
)

const instrumentationName = "github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/service"

// MessageImportEngine turns fetched external messages into message, thread and
// association records. It never opens a unit-of-work; every read and write goes
// through the one supplied by the caller.
type MessageImportEngine struct {
	store  port.RecordStore
	newID  func() string
	tracer trace.Tracer

	imported metric.Int64Counter
	linked   metric.Int64Counter
	skipped  metric.Int64Counter
}

// ImportEngineOption configures a MessageImportEngine
type ImportEngineOption func(*MessageImportEngine)

// WithIDGenerator replaces the uuid generator used for new messages and threads.
func WithIDGenerator(fn func() string) ImportEngineOption {
	return func(e *MessageImportEngine) {
		e.newID = fn
	}
}

// NewMessageImportEngine creates a new import engine on top of store
func NewMessageImportEngine(store port.RecordStore, opts ...ImportEngineOption) *MessageImportEngine {
	e := &MessageImportEngine{
		store:  store,
		newID:  func() string { return uuid.New().String() },
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(e)
	}

	meter := otel.Meter(instrumentationName)
	// Instrument creation only fails on invalid names; the no-op fallback is fine.
	e.imported, _ = meter.Int64Counter("messaging_sync.messages.imported",
		metric.WithDescription("Messages created by the import engine"))
	e.linked, _ = meter.Int64Counter("messaging_sync.messages.linked",
		metric.WithDescription("Known messages associated with an additional channel"))
	e.skipped, _ = meter.Int64Counter("messaging_sync.messages.skipped",
		metric.WithDescription("Messages already imported for the channel"))

	return e
}

// ImportBatch imports messages for channelID in input order and returns the
// external id -> message id mapping of the messages it created. Messages that
// were already associated with the channel are skipped, and messages known from
// another channel only gain an association. Any store error aborts the batch
// and is returned with its type preserved, so the caller can roll back uow and
// retry the whole batch.
func (e *MessageImportEngine) ImportBatch(
	ctx context.Context,
	uow port.UnitOfWork,
	messages []model.ExternalMessage,
	account model.AccountIdentity,
	channelID string,
) (map[string]string, error) {
	ctx, span := e.tracer.Start(ctx, "MessageImportEngine.ImportBatch", trace.WithAttributes(
		attribute.String("message_channel_id", channelID),
		attribute.Int("batch_size", len(messages)),
	))
	defer span.End()

	if uow == nil {
		return nil, errors.NewValidation("import batch requires a unit of work")
	}
	if channelID == "" {
		return nil, errors.NewValidation("import batch requires a message channel id")
	}
	for _, msg := range messages {
		if err := msg.Validate(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	slog.DebugContext(ctx, "importing message batch",
		"message_channel_id", channelID,
		"batch_size", len(messages),
		"account_handle", redaction.RedactEmail(account.Handle),
		"unit_of_work", uow.ID(),
	)

	created := make(map[string]string)
	var linked, skipped int64

	for _, msg := range messages {
		outcome, messageID, err := e.importOne(ctx, uow, msg, account, channelID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "message import failed")
			slog.ErrorContext(ctx, "failed to import message",
				"error", err,
				"message_channel_id", channelID,
				"message_external_id", msg.ExternalID,
			)
			return nil, err
		}

		switch outcome {
		case importCreated:
			created[msg.ExternalID] = messageID
		case importLinked:
			linked++
		case importSkipped:
			skipped++
		}
	}

	attrs := metric.WithAttributes(attribute.String("message_channel_id", channelID))
	e.imported.Add(ctx, int64(len(created)), attrs)
	e.linked.Add(ctx, linked, attrs)
	e.skipped.Add(ctx, skipped, attrs)

	span.SetAttributes(
		attribute.Int("messages_created", len(created)),
		attribute.Int64("messages_linked", linked),
		attribute.Int64("messages_skipped", skipped),
	)

	slog.InfoContext(ctx, "message batch imported",
		"message_channel_id", channelID,
		"created", len(created),
		"linked", linked,
		"skipped", skipped,
	)

	return created, nil
}

type importOutcome int

const (
	importSkipped importOutcome = iota
	importLinked
	importCreated
)

func (e *MessageImportEngine) importOne(
	ctx context.Context,
	uow port.UnitOfWork,
	msg model.ExternalMessage,
	account model.AccountIdentity,
	channelID string,
) (importOutcome, string, error) {
	// Already imported for this channel.
	_, found, err := e.findOne(ctx, uow, model.EntityKindChannelMessageAssociation, port.RecordFilter{
		MessageChannelID:  channelID,
		MessageExternalID: msg.ExternalID,
	})
	if err != nil {
		return 0, "", fmt.Errorf("failed to look up association for %s: %w", msg.ExternalID, err)
	}
	if found {
		return importSkipped, "", nil
	}

	// Known through another channel: only the association is new.
	record, found, err := e.findOne(ctx, uow, model.EntityKindMessage, port.RecordFilter{
		HeaderMessageID: msg.HeaderMessageID,
	})
	if err != nil {
		return 0, "", fmt.Errorf("failed to look up message by header id: %w", err)
	}
	if found {
		existing, ok := record.(model.Message)
		if !ok {
			return 0, "", errors.NewUnexpected(fmt.Sprintf("record store returned %T for a message lookup", record))
		}
		if err := e.insertAssociation(ctx, uow, channelID, existing.ID, msg); err != nil {
			return 0, "", err
		}
		return importLinked, "", nil
	}

	threadID, err := e.resolveThread(ctx, uow, msg, channelID)
	if err != nil {
		return 0, "", err
	}

	direction := model.MessageDirectionIncoming
	if account.IsSelf(msg.FromHandle) {
		direction = model.MessageDirectionOutgoing
	}

	message := model.Message{
		ID:              e.newID(),
		HeaderMessageID: msg.HeaderMessageID,
		Subject:         msg.Subject,
		ReceivedAt:      msg.SentAt.Time(),
		Direction:       direction,
		Text:            msg.Text,
		MessageThreadID: threadID,
	}
	if err := e.store.Insert(ctx, uow, message); err != nil {
		return 0, "", fmt.Errorf("failed to insert message for %s: %w", msg.ExternalID, err)
	}

	if err := e.insertAssociation(ctx, uow, channelID, message.ID, msg); err != nil {
		return 0, "", err
	}

	return importCreated, message.ID, nil
}

// resolveThread reuses the channel's thread for msg.ThreadExternalID or creates
// one. Messages without a thread id each get their own thread.
func (e *MessageImportEngine) resolveThread(ctx context.Context, uow port.UnitOfWork, msg model.ExternalMessage, channelID string) (string, error) {
	if msg.ThreadExternalID != "" {
		record, found, err := e.findOne(ctx, uow, model.EntityKindMessageThread, port.RecordFilter{
			MessageChannelID:        channelID,
			MessageThreadExternalID: msg.ThreadExternalID,
		})
		if err != nil {
			return "", fmt.Errorf("failed to look up thread %s: %w", msg.ThreadExternalID, err)
		}
		if found {
			thread, ok := record.(model.MessageThread)
			if !ok {
				return "", errors.NewUnexpected(fmt.Sprintf("record store returned %T for a thread lookup", record))
			}
			return thread.ID, nil
		}
	}

	thread := model.MessageThread{ID: e.newID()}
	if err := e.store.Insert(ctx, uow, thread); err != nil {
		return "", fmt.Errorf("failed to insert thread for %s: %w", msg.ExternalID, err)
	}
	return thread.ID, nil
}

func (e *MessageImportEngine) insertAssociation(ctx context.Context, uow port.UnitOfWork, channelID, messageID string, msg model.ExternalMessage) error {
	association := model.ChannelMessageAssociation{
		MessageChannelID:        channelID,
		MessageID:               messageID,
		MessageExternalID:       msg.ExternalID,
		MessageThreadExternalID: msg.ThreadExternalID,
	}
	if err := e.store.Insert(ctx, uow, association); err != nil {
		return fmt.Errorf("failed to insert association for %s: %w", msg.ExternalID, err)
	}
	return nil
}

// findOne maps errors.NotFound to found == false.
func (e *MessageImportEngine) findOne(ctx context.Context, uow port.UnitOfWork, kind model.EntityKind, filter port.RecordFilter) (model.Record, bool, error) {
	record, err := e.store.FindOne(ctx, uow, kind, filter)
	if err != nil {
		var notFound errors.NotFound
		if stderrors.As(err, &notFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return record, true, nil
}
