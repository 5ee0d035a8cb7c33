// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package port defines the interfaces for external dependencies and adapters.
package port

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/model"
)

// UnitOfWork is a transaction handle issued by a UnitOfWorkManager.
// Every store call that must be atomic with others receives the same handle.
type UnitOfWork interface {
	// ID identifies the unit-of-work in logs
	ID() string
}

// UnitOfWorkManager opens units of work.
type UnitOfWorkManager interface {
	// WithinUnitOfWork runs fn inside a new unit-of-work. The unit-of-work is
	// committed when fn returns nil and rolled back otherwise; fn's error is
	// returned unchanged. A failed commit returns errors.TransactionAborted.
	WithinUnitOfWork(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}

// RecordFilter selects a single record. Which fields are required depends on the kind:
//   - message: HeaderMessageID
//   - message_thread: MessageChannelID and MessageThreadExternalID, matched
//     through the channel's associations
//   - message_channel_message_association: MessageChannelID and MessageExternalID
type RecordFilter struct {
	MessageChannelID        string
	MessageExternalID       string
	HeaderMessageID         string
	MessageThreadExternalID string
}

// RecordStore persists messages, threads and channel associations.
type RecordStore interface {
	// FindOne returns the first record of kind matching filter.
	// Returns errors.NotFound when nothing matches.
	FindOne(ctx context.Context, uow UnitOfWork, kind model.EntityKind, filter RecordFilter) (model.Record, error)

	// Insert writes record. Returns errors.Conflict when a unique constraint rejects it.
	Insert(ctx context.Context, uow UnitOfWork, record model.Record) error
}

// MessageStore is a record store that also manages its own units of work.
type MessageStore interface {
	RecordStore
	UnitOfWorkManager
}
