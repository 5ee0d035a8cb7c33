// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package mock provides in-memory implementations of the service ports for
// tests and for running the service with REPOSITORY_SOURCE=mock.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/errors"
)

// recordSet holds records in insertion order.
type recordSet struct {
	messages     []model.Message
	threads      []model.MessageThread
	associations []model.ChannelMessageAssociation
}

// MockRepository is an in-memory message store plus account and channel readers.
// Writes made inside a unit-of-work are staged and become visible to other
// units of work only on commit.
type MockRepository struct {
	committed recordSet
	accounts  map[string]*model.ConnectedAccount // ID -> account
	channels  map[string]*model.MessageChannel   // connected account ID -> channel

	insertHook func(model.Record) error
	commitErr  error
	readErr    error

	uowSeq int
	mu     sync.RWMutex
}

// Ensure MockRepository implements the store and reader ports
var (
	_ port.MessageStore           = (*MockRepository)(nil)
	_ port.ConnectedAccountReader = (*MockRepository)(nil)
	_ port.MessageChannelReader   = (*MockRepository)(nil)
)

// NewMockRepository creates an empty repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		accounts: make(map[string]*model.ConnectedAccount),
		channels: make(map[string]*model.MessageChannel),
	}
}

// mockUnitOfWork stages inserts until commit
type mockUnitOfWork struct {
	id     string
	staged recordSet
	closed bool
}

// ID implements port.UnitOfWork
func (u *mockUnitOfWork) ID() string { return u.id }

// WithinUnitOfWork runs fn against a fresh staged unit-of-work.
func (r *MockRepository) WithinUnitOfWork(ctx context.Context, fn func(ctx context.Context, uow port.UnitOfWork) error) error {
	r.mu.Lock()
	r.uowSeq++
	uow := &mockUnitOfWork{id: fmt.Sprintf("mock-uow-%d", r.uowSeq)}
	r.mu.Unlock()

	if err := fn(ctx, uow); err != nil {
		r.mu.Lock()
		uow.closed = true
		r.mu.Unlock()
		slog.DebugContext(ctx, "mock unit of work rolled back", "unit_of_work", uow.id, "error", err)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	uow.closed = true

	if r.commitErr != nil {
		return errors.NewTransactionAborted("failed to commit unit of work", r.commitErr)
	}
	// Re-check constraints against anything committed since the inserts were staged.
	if err := r.checkUnique(r.committed, uow.staged); err != nil {
		return errors.NewTransactionAborted("failed to commit unit of work", err)
	}

	r.committed.messages = append(r.committed.messages, uow.staged.messages...)
	r.committed.threads = append(r.committed.threads, uow.staged.threads...)
	r.committed.associations = append(r.committed.associations, uow.staged.associations...)

	return nil
}

func (r *MockRepository) unitOfWork(uow port.UnitOfWork) (*mockUnitOfWork, error) {
	work, ok := uow.(*mockUnitOfWork)
	if !ok || work == nil {
		return nil, errors.NewValidation(fmt.Sprintf("unit of work %T was not issued by the mock repository", uow))
	}
	if work.closed {
		return nil, errors.NewValidation(fmt.Sprintf("unit of work %s is already closed", work.id))
	}
	return work, nil
}

// FindOne implements port.RecordStore
func (r *MockRepository) FindOne(ctx context.Context, uow port.UnitOfWork, kind model.EntityKind, filter port.RecordFilter) (model.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	work, err := r.unitOfWork(uow)
	if err != nil {
		return nil, err
	}
	if r.readErr != nil {
		return nil, r.readErr
	}

	sets := []*recordSet{&r.committed, &work.staged}

	switch kind {
	case model.EntityKindChannelMessageAssociation:
		if filter.MessageChannelID == "" || filter.MessageExternalID == "" {
			return nil, errors.NewValidation("association lookup requires message channel id and external id")
		}
		for _, set := range sets {
			for _, a := range set.associations {
				if a.MessageChannelID == filter.MessageChannelID && a.MessageExternalID == filter.MessageExternalID {
					return a, nil
				}
			}
		}

	case model.EntityKindMessage:
		if filter.HeaderMessageID == "" {
			return nil, errors.NewValidation("message lookup requires header message id")
		}
		for _, set := range sets {
			for _, m := range set.messages {
				if m.HeaderMessageID == filter.HeaderMessageID {
					return m, nil
				}
			}
		}

	case model.EntityKindMessageThread:
		if filter.MessageChannelID == "" || filter.MessageThreadExternalID == "" {
			return nil, errors.NewValidation("thread lookup requires message channel id and thread external id")
		}
		for _, set := range sets {
			for _, a := range set.associations {
				if a.MessageChannelID != filter.MessageChannelID || a.MessageThreadExternalID != filter.MessageThreadExternalID {
					continue
				}
				if thread, ok := findThreadOfMessage(sets, a.MessageID); ok {
					return thread, nil
				}
			}
		}

	default:
		return nil, errors.NewValidation(fmt.Sprintf("unknown entity kind %q", kind))
	}

	return nil, errors.NewNotFound(fmt.Sprintf("%s not found", kind))
}

func findThreadOfMessage(sets []*recordSet, messageID string) (model.MessageThread, bool) {
	threadID := ""
	for _, set := range sets {
		for _, m := range set.messages {
			if m.ID == messageID {
				threadID = m.MessageThreadID
			}
		}
	}
	if threadID == "" {
		return model.MessageThread{}, false
	}
	for _, set := range sets {
		for _, t := range set.threads {
			if t.ID == threadID {
				return t, true
			}
		}
	}
	return model.MessageThread{}, false
}

// Insert implements port.RecordStore
func (r *MockRepository) Insert(ctx context.Context, uow port.UnitOfWork, record model.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	work, err := r.unitOfWork(uow)
	if err != nil {
		return err
	}
	if r.insertHook != nil {
		if err := r.insertHook(record); err != nil {
			return err
		}
	}

	var add recordSet
	switch rec := record.(type) {
	case model.Message:
		add.messages = []model.Message{rec}
	case model.MessageThread:
		add.threads = []model.MessageThread{rec}
	case model.ChannelMessageAssociation:
		add.associations = []model.ChannelMessageAssociation{rec}
	default:
		return errors.NewValidation(fmt.Sprintf("unsupported record type %T", record))
	}

	if err := r.checkUnique(r.committed, add); err != nil {
		return err
	}
	if err := r.checkUnique(work.staged, add); err != nil {
		return err
	}

	work.staged.messages = append(work.staged.messages, add.messages...)
	work.staged.threads = append(work.staged.threads, add.threads...)
	work.staged.associations = append(work.staged.associations, add.associations...)

	return nil
}

// checkUnique mirrors the SQL schema's unique constraints.
func (r *MockRepository) checkUnique(existing, add recordSet) error {
	for _, m := range add.messages {
		for _, e := range existing.messages {
			if e.ID == m.ID {
				return errors.NewConflict(fmt.Sprintf("message %s already exists", m.ID))
			}
			if e.HeaderMessageID == m.HeaderMessageID {
				return errors.NewConflict(fmt.Sprintf("message with header id %s already exists", m.HeaderMessageID))
			}
		}
	}
	for _, t := range add.threads {
		for _, e := range existing.threads {
			if e.ID == t.ID {
				return errors.NewConflict(fmt.Sprintf("message thread %s already exists", t.ID))
			}
		}
	}
	for _, a := range add.associations {
		for _, e := range existing.associations {
			if e.MessageChannelID == a.MessageChannelID && e.MessageExternalID == a.MessageExternalID {
				return errors.NewConflict(fmt.Sprintf("message %s is already associated with channel %s", a.MessageExternalID, a.MessageChannelID))
			}
		}
	}
	return nil
}

// SetInsertHook installs fn to run before every insert; a non-nil error fails the insert.
func (r *MockRepository) SetInsertHook(fn func(model.Record) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertHook = fn
}

// SetCommitError makes every following commit fail with err.
func (r *MockRepository) SetCommitError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitErr = err
}

// SetReadError makes every following FindOne fail with err.
func (r *MockRepository) SetReadError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readErr = err
}

// ClearErrors removes all simulated failures.
func (r *MockRepository) ClearErrors() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertHook = nil
	r.commitErr = nil
	r.readErr = nil
}

// Messages returns the committed messages in insertion order.
func (r *MockRepository) Messages() []model.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Message(nil), r.committed.messages...)
}

// Threads returns the committed threads in insertion order.
func (r *MockRepository) Threads() []model.MessageThread {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.MessageThread(nil), r.committed.threads...)
}

// Associations returns the committed associations in insertion order.
func (r *MockRepository) Associations() []model.ChannelMessageAssociation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.ChannelMessageAssociation(nil), r.committed.associations...)
}

// AddConnectedAccount stores account for the reader methods.
func (r *MockRepository) AddConnectedAccount(account *model.ConnectedAccount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID] = account
}

// AddMessageChannel binds channel to its connected account.
func (r *MockRepository) AddMessageChannel(channel *model.MessageChannel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[channel.ConnectedAccountID] = channel
}

// GetAllByWorkspaceMemberID implements port.ConnectedAccountReader
func (r *MockRepository) GetAllByWorkspaceMemberID(ctx context.Context, workspaceMemberID, workspaceID string) ([]*model.ConnectedAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.readErr != nil {
		return nil, r.readErr
	}

	accounts := make([]*model.ConnectedAccount, 0)
	for _, a := range r.accounts {
		if a.WorkspaceMemberID == workspaceMemberID && a.WorkspaceID == workspaceID {
			accounts = append(accounts, a)
		}
	}

	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
		}
		return accounts[i].ID < accounts[j].ID
	})

	return accounts, nil
}

// GetByConnectedAccountID implements port.MessageChannelReader
func (r *MockRepository) GetByConnectedAccountID(ctx context.Context, connectedAccountID string) (*model.MessageChannel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.readErr != nil {
		return nil, r.readErr
	}

	channel, ok := r.channels[connectedAccountID]
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf("message channel for connected account %s not found", connectedAccountID))
	}
	return channel, nil
}
