// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/infrastructure/mock"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/errors"
)

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// importInUnitOfWork runs one batch the way the import service does.
func importInUnitOfWork(
	ctx context.Context,
	repo *mock.MockRepository,
	engine *MessageImportEngine,
	messages []model.ExternalMessage,
	account model.AccountIdentity,
	channelID string,
) (map[string]string, error) {
	var result map[string]string
	err := repo.WithinUnitOfWork(ctx, func(ctx context.Context, uow port.UnitOfWork) error {
		var err error
		result, err = engine.ImportBatch(ctx, uow, messages, account, channelID)
		return err
	})
	return result, err
}

func TestMessageImportEngine_EndToEnd(t *testing.T) {
	ctx := context.Background()
	repo := mock.NewMockRepository()
	engine := NewMessageImportEngine(repo, WithIDGenerator(sequentialIDs("id")))

	batch := []model.ExternalMessage{{
		ExternalID:       "e1",
		HeaderMessageID:  "h1",
		ThreadExternalID: "t1",
		FromHandle:       "me@x.com",
		SentAt:           1000,
	}}
	account := model.AccountIdentity{Handle: "me@x.com"}

	result, err := importInUnitOfWork(ctx, repo, engine, batch, account, "c1")
	require.NoError(t, err)
	require.Len(t, result, 1)

	messages := repo.Messages()
	require.Len(t, messages, 1)
	msg := messages[0]
	assert.Equal(t, result["e1"], msg.ID)
	assert.Equal(t, "h1", msg.HeaderMessageID)
	assert.Equal(t, model.MessageDirectionOutgoing, msg.Direction)
	assert.Equal(t, time.UnixMilli(1000).UTC(), msg.ReceivedAt)

	threads := repo.Threads()
	require.Len(t, threads, 1)
	assert.Equal(t, threads[0].ID, msg.MessageThreadID)

	assert.Equal(t, []model.ChannelMessageAssociation{{
		MessageChannelID:        "c1",
		MessageID:               msg.ID,
		MessageExternalID:       "e1",
		MessageThreadExternalID: "t1",
	}}, repo.Associations())

	// Re-running the identical batch creates nothing.
	result, err = importInUnitOfWork(ctx, repo, engine, batch, account, "c1")
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Len(t, repo.Messages(), 1)
	assert.Len(t, repo.Threads(), 1)
	assert.Len(t, repo.Associations(), 1)
}

func TestMessageImportEngine_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := mock.NewMockRepository()
	engine := NewMessageImportEngine(repo)
	account := model.AccountIdentity{Handle: "me@x.com"}

	batch := []model.ExternalMessage{
		{ExternalID: "e1", HeaderMessageID: "h1", ThreadExternalID: "t1", FromHandle: "a@y.com", SentAt: 1},
		{ExternalID: "e2", HeaderMessageID: "h2", ThreadExternalID: "t1", FromHandle: "me@x.com", SentAt: 2},
		{ExternalID: "e3", HeaderMessageID: "h3", ThreadExternalID: "t2", FromHandle: "b@y.com", SentAt: 3},
	}

	first, err := importInUnitOfWork(ctx, repo, engine, batch, account, "c1")
	require.NoError(t, err)
	assert.Len(t, first, 3)

	second, err := importInUnitOfWork(ctx, repo, engine, batch, account, "c1")
	require.NoError(t, err)
	assert.Empty(t, second)

	assert.Len(t, repo.Messages(), 3)
	assert.Len(t, repo.Threads(), 2)
	assert.Len(t, repo.Associations(), 3)
}

func TestMessageImportEngine_CrossChannelMerge(t *testing.T) {
	ctx := context.Background()
	repo := mock.NewMockRepository()
	engine := NewMessageImportEngine(repo)

	sender := model.AccountIdentity{Handle: "alice@x.com"}
	recipient := model.AccountIdentity{Handle: "bob@y.com"}

	sent := []model.ExternalMessage{{ExternalID: "gmail-1", HeaderMessageID: "<h1@x.com>", ThreadExternalID: "gt-1", FromHandle: "alice@x.com"}}
	received := []model.ExternalMessage{{ExternalID: "outlook-9", HeaderMessageID: "<h1@x.com>", ThreadExternalID: "ot-4", FromHandle: "alice@x.com"}}

	first, err := importInUnitOfWork(ctx, repo, engine, sent, sender, "c-alice")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := importInUnitOfWork(ctx, repo, engine, received, recipient, "c-bob")
	require.NoError(t, err)
	assert.Empty(t, second, "a known message only gains an association")

	messages := repo.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, model.MessageDirectionOutgoing, messages[0].Direction)
	assert.Len(t, repo.Threads(), 1)

	associations := repo.Associations()
	require.Len(t, associations, 2)
	assert.Equal(t, model.ChannelMessageAssociation{
		MessageChannelID:        "c-bob",
		MessageID:               messages[0].ID,
		MessageExternalID:       "outlook-9",
		MessageThreadExternalID: "ot-4",
	}, associations[1])
	assert.Equal(t, "c-alice", associations[0].MessageChannelID)
}

func TestMessageImportEngine_ThreadReuse(t *testing.T) {
	ctx := context.Background()
	account := model.AccountIdentity{Handle: "me@x.com"}

	t.Run("within one batch", func(t *testing.T) {
		repo := mock.NewMockRepository()
		engine := NewMessageImportEngine(repo)

		batch := []model.ExternalMessage{
			{ExternalID: "e1", HeaderMessageID: "h1", ThreadExternalID: "t1"},
			{ExternalID: "e2", HeaderMessageID: "h2", ThreadExternalID: "t1"},
		}
		result, err := importInUnitOfWork(ctx, repo, engine, batch, account, "c1")
		require.NoError(t, err)
		assert.Len(t, result, 2)

		threads := repo.Threads()
		require.Len(t, threads, 1)
		for _, m := range repo.Messages() {
			assert.Equal(t, threads[0].ID, m.MessageThreadID)
		}
	})

	t.Run("across batches", func(t *testing.T) {
		repo := mock.NewMockRepository()
		engine := NewMessageImportEngine(repo)

		_, err := importInUnitOfWork(ctx, repo, engine,
			[]model.ExternalMessage{{ExternalID: "e1", HeaderMessageID: "h1", ThreadExternalID: "t1"}}, account, "c1")
		require.NoError(t, err)
		_, err = importInUnitOfWork(ctx, repo, engine,
			[]model.ExternalMessage{{ExternalID: "e2", HeaderMessageID: "h2", ThreadExternalID: "t1"}}, account, "c1")
		require.NoError(t, err)

		assert.Len(t, repo.Threads(), 1)
		assert.Len(t, repo.Messages(), 2)
	})

	t.Run("same thread id on another channel is a different thread", func(t *testing.T) {
		repo := mock.NewMockRepository()
		engine := NewMessageImportEngine(repo)

		_, err := importInUnitOfWork(ctx, repo, engine,
			[]model.ExternalMessage{{ExternalID: "e1", HeaderMessageID: "h1", ThreadExternalID: "t1"}}, account, "c1")
		require.NoError(t, err)
		_, err = importInUnitOfWork(ctx, repo, engine,
			[]model.ExternalMessage{{ExternalID: "e2", HeaderMessageID: "h2", ThreadExternalID: "t1"}}, account, "c2")
		require.NoError(t, err)

		assert.Len(t, repo.Threads(), 2)
	})

	t.Run("messages without thread id get their own thread", func(t *testing.T) {
		repo := mock.NewMockRepository()
		engine := NewMessageImportEngine(repo)

		batch := []model.ExternalMessage{
			{ExternalID: "e1", HeaderMessageID: "h1"},
			{ExternalID: "e2", HeaderMessageID: "h2"},
		}
		_, err := importInUnitOfWork(ctx, repo, engine, batch, account, "c1")
		require.NoError(t, err)
		assert.Len(t, repo.Threads(), 2)
	})
}

func TestMessageImportEngine_Direction(t *testing.T) {
	ctx := context.Background()
	account := model.AccountIdentity{Handle: "me@x.com", HandleAliases: []string{"me@alias.com"}}

	tests := []struct {
		name       string
		fromHandle string
		want       model.MessageDirection
	}{
		{"account handle", "me@x.com", model.MessageDirectionOutgoing},
		{"alias", "me@alias.com", model.MessageDirectionOutgoing},
		{"someone else", "you@y.com", model.MessageDirectionIncoming},
		{"empty sender", "", model.MessageDirectionIncoming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mock.NewMockRepository()
			engine := NewMessageImportEngine(repo)

			_, err := importInUnitOfWork(ctx, repo, engine, []model.ExternalMessage{{
				ExternalID:      "e1",
				HeaderMessageID: "h1",
				FromHandle:      tt.fromHandle,
			}}, account, "c1")
			require.NoError(t, err)

			messages := repo.Messages()
			require.Len(t, messages, 1)
			assert.Equal(t, tt.want, messages[0].Direction)
		})
	}
}

func TestMessageImportEngine_DuplicateWithinBatch(t *testing.T) {
	ctx := context.Background()
	repo := mock.NewMockRepository()
	engine := NewMessageImportEngine(repo)

	batch := []model.ExternalMessage{
		{ExternalID: "e1", HeaderMessageID: "h1", ThreadExternalID: "t1"},
		{ExternalID: "e1", HeaderMessageID: "h1", ThreadExternalID: "t1"},
	}
	result, err := importInUnitOfWork(ctx, repo, engine, batch, model.AccountIdentity{Handle: "me@x.com"}, "c1")
	require.NoError(t, err)

	assert.Len(t, result, 1)
	assert.Len(t, repo.Messages(), 1)
	assert.Len(t, repo.Associations(), 1)
}

func TestMessageImportEngine_MidBatchFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := mock.NewMockRepository()
	engine := NewMessageImportEngine(repo)

	boom := errors.NewServiceUnavailable("database went away")
	repo.SetInsertHook(func(record model.Record) error {
		if a, ok := record.(model.ChannelMessageAssociation); ok && a.MessageExternalID == "e2" {
			return boom
		}
		return nil
	})

	batch := []model.ExternalMessage{
		{ExternalID: "e1", HeaderMessageID: "h1", ThreadExternalID: "t1"},
		{ExternalID: "e2", HeaderMessageID: "h2", ThreadExternalID: "t1"},
	}
	result, err := importInUnitOfWork(ctx, repo, engine, batch, model.AccountIdentity{Handle: "me@x.com"}, "c1")
	require.Error(t, err)
	assert.Nil(t, result)

	var unavailable errors.ServiceUnavailable
	assert.True(t, stderrors.As(err, &unavailable), "store error type must survive wrapping")

	assert.Empty(t, repo.Messages())
	assert.Empty(t, repo.Threads())
	assert.Empty(t, repo.Associations())

	// A full retry after the failure clears imports everything.
	repo.ClearErrors()
	result, err = importInUnitOfWork(ctx, repo, engine, batch, model.AccountIdentity{Handle: "me@x.com"}, "c1")
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestMessageImportEngine_LookupErrorPropagates(t *testing.T) {
	ctx := context.Background()
	repo := mock.NewMockRepository()
	engine := NewMessageImportEngine(repo)

	repo.SetReadError(errors.NewUnexpected("read failed"))

	_, err := importInUnitOfWork(ctx, repo, engine,
		[]model.ExternalMessage{{ExternalID: "e1", HeaderMessageID: "h1"}}, model.AccountIdentity{Handle: "me@x.com"}, "c1")
	require.Error(t, err)

	var unexpected errors.Unexpected
	assert.True(t, stderrors.As(err, &unexpected))
}

func TestMessageImportEngine_InvalidInput(t *testing.T) {
	ctx := context.Background()
	repo := mock.NewMockRepository()
	engine := NewMessageImportEngine(repo)
	account := model.AccountIdentity{Handle: "me@x.com"}

	t.Run("missing header message id", func(t *testing.T) {
		_, err := importInUnitOfWork(ctx, repo, engine,
			[]model.ExternalMessage{{ExternalID: "e1"}}, account, "c1")
		var validation errors.Validation
		assert.True(t, stderrors.As(err, &validation))
	})

	t.Run("missing channel", func(t *testing.T) {
		_, err := importInUnitOfWork(ctx, repo, engine,
			[]model.ExternalMessage{{ExternalID: "e1", HeaderMessageID: "h1"}}, account, "")
		var validation errors.Validation
		assert.True(t, stderrors.As(err, &validation))
	})

	t.Run("nil unit of work", func(t *testing.T) {
		_, err := engine.ImportBatch(ctx, nil, []model.ExternalMessage{{ExternalID: "e1", HeaderMessageID: "h1"}}, account, "c1")
		var validation errors.Validation
		assert.True(t, stderrors.As(err, &validation))
	})

	assert.Empty(t, repo.Messages())
}

func TestMessageImportEngine_ConcurrentDuplicateConflicts(t *testing.T) {
	ctx := context.Background()
	repo := mock.NewMockRepository()
	engine := NewMessageImportEngine(repo)
	account := model.AccountIdentity{Handle: "me@x.com"}
	batch := []model.ExternalMessage{{ExternalID: "e1", HeaderMessageID: "h1", ThreadExternalID: "t1"}}

	// The loser stages its rows first; the winner commits before the loser does.
	err := repo.WithinUnitOfWork(ctx, func(ctx context.Context, loser port.UnitOfWork) error {
		staged, err := engine.ImportBatch(ctx, loser, batch, account, "c1")
		require.NoError(t, err)
		require.Len(t, staged, 1)

		winnerResult, err := importInUnitOfWork(ctx, repo, engine, batch, account, "c1")
		require.NoError(t, err)
		require.Len(t, winnerResult, 1)
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err), "losing a uniqueness race must be retryable: %v", err)

	// The retry dedups cleanly.
	result, err := importInUnitOfWork(ctx, repo, engine, batch, account, "c1")
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Len(t, repo.Messages(), 1)
}
