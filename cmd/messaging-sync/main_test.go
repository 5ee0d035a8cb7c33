// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/constants"
)

type fakeSubscriber struct {
	handlers map[string]nats.MsgHandler
	queues   map[string]string
	err      error
}

func (f *fakeSubscriber) QueueSubscribe(subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.handlers == nil {
		f.handlers = make(map[string]nats.MsgHandler)
		f.queues = make(map[string]string)
	}
	f.handlers[subject] = handler
	f.queues[subject] = queue
	return &nats.Subscription{Subject: subject, Queue: queue}, nil
}

type recordingHandler struct {
	mu         sync.Mutex
	subjects   []string
	requestIDs []string
	err        error
}

func (h *recordingHandler) HandleMessage(ctx context.Context, msg *nats.Msg) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subjects = append(h.subjects, msg.Subject)
	if id, ok := ctx.Value(constants.RequestIDContextKey).(string); ok {
		h.requestIDs = append(h.requestIDs, id)
	}
	return h.err
}

func TestSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	subscriber := &fakeSubscriber{}
	handler := &recordingHandler{}
	subjects := []string{constants.BlocklistCreatedSubject, constants.BlocklistDeletedSubject}

	require.NoError(t, subscribe(ctx, &wg, subscriber, "test", subjects, handler))
	require.Len(t, subscriber.handlers, 2)
	for _, subject := range subjects {
		assert.Equal(t, constants.MessagingSyncQueue, subscriber.queues[subject])
	}

	msg := nats.NewMsg(constants.BlocklistDeletedSubject)
	msg.Header.Set(constants.RequestIDHeader, "req-1")
	subscriber.handlers[constants.BlocklistDeletedSubject](msg)
	subscriber.handlers[constants.BlocklistCreatedSubject](&nats.Msg{Subject: constants.BlocklistCreatedSubject})

	assert.Equal(t, []string{constants.BlocklistDeletedSubject, constants.BlocklistCreatedSubject}, handler.subjects)
	require.Len(t, handler.requestIDs, 2)
	assert.Equal(t, "req-1", handler.requestIDs[0])
	assert.NotEmpty(t, handler.requestIDs[1], "a request id is generated when the header is absent")

	// After shutdown starts, messages are rejected without reaching the handler.
	cancel()
	wg.Wait()
	subscriber.handlers[constants.BlocklistCreatedSubject](&nats.Msg{Subject: constants.BlocklistCreatedSubject})
	assert.Len(t, handler.subjects, 2)
}

func TestSubscribe_Error(t *testing.T) {
	var wg sync.WaitGroup
	err := subscribe(context.Background(), &wg, &fakeSubscriber{err: nats.ErrConnectionClosed}, "test",
		[]string{constants.ImportBatchSubject}, &recordingHandler{})
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)
}

func TestHealthHandler(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return stderrors.New("connection refused") }

	t.Run("livez", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHealthHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("ready", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler := newHealthHandler(map[string]readinessCheck{"nats": healthy, "database": healthy})
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("not ready", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler := newHealthHandler(map[string]readinessCheck{"nats": healthy, "database": broken})
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body struct {
			Status   string            `json:"status"`
			Failures map[string]string `json:"failures"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unavailable", body.Status)
		assert.Equal(t, map[string]string{"database": "connection refused"}, body.Failures)
	})
}
