// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type fakeEntry struct {
	key      string
	value    []byte
	revision uint64
}

func (e fakeEntry) Bucket() string                  { return "test" }
func (e fakeEntry) Key() string                     { return e.key }
func (e fakeEntry) Value() []byte                   { return e.value }
func (e fakeEntry) Revision() uint64                { return e.revision }
func (e fakeEntry) Created() time.Time              { return time.Time{} }
func (e fakeEntry) Delta() uint64                   { return 0 }
func (e fakeEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }

// fakeKV is an in-memory bucket with revision checks on Update.
type fakeKV struct {
	mu       sync.Mutex
	entries  map[string]fakeEntry
	seq      uint64
	getErr   error
	putErr   error
	beforeUp func(key string) // runs before Update applies, to simulate a concurrent writer
}

func newFakeKV() *fakeKV {
	return &fakeKV{entries: make(map[string]fakeEntry)}
}

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	e, ok := f.entries[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return e, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return 0, f.putErr
	}
	return f.store(key, value), nil
}

func (f *fakeKV) Update(_ context.Context, key string, value []byte, revision uint64) (uint64, error) {
	if f.beforeUp != nil {
		hook := f.beforeUp
		f.beforeUp = nil
		hook(key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return 0, f.putErr
	}
	if f.entries[key].revision != revision {
		return 0, &jetstream.APIError{
			Code:        400,
			ErrorCode:   jetstream.JSErrCodeStreamWrongLastSequence,
			Description: "wrong last sequence",
		}
	}
	return f.store(key, value), nil
}

func (f *fakeKV) store(key string, value []byte) uint64 {
	f.seq++
	f.entries[key] = fakeEntry{key: key, value: append([]byte(nil), value...), revision: f.seq}
	return f.seq
}

// fakeStream records JetStream publishes and dedups on the message id.
type fakeStream struct {
	mu   sync.Mutex
	msgs []*nats.Msg
	ids  map[string]bool
	err  error
}

func (f *fakeStream) PublishMsg(_ context.Context, msg *nats.Msg, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	id := msg.Header.Get(nats.MsgIdHdr)
	if f.ids == nil {
		f.ids = make(map[string]bool)
	}
	if f.ids[id] {
		return &jetstream.PubAck{Stream: "MESSAGING_JOBS", Sequence: uint64(len(f.msgs)), Duplicate: true}, nil
	}
	f.ids[id] = true
	f.msgs = append(f.msgs, msg)
	return &jetstream.PubAck{Stream: "MESSAGING_JOBS", Sequence: uint64(len(f.msgs))}, nil
}

// fakeConn records core NATS publishes.
type fakeConn struct {
	msgs []*nats.Msg
	err  error
}

func (f *fakeConn) PublishMsg(msg *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}
