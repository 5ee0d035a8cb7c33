// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/port"
)

// EnqueuedJob is a job captured by MockJobQueue
type EnqueuedJob struct {
	Name    string
	Payload any
}

// MockJobQueue records enqueued jobs
type MockJobQueue struct {
	jobs []EnqueuedJob
	err  error
	mu   sync.Mutex
}

var _ port.JobQueue = (*MockJobQueue)(nil)

// NewMockJobQueue creates an empty job queue
func NewMockJobQueue() *MockJobQueue {
	return &MockJobQueue{}
}

// Enqueue records the job, or fails with the configured error
func (q *MockJobQueue) Enqueue(ctx context.Context, jobName string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.err != nil {
		return q.err
	}

	q.jobs = append(q.jobs, EnqueuedJob{Name: jobName, Payload: payload})
	slog.DebugContext(ctx, "mock job enqueued", "job_name", jobName)
	return nil
}

// SetError makes every following Enqueue fail with err
func (q *MockJobQueue) SetError(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}

// Jobs returns the recorded jobs
func (q *MockJobQueue) Jobs() []EnqueuedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]EnqueuedJob(nil), q.jobs...)
}
