// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/errors"
)

// streamPublisher is the part of jetstream.JetStream the job queue needs
type streamPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// jobQueue enqueues jobs on the MESSAGING_JOBS work-queue stream
type jobQueue struct {
	js       streamPublisher
	encoding string
}

// JobSubject returns the stream subject a job is published on
func JobSubject(jobName string) string {
	return constants.JobSubjectPrefix + jobName
}

// encodeJobPayload encodes payload and returns its content type.
func encodeJobPayload(encoding string, payload any) ([]byte, string, error) {
	switch encoding {
	case constants.JobEncodingMsgpack:
		data, err := msgpack.Marshal(payload)
		return data, constants.ContentTypeMsgpack, err
	case constants.JobEncodingJSON, "":
		data, err := json.Marshal(payload)
		return data, constants.ContentTypeJSON, err
	default:
		return nil, "", fmt.Errorf("unsupported job payload encoding %q", encoding)
	}
}

// jobMsgID is the JetStream dedup key of one Enqueue call. Client side
// publish retries reuse it, so the stream stores the job once.
func jobMsgID(jobName string) string {
	return jobName + "|" + uuid.New().String()
}

// Enqueue implements port.JobQueue
func (q *jobQueue) Enqueue(ctx context.Context, jobName string, payload any) error {
	if jobName == "" {
		return errors.NewValidation("job name is required")
	}

	data, contentType, err := encodeJobPayload(q.encoding, payload)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode job payload",
			"error", err,
			"job_name", jobName,
			"encoding", q.encoding,
		)
		return errors.NewUnexpected("failed to encode job payload", err)
	}

	msg := nats.NewMsg(JobSubject(jobName))
	msg.Data = data
	msg.Header.Set(constants.JobNameHeader, jobName)
	msg.Header.Set(constants.ContentTypeHeader, contentType)
	msgID := jobMsgID(jobName)
	msg.Header.Set(nats.MsgIdHdr, msgID)

	ack, err := q.js.PublishMsg(ctx, msg, jetstream.WithRetryAttempts(3))
	if err != nil {
		slog.ErrorContext(ctx, "failed to enqueue job",
			"error", err,
			"job_name", jobName,
		)
		return errors.NewServiceUnavailable("failed to enqueue job", err)
	}

	slog.DebugContext(ctx, "job enqueued",
		"job_name", jobName,
		"stream", ack.Stream,
		"sequence", ack.Sequence,
		"duplicate", ack.Duplicate,
		"msg_id", msgID,
	)

	return nil
}

// NewJobQueue creates a JetStream backed job queue. encoding is json or msgpack.
func NewJobQueue(client *NATSClient, encoding string) (port.JobQueue, error) {
	if _, _, err := encodeJobPayload(encoding, struct{}{}); err != nil {
		return nil, errors.NewValidation(err.Error())
	}
	return &jobQueue{js: client.js, encoding: encoding}, nil
}
