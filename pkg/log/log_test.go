// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(contextHandler{slog.NewJSONHandler(buf, nil)})
}

func TestAppendCtx(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	ctx := AppendCtx(context.Background(), slog.String("workspace_id", "w1"))
	ctx = AppendCtx(ctx, slog.String("message_channel_id", "c1"))

	logger.InfoContext(ctx, "importing")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "w1", record["workspace_id"])
	assert.Equal(t, "c1", record["message_channel_id"])
}

func TestAppendCtx_SiblingsDoNotShareAttrs(t *testing.T) {
	parent := AppendCtx(context.Background(), slog.String("workspace_id", "w1"))
	first := AppendCtx(parent, slog.String("message_channel_id", "c1"))
	second := AppendCtx(parent, slog.String("message_channel_id", "c2"))

	firstAttrs := first.Value(slogFields).([]slog.Attr)
	secondAttrs := second.Value(slogFields).([]slog.Attr)
	require.Len(t, firstAttrs, 2)
	require.Len(t, secondAttrs, 2)
	assert.Equal(t, "c1", firstAttrs[1].Value.String())
	assert.Equal(t, "c2", secondAttrs[1].Value.String())
	assert.Len(t, parent.Value(slogFields).([]slog.Attr), 1)
}

func TestAppendCtx_NilParent(t *testing.T) {
	//nolint:staticcheck // SA1012
	ctx := AppendCtx(nil, slog.String("k", "v"))
	require.NotNil(t, ctx)
	assert.Len(t, ctx.Value(slogFields).([]slog.Attr), 1)
}

func TestPriorityCritical(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf).ErrorContext(context.Background(), "import batch failed", PriorityCritical())

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "critical", record["priority"])
}
