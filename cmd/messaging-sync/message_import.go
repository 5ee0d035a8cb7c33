// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/cmd/messaging-sync/service"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/constants"
)

// handleMessageImport subscribes the import service to import batches
func handleMessageImport(ctx context.Context, wg *sync.WaitGroup) error {
	slog.InfoContext(ctx, "starting message import")

	importService := service.MessageImportService(ctx)
	natsClient := service.GetNATSClient(ctx)

	if err := subscribe(ctx, wg, natsClient, "message_import",
		[]string{constants.ImportBatchSubject}, importService); err != nil {
		return err
	}

	slog.InfoContext(ctx, "message import started successfully")
	return nil
}
