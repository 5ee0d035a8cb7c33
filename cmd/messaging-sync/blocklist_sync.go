// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/cmd/messaging-sync/service"
)

// handleBlocklistSync subscribes the blocklist reconciliation workflow to blocklist events
func handleBlocklistSync(ctx context.Context, wg *sync.WaitGroup) error {
	slog.InfoContext(ctx, "starting blocklist sync")

	syncService := service.BlocklistSyncService(ctx)
	natsClient := service.GetNATSClient(ctx)

	if err := subscribe(ctx, wg, natsClient, "blocklist_sync", syncService.Subjects(), syncService); err != nil {
		return err
	}

	slog.InfoContext(ctx, "blocklist sync started successfully")
	return nil
}
