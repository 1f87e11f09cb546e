// Package service contains the offline-first sync engine: the collection
// façade serving local reads and optimistic writes, the reconciler draining
// the mutation queue, the connectivity monitor, and the background refresh
// job.
package service

import (
	"context"

	"github.com/fieldline-crm/fieldline/internal/adapter"
	"github.com/fieldline-crm/fieldline/internal/config"
	"github.com/fieldline-crm/fieldline/internal/logger"
	"github.com/fieldline-crm/fieldline/internal/store"
)

// Services aggregates the sync engine's components wired together.
type Services struct {
	Collections CollectionService
	Reconciler  Reconciler
	Monitor     Monitor
	Refresh     RefreshJob
}

// NewServices wires the engine: the monitor probes the remote adapter and
// feeds reachability into the reconciler, the reconciler publishes snapshot
// changes through the monitor, and the façade nudges the reconciler after
// local writes.
func NewServices(storages *store.Storages, remote adapter.RemoteAPI, cfg *config.ClientConfig, logger *logger.Logger) *Services {
	rec := NewReconciler(storages, remote, cfg.Sync, logger)
	mon := NewConnectivityMonitor(remote, rec, storages, logger)

	if r, ok := rec.(*reconciler); ok {
		if m, ok := mon.(*connectivityMonitor); ok {
			r.notify = func() { m.Publish(context.Background()) }
		}
	}

	collections := NewCollectionService(storages, remote, mon, logger)
	if c, ok := collections.(*collectionService); ok {
		c.nudge = func() {
			go func() {
				if err := rec.Drain(context.Background()); err != nil {
					logger.Err(err).
						Str("func", "Services.nudge").
						Msg("drain triggered by local write failed")
				}
			}()
		}
	}

	return &Services{
		Collections: collections,
		Reconciler:  rec,
		Monitor:     mon,
		Refresh:     NewRefreshJob(collections, mon, logger),
	}
}
