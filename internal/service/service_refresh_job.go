package service

import (
	"context"
	"sync"
	"time"

	"github.com/fieldline-crm/fieldline/internal/config"
	"github.com/fieldline-crm/fieldline/internal/logger"
)

type refreshJob struct {
	collections CollectionService
	monitor     Monitor
	logger      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefreshJob creates the background job that periodically re-fetches every
// registered collection from the backend while online.
func NewRefreshJob(collections CollectionService, monitor Monitor, logger *logger.Logger) RefreshJob {
	return &refreshJob{
		collections: collections,
		monitor:     monitor,
		logger:      logger,
	}
}

// Start implements [RefreshJob].
func (j *refreshJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = config.DefaultRefreshInterval
	}

	j.Stop()

	j.mu.Lock()
	loopCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()

		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-t.C:
				j.refreshAll(loopCtx)
			}
		}
	}()
}

// Stop implements [RefreshJob]. Safe to call when the job is not running.
func (j *refreshJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}

func (j *refreshJob) refreshAll(ctx context.Context) {
	if !j.monitor.Online() {
		return
	}

	log := j.logger.GetChildLogger()
	for _, collection := range j.collections.Collections() {
		if err := j.collections.Refresh(ctx, collection); err != nil {
			log.Err(err).
				Str("func", "refreshJob.refreshAll").
				Str("collection", collection).
				Msg("background refresh failed")
		}
	}
}
