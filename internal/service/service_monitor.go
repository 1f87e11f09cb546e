package service

import (
	"context"
	"sync"
	"time"

	"github.com/fieldline-crm/fieldline/internal/config"
	"github.com/fieldline-crm/fieldline/internal/logger"
	"github.com/fieldline-crm/fieldline/internal/store"
	"github.com/fieldline-crm/fieldline/models"
)

// Probe answers whether the backend is currently reachable. The production
// probe is the remote adapter's health ping; tests inject a scripted one.
type Probe interface {
	Ping(ctx context.Context) error
}

type connectivityMonitor struct {
	probe      Probe
	reconciler Reconciler
	storages   *store.Storages
	logger     *logger.Logger

	mu          sync.RWMutex
	online      bool
	subscribers map[int]chan models.ConnectivityState
	nextSubID   int

	jobMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConnectivityMonitor creates the monitor. It starts offline; the first
// successful probe (or SetOnline) flips it online and triggers a drain.
func NewConnectivityMonitor(probe Probe, reconciler Reconciler, storages *store.Storages, logger *logger.Logger) Monitor {
	return &connectivityMonitor{
		probe:       probe,
		reconciler:  reconciler,
		storages:    storages,
		logger:      logger,
		subscribers: make(map[int]chan models.ConnectivityState),
	}
}

// Start implements [Monitor]. It stops any previously running loop, then
// launches a goroutine probing the backend every interval. The goroutine
// exits when ctx is cancelled or Stop is called.
func (m *connectivityMonitor) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = config.DefaultProbeInterval
	}

	m.Stop()

	m.jobMu.Lock()
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(1)
	m.jobMu.Unlock()

	go func() {
		defer m.wg.Done()

		// probe once immediately so startup does not wait a full interval
		m.probeOnce(loopCtx)

		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-t.C:
				m.probeOnce(loopCtx)
			}
		}
	}()
}

// Stop implements [Monitor]. Safe to call when the loop is not running.
func (m *connectivityMonitor) Stop() {
	m.jobMu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.jobMu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

func (m *connectivityMonitor) probeOnce(ctx context.Context) {
	err := m.probe.Ping(ctx)
	m.applyState(ctx, err == nil)
}

// Online implements [Monitor].
func (m *connectivityMonitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline implements [Monitor]. It applies the same transition logic a
// probe result would: the offline-to-online edge triggers a drain pass, the
// online-to-offline edge suppresses new triggers (an in-flight pass keeps
// running) and cancels the scheduled retry.
func (m *connectivityMonitor) SetOnline(online bool) {
	m.applyState(context.Background(), online)
}

func (m *connectivityMonitor) applyState(ctx context.Context, online bool) {
	m.mu.Lock()
	transition := m.online != online
	m.online = online
	m.mu.Unlock()

	if !transition {
		return
	}

	m.reconciler.SetOnline(online)
	m.logger.Info().
		Str("func", "connectivityMonitor.applyState").
		Bool("online", online).
		Msg("connectivity transition")

	if online {
		go func() {
			if err := m.reconciler.Drain(ctx); err != nil {
				m.logger.Err(err).
					Str("func", "connectivityMonitor.applyState").
					Msg("drain triggered by online transition failed")
			}
		}()
	}

	m.Publish(ctx)
}

// Subscribe implements [Monitor]. Each subscriber gets a small buffered
// channel; when a subscriber falls behind, intermediate snapshots are dropped
// rather than blocking the monitor.
func (m *connectivityMonitor) Subscribe() (<-chan models.ConnectivityState, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++

	ch := make(chan models.ConnectivityState, 4)
	m.subscribers[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Publish pushes the current snapshot to all subscribers. Invoked on
// connectivity transitions and by the reconciler around each drain pass.
func (m *connectivityMonitor) Publish(ctx context.Context) {
	state, err := m.snapshot(ctx)
	if err != nil {
		m.logger.Err(err).
			Str("func", "connectivityMonitor.Publish").
			Msg("failed to build connectivity snapshot")
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- state:
		default:
		}
	}
}

// State implements [Monitor].
func (m *connectivityMonitor) State(ctx context.Context) (models.ConnectivityState, error) {
	return m.snapshot(ctx)
}

func (m *connectivityMonitor) snapshot(ctx context.Context) (models.ConnectivityState, error) {
	pending, err := m.storages.Queue.CountPending(ctx)
	if err != nil {
		return models.ConnectivityState{}, err
	}
	failed, err := m.storages.Queue.CountFailed(ctx)
	if err != nil {
		return models.ConnectivityState{}, err
	}
	lastSync, err := m.storages.Meta.LastSyncAt(ctx)
	if err != nil {
		return models.ConnectivityState{}, err
	}

	return models.ConnectivityState{
		Online:       m.Online(),
		Syncing:      m.reconciler.Syncing(),
		PendingCount: pending,
		FailedCount:  failed,
		LastSyncAt:   lastSync,
	}, nil
}
