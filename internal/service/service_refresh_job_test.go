package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline-crm/fieldline/internal/logger"
	"github.com/fieldline-crm/fieldline/models"
)

// stubCollections counts Refresh calls per collection.
type stubCollections struct {
	mu        sync.Mutex
	refreshed map[string]int
}

func newStubCollections() *stubCollections {
	return &stubCollections{refreshed: make(map[string]int)}
}

func (s *stubCollections) Create(context.Context, string, any) (models.Record, error) {
	return models.Record{}, nil
}
func (s *stubCollections) Update(context.Context, string, int64, any) (models.Record, error) {
	return models.Record{}, nil
}
func (s *stubCollections) Delete(context.Context, string, int64) error { return nil }
func (s *stubCollections) Get(context.Context, string, int64) (models.Record, error) {
	return models.Record{}, nil
}
func (s *stubCollections) List(context.Context, string) ([]models.Record, error) { return nil, nil }
func (s *stubCollections) ListByIndex(context.Context, string, string, string) ([]models.Record, error) {
	return nil, nil
}
func (s *stubCollections) Collections() []string { return []string{"leads", "contacts"} }
func (s *stubCollections) Status(context.Context) (models.ConnectivityState, error) {
	return models.ConnectivityState{}, nil
}
func (s *stubCollections) SyncIssues(context.Context) ([]models.QueueEntry, error) { return nil, nil }

func (s *stubCollections) Refresh(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshed[collection]++
	return nil
}

func (s *stubCollections) count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshed[collection]
}

func TestRefreshJob_RefreshesAllCollectionsWhileOnline(t *testing.T) {
	collections := newStubCollections()
	monitor := &stubMonitor{online: true}

	job := NewRefreshJob(collections, monitor, logger.Nop())
	job.Start(context.Background(), 10*time.Millisecond)
	defer job.Stop()

	require.Eventually(t, func() bool {
		return collections.count("leads") >= 1 && collections.count("contacts") >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestRefreshJob_SkipsWhileOffline(t *testing.T) {
	collections := newStubCollections()
	monitor := &stubMonitor{online: false}

	job := NewRefreshJob(collections, monitor, logger.Nop())
	job.Start(context.Background(), 10*time.Millisecond)
	defer job.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, collections.count("leads"))
}

func TestRefreshJob_StopTerminatesLoop(t *testing.T) {
	collections := newStubCollections()
	monitor := &stubMonitor{online: true}

	job := NewRefreshJob(collections, monitor, logger.Nop())
	job.Start(context.Background(), 10*time.Millisecond)

	require.Eventually(t, func() bool { return collections.count("leads") >= 1 }, time.Second, 5*time.Millisecond)
	job.Stop()

	after := collections.count("leads")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, collections.count("leads"))
}

func TestRefreshJob_StopWithoutStartIsSafe(t *testing.T) {
	job := NewRefreshJob(newStubCollections(), &stubMonitor{}, logger.Nop())
	job.Stop()
}
