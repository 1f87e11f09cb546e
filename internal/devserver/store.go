package devserver

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline-crm/fieldline/models"
)

// memStore holds the backend's records and the idempotency replay cache. All
// access goes through the mutex; the dev backend favours simplicity over
// throughput.
type memStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]models.RemoteRecord
	order       map[string][]string
	idempotency map[string]idempotentReply
}

// idempotentReply is the cached outcome of a mutating request, replayed
// verbatim when the same idempotency key arrives again.
type idempotentReply struct {
	status int
	record models.RemoteRecord
}

func newMemStore() *memStore {
	return &memStore{
		collections: make(map[string]map[string]models.RemoteRecord),
		order:       make(map[string][]string),
		idempotency: make(map[string]idempotentReply),
	}
}

func (m *memStore) list(collection string) []models.RemoteRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := m.order[collection]
	records := make([]models.RemoteRecord, 0, len(keys))
	for _, key := range keys {
		if rec, ok := m.collections[collection][key]; ok {
			records = append(records, rec)
		}
	}
	return records
}

func (m *memStore) get(collection, serverKey string) (models.RemoteRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.collections[collection][serverKey]
	return rec, ok
}

func (m *memStore) insert(collection string, data []byte) models.RemoteRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.insertLocked(collection, data)
}

func (m *memStore) insertLocked(collection string, data []byte) models.RemoteRecord {
	now := time.Now().UTC()
	rec := models.RemoteRecord{
		ServerKey: uuid.NewString(),
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]models.RemoteRecord)
	}
	m.collections[collection][rec.ServerKey] = rec
	m.order[collection] = append(m.order[collection], rec.ServerKey)

	return rec
}

func (m *memStore) overwrite(collection, serverKey string, data []byte) (models.RemoteRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.collections[collection][serverKey]
	if !ok {
		return models.RemoteRecord{}, false
	}

	rec.Data = data
	rec.UpdatedAt = time.Now().UTC()
	m.collections[collection][serverKey] = rec

	return rec, true
}

func (m *memStore) remove(collection, serverKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[collection][serverKey]; !ok {
		return false
	}
	delete(m.collections[collection], serverKey)
	return true
}

func (m *memStore) replay(idempotencyKey string) (idempotentReply, bool) {
	if idempotencyKey == "" {
		return idempotentReply{}, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	reply, ok := m.idempotency[idempotencyKey]
	return reply, ok
}

func (m *memStore) remember(idempotencyKey string, reply idempotentReply) {
	if idempotencyKey == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.idempotency[idempotencyKey] = reply
}
