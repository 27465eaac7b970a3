package tracker

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/ahmedrzakhan/portfolio-analytics/internal/store"
)

// MockStore is a mock implementation of store.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Insert(ctx context.Context, table string, records any) error {
	args := m.Called(ctx, table, records)
	return args.Error(0)
}

func (m *MockStore) Upsert(ctx context.Context, table string, records any, conflictKey string) error {
	args := m.Called(ctx, table, records, conflictKey)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, table string, filter store.Filter) error {
	args := m.Called(ctx, table, filter)
	return args.Error(0)
}

func (m *MockStore) Query(ctx context.Context, table string, filter store.Filter, dest any) error {
	args := m.Called(ctx, table, filter, dest)
	return args.Error(0)
}

func (m *MockStore) RPC(ctx context.Context, name string, params any, dest any) error {
	args := m.Called(ctx, name, params, dest)
	return args.Error(0)
}

// recordingDeliverer captures every flushed batch for inspection.
type recordingDeliverer struct {
	mu      sync.Mutex
	batches [][]Record
}

func (d *recordingDeliverer) Deliver(_ context.Context, batch []Record) {
	copied := make([]Record, len(batch))
	copy(copied, batch)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches = append(d.batches, copied)
}

func (d *recordingDeliverer) flushCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.batches)
}

func (d *recordingDeliverer) totalRecords() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, batch := range d.batches {
		total += len(batch)
	}
	return total
}

// countingStorage wraps the in-memory storage and counts writes, so tests
// can prove a disabled tracker performs no storage I/O.
type countingStorage struct {
	mu     sync.Mutex
	slots  map[string][]byte
	sets   int
	reads  int
	closed bool
}

func newCountingStorage() *countingStorage {
	return &countingStorage{slots: make(map[string][]byte)}
}

func (c *countingStorage) Get(key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	value, ok := c.slots[key]
	return value, ok, nil
}

func (c *countingStorage) Set(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.slots[key] = value
	return nil
}

func (c *countingStorage) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.slots, key)
	return nil
}

func (c *countingStorage) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *countingStorage) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}
