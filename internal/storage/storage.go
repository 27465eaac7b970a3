package storage

import "sync"

// Slot keys used by the tracker.
const (
	KeyOfflineQueue = "analytics_offline_queue"
	KeyUTMParams    = "analytics_utm_params"
)

// Storage is a durable key-value slot store. Implementations must treat
// missing keys as absent rather than errors; callers treat corrupt or
// unreadable values as empty and keep going.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(key string) ([]byte, bool, error)

	// Set stores the value for key, overwriting any previous value.
	Set(key string, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(key string) error

	// Close releases underlying resources.
	Close() error
}

// Memory is an in-process Storage used in tests and as a degraded-mode
// fallback when the durable store cannot be opened.
type Memory struct {
	mu    sync.Mutex
	slots map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{slots: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.slots[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.slots[key] = stored
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.slots, key)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
