package session

import "sync"

// MemoryBackend keeps settings in a map. Used by tests and one-shot commands.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

func (m *MemoryBackend) GetSetting(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key], nil
}

func (m *MemoryBackend) SetSetting(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryBackend) DeleteSetting(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
