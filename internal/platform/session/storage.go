package session

import (
	"context"
	"sync"
)

// 保存キー
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Storage はセッション ID ごとの key/value ストア
type Storage interface {
	// 未設定なら "" を返す
	Get(ctx context.Context, sid, key string) (string, error)
	Set(ctx context.Context, sid, key, value string) error
	Delete(ctx context.Context, sid string, keys ...string) error
}

type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]map[string]string)}
}

func (m *MemoryStorage) Get(_ context.Context, sid, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[sid][key], nil
}

func (m *MemoryStorage) Set(_ context.Context, sid, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kv, ok := m.data[sid]
	if !ok {
		kv = make(map[string]string)
		m.data[sid] = kv
	}
	kv[key] = value
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, sid string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kv, ok := m.data[sid]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(kv, k)
	}
	if len(kv) == 0 {
		delete(m.data, sid)
	}
	return nil
}
