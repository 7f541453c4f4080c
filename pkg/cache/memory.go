package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryItem struct {
	data     []byte
	expireAt time.Time
}

func (m *memoryItem) expired(now time.Time) bool {
	return now.After(m.expireAt)
}

// MemoryStore implements Store using in-memory storage with LRU eviction.
type MemoryStore struct {
	data          map[string]*memoryItem
	access        map[string]time.Time
	mu            sync.RWMutex
	maxSize       int
	cleanupTicker *time.Ticker
	done          chan struct{}
}

type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
}

type MemoryOption func(*MemoryConfig)

func WithMaxSize(n int) MemoryOption {
	return func(c *MemoryConfig) { c.MaxSize = n }
}

func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.CleanupInterval = d }
}

// NewMemoryStore creates an in-memory TTL store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ms := &MemoryStore{
		data:          make(map[string]*memoryItem),
		access:        make(map[string]time.Time),
		maxSize:       cfg.MaxSize,
		cleanupTicker: time.NewTicker(cfg.CleanupInterval),
		done:          make(chan struct{}),
	}
	go ms.cleanupExpired()
	return ms
}

func (ms *MemoryStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if len(ms.data) >= ms.maxSize {
		ms.evictLRU()
	}

	expireAt := time.Now().Add(ttl)
	if ttl <= 0 {
		expireAt = time.Now().Add(24 * time.Hour)
	}

	ms.data[key] = &memoryItem{data: data, expireAt: expireAt}
	ms.access[key] = time.Now()
	return nil
}

func (ms *MemoryStore) Get(_ context.Context, key string, dest interface{}) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	item, ok := ms.data[key]
	if !ok || item.expired(time.Now()) {
		if ok {
			delete(ms.data, key)
			delete(ms.access, key)
		}
		return ErrCacheMiss
	}

	ms.access[key] = time.Now()
	return json.Unmarshal(item.data, dest)
}

func (ms *MemoryStore) Delete(_ context.Context, keys ...string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, key := range keys {
		delete(ms.data, key)
		delete(ms.access, key)
	}
	return nil
}

func (ms *MemoryStore) evictLRU() {
	if len(ms.data) == 0 {
		return
	}

	var oldestKey string
	oldestTime := time.Now()
	for key, accessTime := range ms.access {
		if accessTime.Before(oldestTime) {
			oldestTime = accessTime
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(ms.data, oldestKey)
		delete(ms.access, oldestKey)
	}
}

func (ms *MemoryStore) cleanupExpired() {
	for {
		select {
		case <-ms.done:
			return
		case <-ms.cleanupTicker.C:
			ms.mu.Lock()
			now := time.Now()
			for key, item := range ms.data {
				if item.expired(now) {
					delete(ms.data, key)
					delete(ms.access, key)
				}
			}
			ms.mu.Unlock()
		}
	}
}

// Close stops the background cleanup loop.
func (ms *MemoryStore) Close() error {
	ms.cleanupTicker.Stop()
	close(ms.done)
	return nil
}

var _ Store = (*MemoryStore)(nil)
