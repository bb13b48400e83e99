package main

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// 💾 进程内缓存后备
// =============================================================================

// localBackend 是 Redis 不可用时的进程内缓存后备。
// 单实例部署下语义与 Redis 后端一致, 只是不跨进程共享。
type localBackend struct {
	mu      sync.RWMutex
	entries map[string]localEntry
}

type localEntry struct {
	value     string
	expiresAt time.Time
}

// newLocalBackend 创建进程内缓存并启动过期清理, ctx 取消时停止
func newLocalBackend(ctx context.Context) *localBackend {
	b := &localBackend{entries: make(map[string]localEntry)}
	go b.janitor(ctx)
	return b
}

func (b *localBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	e, ok := b.entries[key]
	b.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (b *localBackend) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Hour
	}
	b.mu.Lock()
	b.entries[key] = localEntry{value: value, expiresAt: time.Now().Add(ttl)}
	b.mu.Unlock()
	return nil
}

func (b *localBackend) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	for _, key := range keys {
		delete(b.entries, key)
	}
	b.mu.Unlock()
	return nil
}

// janitor 定期清理过期条目, 防止长期运行下内存增长
func (b *localBackend) janitor(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			b.mu.Lock()
			for key, e := range b.entries {
				if now.After(e.expiresAt) {
					delete(b.entries, key)
				}
			}
			b.mu.Unlock()
		}
	}
}
