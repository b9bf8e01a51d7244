package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"cookit-backend/internal/pkg/common"
)

// MemoryCounter 行程內的計數器，適用於單一實例部署
type MemoryCounter struct {
	mu    sync.Mutex
	store map[string]bucketEntry
	now   func() time.Time

	evictions int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// bucketEntry 單一 key 的目前桶與前一桶計數
type bucketEntry struct {
	bucket   int64
	count    int64
	previous int64
	window   time.Duration
}

// expired 前一桶與本桶都已離開窗口
func (e bucketEntry) expired(now time.Time) bool {
	b, _ := bucketOf(now, e.window)
	return b > e.bucket+1
}

// NewMemoryCounter 創建記憶體計數器並啟動清理協程，需呼叫 Close 停止
func NewMemoryCounter(cleanupInterval time.Duration) *MemoryCounter {
	m := newMemoryCounter(time.Now)
	m.done = make(chan struct{})
	go m.startCleanup(cleanupInterval)
	return m
}

func newMemoryCounter(now func() time.Time) *MemoryCounter {
	return &MemoryCounter{
		store: make(map[string]bucketEntry),
		now:   now,
		stop:  make(chan struct{}),
	}
}

// Incr 遞增本桶計數；進入新桶時前一桶計數往後移
func (m *MemoryCounter) Incr(ctx context.Context, key string, window time.Duration) (Hit, error) {
	if err := ctx.Err(); err != nil {
		return Hit{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, elapsed := bucketOf(m.now(), window)
	entry, exists := m.store[key]
	switch {
	case exists && entry.bucket == bucket && entry.window == window:
	case exists && entry.bucket == bucket-1 && entry.window == window:
		entry = bucketEntry{bucket: bucket, previous: entry.count, window: window}
	default:
		entry = bucketEntry{bucket: bucket, window: window}
	}
	entry.count++
	m.store[key] = entry

	return Hit{Count: entry.count, Previous: entry.previous, Elapsed: elapsed}, nil
}

// startCleanup 定期清除過期的桶
func (m *MemoryCounter) startCleanup(interval time.Duration) {
	defer close(m.done)
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stop:
			return
		}
	}
}

// cleanup 清理不再影響估計值的 key
func (m *MemoryCounter) cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	count := 0
	for key, entry := range m.store {
		if entry.expired(now) {
			delete(m.store, key)
			count++
		}
	}
	m.evictions += int64(count)

	if count > 0 {
		common.LogDebug("Cleaned up expired rate limit buckets",
			zap.Int("count", count),
			zap.Int64("total_evictions", m.evictions),
			zap.Int("remaining_size", len(m.store)),
		)
	}
	return count
}

// Size 目前追蹤的 key 數量
func (m *MemoryCounter) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

// Close 停止清理協程並清空計數，可重複呼叫
func (m *MemoryCounter) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)
		if m.done != nil {
			<-m.done
		}

		m.mu.Lock()
		m.store = make(map[string]bucketEntry)
		m.mu.Unlock()
	})
	return nil
}
