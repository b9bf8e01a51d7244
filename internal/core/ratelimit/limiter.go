// Package ratelimit 以滑動窗口限制每個來源的請求數。
//
// 窗口以兩個對齊的桶近似：估計值 = 前一桶計數 × 前一桶仍落在窗口內的比例 + 本桶計數。
// 被拒絕的請求同樣計數，持續重試的來源會一直維持在限制中。
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Hit 一次計數後的桶狀態
type Hit struct {
	Count    int64         // 本桶內含本次的請求數
	Previous int64         // 前一桶的請求數
	Elapsed  time.Duration // 本桶開始至今的時間
}

// Counter 原子性的遞增並回傳桶狀態
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (Hit, error)
	Close() error
}

// Decision 限流判斷結果
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter 每個 key 在任一長度為 window 的區間內最多約 limit 次請求
type Limiter struct {
	counter Counter
	limit   int
	window  time.Duration
}

// NewLimiter 創建限流器
func NewLimiter(counter Counter, limit int, window time.Duration) (*Limiter, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %s", window)
	}
	return &Limiter{counter: counter, limit: limit, window: window}, nil
}

// Allow 遞增 key 的計數並判斷是否超過上限
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	hit, err := l.counter.Incr(ctx, key, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to increment rate counter: %w", err)
	}

	estimate := l.estimate(hit)
	d := Decision{
		Allowed: estimate <= float64(l.limit),
		Limit:   l.limit,
	}
	if d.Allowed {
		d.Remaining = max(l.limit-int(math.Ceil(estimate)), 0)
	} else {
		d.RetryAfter = l.retryAfter(hit)
	}
	return d, nil
}

// estimate 滑動窗口內的加權請求數
func (l *Limiter) estimate(hit Hit) float64 {
	return float64(hit.Previous)*l.previousWeight(hit.Elapsed) + float64(hit.Count)
}

func (l *Limiter) previousWeight(elapsed time.Duration) float64 {
	w := float64(l.window-elapsed) / float64(l.window)
	return min(max(w, 0), 1)
}

// retryAfter 下一個請求最早可被接受的等待時間
func (l *Limiter) retryAfter(hit Hit) time.Duration {
	window := float64(l.window)
	limit := float64(l.limit)
	count := float64(hit.Count)
	elapsed := float64(hit.Elapsed)

	// 本桶還有空間，等前一桶的權重衰減
	if count+1 <= limit && hit.Previous > 0 {
		wait := window - elapsed - (limit-count-1)*window/float64(hit.Previous)
		return time.Duration(math.Ceil(max(wait, 0)))
	}

	// 本桶已滿，等到下一桶中本桶的權重足夠小
	wait := (window - elapsed) + max(window-(limit-1)*window/count, 0)
	return time.Duration(math.Ceil(wait))
}

// bucketOf 回傳 now 所在的桶編號與桶內經過時間，桶以 Unix 時間對齊
func bucketOf(now time.Time, window time.Duration) (int64, time.Duration) {
	n := now.UnixNano()
	b := n / int64(window)
	return b, time.Duration(n - b*int64(window))
}

// Window 窗口長度
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Close 關閉底層計數器
func (l *Limiter) Close() error {
	return l.counter.Close()
}

// Ping 計數後端支援時檢查連線
func (l *Limiter) Ping(ctx context.Context) error {
	if p, ok := l.counter.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
