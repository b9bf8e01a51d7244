package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"cookit-backend/internal/infrastructure/config"
)

// incrScript 在同一個原子操作中遞增本桶並讀取前一桶。
// KEYS[1] 本桶，KEYS[2] 前一桶，ARGV[1] 桶的保存時間（毫秒）。
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 or redis.call("PTTL", KEYS[1]) < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local previous = tonumber(redis.call("GET", KEYS[2]) or "0")
return {count, previous}
`)

// RedisCounter 以 Redis 儲存計數，多個實例共用同一個窗口
type RedisCounter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisCounter 創建 Redis 計數器並測試連線
func NewRedisCounter(ctx context.Context, cfg config.RedisConfig, prefix string) (*RedisCounter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 2 * time.Second,
		MaxRetries:  1,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisCounter(client, prefix), nil
}

func newRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisCounter{client: client, prefix: prefix, now: time.Now}
}

// Incr 遞增本桶計數。桶保存兩個窗口長度，足以在下一桶作為前一桶讀取。
func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (Hit, error) {
	bucket, elapsed := bucketOf(r.now(), window)
	keys := []string{r.key(key, bucket), r.key(key, bucket-1)}
	res, err := incrScript.Run(ctx, r.client, keys, (2 * window).Milliseconds()).Result()
	if err != nil {
		return Hit{}, fmt.Errorf("failed to run rate limit script: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return Hit{}, fmt.Errorf("unexpected rate limit script result: %v", res)
	}
	count, ok1 := values[0].(int64)
	previous, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return Hit{}, fmt.Errorf("unexpected rate limit script result: %v", res)
	}

	return Hit{Count: count, Previous: previous, Elapsed: elapsed}, nil
}

// key 生成單一桶的 Redis 鍵
func (r *RedisCounter) key(key string, bucket int64) string {
	return fmt.Sprintf("%s:%s:%d", r.prefix, key, bucket)
}

// Close 關閉連線
func (r *RedisCounter) Close() error {
	return r.client.Close()
}

// Ping 檢查 Redis 連線（就緒檢查用）
func (r *RedisCounter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
