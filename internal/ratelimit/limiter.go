// Package ratelimit ограничивает число запросов с одного клиента за окно времени.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Значения по умолчанию: 100 запросов за 15 минут.
const (
	DefaultLimit  = 100
	DefaultWindow = 15 * time.Minute
)

// Result — итог проверки одного запроса.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter решает, пропустить ли очередной запрос с ключом key.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// MemoryLimiter — фиксированное окно в памяти процесса.
// Подходит для одного экземпляра сервера; счётчики не переживают рестарт.
type MemoryLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	now       func() time.Time
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	count   int
	resetAt time.Time
}

// NewMemoryLimiter создаёт MemoryLimiter; нулевые параметры заменяются значениями по умолчанию.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow считает запрос в текущем окне ключа.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(l.window)}
		l.buckets[key] = b
	}

	res := &Result{Limit: l.limit, ResetAt: b.resetAt}
	if b.count >= l.limit {
		return res, nil
	}
	b.count++
	res.Allowed = true
	res.Remaining = l.limit - b.count
	return res, nil
}

// sweep раз в окно выбрасывает истёкшие счётчики; вызывается под mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for key, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}
