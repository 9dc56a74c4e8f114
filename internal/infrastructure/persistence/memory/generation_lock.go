// Package memory provides the in-process generation lock used when Redis
// is not configured
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alchemorsel/mealplan/internal/ports/outbound"
)

type lockItem struct {
	token     uint64
	expiresAt time.Time
}

// GenerationLock is a process-local keyed lock with expiry
type GenerationLock struct {
	mutex sync.Mutex
	items map[string]lockItem
	next  uint64
	now   func() time.Time
}

// NewGenerationLock creates a new in-memory lock
func NewGenerationLock() *GenerationLock {
	return &GenerationLock{
		items: make(map[string]lockItem),
		now:   time.Now,
	}
}

var _ outbound.GenerationLock = (*GenerationLock)(nil)

// Acquire takes key unless another unexpired holder has it
func (l *GenerationLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := l.now()
	if item, held := l.items[key]; held && now.Before(item.expiresAt) {
		return nil, false, nil
	}

	l.next++
	token := l.next
	l.items[key] = lockItem{token: token, expiresAt: now.Add(ttl)}
	l.sweep(now)

	release := func(context.Context) error {
		l.mutex.Lock()
		defer l.mutex.Unlock()
		// A holder whose TTL lapsed must not release a newer holder.
		if item, held := l.items[key]; held && item.token == token {
			delete(l.items, key)
		}
		return nil
	}
	return release, true, nil
}

// Held reports whether key is currently locked
func (l *GenerationLock) Held(key string) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	item, held := l.items[key]
	return held && l.now().Before(item.expiresAt)
}

// sweep drops expired keys; callers hold the mutex
func (l *GenerationLock) sweep(now time.Time) {
	for key, item := range l.items {
		if !now.Before(item.expiresAt) {
			delete(l.items, key)
		}
	}
}
