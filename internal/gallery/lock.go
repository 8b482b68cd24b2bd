package gallery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/EgorLis/event-gallery/internal/domain"
)

// Locker serializes writers of one session. Lock fails with domain.ErrBusy
// when the key stays held past the locker's wait.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

type localLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
	wait time.Duration
}

// NewLocalLocker returns a Locker scoped to this process.
func NewLocalLocker(wait time.Duration) Locker {
	return &localLocker{held: make(map[string]chan struct{}), wait: wait}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	for {
		l.mu.Lock()
		done, busy := l.held[key]
		if !busy {
			done = make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, fmt.Errorf("lock %s: %w", key, domain.ErrBusy)
		}
	}
}
