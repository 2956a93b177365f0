package memory

import (
	"context"
	"sync"
)

// AlertLocker is an in-memory implementation of store.AlertLocker backed
// by one mutex per alert id. It serializes read-modify-write cycles on a
// single alert within one process; the Redis locker is its storage-mode
// twin for multi-process deployments.
type AlertLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAlertLocker creates a new keyed-mutex alert locker.
func NewAlertLocker() *AlertLocker {
	return &AlertLocker{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the per-alert mutex. The returned function releases it.
// Lock entries are never removed; the set of alert ids a process touches
// is bounded by its working set.
func (l *AlertLocker) Lock(ctx context.Context, alertID string) (func(), error) {
	l.mu.Lock()
	m, exists := l.locks[alertID]
	if !exists {
		m = &sync.Mutex{}
		l.locks[alertID] = m
	}
	l.mu.Unlock()

	locked := make(chan struct{})
	go func() {
		m.Lock()
		close(locked)
	}()

	select {
	case <-locked:
		return m.Unlock, nil
	case <-ctx.Done():
		// The goroutine will still acquire the mutex eventually;
		// release it as soon as it does so nothing stays wedged.
		go func() {
			<-locked
			m.Unlock()
		}()
		return nil, ctx.Err()
	}
}
