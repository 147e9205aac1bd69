// Package lock provides short-lived named locks that serialise work on one
// resource across server instances.
package lock

import (
	"context"
	"errors"
	"sync"
)

var ErrLocked = errors.New("lock is held")

// Release gives a lock back. Releasing twice is harmless.
type Release func(ctx context.Context) error

type Locker interface {
	// TryAcquire takes the lock without waiting; ErrLocked when another
	// holder has it.
	TryAcquire(ctx context.Context, key string) (Release, error)
}

// VehicleKey names the lock guarding fulfillment of one vehicle.
func VehicleKey(vehicleID string) string {
	return "lock:vehicle:" + vehicleID
}

// Local is an in-process Locker for single-instance deployments and tests.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

func (l *Local) TryAcquire(_ context.Context, key string) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, ErrLocked
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
