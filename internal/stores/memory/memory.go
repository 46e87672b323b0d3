// Package memory holds in-process Timeline and Vector stores for the local build
// target and unit tests.
package memory

import (
	"context"
	"sync"

	"github.com/isaac-evs/side-b/internal/model"
	"github.com/isaac-evs/side-b/internal/stores"
)

// lifecycle implements the stores.Adapter methods for in-process stores.
type lifecycle struct {
	mu        sync.RWMutex
	connected bool
}

func (l *lifecycle) Connect(context.Context) error {
	l.mu.Lock()
	l.connected = true
	l.mu.Unlock()
	return nil
}

func (l *lifecycle) Initialize(context.Context) error { return l.check() }

func (l *lifecycle) HealthPing(context.Context) error { return l.check() }

func (l *lifecycle) Disconnect(context.Context) error {
	l.mu.Lock()
	l.connected = false
	l.mu.Unlock()
	return nil
}

func (l *lifecycle) check() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.connected {
		return model.ErrNotConnected
	}
	return nil
}

var (
	_ stores.Timeline = (*Timeline)(nil)
	_ stores.Vector   = (*Vector)(nil)
)
