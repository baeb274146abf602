package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/cbodonnell/statexfer/pkg/snapshot"
	"go.uber.org/atomic"
)

type InMemoryStateManager struct {
	lock    sync.RWMutex
	current *snapshot.State
	dirty   atomic.Bool
}

func NewInMemoryStateManager() *InMemoryStateManager {
	return &InMemoryStateManager{}
}

func (m *InMemoryStateManager) Get(ctx context.Context) (*snapshot.State, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.current.Copy(), nil
}

func (m *InMemoryStateManager) Set(ctx context.Context, state *snapshot.State) error {
	if state == nil {
		return fmt.Errorf("state is nil")
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	m.current = state
	m.dirty.Store(true)
	return nil
}

func (m *InMemoryStateManager) Consume(ctx context.Context) (*snapshot.State, bool, error) {
	if !m.dirty.Load() {
		return nil, false, nil
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	// re-check under the lock so two consumers cannot both win
	if !m.dirty.CompareAndSwap(true, false) {
		return nil, false, nil
	}
	return m.current.Copy(), true, nil
}

func (m *InMemoryStateManager) Clear(ctx context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.current = nil
	m.dirty.Store(true)
	return nil
}
